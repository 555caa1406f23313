package cli

import "live-quiz-service/internal/domain"

// sampleQuizzes is served when no database is configured.
func sampleQuizzes() map[domain.QuizID]domain.Quiz {
	return map[domain.QuizID]domain.Quiz{
		"quiz-1": {
			ID:     "quiz-1",
			Name:   "Warm-up arithmetic",
			Author: domain.Author{ID: "host", Username: "host"},
			Questions: []domain.Question{
				{
					ID:       "q1",
					Question: "What is 2 + 2?",
					Type:     domain.QuestionSingle,
					Duration: 15,
					Choices: []domain.Choice{
						{ID: "o1", Choice: "3"},
						{ID: "o2", Choice: "4", Correct: true},
						{ID: "o3", Choice: "5"},
					},
				},
				{
					ID:       "q2",
					Question: "Is 7 a prime number?",
					Type:     domain.QuestionBinary,
					Duration: 10,
					Position: 1,
					Choices: []domain.Choice{
						{ID: "o4", Choice: "Yes", Correct: true},
						{ID: "o5", Choice: "No"},
					},
				},
				{
					ID:       "q3",
					Question: "Which numbers are even?",
					Type:     domain.QuestionMultiple,
					Duration: 20,
					Position: 2,
					Choices: []domain.Choice{
						{ID: "o6", Choice: "2", Correct: true},
						{ID: "o7", Choice: "3"},
						{ID: "o8", Choice: "8", Correct: true},
					},
				},
			},
		},
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "host", Username: "host"},
		{ID: "player-1", Username: "player-1"},
		{ID: "player-2", Username: "player-2"},
	}
}
