package app

import (
	"math"

	"live-quiz-service/internal/domain"
)

// BasePoints is awarded for a fully correct, instant answer.
const BasePoints = 10

// ValidateAnswer checks the answer shape against the question type.
// Single and binary questions take exactly one known choice; multiple takes a
// non-empty set of distinct known choices.
func ValidateAnswer(q domain.Question, answers []domain.ChoiceID) error {
	if len(answers) == 0 {
		return domain.ErrInvalidAnswer
	}
	switch q.Type {
	case domain.QuestionSingle, domain.QuestionBinary:
		if len(answers) != 1 {
			return domain.ErrInvalidAnswer
		}
	case domain.QuestionMultiple:
	default:
		return domain.ErrInvalidAnswer
	}
	seen := make(map[domain.ChoiceID]struct{}, len(answers))
	for _, id := range answers {
		if !q.HasChoice(id) {
			return domain.ErrInvalidAnswer
		}
		if _, dup := seen[id]; dup {
			return domain.ErrInvalidAnswer
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Score is all-or-nothing on correctness, scaled by the share of time left.
// Every submitted choice must be correct for any points.
func Score(q domain.Question, answers []domain.ChoiceID, remaining int) int {
	if len(answers) == 0 {
		return 0
	}
	correct := make(map[domain.ChoiceID]bool, len(q.Choices))
	for _, c := range q.Choices {
		correct[c.ID] = c.Correct
	}
	for _, id := range answers {
		if !correct[id] {
			return 0
		}
	}

	factor := 1.0
	if q.Duration > 0 {
		factor = float64(remaining) / float64(q.Duration)
	}
	points := math.Round(BasePoints * factor)
	switch {
	case points < 0:
		return 0
	case points >= math.MaxInt:
		return math.MaxInt
	}
	return int(points)
}
