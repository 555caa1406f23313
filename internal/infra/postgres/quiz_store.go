package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"live-quiz-service/internal/domain"
)

// QuizStore reads quizzes and their ordered questions from Postgres.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

// FindQuiz loads the quiz header with its author, without questions.
func (s *QuizStore) FindQuiz(ctx context.Context, id domain.QuizID) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx, `
		SELECT q.id, q.name, u.id, u.username
		FROM quizzes q
		JOIN users u ON u.id = q.author_id
		WHERE q.id = $1`, string(id)).
		Scan(&quiz.ID, &quiz.Name, &quiz.Author.ID, &quiz.Author.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz: %w", err)
	}
	return quiz, nil
}

// FindOrderedQuestions loads the questions of a quiz by position, each with its choices in order.
func (s *QuizStore) FindOrderedQuestions(ctx context.Context, quizID domain.QuizID) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT qs.id, qs.question, qs.type, qs.duration, qs.position, c.id, c.choice, c.correct
		FROM questions qs
		LEFT JOIN choices c ON c.question_id = qs.id
		WHERE qs.quiz_id = $1
		ORDER BY qs.position, qs.id, c.position, c.id`, string(quizID))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q        domain.Question
			choiceID *string
			choice   *string
			correct  *bool
		)
		if err := rows.Scan(&q.ID, &q.Question, &q.Type, &q.Duration, &q.Position, &choiceID, &choice, &correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if n := len(questions); n == 0 || questions[n-1].ID != q.ID {
			questions = append(questions, q)
		}
		if choiceID != nil {
			last := &questions[len(questions)-1]
			c := domain.Choice{ID: domain.ChoiceID(*choiceID)}
			if choice != nil {
				c.Choice = *choice
			}
			if correct != nil {
				c.Correct = *correct
			}
			last.Choices = append(last.Choices, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}

// LoadQuiz combines FindQuiz and FindOrderedQuestions.
func (s *QuizStore) LoadQuiz(ctx context.Context, id domain.QuizID) (domain.Quiz, error) {
	quiz, err := s.FindQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions, err = s.FindOrderedQuestions(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// SaveQuiz inserts or replaces a quiz with its questions and choices in one transaction.
func (s *QuizStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO quizzes (id, name, author_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, author_id = EXCLUDED.author_id`,
		string(quiz.ID), quiz.Name, string(quiz.Author.ID)); err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, string(quiz.ID)); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	batch := &pgx.Batch{}
	for i, q := range quiz.Questions {
		batch.Queue(`INSERT INTO questions (id, quiz_id, question, type, duration, position) VALUES ($1, $2, $3, $4, $5, $6)`,
			string(q.ID), string(quiz.ID), q.Question, string(q.Type), q.Duration, i)
		for j, c := range q.Choices {
			batch.Queue(`INSERT INTO choices (id, question_id, choice, correct, position) VALUES ($1, $2, $3, $4, $5)`,
				string(c.ID), string(q.ID), c.Choice, c.Correct, j)
		}
	}
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert question rows: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return tx.Commit(ctx)
}
