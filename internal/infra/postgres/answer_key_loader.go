package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-session-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AnswerKeyLoader serves the scoring read path over a pgx pool, separate from
// the bun write path.
type AnswerKeyLoader struct {
	pool *pgxpool.Pool
}

func NewAnswerKeyLoader(pool *pgxpool.Pool) *AnswerKeyLoader {
	return &AnswerKeyLoader{pool: pool}
}

func (l *AnswerKeyLoader) LoadAnswerKey(ctx context.Context, questionID int64) (domain.AnswerKey, error) {
	key := domain.AnswerKey{
		QuestionID: questionID,
		Correct:    make(map[int64]bool),
	}
	err := l.pool.QueryRow(ctx,
		`SELECT quiz_id, COALESCE(points, 0) FROM quiz_questions WHERE id=$1`,
		questionID,
	).Scan(&key.QuizID, &key.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnswerKey{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load question: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, is_correct FROM question_answer_options WHERE question_id=$1`,
		questionID,
	)
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var optionID int64
		var correct bool
		if err := rows.Scan(&optionID, &correct); err != nil {
			return domain.AnswerKey{}, fmt.Errorf("scan option: %w", err)
		}
		key.Correct[optionID] = correct
	}
	if err := rows.Err(); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("read options: %w", err)
	}
	return key, nil
}
