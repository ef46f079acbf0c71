package app

import (
	"context"

	"quiz-session-service/internal/domain"
)

// SessionStore persists sessions (Postgres, in-memory for tests).
type SessionStore interface {
	// CreateSession inserts s and fills its generated ID. The caller sets
	// the status; uniqueness of the join code is enforced by the store.
	CreateSession(ctx context.Context, s *domain.Session) error
	SessionByID(ctx context.Context, id int64) (domain.Session, error)
	SessionByJoinCode(ctx context.Context, code string) (domain.Session, error)
	// UpdateSessionStatus writes the new status. The store stamps
	// started_at on first entry into in_progress and finished_at on entry
	// into finished, leaving both untouched otherwise. A finished session
	// rejects any other status in the same atomic write, so concurrent
	// transitions cannot leave the terminal state.
	UpdateSessionStatus(ctx context.Context, id int64, status string) error
}

// PlayerStore persists session players.
type PlayerStore interface {
	// AddPlayer inserts p and fills its generated ID and JoinedAt. The
	// (session, nickname) uniqueness constraint is enforced by the store.
	AddPlayer(ctx context.Context, p *domain.SessionPlayer) error
	PlayerByID(ctx context.Context, id int64) (domain.SessionPlayer, error)
	// ListPlayers returns the session's players ordered by joined_at
	// ascending, then id ascending.
	ListPlayers(ctx context.Context, sessionID int64) ([]domain.SessionPlayer, error)
}

// AnswerStore persists scored submissions.
type AnswerStore interface {
	// RecordAnswer inserts a and, when scoreDelta is positive, increments
	// the player's score by exactly scoreDelta. Both writes commit
	// together or not at all; the increment is a store-side delta, never a
	// read-modify-write. A second answer for the same (player, question)
	// fails with a conflict.
	RecordAnswer(ctx context.Context, a *domain.SessionAnswer, scoreDelta int) error
}

// AnswerKeyRepository serves the scoring view of questions, typically through
// a cache in front of the authoritative store.
type AnswerKeyRepository interface {
	AnswerKey(ctx context.Context, questionID int64) (domain.AnswerKey, error)
}

// CatalogStore persists the authoring entities (users, quizzes, questions,
// answer options). These operations are pass-through CRUD; constraints are
// enforced by the store.
type CatalogStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	UserByID(ctx context.Context, id int64) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateQuiz(ctx context.Context, q *domain.Quiz) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)

	CreateQuestion(ctx context.Context, q *domain.Question) error
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	// ListQuestionsByQuiz orders by sort_order (nulls last), then id.
	ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)

	CreateAnswerOption(ctx context.Context, o *domain.AnswerOption) error
	ListOptionsByQuestion(ctx context.Context, questionID int64) ([]domain.AnswerOption, error)
}
