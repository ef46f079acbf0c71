package app

import (
	"context"
	"fmt"
	"math/rand"

	"quiz-session-service/internal/domain"
)

const joinCodeLength = 6

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// joinCodeRetries bounds how often a generated code is re-rolled on collision.
const joinCodeRetries = 5

// SessionService owns session creation and status transitions.
type SessionService struct {
	sessions SessionStore
}

func NewSessionService(sessions SessionStore) *SessionService {
	return &SessionService{sessions: sessions}
}

// CreateSession opens a new session in the waiting state. The status is never
// taken from the caller. A blank join code is replaced with a generated one,
// re-rolled a bounded number of times if it collides; a duplicate
// caller-supplied code surfaces as a conflict from the store.
func (s *SessionService) CreateSession(ctx context.Context, quizID, hostID int64, joinCode string) (domain.Session, error) {
	generated := joinCode == ""
	for attempt := 0; ; attempt++ {
		if generated {
			joinCode = generateJoinCode()
		}
		session := domain.Session{
			QuizID:   quizID,
			HostID:   hostID,
			JoinCode: joinCode,
			Status:   domain.StatusWaiting,
		}
		err := s.sessions.CreateSession(ctx, &session)
		if err == nil {
			return session, nil
		}
		if generated && domain.IsConflict(err) && attempt < joinCodeRetries {
			continue
		}
		return domain.Session{}, err
	}
}

// UpdateStatus transitions a session to the given status. Unknown statuses
// are rejected before the store is touched. The store enforces that finished
// is terminal and stamps started_at and finished_at in the same update, so
// concurrent transitions cannot slip past the terminal check.
func (s *SessionService) UpdateStatus(ctx context.Context, sessionID int64, status string) error {
	if !domain.ValidStatus(status) {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("unknown session status %q", status)}
	}
	return s.sessions.UpdateSessionStatus(ctx, sessionID, status)
}

// GetSession fetches a session by its ID.
func (s *SessionService) GetSession(ctx context.Context, sessionID int64) (domain.Session, error) {
	return s.sessions.SessionByID(ctx, sessionID)
}

// GetSessionByJoinCode fetches a session by the code players type in.
func (s *SessionService) GetSessionByJoinCode(ctx context.Context, joinCode string) (domain.Session, error) {
	return s.sessions.SessionByJoinCode(ctx, joinCode)
}

func generateJoinCode() string {
	code := make([]byte, joinCodeLength)
	for i := range code {
		code[i] = joinCodeAlphabet[rand.Intn(len(joinCodeAlphabet))]
	}
	return string(code)
}
