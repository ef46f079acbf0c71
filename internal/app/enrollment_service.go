package app

import (
	"context"

	"quiz-session-service/internal/domain"
)

// EnrollmentService attaches players (registered users or guests) to sessions.
type EnrollmentService struct {
	players PlayerStore
}

func NewEnrollmentService(players PlayerStore) *EnrollmentService {
	return &EnrollmentService{players: players}
}

// AddPlayer enrolls a player in a session. A nil userID means a guest
// identified only by nickname. A duplicate nickname within the session
// surfaces as a conflict from the store; an unknown session fails on its
// referential constraint.
func (s *EnrollmentService) AddPlayer(ctx context.Context, sessionID int64, nickname string, userID *int64) (domain.SessionPlayer, error) {
	if nickname == "" {
		return domain.SessionPlayer{}, &domain.InvalidInputError{Reason: "nickname must not be empty"}
	}
	player := domain.SessionPlayer{
		SessionID: sessionID,
		UserID:    userID,
		Nickname:  nickname,
	}
	if err := s.players.AddPlayer(ctx, &player); err != nil {
		return domain.SessionPlayer{}, err
	}
	return player, nil
}

// ListPlayers returns the session's players ordered by join time, with ties
// broken by ID so the order is deterministic within one timestamp.
func (s *EnrollmentService) ListPlayers(ctx context.Context, sessionID int64) ([]domain.SessionPlayer, error) {
	return s.players.ListPlayers(ctx, sessionID)
}
