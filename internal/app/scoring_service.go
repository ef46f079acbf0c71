package app

import (
	"context"
	"time"

	"quiz-session-service/internal/domain"
)

// ScoringService validates and records answer submissions. This is the one
// piece of real business logic: correctness comes from the option's flag,
// points from the question, and the answer row plus the score increment are
// committed as a single unit by the store.
type ScoringService struct {
	players  PlayerStore
	sessions SessionStore
	answers  AnswerStore
	keys     AnswerKeyRepository
	now      func() time.Time
}

func NewScoringService(players PlayerStore, sessions SessionStore, answers AnswerStore, keys AnswerKeyRepository) *ScoringService {
	return &ScoringService{
		players:  players,
		sessions: sessions,
		answers:  answers,
		keys:     keys,
		now:      time.Now,
	}
}

// NewScoringServiceWithClock is test-only for deterministic timestamps.
func NewScoringServiceWithClock(players PlayerStore, sessions SessionStore, answers AnswerStore, keys AnswerKeyRepository, now func() time.Time) *ScoringService {
	s := NewScoringService(players, sessions, answers, keys)
	s.now = now
	return s
}

// SubmitAnswer scores one submission for a player.
//
// The option must belong to the stated question and the question must belong
// to the quiz of the player's session; either mismatch is a client input
// error, distinct from a missing player or question. Correctness is the
// option's is_correct flag taken as-is, points are the question's configured
// value when correct (absent points award nothing). Resubmission for the same
// (player, question) is rejected as a conflict by the store's uniqueness
// constraint and never re-scores.
func (s *ScoringService) SubmitAnswer(ctx context.Context, sessionPlayerID, questionID, answerOptionID int64) (domain.SessionAnswer, error) {
	player, err := s.players.PlayerByID(ctx, sessionPlayerID)
	if err != nil {
		return domain.SessionAnswer{}, err
	}
	session, err := s.sessions.SessionByID(ctx, player.SessionID)
	if err != nil {
		return domain.SessionAnswer{}, err
	}

	key, err := s.keys.AnswerKey(ctx, questionID)
	if err != nil {
		return domain.SessionAnswer{}, err
	}
	if key.QuizID != session.QuizID {
		return domain.SessionAnswer{}, &domain.InvalidInputError{Reason: "question does not belong to this session's quiz"}
	}
	correct, ok := key.Correct[answerOptionID]
	if !ok {
		return domain.SessionAnswer{}, &domain.InvalidInputError{Reason: "answer option does not belong to this question"}
	}

	awarded := 0
	if correct {
		awarded = key.Points
	}

	answer := domain.SessionAnswer{
		SessionPlayerID: sessionPlayerID,
		QuestionID:      questionID,
		AnswerOptionID:  answerOptionID,
		AnsweredAt:      s.now().UTC(),
		IsCorrect:       correct,
		PointsAwarded:   awarded,
	}
	if err := s.answers.RecordAnswer(ctx, &answer, awarded); err != nil {
		return domain.SessionAnswer{}, err
	}
	return answer, nil
}
