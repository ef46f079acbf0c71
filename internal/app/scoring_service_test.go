package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func setupSessionWithPlayer(t *testing.T, store *memory.Store, fix fixture) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	sessions, enrollment, _ := newServices(store)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	player, err := enrollment.AddPlayer(ctx, session.ID, "alice", nil)
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	return session.ID, player.ID
}

func TestSubmitCorrectAnswerAwardsPoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	answer, err := scoring.SubmitAnswer(ctx, playerID, fix.questionID, fix.correctOption)
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if !answer.IsCorrect || answer.PointsAwarded != 500 {
		t.Fatalf("expected correct answer worth 500, got %+v", answer)
	}
	if answer.ID == 0 {
		t.Fatalf("expected a generated answer id")
	}
	if answer.AnsweredAt.IsZero() {
		t.Fatalf("expected answered_at to be set")
	}

	player, err := store.PlayerByID(ctx, playerID)
	if err != nil {
		t.Fatalf("reload player: %v", err)
	}
	if player.Score != 500 {
		t.Fatalf("expected score 500, got %d", player.Score)
	}
}

func TestSubmitWrongAnswerAwardsNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	answer, err := scoring.SubmitAnswer(ctx, playerID, fix.questionID, fix.wrongOption)
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if answer.IsCorrect || answer.PointsAwarded != 0 {
		t.Fatalf("expected incorrect answer worth 0, got %+v", answer)
	}

	player, _ := store.PlayerByID(ctx, playerID)
	if player.Score != 0 {
		t.Fatalf("expected score unchanged, got %d", player.Score)
	}
}

func TestSubmitOptionFromAnotherQuestionRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	// The option belongs to the other quiz's question, submitted against
	// the session quiz's question.
	_, err := scoring.SubmitAnswer(ctx, playerID, fix.questionID, fix.otherQuestionOpt)
	if !domain.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for foreign option, got %v", err)
	}

	player, _ := store.PlayerByID(ctx, playerID)
	if player.Score != 0 {
		t.Fatalf("rejected submission must not change score, got %d", player.Score)
	}
}

func TestSubmitQuestionOutsideSessionQuizRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	// Question and option agree, but the question belongs to a quiz the
	// session is not running.
	_, err := scoring.SubmitAnswer(ctx, playerID, fix.otherQuestion, fix.otherQuestionOpt)
	if !domain.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for cross-quiz question, got %v", err)
	}
}

func TestSubmitUnknownPlayerOrQuestion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	_, err := scoring.SubmitAnswer(ctx, playerID+1000, fix.questionID, fix.correctOption)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown player, got %v", err)
	}

	_, err = scoring.SubmitAnswer(ctx, playerID, fix.questionID+1000, fix.correctOption)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown question, got %v", err)
	}
}

func TestResubmissionRejectedWithoutRescoring(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	if _, err := scoring.SubmitAnswer(ctx, playerID, fix.questionID, fix.correctOption); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	_, err := scoring.SubmitAnswer(ctx, playerID, fix.questionID, fix.correctOption)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict on resubmission, got %v", err)
	}

	player, _ := store.PlayerByID(ctx, playerID)
	if player.Score != 500 {
		t.Fatalf("resubmission must not re-score, got %d", player.Score)
	}
}

func TestSubmitUsesDeterministicClock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)

	at := time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)
	keys := memory.NewAnswerKeyCache(store, time.Minute)
	scoring := app.NewScoringServiceWithClock(store, store, store, keys, func() time.Time { return at })

	answer, err := scoring.SubmitAnswer(ctx, playerID, fix.questionID, fix.correctOption)
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if !answer.AnsweredAt.Equal(at) {
		t.Fatalf("expected answered_at %v, got %v", at, answer.AnsweredAt)
	}
}

func TestConcurrentCorrectSubmissionsLoseNoIncrements(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	_, playerID := setupSessionWithPlayer(t, store, fix)
	_, _, scoring := newServices(store)

	// N distinct questions, each worth P, answered concurrently by the
	// same player. Final score must be exactly N*P.
	const n, p = 16, 250
	optionIDs := make([]struct{ question, option int64 }, 0, n)
	for i := 0; i < n; i++ {
		question := domain.Question{
			QuizID:       fix.quizID,
			QuestionType: domain.QuestionMultipleChoice,
			Points:       intp(p),
			QuestionText: "concurrent question",
		}
		if err := store.CreateQuestion(ctx, &question); err != nil {
			t.Fatalf("create question: %v", err)
		}
		option := domain.AnswerOption{QuestionID: question.ID, OptionText: "yes", IsCorrect: true}
		if err := store.CreateAnswerOption(ctx, &option); err != nil {
			t.Fatalf("create option: %v", err)
		}
		optionIDs = append(optionIDs, struct{ question, option int64 }{question.ID, option.ID})
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, ids := range optionIDs {
		wg.Add(1)
		go func(questionID, optionID int64) {
			defer wg.Done()
			if _, err := scoring.SubmitAnswer(ctx, playerID, questionID, optionID); err != nil {
				errs <- err
			}
		}(ids.question, ids.option)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit: %v", err)
	}

	player, err := store.PlayerByID(ctx, playerID)
	if err != nil {
		t.Fatalf("reload player: %v", err)
	}
	if player.Score != n*p {
		t.Fatalf("expected score %d, got %d", n*p, player.Score)
	}
}
