package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// fixture seeds a host, a quiz with one 500-point question (one correct and
// one wrong option), and a second quiz with its own question for
// cross-quiz checks.
type fixture struct {
	store *memory.Store

	hostID           int64
	quizID           int64
	questionID       int64
	correctOption    int64
	wrongOption      int64
	otherQuizID      int64
	otherQuestion    int64
	otherQuestionOpt int64
}

func intp(v int) *int { return &v }

func newFixture(t *testing.T, store *memory.Store) fixture {
	t.Helper()
	ctx := context.Background()

	host := domain.User{Username: "host", Email: "host@example.com", Role: "teacher"}
	if err := store.CreateUser(ctx, &host); err != nil {
		t.Fatalf("create host: %v", err)
	}

	quiz := domain.Quiz{Title: "Capitals", CreatorID: host.ID}
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question := domain.Question{
		QuizID:       quiz.ID,
		QuestionType: domain.QuestionMultipleChoice,
		Points:       intp(500),
		QuestionText: "Capital of Sweden?",
	}
	if err := store.CreateQuestion(ctx, &question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	correct := domain.AnswerOption{QuestionID: question.ID, OptionText: "Stockholm", IsCorrect: true}
	if err := store.CreateAnswerOption(ctx, &correct); err != nil {
		t.Fatalf("create option: %v", err)
	}
	wrong := domain.AnswerOption{QuestionID: question.ID, OptionText: "Oslo", IsCorrect: false}
	if err := store.CreateAnswerOption(ctx, &wrong); err != nil {
		t.Fatalf("create option: %v", err)
	}

	otherQuiz := domain.Quiz{Title: "Rivers", CreatorID: host.ID}
	if err := store.CreateQuiz(ctx, &otherQuiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	otherQuestion := domain.Question{
		QuizID:       otherQuiz.ID,
		QuestionType: domain.QuestionTrueFalse,
		Points:       intp(100),
		QuestionText: "The Nile is in Europe?",
	}
	if err := store.CreateQuestion(ctx, &otherQuestion); err != nil {
		t.Fatalf("create question: %v", err)
	}
	otherOpt := domain.AnswerOption{QuestionID: otherQuestion.ID, OptionText: "False", IsCorrect: true}
	if err := store.CreateAnswerOption(ctx, &otherOpt); err != nil {
		t.Fatalf("create option: %v", err)
	}

	return fixture{
		store:            store,
		hostID:           host.ID,
		quizID:           quiz.ID,
		questionID:       question.ID,
		correctOption:    correct.ID,
		wrongOption:      wrong.ID,
		otherQuizID:      otherQuiz.ID,
		otherQuestion:    otherQuestion.ID,
		otherQuestionOpt: otherOpt.ID,
	}
}

func newServices(store *memory.Store) (*app.SessionService, *app.EnrollmentService, *app.ScoringService) {
	keys := memory.NewAnswerKeyCache(store, 5*time.Minute)
	return app.NewSessionService(store),
		app.NewEnrollmentService(store),
		app.NewScoringService(store, store, store, keys)
}
