package app

import (
	"context"
	"fmt"

	"quiz-session-service/internal/domain"
)

// CatalogService is the pass-through CRUD layer for authoring entities.
// There is no business logic here beyond light input checks; constraints
// live in the store.
type CatalogService struct {
	catalog CatalogStore
}

func NewCatalogService(catalog CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) CreateUser(ctx context.Context, username, email, role string) (domain.User, error) {
	if username == "" || email == "" {
		return domain.User{}, &domain.InvalidInputError{Reason: "username and email are required"}
	}
	user := domain.User{Username: username, Email: email, Role: role}
	if err := s.catalog.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *CatalogService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.catalog.ListUsers(ctx)
}

func (s *CatalogService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return s.catalog.UserByID(ctx, id)
}

func (s *CatalogService) DeleteUser(ctx context.Context, id int64) error {
	return s.catalog.DeleteUser(ctx, id)
}

func (s *CatalogService) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.Title == "" {
		return domain.Quiz{}, &domain.InvalidInputError{Reason: "quiz title is required"}
	}
	if err := s.catalog.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *CatalogService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.catalog.ListQuizzes(ctx)
}

func (s *CatalogService) CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	if question.QuestionText == "" {
		return domain.Question{}, &domain.InvalidInputError{Reason: "question text is required"}
	}
	if question.QuestionType != domain.QuestionMultipleChoice && question.QuestionType != domain.QuestionTrueFalse {
		return domain.Question{}, &domain.InvalidInputError{Reason: fmt.Sprintf("unknown question type %q", question.QuestionType)}
	}
	if err := s.catalog.CreateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *CatalogService) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	return s.catalog.QuestionByID(ctx, id)
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id int64) error {
	return s.catalog.DeleteQuestion(ctx, id)
}

func (s *CatalogService) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	return s.catalog.ListQuestionsByQuiz(ctx, quizID)
}

func (s *CatalogService) CreateAnswerOption(ctx context.Context, option domain.AnswerOption) (domain.AnswerOption, error) {
	if option.OptionText == "" {
		return domain.AnswerOption{}, &domain.InvalidInputError{Reason: "option text is required"}
	}
	if err := s.catalog.CreateAnswerOption(ctx, &option); err != nil {
		return domain.AnswerOption{}, err
	}
	return option, nil
}

func (s *CatalogService) ListAnswerOptions(ctx context.Context, questionID int64) ([]domain.AnswerOption, error) {
	return s.catalog.ListOptionsByQuestion(ctx, questionID)
}
