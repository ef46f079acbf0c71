package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// Store is an in-memory implementation of every store interface in
// internal/app plus the answer-key loader. It enforces the same constraints
// the Postgres schema does (uniqueness, referential integrity) so service
// behavior is identical in tests and redis/postgres-less runs. All score
// increments happen under the store lock, by delta.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	users    map[int64]domain.User
	quizzes  map[int64]domain.Quiz
	question map[int64]domain.Question
	options  map[int64]domain.AnswerOption
	sessions map[int64]domain.Session
	players  map[int64]domain.SessionPlayer
	answers  map[int64]domain.SessionAnswer

	nextID int64
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(clock func() time.Time) *Store {
	return &Store{
		clock:    clock,
		users:    make(map[int64]domain.User),
		quizzes:  make(map[int64]domain.Quiz),
		question: make(map[int64]domain.Question),
		options:  make(map[int64]domain.AnswerOption),
		sessions: make(map[int64]domain.Session),
		players:  make(map[int64]domain.SessionPlayer),
		answers:  make(map[int64]domain.SessionAnswer),
	}
}

func (s *Store) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// ----- sessions -----

func (s *Store) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[session.QuizID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("quiz %d does not exist", session.QuizID)}
	}
	if _, ok := s.users[session.HostID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("host %d does not exist", session.HostID)}
	}
	for _, existing := range s.sessions {
		if existing.JoinCode == session.JoinCode {
			return &domain.ConflictError{Reason: fmt.Sprintf("join code %q is already in use", session.JoinCode)}
		}
	}

	session.ID = s.nextIDLocked()
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) SessionByID(_ context.Context, id int64) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) SessionByJoinCode(_ context.Context, code string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.JoinCode == code {
			return session, nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (s *Store) UpdateSessionStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status == domain.StatusFinished && status != domain.StatusFinished {
		return &domain.InvalidInputError{Reason: "session is finished and cannot change status"}
	}

	now := s.clock().UTC()
	session.Status = status
	if status == domain.StatusInProgress && session.StartedAt == nil {
		session.StartedAt = &now
	}
	if status == domain.StatusFinished && session.FinishedAt == nil {
		session.FinishedAt = &now
	}
	s.sessions[id] = session
	return nil
}

// ----- players -----

func (s *Store) AddPlayer(_ context.Context, player *domain.SessionPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[player.SessionID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("session %d does not exist", player.SessionID)}
	}
	if player.UserID != nil {
		if _, ok := s.users[*player.UserID]; !ok {
			return &domain.InvalidInputError{Reason: fmt.Sprintf("user %d does not exist", *player.UserID)}
		}
	}
	for _, existing := range s.players {
		if existing.SessionID == player.SessionID && existing.Nickname == player.Nickname {
			return &domain.ConflictError{Reason: fmt.Sprintf("nickname %q is already taken in this session", player.Nickname)}
		}
	}

	player.ID = s.nextIDLocked()
	player.JoinedAt = s.clock().UTC()
	player.Score = 0
	s.players[player.ID] = *player
	return nil
}

func (s *Store) PlayerByID(_ context.Context, id int64) (domain.SessionPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return domain.SessionPlayer{}, domain.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Store) ListPlayers(_ context.Context, sessionID int64) ([]domain.SessionPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]domain.SessionPlayer, 0)
	for _, player := range s.players {
		if player.SessionID == sessionID {
			players = append(players, player)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

// ----- answers -----

func (s *Store) RecordAnswer(_ context.Context, answer *domain.SessionAnswer, scoreDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[answer.SessionPlayerID]
	if !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("session player %d does not exist", answer.SessionPlayerID)}
	}
	if _, ok := s.question[answer.QuestionID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("question %d does not exist", answer.QuestionID)}
	}
	if _, ok := s.options[answer.AnswerOptionID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("answer option %d does not exist", answer.AnswerOptionID)}
	}
	for _, existing := range s.answers {
		if existing.SessionPlayerID == answer.SessionPlayerID && existing.QuestionID == answer.QuestionID {
			return &domain.ConflictError{Reason: "answer already submitted for this question"}
		}
	}

	answer.ID = s.nextIDLocked()
	s.answers[answer.ID] = *answer

	if scoreDelta > 0 {
		player.Score += scoreDelta
		s.players[player.ID] = player
	}
	return nil
}

// ----- answer keys -----

// LoadAnswerKey builds the scoring view of a question from authoritative
// state. It backs the answer-key caches the same way the Postgres loader does.
func (s *Store) LoadAnswerKey(_ context.Context, questionID int64) (domain.AnswerKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	question, ok := s.question[questionID]
	if !ok {
		return domain.AnswerKey{}, domain.ErrQuestionNotFound
	}
	key := domain.AnswerKey{
		QuestionID: questionID,
		QuizID:     question.QuizID,
		Points:     question.PointsValue(),
		Correct:    make(map[int64]bool),
	}
	for _, option := range s.options {
		if option.QuestionID == questionID {
			key.Correct[option.ID] = option.IsCorrect
		}
	}
	return key, nil
}

// ----- catalog -----

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return &domain.ConflictError{Reason: fmt.Sprintf("username %q is already taken", user.Username)}
		}
		if existing.Email == user.Email {
			return &domain.ConflictError{Reason: fmt.Sprintf("email %q is already registered", user.Email)}
		}
	}
	user.ID = s.nextIDLocked()
	user.CreatedAt = s.clock().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) UserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[quiz.CreatorID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("creator %d does not exist", quiz.CreatorID)}
	}
	quiz.ID = s.nextIDLocked()
	quiz.CreatedAt = s.clock().UTC()
	s.quizzes[quiz.ID] = *quiz
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (s *Store) CreateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[question.QuizID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("quiz %d does not exist", question.QuizID)}
	}
	question.ID = s.nextIDLocked()
	s.question[question.ID] = *question
	return nil
}

func (s *Store) QuestionByID(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.question[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.question[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.question, id)
	return nil
}

func (s *Store) ListQuestionsByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	questions := make([]domain.Question, 0)
	for _, question := range s.question {
		if question.QuizID == quizID {
			questions = append(questions, question)
		}
	}
	// sort_order first (nulls last), then id.
	sort.Slice(questions, func(i, j int) bool {
		qi, qj := questions[i], questions[j]
		switch {
		case qi.SortOrder == nil && qj.SortOrder != nil:
			return false
		case qi.SortOrder != nil && qj.SortOrder == nil:
			return true
		case qi.SortOrder != nil && qj.SortOrder != nil && *qi.SortOrder != *qj.SortOrder:
			return *qi.SortOrder < *qj.SortOrder
		}
		return qi.ID < qj.ID
	})
	return questions, nil
}

func (s *Store) CreateAnswerOption(_ context.Context, option *domain.AnswerOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.question[option.QuestionID]; !ok {
		return &domain.InvalidInputError{Reason: fmt.Sprintf("question %d does not exist", option.QuestionID)}
	}
	option.ID = s.nextIDLocked()
	s.options[option.ID] = *option
	return nil
}

func (s *Store) ListOptionsByQuestion(_ context.Context, questionID int64) ([]domain.AnswerOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	options := make([]domain.AnswerOption, 0)
	for _, option := range s.options {
		if option.QuestionID == questionID {
			options = append(options, option)
		}
	}
	sort.Slice(options, func(i, j int) bool {
		oi, oj := options[i], options[j]
		switch {
		case oi.SortOrder == nil && oj.SortOrder != nil:
			return false
		case oi.SortOrder != nil && oj.SortOrder == nil:
			return true
		case oi.SortOrder != nil && oj.SortOrder != nil && *oi.SortOrder != *oj.SortOrder:
			return *oi.SortOrder < *oj.SortOrder
		}
		return oi.ID < oj.ID
	})
	return options, nil
}
