package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"quiz-session-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// SQLSTATE codes classified into the domain error taxonomy.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Store is the bun-backed implementation of the store interfaces in
// internal/app. Constraint violations raised by Postgres are classified here
// so the services never see driver-specific errors.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Username  string    `bun:"username"`
	Email     string    `bun:"email"`
	Role      string    `bun:"role"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:now()"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID          int64      `bun:"id,pk,autoincrement"`
	Title       string     `bun:"title"`
	Description string     `bun:"description,nullzero"`
	Visibility  string     `bun:"visibility,nullzero"`
	CreatorID   int64      `bun:"creator_id"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:now()"`
	UpdatedAt   *time.Time `bun:"updated_at"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions"`

	ID               int64  `bun:"id,pk,autoincrement"`
	QuizID           int64  `bun:"quiz_id"`
	QuestionType     string `bun:"question_type"`
	TimeLimitSeconds *int   `bun:"time_limit_seconds"`
	Points           *int   `bun:"points"`
	SortOrder        *int   `bun:"sort_order"`
	QuestionText     string `bun:"question_text"`
}

type answerOptionRow struct {
	bun.BaseModel `bun:"table:question_answer_options"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id"`
	OptionText string `bun:"option_text"`
	IsCorrect  bool   `bun:"is_correct"`
	SortOrder  *int   `bun:"sort_order"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	ID         int64      `bun:"id,pk,autoincrement"`
	QuizID     int64      `bun:"quiz_id"`
	HostID     int64      `bun:"host_id"`
	JoinCode   string     `bun:"join_code"`
	Status     string     `bun:"status"`
	StartedAt  *time.Time `bun:"started_at"`
	FinishedAt *time.Time `bun:"finished_at"`
}

type sessionPlayerRow struct {
	bun.BaseModel `bun:"table:quiz_session_players"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SessionID int64     `bun:"session_id"`
	UserID    *int64    `bun:"user_id"`
	Nickname  string    `bun:"nickname"`
	JoinedAt  time.Time `bun:"joined_at,nullzero,default:now()"`
	Score     int       `bun:"score"`
}

type sessionAnswerRow struct {
	bun.BaseModel `bun:"table:quiz_session_answers"`

	ID              int64     `bun:"id,pk,autoincrement"`
	SessionPlayerID int64     `bun:"session_player_id"`
	QuestionID      int64     `bun:"question_id"`
	AnswerOptionID  int64     `bun:"answer_option_id"`
	AnsweredAt      time.Time `bun:"answered_at"`
	IsCorrect       bool      `bun:"is_correct"`
	PointsAwarded   int       `bun:"points_awarded"`
}

// classify turns Postgres constraint violations into the domain taxonomy,
// carrying the server's message verbatim. Anything else passes through as a
// store failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case pgUniqueViolation:
			return &domain.ConflictError{Reason: pgErr.Field('M')}
		case pgForeignKeyViolation, pgCheckViolation:
			return &domain.InvalidInputError{Reason: pgErr.Field('M')}
		}
	}
	return err
}

// ----- sessions -----

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	row := &sessionRow{
		QuizID:   session.QuizID,
		HostID:   session.HostID,
		JoinCode: session.JoinCode,
		Status:   session.Status,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return classify(err)
	}
	session.ID = row.ID
	return nil
}

func (s *Store) SessionByID(ctx context.Context, id int64) (domain.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return sessionFromRow(row), nil
}

func (s *Store) SessionByJoinCode(ctx context.Context, code string) (domain.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("join_code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return sessionFromRow(row), nil
}

// UpdateSessionStatus stamps started_at on first entry into in_progress and
// finished_at on entry into finished, in the same statement as the status
// write. finished_at is never cleared. The terminal guard sits in the WHERE
// clause, so a session that has finished cannot leave that state even under
// concurrent updates.
func (s *Store) UpdateSessionStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("status = ?", status).
		Set("started_at = CASE WHEN ? = 'in_progress' AND started_at IS NULL THEN now() ELSE started_at END", status).
		Set("finished_at = CASE WHEN ? = 'finished' AND finished_at IS NULL THEN now() ELSE finished_at END", status).
		Where("id = ?", id).
		Where("(status <> ? OR ? = ?)", domain.StatusFinished, status, domain.StatusFinished).
		Exec(ctx)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.SessionByID(ctx, id); err != nil {
			return err
		}
		return &domain.InvalidInputError{Reason: "session is finished and cannot change status"}
	}
	return nil
}

func sessionFromRow(row *sessionRow) domain.Session {
	return domain.Session{
		ID:         row.ID,
		QuizID:     row.QuizID,
		HostID:     row.HostID,
		JoinCode:   row.JoinCode,
		Status:     row.Status,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
}

// ----- players -----

func (s *Store) AddPlayer(ctx context.Context, player *domain.SessionPlayer) error {
	row := &sessionPlayerRow{
		SessionID: player.SessionID,
		UserID:    player.UserID,
		Nickname:  player.Nickname,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id, joined_at, score").Exec(ctx); err != nil {
		return classify(err)
	}
	player.ID = row.ID
	player.JoinedAt = row.JoinedAt
	player.Score = row.Score
	return nil
}

func (s *Store) PlayerByID(ctx context.Context, id int64) (domain.SessionPlayer, error) {
	row := new(sessionPlayerRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionPlayer{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.SessionPlayer{}, err
	}
	return playerFromRow(row), nil
}

func (s *Store) ListPlayers(ctx context.Context, sessionID int64) ([]domain.SessionPlayer, error) {
	var rows []sessionPlayerRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("joined_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	players := make([]domain.SessionPlayer, 0, len(rows))
	for i := range rows {
		players = append(players, playerFromRow(&rows[i]))
	}
	return players, nil
}

func playerFromRow(row *sessionPlayerRow) domain.SessionPlayer {
	return domain.SessionPlayer{
		ID:        row.ID,
		SessionID: row.SessionID,
		UserID:    row.UserID,
		Nickname:  row.Nickname,
		JoinedAt:  row.JoinedAt,
		Score:     row.Score,
	}
}

// ----- answers -----

// RecordAnswer commits the answer row and the score increment in one
// transaction. The increment is a SQL delta, so concurrent submissions for
// the same player cannot lose updates.
func (s *Store) RecordAnswer(ctx context.Context, answer *domain.SessionAnswer, scoreDelta int) error {
	row := &sessionAnswerRow{
		SessionPlayerID: answer.SessionPlayerID,
		QuestionID:      answer.QuestionID,
		AnswerOptionID:  answer.AnswerOptionID,
		AnsweredAt:      answer.AnsweredAt,
		IsCorrect:       answer.IsCorrect,
		PointsAwarded:   answer.PointsAwarded,
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
			return err
		}
		if scoreDelta > 0 {
			res, err := tx.NewUpdate().
				Model((*sessionPlayerRow)(nil)).
				Set("score = score + ?", scoreDelta).
				Where("id = ?", answer.SessionPlayerID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrPlayerNotFound
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	answer.ID = row.ID
	return nil
}

// ----- catalog -----

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	row := &userRow{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id, created_at").Exec(ctx); err != nil {
		return classify(err)
	}
	user.ID = row.ID
	user.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, domain.User{
			ID:        row.ID,
			Username:  row.Username,
			Email:     row.Email,
			Role:      row.Role,
			CreatedAt: row.CreatedAt,
		})
	}
	return users, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		Role:      row.Role,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := &quizRow{
		Title:       quiz.Title,
		Description: quiz.Description,
		Visibility:  quiz.Visibility,
		CreatorID:   quiz.CreatorID,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id, created_at").Exec(ctx); err != nil {
		return classify(err)
	}
	quiz.ID = row.ID
	quiz.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, domain.Quiz{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Visibility:  row.Visibility,
			CreatorID:   row.CreatorID,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return quizzes, nil
}

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	row := &questionRow{
		QuizID:           question.QuizID,
		QuestionType:     question.QuestionType,
		TimeLimitSeconds: question.TimeLimitSeconds,
		Points:           question.Points,
		SortOrder:        question.SortOrder,
		QuestionText:     question.QuestionText,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return classify(err)
	}
	question.ID = row.ID
	return nil
}

func (s *Store) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	row := new(questionRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, err
	}
	return questionFromRow(row), nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		OrderExpr("sort_order ASC NULLS LAST, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(rows))
	for i := range rows {
		questions = append(questions, questionFromRow(&rows[i]))
	}
	return questions, nil
}

func questionFromRow(row *questionRow) domain.Question {
	return domain.Question{
		ID:               row.ID,
		QuizID:           row.QuizID,
		QuestionType:     row.QuestionType,
		TimeLimitSeconds: row.TimeLimitSeconds,
		Points:           row.Points,
		SortOrder:        row.SortOrder,
		QuestionText:     row.QuestionText,
	}
}

func (s *Store) CreateAnswerOption(ctx context.Context, option *domain.AnswerOption) error {
	row := &answerOptionRow{
		QuestionID: option.QuestionID,
		OptionText: option.OptionText,
		IsCorrect:  option.IsCorrect,
		SortOrder:  option.SortOrder,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return classify(err)
	}
	option.ID = row.ID
	return nil
}

func (s *Store) ListOptionsByQuestion(ctx context.Context, questionID int64) ([]domain.AnswerOption, error) {
	var rows []answerOptionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("question_id = ?", questionID).
		OrderExpr("sort_order ASC NULLS LAST, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]domain.AnswerOption, 0, len(rows))
	for _, row := range rows {
		options = append(options, domain.AnswerOption{
			ID:         row.ID,
			QuestionID: row.QuestionID,
			OptionText: row.OptionText,
			IsCorrect:  row.IsCorrect,
			SortOrder:  row.SortOrder,
		})
	}
	return options, nil
}
