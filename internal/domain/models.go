package domain

import "time"

// Session statuses. A session is created in StatusWaiting and ends in
// StatusFinished, which is terminal.
const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// ValidStatus reports whether s is one of the declared session statuses.
func ValidStatus(s string) bool {
	return s == StatusWaiting || s == StatusInProgress || s == StatusFinished
}

// Question types supported by the authoring flow.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
)

// User is a registered account (host, teacher, or player).
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Quiz is a collection of questions owned by a creator.
type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`
	CreatorID   int64      `json:"creator_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Question belongs to a quiz. Points may be absent, in which case a correct
// answer awards nothing.
type Question struct {
	ID               int64  `json:"id"`
	QuizID           int64  `json:"quiz_id"`
	QuestionType     string `json:"question_type"`
	TimeLimitSeconds *int   `json:"time_limit_seconds,omitempty"`
	Points           *int   `json:"points,omitempty"`
	SortOrder        *int   `json:"sort_order,omitempty"`
	QuestionText     string `json:"question_text"`
}

// PointsValue returns the configured points, treating an unset value as zero.
func (q Question) PointsValue() int {
	if q.Points == nil {
		return 0
	}
	return *q.Points
}

// AnswerOption is one selectable choice for a question.
type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
	SortOrder  *int   `json:"sort_order,omitempty"`
}

// Session is one live instance of a quiz being hosted and played.
type Session struct {
	ID         int64      `json:"id"`
	QuizID     int64      `json:"quiz_id"`
	HostID     int64      `json:"host_id"`
	JoinCode   string     `json:"join_code"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SessionPlayer is a participant attached to one session. UserID is nil for
// guests, who are identified only by nickname within the session.
type SessionPlayer struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Nickname  string    `json:"nickname"`
	JoinedAt  time.Time `json:"joined_at"`
	Score     int       `json:"score"`
}

// SessionAnswer records one scored submission. IsCorrect and PointsAwarded
// are computed by the scoring engine, never accepted from clients.
type SessionAnswer struct {
	ID              int64     `json:"id"`
	SessionPlayerID int64     `json:"session_player_id"`
	QuestionID      int64     `json:"question_id"`
	AnswerOptionID  int64     `json:"answer_option_id"`
	AnsweredAt      time.Time `json:"answered_at"`
	IsCorrect       bool      `json:"is_correct"`
	PointsAwarded   int       `json:"points_awarded"`
}

// AnswerKey is the scoring view of a question: which of its options are
// correct, how many points it is worth, and which quiz it belongs to.
type AnswerKey struct {
	QuestionID int64
	QuizID     int64
	Points     int
	// Correct maps option ID to its is_correct flag. An option ID absent
	// from the map does not belong to the question.
	Correct map[int64]bool
}
