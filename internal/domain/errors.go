package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID or join code matches nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPlayerNotFound is returned when a session player ID matches nothing.
	ErrPlayerNotFound = errors.New("session player not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates a user ID matches nothing.
	ErrUserNotFound = errors.New("user not found")
)

// ConflictError reports a uniqueness violation (duplicate nickname within a
// session, duplicate join code, resubmitted answer). The reason carries the
// store's constraint message and is safe to surface to clients.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// InvalidInputError reports input that passed validation but was rejected by
// business rules, such as an answer option that does not belong to the stated
// question.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return e.Reason }

// IsNotFound reports whether err is one of the entity-not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsInvalidInput reports whether err is a business-rule rejection.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}
