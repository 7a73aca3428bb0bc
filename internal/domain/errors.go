package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrCategoryNotFound is returned when no category matches a name or id.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrProfileNotFound is returned when a user has no profile row.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrQuestionNotActive is returned when a command targets a question that is not on screen.
	ErrQuestionNotActive = errors.New("question not active")
	// ErrAnswerNotFound indicates a submitted answer ID does not belong to the question.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrAttemptClosed is returned for commands sent to a finished or abandoned attempt.
	ErrAttemptClosed = errors.New("quiz attempt closed")
	// ErrSessionNotCreated means the backend did not return a session identifier.
	ErrSessionNotCreated = errors.New("quiz session not created")
	// ErrInvalidQuiz is returned for malformed custom quiz requests.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrInvalidProfile is returned for profile edits that fail validation.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrUnauthorized is returned when an operation needs a signed-in user.
	ErrUnauthorized = errors.New("unauthorized")
)
