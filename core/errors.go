package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// AuthenticationError indicates that the external auth service rejected the
// provided credentials. The service's message is kept as-is for display.
type AuthenticationError struct {
	Message string
}

func NewAuthenticationError(msg string) error {
	return &AuthenticationError{Message: msg}
}

func (err AuthenticationError) Error() string { return err.Message }

func IsAuthenticationError(err error) bool {
	_, ok := errors.Cause(err).(*AuthenticationError)
	return ok
}

// SessionError indicates an infrastructure failure during sign-out or token
// refresh; callers may prompt for a re-login.
type SessionError struct {
	Op  string
	Err error
}

func NewSessionError(op string, err error) error {
	return &SessionError{Op: op, Err: err}
}

func (err SessionError) Error() string { return err.Op + ": " + err.Err.Error() }
func (err SessionError) Unwrap() error { return err.Err }

func IsSessionError(err error) bool {
	_, ok := errors.Cause(err).(*SessionError)
	return ok
}

// ProfileFetchError indicates a failed profile lookup. It is absorbed by the
// session controller (fallback to cache or nil) and never reaches the UI.
type ProfileFetchError struct {
	UserID string
	Err    error
}

func NewProfileFetchError(userID string, err error) error {
	return &ProfileFetchError{UserID: userID, Err: err}
}

func (err ProfileFetchError) Error() string { return "fetching profile " + err.UserID + ": " + err.Err.Error() }
func (err ProfileFetchError) Unwrap() error { return err.Err }

// SubmissionError indicates that persisting a quiz attempt failed; the attempt
// stays open and the captured answers remain available for a retry.
type SubmissionError struct {
	Err error
}

func NewSubmissionError(err error) error {
	return &SubmissionError{Err: err}
}

func (err SubmissionError) Error() string { return "persisting submission: " + err.Err.Error() }
func (err SubmissionError) Unwrap() error { return err.Err }

func IsSubmissionError(err error) bool {
	_, ok := errors.Cause(err).(*SubmissionError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
