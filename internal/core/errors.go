package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUsernameTaken    = "username_taken"
	ErrCodeUserNotFound     = "user_not_found"
	ErrCodeMalformedCommand = "malformed_command"
	ErrCodeRoomEmpty        = "room_empty"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
)

var (
	ErrUsernameTaken    = errors.New("username already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrMalformedCommand = errors.New("malformed command")
	ErrRoomEmpty        = errors.New("room has no members")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

var codeSentinels = map[string]error{
	ErrCodeUsernameTaken:    ErrUsernameTaken,
	ErrCodeUserNotFound:     ErrUserNotFound,
	ErrCodeMalformedCommand: ErrMalformedCommand,
	ErrCodeRoomEmpty:        ErrRoomEmpty,
}

// Unwrap maps the code to its sentinel so errors.Is works on reported errors.
func (e *CoreError) Unwrap() error {
	return codeSentinels[e.Code]
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// RateLimitedError is reported to a session whose lines exceed the configured rate.
func RateLimitedError() *CoreError {
	return coreError(ErrCodeRateLimited, "rate limit exceeded, slow down")
}
