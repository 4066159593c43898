package core

import "errors"

// Error codes for domain errors surfaced to clients.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeVoiceDisabled   = "voice_disabled"
	ErrCodeMessageTooLong  = "message_too_long"
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeMessageNotFound = "message_not_found"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrBadRequest      = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
