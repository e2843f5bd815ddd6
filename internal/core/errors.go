package core

import (
	"errors"

	"github.com/paperdesk/paperchat-server/internal/service/chat"
	"github.com/paperdesk/paperchat-server/internal/store"
)

// Error codes carried on protocol error events.
const (
	ErrCodeAccessDenied = "access_denied"
	ErrCodeNotFound     = "not_found"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeInternal     = "internal_error"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// errorFor maps a service failure to a protocol error. The error is terminal
// for the single operation only; it never tears down the connection.
func errorFor(err error) *CoreError {
	switch {
	case errors.Is(err, chat.ErrAccessDenied), errors.Is(err, chat.ErrNotParticipant):
		return &CoreError{Code: ErrCodeAccessDenied, Message: err.Error()}
	case errors.Is(err, store.ErrNotFound):
		return &CoreError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, chat.ErrEmptyBody):
		return &CoreError{Code: ErrCodeBadRequest, Message: err.Error()}
	default:
		return &CoreError{Code: ErrCodeInternal, Message: "operation failed, please retry"}
	}
}
