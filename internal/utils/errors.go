package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so the HTTP layer can map them to a status.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindValidation
	KindRemote
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error carries a kind, an HTTP status code and a user-facing message.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code int, message string) error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// ConfigError reports missing or invalid configuration.
func ConfigError(format string, args ...any) error {
	return New(KindConfig, http.StatusInternalServerError, fmt.Sprintf(format, args...))
}

// ValidationError reports client input that fails a precondition.
func ValidationError(message string) error {
	return New(KindValidation, http.StatusBadRequest, message)
}

// RemoteServiceError wraps a failure of the spreadsheet backend. The message
// of err is passed through unchanged.
func RemoteServiceError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRemote {
		return err
	}
	return &Error{Kind: KindRemote, Code: http.StatusInternalServerError, Err: err}
}

func Unauthorized(message string) error {
	return New(KindUnauthorized, http.StatusUnauthorized, message)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsConfig(err error) bool     { return KindOf(err) == KindConfig }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsRemote(err error) bool     { return KindOf(err) == KindRemote }

// StatusCode maps err to the HTTP status the API should answer with.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
