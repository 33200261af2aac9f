// Package apperr holds the error taxonomy shared by every storefront manager.
//
// Errors carry a Kind that callers match with errors.Is against the package
// sentinels:
//
//	if errors.Is(err, apperr.ErrInvalidState) { ... }
//
// Validation and invalid-state errors are produced before any request is
// issued. Auth, not-found and network errors come from the remote services
// and are classified from the HTTP status by FromStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "auth"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindNetwork      Kind = "network"
)

var (
	ErrValidation   = errors.New("validation")
	ErrAuth         = errors.New("auth")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrNetwork      = errors.New("network")
)

var sentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindAuth:         ErrAuth,
	KindNotFound:     ErrNotFound,
	KindInvalidState: ErrInvalidState,
	KindNetwork:      ErrNetwork,
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Status is the HTTP status of the remote response, zero for client-side errors.
	Status int
	Fields []FieldError
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func Validation(op, msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg, Fields: fields}
}

func Auth(op, msg string) *Error {
	return &Error{Kind: KindAuth, Op: op, Message: msg}
}

func NotFound(op, resource string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: resource + " not found"}
}

func InvalidState(op, msg string) *Error {
	return &Error{Kind: KindInvalidState, Op: op, Message: msg}
}

func Network(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Cause: cause}
}

// FromStatus classifies a non-2xx response. msg is the server supplied
// message, if any.
func FromStatus(op string, status int, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	e := &Error{Op: op, Message: msg, Status: status}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = KindAuth
	case http.StatusNotFound:
		e.Kind = KindNotFound
	case http.StatusConflict:
		e.Kind = KindInvalidState
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	default:
		e.Kind = KindNetwork
	}
	return e
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage renders err for display next to the control that triggered it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong. Please try again."
	}
	switch e.Kind {
	case KindValidation:
		if len(e.Fields) == 0 {
			return e.Message
		}
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
		return e.Message + " (" + strings.Join(parts, "; ") + ")"
	case KindAuth:
		if e.Status == http.StatusForbidden {
			return "You are not allowed to do that."
		}
		if e.Message != "" && e.Status == 0 {
			return e.Message
		}
		return "Please sign in again: " + e.Message
	case KindNetwork:
		return "Could not reach the store. Check your connection and try again."
	default:
		return e.Message
	}
}
