// Package apperr is the error taxonomy shared by every pipeline operation.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindConfig
	KindResolution
	KindCollaborator
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindConfig:
		return "ConfigError"
	case KindResolution:
		return "ResolutionFailure"
	case KindCollaborator:
		return "CollaboratorFailure"
	case KindParse:
		return "ParseFailure"
	default:
		return "Unknown"
	}
}

type Error struct {
	Kind      Kind
	Op        string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Kind.String()
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrVideoTooShort       = &Error{Kind: KindConfig, Message: "video is shorter than the minimum highlight duration"}
	ErrNoUsableHighlights  = &Error{Kind: KindResolution, Message: "no usable highlights"}
	ErrUnresolved          = &Error{Kind: KindResolution, Message: "quoted text not found in transcript"}
	ErrInvalidWindowConfig = &Error{Kind: KindConfig, Message: "overlap must be smaller than the window size"}
)

func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Config(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Parse(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// Collaborator wraps an external call failure. Timeouts are marked
// retryable so the caller may re-issue the same stage.
func Collaborator(op string, err error) *Error {
	return &Error{
		Kind:      KindCollaborator,
		Op:        op,
		Err:       err,
		Retryable: errors.Is(err, context.DeadlineExceeded),
	}
}

// Wrap tags err with kind unless it already carries one.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if kind == KindCollaborator {
		return Collaborator(op, err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsRetryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// Result is the binary success flag plus message returned by every surface.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Retry   bool   `json:"retryable,omitempty"`
}

func Envelope(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	k := KindOf(err)
	r := Result{Error: err.Error(), Retry: IsRetryable(err)}
	if k != KindUnknown {
		r.Kind = k.String()
	}
	return r
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindResolution:
		return http.StatusUnprocessableEntity
	case KindCollaborator, KindParse:
		if IsRetryable(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
