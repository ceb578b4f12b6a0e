// Package apperr defines the error taxonomy that every handler surfaces up
// to the tool registry, which formats it into the response envelope's
// {error:true, kind, message, details?} payload.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "ValidationError"
	KindUnknownTool Kind = "UnknownTool"
	KindUnknownAction Kind = "UnknownAction"
	KindNotFound    Kind = "NotFound"
	KindInvariant   Kind = "InvariantViolation"
	KindConflict    Kind = "ConflictingState"
	KindStorage     Kind = "StorageError"
)

// Error is the concrete error type carried through handler return values.
// It is never retried automatically by the engine; callers branch on Kind.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func new_(kind Kind, msg string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

func Validation(msg string, details map[string]any) *Error { return new_(KindValidation, msg, details) }
func UnknownTool(name string) *Error {
	return new_(KindUnknownTool, fmt.Sprintf("unknown tool %q", name), nil)
}
func UnknownAction(action string, available []string, suggestions []Suggestion) *Error {
	return &Error{
		Kind:    KindUnknownAction,
		Message: fmt.Sprintf("unknown action %q", action),
		Details: map[string]any{
			"availableActions": available,
			"suggestions":      suggestions,
		},
	}
}
func NotFound(entity, id string) *Error {
	return new_(KindNotFound, fmt.Sprintf("%s %q not found", entity, id), nil)
}
func Invariant(msg string, details map[string]any) *Error { return new_(KindInvariant, msg, details) }
func Conflict(msg string, details map[string]any) *Error  { return new_(KindConflict, msg, details) }
func Storage(err error) *Error {
	e := new_(KindStorage, "storage failure", nil)
	e.cause = err
	return e
}

// Suggestion is one fuzzy-match candidate offered by the action router.
type Suggestion struct {
	Value      string  `json:"value"`
	Similarity float64 `json:"similarity"`
}

// As is a small convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
