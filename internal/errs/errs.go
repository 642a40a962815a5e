// Package errs defines Lix's error taxonomy: PlannerError and
// ExecutorError kinds wrapping the user-facing LixError, per the wire
// contract and retry policy.
package errs

import (
	"fmt"
	"strings"
)

// LixError is the user-facing error shape returned across the CLI and the
// data-plane entry point. Wire form: {code: "LIX_ERROR_<UPPER>", title,
// description}.
type LixError struct {
	Code        string
	Title       string
	Description string
}

const defaultCode = "LIX_ERROR_UNKNOWN"

// NewLixError builds a LixError, defaulting Code to LIX_ERROR_UNKNOWN and
// upper-casing and prefixing any non-empty code the caller supplies.
func NewLixError(code, title, description string) *LixError {
	if code == "" {
		code = defaultCode
	} else if !strings.HasPrefix(code, "LIX_ERROR_") {
		code = "LIX_ERROR_" + strings.ToUpper(code)
	}
	return &LixError{Code: code, Title: title, Description: description}
}

// Wrap produces a LixError from an arbitrary Go error with a given title.
func Wrap(title string, err error) *LixError {
	if err == nil {
		return nil
	}
	return NewLixError("", title, err.Error())
}

func (e *LixError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Title, e.Description)
}

// PlannerErrorKind enumerates the failure classes a planner stage may
// raise before an ExecutionPlan is ever handed to the executor.
type PlannerErrorKind int

const (
	PlannerParse PlannerErrorKind = iota
	PlannerBindOnce
	PlannerPreprocess
	PlannerInvariant
)

func (k PlannerErrorKind) String() string {
	switch k {
	case PlannerParse:
		return "Parse"
	case PlannerBindOnce:
		return "BindOnce"
	case PlannerPreprocess:
		return "Preprocess"
	case PlannerInvariant:
		return "Invariant"
	default:
		return "Unknown"
	}
}

// PlannerError carries either an inner LixError or a plain reason string,
// tagged by Kind.
type PlannerError struct {
	Kind   PlannerErrorKind
	Inner  *LixError
	Reason string
}

func (e *PlannerError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("planner %s: %s", e.Kind, e.Inner.Error())
	}
	return fmt.Sprintf("planner %s: %s", e.Kind, e.Reason)
}

// AsLixError converts a PlannerError into the wire-level LixError.
func (e *PlannerError) AsLixError() *LixError {
	if e.Inner != nil {
		return e.Inner
	}
	return NewLixError(e.Kind.String(), "planner "+e.Kind.String(), e.Reason)
}

func NewPlannerError(kind PlannerErrorKind, reason string) *PlannerError {
	return &PlannerError{Kind: kind, Reason: reason}
}

func WrapPlannerError(kind PlannerErrorKind, err error) *PlannerError {
	return &PlannerError{Kind: kind, Inner: Wrap(kind.String(), err)}
}

// ExecutorErrorKind enumerates the two shapes an executor-stage failure
// can take: a failed statement execution, or a post-commit effect that
// exhausted its retries.
type ExecutorErrorKind int

const (
	ExecutorExecute ExecutorErrorKind = iota
	ExecutorPostCommit
)

// ExecutorError carries either an Execute(LixError) payload or a
// PostCommit{effect_id, attempts, error} payload, tagged by Kind.
type ExecutorError struct {
	Kind       ExecutorErrorKind
	Inner      *LixError // set when Kind == ExecutorExecute
	EffectID   string    // set when Kind == ExecutorPostCommit
	Attempts   int       // set when Kind == ExecutorPostCommit
	InnerError error     // set when Kind == ExecutorPostCommit
}

func (e *ExecutorError) Error() string {
	switch e.Kind {
	case ExecutorExecute:
		return fmt.Sprintf("execute: %s", e.Inner.Error())
	case ExecutorPostCommit:
		return fmt.Sprintf("post-commit effect %s failed after %d attempts: %v", e.EffectID, e.Attempts, e.InnerError)
	default:
		return "executor error"
	}
}

func NewExecuteError(inner *LixError) *ExecutorError {
	return &ExecutorError{Kind: ExecutorExecute, Inner: inner}
}

func NewPostCommitError(effectID string, attempts int, err error) *ExecutorError {
	return &ExecutorError{Kind: ExecutorPostCommit, EffectID: effectID, Attempts: attempts, InnerError: err}
}

// IsMissingRelationError classifies backend errors signalling that a
// relation the rewrite rules expected does not exist yet. Matches:
// "no such table: x", `ERROR: relation "x" does not exist`,
// "undefined table: relation x"; must not match unrelated errors such as
// "CHECK constraint failed".
func IsMissingRelationError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"):
		return true
	case strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"):
		return true
	case strings.Contains(msg, "undefined table"):
		return true
	default:
		return false
	}
}
