// Package qerrors defines the error taxonomy used at every public
// boundary of qgdb (spec §7). Every kind carries an optional cause chain
// (via github.com/pkg/errors, for stack-trace-preserving Wrap/Cause) and
// an optional source location for parser diagnostics.
package qerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the closed set of boundary error kinds from spec §7.
type Kind int

const (
	// SyntaxError: malformed query/update text; Pos is populated.
	SyntaxError Kind = iota
	// InvalidArgument: pre-call validation failure.
	InvalidArgument
	// StorageError: I/O or backend failure. See StorageSubkind.
	StorageError
	// EvaluationError: runtime failure surfaced by an evaluator.
	EvaluationError
	// LimitExceededKind: an execution limit was exceeded. See LimitKind.
	LimitExceededKind
	// CancelledKind: cooperative cancellation tripped.
	CancelledKind
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case InvalidArgument:
		return "InvalidArgument"
	case StorageError:
		return "StorageError"
	case EvaluationError:
		return "EvaluationError"
	case LimitExceededKind:
		return "LimitExceeded"
	case CancelledKind:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// StorageSubkind further classifies a StorageError.
type StorageSubkind int

const (
	StorageIoOther StorageSubkind = iota
	StorageNotFound
	// StorageCorruption is non-recoverable: the store must not be used
	// further without external repair.
	StorageCorruption
)

// LimitKind identifies which execution limit (spec §5) was exceeded.
type LimitKind int

const (
	LimitTimeout LimitKind = iota
	LimitMaxRows
	LimitMaxGroups
	LimitMaxPathDepth
	LimitMaxMemory
)

func (l LimitKind) String() string {
	switch l {
	case LimitTimeout:
		return "timeout"
	case LimitMaxRows:
		return "max_result_rows"
	case LimitMaxGroups:
		return "max_groups"
	case LimitMaxPathDepth:
		return "max_property_path_depth"
	case LimitMaxMemory:
		return "max_memory_bytes"
	default:
		return "unknown"
	}
}

// Pos is a byte/line/column span in parsed source text.
type Pos struct {
	Offset, Line, Column int
	// Expected and Found optionally describe a parser mismatch, and
	// Suggestion optionally proposes a fix, per spec §4.E.
	Expected, Found, Suggestion string
}

// Error is the single error type returned across qgdb's public API.
type Error struct {
	Kind          Kind
	StorageKind   StorageSubkind
	Limit         LimitKind
	Pos           *Pos
	Message       string
	Cause         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Kind == LimitExceededKind {
		msg = fmt.Sprintf("%s(%s): %s", e.Kind, e.Limit, e.Message)
	}
	if e.Pos != nil {
		msg = fmt.Sprintf("%s (line %d, column %d)", msg, e.Pos.Line, e.Pos.Column)
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a bare Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind, preserving cause via
// github.com/pkg/errors so a stack trace survives for StorageError and
// EvaluationError causes originating below the API boundary.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

// Syntax builds a SyntaxError with a source position.
func Syntax(pos Pos, format string, args ...interface{}) *Error {
	e := New(SyntaxError, format, args...)
	e.Pos = &pos
	return e
}

// Storage builds a StorageError of the given subkind.
func Storage(sub StorageSubkind, cause error, format string, args ...interface{}) *Error {
	e := Wrap(StorageError, cause, format, args...)
	e.StorageKind = sub
	return e
}

// LimitExceeded builds a LimitExceeded error for the given limit kind.
func LimitExceeded(kind LimitKind, format string, args ...interface{}) *Error {
	e := New(LimitExceededKind, format, args...)
	e.Limit = kind
	return e
}

// Cancelled builds the single Cancelled error value shape.
func Cancelled() *Error {
	return New(CancelledKind, "evaluation cancelled")
}

// Is reports whether err is a *Error of the given Kind, unwrapping causes.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ee, ok := err.(*Error); ok {
			e = ee
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
