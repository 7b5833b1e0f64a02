// Package refdaerr defines the closed set of error kinds the core raises,
// per spec.md §7. Every kind is a distinct sentinel wrapped with context so
// callers can classify with errors.Is while still getting a useful message.
package refdaerr

import "errors"

// Sentinel kinds. Construct a concrete error with the matching New*
// function to attach context; classify a returned error with errors.Is
// against these sentinels.
var (
	ErrDerefNotFound      = errors.New("dereference: not found")
	ErrDerefWrongType     = errors.New("dereference: wrong object type")
	ErrTypeMatchNegative  = errors.New("type match: negative")
	ErrProdFailed         = errors.New("value production failed")
	ErrEvalNonSingle      = errors.New("evaluation: stack not single-valued")
	ErrEvalFailed         = errors.New("evaluation failed")
	ErrExecBadType        = errors.New("execution: target has invalid type")
	ErrExecDerefFailed    = errors.New("execution: dereference failed")
	ErrExecProdFailed     = errors.New("execution: value production failed")
	ErrTransportEOF       = errors.New("transport: end of stream")
)

// wrapped pairs a sentinel with a descriptive message, preserving
// errors.Is/errors.Unwrap semantics.
type wrapped struct {
	sentinel error
	msg      string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.sentinel }

func wrap(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}

// DerefNotFound builds an ErrDerefNotFound with a path description.
func DerefNotFound(path string) error {
	return wrap(ErrDerefNotFound, "dereference: not found: "+path)
}

// DerefWrongType builds an ErrDerefWrongType with context.
func DerefWrongType(path string, want, got string) error {
	return wrap(ErrDerefWrongType, "dereference: "+path+": expected "+want+", registered as "+got)
}

// TypeMatchNegative builds an ErrTypeMatchNegative with context.
func TypeMatchNegative(detail string) error {
	return wrap(ErrTypeMatchNegative, "type match: negative: "+detail)
}

// ProdFailed builds an ErrProdFailed with context.
func ProdFailed(detail string) error {
	return wrap(ErrProdFailed, "value production failed: "+detail)
}

// EvalNonSingle builds an ErrEvalNonSingle with context.
func EvalNonSingle(stackSize int) error {
	return wrap(ErrEvalNonSingle, "evaluation: stack holds a non-single result")
}

// EvalFailed builds an ErrEvalFailed with context.
func EvalFailed(detail string) error {
	return wrap(ErrEvalFailed, "evaluation failed: "+detail)
}

// ExecBadType builds an ErrExecBadType with context.
func ExecBadType(detail string) error {
	return wrap(ErrExecBadType, "execution: invalid target: "+detail)
}

// ExecDerefFailed wraps a dereference failure encountered during expansion.
func ExecDerefFailed(cause error) error {
	return wrap(ErrExecDerefFailed, "execution: dereference failed: "+cause.Error())
}

// ExecProdFailed wraps a production failure encountered during expansion.
func ExecProdFailed(cause error) error {
	return wrap(ErrExecProdFailed, "execution: value production failed: "+cause.Error())
}

// TransportEOF builds an ErrTransportEOF.
func TransportEOF() error {
	return wrap(ErrTransportEOF, "transport: end of stream")
}
