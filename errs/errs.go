// Package errs defines the error taxonomy shared by value, operator, scene
// and path resolution: a handful of typed, wrapped errors distinguishing
// programming-bug-grade synchronous errors from runtime failures that are
// contained inside a single event.
package errs

import "fmt"

// SchemaMismatch is raised when denotable construction, subscribe, emit or
// mutation rejects an incompatible shape.
type SchemaMismatch struct {
	Reason string
}

func (e *SchemaMismatch) Error() string { return fmt.Sprintf("schema mismatch: %s", e.Reason) }

func NewSchemaMismatch(format string, args ...any) error {
	return &SchemaMismatch{Reason: fmt.Sprintf(format, args...)}
}

// IndexError is raised when a list or unnamed record is accessed with an
// out-of-range integer index.
type IndexError struct {
	Reason string
}

func (e *IndexError) Error() string { return fmt.Sprintf("index error: %s", e.Reason) }

func NewIndexError(format string, args ...any) error {
	return &IndexError{Reason: fmt.Sprintf(format, args...)}
}

// KeyError is raised when a named record is accessed with an unknown key,
// or a ground Value is indexed at all.
type KeyError struct {
	Reason string
}

func (e *KeyError) Error() string { return fmt.Sprintf("key error: %s", e.Reason) }

func NewKeyError(format string, args ...any) error {
	return &KeyError{Reason: fmt.Sprintf(format, args...)}
}

// PathError is raised at Path construction or resolution for a malformed or
// unresolvable Path.
type PathError struct {
	Reason string
}

func (e *PathError) Error() string { return fmt.Sprintf("path error: %s", e.Reason) }

func NewPathError(format string, args ...any) error {
	return &PathError{Reason: fmt.Sprintf(format, args...)}
}

// CyclicEmission is raised when an operator enters emit while already in an
// active status (Emitting/Failing/Completing).
type CyclicEmission struct {
	Operator string
}

func (e *CyclicEmission) Error() string {
	return fmt.Sprintf("cyclic emission detected on operator %s", e.Operator)
}

func NewCyclicEmission(operator string) error {
	return &CyclicEmission{Operator: operator}
}

// NotFound is raised when path resolution walks off the end of the scene
// tree or addresses an interface operator that does not exist.
type NotFound struct {
	Reason string
}

func (e *NotFound) Error() string { return fmt.Sprintf("not found: %s", e.Reason) }

func NewNotFound(format string, args ...any) error {
	return &NotFound{Reason: fmt.Sprintf(format, args...)}
}

// UserCallbackException wraps a panic or error raised from a registry
// callback (on_next/on_fail/on_complete/on_subscribe).
type UserCallbackException struct {
	Operator string
	Cause    error
}

func (e *UserCallbackException) Error() string {
	return fmt.Sprintf("user callback failed on operator %s: %v", e.Operator, e.Cause)
}

func (e *UserCallbackException) Unwrap() error { return e.Cause }

func NewUserCallbackException(operator string, cause error) error {
	return &UserCallbackException{Operator: operator, Cause: cause}
}

// StateTransitionDenied is raised when transition_into's target is not
// reachable from the node's current state.
type StateTransitionDenied struct {
	From string
	To   string
}

func (e *StateTransitionDenied) Error() string {
	return fmt.Sprintf("state transition denied: %q -> %q is not an allowed transition", e.From, e.To)
}

func NewStateTransitionDenied(from, to string) error {
	return &StateTransitionDenied{From: from, To: to}
}
