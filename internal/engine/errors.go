package engine

import "fmt"

// ForbiddenError indicates the caller lacks the required role or ownership.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	return e.Reason
}

// StateError indicates an operation that is not legal for the entity's
// current status.
type StateError struct {
	Entity string
	Status string
	Op     string
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s cannot %s while %s", e.Entity, e.Op, e.Status)
}

// ArgumentError indicates a referenced entity exists but fails a domain
// constraint (e.g. assignee role is not worker).
type ArgumentError struct {
	Reason string
}

func (e ArgumentError) Error() string {
	return e.Reason
}

// ConflictError indicates a uniqueness invariant violation.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}
