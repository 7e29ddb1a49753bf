package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedDivert is returned when a divert names no knot, stitch or reserved target.
	ErrUnresolvedDivert = errors.New("unresolved divert target")

	// ErrDuplicateBrackets is returned when a choice carries more than one [bracket] pair.
	ErrDuplicateBrackets = errors.New("choice has more than one bracket pair")

	// ErrIncludeNotFound is returned when an INCLUDE directive names a missing file.
	ErrIncludeNotFound = errors.New("include file not found")

	// ErrIncludeCycle is returned when a file includes itself, directly or not.
	ErrIncludeCycle = errors.New("include cycle")

	// ErrInvalidCondition is wrapped by every ConditionError.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrDeadEnd signals that traversal stopped on a node that is neither End nor AutoEnd.
	// It always indicates a graph construction bug.
	ErrDeadEnd = errors.New("dead end reached outside a terminal node")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoryNotFound is returned when a library has no story with the requested ID.
	ErrStoryNotFound = errors.New("story not found")

	// ErrSnapshotMismatch is returned when a snapshot was taken against a different
	// version of the story than the one it is restored into.
	ErrSnapshotMismatch = errors.New("snapshot does not match story")
)

// ConditionError reports a rejected condition construction.
type ConditionError struct {
	Kind   ConditionKind
	Value  any
	Reason string
}

func newConditionError(kind ConditionKind, value any, reason string) *ConditionError {
	return &ConditionError{Kind: kind, Value: value, Reason: reason}
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("invalid %s condition (value %v): %s", e.Kind, e.Value, e.Reason)
}

func (e *ConditionError) Unwrap() error {
	return ErrInvalidCondition
}
