package reorder

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("duplicate id")
	ErrReservedID    = errors.New("reserved id")
	ErrNotConserving = errors.New("restore would not conserve items")
	ErrStaleFailure  = errors.New("failure superseded by newer change")
)

// InvariantError reports a tree state that only a bug in the engine can
// produce. It is raised with panic, never returned.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("reorder invariant violated in %s: %s", e.Op, e.Detail)
}

func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
