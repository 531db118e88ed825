package graph

import (
	"errors"
	"fmt"
)

// CycleError reports the vertices participating in a dependency cycle.
type CycleError[T comparable] struct {
	Cycle []T
}

// Error implements the error interface.
func (e *CycleError[T]) Error() string {
	return fmt.Sprintf("graph contains a cycle: %v", e.Cycle)
}

// AsCycleError extracts the typed cycle error from err's chain, or
// returns nil when there is none.
func AsCycleError[T comparable](err error) *CycleError[T] {
	var cycleErr *CycleError[T]
	if errors.As(err, &cycleErr) {
		return cycleErr
	}
	return nil
}
