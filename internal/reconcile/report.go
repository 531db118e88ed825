package reconcile

import (
	"errors"
	"fmt"

	"github.com/busway/busway/internal/topology"
)

// NodeState is the lifecycle state of one topology node during a run.
type NodeState string

const (
	// StatePending means the node has not started.
	StatePending NodeState = "pending"
	// StateRunning means the node is being diffed or converged.
	StateRunning NodeState = "running"
	// StateConverged means live state matches desired state.
	StateConverged NodeState = "converged"
	// StateFailed means every allowed attempt ended in an error.
	StateFailed NodeState = "failed"
	// StateBlocked means a dependency did not converge, so the node was
	// never attempted.
	StateBlocked NodeState = "blocked"
	// StateCancelled means the run was cancelled before the node started.
	StateCancelled NodeState = "cancelled"
)

// Terminal reports whether the state is an end state.
func (s NodeState) Terminal() bool {
	switch s {
	case StateConverged, StateFailed, StateBlocked, StateCancelled:
		return true
	}
	return false
}

// Action is the write a node needed, or would need, to converge.
type Action string

const (
	// ActionNone means live state already matched.
	ActionNone Action = "none"
	// ActionCreate means the resource was absent.
	ActionCreate Action = "create"
	// ActionUpdate means the resource existed but drifted.
	ActionUpdate Action = "update"
	// ActionDelete is only produced by destroy and prune.
	ActionDelete Action = "delete"
)

// NodeResult is the terminal record of one node.
type NodeResult struct {
	// Node is the graph identifier, kind/id.
	Node string
	Kind topology.Kind
	// EntryKey correlates the node back to the declarative entry, empty
	// for scope-level nodes.
	EntryKey string
	// Name is the full resource name once known.
	Name     string
	State    NodeState
	Action   Action
	Attempts int
	Err      error
}

// Report collects every node's terminal record in topological order.
type Report struct {
	Results []NodeResult
}

// Counts tallies results by terminal state.
func (r *Report) Counts() map[NodeState]int {
	counts := make(map[NodeState]int)
	for _, result := range r.Results {
		counts[result.State]++
	}
	return counts
}

// Failed returns the nodes that were attempted and did not converge.
// Blocked and cancelled nodes are consequences, not root causes, and are
// excluded.
func (r *Report) Failed() []NodeResult {
	var failed []NodeResult
	for _, result := range r.Results {
		if result.State == StateFailed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Changed reports whether any node needed, or would need, a write.
func (r *Report) Changed() bool {
	for _, result := range r.Results {
		if result.Action != ActionNone {
			return true
		}
	}
	return false
}

// Err joins the failed nodes' errors, or returns nil when none failed.
func (r *Report) Err() error {
	var errs []error
	for _, result := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", result.Node, result.Err))
	}
	return errors.Join(errs...)
}
