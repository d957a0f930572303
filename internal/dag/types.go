package dag

import (
	"sync"
	"sync/atomic"

	"github.com/vk/pipewright/internal/config"
)

// Graph is a collection of job nodes and their dependency edges.
type Graph struct {
	// Nodes stores all nodes in the graph, keyed by their unique ID.
	Nodes map[string]*Node
}

// Node is a single vertex in the execution graph, representing one job of
// one workflow.
type Node struct {
	// ID is the unique identifier, "job.<workflow>.<job>".
	ID string
	// Workflow is the enclosing workflow's configuration.
	Workflow *config.Workflow
	// Job is this node's job configuration.
	Job *config.Job

	// Deps holds the nodes this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Error stores any error that occurred during the node's execution.
	Error error

	// depCount is an atomic counter of unmet dependencies.
	depCount atomic.Int32
	// state is the node's current execution state, managed atomically.
	state atomic.Int32
	// skipOnce ensures a node is marked skipped and accounted exactly once.
	skipOnce sync.Once
}

// State represents the execution state of a node in the graph.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies.
	Pending State = iota
	// Running indicates the node is currently executing on a worker.
	Running
	// Done indicates the node completed successfully.
	Done
	// Failed indicates the node's execution failed.
	Failed
	// Skipped indicates the node never ran, because an upstream dependency
	// failed, the run was cancelled, or its condition evaluated false.
	Skipped
)

// String returns the conclusion keyword used in logs and reports.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "success"
	case Failed:
		return "failure"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SetInitialCounters snapshots the dependency count before execution starts.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// DecrementDepCount atomically decrements the dependency counter and returns
// the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// GetState atomically retrieves the node's execution state.
func (n *Node) GetState() State {
	return State(n.state.Load())
}

// SkipOnce runs f exactly once, for marking the node skipped.
func (n *Node) SkipOnce(f func()) {
	n.skipOnce.Do(f)
}
