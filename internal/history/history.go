// Package history keeps bounded undo/redo stacks of board snapshots.
//
// The engine never touches live state. Callers hand it the state before a
// change together with the candidate state, and it decides from the
// candidate's signature whether the change is worth recording.
package history

import (
	"sync"

	"nodeflow/internal/domain"
	"nodeflow/internal/graph"
)

// DefaultLimit bounds each stack unless configured otherwise.
const DefaultLimit = 60

// Engine holds the past and future stacks for one open project.
type Engine struct {
	mu            sync.Mutex
	past          []domain.Graph
	future        []domain.Graph
	lastSignature string
	limit         int
}

// New returns an empty engine. A non-positive limit selects DefaultLimit.
func New(limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{limit: limit}
}

// Push records current as an undo point when candidate differs from the last
// recorded signature. Recording clears the redo stack. It reports whether an
// entry was added.
func (e *Engine) Push(current, candidate domain.Graph) bool {
	sig := graph.GraphSignature(candidate)

	e.mu.Lock()
	defer e.mu.Unlock()
	if sig == e.lastSignature {
		return false
	}
	e.past = e.bounded(append(e.past, current.Clone()))
	e.future = nil
	e.lastSignature = sig
	return true
}

// Undo pops the most recent past state. current is saved for Redo. The
// returned state must be restored by the caller.
func (e *Engine) Undo(current domain.Graph) (domain.Graph, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.past) == 0 {
		return domain.Graph{}, false
	}
	target := e.past[len(e.past)-1]
	e.past = e.past[:len(e.past)-1]
	e.future = e.bounded(append(e.future, current.Clone()))
	e.lastSignature = graph.GraphSignature(target)
	return target.Clone(), true
}

// Redo pops the most recent future state. current is saved for Undo.
func (e *Engine) Redo(current domain.Graph) (domain.Graph, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.future) == 0 {
		return domain.Graph{}, false
	}
	target := e.future[len(e.future)-1]
	e.future = e.future[:len(e.future)-1]
	e.past = e.bounded(append(e.past, current.Clone()))
	e.lastSignature = graph.GraphSignature(target)
	return target.Clone(), true
}

// CanUndo reports whether Undo would do anything.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.past) > 0
}

// CanRedo reports whether Redo would do anything.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.future) > 0
}

// Depth returns the sizes of the past and future stacks.
func (e *Engine) Depth() (past, future int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.past), len(e.future)
}

// Seed records g as the already-known board, so a later Push of an
// identical graph is ignored. Both stacks are left untouched.
func (e *Engine) Seed(g domain.Graph) {
	sig := graph.GraphSignature(g)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSignature = sig
}

// Reset drops both stacks and forgets the last signature.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.past = nil
	e.future = nil
	e.lastSignature = ""
}

// Limit returns the per-stack bound.
func (e *Engine) Limit() int {
	return e.limit
}

// bounded evicts the oldest entries so that at most limit remain.
func (e *Engine) bounded(stack []domain.Graph) []domain.Graph {
	if over := len(stack) - e.limit; over > 0 {
		trimmed := make([]domain.Graph, e.limit)
		copy(trimmed, stack[over:])
		return trimmed
	}
	return stack
}
