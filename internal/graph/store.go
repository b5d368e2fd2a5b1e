// Package graph holds the current board of the open project and enforces the
// graph invariants at mutation time.
package graph

import (
	"sync"

	"nodeflow/internal/domain"

	"github.com/google/uuid"
)

// IDGenerator produces fresh node and edge ids.
type IDGenerator func() string

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the uuid-based id source. Useful for tests.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Change describes a committed transaction.
type Change struct {
	// Before is the state the transaction started from.
	Before domain.Graph
	// After is the committed state.
	After domain.Graph
	// Released lists image ids detached from the graph by the transaction.
	Released []string
}

// Store is the single source of truth for the open board.
type Store struct {
	mu    sync.RWMutex
	graph domain.Graph
	newID IDGenerator
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the current graph, typically with a freshly decoded project.
func (s *Store) Load(g domain.Graph) {
	s.Restore(g)
}

// Restore overwrites the current graph with a copy of g.
func (s *Store) Restore(g domain.Graph) {
	clone := g.Clone()
	s.mu.Lock()
	s.graph = clone
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() domain.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone()
}

// Nodes returns a copy of the current nodes.
func (s *Store) Nodes() []domain.Node {
	return s.Snapshot().Nodes
}

// Edges returns a copy of the current edges.
func (s *Store) Edges() []domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Edge(nil), s.graph.Edges...)
}

// Node looks up a node by id.
func (s *Store) Node(id string) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.graph.NodeIndex(id); i >= 0 {
		return s.graph.Nodes[i].Clone(), true
	}
	return domain.Node{}, false
}

// Len returns the node and edge counts.
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graph.Nodes), len(s.graph.Edges)
}

// Update runs fn against a working copy of the graph. If fn fails the store
// is left untouched and the error is returned; otherwise the working copy is
// committed and the change is reported.
func (s *Store) Update(fn func(*Tx) error) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{graph: s.graph.Clone(), newID: s.newID}
	if err := fn(tx); err != nil {
		return Change{}, err
	}

	before := s.graph
	s.graph = tx.graph
	return Change{
		Before:   before.Clone(),
		After:    s.graph.Clone(),
		Released: tx.released,
	}, nil
}
