package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"nodeflow/internal/autosave"
	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"
	"nodeflow/internal/graph"
	"nodeflow/internal/history"
	"nodeflow/internal/images"

	"go.uber.org/zap"
)

// ErrSessionClosed is returned by mutations on a session that was closed.
var ErrSessionClosed = errors.New("workspace: session closed")

// Session is the open project: its board, undo history and autosave
// pipeline.
type Session struct {
	project    domain.Project
	store      *graph.Store
	history    *history.Engine
	pipeline   *autosave.Pipeline
	images     images.Store
	newImageID func() string
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
	// touched holds image ids attached or released during the session. At
	// close, those no longer referenced by the board are deleted.
	touched map[string]struct{}
}

// Project returns the project this session edits.
func (s *Session) Project() domain.Project {
	return s.project
}

// Graph returns a snapshot of the board.
func (s *Session) Graph() domain.Graph {
	return s.store.Snapshot()
}

// Nodes returns a snapshot of the board's nodes.
func (s *Session) Nodes() []domain.Node {
	return s.store.Nodes()
}

// Edges returns a snapshot of the board's edges.
func (s *Session) Edges() []domain.Edge {
	return s.store.Edges()
}

// Node returns one node by id.
func (s *Session) Node(id string) (domain.Node, bool) {
	return s.store.Node(id)
}

// AddNode adds a card at the default position.
func (s *Session) AddNode() (domain.Node, error) {
	return s.AddNodeAt(domain.DefaultPosition)
}

// AddNodeAt adds a card at pos.
func (s *Session) AddNodeAt(pos domain.Position) (domain.Node, error) {
	var node domain.Node
	err := s.mutate(func(tx *graph.Tx) error {
		n, err := tx.AddNode(pos)
		node = n
		return err
	})
	return node, err
}

// UpdateNode applies patch to the node.
func (s *Session) UpdateNode(id string, patch graph.NodePatch) error {
	return s.mutate(func(tx *graph.Tx) error {
		return tx.UpdateNode(id, patch)
	})
}

func (s *Session) SetTitle(id, title string) error {
	return s.UpdateNode(id, graph.NodePatch{Title: &title})
}

func (s *Session) SetStatus(id string, status domain.Status) error {
	return s.UpdateNode(id, graph.NodePatch{Status: &status})
}

func (s *Session) SetNotes(id, notes string) error {
	return s.UpdateNode(id, graph.NodePatch{Notes: &notes})
}

func (s *Session) SetColor(id, color string) error {
	return s.UpdateNode(id, graph.NodePatch{Color: &color})
}

// MoveNode sets the node's position.
func (s *Session) MoveNode(id string, pos domain.Position) error {
	return s.mutate(func(tx *graph.Tx) error {
		return tx.MoveNode(id, pos)
	})
}

// Connect links two nodes. Connecting an existing pair of handles returns
// the existing edge.
func (s *Session) Connect(c graph.Connection) (domain.Edge, error) {
	var edge domain.Edge
	err := s.mutate(func(tx *graph.Tx) error {
		e, err := tx.Connect(c)
		edge = e
		return err
	})
	return edge, err
}

// Reconnect replaces an edge with one using new endpoints.
func (s *Session) Reconnect(edgeID string, c graph.Connection) (domain.Edge, error) {
	var edge domain.Edge
	err := s.mutate(func(tx *graph.Tx) error {
		e, err := tx.Reconnect(edgeID, c)
		edge = e
		return err
	})
	return edge, err
}

// DeleteNode removes the node and its incident edges.
func (s *Session) DeleteNode(id string) error {
	return s.mutate(func(tx *graph.Tx) error {
		return tx.DeleteNode(id)
	})
}

func (s *Session) DeleteEdge(id string) error {
	return s.mutate(func(tx *graph.Tx) error {
		return tx.DeleteEdge(id)
	})
}

// AttachImage stores data as a new blob and appends its id to the node.
func (s *Session) AttachImage(ctx context.Context, nodeID string, data []byte) (string, error) {
	if _, ok := s.store.Node(nodeID); !ok {
		return "", appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("node %s not found", nodeID), nil)
	}
	id := s.newImageID()
	if err := s.images.Put(ctx, id, data); err != nil {
		return "", err
	}
	err := s.mutate(func(tx *graph.Tx) error {
		return tx.AttachImages(nodeID, id)
	})
	if err != nil {
		_ = s.images.Delete(ctx, id)
		return "", err
	}
	s.mu.Lock()
	s.touched[id] = struct{}{}
	s.mu.Unlock()
	return id, nil
}

// AttachImageFile reads path and attaches its contents to the node.
func (s *Session) AttachImageFile(ctx context.Context, nodeID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	return s.AttachImage(ctx, nodeID, data)
}

// RemoveImage detaches the image from the node. The blob is kept until the
// session closes so that undo can bring it back.
func (s *Session) RemoveImage(nodeID, imageID string) error {
	return s.mutate(func(tx *graph.Tx) error {
		return tx.RemoveImage(nodeID, imageID)
	})
}

// Image returns a stored blob.
func (s *Session) Image(ctx context.Context, id string) ([]byte, bool, error) {
	return s.images.Get(ctx, id)
}

// PushHistory records the current board as an undo point if candidate
// differs from the last recorded state.
func (s *Session) PushHistory(candidate domain.Graph) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Push(s.store.Snapshot(), candidate)
}

// Undo restores the previous board and saves it immediately. It reports
// false when there is nothing to undo.
func (s *Session) Undo(ctx context.Context) bool {
	return s.travel(ctx, s.history.Undo, "undo")
}

// Redo re-applies the most recently undone board.
func (s *Session) Redo(ctx context.Context) bool {
	return s.travel(ctx, s.history.Redo, "redo")
}

func (s *Session) CanUndo() bool {
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	return s.history.CanRedo()
}

// HistoryDepth returns the sizes of the undo and redo stacks.
func (s *Session) HistoryDepth() (past, future int) {
	return s.history.Depth()
}

// SaveNow writes the board immediately.
func (s *Session) SaveNow(ctx context.Context) error {
	return s.pipeline.SaveNow(ctx)
}

// SaveState returns the save indicator.
func (s *Session) SaveState() autosave.State {
	return s.pipeline.State()
}

// SaveLabel returns Saved, Unsaved or Saving.
func (s *Session) SaveLabel() string {
	return s.pipeline.Label()
}

// Close flushes unsaved work and deletes image blobs the board no longer
// references.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.pipeline.Close(ctx)
	if err != nil {
		s.logger.Warn("teardown flush failed", zap.Error(err))
		// The persisted board is stale, so every touched image may still be
		// referenced by it.
		return err
	}
	s.collectImages(ctx)
	return nil
}

// abandon stops the session without writing. Used when the project is being
// deleted.
func (s *Session) abandon() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pipeline.Abandon()
}

// imageIDs returns every image id the session knows about.
func (s *Session) imageIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.touched))
	for id := range s.touched {
		ids = append(ids, id)
	}
	for id := range s.store.Snapshot().ImageIDs() {
		if _, ok := s.touched[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Session) mutate(fn func(*graph.Tx) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	change, err := s.store.Update(fn)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.history.Push(change.Before, change.After)
	for _, id := range change.Released {
		s.touched[id] = struct{}{}
	}
	s.mu.Unlock()

	s.pipeline.MarkDirty()
	return nil
}

func (s *Session) travel(ctx context.Context, step func(domain.Graph) (domain.Graph, bool), op string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	target, ok := step(s.store.Snapshot())
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.store.Restore(target)
	s.mu.Unlock()

	if err := s.pipeline.SaveNow(ctx); err != nil {
		s.logger.Warn(op+" save failed", zap.Error(err))
	}
	return true
}

func (s *Session) collectImages(ctx context.Context) {
	s.mu.Lock()
	referenced := s.store.Snapshot().ImageIDs()
	var orphans []string
	for id := range s.touched {
		if _, ok := referenced[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	s.touched = make(map[string]struct{})
	s.mu.Unlock()

	for _, id := range orphans {
		if err := s.images.Delete(ctx, id); err != nil {
			s.logger.Warn("release image failed", zap.String("image", id), zap.Error(err))
		}
	}
	if len(orphans) > 0 {
		s.logger.Debug("released images", zap.Int("count", len(orphans)))
	}
}
