package graph

import (
	"nodeflow/internal/domain"
)

// NodePatch carries the fields to change on a node. Nil fields are left alone.
type NodePatch struct {
	Title  *string
	Status *domain.Status
	Notes  *string
	Color  *string
}

// Connection describes the endpoints of a link gesture.
type Connection struct {
	Source       string
	Target       string
	SourceHandle domain.Handle
	TargetHandle domain.Handle
}

// Tx is a working copy of the graph handed to Store.Update.
type Tx struct {
	graph    domain.Graph
	newID    IDGenerator
	released []string
}

// Graph exposes the working copy. Callers must not retain it past the
// transaction.
func (tx *Tx) Graph() domain.Graph {
	return tx.graph
}

// AddNode creates a card with the default title and status at pos. New cards
// go to the front of the node list.
func (tx *Tx) AddNode(pos domain.Position) (domain.Node, error) {
	id := tx.freshID()
	if !pos.IsFinite() {
		return domain.Node{}, invalidPositionError(id)
	}
	n := domain.Node{
		ID:       id,
		Position: pos,
		Title:    domain.DefaultTitle,
		Status:   domain.DefaultStatus,
		ImageIDs: []string{},
	}
	tx.graph.Nodes = append([]domain.Node{n}, tx.graph.Nodes...)
	return n.Clone(), nil
}

// UpdateNode applies patch to the node with the given id.
func (tx *Tx) UpdateNode(id string, patch NodePatch) error {
	i := tx.graph.NodeIndex(id)
	if i < 0 {
		return nodeNotFoundError(id)
	}
	if patch.Status != nil {
		if err := patch.Status.Validate(); err != nil {
			return err
		}
	}
	n := &tx.graph.Nodes[i]
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Status != nil {
		n.Status = *patch.Status
	}
	if patch.Notes != nil {
		n.Notes = *patch.Notes
	}
	if patch.Color != nil {
		n.Color = *patch.Color
	}
	return nil
}

// MoveNode sets the node position.
func (tx *Tx) MoveNode(id string, pos domain.Position) error {
	i := tx.graph.NodeIndex(id)
	if i < 0 {
		return nodeNotFoundError(id)
	}
	if !pos.IsFinite() {
		return invalidPositionError(id)
	}
	tx.graph.Nodes[i].Position = pos
	return nil
}

// Connect links two existing, distinct nodes. Connecting the same endpoints
// and handles twice returns the existing edge unchanged.
func (tx *Tx) Connect(c Connection) (domain.Edge, error) {
	if err := tx.validateConnection(c); err != nil {
		return domain.Edge{}, err
	}
	for _, e := range tx.graph.Edges {
		if e.Source == c.Source && e.Target == c.Target &&
			e.SourceHandle == c.SourceHandle && e.TargetHandle == c.TargetHandle {
			return e, nil
		}
	}
	e := domain.Edge{
		ID:           tx.freshID(),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
	tx.graph.Edges = append(tx.graph.Edges, e)
	return e, nil
}

// Reconnect replaces an existing edge with a new one between the given
// endpoints. The replacement gets a fresh id.
func (tx *Tx) Reconnect(edgeID string, c Connection) (domain.Edge, error) {
	i := tx.graph.EdgeIndex(edgeID)
	if i < 0 {
		return domain.Edge{}, edgeNotFoundError(edgeID)
	}
	if err := tx.validateConnection(c); err != nil {
		return domain.Edge{}, err
	}
	tx.graph.Edges = append(tx.graph.Edges[:i], tx.graph.Edges[i+1:]...)
	return tx.Connect(c)
}

// DeleteNode removes the node, every edge touching it, and releases its
// images.
func (tx *Tx) DeleteNode(id string) error {
	i := tx.graph.NodeIndex(id)
	if i < 0 {
		return nodeNotFoundError(id)
	}
	tx.released = append(tx.released, tx.graph.Nodes[i].ImageIDs...)
	tx.graph.Nodes = append(tx.graph.Nodes[:i], tx.graph.Nodes[i+1:]...)

	kept := tx.graph.Edges[:0]
	for _, e := range tx.graph.Edges {
		if !e.Touches(id) {
			kept = append(kept, e)
		}
	}
	tx.graph.Edges = kept
	return nil
}

// DeleteEdge removes a single edge.
func (tx *Tx) DeleteEdge(id string) error {
	i := tx.graph.EdgeIndex(id)
	if i < 0 {
		return edgeNotFoundError(id)
	}
	tx.graph.Edges = append(tx.graph.Edges[:i], tx.graph.Edges[i+1:]...)
	return nil
}

// AttachImages appends image ids to the node, skipping ones already attached.
func (tx *Tx) AttachImages(nodeID string, imageIDs ...string) error {
	i := tx.graph.NodeIndex(nodeID)
	if i < 0 {
		return nodeNotFoundError(nodeID)
	}
	n := &tx.graph.Nodes[i]
	for _, id := range imageIDs {
		if id == "" || n.HasImage(id) {
			continue
		}
		n.ImageIDs = append(n.ImageIDs, id)
	}
	return nil
}

// RemoveImage detaches an image from the node and releases it.
func (tx *Tx) RemoveImage(nodeID, imageID string) error {
	i := tx.graph.NodeIndex(nodeID)
	if i < 0 {
		return nodeNotFoundError(nodeID)
	}
	n := &tx.graph.Nodes[i]
	kept := make([]string, 0, len(n.ImageIDs))
	for _, id := range n.ImageIDs {
		if id == imageID {
			tx.released = append(tx.released, id)
			continue
		}
		kept = append(kept, id)
	}
	n.ImageIDs = kept
	return nil
}

func (tx *Tx) validateConnection(c Connection) error {
	if c.Source == c.Target {
		return selfLoopError(c.Source)
	}
	if tx.graph.NodeIndex(c.Source) < 0 || tx.graph.NodeIndex(c.Target) < 0 {
		return danglingEdgeError(c.Source, c.Target)
	}
	if err := c.SourceHandle.Validate(); err != nil {
		return err
	}
	return c.TargetHandle.Validate()
}

// freshID draws ids until one is unused by any node or edge.
func (tx *Tx) freshID() string {
	for {
		id := tx.newID()
		if id != "" && tx.graph.NodeIndex(id) < 0 && tx.graph.EdgeIndex(id) < 0 {
			return id
		}
	}
}
