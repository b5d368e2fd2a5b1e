package domain

import "math"

// DefaultTitle is given to new cards and to persisted cards without a title.
const DefaultTitle = "New step"

// DefaultPosition is where cards land when no position is supplied.
var DefaultPosition = Position{X: 40, Y: 40}

// Position is a card's location on the board in canvas units.
type Position struct {
	X float64
	Y float64
}

// IsFinite reports whether both coordinates are usable numbers.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Offset returns p shifted by dx, dy.
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node is a single card on the board.
type Node struct {
	ID       string
	Position Position
	Title    string
	Status   Status
	Notes    string
	ImageIDs []string
	Color    string
}

// Clone returns a copy of n that shares no slices with it.
func (n Node) Clone() Node {
	out := n
	if n.ImageIDs != nil {
		out.ImageIDs = append([]string(nil), n.ImageIDs...)
	}
	return out
}

// HasImage reports whether imageID is attached to the node.
func (n Node) HasImage(imageID string) bool {
	for _, id := range n.ImageIDs {
		if id == imageID {
			return true
		}
	}
	return false
}

// Edge is a directed link between two cards.
type Edge struct {
	ID           string
	Source       string
	Target       string
	SourceHandle Handle
	TargetHandle Handle
}

// Touches reports whether nodeID is either endpoint of the edge.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Graph is the full content of one project board.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Clone deep-copies the graph. Mutating the result never affects g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Edges, g.Edges)
	return out
}

// IsEmpty reports whether the graph has neither nodes nor edges.
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}

// NodeIndex returns the index of the node with the given id, or -1.
func (g Graph) NodeIndex(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// EdgeIndex returns the index of the edge with the given id, or -1.
func (g Graph) EdgeIndex(id string) int {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// ImageIDs returns every image id referenced by the graph's nodes.
func (g Graph) ImageIDs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, n := range g.Nodes {
		for _, id := range n.ImageIDs {
			out[id] = struct{}{}
		}
	}
	return out
}
