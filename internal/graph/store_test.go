package graph

import (
	"fmt"
	"math"
	"testing"

	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"

	"github.com/google/go-cmp/cmp"
)

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(WithIDGenerator(sequentialIDs("id")))
}

func addNodes(t *testing.T, s *Store, count int) []domain.Node {
	t.Helper()
	var out []domain.Node
	for i := 0; i < count; i++ {
		_, err := s.Update(func(tx *Tx) error {
			n, err := tx.AddNode(domain.Position{X: float64(i * 100), Y: 0})
			out = append(out, n)
			return err
		})
		if err != nil {
			t.Fatalf("add node: %v", err)
		}
	}
	return out
}

func connect(t *testing.T, s *Store, source, target string) domain.Edge {
	t.Helper()
	var edge domain.Edge
	_, err := s.Update(func(tx *Tx) error {
		var err error
		edge, err = tx.Connect(Connection{Source: source, Target: target, SourceHandle: domain.HandleRight, TargetHandle: domain.HandleLeft})
		return err
	})
	if err != nil {
		t.Fatalf("connect %s -> %s: %v", source, target, err)
	}
	return edge
}

func TestAddNodeDefaults(t *testing.T) {
	s := newTestStore(t)
	var node domain.Node
	change, err := s.Update(func(tx *Tx) error {
		var err error
		node, err = tx.AddNode(domain.DefaultPosition)
		return err
	})
	if err != nil {
		t.Fatalf("AddNode returned error: %v", err)
	}
	if node.Title != domain.DefaultTitle || node.Status != domain.StatusIdea {
		t.Fatalf("unexpected defaults: %+v", node)
	}
	if node.Position != domain.DefaultPosition {
		t.Fatalf("unexpected position %+v", node.Position)
	}
	if !change.Before.IsEmpty() {
		t.Fatalf("expected empty before-state, got %+v", change.Before)
	}
	if len(change.After.Nodes) != 1 {
		t.Fatalf("expected one node after, got %d", len(change.After.Nodes))
	}
}

func TestAddNodePrependsAndIDsAreUnique(t *testing.T) {
	calls := 0
	// Generator repeats itself to force collision handling.
	gen := func() string {
		calls++
		return []string{"a", "a", "b", "b", "c"}[min(calls-1, 4)]
	}
	s := NewStore(WithIDGenerator(gen))
	addNodes(t, s, 3)

	nodes := s.Nodes()
	got := []string{nodes[0].ID, nodes[1].ID, nodes[2].ID}
	want := []string{"c", "b", "a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected node order (-want +got):\n%s", diff)
	}
}

func TestConnectRejectsSelfLoop(t *testing.T) {
	s := newTestStore(t)
	nodes := addNodes(t, s, 1)
	before := s.Snapshot()

	_, err := s.Update(func(tx *Tx) error {
		_, err := tx.Connect(Connection{Source: nodes[0].ID, Target: nodes[0].ID, SourceHandle: domain.HandleRight, TargetHandle: domain.HandleLeft})
		return err
	})
	if !appErrors.IsCode(err, appErrors.CodeSelfLoop) {
		t.Fatalf("expected self_loop error, got %v", err)
	}
	if _, edges := s.Len(); edges != 0 {
		t.Fatalf("expected no edges, got %d", edges)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Fatalf("rejected mutation changed the store:\n%s", diff)
	}
}

func TestConnectRejectsDanglingAndBadHandles(t *testing.T) {
	s := newTestStore(t)
	nodes := addNodes(t, s, 2)

	cases := []struct {
		name string
		conn Connection
		code appErrors.Code
	}{
		{"missing target", Connection{Source: nodes[0].ID, Target: "ghost", SourceHandle: domain.HandleRight, TargetHandle: domain.HandleLeft}, appErrors.CodeDanglingEdge},
		{"missing source", Connection{Source: "ghost", Target: nodes[0].ID, SourceHandle: domain.HandleRight, TargetHandle: domain.HandleLeft}, appErrors.CodeDanglingEdge},
		{"bad handle", Connection{Source: nodes[0].ID, Target: nodes[1].ID, SourceHandle: "diagonal", TargetHandle: domain.HandleLeft}, appErrors.CodeInvalidHandle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Update(func(tx *Tx) error {
				_, err := tx.Connect(tc.conn)
				return err
			})
			if !appErrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
	if _, edges := s.Len(); edges != 0 {
		t.Fatalf("expected no edges, got %d", edges)
	}
}

func TestConnectDuplicateReturnsExisting(t *testing.T) {
	s := newTestStore(t)
	nodes := addNodes(t, s, 2)
	first := connect(t, s, nodes[0].ID, nodes[1].ID)
	second := connect(t, s, nodes[0].ID, nodes[1].ID)

	if first.ID != second.ID {
		t.Fatalf("expected duplicate connect to return %s, got %s", first.ID, second.ID)
	}
	if _, edges := s.Len(); edges != 1 {
		t.Fatalf("expected one edge, got %d", edges)
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	s := newTestStore(t)
	nodes := addNodes(t, s, 3)
	a, b, c := nodes[0].ID, nodes[1].ID, nodes[2].ID
	connect(t, s, a, b)
	connect(t, s, c, a)
	keep := connect(t, s, b, c)

	if _, err := s.Update(func(tx *Tx) error { return tx.AttachImages(a, "img-1", "img-2") }); err != nil {
		t.Fatalf("attach images: %v", err)
	}

	change, err := s.Update(func(tx *Tx) error { return tx.DeleteNode(a) })
	if err != nil {
		t.Fatalf("DeleteNode returned error: %v", err)
	}
	for _, e := range s.Edges() {
		if e.Touches(a) {
			t.Fatalf("dangling edge left behind: %+v", e)
		}
	}
	edges := s.Edges()
	if len(edges) != 1 || edges[0].ID != keep.ID {
		t.Fatalf("expected only %s to remain, got %+v", keep.ID, edges)
	}
	if diff := cmp.Diff([]string{"img-1", "img-2"}, change.Released); diff != "" {
		t.Fatalf("unexpected released images:\n%s", diff)
	}
	if _, ok := s.Node(a); ok {
		t.Fatalf("node %s still present", a)
	}
}

func TestReconnectReplacesEdge(t *testing.T) {
	s := newTestStore(t)
	nodes := addNodes(t, s, 3)
	old := connect(t, s, nodes[0].ID, nodes[1].ID)

	var replacement domain.Edge
	_, err := s.Update(func(tx *Tx) error {
		var err error
		replacement, err = tx.Reconnect(old.ID, Connection{Source: nodes[0].ID, Target: nodes[2].ID, SourceHandle: domain.HandleBottom, TargetHandle: domain.HandleTop})
		return err
	})
	if err != nil {
		t.Fatalf("Reconnect returned error: %v", err)
	}
	if replacement.ID == old.ID {
		t.Fatalf("expected a fresh edge id")
	}
	edges := s.Edges()
	if len(edges) != 1 || edges[0].Target != nodes[2].ID {
		t.Fatalf("unexpected edges after reconnect: %+v", edges)
	}

	_, err = s.Update(func(tx *Tx) error {
		_, err := tx.Reconnect(replacement.ID, Connection{Source: nodes[2].ID, Target: nodes[2].ID, SourceHandle: domain.HandleBottom, TargetHandle: domain.HandleTop})
		return err
	})
	if !appErrors.IsCode(err, appErrors.CodeSelfLoop) {
		t.Fatalf("expected self_loop on reconnect, got %v", err)
	}
	if got := s.Edges(); len(got) != 1 || got[0].ID != replacement.ID {
		t.Fatalf("failed reconnect must keep the original edge, got %+v", got)
	}
}

func TestUpdateNodeAndMove(t *testing.T) {
	s := newTestStore(t)
	nodes := addNodes(t, s, 1)
	id := nodes[0].ID

	title := "Step A"
	status := domain.StatusActive
	if _, err := s.Update(func(tx *Tx) error {
		return tx.UpdateNode(id, NodePatch{Title: &title, Status: &status})
	}); err != nil {
		t.Fatalf("UpdateNode returned error: %v", err)
	}
	bad := domain.Status("closed")
	_, err := s.Update(func(tx *Tx) error { return tx.UpdateNode(id, NodePatch{Status: &bad}) })
	if !appErrors.IsCode(err, appErrors.CodeInvalidStatus) {
		t.Fatalf("expected invalid_status, got %v", err)
	}
	_, err = s.Update(func(tx *Tx) error { return tx.MoveNode(id, domain.Position{X: math.NaN()}) })
	if !appErrors.IsCode(err, appErrors.CodeInvalidPosition) {
		t.Fatalf("expected invalid_position, got %v", err)
	}
	if _, err := s.Update(func(tx *Tx) error { return tx.MoveNode(id, domain.Position{X: 5, Y: 6}) }); err != nil {
		t.Fatalf("MoveNode returned error: %v", err)
	}

	got, _ := s.Node(id)
	if got.Title != "Step A" || got.Status != domain.StatusActive || got.Position != (domain.Position{X: 5, Y: 6}) {
		t.Fatalf("unexpected node state: %+v", got)
	}
	_, err = s.Update(func(tx *Tx) error { return tx.UpdateNode("ghost", NodePatch{Title: &title}) })
	if !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestImagesAttachAndRemove(t *testing.T) {
	s := newTestStore(t)
	id := addNodes(t, s, 1)[0].ID

	if _, err := s.Update(func(tx *Tx) error { return tx.AttachImages(id, "a", "b", "a", "") }); err != nil {
		t.Fatalf("AttachImages returned error: %v", err)
	}
	change, err := s.Update(func(tx *Tx) error { return tx.RemoveImage(id, "a") })
	if err != nil {
		t.Fatalf("RemoveImage returned error: %v", err)
	}
	n, _ := s.Node(id)
	if diff := cmp.Diff([]string{"b"}, n.ImageIDs); diff != "" {
		t.Fatalf("unexpected images:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, change.Released); diff != "" {
		t.Fatalf("unexpected released list:\n%s", diff)
	}
}

func TestSnapshotDoesNotAliasStore(t *testing.T) {
	s := newTestStore(t)
	id := addNodes(t, s, 1)[0].ID
	if _, err := s.Update(func(tx *Tx) error { return tx.AttachImages(id, "a") }); err != nil {
		t.Fatalf("attach: %v", err)
	}

	snap := s.Snapshot()
	snap.Nodes[0].Title = "mutated"
	snap.Nodes[0].ImageIDs[0] = "z"

	n, _ := s.Node(id)
	if n.Title != domain.DefaultTitle || n.ImageIDs[0] != "a" {
		t.Fatalf("snapshot aliased store state: %+v", n)
	}

	s.Restore(snap)
	snap.Nodes[0].Title = "after restore"
	n, _ = s.Node(id)
	if n.Title != "mutated" {
		t.Fatalf("restore should copy, got %q", n.Title)
	}
}
