package storage

import (
	"math"
	"strings"
	"testing"

	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"

	"github.com/google/go-cmp/cmp"
)

func sampleGraph() domain.Graph {
	return domain.Graph{
		Nodes: []domain.Node{
			{ID: "a", Position: domain.Position{X: 10, Y: 20.5}, Title: "Plan", Status: domain.StatusActive, Notes: "# notes", ImageIDs: []string{"img-1"}, Color: "#ffcc00"},
			{ID: "b", Position: domain.Position{X: -4, Y: 0}, Title: "Ship", Status: domain.StatusDone, ImageIDs: []string{}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b", SourceHandle: domain.HandleBottom, TargetHandle: domain.HandleTop},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := sampleGraph()
	raw, err := EncodeGraph(g)
	if err != nil {
		t.Fatalf("EncodeGraph: %v", err)
	}
	got, err := DecodeGraph(raw)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	if diff := cmp.Diff(g, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeGraphWireShape(t *testing.T) {
	raw, err := EncodeGraph(sampleGraph())
	if err != nil {
		t.Fatalf("EncodeGraph: %v", err)
	}
	for _, want := range []string{
		`"type":"card"`,
		`"type":"nf"`,
		`"sourceHandle":"s-bottom"`,
		`"targetHandle":"t-top"`,
		`"data":{"title":"Plan","status":"active"`,
		`"imageIds":[]`,
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %s in %s", want, raw)
		}
	}
}

func TestEncodeEmptyGraphUsesArrays(t *testing.T) {
	raw, err := EncodeGraph(domain.Graph{})
	if err != nil {
		t.Fatalf("EncodeGraph: %v", err)
	}
	if raw != `{"nodes":[],"edges":[]}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
}

func TestEncodeRejectsNonFinitePosition(t *testing.T) {
	g := domain.Graph{Nodes: []domain.Node{{ID: "a", Position: domain.Position{X: math.NaN()}}}}
	_, err := EncodeGraph(g)
	if !appErrors.IsCode(err, appErrors.CodeInvalidPosition) {
		t.Fatalf("expected invalid_position, got %v", err)
	}
}

func TestDecodeGraphEmptyAndCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "blank", raw: ""},
		{name: "whitespace", raw: "  \n"},
		{name: "null", raw: "null"},
		{name: "empty object", raw: "{}"},
		{name: "truncated", raw: `{"nodes":[{"id":"a"`, wantErr: true},
		{name: "array", raw: `[]`, wantErr: true},
		{name: "nodes not a list", raw: `{"nodes":"oops","edges":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := DecodeGraph(tt.raw)
			if tt.wantErr {
				if !appErrors.IsCode(err, appErrors.CodeDecodeFailed) {
					t.Fatalf("expected decode_failed, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !g.IsEmpty() {
				t.Fatalf("expected empty graph, got %+v", g)
			}
			if g.Nodes == nil || g.Edges == nil {
				t.Fatalf("expected non-nil empty collections")
			}
		})
	}
}

func TestDecodeGraphSanitizesNodes(t *testing.T) {
	raw := `{"nodes":[
		{"id":"a","position":{"x":"12","y":null},"data":{"status":"bogus","notes":42,"imageIds":["i1",3,"","i2"]}},
		{"id":"b","position":{"x":1,"y":2},"data":{"title":"Kept","status":"DONE","notes":"hi","color":"red"}},
		{"id":"a","data":{"title":"duplicate"}},
		{"position":{"x":1,"y":1}},
		"garbage"
	],"edges":[]}`
	g, err := DecodeGraph(raw)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	want := []domain.Node{
		{ID: "a", Position: domain.Position{X: 12, Y: 40}, Title: domain.DefaultTitle, Status: domain.StatusIdea, Notes: "", ImageIDs: []string{"i1", "i2"}},
		{ID: "b", Position: domain.Position{X: 1, Y: 2}, Title: "Kept", Status: domain.StatusDone, Notes: "hi", ImageIDs: []string{}, Color: "red"},
	}
	if diff := cmp.Diff(want, g.Nodes); diff != "" {
		t.Fatalf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeGraphSanitizesEdges(t *testing.T) {
	raw := `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[
		{"id":"e1","source":"a","target":"b","sourceHandle":"bottom","targetHandle":"t-top"},
		{"id":"e2","source":"a","target":"b","sourceHandle":"diagonal"},
		{"id":"e1","source":"b","target":"a"},
		{"id":"e3","source":"a","target":"a"},
		{"id":"e4","source":"a","target":"ghost"},
		{"source":"a","target":"b"},
		{"id":"e5","target":"b"}
	]}`
	g, err := DecodeGraph(raw)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	want := []domain.Edge{
		{ID: "e1", Source: "a", Target: "b", SourceHandle: domain.HandleBottom, TargetHandle: domain.HandleTop},
		{ID: "e2", Source: "a", Target: "b", SourceHandle: domain.HandleRight, TargetHandle: domain.HandleLeft},
	}
	if diff := cmp.Diff(want, g.Edges); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
}
