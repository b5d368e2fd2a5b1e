package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"nodeflow/internal/domain"
	appErrors "nodeflow/internal/errors"
)

const (
	nodeType = "card"
	edgeType = "nf"
)

type wireGraph struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

type wireNode struct {
	ID       string       `json:"id"`
	Position wirePosition `json:"position"`
	Data     wireNodeData `json:"data"`
	Type     string       `json:"type"`
}

type wirePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireNodeData struct {
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Notes    string   `json:"notes"`
	ImageIDs []string `json:"imageIds"`
	Color    string   `json:"color,omitempty"`
}

type wireEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
	Type         string `json:"type"`
}

// EncodeGraph serializes g into the persisted JSON form.
func EncodeGraph(g domain.Graph) (string, error) {
	out := wireGraph{
		Nodes: make([]wireNode, 0, len(g.Nodes)),
		Edges: make([]wireEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		if !n.Position.IsFinite() {
			return "", appErrors.New(appErrors.CodeInvalidPosition, fmt.Sprintf("node %s has a non-finite position", n.ID), nil)
		}
		ids := n.ImageIDs
		if ids == nil {
			ids = []string{}
		}
		out.Nodes = append(out.Nodes, wireNode{
			ID:       n.ID,
			Position: wirePosition{X: n.Position.X, Y: n.Position.Y},
			Data: wireNodeData{
				Title:    n.Title,
				Status:   string(n.Status),
				Notes:    n.Notes,
				ImageIDs: ids,
				Color:    n.Color,
			},
			Type: nodeType,
		})
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, wireEdge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle.SourceID(),
			TargetHandle: e.TargetHandle.TargetID(),
			Type:         edgeType,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	return string(data), nil
}

// DecodeGraph parses a persisted graph. Blank input is the empty graph.
// Malformed fields are repaired and unusable items dropped; only input that
// is not a JSON object at all yields a decode_failed error.
func DecodeGraph(raw string) (domain.Graph, error) {
	empty := domain.Graph{Nodes: []domain.Node{}, Edges: []domain.Edge{}}
	if strings.TrimSpace(raw) == "" {
		return empty, nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return empty, appErrors.New(appErrors.CodeDecodeFailed, "decode graph", err)
	}

	g := empty
	seenNodes := make(map[string]bool)
	for _, item := range asSlice(doc["nodes"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		n, ok := decodeNode(obj)
		if !ok || seenNodes[n.ID] {
			continue
		}
		seenNodes[n.ID] = true
		g.Nodes = append(g.Nodes, n)
	}

	seenEdges := make(map[string]bool)
	for _, item := range asSlice(doc["edges"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e, ok := decodeEdge(obj)
		if !ok || seenEdges[e.ID] {
			continue
		}
		if e.Source == e.Target || !seenNodes[e.Source] || !seenNodes[e.Target] {
			continue
		}
		seenEdges[e.ID] = true
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}

func decodeNode(obj map[string]any) (domain.Node, bool) {
	id := asString(obj["id"])
	if id == "" {
		return domain.Node{}, false
	}
	pos := domain.DefaultPosition
	if p, ok := obj["position"].(map[string]any); ok {
		if x, ok := asNumber(p["x"]); ok {
			pos.X = x
		}
		if y, ok := asNumber(p["y"]); ok {
			pos.Y = y
		}
	}
	data, _ := obj["data"].(map[string]any)

	title := asString(data["title"])
	if title == "" {
		title = domain.DefaultTitle
	}
	status, err := domain.ParseStatus(asString(data["status"]))
	if err != nil || status == domain.StatusUnknown {
		status = domain.DefaultStatus
	}
	notes, _ := data["notes"].(string)

	ids := []string{}
	for _, v := range asSlice(data["imageIds"]) {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	color, _ := data["color"].(string)

	return domain.Node{
		ID:       id,
		Position: pos,
		Title:    title,
		Status:   status,
		Notes:    notes,
		ImageIDs: ids,
		Color:    color,
	}, true
}

func decodeEdge(obj map[string]any) (domain.Edge, bool) {
	e := domain.Edge{
		ID:     asString(obj["id"]),
		Source: asString(obj["source"]),
		Target: asString(obj["target"]),
	}
	if e.ID == "" || e.Source == "" || e.Target == "" {
		return domain.Edge{}, false
	}
	e.SourceHandle = handleOr(asString(obj["sourceHandle"]), domain.HandleRight)
	e.TargetHandle = handleOr(asString(obj["targetHandle"]), domain.HandleLeft)
	return e, true
}

func handleOr(raw string, fallback domain.Handle) domain.Handle {
	h, err := domain.ParseHandle(raw)
	if err != nil {
		return fallback
	}
	return h
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// asString accepts strings and numbers, matching loosely typed ids.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asNumber accepts numbers and numeric strings; anything non-finite is
// rejected.
func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
