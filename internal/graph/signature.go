package graph

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"nodeflow/internal/domain"
)

// NotesPrefixRunes is how much of a node's notes the signature looks at.
// Notes with equal length that only differ past the prefix sign identically.
const NotesPrefixRunes = 40

const (
	fieldSep = "|"
	itemSep  = ";"
	blockSep = "#"
)

// Signature returns a deterministic digest of the graph content. It does not
// depend on the order of nodes or edges, rounds positions to one decimal so
// drag jitter does not count as a change, and summarises notes by length and
// prefix.
func Signature(nodes []domain.Node, edges []domain.Edge) string {
	nodeDescs := make([]keyed, 0, len(nodes))
	for _, n := range nodes {
		nodeDescs = append(nodeDescs, keyed{id: n.ID, desc: describeNode(n)})
	}
	edgeDescs := make([]keyed, 0, len(edges))
	for _, e := range edges {
		edgeDescs = append(edgeDescs, keyed{id: e.ID, desc: describeEdge(e)})
	}
	sortKeyed(nodeDescs)
	sortKeyed(edgeDescs)

	var b strings.Builder
	joinKeyed(&b, nodeDescs)
	b.WriteString(blockSep)
	joinKeyed(&b, edgeDescs)
	return b.String()
}

// GraphSignature is Signature applied to a whole graph.
func GraphSignature(g domain.Graph) string {
	return Signature(g.Nodes, g.Edges)
}

type keyed struct {
	id   string
	desc string
}

func sortKeyed(items []keyed) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].id != items[j].id {
			return items[i].id < items[j].id
		}
		return items[i].desc < items[j].desc
	})
}

func joinKeyed(b *strings.Builder, items []keyed) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(itemSep)
		}
		b.WriteString(item.desc)
	}
}

func describeNode(n domain.Node) string {
	parts := []string{
		strconv.Quote(n.ID),
		coarse(n.Position.X),
		coarse(n.Position.Y),
		strconv.Quote(n.Title),
		string(n.Status),
		notesSummary(n.Notes),
		strconv.Quote(n.Color),
		strconv.Quote(strings.Join(n.ImageIDs, ",")),
	}
	return strings.Join(parts, fieldSep)
}

func describeEdge(e domain.Edge) string {
	return strings.Join([]string{
		strconv.Quote(e.ID),
		strconv.Quote(e.Source),
		strconv.Quote(e.Target),
		string(e.SourceHandle),
		string(e.TargetHandle),
	}, ":")
}

func coarse(v float64) string {
	r := math.Round(v*10) / 10
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', 1, 64)
}

func notesSummary(notes string) string {
	prefix := notes
	if utf8.RuneCountInString(notes) > NotesPrefixRunes {
		prefix = string([]rune(notes)[:NotesPrefixRunes])
	}
	return strconv.Itoa(utf8.RuneCountInString(notes)) + "~" + strconv.Quote(prefix)
}
