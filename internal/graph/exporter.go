package graph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

type dotStyle struct {
	fill  string
	shape string
}

var dotStyles = map[ResourceType]dotStyle{
	TypeFrontend:     {"#e1f5fe", "component"},
	TypeCDN:          {"#e1f5fe", "component"},
	TypeAuth:         {"#fce4ec", "octagon"},
	TypeAPI:          {"#fff3e0", "cds"},
	TypeLambda:       {"#fff8e1", "box"},
	TypeWorkflow:     {"#fff8e1", "box"},
	TypeQueue:        {"#f3e5f5", "parallelogram"},
	TypeEvents:       {"#f3e5f5", "parallelogram"},
	TypeNotification: {"#f3e5f5", "parallelogram"},
	TypeStream:       {"#f3e5f5", "parallelogram"},
	TypeDatabase:     {"#e8f5e9", "cylinder"},
	TypeStorage:      {"#e8f5e9", "cylinder"},
	TypeCatalog:      {"#e8f5e9", "cylinder"},
}

// ExportDOT writes g as a Graphviz digraph. Nodes share a group per layout
// lane so the rendering reads left to right like the canvas.
func (g *Graph) ExportDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("digraph Architecture {\n")
	bw.WriteString("  rankdir=LR;\n")
	bw.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	bw.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")

	for _, n := range g.Nodes {
		st, ok := dotStyles[ResolveType(n)]
		if !ok {
			st = dotStyle{"white", "box"}
		}
		label := n.Label
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(bw, "  %s [label=%s, fillcolor=%q, shape=%s, group=\"lane%d\"];\n",
			strconv.Quote(n.ID), strconv.Quote(label), st.fill, st.shape, Lane(n))
	}

	for _, e := range g.Edges {
		fmt.Fprintf(bw, "  %s -> %s", strconv.Quote(e.Source), strconv.Quote(e.Target))
		if e.Label != "" {
			fmt.Fprintf(bw, " [label=%s]", strconv.Quote(e.Label))
		}
		bw.WriteString(";\n")
	}

	bw.WriteString("}\n")
	return bw.Flush()
}
