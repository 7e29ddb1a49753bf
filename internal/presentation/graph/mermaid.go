package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/skein/pkg/domain"
)

// maxLabel is the number of runes of content shown inside a node.
const maxLabel = 40

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []int
	CurrentNode  int
}

// OverlayFromSnapshot marks every node the snapshot has entered and the node
// it stopped on.
func OverlayFromSnapshot(s *domain.Snapshot) *GraphOverlay {
	if s == nil {
		return nil
	}
	o := &GraphOverlay{CurrentNode: s.CurrentNodeID}
	for id, n := range s.NodeVisited {
		if n > 0 {
			o.VisitedNodes = append(o.VisitedNodes, id)
		}
	}
	sort.Ints(o.VisitedNodes)
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a compiled story.
// It applies semantic styling:
// - Sentinels: ((Circle))
// - Choice: {Rhombus}
// - Gather: [[Subroutine]]
// - Knot/Stitch header: [/Parallelogram/]
// - Default: [Rectangle]
// Edges into a choice carry the choice text; conditional choices use a dotted
// arrow and show the condition. Overlay styles apply when overlay is non-nil.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.Order {
		node := g.Node(id)
		if node == nil {
			continue
		}
		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindBegin, domain.KindEnd, domain.KindAutoEnd:
			opener, closer = "((", "))"
		case domain.KindChoice:
			opener, closer = "{", "}"
		case domain.KindGather:
			opener, closer = "[[", "]]"
		case domain.KindKnot, domain.KindStitch:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(id), opener, escape(nodeLabel(node)), closer)
	}

	seen := make(map[domain.Edge]bool)
	for _, e := range g.Edges {
		if seen[e] {
			continue
		}
		seen[e] = true

		arrow := "-->"
		if to := g.Node(e.To); to != nil && to.Kind == domain.KindChoice {
			label := escape(truncate(to.ChoiceText))
			if to.Condition != nil {
				arrow = fmt.Sprintf("-. \"%s [%s]\" .->", label, escape(to.Condition.String()))
			} else {
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
			}
		} else if from := g.Node(e.From); from != nil && from.Kind == domain.KindDivert {
			arrow = "==>"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", mermaidID(e.From), arrow, mermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the overlay readable on light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[int]bool)
		for _, id := range overlay.VisitedNodes {
			if visited[id] || g.Node(id) == nil {
				continue
			}
			visited[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", mermaidID(id))
		}
		if g.Node(overlay.CurrentNode) != nil {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func nodeLabel(n *domain.Node) string {
	switch n.Kind {
	case domain.KindBegin, domain.KindEnd, domain.KindAutoEnd:
		return n.Name
	case domain.KindKnot:
		return "== " + n.Name + " =="
	case domain.KindStitch:
		return "= " + n.Name
	case domain.KindDivert:
		return "-> " + n.Name
	case domain.KindChoice:
		return truncate(n.ChoiceText)
	case domain.KindGather:
		if n.Content == "" {
			return "-"
		}
	}
	return truncate(n.Content)
}

func mermaidID(id int) string {
	switch id {
	case domain.BeginID:
		return "begin"
	case domain.EndID:
		return "end_"
	case domain.AutoEndID:
		return "auto_end"
	}
	return fmt.Sprintf("n%d", id)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-1]) + "…"
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
