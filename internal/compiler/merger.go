package compiler

import (
	"strings"

	"github.com/aretw0/skein/pkg/domain"
)

// DefaultSeparator joins merged content lines.
const DefaultSeparator = " "

const glue = "<>"

// MergeLines folds each Base node into the preceding Base, Choice or Gather
// node, so that paragraph text spanning several lines becomes one node.
// The merged node keeps the id, kind, level and line of the earlier node.
func MergeLines(nodes []*domain.Node, separator string) []*domain.Node {
	out := make([]*domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == domain.KindBase && len(out) > 0 {
			prev := out[len(out)-1]
			if absorbs(prev.Kind) {
				prev.Content = joinContent(prev.Content, n.Content, separator)
				prev.Raw = prev.Raw + "\n" + n.Raw
				if prev.Condition == nil {
					prev.Condition = n.Condition
				}
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func absorbs(kind domain.NodeKind) bool {
	return kind == domain.KindBase || kind == domain.KindChoice || kind == domain.KindGather
}

// joinContent joins two content lines. Glue at the seam suppresses the separator.
func joinContent(a, b, separator string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case strings.HasSuffix(a, glue):
		return strings.TrimSuffix(a, glue) + strings.TrimPrefix(b, glue)
	case strings.HasPrefix(b, glue):
		return a + strings.TrimPrefix(b, glue)
	}
	return a + separator + b
}
