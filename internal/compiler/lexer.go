package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/skein/pkg/domain"
)

// LineParser classifies single source lines into typed, leveled nodes.
// It carries the block-comment flag from one line to the next, so one parser
// must see the lines of a script in order.
type LineParser struct {
	alloc       *Allocator
	inComment   bool
	diagnostics []domain.Diagnostic
}

// NewLineParser creates a parser drawing ids from alloc.
func NewLineParser(alloc *Allocator) *LineParser {
	return &LineParser{alloc: alloc}
}

// ParseLine classifies line. level is the nesting level carried over from the
// previous line. It returns the node (nil for blanks and comments) and the
// level to carry to the next line.
func (p *LineParser) ParseLine(line string, lineNo, level int) (*domain.Node, int) {
	trimmed := strings.TrimSpace(line)

	if p.skipComment(trimmed) {
		return nil, level
	}

	raw := strings.TrimRight(line, " \t\r")

	switch {
	case strings.HasPrefix(trimmed, "->"):
		return &domain.Node{
			ID:    p.alloc.Next(),
			Kind:  domain.KindDivert,
			Line:  lineNo,
			Level: level,
			Raw:   raw,
			Name:  strings.TrimSpace(trimmed[2:]),
		}, level

	case strings.HasPrefix(trimmed, "=="):
		return p.header(domain.KindKnot, trimmed, raw, lineNo), 0

	case strings.HasPrefix(trimmed, "="):
		return p.header(domain.KindStitch, trimmed, raw, lineNo), 0
	}

	cond, text := p.extractCondition(trimmed, lineNo)

	node := &domain.Node{
		Line:      lineNo,
		Raw:       raw,
		Condition: cond,
	}

	switch {
	case strings.HasPrefix(text, "*") || strings.HasPrefix(text, "+"):
		marker := rune(text[0])
		count, rest := countLeading(text, marker)
		node.Kind = domain.KindChoice
		node.Sticky = marker == '+'
		node.Level = count
		node.Content = rest
	case strings.HasPrefix(text, "-"):
		count, rest := countLeading(text, '-')
		node.Kind = domain.KindGather
		node.Level = count
		node.Content = rest
	default:
		node.Kind = domain.KindBase
		node.Level = level
		node.Content = text
	}

	node.ID = p.alloc.Next()
	return node, node.Level
}

// Diagnostics returns the non-fatal findings collected so far.
func (p *LineParser) Diagnostics() []domain.Diagnostic {
	return p.diagnostics
}

func (p *LineParser) header(kind domain.NodeKind, trimmed, raw string, lineNo int) *domain.Node {
	return &domain.Node{
		ID:   p.alloc.Next(),
		Kind: kind,
		Line: lineNo,
		Raw:  raw,
		Name: strings.Trim(trimmed, "= \t"),
	}
}

func (p *LineParser) skipComment(trimmed string) bool {
	if p.inComment {
		if strings.HasSuffix(trimmed, "*/") {
			p.inComment = false
		}
		return true
	}
	if trimmed == "" || strings.HasPrefix(trimmed, "//") {
		return true
	}
	if strings.HasPrefix(trimmed, "/*") {
		closed := len(trimmed) >= 4 && strings.HasSuffix(trimmed, "*/")
		p.inComment = !closed
		return true
	}
	return false
}

// extractCondition removes the first {expr} segment of the line and parses it.
// Unparseable expressions are dropped with a diagnostic.
func (p *LineParser) extractCondition(text string, lineNo int) (domain.Condition, string) {
	loc := conditionSegment.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text
	}
	expr := text[loc[2]:loc[3]]
	rest := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])

	cond, ok := ParseCondition(expr)
	if !ok {
		p.diagnostics = append(p.diagnostics, domain.Diagnostic{
			Line:    lineNo,
			Message: fmt.Sprintf("dropped unrecognized condition {%s}", expr),
		})
		return nil, rest
	}
	return cond, rest
}

// countLeading counts marker runes at the start of s, skipping interleaved
// blanks. A '-' immediately followed by '>' starts a divert and is not counted.
func countLeading(s string, marker rune) (int, string) {
	count := 0
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case c == marker:
			if marker == '-' && i+1 < len(s) && s[i+1] == '>' {
				return count, strings.TrimSpace(s[i:])
			}
			count++
		case c == ' ' || c == '\t':
		default:
			return count, strings.TrimSpace(s[i:])
		}
		i++
	}
	return count, ""
}
