package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/skein/pkg/domain"
)

// postProcess extracts the inline syntax carried by a content node: diverts,
// choice brackets, glue and trailing instructions. It returns the divert node
// spawned by an inline arrow, if any.
func postProcess(n *domain.Node, alloc *Allocator) (*domain.Node, error) {
	if n.Kind == domain.KindDivert {
		n.Name, _, _ = stripGlue(n.Name)
		n.Name, n.Instruction = splitInstruction(n.Name)
		return nil, nil
	}

	var spawned *domain.Node
	if before, target, found := strings.Cut(n.Content, "->"); found {
		leading := strings.TrimSpace(before) == ""
		n.Content = strings.TrimSpace(before)
		if leading && n.Kind == domain.KindChoice {
			n.Fallback = true
		}
		if target = strings.TrimSpace(target); target != "" {
			spawned = &domain.Node{
				ID:    alloc.Next(),
				Kind:  domain.KindDivert,
				Line:  n.Line,
				Level: n.Level,
				Raw:   n.Raw,
				Name:  target,
			}
			spawned.Name, _, _ = stripGlue(spawned.Name)
			spawned.Name, spawned.Instruction = splitInstruction(spawned.Name)
		}
	}

	if n.Kind == domain.KindChoice {
		before, inside, after, found, err := splitBrackets(n.Content)
		if err != nil {
			return nil, errorAt(n.Line, err)
		}
		if found {
			n.ChoiceText = strings.TrimSpace(before + inside)
			n.Content = strings.TrimSpace(joinSeam(before, after))
		} else {
			n.ChoiceText = n.Content
		}
	}

	var glueBefore, glueAfter bool
	n.Content, glueBefore, glueAfter = stripGlue(n.Content)
	n.GlueBefore = n.GlueBefore || glueBefore
	n.GlueAfter = n.GlueAfter || glueAfter
	n.Content, n.Instruction = splitInstruction(n.Content)

	if n.ChoiceText != "" {
		n.ChoiceText, _, _ = stripGlue(n.ChoiceText)
		n.ChoiceText, _ = splitInstruction(n.ChoiceText)
	}

	return spawned, nil
}

// splitBrackets splits s around its single unescaped [inside] pair.
func splitBrackets(s string) (before, inside, after string, found bool, err error) {
	open := -1
	pairs := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '[':
			if open >= 0 {
				continue
			}
			open = i
		case ']':
			if open < 0 {
				continue
			}
			pairs++
			if pairs > 1 {
				return "", "", "", false, fmt.Errorf("%w: %q", domain.ErrDuplicateBrackets, s)
			}
			before, inside, after = s[:open], s[open+1:i], s[i+1:]
			open = -1
		}
	}
	return before, inside, after, pairs == 1, nil
}

// joinSeam concatenates the text around a bracket pair, keeping one blank at
// most where they meet.
func joinSeam(before, after string) string {
	if strings.HasSuffix(before, " ") && strings.HasPrefix(after, " ") {
		return before + strings.TrimLeft(after, " ")
	}
	return before + after
}

// stripGlue removes every glue marker. A marker in first position sets
// glueBefore, any other sets glueAfter.
func stripGlue(s string) (out string, glueBefore, glueAfter bool) {
	for strings.Contains(s, glue) {
		if strings.HasPrefix(s, glue) {
			glueBefore = true
			s = s[len(glue):]
			continue
		}
		glueAfter = true
		s = strings.Replace(s, glue, "", 1)
	}
	return strings.TrimSpace(s), glueBefore, glueAfter
}

func splitInstruction(s string) (string, string) {
	before, after, found := strings.Cut(s, "#")
	if !found {
		return s, ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
