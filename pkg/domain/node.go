package domain

// NodeKind classifies a parsed line and drives how the graph builder and the
// engine treat it.
type NodeKind string

const (
	// KindBase is plain content. Consecutive base lines are merged into paragraphs.
	KindBase NodeKind = "base"
	// KindChoice is a player option (`*` or sticky `+`).
	KindChoice NodeKind = "choice"
	// KindGather is a convergence point (`-`).
	KindGather NodeKind = "gather"
	// KindKnot is a top level section header (`== name ==`).
	KindKnot NodeKind = "knot"
	// KindStitch is a subsection header (`= name`).
	KindStitch NodeKind = "stitch"
	// KindDivert is an explicit jump (`-> name`).
	KindDivert NodeKind = "divert"

	KindEnd     NodeKind = "end"
	KindBegin   NodeKind = "begin"
	KindAutoEnd NodeKind = "auto_end"
)

// Sentinel ids. The compiler never allocates ids below 1.
const (
	EndID     = -1
	BeginID   = -2
	AutoEndID = -3
)

// Reserved divert names.
const (
	NameEnd     = "END"
	NameBegin   = "BEGIN"
	NameAutoEnd = "AUTO_END"
)

// Text appended to the history when the story terminates.
const (
	EndText     = "END OF STORY"
	AutoEndText = "AUTO END OF STORY generated by the software"
)

// Node is one vertex of the story graph.
// Relationships between nodes are expressed only through Graph.Edges.
type Node struct {
	ID    int      `json:"id"`
	Kind  NodeKind `json:"kind"`
	Line  int      `json:"line"`
	Level int      `json:"level"`
	Raw   string   `json:"raw,omitempty"`

	// Content is the text emitted when the node is traversed.
	Content string `json:"content,omitempty"`
	// Name holds the divert target or the knot/stitch name.
	Name string `json:"name,omitempty"`
	// ChoiceText is the label offered before the choice is taken.
	ChoiceText string `json:"choice_text,omitempty"`

	Sticky   bool `json:"sticky,omitempty"`
	Fallback bool `json:"fallback,omitempty"`

	Condition Condition `json:"condition,omitempty"`

	GlueBefore  bool   `json:"glue_before,omitempty"`
	GlueAfter   bool   `json:"glue_after,omitempty"`
	Instruction string `json:"instruction,omitempty"`

	// Knot and Stitch name the owning scope. Empty means the story header.
	Knot   string `json:"knot,omitempty"`
	Stitch string `json:"stitch,omitempty"`
}

// IsSentinel reports whether the node is one of Begin, End or AutoEnd.
func (n *Node) IsSentinel() bool {
	return IsSentinelID(n.ID)
}

// IsTerminal reports whether reaching the node ends the story.
func (n *Node) IsTerminal() bool {
	return n.Kind == KindEnd || n.Kind == KindAutoEnd
}

// ContainerKeys returns the container-state keys the node belongs to,
// outermost first: the knot name and the qualified "knot.stitch" name.
func (n *Node) ContainerKeys() []string {
	if n.Knot == "" {
		return nil
	}
	if n.Stitch == "" {
		return []string{n.Knot}
	}
	return []string{n.Knot, QualifiedName(n.Knot, n.Stitch)}
}

// Label returns the text used to present the node as a choice.
func (n *Node) Label() string {
	if n.ChoiceText != "" {
		return n.ChoiceText
	}
	return n.Content
}

// Clone returns a shallow copy. Conditions are immutable and shared.
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

// IsSentinelID reports whether id is reserved for a sentinel node.
func IsSentinelID(id int) bool {
	return id == EndID || id == BeginID || id == AutoEndID
}

// QualifiedName joins a knot and stitch name the way diverts address them.
func QualifiedName(knot, stitch string) string {
	return knot + "." + stitch
}

// SentinelNodes returns fresh End, Begin and AutoEnd nodes.
func SentinelNodes() []*Node {
	return []*Node{
		{ID: EndID, Kind: KindEnd, Name: NameEnd},
		{ID: BeginID, Kind: KindBegin, Name: NameBegin},
		{ID: AutoEndID, Kind: KindAutoEnd, Name: NameAutoEnd},
	}
}

// ReservedID resolves one of the reserved divert names.
func ReservedID(name string) (int, bool) {
	switch name {
	case NameEnd:
		return EndID, true
	case NameBegin:
		return BeginID, true
	case NameAutoEnd:
		return AutoEndID, true
	}
	return 0, false
}
