package runtime

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/skein/internal/compiler"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

// Engine walks a compiled story graph.
// The graph is only read, so one graph may back many engines; the engine
// itself must be driven by a single caller at a time.
type Engine struct {
	graph *domain.Graph
	adj   map[int][]int

	storyID     string
	digest      string
	logger      *slog.Logger
	observer    ports.StoryObserver
	hooks       domain.LifecycleHooks
	autoAdvance bool

	state *domain.Snapshot
	// glue joins the next emitted content onto the last history entry.
	glue bool
}

// Stats summarizes the engine for status displays.
type Stats struct {
	TotalNodes       int  `json:"total_nodes"`
	TotalEdges       int  `json:"total_edges"`
	CurrentNode      int  `json:"current_node"`
	HistoryLength    int  `json:"history_length"`
	ChoicesAvailable int  `json:"choices_available"`
	IsComplete       bool `json:"is_complete"`
}

// NewEngine creates an engine positioned at BEGIN.
// An unlinked graph is linked on a private copy first.
func NewEngine(g *domain.Graph, opts ...Option) *Engine {
	if !g.Linked {
		g = g.Clone()
		compiler.Link(g)
	}

	e := &Engine{
		graph:    g,
		adj:      g.Adjacency(),
		logger:   logging.NewNop(),
		observer: ports.ObserverFuncs{},
		state:    domain.NewSnapshot(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.seedContainers()
	return e
}

// Start emits the opening content and runs until the first choice point or
// the end. It does nothing on a story that already left BEGIN.
func (e *Engine) Start() error {
	if e.state.Complete || e.state.CurrentNodeID != domain.BeginID {
		e.notifyChoices()
		return nil
	}

	err := e.followPath()
	e.notifyChoices()
	return err
}

// MakeChoice takes the available choice with the given node id.
// It reports false when the story is over or id is not on offer.
func (e *Engine) MakeChoice(id int) (bool, error) {
	if e.state.Complete {
		return false, nil
	}

	var picked *domain.Node
	for _, c := range e.AvailableChoices() {
		if c.ID == id {
			picked = c
			break
		}
	}
	if picked == nil {
		e.logger.Debug("choice rejected", "node_id", id)
		return false, nil
	}

	e.take(picked, true)
	err := e.followPath()
	e.notifyChoices()
	return true, err
}

// Choose takes the choice at index in AvailableChoices.
func (e *Engine) Choose(index int) (bool, error) {
	choices := e.AvailableChoices()
	if index < 0 || index >= len(choices) {
		return false, nil
	}
	return e.MakeChoice(choices[index].ID)
}

// AvailableChoices returns the choices on offer at the current node.
func (e *Engine) AvailableChoices() []*domain.Node {
	if e.state.Complete {
		return nil
	}
	return e.filterChoices(e.successors(e.state.CurrentNodeID))
}

// History returns a copy of the emitted lines.
func (e *Engine) History() []string {
	return slices.Clone(e.state.History)
}

// Reset rewinds to BEGIN and clears the history. Visit counts, the turn, consumed
// choices and container states are kept, so a replay happens in the same world.
func (e *Engine) Reset() {
	e.state.History = []string{}
	e.state.Complete = false
	e.state.CurrentNodeID = domain.BeginID
	e.glue = false
	e.logger.Debug("story reset", "story_id", e.storyID)
}

// Stats returns counters about the graph and the walk.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalNodes:       len(e.graph.Nodes),
		TotalEdges:       len(e.graph.Edges),
		CurrentNode:      e.state.CurrentNodeID,
		HistoryLength:    len(e.state.History),
		ChoicesAvailable: len(e.AvailableChoices()),
		IsComplete:       e.state.Complete,
	}
}

// Complete reports whether the story reached End or AutoEnd.
func (e *Engine) Complete() bool {
	return e.state.Complete
}

// CurrentNode returns the node the walk stopped on.
func (e *Engine) CurrentNode() *domain.Node {
	return e.graph.Node(e.state.CurrentNodeID)
}

// Graph returns the graph the engine walks. It must not be modified.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Turn returns the number of choices taken so far.
func (e *Engine) Turn() int {
	return e.state.Turn
}

// SetVariable sets a story variable.
func (e *Engine) SetVariable(name string, value any) {
	e.state.Variables[name] = value
}

// Variable returns a story variable.
func (e *Engine) Variable(name string) (any, bool) {
	v, ok := e.state.Variables[name]
	return v, ok
}

// Variables returns a copy of all story variables.
func (e *Engine) Variables() map[string]any {
	out := make(map[string]any, len(e.state.Variables))
	for k, v := range e.state.Variables {
		out[k] = v
	}
	return out
}

// Snapshot captures the runtime state.
func (e *Engine) Snapshot() *domain.Snapshot {
	s := e.state.Clone()
	s.StoryID = e.storyID
	s.Digest = e.digest
	return s
}

// Restore replaces the runtime state with s. The snapshot must come from the
// same story: digests must agree when both are known, and the current node
// must exist.
func (e *Engine) Restore(s *domain.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrSnapshotMismatch)
	}
	if e.digest != "" && s.Digest != "" && s.Digest != e.digest {
		return fmt.Errorf("%w: digest %s, story is %s", domain.ErrSnapshotMismatch, s.Digest, e.digest)
	}
	if e.graph.Node(s.CurrentNodeID) == nil {
		return fmt.Errorf("%w: node %d does not exist", domain.ErrSnapshotMismatch, s.CurrentNodeID)
	}

	e.state = s.Clone()
	e.glue = false
	e.seedContainers()
	return nil
}

// followPath advances from the current node until choices are on offer or the
// story ends.
func (e *Engine) followPath() error {
	visited := make(map[int]bool)
	for {
		id := e.state.CurrentNodeID
		node := e.graph.Node(id)
		if node == nil {
			return fmt.Errorf("%w: node %d is not part of the story", domain.ErrDeadEnd, id)
		}

		if visited[id] {
			e.logger.Warn("content loop without choices, ending story", "node_id", id)
			e.moveTo(domain.AutoEndID)
			continue
		}
		visited[id] = true
		e.visit(node)

		next := e.successors(id)
		if len(next) == 0 {
			if node.IsTerminal() {
				e.finish(node)
				return nil
			}
			return fmt.Errorf("%w: node %d", domain.ErrDeadEnd, id)
		}

		if choices := e.filterChoices(next); len(choices) > 0 {
			if onlyFallbacks(choices) || (e.autoAdvance && len(choices) == 1) {
				e.take(choices[0], false)
				continue
			}
			return nil
		}

		target, ok := e.firstContent(next)
		if !ok {
			return fmt.Errorf("%w: node %d has no eligible choice left", domain.ErrDeadEnd, id)
		}
		if visited[target.ID] {
			e.logger.Warn("content loop without choices, ending story", "node_id", target.ID)
			e.moveTo(domain.AutoEndID)
			continue
		}
		e.moveTo(target.ID)
		e.emitNode(target)
	}
}

// successors returns the targets of id that may still be entered.
func (e *Engine) successors(id int) []int {
	var out []int
	for _, to := range e.adj[id] {
		if revisitable, known := e.state.Revisitable[to]; known && !revisitable {
			continue
		}
		out = append(out, to)
	}
	return out
}

// filterChoices picks the choices among next that can be offered, in
// successor order. A one-shot choice is offered until taken; fallbacks skip
// the condition check and are returned only when nothing else passes.
// ChoiceOrder keeps the 1-based position a choice held among its eligible
// siblings the first time it was considered.
func (e *Engine) filterChoices(next []int) []*domain.Node {
	var passing, fallbacks []*domain.Node
	view := stateView{e.state}
	position := 1

	for _, id := range next {
		n := e.graph.Node(id)
		if n == nil || n.Kind != domain.KindChoice {
			continue
		}
		if !n.Sticky && e.state.NodeVisited[id] > 0 {
			continue
		}
		if _, ordered := e.state.ChoiceOrder[id]; !ordered {
			e.state.ChoiceOrder[id] = position
		}
		position++

		if n.Fallback {
			fallbacks = append(fallbacks, n)
			continue
		}
		if n.Condition != nil && !n.Condition.Evaluate(view) {
			continue
		}
		passing = append(passing, n)
	}

	if len(passing) == 0 {
		return fallbacks
	}
	return passing
}

func (e *Engine) firstContent(next []int) (*domain.Node, bool) {
	for _, id := range next {
		if n := e.graph.Node(id); n != nil && n.Kind != domain.KindChoice {
			return n, true
		}
	}
	return nil, false
}

func onlyFallbacks(choices []*domain.Node) bool {
	for _, c := range choices {
		if !c.Fallback {
			return false
		}
	}
	return true
}

// take moves onto a choice. Taken explicitly, the choice text is echoed with a
// bullet before the content that follows it.
func (e *Engine) take(n *domain.Node, explicit bool) {
	e.state.Turn++
	e.moveTo(n.ID)

	if explicit && n.ChoiceText != "" {
		e.emit("• " + n.ChoiceText)
	}
	if strings.TrimSpace(n.Content) != "" && (!explicit || n.Content != n.ChoiceText) {
		e.emit(n.Content)
	}
	if !n.Sticky {
		e.state.Revisitable[n.ID] = false
	}
	e.glue = n.GlueAfter

	e.logger.Debug("choice taken", "node_id", n.ID, "turn", e.state.Turn, "explicit", explicit)
	if e.hooks.OnChoice != nil {
		e.hooks.OnChoice(&domain.ChoiceEvent{
			EventBase: e.event(domain.EventChoice),
			NodeID:    n.ID,
			Text:      n.Label(),
			Sticky:    n.Sticky,
			Turn:      e.state.Turn,
		})
	}
}

func (e *Engine) moveTo(id int) {
	e.state.CurrentNodeID = id
}

// visit records a step onto node. Every node visited inside a knot or stitch
// adds to that container's seen count.
func (e *Engine) visit(node *domain.Node) {
	e.state.NodeVisited[node.ID]++

	for _, key := range node.ContainerKeys() {
		st, ok := e.state.Containers[key]
		if !ok {
			st = domain.NewContainerState()
		}
		st.SeenCount++
		turn := e.state.Turn
		st.Status = domain.StatusSeen
		st.LastSeenTurn = &turn
		e.state.Containers[key] = st
	}

	e.logger.Debug("node entered", "node_id", node.ID, "kind", node.Kind)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(&domain.NodeEvent{
			EventBase: e.event(domain.EventNodeEnter),
			NodeID:    node.ID,
			NodeKind:  node.Kind,
			Knot:      node.Knot,
			Stitch:    node.Stitch,
		})
	}
}

func (e *Engine) finish(node *domain.Node) {
	text := domain.EndText
	if node.Kind == domain.KindAutoEnd {
		text = domain.AutoEndText
	}
	e.emit(text)
	e.state.Complete = true

	e.logger.Debug("story complete", "story_id", e.storyID, "node_id", node.ID, "turns", e.state.Turn)
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&domain.CompleteEvent{
			EventBase: e.event(domain.EventComplete),
			NodeID:    node.ID,
			Turns:     e.state.Turn,
		})
	}
	e.observer.StoryCompleted()
}

// emitNode appends the content of a base or gather node. Glue joins it onto
// the previous line.
func (e *Engine) emitNode(n *domain.Node) {
	if n.Kind != domain.KindBase && n.Kind != domain.KindGather {
		return
	}
	if strings.TrimSpace(n.Content) == "" {
		e.glue = e.glue || n.GlueAfter
		return
	}

	if last := len(e.state.History) - 1; last >= 0 && (e.glue || n.GlueBefore) {
		e.state.History[last] += " " + n.Content
		e.observer.ContentAdded(n.Content)
	} else {
		e.emit(n.Content)
	}
	e.glue = n.GlueAfter
}

func (e *Engine) emit(text string) {
	e.state.History = append(e.state.History, text)
	e.observer.ContentAdded(text)
}

func (e *Engine) notifyChoices() {
	e.observer.ChoicesUpdated(e.AvailableChoices())
}

func (e *Engine) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, StoryID: e.storyID}
}

// seedContainers makes every container of the story known to conditions,
// so "not knot" holds before the knot is ever entered.
func (e *Engine) seedContainers() {
	for _, key := range e.graph.Containers() {
		if _, ok := e.state.Containers[key]; !ok {
			e.state.Containers[key] = domain.NewContainerState()
		}
	}
}

// stateView exposes the runtime state to conditions.
type stateView struct {
	s *domain.Snapshot
}

func (v stateView) ContainerState(ref string) (domain.ContainerState, bool) {
	st, ok := v.s.Containers[ref]
	return st, ok
}

func (v stateView) Variables() map[string]any {
	return v.s.Variables
}

func (v stateView) Turn() int {
	return v.s.Turn
}
