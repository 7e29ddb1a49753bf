package domain

import (
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventChoice    EventType = "choice"
	EventComplete  EventType = "complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	StoryID   string    `json:"story_id,omitempty"`
}

// NodeEvent represents the engine stepping onto a node.
type NodeEvent struct {
	EventBase
	NodeID   int      `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
	Knot     string   `json:"knot,omitempty"`
	Stitch   string   `json:"stitch,omitempty"`
}

// ChoiceEvent represents a choice accepted by the engine.
type ChoiceEvent struct {
	EventBase
	NodeID int    `json:"node_id"`
	Text   string `json:"text"`
	Sticky bool   `json:"sticky,omitempty"`
	Turn   int    `json:"turn"`
}

// CompleteEvent represents the story reaching End or AutoEnd.
type CompleteEvent struct {
	EventBase
	NodeID int `json:"node_id"`
	Turns  int `json:"turns"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnNodeEnter func(*NodeEvent)
	OnChoice    func(*ChoiceEvent)
	OnComplete  func(*CompleteEvent)
}
