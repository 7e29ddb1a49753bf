package domain

// ContainerStatus is the lifecycle status of a knot or stitch.
type ContainerStatus string

const (
	StatusNotClicked ContainerStatus = "not_clicked"
	StatusClicked    ContainerStatus = "clicked"
	StatusSeen       ContainerStatus = "seen"
	StatusNotSeen    ContainerStatus = "not_seen"
	StatusDisabled   ContainerStatus = "disabled"
	StatusActive     ContainerStatus = "active"
)

// Valid reports whether s is one of the known statuses.
func (s ContainerStatus) Valid() bool {
	switch s {
	case StatusNotClicked, StatusClicked, StatusSeen, StatusNotSeen, StatusDisabled, StatusActive:
		return true
	}
	return false
}

// ContainerState tracks visits to a named knot or "knot.stitch".
type ContainerState struct {
	Status       ContainerStatus `json:"status"`
	SeenCount    int             `json:"seen_count"`
	LastSeenTurn *int            `json:"last_seen_turn,omitempty"`
}

// NewContainerState returns the state of a container nobody has entered yet.
func NewContainerState() ContainerState {
	return ContainerState{Status: StatusNotClicked}
}

// Snapshot is the serializable runtime state of one walk through a story.
// It is what session stores persist between requests.
type Snapshot struct {
	StoryID string `json:"story_id,omitempty"`
	// Digest identifies the compiled story the snapshot belongs to.
	Digest string `json:"digest,omitempty"`

	CurrentNodeID int      `json:"current_node_id"`
	History       []string `json:"history"`

	NodeVisited map[int]int  `json:"node_visited"`
	Revisitable map[int]bool `json:"revisitable"`
	ChoiceOrder map[int]int  `json:"choice_order"`

	Containers map[string]ContainerState `json:"containers"`
	Variables  map[string]any            `json:"variables"`

	Turn     int  `json:"turn"`
	Complete bool `json:"complete"`
}

// NewSnapshot returns an empty snapshot positioned at BEGIN.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		CurrentNodeID: BeginID,
		History:       []string{},
		NodeVisited:   make(map[int]int),
		Revisitable:   make(map[int]bool),
		ChoiceOrder:   make(map[int]int),
		Containers:    make(map[string]ContainerState),
		Variables:     make(map[string]any),
	}
}

// Clone returns a deep copy. Variable values are copied shallowly.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		StoryID:       s.StoryID,
		Digest:        s.Digest,
		CurrentNodeID: s.CurrentNodeID,
		History:       append([]string{}, s.History...),
		NodeVisited:   make(map[int]int, len(s.NodeVisited)),
		Revisitable:   make(map[int]bool, len(s.Revisitable)),
		ChoiceOrder:   make(map[int]int, len(s.ChoiceOrder)),
		Containers:    make(map[string]ContainerState, len(s.Containers)),
		Variables:     make(map[string]any, len(s.Variables)),
		Turn:          s.Turn,
		Complete:      s.Complete,
	}
	for k, v := range s.NodeVisited {
		c.NodeVisited[k] = v
	}
	for k, v := range s.Revisitable {
		c.Revisitable[k] = v
	}
	for k, v := range s.ChoiceOrder {
		c.ChoiceOrder[k] = v
	}
	for k, v := range s.Containers {
		if v.LastSeenTurn != nil {
			turn := *v.LastSeenTurn
			v.LastSeenTurn = &turn
		}
		c.Containers[k] = v
	}
	for k, v := range s.Variables {
		c.Variables[k] = v
	}
	return c
}
