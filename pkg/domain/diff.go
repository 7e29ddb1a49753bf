package domain

import (
	"reflect"
)

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	SessionID string `json:"session_id,omitempty"`

	CurrentNodeID *int `json:"current_node_id,omitempty"`

	// Variables contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Variables map[string]any `json:"variables,omitempty"`

	History *HistoryDelta `json:"history,omitempty"`

	Turn     *int  `json:"turn,omitempty"`
	Complete *bool `json:"complete,omitempty"`
}

// HistoryDelta represents changes to the story history.
type HistoryDelta struct {
	Appended []string `json:"appended"`
	// Reset is set when the history was cleared or rewritten; Appended then
	// holds the full new history.
	Reset bool `json:"reset,omitempty"`
}

// Diff calculates the difference between old and new.
// If old is nil, it returns a diff representing the entire new snapshot.
// It returns nil when nothing changed.
func Diff(old, new *Snapshot) *SnapshotDiff {
	if new == nil {
		return nil
	}

	diff := &SnapshotDiff{}

	if old == nil || old.CurrentNodeID != new.CurrentNodeID {
		id := new.CurrentNodeID
		diff.CurrentNodeID = &id
	}
	if (old == nil && new.Turn != 0) || (old != nil && old.Turn != new.Turn) {
		turn := new.Turn
		diff.Turn = &turn
	}
	if (old == nil && new.Complete) || (old != nil && old.Complete != new.Complete) {
		complete := new.Complete
		diff.Complete = &complete
	}

	diff.Variables = diffVariables(old, new)
	diff.History = diffHistory(old, new)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(old, new *Snapshot) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Variables {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Variables {
			oldVal, exists := old.Variables[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.Variables {
			if _, exists := new.Variables[k]; !exists {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffHistory(old, new *Snapshot) *HistoryDelta {
	if old == nil {
		if len(new.History) == 0 {
			return nil
		}
		return &HistoryDelta{Appended: new.History}
	}

	oldLen, newLen := len(old.History), len(new.History)
	if newLen >= oldLen && reflect.DeepEqual(old.History, new.History[:oldLen]) {
		if newLen == oldLen {
			return nil
		}
		return &HistoryDelta{Appended: new.History[oldLen:]}
	}

	// Rewritten, e.g. after a reset.
	return &HistoryDelta{Appended: append([]string{}, new.History...), Reset: true}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Turn == nil &&
		d.Complete == nil &&
		len(d.Variables) == 0 &&
		d.History == nil
}
