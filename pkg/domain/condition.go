package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// ConditionKind identifies a unary condition variant.
type ConditionKind string

const (
	StatusEquals ConditionKind = "status_equals"
	SeenCountGt  ConditionKind = "seen_count_gt"
	SeenCountLt  ConditionKind = "seen_count_lt"
	SeenCountEq  ConditionKind = "seen_count_eq"
	VariableEq   ConditionKind = "variable_eq"
	VariableGt   ConditionKind = "variable_gt"
	VariableLt   ConditionKind = "variable_lt"
	TurnGt       ConditionKind = "turn_gt"
	// Binary is reported by BinaryCondition.Kind.
	Binary ConditionKind = "binary"
)

// Operator joins the two sides of a BinaryCondition.
type Operator string

const (
	And Operator = "AND"
	Or  Operator = "OR"
)

// StateProvider exposes the runtime state conditions are evaluated against.
type StateProvider interface {
	// ContainerState returns the state of a knot or "knot.stitch" container.
	ContainerState(ref string) (ContainerState, bool)
	// Variables returns the current game variables.
	Variables() map[string]any
	// Turn returns the number of choices taken so far.
	Turn() int
}

// Condition gates a choice or content node.
type Condition interface {
	Kind() ConditionKind
	Evaluate(p StateProvider) bool
	String() string
}

// StatusCondition holds when the container is in the given status.
type StatusCondition struct {
	Container string          `json:"container"`
	Status    ContainerStatus `json:"status"`
}

// SeenCountCondition compares how many times a container was visited.
type SeenCountCondition struct {
	Op        ConditionKind `json:"kind"`
	Container string        `json:"container"`
	Count     int           `json:"count"`
}

// VariableCondition compares a game variable with a value.
// Missing variables read as 0 for the ordered comparisons.
type VariableCondition struct {
	Op       ConditionKind `json:"kind"`
	Variable string        `json:"variable"`
	Value    any           `json:"value"`
}

// TurnCondition holds once the turn counter is strictly past After.
type TurnCondition struct {
	After int `json:"after"`
}

// BinaryCondition combines two conditions. Both sides are always evaluated.
type BinaryCondition struct {
	Left  Condition `json:"left"`
	Op    Operator  `json:"op"`
	Right Condition `json:"right"`
}

// VariablePayload is the expected value shape for variable conditions.
type VariablePayload struct {
	Variable string `json:"variable" mapstructure:"variable"`
	Value    any    `json:"value" mapstructure:"value"`
}

func (c StatusCondition) Kind() ConditionKind { return StatusEquals }

func (c StatusCondition) Evaluate(p StateProvider) bool {
	st, ok := p.ContainerState(c.Container)
	if !ok {
		return false
	}
	return st.Status == c.Status
}

func (c StatusCondition) String() string {
	return fmt.Sprintf("status(%s) == %s", c.Container, c.Status)
}

func (c SeenCountCondition) Kind() ConditionKind { return c.Op }

func (c SeenCountCondition) Evaluate(p StateProvider) bool {
	st, ok := p.ContainerState(c.Container)
	if !ok {
		return false
	}
	switch c.Op {
	case SeenCountGt:
		return st.SeenCount > c.Count
	case SeenCountLt:
		return st.SeenCount < c.Count
	case SeenCountEq:
		return st.SeenCount == c.Count
	}
	return false
}

func (c SeenCountCondition) String() string {
	switch c.Op {
	case SeenCountEq:
		if c.Count == 0 {
			return "not " + c.Container
		}
		return fmt.Sprintf("%s == %d", c.Container, c.Count)
	case SeenCountLt:
		return fmt.Sprintf("%s < %d", c.Container, c.Count)
	default:
		if c.Count == 0 {
			return c.Container
		}
		return fmt.Sprintf("%s > %d", c.Container, c.Count)
	}
}

func (c VariableCondition) Kind() ConditionKind { return c.Op }

func (c VariableCondition) Evaluate(p StateProvider) bool {
	vars := p.Variables()
	current, exists := vars[c.Variable]

	switch c.Op {
	case VariableEq:
		if !exists {
			return false
		}
		return valuesEqual(current, c.Value)
	case VariableGt, VariableLt:
		want, ok := toNumber(c.Value)
		if !ok {
			return false
		}
		have := 0.0
		if exists {
			if have, ok = toNumber(current); !ok {
				return false
			}
		}
		if c.Op == VariableGt {
			return have > want
		}
		return have < want
	}
	return false
}

func (c VariableCondition) String() string {
	op := "=="
	switch c.Op {
	case VariableGt:
		op = ">"
	case VariableLt:
		op = "<"
	}
	return fmt.Sprintf("$%s %s %v", c.Variable, op, c.Value)
}

func (c TurnCondition) Kind() ConditionKind { return TurnGt }

func (c TurnCondition) Evaluate(p StateProvider) bool {
	return p.Turn() > c.After
}

func (c TurnCondition) String() string {
	return fmt.Sprintf("turn > %d", c.After)
}

func (c BinaryCondition) Kind() ConditionKind { return Binary }

func (c BinaryCondition) Evaluate(p StateProvider) bool {
	left := c.Left != nil && c.Left.Evaluate(p)
	right := c.Right != nil && c.Right.Evaluate(p)
	switch c.Op {
	case And:
		return left && right
	case Or:
		return left || right
	}
	return false
}

func (c BinaryCondition) String() string {
	return fmt.Sprintf("(%v %s %v)", c.Left, c.Op, c.Right)
}

// NewStatusEquals builds a StatusCondition.
func NewStatusEquals(container string, status ContainerStatus) (Condition, error) {
	if container == "" {
		return nil, newConditionError(StatusEquals, status, "container reference is required")
	}
	if !status.Valid() {
		return nil, newConditionError(StatusEquals, status, "unknown container status")
	}
	return StatusCondition{Container: container, Status: status}, nil
}

// NewSeenCount builds a SeenCountCondition for one of the SeenCount kinds.
func NewSeenCount(kind ConditionKind, container string, count int) (Condition, error) {
	switch kind {
	case SeenCountGt, SeenCountLt, SeenCountEq:
	default:
		return nil, newConditionError(kind, count, "not a seen-count kind")
	}
	if container == "" {
		return nil, newConditionError(kind, count, "container reference is required")
	}
	if count < 0 {
		return nil, newConditionError(kind, count, "count must be non-negative")
	}
	return SeenCountCondition{Op: kind, Container: container, Count: count}, nil
}

// NewTurnGt builds a TurnCondition.
func NewTurnGt(turn int) (Condition, error) {
	if turn < 0 {
		return nil, newConditionError(TurnGt, turn, "turn must be non-negative")
	}
	return TurnCondition{After: turn}, nil
}

// NewVariable builds a VariableCondition for one of the Variable kinds.
func NewVariable(kind ConditionKind, variable string, value any) (Condition, error) {
	payload := VariablePayload{Variable: variable, Value: value}
	switch kind {
	case VariableEq:
	case VariableGt, VariableLt:
		if _, ok := toInteger(value); !ok {
			return nil, newConditionError(kind, payload, "value must be an integer")
		}
	default:
		return nil, newConditionError(kind, payload, "not a variable kind")
	}
	if variable == "" {
		return nil, newConditionError(kind, payload, "variable name is required")
	}
	return VariableCondition{Op: kind, Variable: variable, Value: value}, nil
}

// NewUnary builds a unary condition from a loosely typed expected value, as
// found in decoded configuration or frontmatter. The expected value shape
// depends on kind: a ContainerStatus (or its string form) for StatusEquals,
// a non-negative integer for the SeenCount kinds and TurnGt, and a
// VariablePayload (or a map with "variable" and "value") for the Variable kinds.
func NewUnary(kind ConditionKind, ref string, expected any) (Condition, error) {
	switch kind {
	case StatusEquals:
		var status ContainerStatus
		switch v := expected.(type) {
		case ContainerStatus:
			status = v
		case string:
			status = ContainerStatus(v)
		default:
			return nil, newConditionError(kind, expected, "expected a container status")
		}
		return NewStatusEquals(ref, status)

	case SeenCountGt, SeenCountLt, SeenCountEq:
		n, ok := toInteger(expected)
		if !ok {
			return nil, newConditionError(kind, expected, "expected a non-negative integer")
		}
		return NewSeenCount(kind, ref, int(n))

	case TurnGt:
		n, ok := toInteger(expected)
		if !ok {
			return nil, newConditionError(kind, expected, "expected a non-negative integer")
		}
		return NewTurnGt(int(n))

	case VariableEq, VariableGt, VariableLt:
		switch v := expected.(type) {
		case VariablePayload:
			return NewVariable(kind, v.Variable, v.Value)
		case *VariablePayload:
			if v == nil {
				break
			}
			return NewVariable(kind, v.Variable, v.Value)
		case map[string]any:
			name, _ := v["variable"].(string)
			value, hasValue := v["value"]
			if !hasValue {
				return nil, newConditionError(kind, expected, "missing value")
			}
			return NewVariable(kind, name, value)
		}
		return nil, newConditionError(kind, expected, "expected a {variable, value} object")
	}
	return nil, newConditionError(kind, expected, "unknown condition kind")
}

// NewBinary combines two conditions. Operators other than AND and OR are
// accepted and always evaluate to false.
func NewBinary(left Condition, op Operator, right Condition) Condition {
	return BinaryCondition{Left: left, Op: op, Right: right}
}

func valuesEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toInteger(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		return i, err == nil
	}
	f, ok := toNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
