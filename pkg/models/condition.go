package models

import (
	"fmt"
	"strings"
)

// Condition names a pipeline variant. Each variant toggles state building
// and the verify/repair loop; stages select on the capability flags, never
// on the condition name itself.
type Condition string

const (
	// ConditionA0 is the bare pipeline: no state, no repair.
	ConditionA0 Condition = "A0"
	// ConditionA1 builds narrative state before translating.
	ConditionA1 Condition = "A1"
	// ConditionA2 permits the verify/repair loop.
	ConditionA2 Condition = "A2"
	// ConditionA3 combines state building with the verify/repair loop.
	ConditionA3 Condition = "A3"
)

// IsValid checks if the condition is valid.
func (c Condition) IsValid() bool {
	switch c {
	case ConditionA0, ConditionA1, ConditionA2, ConditionA3:
		return true
	default:
		return false
	}
}

// Capabilities records what a condition switches on.
type Capabilities struct {
	HasState        bool
	HasVerifyRepair bool
}

// Flags maps the condition to its capability toggles.
func (c Condition) Flags() Capabilities {
	switch c {
	case ConditionA1:
		return Capabilities{HasState: true}
	case ConditionA2:
		return Capabilities{HasVerifyRepair: true}
	case ConditionA3:
		return Capabilities{HasState: true, HasVerifyRepair: true}
	default:
		return Capabilities{}
	}
}

// AllConditions lists every condition in canonical order.
func AllConditions() []Condition {
	return []Condition{ConditionA0, ConditionA1, ConditionA2, ConditionA3}
}

// ParseCondition validates a single condition name.
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown condition %q (expected A0, A1, A2 or A3)", s)
	}
	return c, nil
}

// ParseConditionList parses a comma-separated condition list. Whitespace is
// trimmed, duplicates are dropped, and the result preserves input order.
// An empty list is an error.
func ParseConditionList(s string) ([]Condition, error) {
	var conditions []Condition
	seen := make(map[Condition]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := ParseCondition(part)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		conditions = append(conditions, c)
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("condition list %q is empty", s)
	}
	return conditions, nil
}
