package enums

import "fmt"

// Modifier distinguishes how the active scenario was entered.
type Modifier string

const (
	ModifierInitial      Modifier = "initial"
	ModifierFromHistory  Modifier = "from_history"
	ModifierFromWriteoff Modifier = "from_writeoff"
)

var validModifiers = []Modifier{
	ModifierInitial,
	ModifierFromHistory,
	ModifierFromWriteoff,
}

// String implements fmt.Stringer.
func (m Modifier) String() string {
	return string(m)
}

// IsValid reports whether the value is a known Modifier.
func (m Modifier) IsValid() bool {
	for _, candidate := range validModifiers {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModifier converts raw input into a Modifier.
func ParseModifier(value string) (Modifier, error) {
	for _, candidate := range validModifiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid modifier %q", value)
}
