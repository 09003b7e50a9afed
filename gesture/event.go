package gesture

import (
	"fmt"
	"strings"
)

// PointerAction is the masked action of a pointer event.
type PointerAction int

const (
	ActionDown PointerAction = iota
	ActionUp
	ActionMove
	ActionCancel
)

var actionNames = map[PointerAction]string{
	ActionDown:   "down",
	ActionUp:     "up",
	ActionMove:   "move",
	ActionCancel: "cancel",
}

func (a PointerAction) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// MarshalText lets actions travel as "down"/"move"/... in JSON.
func (a PointerAction) MarshalText() ([]byte, error) {
	if _, ok := actionNames[a]; !ok {
		return nil, fmt.Errorf("unknown pointer action %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *PointerAction) UnmarshalText(text []byte) error {
	parsed, err := ParsePointerAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParsePointerAction converts a case-insensitive action name.
func ParsePointerAction(s string) (PointerAction, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for action, name := range actionNames {
		if name == needle {
			return action, nil
		}
	}
	return 0, fmt.Errorf("unknown pointer action %q", s)
}

// PointerEvent is one sample of the tracked contact in display pixels.
type PointerEvent struct {
	Action      PointerAction `json:"action"`
	RawX        float64       `json:"x"`
	RawY        float64       `json:"y"`
	EventTimeMs int64         `json:"t"`
	DeviceID    int           `json:"dev"`
}
