package gesture

import (
	"fmt"
	"time"
)

// KeyCode is an Android key code the recognizer may inject.
type KeyCode int

const (
	KeyNone      KeyCode = 0
	KeyHome      KeyCode = 3
	KeyBack      KeyCode = 4
	KeyAppSwitch KeyCode = 187
)

func (k KeyCode) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyHome:
		return "home"
	case KeyBack:
		return "back"
	case KeyAppSwitch:
		return "app_switch"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// HapticKind selects the feedback pattern played for a resolution.
type HapticKind int

const (
	HapticVirtualKey HapticKind = iota
	HapticLongPress
)

func (h HapticKind) String() string {
	if h == HapticLongPress {
		return "long_press"
	}
	return "virtual_key"
}

// ActionDispatcher is everything the recognizer needs from the platform.
// Calls are fire-and-forget: implementations log their own failures.
type ActionDispatcher interface {
	TriggerHaptic(kind HapticKind)
	InjectKey(code KeyCode)
	ToggleRecents()
	PreloadRecents()
	CancelPreloadRecents()
	SwitchToLastApp()
	DismissInputMethod()
}

// BatchDispatcher is implemented by dispatchers that can take every call of
// one transition as a unit, so a resolution is never performed in part.
type BatchDispatcher interface {
	ActionDispatcher
	DispatchBatch(calls []func(ActionDispatcher))
}

// KeyguardProbe reports whether the lock screen is showing and not occluded.
type KeyguardProbe interface {
	KeyguardActive() bool
}

// KeyguardFunc adapts a plain function to KeyguardProbe.
type KeyguardFunc func() bool

func (f KeyguardFunc) KeyguardActive() bool { return f() }

// Outcome is the single navigation command resolved for a session.
type Outcome string

const (
	OutcomeBack    Outcome = "back"
	OutcomeHome    Outcome = "home"
	OutcomeRecents Outcome = "recents"
	OutcomeLastApp Outcome = "last_app"
)

// Resolution describes one resolved session, for observers.
type Resolution struct {
	SessionID  string         `json:"sessionId"`
	Outcome    Outcome        `json:"outcome"`
	Edge       NavigationEdge `json:"-"`
	EdgeName   string         `json:"edge"`
	DownTimeMs int64          `json:"downTime"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

// NopDispatcher ignores every call. Useful for dry runs.
type NopDispatcher struct{}

func (NopDispatcher) TriggerHaptic(HapticKind) {}
func (NopDispatcher) InjectKey(KeyCode)        {}
func (NopDispatcher) ToggleRecents()           {}
func (NopDispatcher) PreloadRecents()          {}
func (NopDispatcher) CancelPreloadRecents()    {}
func (NopDispatcher) SwitchToLastApp()         {}
func (NopDispatcher) DismissInputMethod()      {}
