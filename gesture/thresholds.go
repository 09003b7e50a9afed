package gesture

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	DefaultMinSwipeLengthDp = 40
	DefaultMoveTolerancePx  = 10
	DefaultTriggerTimeoutMs = 200
)

// ThresholdConfig holds the tunables a session is judged against.
type ThresholdConfig struct {
	MinSwipeLengthPx int `json:"minSwipeLength"`
	MoveTolerancePx  int `json:"moveTolerance"`
	TriggerTimeoutMs int `json:"triggerTimeout"`
}

// TriggerTimeout returns the timeout as a duration.
func (c ThresholdConfig) TriggerTimeout() time.Duration {
	return time.Duration(c.TriggerTimeoutMs) * time.Millisecond
}

// Validate rejects configurations the recognizer cannot work with.
func (c ThresholdConfig) Validate() error {
	if c.MinSwipeLengthPx <= 0 {
		return fmt.Errorf("min swipe length must be positive, got %d", c.MinSwipeLengthPx)
	}
	if c.MoveTolerancePx < 0 {
		return fmt.Errorf("move tolerance must not be negative, got %d", c.MoveTolerancePx)
	}
	if c.TriggerTimeoutMs <= 0 {
		return fmt.Errorf("trigger timeout must be positive, got %d", c.TriggerTimeoutMs)
	}
	return nil
}

// DpToPx converts density-independent pixels using the display density.
func DpToPx(dp int, density float64) int {
	return int(math.Round(float64(dp) * density))
}

// DefaultThresholds returns the built-in thresholds for a display density.
func DefaultThresholds(density float64) ThresholdConfig {
	return ThresholdConfig{
		MinSwipeLengthPx: DpToPx(DefaultMinSwipeLengthDp, density),
		MoveTolerancePx:  DefaultMoveTolerancePx,
		TriggerTimeoutMs: DefaultTriggerTimeoutMs,
	}
}

// Thresholds is the shared, replace-wholesale threshold holder. Readers get
// an immutable snapshot; sessions keep the snapshot taken at DOWN.
type Thresholds struct {
	current atomic.Pointer[ThresholdConfig]
}

// NewThresholds wraps an initial configuration.
func NewThresholds(initial ThresholdConfig) *Thresholds {
	t := &Thresholds{}
	t.Store(initial)
	return t
}

// Snapshot returns the configuration currently in effect.
func (t *Thresholds) Snapshot() ThresholdConfig {
	return *t.current.Load()
}

// Store replaces the configuration.
func (t *Thresholds) Store(cfg ThresholdConfig) {
	t.current.Store(&cfg)
}

// ApplySettings handles a settings push: the swipe length arrives in dp and is
// converted with the density at the moment of the update. The move tolerance
// is left untouched.
func (t *Thresholds) ApplySettings(triggerTimeoutMs, minSwipeLengthDp int, density float64) (ThresholdConfig, error) {
	next := t.Snapshot()
	next.TriggerTimeoutMs = triggerTimeoutMs
	next.MinSwipeLengthPx = DpToPx(minSwipeLengthDp, density)
	if err := next.Validate(); err != nil {
		return ThresholdConfig{}, err
	}
	t.Store(next)
	return next, nil
}
