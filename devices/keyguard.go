package devices

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mobile-next/edgenav/utils"
)

// DefaultKeyguardPollInterval is how often KeyguardMonitor refreshes.
const DefaultKeyguardPollInterval = 500 * time.Millisecond

// KeyguardShowing reports whether the lock screen is showing and not
// occluded by an activity.
func (d *AndroidDevice) KeyguardShowing(ctx context.Context) (bool, error) {
	output, err := d.shell(ctx, "dumpsys", "window")
	if err != nil {
		return false, err
	}
	return parseKeyguardShowing(output), nil
}

func parseKeyguardShowing(output string) bool {
	showing := false
	occluded := false
	for _, field := range strings.Fields(output) {
		switch field {
		case "mShowingLockscreen=true", "mKeyguardShowing=true", "isStatusBarKeyguard=true":
			showing = true
		case "mOccluded=true", "mKeyguardOccluded=true":
			occluded = true
		}
	}
	return showing && !occluded
}

// KeyguardMonitor polls the keyguard state in the background so the
// recognizer can read it at DOWN without an adb round trip.
type KeyguardMonitor struct {
	device   *AndroidDevice
	interval time.Duration
	active   atomic.Bool
}

// NewKeyguardMonitor creates a monitor; call Run to start polling.
func NewKeyguardMonitor(device *AndroidDevice, interval time.Duration) *KeyguardMonitor {
	if interval <= 0 {
		interval = DefaultKeyguardPollInterval
	}
	return &KeyguardMonitor{device: device, interval: interval}
}

// KeyguardActive returns the last polled state.
func (m *KeyguardMonitor) KeyguardActive() bool {
	return m.active.Load()
}

// Refresh polls once.
func (m *KeyguardMonitor) Refresh(ctx context.Context) {
	showing, err := m.device.KeyguardShowing(ctx)
	if err != nil {
		utils.Verbose("keyguard probe failed on %s: %v", m.device.ID(), err)
		return
	}
	if m.active.Swap(showing) != showing {
		utils.Verbose("keyguard showing=%v on %s", showing, m.device.ID())
	}
}

// Run polls until ctx is canceled.
func (m *KeyguardMonitor) Run(ctx context.Context) {
	m.Refresh(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}
