package devices

import (
	"sync"

	"github.com/mobile-next/edgenav/utils"
)

// Cleaner is anything holding device-side resources that must be released
// on exit, such as a running watch session.
type Cleaner interface {
	Cleanup() error
}

type DeviceRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Cleaner
}

// NewDeviceRegistry creates a new device registry instance
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{
		sessions: make(map[string]Cleaner),
	}
}

// Register tracks a session for the given device serial, replacing any
// previous one.
func (r *DeviceRegistry) Register(deviceID string, session Cleaner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[deviceID] = session
}

// Unregister stops tracking a device without cleaning it up.
func (r *DeviceRegistry) Unregister(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, deviceID)
}

// Count returns the number of tracked sessions
func (r *DeviceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CleanupAll gracefully cleans up all registered sessions. Sessions are
// released outside the lock since they may unregister themselves.
func (r *DeviceRegistry) CleanupAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]Cleaner)
	r.mu.Unlock()

	for id, session := range sessions {
		if err := session.Cleanup(); err != nil {
			utils.Verbose("Error cleaning up device %s: %v", id, err)
		}
	}
}
