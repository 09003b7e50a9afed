package devices

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mobile-next/edgenav/utils"
)

// ShutdownHook tears down the resources of a running watch or server:
// the touch reader, the keyguard monitor, the dispatch queue and the journal.
// Hooks run in reverse registration order, so whatever started last stops first.
type ShutdownHook struct {
	mu    sync.Mutex
	hooks []namedHook
	done  bool
}

type namedHook struct {
	name string
	fn   func() error
}

// NewShutdownHook creates an empty hook list
func NewShutdownHook() *ShutdownHook {
	return &ShutdownHook{}
}

// Register adds a cleanup function. Registering after Shutdown runs the
// function immediately.
func (s *ShutdownHook) Register(name string, cleanupFn func() error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		utils.Verbose("Shutdown already ran, cleaning up %s now", name)
		if err := cleanupFn(); err != nil {
			utils.Verbose("Cleanup %s failed: %v", name, err)
		}
		return
	}
	s.hooks = append(s.hooks, namedHook{name: name, fn: cleanupFn})
	s.mu.Unlock()
}

// Cleanup satisfies Cleaner so a hook list can sit in the DeviceRegistry.
func (s *ShutdownHook) Cleanup() error {
	return s.Shutdown()
}

// Shutdown runs every hook once, continuing past failures.
func (s *ShutdownHook) Shutdown() error {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.done = true
	s.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		utils.Verbose("Stopping %s", hook.name)
		if err := hook.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
		}
	}

	return errors.Join(errs...)
}

// Count returns the number of pending hooks
func (s *ShutdownHook) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}
