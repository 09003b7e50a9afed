package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mobile-next/edgenav/config"
	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/journal"
	"github.com/mobile-next/edgenav/types"
	"github.com/mobile-next/edgenav/utils"
	"github.com/sirupsen/logrus"
)

// DefaultDisplay is assumed by engines that are not attached to a device
// until a geometry update arrives.
var DefaultDisplay = types.DisplayInfo{
	Natural: types.Size{Width: 1080, Height: 2160},
	Density: 1,
}

const journalWriteTimeout = 2 * time.Second

// EngineOptions wires an Engine to its collaborators.
type EngineOptions struct {
	Config     config.Config
	DeviceID   string
	Display    *types.DisplayInfo
	Dispatcher gesture.ActionDispatcher
	Keyguard   gesture.KeyguardProbe
	Clock      gesture.Clock
	Journal    *journal.Store
}

// Engine owns one recognizer together with the display it is calibrated for,
// the journal it writes to and the listeners streaming its resolutions.
type Engine struct {
	recognizer *gesture.Recognizer
	deviceID   string
	journal    *journal.Store

	mu      sync.RWMutex
	display types.DisplayInfo
	subs    map[uint64]func(gesture.Resolution)
	nextSub uint64
}

// NewEngine builds a recognizer from the configuration and display.
func NewEngine(opts EngineOptions) *Engine {
	display := DefaultDisplay
	if opts.Display != nil {
		display = *opts.Display
	}
	if display.Density <= 0 {
		display.Density = 1
	}

	current := display.Current()
	geometry := gesture.NewGeometry(current.Width, current.Height, opts.Config.Band.WidthPx)
	geometry.Update(current.Width, current.Height, gesture.Rotation(display.Rotation))

	e := &Engine{
		deviceID: opts.DeviceID,
		journal:  opts.Journal,
		display:  display,
		subs:     make(map[uint64]func(gesture.Resolution)),
	}
	e.recognizer = gesture.NewRecognizer(gesture.Options{
		Dispatcher: opts.Dispatcher,
		Keyguard:   opts.Keyguard,
		Thresholds: gesture.NewThresholds(opts.Config.GestureThresholds(display.Density)),
		Geometry:   geometry,
		Clock:      opts.Clock,
	})
	e.recognizer.OnResolve(e.onResolve)
	return e
}

// NewOfflineEngine returns an engine that is fed events through the API and
// performs no device actions.
func NewOfflineEngine(cfg config.Config, store *journal.Store) *Engine {
	return NewEngine(EngineOptions{Config: cfg, Journal: store})
}

func (e *Engine) Recognizer() *gesture.Recognizer {
	return e.recognizer
}

func (e *Engine) DeviceID() string {
	return e.deviceID
}

func (e *Engine) Journal() *journal.Store {
	return e.journal
}

// Display returns the display the engine is calibrated for.
func (e *Engine) Display() types.DisplayInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.display
}

// Feed passes one pointer event to the recognizer.
func (e *Engine) Feed(ev gesture.PointerEvent) {
	e.recognizer.HandleEvent(ev)
}

// SetDisplay recalibrates for a new display size, density or rotation.
func (e *Engine) SetDisplay(display types.DisplayInfo) (gesture.NavigationEdge, error) {
	if display.Natural.Width <= 0 || display.Natural.Height <= 0 {
		return 0, fmt.Errorf("display size must be positive, got %dx%d", display.Natural.Width, display.Natural.Height)
	}
	if display.Rotation < 0 || display.Rotation > 3 {
		return 0, fmt.Errorf("rotation must be 0-3, got %d", display.Rotation)
	}
	if display.Density <= 0 {
		display.Density = e.Display().Density
	}

	e.mu.Lock()
	e.display = display
	e.mu.Unlock()

	current := display.Current()
	return e.recognizer.UpdateGeometry(current.Width, current.Height, gesture.Rotation(display.Rotation)), nil
}

// ApplySettings converts a settings push with the current density.
func (e *Engine) ApplySettings(triggerTimeoutMs, minSwipeLengthDp int) (gesture.ThresholdConfig, error) {
	return e.recognizer.Thresholds().ApplySettings(triggerTimeoutMs, minSwipeLengthDp, e.Display().Density)
}

// Subscribe registers fn for every resolution until the returned func is called.
func (e *Engine) Subscribe(fn func(gesture.Resolution)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Subscribers counts the registered resolution listeners.
func (e *Engine) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

func (e *Engine) onResolve(r gesture.Resolution) {
	utils.Logger().WithFields(logrus.Fields{
		"device":  e.deviceID,
		"session": r.SessionID,
		"edge":    r.EdgeName,
	}).Debugf("resolved %s", r.Outcome)

	if e.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		if err := e.journal.Record(ctx, e.deviceID, r); err != nil {
			utils.Warn("failed to journal resolution: %v", err)
		}
		cancel()
	}

	e.mu.RLock()
	subs := make([]func(gesture.Resolution), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(r)
	}
}

var (
	engineMu sync.RWMutex
	engine   *Engine
)

// SetEngine installs the engine that API commands operate on.
func SetEngine(e *Engine) {
	engineMu.Lock()
	defer engineMu.Unlock()
	engine = e
}

// GetEngine returns the active engine, or nil when none is running.
func GetEngine() *Engine {
	engineMu.RLock()
	defer engineMu.RUnlock()
	return engine
}

func requireEngine() (*Engine, error) {
	e := GetEngine()
	if e == nil {
		return nil, fmt.Errorf("no recognizer is running, start one with 'edgenav watch' or 'edgenav server start'")
	}
	return e, nil
}
