package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mobile-next/edgenav/config"
	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/journal"
	"github.com/mobile-next/edgenav/utils"
)

const (
	displayPollInterval = 2 * time.Second
	setupTimeout        = 15 * time.Second
)

// WatchRequest selects the device and touchscreen to watch.
type WatchRequest struct {
	DeviceID    string `json:"deviceId"`
	TouchDevice string `json:"touchDevice,omitempty"`
	// DryRun recognizes gestures without performing any device action.
	DryRun    bool `json:"dryRun,omitempty"`
	NoJournal bool `json:"noJournal,omitempty"`
}

// WatchSession is live recognition on one device.
type WatchSession struct {
	device   *devices.AndroidDevice
	engine   *Engine
	reader   *devices.TouchReader
	keyguard *devices.KeyguardMonitor
	hook     *devices.ShutdownHook

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	lastRotation int
	lastSettings deviceSettings
}

// deviceSettings are the threshold overrides stored on the device.
type deviceSettings struct {
	triggerTimeoutMs int
	swipeLimitDp     int
}

// StartWatch connects to the device, calibrates a recognizer for its display
// and prepares the touch reader. Call Run to start recognizing.
func StartWatch(ctx context.Context, req WatchRequest) (*WatchSession, error) {
	device, err := findAndroidDevice(req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("error finding device: %w", err)
	}

	cfg := GetConfig()
	setupCtx, cancelSetup := context.WithTimeout(ctx, setupTimeout)
	defer cancelSetup()

	display, err := device.DisplayInfo(setupCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to read display of %s: %w", device.ID(), err)
	}

	touchPath := req.TouchDevice
	if touchPath == "" {
		touchPath = cfg.Watch.TouchDevice
	}
	touch, err := device.Touchscreen(setupCtx, touchPath)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w := &WatchSession{
		device:       device,
		hook:         devices.NewShutdownHook(),
		ctx:          runCtx,
		cancel:       cancel,
		lastRotation: display.Rotation,
	}

	var store *journal.Store
	if cfg.Journal.Enabled && !req.NoJournal {
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			cancel()
			return nil, err
		}
		w.hook.Register("journal", store.Close)
	}

	var target gesture.ActionDispatcher = devices.NewAndroidDispatcher(device)
	if req.DryRun {
		target = gesture.NopDispatcher{}
	}
	queue := devices.NewQueuedDispatcher(target, cfg.Watch.QueueSize)
	w.hook.Register("dispatcher", queue.Close)

	w.keyguard = devices.NewKeyguardMonitor(device, cfg.KeyguardPollInterval())
	w.keyguard.Refresh(setupCtx)

	w.engine = NewEngine(EngineOptions{
		Config:     cfg,
		DeviceID:   device.ID(),
		Display:    display,
		Dispatcher: queue,
		Keyguard:   w.keyguard,
		Journal:    store,
	})

	if cfg.Watch.DeviceSettings {
		w.applyDeviceSettings(setupCtx, cfg)
	}

	w.reader = devices.NewTouchReader(device, *touch, display)
	w.hook.Register("reader", func() error {
		cancel()
		return nil
	})

	SetEngine(w.engine)
	if registry := GetRegistry(); registry != nil {
		registry.Register(device.ID(), w)
	}

	utils.Info("Watching %s (%s) on %s, edge %s", touch.Name, touch.Path, device.ID(), w.engine.Recognizer().Geometry().Edge)
	return w, nil
}

// Engine returns the recognizer wiring of this session.
func (w *WatchSession) Engine() *Engine {
	return w.engine
}

// Run blocks until the context is canceled or the touch stream ends.
func (w *WatchSession) Run() error {
	go w.keyguard.Run(w.ctx)
	go w.pollDisplay()

	return w.reader.Run(w.ctx, w.engine.Feed)
}

// Cleanup stops the session and releases its resources.
func (w *WatchSession) Cleanup() error {
	if registry := GetRegistry(); registry != nil {
		registry.Unregister(w.device.ID())
	}
	engineMu.Lock()
	if engine == w.engine {
		engine = nil
	}
	engineMu.Unlock()
	return w.hook.Shutdown()
}

func (w *WatchSession) pollDisplay() {
	ticker := time.NewTicker(displayPollInterval)
	defer ticker.Stop()

	cfg := GetConfig()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.refreshRotation()
			if cfg.Watch.DeviceSettings {
				w.applyDeviceSettings(w.ctx, cfg)
			}
		}
	}
}

func (w *WatchSession) refreshRotation() {
	ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
	defer cancel()

	rotation, err := w.device.Rotation(ctx)
	if err != nil {
		utils.Verbose("failed to poll rotation of %s: %v", w.device.ID(), err)
		return
	}

	w.mu.Lock()
	changed := rotation != w.lastRotation
	w.lastRotation = rotation
	w.mu.Unlock()
	if !changed {
		return
	}

	display := w.engine.Display()
	display.Rotation = rotation
	edge, err := w.engine.SetDisplay(display)
	if err != nil {
		utils.Verbose("ignoring rotation %d: %v", rotation, err)
		return
	}
	w.reader.SetRotation(rotation)
	utils.Info("Rotation changed to %d, navigation edge is now %s", rotation, edge)
}

// applyDeviceSettings pushes the device's threshold overrides into the
// recognizer when they changed. Unset keys fall back to the configuration.
func (w *WatchSession) applyDeviceSettings(ctx context.Context, cfg config.Config) {
	settings := deviceSettings{
		triggerTimeoutMs: cfg.Thresholds.TriggerTimeoutMs,
		swipeLimitDp:     cfg.Thresholds.MinSwipeLengthDp,
	}

	if v, ok, err := w.device.GetSetting(ctx, config.SettingTriggerTimeout); err != nil {
		utils.Verbose("failed to read %s: %v", config.SettingTriggerTimeout, err)
		return
	} else if ok {
		settings.triggerTimeoutMs = v
	}

	if v, ok, err := w.device.GetSetting(ctx, config.SettingSwipeLimit); err != nil {
		utils.Verbose("failed to read %s: %v", config.SettingSwipeLimit, err)
		return
	} else if ok {
		settings.swipeLimitDp = v
	}

	w.mu.Lock()
	if settings == w.lastSettings {
		w.mu.Unlock()
		return
	}
	w.lastSettings = settings
	w.mu.Unlock()

	next, err := w.engine.ApplySettings(settings.triggerTimeoutMs, settings.swipeLimitDp)
	if err != nil {
		utils.Warn("ignoring device gesture settings: %v", err)
		return
	}
	utils.Verbose("thresholds now swipe=%dpx tolerance=%dpx timeout=%dms", next.MinSwipeLengthPx, next.MoveTolerancePx, next.TriggerTimeoutMs)
}

// WatchResponse summarizes a finished watch.
type WatchResponse struct {
	DeviceID string        `json:"deviceId"`
	Stats    gesture.Stats `json:"stats"`
}

// WatchCommand recognizes gestures on a device until ctx is canceled.
// onResolve, when set, sees every resolution as it happens.
func WatchCommand(ctx context.Context, req WatchRequest, onResolve func(gesture.Resolution)) *CommandResponse {
	session, err := StartWatch(ctx, req)
	if err != nil {
		return NewErrorResponse(err)
	}
	defer func() {
		if err := session.Cleanup(); err != nil {
			utils.Verbose("watch cleanup: %v", err)
		}
	}()

	if onResolve != nil {
		session.Engine().Subscribe(onResolve)
	}

	runErr := session.Run()
	stats := session.Engine().Recognizer().Status().Stats
	if runErr != nil {
		return NewErrorResponse(runErr)
	}

	return NewSuccessResponse(WatchResponse{
		DeviceID: session.device.ID(),
		Stats:    stats,
	})
}
