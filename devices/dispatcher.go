package devices

import (
	"context"
	"sync"
	"time"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/utils"
)

const (
	adbActionTimeout = 5 * time.Second

	virtualKeyVibrationMs = 20
	longPressVibrationMs  = 60
)

// AndroidDispatcher performs resolved gestures on a device over adb.
// Failures are logged and otherwise ignored: the gesture is consumed either way.
type AndroidDispatcher struct {
	device *AndroidDevice
}

// NewAndroidDispatcher returns a dispatcher for the given device.
func NewAndroidDispatcher(device *AndroidDevice) *AndroidDispatcher {
	return &AndroidDispatcher{device: device}
}

func (a *AndroidDispatcher) do(what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), adbActionTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		utils.Verbose("%s on %s failed: %v", what, a.device.ID(), err)
	}
}

func (a *AndroidDispatcher) TriggerHaptic(kind gesture.HapticKind) {
	millis := virtualKeyVibrationMs
	if kind == gesture.HapticLongPress {
		millis = longPressVibrationMs
	}
	a.do("haptic", func(ctx context.Context) error {
		return a.device.Vibrate(ctx, millis)
	})
}

func (a *AndroidDispatcher) InjectKey(code gesture.KeyCode) {
	a.do("inject key", func(ctx context.Context) error {
		return a.device.InjectKey(ctx, code)
	})
}

func (a *AndroidDispatcher) ToggleRecents() {
	a.do("toggle recents", func(ctx context.Context) error {
		return a.device.InjectKey(ctx, gesture.KeyAppSwitch)
	})
}

// PreloadRecents has no adb counterpart; the recents screen loads when toggled.
func (a *AndroidDispatcher) PreloadRecents() {
	utils.Verbose("preload recents on %s", a.device.ID())
}

func (a *AndroidDispatcher) CancelPreloadRecents() {
	utils.Verbose("cancel recents preload on %s", a.device.ID())
}

func (a *AndroidDispatcher) SwitchToLastApp() {
	a.do("switch to last app", a.device.SwitchToLastApp)
}

func (a *AndroidDispatcher) DismissInputMethod() {
	a.do("dismiss input method", func(ctx context.Context) error {
		shown, err := a.device.InputMethodShown(ctx)
		if err != nil || !shown {
			return err
		}
		// back closes the keyboard before it reaches the app
		return a.device.InjectKey(ctx, gesture.KeyBack)
	})
}

// QueuedDispatcher runs dispatcher calls on a worker goroutine so the
// recognizer never waits for a device round trip. Calls keep their order.
type QueuedDispatcher struct {
	target gesture.ActionDispatcher
	queue  chan func(gesture.ActionDispatcher)
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewQueuedDispatcher starts a worker in front of target.
func NewQueuedDispatcher(target gesture.ActionDispatcher, size int) *QueuedDispatcher {
	if size <= 0 {
		size = 32
	}
	q := &QueuedDispatcher{
		target: target,
		queue:  make(chan func(gesture.ActionDispatcher), size),
		done:   make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *QueuedDispatcher) loop() {
	defer close(q.done)
	for fn := range q.queue {
		fn(q.target)
	}
}

// enqueue hands fn to the worker without blocking. calls is the number of
// dispatcher calls fn makes, for the overflow warning.
func (q *QueuedDispatcher) enqueue(fn func(gesture.ActionDispatcher), calls int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.queue <- fn:
	default:
		utils.Logger().WithField("calls", calls).Warn("dispatch queue full, dropping action")
	}
}

func (q *QueuedDispatcher) call(fn func(gesture.ActionDispatcher)) {
	q.enqueue(fn, 1)
}

// DispatchBatch queues calls as one entry: the worker runs all of them in
// order, or none when the queue is full.
func (q *QueuedDispatcher) DispatchBatch(calls []func(gesture.ActionDispatcher)) {
	if len(calls) == 0 {
		return
	}
	calls = append(([]func(gesture.ActionDispatcher))(nil), calls...)
	q.enqueue(func(d gesture.ActionDispatcher) {
		for _, fn := range calls {
			fn(d)
		}
	}, len(calls))
}

// Close drains pending calls and stops the worker.
func (q *QueuedDispatcher) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()
	<-q.done
	return nil
}

func (q *QueuedDispatcher) TriggerHaptic(kind gesture.HapticKind) {
	q.call(func(d gesture.ActionDispatcher) { d.TriggerHaptic(kind) })
}

func (q *QueuedDispatcher) InjectKey(code gesture.KeyCode) {
	q.call(func(d gesture.ActionDispatcher) { d.InjectKey(code) })
}

func (q *QueuedDispatcher) ToggleRecents() {
	q.call(func(d gesture.ActionDispatcher) { d.ToggleRecents() })
}

func (q *QueuedDispatcher) PreloadRecents() {
	q.call(func(d gesture.ActionDispatcher) { d.PreloadRecents() })
}

func (q *QueuedDispatcher) CancelPreloadRecents() {
	q.call(func(d gesture.ActionDispatcher) { d.CancelPreloadRecents() })
}

func (q *QueuedDispatcher) SwitchToLastApp() {
	q.call(func(d gesture.ActionDispatcher) { d.SwitchToLastApp() })
}

func (q *QueuedDispatcher) DismissInputMethod() {
	q.call(func(d gesture.ActionDispatcher) { d.DismissInputMethod() })
}
