package gesture

import (
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/mobile-next/edgenav/utils"
)

// Recognizer states as reported by Status.
const (
	StateIdle      = "idle"
	StateInert     = "inert"
	StateEdgeArmed = "edge_armed"
	StateResolved  = "resolved"
)

// Options configures a Recognizer. Zero values fall back to sane defaults.
type Options struct {
	Dispatcher ActionDispatcher
	Keyguard   KeyguardProbe
	Thresholds *Thresholds
	Geometry   Geometry
	Clock      Clock
}

// Stats counts what the recognizer has seen since it was created.
type Stats struct {
	Sessions        int             `json:"sessions"`
	KeyguardIgnored int             `json:"keyguardIgnored"`
	Canceled        int             `json:"canceled"`
	Resolved        map[Outcome]int `json:"resolved"`
}

// Status is a point-in-time view of the recognizer.
type Status struct {
	State      string          `json:"state"`
	SessionID  string          `json:"sessionId,omitempty"`
	Prepared   string          `json:"prepared,omitempty"`
	Edge       string          `json:"edge"`
	Geometry   Geometry        `json:"geometry"`
	Thresholds ThresholdConfig `json:"thresholds"`
	Stats      Stats           `json:"stats"`
}

// session is the state of one tracked contact, from DOWN to UP/CANCEL.
type session struct {
	id         string
	seq        uint64
	deviceID   int
	downTimeMs int64
	fromX      float64
	fromY      float64
	lastX      float64
	lastY      float64

	prepared   KeyCode
	geometry   Geometry
	thresholds ThresholdConfig

	keyResolved        bool
	longPressArmed     bool
	recentsArmed       bool
	longSwipeObserved  bool
	preloadOutstanding bool
	imeDismissed       bool

	// armTokens invalidates callbacks of a timer that was disarmed or
	// re-armed after its callback already left the scheduler.
	armTokens map[TimerName]uint64
	nextToken uint64
}

// batch collects the side effects of one transition. They run after the
// recognizer lock is released.
type batch struct {
	calls    []func(ActionDispatcher)
	resolved []Resolution
}

func (b *batch) call(fn func(ActionDispatcher)) {
	b.calls = append(b.calls, fn)
}

// Recognizer is the edge-swipe state machine. Pointer events and timer
// firings are serialized through one mutex, so a single transition function
// sees a consistent session.
type Recognizer struct {
	mu         sync.Mutex
	dispatcher ActionDispatcher
	keyguard   KeyguardProbe
	thresholds *Thresholds
	geometry   Geometry
	clock      Clock
	timers     *TimerScheduler

	seq       uint64
	session   *session
	inert     bool
	stats     Stats
	observers []func(Resolution)
}

// NewRecognizer creates an idle recognizer.
func NewRecognizer(opts Options) *Recognizer {
	r := &Recognizer{
		dispatcher: opts.Dispatcher,
		keyguard:   opts.Keyguard,
		thresholds: opts.Thresholds,
		geometry:   opts.Geometry,
		clock:      opts.Clock,
		stats:      Stats{Resolved: make(map[Outcome]int)},
	}
	if r.dispatcher == nil {
		r.dispatcher = NopDispatcher{}
	}
	if r.thresholds == nil {
		r.thresholds = NewThresholds(DefaultThresholds(1))
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.geometry.BandWidthPx == 0 {
		r.geometry.BandWidthPx = DefaultBandWidthPx
	}
	r.timers = NewTimerScheduler(r.clock)
	return r
}

// Thresholds exposes the shared threshold holder for settings pushes.
func (r *Recognizer) Thresholds() *Thresholds {
	return r.thresholds
}

// OnResolve registers an observer called after each resolution, outside the
// recognizer lock.
func (r *Recognizer) OnResolve(fn func(Resolution)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// UpdateGeometry applies a display rotation or configuration change. A
// session in flight keeps the geometry it started with.
func (r *Recognizer) UpdateGeometry(displayWidth, displayHeight int, rotation Rotation) NavigationEdge {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge := r.geometry.Update(displayWidth, displayHeight, rotation)
	utils.Verbose("geometry updated: %dx%d rotation=%d edge=%s", displayWidth, displayHeight, rotation, edge)
	return edge
}

// Geometry returns the current screen model.
func (r *Recognizer) Geometry() Geometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geometry
}

// Status reports the current state and counters.
func (r *Recognizer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		State:      StateIdle,
		Edge:       r.geometry.Edge.String(),
		Geometry:   r.geometry,
		Thresholds: r.thresholds.Snapshot(),
		Stats: Stats{
			Sessions:        r.stats.Sessions,
			KeyguardIgnored: r.stats.KeyguardIgnored,
			Canceled:        r.stats.Canceled,
			Resolved:        make(map[Outcome]int, len(r.stats.Resolved)),
		},
	}
	for k, v := range r.stats.Resolved {
		st.Stats.Resolved[k] = v
	}

	switch {
	case r.inert:
		st.State = StateInert
	case r.session != nil:
		s := r.session
		st.SessionID = s.id
		st.Prepared = s.prepared.String()
		st.Thresholds = s.thresholds
		st.State = StateEdgeArmed
		if s.keyResolved {
			st.State = StateResolved
		}
	}
	return st
}

// HandleEvent feeds one pointer sample. Events must arrive in time order from
// a single producer.
func (r *Recognizer) HandleEvent(ev PointerEvent) {
	var out batch

	r.mu.Lock()
	switch ev.Action {
	case ActionDown:
		r.onDown(ev, &out)
	case ActionMove:
		r.onMove(ev, &out)
	case ActionUp:
		r.onUp(&out)
	case ActionCancel:
		r.onCancel()
	}
	observers := r.observers
	r.mu.Unlock()

	r.flush(out, observers)
}

func (r *Recognizer) onDown(ev PointerEvent, out *batch) {
	if r.session != nil {
		utils.Verbose("session %s dropped by a new down", r.session.id)
		r.closeLocked()
	}
	r.inert = false

	if r.keyguard != nil && r.keyguard.KeyguardActive() {
		r.inert = true
		r.stats.KeyguardIgnored++
		utils.Verbose("down ignored, keyguard showing")
		return
	}

	geo := r.geometry
	if !geo.InBand(ev.RawX, ev.RawY) {
		return
	}

	r.seq++
	s := &session{
		id:         uuid.NewString(),
		seq:        r.seq,
		deviceID:   ev.DeviceID,
		downTimeMs: ev.EventTimeMs,
		fromX:      ev.RawX,
		fromY:      ev.RawY,
		lastX:      ev.RawX,
		lastY:      ev.RawY,
		prepared:   geo.PrepareAction(ev.RawX, ev.RawY),
		geometry:   geo,
		thresholds: r.thresholds.Snapshot(),
		armTokens:  make(map[TimerName]uint64),
	}
	r.session = s
	r.stats.Sessions++

	utils.Verbose("session %s down at (%.0f,%.0f) edge=%s prepared=%s dev=%d", s.id, ev.RawX, ev.RawY, geo.Edge, s.prepared, ev.DeviceID)

	// a finger that never reports movement must still be able to long-press
	if s.prepared == KeyHome {
		r.armLocked(s, TimerLongPress)
	}
}

func (r *Recognizer) onMove(ev PointerEvent, out *batch) {
	s := r.session
	if s == nil || s.keyResolved || s.recentsArmed {
		return
	}

	pos := s.geometry.swipeAxis(ev.RawX, ev.RawY)
	sinceDown := math.Abs(pos - s.geometry.swipeAxis(s.fromX, s.fromY))
	sinceLast := math.Abs(pos - s.geometry.swipeAxis(s.lastX, s.lastY))
	minLength := float64(s.thresholds.MinSwipeLengthPx)
	settled := sinceLast < float64(s.thresholds.MoveTolerancePx)

	if s.prepared == KeyHome && sinceDown < minLength {
		if settled {
			r.armLocked(s, TimerLongPress)
		} else {
			r.disarmLocked(s, TimerLongPress)
		}
	}

	if sinceDown > minLength {
		r.disarmLocked(s, TimerLongPress)
		if !s.longSwipeObserved {
			utils.Verbose("session %s swipe observed, distance=%.0f", s.id, sinceDown)
		}
		s.longSwipeObserved = true

		// back only resolves on release
		if s.prepared == KeyHome && !s.recentsArmed && settled {
			r.armLocked(s, TimerRecentsSettle)
			s.preloadOutstanding = true
			out.call(func(d ActionDispatcher) { d.PreloadRecents() })
		}
	}

	s.lastX = ev.RawX
	s.lastY = ev.RawY
}

func (r *Recognizer) onUp(out *batch) {
	r.inert = false
	s := r.session
	if s == nil {
		return
	}

	r.timers.Cancel(TimerLongPress)
	r.timers.Cancel(TimerRecentsSettle)
	if s.preloadOutstanding {
		s.preloadOutstanding = false
		out.call(func(d ActionDispatcher) { d.CancelPreloadRecents() })
	}

	if !s.keyResolved && s.longSwipeObserved {
		key := s.prepared
		if key == KeyHome && !s.imeDismissed {
			s.imeDismissed = true
			out.call(func(d ActionDispatcher) { d.DismissInputMethod() })
		}
		outcome := OutcomeBack
		if key == KeyHome {
			outcome = OutcomeHome
		}
		r.resolveLocked(s, outcome, out, func(d ActionDispatcher) {
			d.TriggerHaptic(HapticVirtualKey)
			d.InjectKey(key)
		})
	}

	utils.Verbose("session %s up, resolved=%v", s.id, s.keyResolved)
	r.closeLocked()
}

func (r *Recognizer) onCancel() {
	r.inert = false
	if r.session == nil {
		return
	}
	utils.Verbose("session %s canceled", r.session.id)
	r.stats.Canceled++
	r.closeLocked()
}

// onTimer runs on the clock's goroutine once a trigger comes due.
func (r *Recognizer) onTimer(name TimerName, seq, token uint64) {
	var out batch

	r.mu.Lock()
	s := r.session
	if s == nil || s.seq != seq || s.keyResolved || s.armTokens[name] != token {
		r.mu.Unlock()
		return
	}
	delete(s.armTokens, name)

	switch name {
	case TimerLongPress:
		s.longPressArmed = false
		r.resolveLocked(s, OutcomeLastApp, &out, func(d ActionDispatcher) {
			d.TriggerHaptic(HapticLongPress)
			d.SwitchToLastApp()
		})
	case TimerRecentsSettle:
		// the toggle consumes the preload
		s.preloadOutstanding = false
		r.resolveLocked(s, OutcomeRecents, &out, func(d ActionDispatcher) {
			d.TriggerHaptic(HapticVirtualKey)
			d.ToggleRecents()
		})
	}
	observers := r.observers
	r.mu.Unlock()

	r.flush(out, observers)
}

func (r *Recognizer) armLocked(s *session, name TimerName) {
	s.nextToken++
	token := s.nextToken
	s.armTokens[name] = token
	seq := s.seq

	switch name {
	case TimerLongPress:
		s.longPressArmed = true
	case TimerRecentsSettle:
		s.recentsArmed = true
	}

	r.timers.Schedule(name, s.thresholds.TriggerTimeout(), func() {
		r.onTimer(name, seq, token)
	})
}

func (r *Recognizer) disarmLocked(s *session, name TimerName) {
	delete(s.armTokens, name)
	if name == TimerLongPress {
		s.longPressArmed = false
	}
	r.timers.Cancel(name)
}

// resolveLocked marks the session resolved; keyResolved never goes back to
// false while the session lives.
func (r *Recognizer) resolveLocked(s *session, outcome Outcome, out *batch, fn func(ActionDispatcher)) {
	if s.keyResolved {
		return
	}
	s.keyResolved = true
	r.stats.Resolved[outcome]++
	utils.Verbose("session %s resolved: %s", s.id, outcome)

	out.call(fn)
	out.resolved = append(out.resolved, Resolution{
		SessionID:  s.id,
		Outcome:    outcome,
		Edge:       s.geometry.Edge,
		EdgeName:   s.geometry.Edge.String(),
		DownTimeMs: s.downTimeMs,
		ResolvedAt: r.clock.Now(),
	})
}

// closeLocked returns to idle. Both timers are canceled on every exit so no
// callback can outlive its session.
func (r *Recognizer) closeLocked() {
	r.timers.Cancel(TimerLongPress)
	r.timers.Cancel(TimerRecentsSettle)
	r.session = nil
}

func (r *Recognizer) flush(out batch, observers []func(Resolution)) {
	if bd, ok := r.dispatcher.(BatchDispatcher); ok && len(out.calls) > 0 {
		bd.DispatchBatch(out.calls)
	} else {
		for _, fn := range out.calls {
			fn(r.dispatcher)
		}
	}
	for _, res := range out.resolved {
		for _, obs := range observers {
			obs(res)
		}
	}
}
