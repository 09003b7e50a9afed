package gesture

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *recordingDispatcher) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *recordingDispatcher) TriggerHaptic(kind HapticKind) { d.record("haptic:" + kind.String()) }
func (d *recordingDispatcher) InjectKey(code KeyCode)        { d.record("key:" + code.String()) }
func (d *recordingDispatcher) ToggleRecents()                { d.record("toggle_recents") }
func (d *recordingDispatcher) PreloadRecents()               { d.record("preload_recents") }
func (d *recordingDispatcher) CancelPreloadRecents()         { d.record("cancel_preload_recents") }
func (d *recordingDispatcher) SwitchToLastApp()              { d.record("last_app") }
func (d *recordingDispatcher) DismissInputMethod()           { d.record("dismiss_ime") }

var testThresholds = ThresholdConfig{
	MinSwipeLengthPx: 100,
	MoveTolerancePx:  10,
	TriggerTimeoutMs: 200,
}

type harness struct {
	r          *Recognizer
	clock      *ManualClock
	dispatcher *recordingDispatcher
	locked     bool
	now        int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:      NewManualClock(time.Unix(1700000000, 0)),
		dispatcher: &recordingDispatcher{},
	}
	h.r = NewRecognizer(Options{
		Dispatcher: h.dispatcher,
		Keyguard:   KeyguardFunc(func() bool { return h.locked }),
		Thresholds: NewThresholds(testThresholds),
		Geometry:   NewGeometry(1080, 2160, 20),
		Clock:      h.clock,
	})
	return h
}

func (h *harness) send(action PointerAction, x, y float64) {
	h.now += 10
	h.clock.Advance(10 * time.Millisecond)
	h.r.HandleEvent(PointerEvent{Action: action, RawX: x, RawY: y, EventTimeMs: h.now, DeviceID: 3})
}

func (h *harness) down(x, y float64) { h.send(ActionDown, x, y) }
func (h *harness) move(x, y float64) { h.send(ActionMove, x, y) }
func (h *harness) up(x, y float64)   { h.send(ActionUp, x, y) }

func (h *harness) wait(d time.Duration) { h.clock.Advance(d) }

func TestRecognizer_PreparedActionByZone(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want string
	}{
		{"scenario A middle third is home", 540, 2145, "home"},
		{"scenario B outer third is back", 100, 2145, "back"},
		{"right third is back", 1000, 2150, "back"},
		{"lower boundary belongs to home", 360, 2150, "home"},
		{"upper boundary belongs to home", 720, 2150, "home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.down(tt.x, tt.y)
			st := h.r.Status()
			assert.Equal(t, StateEdgeArmed, st.State)
			assert.Equal(t, tt.want, st.Prepared)
			assert.NotEmpty(t, st.SessionID)
		})
	}
}

func TestRecognizer_DownOutsideBandOpensNothing(t *testing.T) {
	h := newHarness(t)
	h.down(540, 1000)
	assert.Equal(t, StateIdle, h.r.Status().State)

	h.move(540, 800)
	h.wait(time.Second)
	h.up(540, 800)
	assert.Empty(t, h.dispatcher.Calls())
	assert.Equal(t, 0, h.r.Status().Stats.Sessions)
}

func TestRecognizer_LongPressSwitchesToLastApp(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.wait(200 * time.Millisecond)

	assert.Equal(t, []string{"haptic:long_press", "last_app"}, h.dispatcher.Calls())
	assert.Equal(t, StateResolved, h.r.Status().State)

	h.up(540, 2150)
	assert.Equal(t, []string{"haptic:long_press", "last_app"}, h.dispatcher.Calls(), "up after long press must be a no-op")
	assert.Equal(t, StateIdle, h.r.Status().State)
}

func TestRecognizer_LongPressNeedsStillFinger(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.move(540, 2130) // 20px since last: still moving
	h.wait(300 * time.Millisecond)
	assert.Empty(t, h.dispatcher.Calls())

	h.move(540, 2125) // settles
	h.wait(199 * time.Millisecond)
	assert.Empty(t, h.dispatcher.Calls())
	h.wait(time.Millisecond)
	assert.Equal(t, []string{"haptic:long_press", "last_app"}, h.dispatcher.Calls())
}

func TestRecognizer_LongPressNotOnBack(t *testing.T) {
	h := newHarness(t)
	h.down(100, 2150)
	h.move(100, 2148)
	h.wait(time.Second)
	h.up(100, 2148)
	assert.Empty(t, h.dispatcher.Calls())
}

func TestRecognizer_RecentsAfterSwipeSettles(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.move(540, 2000) // past min length, still moving
	assert.Empty(t, h.dispatcher.Calls())

	h.move(540, 1995) // settled
	assert.Equal(t, []string{"preload_recents"}, h.dispatcher.Calls())

	h.wait(200 * time.Millisecond)
	want := []string{"preload_recents", "haptic:virtual_key", "toggle_recents"}
	assert.Equal(t, want, h.dispatcher.Calls())

	h.up(540, 1995)
	assert.Equal(t, want, h.dispatcher.Calls(), "up after recents must be a no-op")
}

func TestRecognizer_RecentsPreloadCanceledOnEarlyUp(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.move(540, 2000)
	h.move(540, 1995)
	h.wait(100 * time.Millisecond)
	h.up(540, 1995)

	assert.Equal(t, []string{
		"preload_recents",
		"cancel_preload_recents",
		"dismiss_ime",
		"haptic:virtual_key",
		"key:home",
	}, h.dispatcher.Calls())

	h.wait(time.Second)
	assert.NotContains(t, h.dispatcher.Calls(), "toggle_recents")
}

func TestRecognizer_BackSwipeResolvesOnUp(t *testing.T) {
	h := newHarness(t)
	h.down(100, 2150)
	h.move(100, 2000)
	h.move(100, 1998)
	assert.Empty(t, h.dispatcher.Calls(), "back never resolves before release")

	h.up(100, 1998)
	assert.Equal(t, []string{"haptic:virtual_key", "key:back"}, h.dispatcher.Calls())

	h.wait(time.Second)
	assert.Equal(t, []string{"haptic:virtual_key", "key:back"}, h.dispatcher.Calls())
}

func TestRecognizer_HomeSwipeDismissesInputMethod(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.move(540, 1900)
	h.up(540, 1800)
	assert.Equal(t, []string{"dismiss_ime", "haptic:virtual_key", "key:home"}, h.dispatcher.Calls())
}

func TestRecognizer_ShortSwipeResolvesNothing(t *testing.T) {
	h := newHarness(t)
	h.down(100, 2150)
	h.move(100, 2100)
	h.up(100, 2100)
	assert.Empty(t, h.dispatcher.Calls())
}

func TestRecognizer_CancelNeverDispatches(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.move(540, 1990)
	before := len(h.dispatcher.Calls())

	h.send(ActionCancel, 540, 1990)
	h.wait(time.Second)
	assert.Len(t, h.dispatcher.Calls(), before)
	assert.Equal(t, StateIdle, h.r.Status().State)
	assert.Equal(t, 1, h.r.Status().Stats.Canceled)
}

func TestRecognizer_KeyguardMakesContactInert(t *testing.T) {
	h := newHarness(t)
	h.locked = true
	h.down(540, 2150)
	assert.Equal(t, StateInert, h.r.Status().State)

	// unlocking mid-gesture changes nothing for this contact
	h.locked = false
	h.move(540, 2000)
	h.move(540, 1995)
	h.wait(time.Second)
	h.up(540, 1995)

	assert.Empty(t, h.dispatcher.Calls())
	assert.Equal(t, 1, h.r.Status().Stats.KeyguardIgnored)
	assert.Equal(t, StateIdle, h.r.Status().State)
}

func TestRecognizer_OneOutcomePerSession(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.wait(200 * time.Millisecond) // long press fires
	h.move(540, 1900)
	h.move(540, 1899)
	h.wait(time.Second)
	h.up(540, 1899)

	assert.Equal(t, []string{"haptic:long_press", "last_app"}, h.dispatcher.Calls())
	assert.Equal(t, map[Outcome]int{OutcomeLastApp: 1}, h.r.Status().Stats.Resolved)
}

func TestRecognizer_NewDownDropsOpenSession(t *testing.T) {
	h := newHarness(t)
	h.down(540, 2150)
	h.down(540, 1000)
	h.wait(time.Second)
	assert.Empty(t, h.dispatcher.Calls())
	assert.Equal(t, StateIdle, h.r.Status().State)
}

func TestRecognizer_ThresholdsCapturedAtDown(t *testing.T) {
	h := newHarness(t)
	h.down(100, 2150)
	h.r.Thresholds().Store(ThresholdConfig{MinSwipeLengthPx: 1000, MoveTolerancePx: 10, TriggerTimeoutMs: 200})
	h.move(100, 2000)
	h.up(100, 2000)
	assert.Equal(t, []string{"haptic:virtual_key", "key:back"}, h.dispatcher.Calls())

	// the next session sees the new values
	h.down(100, 2150)
	h.move(100, 2000)
	h.up(100, 2000)
	assert.Len(t, h.dispatcher.Calls(), 2)
}

func TestRecognizer_LandscapeEdges(t *testing.T) {
	tests := []struct {
		name     string
		rotation Rotation
		edge     NavigationEdge
		downX    float64
		moveX    float64
		y        float64
		wantKey  string
	}{
		{"reversed landscape right edge back", Rotation270, EdgeRight, 10, 200, 100, "key:back"},
		{"reversed landscape right edge home", Rotation270, EdgeRight, 10, 200, 540, "key:home"},
		{"landscape left edge back", Rotation90, EdgeLeft, 2150, 2000, 900, "key:back"},
		{"landscape left edge home", Rotation90, EdgeLeft, 2150, 2000, 540, "key:home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.Equal(t, tt.edge, h.r.UpdateGeometry(2160, 1080, tt.rotation))

			h.down(tt.downX, tt.y)
			h.move(tt.moveX, tt.y)
			h.up(tt.moveX, tt.y)
			calls := h.dispatcher.Calls()
			require.NotEmpty(t, calls)
			assert.Equal(t, tt.wantKey, calls[len(calls)-1])
		})
	}
}

func TestRecognizer_VerticalMotionIgnoredOnSideEdge(t *testing.T) {
	h := newHarness(t)
	h.r.UpdateGeometry(2160, 1080, Rotation90)
	h.down(2150, 900)
	h.move(2150, 500) // along the band, not away from it
	h.up(2150, 500)
	assert.Empty(t, h.dispatcher.Calls())
}

func TestRecognizer_LandscapeOppositeEndIgnored(t *testing.T) {
	tests := []struct {
		name     string
		rotation Rotation
		downX    float64
		moveX    float64
	}{
		{"landscape touch near origin", Rotation90, 10, 200},
		{"reversed landscape touch at far end", Rotation270, 2150, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.r.UpdateGeometry(2160, 1080, tt.rotation)

			h.down(tt.downX, 540)
			h.move(tt.moveX, 540)
			h.up(tt.moveX, 540)
			assert.Empty(t, h.dispatcher.Calls())
			assert.Equal(t, 0, h.r.Status().Stats.Sessions)
		})
	}
}

func TestRecognizer_GeometryChangeMidSessionIgnored(t *testing.T) {
	h := newHarness(t)
	h.down(100, 2150)
	h.r.UpdateGeometry(2160, 1080, Rotation90)
	h.move(100, 2000)
	h.up(100, 2000)
	assert.Equal(t, []string{"haptic:virtual_key", "key:back"}, h.dispatcher.Calls())
}

func TestRecognizer_OnResolveObserver(t *testing.T) {
	h := newHarness(t)
	var got []Resolution
	h.r.OnResolve(func(res Resolution) { got = append(got, res) })

	h.down(540, 2150)
	sessionID := h.r.Status().SessionID
	h.move(540, 2000)
	h.move(540, 1995)
	h.wait(200 * time.Millisecond)

	require.Len(t, got, 1)
	assert.Equal(t, OutcomeRecents, got[0].Outcome)
	assert.Equal(t, sessionID, got[0].SessionID)
	assert.Equal(t, "bottom", got[0].EdgeName)
	assert.Equal(t, int64(10), got[0].DownTimeMs)
}

func TestRecognizer_SystemClockLongPress(t *testing.T) {
	d := &recordingDispatcher{}
	r := NewRecognizer(Options{
		Dispatcher: d,
		Thresholds: NewThresholds(ThresholdConfig{MinSwipeLengthPx: 100, MoveTolerancePx: 10, TriggerTimeoutMs: 20}),
		Geometry:   NewGeometry(1080, 2160, 20),
	})

	r.HandleEvent(PointerEvent{Action: ActionDown, RawX: 540, RawY: 2150})
	require.Eventually(t, func() bool {
		return len(d.Calls()) == 2
	}, time.Second, 5*time.Millisecond)
	r.HandleEvent(PointerEvent{Action: ActionUp, RawX: 540, RawY: 2150})
	assert.Equal(t, []string{"haptic:long_press", "last_app"}, d.Calls())
}

func TestRecognizer_ConcurrentUpAndTimer(t *testing.T) {
	// races a real timer against release; whichever wins, one outcome at most
	for i := 0; i < 50; i++ {
		t.Run(fmt.Sprintf("run_%d", i), func(t *testing.T) {
			d := &recordingDispatcher{}
			r := NewRecognizer(Options{
				Dispatcher: d,
				Thresholds: NewThresholds(ThresholdConfig{MinSwipeLengthPx: 100, MoveTolerancePx: 10, TriggerTimeoutMs: 1}),
				Geometry:   NewGeometry(1080, 2160, 20),
			})
			r.HandleEvent(PointerEvent{Action: ActionDown, RawX: 540, RawY: 2150})
			r.HandleEvent(PointerEvent{Action: ActionMove, RawX: 540, RawY: 2000})
			r.HandleEvent(PointerEvent{Action: ActionMove, RawX: 540, RawY: 1999})
			time.Sleep(time.Millisecond)
			r.HandleEvent(PointerEvent{Action: ActionUp, RawX: 540, RawY: 1999})
			time.Sleep(5 * time.Millisecond)

			resolved := 0
			for _, call := range d.Calls() {
				if call == "toggle_recents" || call == "key:home" || call == "last_app" {
					resolved++
				}
			}
			assert.Equal(t, 1, resolved, "calls: %v", d.Calls())
		})
	}
}

type batchingDispatcher struct {
	recordingDispatcher
	batches [][]string
}

func (d *batchingDispatcher) DispatchBatch(calls []func(ActionDispatcher)) {
	before := len(d.Calls())
	for _, fn := range calls {
		fn(d)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, append([]string(nil), d.calls[before:]...))
}

func TestRecognizer_ResolutionDispatchedAsOneBatch(t *testing.T) {
	d := &batchingDispatcher{}
	clock := NewManualClock(time.Unix(1700000000, 0))
	r := NewRecognizer(Options{
		Dispatcher: d,
		Thresholds: NewThresholds(testThresholds),
		Geometry:   NewGeometry(1080, 2160, 20),
		Clock:      clock,
	})

	r.HandleEvent(PointerEvent{Action: ActionDown, RawX: 540, RawY: 2150})
	r.HandleEvent(PointerEvent{Action: ActionMove, RawX: 540, RawY: 1900})
	r.HandleEvent(PointerEvent{Action: ActionUp, RawX: 540, RawY: 1800})

	require.Len(t, d.batches, 1, "transitions without side effects send nothing")
	assert.Equal(t, []string{"dismiss_ime", "haptic:virtual_key", "key:home"}, d.batches[0])

	r.HandleEvent(PointerEvent{Action: ActionDown, RawX: 100, RawY: 2150})
	r.HandleEvent(PointerEvent{Action: ActionMove, RawX: 100, RawY: 2000})
	r.HandleEvent(PointerEvent{Action: ActionUp, RawX: 100, RawY: 2000})

	require.Len(t, d.batches, 2)
	assert.Equal(t, []string{"haptic:virtual_key", "key:back"}, d.batches[1])
}
