package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/types"
)

const (
	ReplayFormatAuto     = ""
	ReplayFormatJSON     = "json"
	ReplayFormatGetevent = "getevent"
)

// ReplayRequest describes a recorded trace and the display it was taken on.
type ReplayRequest struct {
	Path     string  `json:"path"`
	Format   string  `json:"format,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Rotation int     `json:"rotation,omitempty"`
	Density  float64 `json:"density,omitempty"`
	// raw axis maxima of the touchscreen, getevent traces only;
	// zero means the raw values are already display pixels
	AxisMaxX int `json:"axisMaxX,omitempty"`
	AxisMaxY int `json:"axisMaxY,omitempty"`
}

// ReplayCall is one dispatcher call made while replaying, stamped with the
// trace time it happened at.
type ReplayCall struct {
	AtMs int64  `json:"at"`
	Call string `json:"call"`
}

// ReplayResponse summarizes a replay.
type ReplayResponse struct {
	Events      int                  `json:"events"`
	Resolutions []gesture.Resolution `json:"resolutions"`
	Calls       []ReplayCall         `json:"calls"`
	Stats       gesture.Stats        `json:"stats"`
}

// traceDispatcher records calls instead of performing them.
type traceDispatcher struct {
	mu    sync.Mutex
	clock *gesture.ManualClock
	start time.Time
	calls []ReplayCall
}

func (t *traceDispatcher) record(call string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, ReplayCall{AtMs: t.clock.Now().Sub(t.start).Milliseconds(), Call: call})
}

func (t *traceDispatcher) TriggerHaptic(kind gesture.HapticKind) { t.record("haptic:" + kind.String()) }
func (t *traceDispatcher) InjectKey(code gesture.KeyCode)        { t.record("key:" + code.String()) }
func (t *traceDispatcher) ToggleRecents()                        { t.record("toggle_recents") }
func (t *traceDispatcher) PreloadRecents()                       { t.record("preload_recents") }
func (t *traceDispatcher) CancelPreloadRecents()                 { t.record("cancel_preload_recents") }
func (t *traceDispatcher) SwitchToLastApp()                      { t.record("switch_to_last_app") }
func (t *traceDispatcher) DismissInputMethod()                   { t.record("dismiss_input_method") }

// ReplayCommand feeds a recorded trace through a fresh recognizer on a manual
// clock, so timers fire exactly as they would have on the device.
func ReplayCommand(req ReplayRequest) *CommandResponse {
	if req.Path == "" {
		return NewErrorResponse(fmt.Errorf("trace path is required"))
	}

	var data []byte
	var err error
	if req.Path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(req.Path)
	}
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to read trace: %w", err))
	}

	result, err := Replay(data, req)
	if err != nil {
		return NewErrorResponse(err)
	}
	return NewSuccessResponse(result)
}

// Replay runs an in-memory trace.
func Replay(data []byte, req ReplayRequest) (*ReplayResponse, error) {
	display := DefaultDisplay
	if req.Width > 0 && req.Height > 0 {
		display.Natural = types.Size{Width: req.Width, Height: req.Height}
		if req.Rotation%2 == 1 {
			display.Natural = types.Size{Width: req.Height, Height: req.Width}
		}
	}
	if req.Rotation < 0 || req.Rotation > 3 {
		return nil, fmt.Errorf("rotation must be 0-3, got %d", req.Rotation)
	}
	display.Rotation = req.Rotation
	if req.Density > 0 {
		display.Density = req.Density
	}

	events, err := parseTrace(data, req, display)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("trace contains no pointer events")
	}

	start := time.UnixMilli(events[0].EventTimeMs)
	clock := gesture.NewManualClock(start)
	trace := &traceDispatcher{clock: clock, start: start}

	e := NewEngine(EngineOptions{
		Config:     GetConfig(),
		Display:    &display,
		Dispatcher: trace,
		Clock:      clock,
	})

	var resolutions []gesture.Resolution
	var resMu sync.Mutex
	unsubscribe := e.Subscribe(func(r gesture.Resolution) {
		resMu.Lock()
		defer resMu.Unlock()
		resolutions = append(resolutions, r)
	})
	defer unsubscribe()

	for _, ev := range events {
		clock.AdvanceTo(time.UnixMilli(ev.EventTimeMs))
		e.Feed(ev)
	}
	// a contact still held at the end of the trace keeps its timers running
	clock.Advance(e.Recognizer().Thresholds().Snapshot().TriggerTimeout())

	resMu.Lock()
	defer resMu.Unlock()
	if resolutions == nil {
		resolutions = []gesture.Resolution{}
	}
	return &ReplayResponse{
		Events:      len(events),
		Resolutions: resolutions,
		Calls:       trace.calls,
		Stats:       e.Recognizer().Status().Stats,
	}, nil
}

func parseTrace(data []byte, req ReplayRequest, display types.DisplayInfo) ([]gesture.PointerEvent, error) {
	format := req.Format
	if format == ReplayFormatAuto {
		format = detectTraceFormat(data)
	}

	switch format {
	case ReplayFormatJSON:
		return parseJSONTrace(data)
	case ReplayFormatGetevent:
		touch := devices.TouchDevice{
			XRange: devices.AxisRange{Max: display.Natural.Width - 1},
			YRange: devices.AxisRange{Max: display.Natural.Height - 1},
		}
		if req.AxisMaxX > 0 {
			touch.XRange.Max = req.AxisMaxX
		}
		if req.AxisMaxY > 0 {
			touch.YRange.Max = req.AxisMaxY
		}
		var events []gesture.PointerEvent
		decoder := devices.NewTouchDecoder(touch, display.Natural, display.Rotation)
		err := devices.DecodeGetevent(bytes.NewReader(data), decoder, func(ev gesture.PointerEvent) {
			events = append(events, ev)
		})
		return events, err
	default:
		return nil, fmt.Errorf("unknown trace format '%s', must be 'json' or 'getevent'", format)
	}
}

func detectTraceFormat(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "{") {
			return ReplayFormatJSON
		}
		return ReplayFormatGetevent
	}
	return ReplayFormatJSON
}

// parseJSONTrace reads one PointerEvent object per line. Blank lines and
// lines starting with '#' are skipped.
func parseJSONTrace(data []byte) ([]gesture.PointerEvent, error) {
	var events []gesture.PointerEvent
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	var last int64
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ev gesture.PointerEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(events) > 0 && ev.EventTimeMs < last {
			return nil, fmt.Errorf("line %d: event time %d goes backwards", lineNo, ev.EventTimeMs)
		}
		last = ev.EventTimeMs
		events = append(events, ev)
	}
	return events, scanner.Err()
}
