package devices

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/types"
	"github.com/mobile-next/edgenav/utils"
)

// AxisRange is the raw value range reported by the kernel for one axis.
type AxisRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// TouchDevice is an input device that reports absolute multi-touch positions.
type TouchDevice struct {
	Path   string    `json:"path"`
	Name   string    `json:"name"`
	XRange AxisRange `json:"x"`
	YRange AxisRange `json:"y"`
}

var (
	addDeviceRe  = regexp.MustCompile(`^add device \d+:\s+(\S+)`)
	deviceNameRe = regexp.MustCompile(`^\s*name:\s+"(.*)"`)
	axisRe       = regexp.MustCompile(`(ABS_MT_POSITION_X|ABS_MT_POSITION_Y)\s*:\s*value -?\d+, min (-?\d+), max (-?\d+)`)
	eventLineRe  = regexp.MustCompile(`^(?:\[\s*(\d+)\.(\d+)\]\s+)?(?:(/dev/input/\S+):\s+)?(\S+)\s+(\S+)\s+(\S+)`)
	eventNodeRe  = regexp.MustCompile(`event(\d+)$`)
)

// parseGeteventDevices reads "getevent -lp" output and keeps devices that
// report both multi-touch position axes.
func parseGeteventDevices(output string) []TouchDevice {
	var result []TouchDevice
	var current *TouchDevice
	var hasX, hasY bool

	flush := func() {
		if current != nil && hasX && hasY {
			result = append(result, *current)
		}
		current = nil
		hasX, hasY = false, false
	}

	for _, line := range strings.Split(output, "\n") {
		if m := addDeviceRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &TouchDevice{Path: m[1]}
			continue
		}
		if current == nil {
			continue
		}
		if m := deviceNameRe.FindStringSubmatch(line); m != nil {
			current.Name = m[1]
			continue
		}
		if m := axisRe.FindStringSubmatch(line); m != nil {
			lo, _ := strconv.Atoi(m[2])
			hi, _ := strconv.Atoi(m[3])
			if m[1] == "ABS_MT_POSITION_X" {
				current.XRange = AxisRange{Min: lo, Max: hi}
				hasX = true
			} else {
				current.YRange = AxisRange{Min: lo, Max: hi}
				hasY = true
			}
		}
	}
	flush()

	return result
}

// TouchDevices lists the device's touchscreens.
func (d *AndroidDevice) TouchDevices(ctx context.Context) ([]TouchDevice, error) {
	output, err := d.shell(ctx, "getevent", "-lp")
	if err != nil {
		return nil, err
	}
	return parseGeteventDevices(output), nil
}

// Touchscreen returns the first touch device, or the one at path when given.
func (d *AndroidDevice) Touchscreen(ctx context.Context, path string) (*TouchDevice, error) {
	touchDevices, err := d.TouchDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range touchDevices {
		if path == "" || touchDevices[i].Path == path {
			return &touchDevices[i], nil
		}
	}
	if path != "" {
		return nil, fmt.Errorf("touch device %s not found on %s", path, d.id)
	}
	return nil, fmt.Errorf("no touchscreen found on %s", d.id)
}

// mapAxis scales a raw axis value onto [0, size). An unknown range passes the
// raw value through.
func mapAxis(raw int, r AxisRange, size int) float64 {
	if r.Max <= r.Min {
		return float64(raw)
	}
	return float64(raw-r.Min) * float64(size) / float64(r.Max-r.Min+1)
}

// eventNodeNumber returns N for /dev/input/eventN, or 0.
func eventNodeNumber(path string) int {
	m := eventNodeRe.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// rotatePoint maps a point in natural orientation onto the rotated display.
func rotatePoint(x, y float64, natural types.Size, rotation int) (float64, float64) {
	w := float64(natural.Width)
	h := float64(natural.Height)
	switch rotation % 4 {
	case 1:
		return y, w - x
	case 2:
		return w - x, h - y
	case 3:
		return h - y, x
	default:
		return x, y
	}
}

// TouchDecoder turns "getevent -lt" lines for one touchscreen into pointer
// events for the first contact. Other slots are ignored. SetRotation may be
// called from any goroutine; Feed must not be called concurrently.
type TouchDecoder struct {
	device   TouchDevice
	natural  types.Size
	rotation atomic.Int32
	deviceID int

	slot     int
	touching bool
	rawX     int
	rawY     int
	down     bool
	up       bool
	moved    bool
	timeMs   int64
}

// NewTouchDecoder returns a decoder scaling to the display's natural size.
func NewTouchDecoder(device TouchDevice, natural types.Size, rotation int) *TouchDecoder {
	t := &TouchDecoder{
		device:   device,
		natural:  natural,
		deviceID: eventNodeNumber(device.Path),
	}
	t.rotation.Store(int32(rotation))
	return t
}

// SetRotation changes the display rotation used for new samples.
func (t *TouchDecoder) SetRotation(rotation int) {
	t.rotation.Store(int32(rotation))
}

func parseEventTime(sec, frac string) int64 {
	if sec == "" {
		return -1
	}
	s, _ := strconv.ParseInt(sec, 10, 64)
	for len(frac) < 6 {
		frac += "0"
	}
	us, _ := strconv.ParseInt(frac[:6], 10, 64)
	return s*1000 + us/1000
}

// parseEventValue reads a getevent value: either a label such as DOWN or a
// 32-bit hex number.
func parseEventValue(raw string) (int, bool) {
	switch raw {
	case "DOWN":
		return 1, true
	case "UP":
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(int32(uint32(v))), true
}

// Feed consumes one line and returns an event when a SYN_REPORT completes one.
func (t *TouchDecoder) Feed(line string) (gesture.PointerEvent, bool) {
	m := eventLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return gesture.PointerEvent{}, false
	}
	if m[3] != "" && t.device.Path != "" && m[3] != t.device.Path {
		return gesture.PointerEvent{}, false
	}
	if ts := parseEventTime(m[1], m[2]); ts >= 0 {
		t.timeMs = ts
	}

	typ, code := m[4], m[5]
	value, ok := parseEventValue(m[6])
	if !ok {
		return gesture.PointerEvent{}, false
	}

	switch typ {
	case "EV_KEY":
		if code == "BTN_TOUCH" {
			if value == 1 && !t.touching {
				t.down = true
			} else if value == 0 && t.touching {
				t.up = true
			}
		}
	case "EV_ABS":
		t.handleAbs(code, value)
	case "EV_SYN":
		if code == "SYN_REPORT" {
			return t.report()
		}
	}
	return gesture.PointerEvent{}, false
}

func (t *TouchDecoder) handleAbs(code string, value int) {
	if code == "ABS_MT_SLOT" {
		t.slot = value
		return
	}
	if t.slot != 0 {
		return
	}
	switch code {
	case "ABS_MT_TRACKING_ID":
		if value < 0 {
			if t.touching {
				t.up = true
			}
		} else if !t.touching {
			t.down = true
		}
	case "ABS_MT_POSITION_X", "ABS_X":
		t.rawX = value
		t.moved = true
	case "ABS_MT_POSITION_Y", "ABS_Y":
		t.rawY = value
		t.moved = true
	}
}

func (t *TouchDecoder) report() (gesture.PointerEvent, bool) {
	defer func() {
		t.down, t.up, t.moved = false, false, false
	}()

	var action gesture.PointerAction
	switch {
	case t.down:
		action = gesture.ActionDown
		t.touching = true
	case t.up:
		action = gesture.ActionUp
		t.touching = false
	case t.touching && t.moved:
		action = gesture.ActionMove
	default:
		return gesture.PointerEvent{}, false
	}

	x := mapAxis(t.rawX, t.device.XRange, t.natural.Width)
	y := mapAxis(t.rawY, t.device.YRange, t.natural.Height)
	x, y = rotatePoint(x, y, t.natural, int(t.rotation.Load()))

	return gesture.PointerEvent{
		Action:      action,
		RawX:        x,
		RawY:        y,
		EventTimeMs: t.timeMs,
		DeviceID:    t.deviceID,
	}, true
}

// DecodeGetevent runs every line of r through the decoder.
func DecodeGetevent(r io.Reader, decoder *TouchDecoder, emit func(gesture.PointerEvent)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ev, ok := decoder.Feed(scanner.Text()); ok {
			emit(ev)
		}
	}
	return scanner.Err()
}

// TouchReader streams pointer events from a device touchscreen.
type TouchReader struct {
	device  *AndroidDevice
	touch   TouchDevice
	decoder *TouchDecoder
}

// NewTouchReader prepares a reader for the given touchscreen.
func NewTouchReader(device *AndroidDevice, touch TouchDevice, display *types.DisplayInfo) *TouchReader {
	return &TouchReader{
		device:  device,
		touch:   touch,
		decoder: NewTouchDecoder(touch, display.Natural, display.Rotation),
	}
}

// SetRotation forwards display rotation changes to the decoder.
func (r *TouchReader) SetRotation(rotation int) {
	r.decoder.SetRotation(rotation)
}

// Run blocks until ctx is canceled or getevent exits.
func (r *TouchReader) Run(ctx context.Context, emit func(gesture.PointerEvent)) error {
	cmd := exec.CommandContext(ctx, "adb", "-s", r.device.ID(), "shell", "getevent", "-lt", r.touch.Path)
	utils.ConfigureDetachedProcAttr(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start getevent: %w", err)
	}

	utils.Verbose("reading touch events from %s on %s", r.touch.Path, r.device.ID())

	decodeErr := DecodeGetevent(stdout, r.decoder, emit)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to read getevent output: %w", decodeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("getevent exited: %w", waitErr)
	}
	return nil
}
