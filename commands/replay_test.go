package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callNames(calls []ReplayCall) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Call
	}
	return names
}

func TestReplay_JSONRecents(t *testing.T) {
	trace := `# home swipe that pauses, 1080x2160
{"action":"down","x":540,"y":2150,"t":1000}
{"action":"move","x":540,"y":2100,"t":1016}
{"action":"move","x":540,"y":2095,"t":1032}
{"action":"up","x":540,"y":2095,"t":1300}
`
	result, err := Replay([]byte(trace), ReplayRequest{Width: 1080, Height: 2160})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Events)
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, gesture.OutcomeRecents, result.Resolutions[0].Outcome)
	assert.Equal(t, []ReplayCall{
		{AtMs: 32, Call: "preload_recents"},
		{AtMs: 232, Call: "haptic:virtual_key"},
		{AtMs: 232, Call: "toggle_recents"},
	}, result.Calls)
	assert.Equal(t, 1, result.Stats.Resolved[gesture.OutcomeRecents])
}

func TestReplay_JSONLongPress(t *testing.T) {
	trace := `{"action":"down","x":540,"y":2150,"t":1000}
{"action":"up","x":540,"y":2150,"t":1300}
`
	result, err := Replay([]byte(trace), ReplayRequest{})
	require.NoError(t, err)

	assert.Equal(t, []ReplayCall{
		{AtMs: 200, Call: "haptic:long_press"},
		{AtMs: 200, Call: "switch_to_last_app"},
	}, result.Calls)
}

func TestReplay_HeldContactAtEndOfTrace(t *testing.T) {
	trace := `{"action":"down","x":540,"y":2150,"t":0}`

	result, err := Replay([]byte(trace), ReplayRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"haptic:long_press", "switch_to_last_app"}, callNames(result.Calls))
}

func TestReplay_CancelNeverDispatches(t *testing.T) {
	trace := `{"action":"down","x":100,"y":2150,"t":0}
{"action":"move","x":100,"y":2000,"t":16}
{"action":"cancel","x":100,"y":2000,"t":32}
`
	result, err := Replay([]byte(trace), ReplayRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.Calls)
	assert.Empty(t, result.Resolutions)
	assert.Equal(t, 1, result.Stats.Canceled)
}

func TestReplay_GeteventBack(t *testing.T) {
	// raw axes 0..4095 x 0..8191 on a 1080x2160 panel
	trace := `[   100.000000] /dev/input/event3: EV_ABS       ABS_MT_TRACKING_ID   00000001
[   100.000000] /dev/input/event3: EV_ABS       ABS_MT_POSITION_X    00000100
[   100.000000] /dev/input/event3: EV_ABS       ABS_MT_POSITION_Y    00001fe0
[   100.000000] /dev/input/event3: EV_SYN       SYN_REPORT           00000000
[   100.020000] /dev/input/event3: EV_ABS       ABS_MT_POSITION_Y    00001d00
[   100.020000] /dev/input/event3: EV_SYN       SYN_REPORT           00000000
[   100.040000] /dev/input/event3: EV_ABS       ABS_MT_TRACKING_ID   ffffffff
[   100.040000] /dev/input/event3: EV_SYN       SYN_REPORT           00000000
`
	result, err := Replay([]byte(trace), ReplayRequest{
		Width:    1080,
		Height:   2160,
		AxisMaxX: 4095,
		AxisMaxY: 8191,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Events)
	assert.Equal(t, []string{"haptic:virtual_key", "key:back"}, callNames(result.Calls))
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, gesture.OutcomeBack, result.Resolutions[0].Outcome)
}

func TestReplay_Errors(t *testing.T) {
	_, err := Replay([]byte("{\"action\":\"down\",\"t\":10}\n{\"action\":\"up\",\"t\":5}\n"), ReplayRequest{})
	assert.ErrorContains(t, err, "goes backwards")

	_, err = Replay([]byte("{\"action\":\"wiggle\"}\n"), ReplayRequest{})
	assert.ErrorContains(t, err, "line 1")

	_, err = Replay([]byte("# nothing\n"), ReplayRequest{})
	assert.ErrorContains(t, err, "no pointer events")

	_, err = Replay([]byte("{}"), ReplayRequest{Format: "csv"})
	assert.ErrorContains(t, err, "unknown trace format")

	_, err = Replay([]byte("{}"), ReplayRequest{Rotation: 5})
	assert.Error(t, err)
}

func TestDetectTraceFormat(t *testing.T) {
	assert.Equal(t, ReplayFormatJSON, detectTraceFormat([]byte("\n# c\n{\"action\":\"down\"}")))
	assert.Equal(t, ReplayFormatGetevent, detectTraceFormat([]byte("EV_SYN SYN_REPORT 00000000")))
}

func TestReplayCommand_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"action":"down","x":100,"y":2150,"t":0}
{"action":"move","x":100,"y":2050,"t":20}
{"action":"up","x":100,"y":2050,"t":40}
`), 0o644))

	resp := ReplayCommand(ReplayRequest{Path: path})
	require.Equal(t, "ok", resp.Status, resp.Error)
	result := resp.Data.(*ReplayResponse)
	assert.Equal(t, gesture.OutcomeBack, result.Resolutions[0].Outcome)

	resp = ReplayCommand(ReplayRequest{Path: filepath.Join(t.TempDir(), "missing")})
	assert.Equal(t, "error", resp.Status)

	resp = ReplayCommand(ReplayRequest{})
	assert.Equal(t, "error", resp.Status)
}
