package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	id      string
	state   string
	pressed []string
}

func (f *fakeDevice) ID() string         { return f.id }
func (f *fakeDevice) Name() string       { return "fake " + f.id }
func (f *fakeDevice) Platform() string   { return "android" }
func (f *fakeDevice) DeviceType() string { return "emulator" }
func (f *fakeDevice) State() string      { return f.state }

func (f *fakeDevice) InjectKey(context.Context, gesture.KeyCode) error { return nil }
func (f *fakeDevice) PressButton(_ context.Context, key string) error {
	if key == "volume_up" {
		return errors.New("unsupported button key: volume_up")
	}
	f.pressed = append(f.pressed, key)
	return nil
}
func (f *fakeDevice) LaunchApp(context.Context, string) error          { return nil }

func (f *fakeDevice) DisplayInfo(context.Context) (*types.DisplayInfo, error) {
	return &types.DisplayInfo{Natural: types.Size{Width: 1080, Height: 2160}, Density: 2.75}, nil
}

// withDevices swaps the device lister for the duration of a test.
func withDevices(t *testing.T, list []devices.ControllableDevice, err error) *int {
	t.Helper()
	calls := 0
	original := listDevices
	listDevices = func() ([]devices.ControllableDevice, error) {
		calls++
		return list, err
	}
	deviceCache.Purge()
	t.Cleanup(func() {
		listDevices = original
		deviceCache.Purge()
	})
	return &calls
}

func TestResponses(t *testing.T) {
	ok := NewSuccessResponse(map[string]int{"n": 1})
	assert.Equal(t, "ok", ok.Status)
	assert.Empty(t, ok.Error)

	bad := NewErrorResponse(errors.New("boom"))
	assert.Equal(t, "error", bad.Status)
	assert.Equal(t, "boom", bad.Error)
	assert.Nil(t, bad.Data)
}

func TestFindDevice_UsesCache(t *testing.T) {
	calls := withDevices(t, []devices.ControllableDevice{
		&fakeDevice{id: "emulator-5554", state: "online"},
	}, nil)

	d, err := FindDevice("emulator-5554")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", d.ID())

	again, err := FindDevice("emulator-5554")
	require.NoError(t, err)
	assert.Same(t, d, again)
	assert.Equal(t, 1, *calls)
}

func TestFindDevice_Errors(t *testing.T) {
	withDevices(t, nil, nil)
	_, err := FindDevice("")
	assert.Error(t, err)

	_, err = FindDevice("missing")
	assert.EqualError(t, err, "device not found: missing")

	withDevices(t, nil, errors.New("adb not found"))
	_, err = FindDevice("any")
	assert.ErrorContains(t, err, "adb not found")
}

func TestFindDeviceOrAutoSelect(t *testing.T) {
	tests := []struct {
		name    string
		devices []devices.ControllableDevice
		wantID  string
		wantErr string
	}{
		{
			name:    "none",
			wantErr: "no online devices found",
		},
		{
			name: "single online",
			devices: []devices.ControllableDevice{
				&fakeDevice{id: "a", state: "offline"},
				&fakeDevice{id: "b", state: "online"},
			},
			wantID: "b",
		},
		{
			name: "ambiguous",
			devices: []devices.ControllableDevice{
				&fakeDevice{id: "a", state: "online"},
				&fakeDevice{id: "b", state: "online"},
			},
			wantErr: "multiple devices found (2), please specify --device with one of: [a, b]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withDevices(t, tt.devices, nil)
			d, err := FindDeviceOrAutoSelect("")
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, d.ID())
		})
	}
}

func TestFindAndroidDevice_RejectsOtherDevices(t *testing.T) {
	withDevices(t, []devices.ControllableDevice{&fakeDevice{id: "x", state: "online"}}, nil)

	_, err := findAndroidDevice("x")
	assert.ErrorContains(t, err, "not an android device")
}

func TestDevicesCommand_WithDisplay(t *testing.T) {
	withDevices(t, []devices.ControllableDevice{&fakeDevice{id: "emulator-5554", state: "online"}}, nil)

	resp := DevicesCommand(DevicesRequest{WithDisplay: true})
	require.Equal(t, "ok", resp.Status, resp.Error)

	data := resp.Data.(map[string]interface{})
	list := data["devices"].([]devices.FullDeviceInfo)
	require.Len(t, list, 1)
	assert.Equal(t, "emulator-5554", list[0].ID)
	assert.Equal(t, 2.75, list[0].Display.Density)
}

func TestConfigShowCommand(t *testing.T) {
	resp := ConfigShowCommand()
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, GetConfig(), resp.Data)
}

func TestDoctorCommand(t *testing.T) {
	resp := DoctorCommand("1.2.3")
	require.Equal(t, "ok", resp.Status)
	info := resp.Data.(DoctorInfo)
	assert.Equal(t, "1.2.3", info.EdgenavVersion)
	assert.NotEmpty(t, info.OS)
}

func TestButtonCommand(t *testing.T) {
	device := &fakeDevice{id: "emulator-5554", state: "online"}
	withDevices(t, []devices.ControllableDevice{device}, nil)

	resp := ButtonCommand(ButtonRequest{Button: "home"})
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Equal(t, []string{"home"}, device.pressed)

	resp = ButtonCommand(ButtonRequest{DeviceID: "emulator-5554", Button: "volume_up"})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "failed to press button")

	resp = ButtonCommand(ButtonRequest{})
	assert.Equal(t, "button is required", resp.Error)
}
