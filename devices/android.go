package devices

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mobile-next/edgenav/gesture"
)

// adbRunner executes an adb command for one device and returns combined output.
type adbRunner func(ctx context.Context, args ...string) ([]byte, error)

// AndroidDevice talks to one device or emulator through adb.
type AndroidDevice struct {
	id    string
	name  string
	state string
	run   adbRunner
}

// NewAndroidDevice returns a handle for the device with the given serial.
func NewAndroidDevice(id, name string) *AndroidDevice {
	d := &AndroidDevice{id: id, name: name, state: "online"}
	d.run = d.execAdb
	return d
}

func (d *AndroidDevice) ID() string {
	return d.id
}

func (d *AndroidDevice) Name() string {
	return d.name
}

func (d *AndroidDevice) Platform() string {
	return "android"
}

func (d *AndroidDevice) State() string {
	return d.state
}

func (d *AndroidDevice) DeviceType() string {
	if strings.HasPrefix(d.id, "emulator-") {
		return "emulator"
	} else {
		return "real"
	}
}

func (d *AndroidDevice) execAdb(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"-s", d.id}, args...)
	cmd := exec.CommandContext(ctx, "adb", cmdArgs...)
	return cmd.CombinedOutput()
}

func (d *AndroidDevice) runAdbCommand(ctx context.Context, args ...string) ([]byte, error) {
	return d.run(ctx, args...)
}

func (d *AndroidDevice) shell(ctx context.Context, args ...string) (string, error) {
	output, err := d.runAdbCommand(ctx, append([]string{"shell"}, args...)...)
	if err != nil {
		return "", fmt.Errorf("adb shell %s: %w\nOutput: %s", strings.Join(args, " "), err, string(output))
	}
	return string(output), nil
}

// LaunchApp brings the app's launcher activity to the front, reusing its
// task when one exists.
func (d *AndroidDevice) LaunchApp(ctx context.Context, packageName string) error {
	output, err := d.runAdbCommand(ctx, "shell", "monkey", "-p", packageName, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return fmt.Errorf("failed to launch app %s: %v\nOutput: %s", packageName, err, string(output))
	}

	return nil
}

// InjectKey sends a key down/up pair for the given key code.
func (d *AndroidDevice) InjectKey(ctx context.Context, code gesture.KeyCode) error {
	output, err := d.runAdbCommand(ctx, "shell", "input", "keyevent", strconv.Itoa(int(code)))
	if err != nil {
		return fmt.Errorf("AndroidDevice: failed to inject key %s: %v\nOutput: %s", code, err, string(output))
	}

	return nil
}

// PressButton maps a button name to its key code and injects it.
func (d *AndroidDevice) PressButton(ctx context.Context, key string) error {
	keyMap := map[string]gesture.KeyCode{
		"home":       gesture.KeyHome,
		"back":       gesture.KeyBack,
		"app_switch": gesture.KeyAppSwitch,
	}

	keycode, exists := keyMap[strings.ToLower(key)]
	if !exists {
		return fmt.Errorf("AndroidDevice: unsupported button key: %s", key)
	}

	return d.InjectKey(ctx, keycode)
}

// Vibrate plays a one-shot vibration of the given length.
func (d *AndroidDevice) Vibrate(ctx context.Context, millis int) error {
	_, err := d.shell(ctx, "cmd", "vibrator", "vibrate", strconv.Itoa(millis))
	return err
}

// GetSetting reads an integer from the system settings table. ok is false
// when the key is unset.
func (d *AndroidDevice) GetSetting(ctx context.Context, key string) (value int, ok bool, err error) {
	output, err := d.shell(ctx, "settings", "get", "system", key)
	if err != nil {
		return 0, false, err
	}
	return parseSettingValue(output)
}

func parseSettingValue(output string) (int, bool, error) {
	raw := strings.TrimSpace(output)
	if raw == "" || raw == "null" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid setting value %q", raw)
	}
	return value, true, nil
}

func parseAdbDevicesOutput(output string) []ControllableDevice {
	var devices []ControllableDevice

	lines := strings.Split(output, "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		parts := strings.Fields(line)
		if len(parts) == 2 {
			deviceID := parts[0]
			status := parts[1]
			if status == "device" {
				devices = append(devices, NewAndroidDevice(deviceID, getAndroidDeviceName(deviceID)))
			}
		}
	}

	return devices
}

func getAndroidDeviceName(deviceID string) string {
	modelCmd := exec.Command("adb", "-s", deviceID, "shell", "getprop", "ro.product.model")
	modelOutput, err := modelCmd.CombinedOutput()
	if err == nil && len(modelOutput) > 0 {
		return strings.TrimSpace(string(modelOutput))
	}

	return deviceID
}

// GetAndroidDevices retrieves a list of connected Android devices
func GetAndroidDevices() ([]ControllableDevice, error) {
	command := exec.Command("adb", "devices")
	output, err := command.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to run 'adb devices': %v", err)
	}

	androidDevices := parseAdbDevicesOutput(string(output))
	return androidDevices, nil
}
