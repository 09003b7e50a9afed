package devices

import (
	"context"
	"fmt"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/types"
)

type ControllableDevice interface {
	ID() string
	Name() string
	Platform() string   // always "android" for now
	DeviceType() string // "real" or "emulator"
	State() string

	InjectKey(ctx context.Context, code gesture.KeyCode) error
	PressButton(ctx context.Context, key string) error
	LaunchApp(ctx context.Context, packageName string) error
	DisplayInfo(ctx context.Context) (*types.DisplayInfo, error)
}

// GetAllControllableDevices aggregates every device edgenav can drive.
func GetAllControllableDevices() ([]ControllableDevice, error) {
	return GetAndroidDevices()
}

// DeviceInfo represents the JSON-friendly device information
type DeviceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Type     string `json:"type"`
	State    string `json:"state"`
}

type FullDeviceInfo struct {
	DeviceInfo
	Display *types.DisplayInfo `json:"display"`
}

// GetDeviceInfoList returns a list of DeviceInfo for all connected devices
func GetDeviceInfoList() ([]DeviceInfo, error) {
	devices, err := GetAllControllableDevices()
	if err != nil {
		return nil, fmt.Errorf("error getting devices: %w", err)
	}

	deviceInfoList := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		deviceInfoList[i] = DeviceInfo{
			ID:       d.ID(),
			Name:     d.Name(),
			Platform: d.Platform(),
			Type:     d.DeviceType(),
			State:    d.State(),
		}
	}

	return deviceInfoList, nil
}
