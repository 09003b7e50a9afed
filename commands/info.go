package commands

import (
	"context"
	"fmt"

	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/gesture"
)

// InfoResponse is what watch would see on a device before it starts.
type InfoResponse struct {
	devices.FullDeviceInfo
	Edge         string                `json:"edge"`
	Touchscreens []devices.TouchDevice `json:"touchscreens"`
	HomePackage  string                `json:"homePackage"`
	Keyguard     bool                  `json:"keyguard"`
}

func InfoCommand(ctx context.Context, deviceID string) (*InfoResponse, error) {
	device, err := findAndroidDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("error finding device: %w", err)
	}

	display, err := device.DisplayInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting display info: %w", err)
	}

	touchscreens, err := device.TouchDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing input devices: %w", err)
	}
	if touchscreens == nil {
		touchscreens = []devices.TouchDevice{}
	}

	keyguard, err := device.KeyguardShowing(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading keyguard state: %w", err)
	}

	current := display.Current()
	edge := gesture.UpdateEdge(current.Width, current.Height, gesture.Rotation(display.Rotation))

	return &InfoResponse{
		FullDeviceInfo: devices.FullDeviceInfo{
			DeviceInfo: devices.DeviceInfo{
				ID:       device.ID(),
				Name:     device.Name(),
				Platform: device.Platform(),
				Type:     device.DeviceType(),
				State:    device.State(),
			},
			Display: display,
		},
		Edge:         edge.String(),
		Touchscreens: touchscreens,
		HomePackage:  device.HomePackage(ctx),
		Keyguard:     keyguard,
	}, nil
}
