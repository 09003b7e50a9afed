package commands

import (
	"context"
	"time"

	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/utils"
)

// DevicesRequest controls how much is gathered per device.
type DevicesRequest struct {
	// WithDisplay adds size, density and rotation, at the cost of extra adb calls.
	WithDisplay bool `json:"withDisplay"`
}

// DevicesCommand lists all connected devices
func DevicesCommand(req DevicesRequest) *CommandResponse {
	if !req.WithDisplay {
		deviceInfoList, err := devices.GetDeviceInfoList()
		if err != nil {
			return NewErrorResponse(err)
		}
		return NewSuccessResponse(map[string]interface{}{
			"devices": deviceInfoList,
		})
	}

	all, err := listDevices()
	if err != nil {
		return NewErrorResponse(err)
	}

	list := make([]devices.FullDeviceInfo, 0, len(all))
	for _, d := range all {
		info := devices.FullDeviceInfo{
			DeviceInfo: devices.DeviceInfo{
				ID:       d.ID(),
				Name:     d.Name(),
				Platform: d.Platform(),
				Type:     d.DeviceType(),
				State:    d.State(),
			},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		display, err := d.DisplayInfo(ctx)
		cancel()
		if err != nil {
			utils.Verbose("failed to read display of %s: %v", d.ID(), err)
		} else {
			info.Display = display
		}
		list = append(list, info)
	}

	return NewSuccessResponse(map[string]interface{}{
		"devices": list,
	})
}
