package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/gesture"
)

// ActionRequest performs one navigation outcome directly, without a gesture.
type ActionRequest struct {
	DeviceID string `json:"deviceId"`
	Action   string `json:"action"`
}

// ActionCommand runs the same dispatcher calls a resolved gesture would.
func ActionCommand(req ActionRequest) *CommandResponse {
	outcome := gesture.Outcome(req.Action)
	if !validOutcomes[outcome] {
		return NewErrorResponse(fmt.Errorf("invalid action '%s', must be one of back, home, recents, last_app", req.Action))
	}

	device, err := findAndroidDevice(req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %w", err))
	}

	performOutcome(devices.NewAndroidDispatcher(device), outcome)

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Performed %s on device %s", outcome, device.ID()),
	})
}

// ButtonRequest presses a hardware or virtual button by name.
type ButtonRequest struct {
	DeviceID string `json:"deviceId"`
	Button   string `json:"button"`
}

// ButtonCommand injects a single key without haptics or IME handling.
func ButtonCommand(req ButtonRequest) *CommandResponse {
	if req.Button == "" {
		return NewErrorResponse(fmt.Errorf("button is required"))
	}

	device, err := FindDeviceOrAutoSelect(req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := device.PressButton(ctx, req.Button); err != nil {
		return NewErrorResponse(fmt.Errorf("failed to press button: %w", err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Pressed %s on device %s", req.Button, device.ID()),
	})
}

// performOutcome mirrors the calls the recognizer makes when it resolves.
func performOutcome(d gesture.ActionDispatcher, outcome gesture.Outcome) {
	switch outcome {
	case gesture.OutcomeBack:
		d.TriggerHaptic(gesture.HapticVirtualKey)
		d.InjectKey(gesture.KeyBack)
	case gesture.OutcomeHome:
		d.DismissInputMethod()
		d.TriggerHaptic(gesture.HapticVirtualKey)
		d.InjectKey(gesture.KeyHome)
	case gesture.OutcomeRecents:
		d.TriggerHaptic(gesture.HapticVirtualKey)
		d.ToggleRecents()
	case gesture.OutcomeLastApp:
		d.TriggerHaptic(gesture.HapticLongPress)
		d.SwitchToLastApp()
	}
}
