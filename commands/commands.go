package commands

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mobile-next/edgenav/config"
	"github.com/mobile-next/edgenav/devices"
)

// CommandResponse represents a standardized response format for all commands
type CommandResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) *CommandResponse {
	return &CommandResponse{
		Status: "ok",
		Data:   data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err error) *CommandResponse {
	return &CommandResponse{
		Status: "error",
		Error:  err.Error(),
	}
}

// deviceCache keeps device handles between lookups so per-device state
// (such as the resolved home package) survives across commands.
var deviceCache, _ = lru.New[string, devices.ControllableDevice](16)

// listDevices is swapped in tests.
var listDevices = devices.GetAllControllableDevices

// deviceRegistry holds the registry for cleanup tracking.
// It is set once at application startup via SetRegistry.
var deviceRegistry *devices.DeviceRegistry

// SetRegistry sets the global device registry for cleanup tracking.
// Watch sessions register themselves here so SIGINT/SIGTERM can stop them.
func SetRegistry(registry *devices.DeviceRegistry) {
	deviceRegistry = registry
}

// GetRegistry returns the current device registry.
// Returns nil if SetRegistry has not been called yet.
func GetRegistry() *devices.DeviceRegistry {
	return deviceRegistry
}

var (
	configMu  sync.RWMutex
	appConfig = config.Default()
)

// SetConfig installs the configuration loaded at startup.
func SetConfig(cfg config.Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// GetConfig returns the active configuration.
func GetConfig() config.Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// FindDevice finds a device by ID, using cache when possible
func FindDevice(deviceID string) (devices.ControllableDevice, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device ID is required")
	}

	if device, exists := deviceCache.Get(deviceID); exists {
		return device, nil
	}

	allDevices, err := listDevices()
	if err != nil {
		return nil, fmt.Errorf("error getting devices: %w", err)
	}

	for _, d := range allDevices {
		if d.ID() == deviceID {
			deviceCache.Add(deviceID, d)
			return d, nil
		}
	}

	return nil, fmt.Errorf("device not found: %s", deviceID)
}

// FindDeviceOrAutoSelect finds a device by ID, or auto-selects if deviceID is empty
func FindDeviceOrAutoSelect(deviceID string) (devices.ControllableDevice, error) {
	if deviceID != "" {
		return FindDevice(deviceID)
	}

	allDevices, err := listDevices()
	if err != nil {
		return nil, fmt.Errorf("error getting devices: %w", err)
	}

	var onlineDevices []devices.ControllableDevice
	for _, d := range allDevices {
		if d.State() == "online" {
			onlineDevices = append(onlineDevices, d)
		}
	}

	if len(onlineDevices) == 0 {
		return nil, fmt.Errorf("no online devices found")
	}

	if len(onlineDevices) > 1 {
		err = fmt.Errorf("multiple devices found (%d), please specify --device with one of: %s", len(onlineDevices), getDeviceIDList(onlineDevices))
		return nil, err
	}

	// exactly 1 online device - reuse the cached instance if there is one
	device := onlineDevices[0]
	if cached, exists := deviceCache.Get(device.ID()); exists {
		return cached, nil
	}

	deviceCache.Add(device.ID(), device)
	return device, nil
}

// findAndroidDevice narrows a lookup to devices driven over adb.
func findAndroidDevice(deviceID string) (*devices.AndroidDevice, error) {
	device, err := FindDeviceOrAutoSelect(deviceID)
	if err != nil {
		return nil, err
	}
	android, ok := device.(*devices.AndroidDevice)
	if !ok {
		return nil, fmt.Errorf("device %s is not an android device", device.ID())
	}
	return android, nil
}

// getDeviceIDList returns a comma-separated list of device IDs for error messages
func getDeviceIDList(devices []devices.ControllableDevice) string {
	var ids []string
	for _, d := range devices {
		ids = append(ids, d.ID())
	}
	return fmt.Sprintf("[%s]", strings.Join(ids, ", "))
}
