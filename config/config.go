// Package config loads edgenav settings from a TOML or INI file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mobile-next/edgenav/gesture"
)

const DefaultServerAddress = "localhost:12100"

// Device-side settings that override the file thresholds when present.
const (
	SettingTriggerTimeout = "bottom_gesture_navigation_trigger_timeout"
	SettingSwipeLimit     = "bottom_gesture_navigation_swipe_limit"
)

// Config is the effective configuration after defaults and file values are merged.
type Config struct {
	Thresholds ThresholdsConfig `json:"thresholds"`
	Band       BandConfig       `json:"band"`
	Watch      WatchConfig      `json:"watch"`
	Server     ServerConfig     `json:"server"`
	Journal    JournalConfig    `json:"journal"`

	// Source is the file the values came from, empty for pure defaults.
	Source string `json:"source,omitempty"`
}

type ThresholdsConfig struct {
	MinSwipeLengthDp int `json:"minSwipeLengthDp"`
	MoveTolerancePx  int `json:"moveTolerancePx"`
	TriggerTimeoutMs int `json:"triggerTimeoutMs"`
}

type BandConfig struct {
	WidthPx int `json:"widthPx"`
}

type WatchConfig struct {
	TouchDevice    string `json:"touchDevice,omitempty"`
	KeyguardPollMs int    `json:"keyguardPollMs"`
	QueueSize      int    `json:"queueSize"`
	// DeviceSettings enables reading threshold overrides from the device.
	DeviceSettings bool `json:"deviceSettings"`
}

type ServerConfig struct {
	Listen string `json:"listen"`
	CORS   bool   `json:"cors"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Thresholds: ThresholdsConfig{
			MinSwipeLengthDp: gesture.DefaultMinSwipeLengthDp,
			MoveTolerancePx:  gesture.DefaultMoveTolerancePx,
			TriggerTimeoutMs: gesture.DefaultTriggerTimeoutMs,
		},
		Band: BandConfig{WidthPx: gesture.DefaultBandWidthPx},
		Watch: WatchConfig{
			KeyguardPollMs: 500,
			QueueSize:      32,
			DeviceSettings: true,
		},
		Server:  ServerConfig{Listen: DefaultServerAddress},
		Journal: JournalConfig{Enabled: true, Path: DefaultJournalPath()},
	}
}

// Load reads the file at path, choosing the format from its extension.
// A missing file yields the defaults. An empty path searches the default
// locations.
func Load(path string) (Config, error) {
	if path == "" {
		return LoadDefault()
	}

	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to stat config: %w", err)
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = applyTOML(path, &cfg)
	case ".ini", ".conf":
		err = applyINI(path, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// LoadDefault loads the first existing file of DefaultConfigPaths.
func LoadDefault() (Config, error) {
	for _, path := range DefaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if c.Band.WidthPx <= 0 {
		return fmt.Errorf("band width must be positive, got %d", c.Band.WidthPx)
	}
	if c.Thresholds.MinSwipeLengthDp <= 0 {
		return fmt.Errorf("min swipe length must be positive, got %d", c.Thresholds.MinSwipeLengthDp)
	}
	if c.Thresholds.MoveTolerancePx < 0 {
		return fmt.Errorf("move tolerance must not be negative, got %d", c.Thresholds.MoveTolerancePx)
	}
	if c.Thresholds.TriggerTimeoutMs <= 0 {
		return fmt.Errorf("trigger timeout must be positive, got %d", c.Thresholds.TriggerTimeoutMs)
	}
	if c.Watch.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.Watch.QueueSize)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal path is empty")
	}
	return nil
}

// GestureThresholds converts the file thresholds to pixels for a display density.
func (c Config) GestureThresholds(density float64) gesture.ThresholdConfig {
	return gesture.ThresholdConfig{
		MinSwipeLengthPx: gesture.DpToPx(c.Thresholds.MinSwipeLengthDp, density),
		MoveTolerancePx:  c.Thresholds.MoveTolerancePx,
		TriggerTimeoutMs: c.Thresholds.TriggerTimeoutMs,
	}
}

// KeyguardPollInterval returns the keyguard polling period.
func (c Config) KeyguardPollInterval() time.Duration {
	return time.Duration(c.Watch.KeyguardPollMs) * time.Millisecond
}
