package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the TOML layout. Pointers tell unset keys apart from
// zero values so only what the file names overrides the defaults.
type fileConfig struct {
	Thresholds struct {
		MinSwipeDp       *int `toml:"min-swipe-dp"`
		MoveTolerancePx  *int `toml:"move-tolerance-px"`
		TriggerTimeoutMs *int `toml:"trigger-timeout-ms"`
	} `toml:"thresholds"`
	Band struct {
		WidthPx *int `toml:"width-px"`
	} `toml:"band"`
	Watch struct {
		TouchDevice    *string `toml:"touch-device"`
		KeyguardPollMs *int    `toml:"keyguard-poll-ms"`
		QueueSize      *int    `toml:"queue-size"`
		DeviceSettings *bool   `toml:"device-settings"`
	} `toml:"watch"`
	Server struct {
		Listen *string `toml:"listen"`
		CORS   *bool   `toml:"cors"`
	} `toml:"server"`
	Journal struct {
		Enabled *bool   `toml:"enabled"`
		Path    *string `toml:"path"`
	} `toml:"journal"`
}

func applyTOML(path string, cfg *Config) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	setInt(&cfg.Thresholds.MinSwipeLengthDp, fc.Thresholds.MinSwipeDp)
	setInt(&cfg.Thresholds.MoveTolerancePx, fc.Thresholds.MoveTolerancePx)
	setInt(&cfg.Thresholds.TriggerTimeoutMs, fc.Thresholds.TriggerTimeoutMs)
	setInt(&cfg.Band.WidthPx, fc.Band.WidthPx)
	setString(&cfg.Watch.TouchDevice, fc.Watch.TouchDevice)
	setInt(&cfg.Watch.KeyguardPollMs, fc.Watch.KeyguardPollMs)
	setInt(&cfg.Watch.QueueSize, fc.Watch.QueueSize)
	setBool(&cfg.Watch.DeviceSettings, fc.Watch.DeviceSettings)
	setString(&cfg.Server.Listen, fc.Server.Listen)
	setBool(&cfg.Server.CORS, fc.Server.CORS)
	setBool(&cfg.Journal.Enabled, fc.Journal.Enabled)
	setString(&cfg.Journal.Path, fc.Journal.Path)
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
