package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// applyINI reads the same keys as the TOML layout, one section per table.
func applyINI(path string, cfg *Config) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	intKeys := []struct {
		section, key string
		dst          *int
	}{
		{"thresholds", "min-swipe-dp", &cfg.Thresholds.MinSwipeLengthDp},
		{"thresholds", "move-tolerance-px", &cfg.Thresholds.MoveTolerancePx},
		{"thresholds", "trigger-timeout-ms", &cfg.Thresholds.TriggerTimeoutMs},
		{"band", "width-px", &cfg.Band.WidthPx},
		{"watch", "keyguard-poll-ms", &cfg.Watch.KeyguardPollMs},
		{"watch", "queue-size", &cfg.Watch.QueueSize},
	}
	for _, k := range intKeys {
		key := file.Section(k.section).Key(k.key)
		if key.String() == "" {
			continue
		}
		v, err := key.Int()
		if err != nil {
			return fmt.Errorf("%s.%s: %w", k.section, k.key, err)
		}
		*k.dst = v
	}

	boolKeys := []struct {
		section, key string
		dst          *bool
	}{
		{"watch", "device-settings", &cfg.Watch.DeviceSettings},
		{"server", "cors", &cfg.Server.CORS},
		{"journal", "enabled", &cfg.Journal.Enabled},
	}
	for _, k := range boolKeys {
		key := file.Section(k.section).Key(k.key)
		if key.String() == "" {
			continue
		}
		v, err := key.Bool()
		if err != nil {
			return fmt.Errorf("%s.%s: %w", k.section, k.key, err)
		}
		*k.dst = v
	}

	if v := file.Section("watch").Key("touch-device").String(); v != "" {
		cfg.Watch.TouchDevice = v
	}
	if v := file.Section("server").Key("listen").String(); v != "" {
		cfg.Server.Listen = v
	}
	if v := file.Section("journal").Key("path").String(); v != "" {
		cfg.Journal.Path = v
	}
	return nil
}
