package config

import (
	"os"
	"path/filepath"
)

const appName = "edgenav"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPaths lists the config files looked up when --config is not
// given, in order of preference.
func DefaultConfigPaths() []string {
	dir := filepath.Join(XDGConfigHome(), appName)
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.ini"),
	}
}

// DefaultJournalPath returns the default path of the resolution journal.
func DefaultJournalPath() string {
	return filepath.Join(XDGDataHome(), appName, "journal.db")
}
