package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

type DoctorInfo struct {
	EdgenavVersion string   `json:"edgenav_version"`
	OS             string   `json:"os"`
	OSVersion      string   `json:"os_version"`
	AndroidHome    string   `json:"android_home"`
	ADBPath        string   `json:"adb_path"`
	ADBVersion     string   `json:"adb_version,omitempty"`
	ConfigFile     string   `json:"config_file,omitempty"`
	JournalPath    string   `json:"journal_path,omitempty"`
	Problems       []string `json:"problems,omitempty"`
}

func getAndroidSdkPath() string {
	sdkPath := os.Getenv("ANDROID_HOME")
	if sdkPath != "" {
		if _, err := os.Stat(sdkPath); err == nil {
			return sdkPath
		}
	}

	// try default Android SDK location on macOS
	homeDir := os.Getenv("HOME")
	if homeDir != "" {
		defaultPath := filepath.Join(homeDir, "Library", "Android", "sdk")
		if _, err := os.Stat(defaultPath); err == nil {
			return defaultPath
		}
	}

	// try default Android SDK location on Windows
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			defaultPath := filepath.Join(localAppData, "Android", "Sdk")
			if _, err := os.Stat(defaultPath); err == nil {
				return defaultPath
			}
		}

		// fallback to USERPROFILE on Windows
		userProfile := os.Getenv("USERPROFILE")
		if userProfile != "" {
			defaultPath := filepath.Join(userProfile, "AppData", "Local", "Android", "Sdk")
			if _, err := os.Stat(defaultPath); err == nil {
				return defaultPath
			}
		}
	}

	return ""
}

func getAdbPath() string {
	sdkPath := getAndroidSdkPath()
	if sdkPath != "" {
		adbPath := filepath.Join(sdkPath, "platform-tools", "adb")
		if runtime.GOOS == "windows" {
			adbPath += ".exe"
		}

		if _, err := os.Stat(adbPath); err == nil {
			return adbPath
		}
	}

	// check if adb is in PATH
	adbPath, err := exec.LookPath("adb")
	if err == nil {
		return adbPath
	}

	return ""
}

func getAdbVersion(adbPath string) string {
	if adbPath == "" {
		return ""
	}

	cmd := exec.Command(adbPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}

	// parse the output to get just the version line
	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		if strings.Contains(line, "Android Debug Bridge version") {
			return strings.TrimSpace(line)
		}
	}

	return strings.TrimSpace(string(output))
}

func getOSVersion() string {
	switch runtime.GOOS {
	case "darwin":
		cmd := exec.Command("sw_vers", "-productVersion")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "windows":
		cmd := exec.Command("cmd", "/c", "ver")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "linux":
		// try reading /etc/os-release
		data, err := os.ReadFile("/etc/os-release")
		if err != nil {
			return ""
		}
		lines := strings.Split(string(data), "\n")
		for _, line := range lines {
			if strings.HasPrefix(line, "PRETTY_NAME=") {
				return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
			}
		}
		return ""
	default:
		return ""
	}
}

// DoctorCommand checks that everything watch needs on the host is in place
func DoctorCommand(version string) *CommandResponse {
	cfg := GetConfig()
	info := DoctorInfo{
		EdgenavVersion: version,
		OS:             runtime.GOOS,
		OSVersion:      getOSVersion(),
		AndroidHome:    os.Getenv("ANDROID_HOME"),
		ADBPath:        getAdbPath(),
		ConfigFile:     cfg.Source,
	}

	if cfg.Journal.Enabled {
		info.JournalPath = cfg.Journal.Path
	}

	// get adb version if adb is available
	if info.ADBPath != "" {
		info.ADBVersion = getAdbVersion(info.ADBPath)
	} else {
		info.Problems = append(info.Problems, "adb not found, install Android platform-tools or set ANDROID_HOME")
	}

	if err := cfg.Validate(); err != nil {
		info.Problems = append(info.Problems, fmt.Sprintf("configuration: %v", err))
	}

	return NewSuccessResponse(info)
}
