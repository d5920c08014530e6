package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName = "wrtctl"
)

// ConfigDir returns the platform-specific configuration directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appName)
	default: // linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, appName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// BinDir returns the directory searched first for helper binaries.
func BinDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appName, "bin")
	default: // linux and others
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, appName, "bin")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, "bin")
	}
}

// RuntimeDir returns the directory for generated stunnel configuration and
// pid files.
func RuntimeDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, appName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", appName, os.Getuid()))
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnsureRuntimeDir creates the runtime directory if it doesn't exist.
func EnsureRuntimeDir() (string, error) {
	dir := RuntimeDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
