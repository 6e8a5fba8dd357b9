// Package paths resolves the configuration file location.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the default configuration file name.
const ConfigFileName = "opsync.yaml"

// EnvConfigFile overrides the configuration file location.
const EnvConfigFile = "OPSYNC_CONFIG"

// platformDir holds platform-detection functions that can be overridden in
// tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// ResolveConfigFile returns the configuration file to load, following the
// precedence: --config flag > OPSYNC_CONFIG env > ./opsync.yaml >
// platform config dir. Flag and env values are returned as-is; the
// remaining candidates are returned only when the file exists. An empty
// result means no config file, which is not an error: defaults and
// environment variables still apply.
func ResolveConfigFile(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		return env, nil
	}

	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName, nil
	}

	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/opsync (fallback ~/.config/opsync)
// macOS:   ~/Library/Application Support/opsync
// Windows: %APPDATA%/opsync
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "opsync"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "opsync"), nil
	default:
		base, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, "opsync"), nil
	}
}
