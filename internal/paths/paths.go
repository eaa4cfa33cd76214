// Package paths resolves the tablestore configuration and data directories.
package paths

import (
	"cmp"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "tablestore"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// DefaultDataDirName is the data directory used when nothing else is
// configured, relative to the working directory.
const DefaultDataDirName = ".tablestore-db"

// Environment variables that override the directories.
const (
	EnvConfigDir = "TABLESTORE_CONFIG_DIR"
	EnvDataDir   = "TABLESTORE_DATA_DIR"
)

// Overridable in tests.
var (
	userHomeDir   = os.UserHomeDir
	userConfigDir = os.UserConfigDir
	getwd         = os.Getwd
)

// DefaultConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/tablestore or ~/.config/tablestore on Linux, and
// os.UserConfigDir()/tablestore elsewhere.
func DefaultConfigDir() (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// ResolveConfigDir returns the first of flag, $TABLESTORE_CONFIG_DIR and
// DefaultConfigDir that is set, as an absolute path.
func ResolveConfigDir(flag string) (string, error) {
	if dir := cmp.Or(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the first of flag, the configured value and
// $TABLESTORE_DATA_DIR that is set, as an absolute path. With none set it
// is DefaultDataDirName under the working directory.
func ResolveDataDir(flag, configured string) (string, error) {
	if dir := cmp.Or(flag, configured, os.Getenv(EnvDataDir)); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the configuration file path in configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}
