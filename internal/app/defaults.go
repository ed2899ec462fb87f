package app

import (
	"fmt"
	"os"
	"path/filepath"

	"lc-go/internal/config"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "LC_CONFIG_PATH"
	EnvHome       = "LC_HOME"
)

// Defaults are the locations lc uses when the user has not configured otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
}

// GetDefaults resolves the default locations. Each is taken from the first
// source that is set:
//
//	config file: $LC_CONFIG_PATH, $XDG_CONFIG_HOME/lc.toml, ~/.config/lc.toml
//	base dir:    $LC_HOME, $XDG_DATA_HOME/lc, ~/.local/share/lc
//
// The home directory is only looked up when a fallback needs it.
func GetDefaults() (Defaults, error) {
	configPath, err := resolve(EnvConfigPath, "XDG_CONFIG_HOME", "lc.toml", ".config")
	if err != nil {
		return Defaults{}, err
	}
	baseDir, err := resolve(EnvHome, "XDG_DATA_HOME", "lc", ".local", "share")
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// resolve returns $override, else $xdgVar/name, else ~/<homeDirs...>/name.
// A relative XDG value is ignored, as the XDG base directory spec requires.
func resolve(override, xdgVar, name string, homeDirs ...string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return p, nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	parts := append([]string{homeDir}, homeDirs...)
	return filepath.Join(append(parts, name)...), nil
}

// NewConfig returns the default configuration rooted at the base dir.
func (d Defaults) NewConfig() *config.Config {
	return config.NewConfig(d.BaseDir)
}

// LoadConfig reads the config file, or returns NewConfig when there is none.
func (d Defaults) LoadConfig() (*config.Config, error) {
	return config.Load(d.ConfigPath, d.BaseDir)
}
