// Package xdg resolves XDG Base Directory paths for clo.
//
// Lookups fall back to the traditional locations under the home directory when
// the XDG variables are unset. Nothing is created on disk; callers that write
// make the directories they need.
package xdg

import (
	"os"
	"path/filepath"
)

// App is the subdirectory clo owns under each base directory.
const App = "clo"

// ConfigHome returns $XDG_CONFIG_HOME, falling back to ~/.config.
func ConfigHome() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return base, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

// ConfigFile returns the path of name inside clo's config directory.
func ConfigFile(name string) (string, error) {
	base, err := ConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, App, name), nil
}
