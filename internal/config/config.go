// Package config loads the .clorc env file into the process environment.
//
// The file holds OD_* assignments in dotenv syntax; ${VAR} references are
// expanded. Variables already present in the environment win over the file, so
// an explicit `OD_DATABASE=x clo ...` is never overridden.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
	"clo/cli/internal/xdg"
)

// FileName is the default config file name in the home directory.
const FileName = ".clorc"

// Environment variables read by clo.
const (
	EnvInstance = "OD_INSTANCE"
	EnvDatabase = "OD_DATABASE"
	EnvUsername = "OD_USERNAME"
	EnvPassword = "OD_PASSWORD"
)

// DefaultPath returns ~/.clorc, or $XDG_CONFIG_HOME/clo/clorc when only the
// latter exists.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	primary := filepath.Join(home, FileName)
	if exists(primary) {
		return primary
	}
	if p, err := xdg.ConfigFile("clorc"); err == nil && exists(p) {
		return p
	}
	return primary
}

// Load reads path into the environment. A missing file is reported with a
// warning and is not an error; an unreadable one is a preprocessing error.
func Load(path string, log *logging.Logger) error {
	if !exists(path) {
		log.Warn(fmt.Sprintf("Config file %s was not found.", path))
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.Preprocess, "reading config file "+path, err)
	}
	values, err := godotenv.Unmarshal(interpolate(string(raw)))
	if err != nil {
		return apperr.Wrap(apperr.Preprocess, "parsing config file "+path, err)
	}
	for k, v := range values {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return apperr.Wrap(apperr.Preprocess, "setting "+k, err)
		}
	}
	log.Debugf("Loaded config file %s", path)
	return nil
}

var reference = regexp.MustCompile(`\\?\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// interpolate substitutes ${VAR} and $VAR from the process environment. Escaped
// and unknown references are left for godotenv, which resolves them against
// the file's own assignments.
func interpolate(text string) string {
	return reference.ReplaceAllStringFunc(text, func(ref string) string {
		if ref[0] == '\\' {
			return ref
		}
		m := reference.FindStringSubmatch(ref)
		name := m[1] + m[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ref
	})
}

// Write stores values in dotenv syntax at path with private permissions.
func Write(path string, values map[string]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	if err := godotenv.Write(values, path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// Render returns values in dotenv syntax, one sorted assignment per line.
func Render(values map[string]string) (string, error) {
	return godotenv.Marshal(values)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
