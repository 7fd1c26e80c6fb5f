package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
)

func newLog() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logging.New(&buf)
	log.SetLevel(logging.WARN)
	return log, &buf
}

func TestLoadMissingWarns(t *testing.T) {
	log, buf := newLog()
	path := filepath.Join(t.TempDir(), ".clorc")
	require.NoError(t, Load(path, log))
	assert.Contains(t, buf.String(), "WARN  | Config file "+path+" was not found.")
}

func TestLoadDoesNotOverride(t *testing.T) {
	log, _ := newLog()
	path := filepath.Join(t.TempDir(), ".clorc")
	content := "OD_INSTANCE=http://odoo.test:8069\nOD_DATABASE=${CLO_TEST_PREFIX}_prod\nOD_USERNAME=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CLO_TEST_PREFIX", "acme")
	t.Setenv(EnvUsername, "from-env")
	t.Setenv(EnvInstance, "")
	require.NoError(t, os.Unsetenv(EnvInstance))
	t.Setenv(EnvDatabase, "")
	require.NoError(t, os.Unsetenv(EnvDatabase))

	require.NoError(t, Load(path, log))
	assert.Equal(t, "http://odoo.test:8069", os.Getenv(EnvInstance))
	assert.Equal(t, "acme_prod", os.Getenv(EnvDatabase))
	assert.Equal(t, "from-env", os.Getenv(EnvUsername))
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadInterpolation(t *testing.T) {
	log, _ := newLog()
	path := filepath.Join(t.TempDir(), ".clorc")
	content := "CLO_TEST_HOST=odoo.local\n" +
		"OD_INSTANCE=https://${CLO_TEST_HOST}:8069\n" +
		"OD_USERNAME=${CLO_TEST_USER}@$CLO_TEST_DOMAIN\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CLO_TEST_USER", "ada")
	t.Setenv("CLO_TEST_DOMAIN", "example.com")
	unsetenv(t, "CLO_TEST_HOST", EnvInstance, EnvUsername)

	require.NoError(t, Load(path, log))
	assert.Equal(t, "ada@example.com", os.Getenv(EnvUsername))
	assert.Equal(t, "https://odoo.local:8069", os.Getenv(EnvInstance))
	assert.Equal(t, "odoo.local", os.Getenv("CLO_TEST_HOST"))
}

func TestInterpolate(t *testing.T) {
	t.Setenv("CLO_TEST_PREFIX", "acme")
	unsetenv(t, "CLO_TEST_MISSING")
	assert.Equal(t, "A=acme_prod", interpolate("A=${CLO_TEST_PREFIX}_prod"))
	assert.Equal(t, "A=acme", interpolate("A=$CLO_TEST_PREFIX"))
	assert.Equal(t, `A=\${CLO_TEST_PREFIX}`, interpolate(`A=\${CLO_TEST_PREFIX}`))
	assert.Equal(t, "A=${CLO_TEST_MISSING}", interpolate("A=${CLO_TEST_MISSING}"))
}

func TestLoadUnreadable(t *testing.T) {
	log, _ := newLog()
	err := Load(t.TempDir(), log)
	require.Error(t, err)
	assert.Equal(t, apperr.Preprocess, apperr.KindOf(err))
	assert.Equal(t, 2, apperr.KindOf(err).Code())
}

func TestDefaultPathPrefersHome(t *testing.T) {
	home := t.TempDir()
	conf := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", conf)

	assert.Equal(t, filepath.Join(home, FileName), DefaultPath())

	xdgFile := filepath.Join(conf, "clo", "clorc")
	require.NoError(t, os.MkdirAll(filepath.Dir(xdgFile), 0o700))
	require.NoError(t, os.WriteFile(xdgFile, nil, 0o600))
	assert.Equal(t, xdgFile, DefaultPath())

	require.NoError(t, os.WriteFile(filepath.Join(home, FileName), nil, 0o600))
	assert.Equal(t, filepath.Join(home, FileName), DefaultPath())
}

func TestWriteAndRender(t *testing.T) {
	values := map[string]string{EnvDatabase: "demo_db", EnvUsername: "admin"}
	path := filepath.Join(t.TempDir(), "sub", "demo.env")
	require.NoError(t, Write(path, values))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	text, err := Render(values)
	require.NoError(t, err)
	assert.Equal(t, "OD_DATABASE=\"demo_db\"\nOD_USERNAME=\"admin\"", text)
}
