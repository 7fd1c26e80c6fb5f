package keychain

import (
	"bytes"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clo/cli/internal/logging"
)

func TestAccount(t *testing.T) {
	assert.Equal(t, "admin@odoo@localhost:8069", Account("admin", "odoo", "localhost:8069"))
}

func TestPasswordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf)
	log.SetLevel(logging.DEBUG)
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil), log)
	account := Account("demo", "odoo", "localhost:8069")

	_, err := m.LoadPassword(account)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.SavePassword(account, "demo"))
	pw, err := m.LoadPassword(account)
	require.NoError(t, err)
	assert.Equal(t, "demo", pw)

	require.NoError(t, m.SavePassword(account, "changed"))
	pw, err = m.LoadPassword(account)
	require.NoError(t, err)
	assert.Equal(t, "changed", pw)

	require.NoError(t, m.ClearPassword(account))
	_, err = m.LoadPassword(account)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ClearPassword(account), "clearing twice is fine")

	assert.Contains(t, buf.String(), "stored password of demo@odoo@localhost:8069")
	assert.NotContains(t, buf.String(), "changed")
}

func TestAccountsAreIndependent(t *testing.T) {
	m := NewManagerWithRing(keyring.NewArrayKeyring(nil), nil)
	require.NoError(t, m.SavePassword(Account("admin", "a", "h"), "one"))
	require.NoError(t, m.SavePassword(Account("admin", "b", "h"), "two"))

	pw, err := m.LoadPassword(Account("admin", "a", "h"))
	require.NoError(t, err)
	assert.Equal(t, "one", pw)
	pw, err = m.LoadPassword(Account("admin", "b", "h"))
	require.NoError(t, err)
	assert.Equal(t, "two", pw)
}
