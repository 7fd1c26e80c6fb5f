// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores instance passwords in the OS credential store.
//
// Entries are keyed by account, the "user@database@host" triple naming one
// login, so one keychain can hold passwords for many instances. On macOS the
// native `security` command is preferred; elsewhere the keyring library picks a
// platform backend (Windows Credential Manager, Secret Service, KWallet, pass).
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	"clo/cli/internal/logging"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("no password stored")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "clo"

// Manager provides thread-safe operations on the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	backend backend
	log     *logging.Logger
}

// backend is a key/value secret store.
type backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Account names the keychain entry of one login.
func Account(user, database, host string) string {
	return fmt.Sprintf("%s@%s@%s", user, database, host)
}

// NewManager opens the OS keychain.
func NewManager(log *logging.Logger) (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(log); err == nil {
			return &Manager{backend: b, log: log}, nil
		}
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring, log), nil
}

// NewManagerWithRing returns a Manager over an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring, log *logging.Logger) *Manager {
	return &Manager{backend: ringBackend{ring}, log: log}
}

// GetManager returns the process-wide manager, retrying initialization after a
// failure.
func GetManager(log *logging.Logger) (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	globalManager, globalError = NewManager(log)
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keychain: %w", err)
	}
	return ring, nil
}

// SavePassword stores the password of account.
func (m *Manager) SavePassword(account, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Set(account, password); err != nil {
		return fmt.Errorf("storing password of %s: %w", account, err)
	}
	m.debugf("keychain: stored password of %s", account)
	return nil
}

// LoadPassword returns the password of account, or ErrNotFound.
func (m *Manager) LoadPassword(account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pw, err := m.backend.Get(account)
	if errors.Is(err, ErrNotFound) || (err == nil && pw == "") {
		m.debugf("keychain: no password for %s", account)
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading password of %s: %w", account, err)
	}
	m.debugf("keychain: found password of %s", account)
	return pw, nil
}

// ClearPassword removes the password of account. A missing entry is not an error.
func (m *Manager) ClearPassword(account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.Delete(account); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("removing password of %s: %w", account, err)
	}
	return nil
}

func (m *Manager) debugf(format string, args ...any) {
	if m.log != nil {
		m.log.Debugf(format, args...)
	}
}

// ringBackend adapts a keyring.Keyring.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
