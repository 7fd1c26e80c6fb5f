// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session holds the connection state of one invocation: the instance URL,
// the credentials, the authenticated user id and the XML-RPC channels to the
// "common" and "object" services.
//
// A Session lives for a single invocation. It authenticates at most once unless
// Reauthenticate is called, and both channels share one cookie jar so a session
// cookie set by the server is replayed on every later call.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/httperrors"
	"clo/cli/internal/logging"
	"clo/cli/internal/types"
	"clo/cli/internal/xmlrpc"
)

// ErrAuthentication is returned by Authenticate when the server rejects the
// credentials and the caller asked to handle the failure itself.
var ErrAuthentication = errors.New("authentication failed")

// Fallback credentials tried once when the configured ones are rejected.
const (
	FallbackUsername = "admin"
	FallbackPassword = "admin"
)

const (
	commonPath = "/xmlrpc/2/common"
	objectPath = "/xmlrpc/2/object"
)

// Session is the per-invocation connection context.
type Session struct {
	log *logging.Logger

	mu       sync.Mutex
	url      types.URL
	database string
	username string
	password types.Secret
	uid      int

	hc      *http.Client
	timeout time.Duration
	trace   io.Writer
	common  xmlrpc.Caller
	object  xmlrpc.Caller
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient makes both channels use hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.hc = hc }
}

// WithTrace dumps the XML-RPC traffic to w.
func WithTrace(w io.Writer) Option {
	return func(s *Session) { s.trace = w }
}

// New creates an empty session that logs through log.
func New(log *logging.Logger, opts ...Option) *Session {
	s := &Session{log: log, timeout: xmlrpc.DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure binds the connection parameters used by Login.
func (s *Session) Configure(url types.URL, database, username string, password types.Secret) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	s.database = database
	s.username = username
	s.password = password
}

// URL returns the bound instance URL.
func (s *Session) URL() types.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Session) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Session[URL='%s', Database='%s', Username='%s']", s.url, s.database, s.username)
}

// Load binds url and opens the common channel. Later calls are no-ops. A channel
// that cannot be constructed is fatal.
func (s *Session) Load(url types.URL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.common != nil {
		return nil
	}
	if url != "" {
		s.url = url
	}
	if s.hc == nil {
		hc, err := xmlrpc.NewHTTPClient(s.timeout)
		if err != nil {
			return s.log.Fatal(apperr.CodeFatal, "cannot create HTTP client:", err)
		}
		s.hc = hc
	}
	c, err := s.channel(commonPath)
	if err != nil {
		return s.log.Fatal(apperr.CodeFatal, fmt.Sprintf("cannot connect to %q: %v", string(s.url), err))
	}
	s.common = c
	return nil
}

func (s *Session) channel(path string) (xmlrpc.Caller, error) {
	opts := []xmlrpc.Option{xmlrpc.WithHTTPClient(s.hc)}
	if s.trace != nil {
		opts = append(opts, xmlrpc.WithTrace(s.trace))
	}
	return xmlrpc.NewClient(s.url.Join(path), opts...)
}

// Authorized reports whether a user id is cached.
func (s *Session) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid != 0
}

// UID returns the cached user id, zero when not authenticated.
func (s *Session) UID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// Authenticate logs username in on database and caches the returned user id. When
// a user id is already cached it is returned without a remote call. A rejected
// login returns a FATAL exit signal when exitOnFail is set and ErrAuthentication
// otherwise. Transport failures, faults and protocol errors are returned as is.
func (s *Session) Authenticate(ctx context.Context, database, username string, password types.Secret, exitOnFail bool) (int, error) {
	if uid := s.UID(); uid != 0 {
		return uid, nil
	}
	if err := s.Load(""); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if database == "" {
		database = s.database
	} else {
		s.database = database
	}
	if username == "" {
		username = s.username
	} else {
		s.username = username
	}
	if password.IsZero() {
		password = s.password
	} else {
		s.password = password
	}
	common := s.common
	s.mu.Unlock()

	s.log.Debugf("authenticating %q on %q", username, database)
	result, err := common.Call(ctx, "authenticate", database, username, password.Reveal(), map[string]any{})
	if err != nil {
		return 0, err
	}

	uid, _ := result.(int)
	if uid == 0 {
		msg := fmt.Sprintf(`Could not authenticate the user, "%s," on the database, "%s." Please check your user and/or password.`, username, database)
		if exitOnFail {
			return 0, s.log.Fatal(apperr.CodeAuthentication, msg)
		}
		return 0, fmt.Errorf("%w: %s", ErrAuthentication, msg)
	}

	s.mu.Lock()
	s.uid = uid
	s.mu.Unlock()
	s.log.Debugf("authenticated as uid %d", uid)
	return uid, nil
}

// Reauthenticate forgets the cached user id so the next Authenticate calls the
// server again.
func (s *Session) Reauthenticate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = 0
}

// Login authenticates with the configured credentials. When they are rejected it
// retries once with the fallback admin account and exits if that fails too. Every
// failure is returned as an exit signal.
func (s *Session) Login(ctx context.Context) error {
	if s.Authorized() {
		return nil
	}
	_, err := s.Authenticate(ctx, "", "", types.Secret{}, false)
	if errors.Is(err, ErrAuthentication) {
		s.log.Warn(err.Error(), "Retrying with the default credentials.")
		_, err = s.Authenticate(ctx, "", FallbackUsername, types.NewSecret(FallbackPassword), true)
	}
	if err == nil {
		return nil
	}
	return s.exit(ctx, err)
}

// exit converts a failed remote call into the exit signal for it.
func (s *Session) exit(ctx context.Context, err error) error {
	var (
		exit  *logging.Exit
		fault *xmlrpc.Fault
		perr  *xmlrpc.ProtocolError
	)
	switch {
	case errors.As(err, &exit):
		return exit
	case errors.As(err, &fault):
		return logging.NewExit(s.HandleFault(fault))
	case errors.As(err, &perr):
		return logging.NewExit(s.HandleProtocol(perr))
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return s.log.Fatal(apperr.CodeInterrupted, "Operation aborted")
	}
	lines := httperrors.Describe(err, httperrors.ExtractHostFromURL(string(s.URL())))
	s.log.Error(lines[0])
	for _, line := range lines[1:] {
		s.log.Info(line)
	}
	s.log.Debug(err)
	return logging.NewExit(apperr.CodeInternal)
}

// Arguments returns the database, user id and password every model call carries.
func (s *Session) Arguments() (string, int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.database, s.uid, s.password.Reveal()
}

// Object returns the channel to the object service, creating it on first use.
func (s *Session) Object() (xmlrpc.Caller, error) {
	if err := s.Load(""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.object == nil {
		c, err := s.channel(objectPath)
		if err != nil {
			return nil, fmt.Errorf("open object channel: %w", err)
		}
		s.object = c
	}
	return s.object, nil
}

// Version returns the server's version metadata. It needs no authentication.
func (s *Session) Version(ctx context.Context) (map[string]any, error) {
	if err := s.Load(""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	common := s.common
	s.mu.Unlock()

	result, err := common.Call(ctx, "version")
	if err != nil {
		return nil, s.exit(ctx, err)
	}
	info, ok := result.(map[string]any)
	if !ok {
		return nil, apperr.Newf(apperr.Dispatch, "unexpected version reply %T", result)
	}
	return info, nil
}
