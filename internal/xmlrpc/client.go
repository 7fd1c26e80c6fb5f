// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xmlrpc is a small XML-RPC client for the Odoo external API.
//
// It speaks the subset of the protocol the server uses (including the nil
// extension), keeps session cookies in a jar shared between endpoints, and reports
// non-2xx responses as *ProtocolError with the response headers attached.
package xmlrpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultTimeout bounds a single call.
const DefaultTimeout = 60 * time.Second

// UserAgent is sent with every request.
var UserAgent = "clo-cli/1.0"

// Caller performs remote method calls on one endpoint.
type Caller interface {
	Call(ctx context.Context, method string, params ...any) (any, error)
}

// Client calls methods on a single XML-RPC endpoint.
type Client struct {
	// endpoint is the full URL, e.g. "http://localhost:8069/xmlrpc/2/object"
	endpoint string
	// client carries the shared cookie jar
	client *http.Client
	// trace receives request and response bodies when non-nil
	trace io.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient makes the Client use hc, typically to share its cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTrace dumps every request and response body to w.
func WithTrace(w io.Writer) Option {
	return func(c *Client) { c.trace = w }
}

// NewHTTPClient returns an HTTP client with a cookie jar, so cookies set by one
// response are replayed on every later request to the same site.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, endpoint)
	}
	c := &Client{endpoint: strings.TrimRight(endpoint, "/")}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		hc, err := NewHTTPClient(DefaultTimeout)
		if err != nil {
			return nil, err
		}
		c.client = hc
	}
	return c, nil
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string { return c.endpoint }

// Call invokes method with params and returns the decoded result. Faults are
// returned as *Fault and non-2xx responses as *ProtocolError.
func (c *Client) Call(ctx context.Context, method string, params ...any) (any, error) {
	var body bytes.Buffer
	if err := EncodeCall(&body, method, params); err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	c.dump("send", body.Bytes())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ProtocolError{
			URL:        c.endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header.Clone(),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.dump("reply", data)

	return DecodeResponse(bytes.NewReader(data))
}

func (c *Client) dump(direction string, data []byte) {
	if c.trace == nil {
		return
	}
	fmt.Fprintf(c.trace, "%s %s\n%s\n", direction, c.endpoint, bytes.TrimSpace(data))
}
