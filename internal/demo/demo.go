// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package demo obtains credentials for a throwaway instance on the public demo
// server.
//
// The demo server answers an OPTIONS request with a chain of redirects. The
// last hop is a 303 whose URL carries the database, login and key of a freshly
// created instance in its query string.
package demo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"clo/cli/internal/config"
	apperr "clo/cli/internal/errors"
)

// DefaultURL is the public demo server.
const DefaultURL = "https://demo.odoo.com"

// DefaultTimeout bounds each request of the redirect chain.
const DefaultTimeout = 3 * time.Second

const maxHops = 10

// Credentials name one demo instance.
type Credentials struct {
	Instance string
	Database string
	Username string
	Password string
}

// Env returns the credentials as OD_* environment assignments.
func (c Credentials) Env() map[string]string {
	return map[string]string{
		config.EnvInstance: c.Instance,
		config.EnvDatabase: c.Database,
		config.EnvUsername: c.Username,
		config.EnvPassword: c.Password,
	}
}

// Fetcher requests demo credentials.
type Fetcher struct {
	URL    string
	Client *http.Client
}

// NewFetcher returns a Fetcher for DefaultURL.
func NewFetcher() *Fetcher {
	return &Fetcher{
		URL: DefaultURL,
		Client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

var browserHeaders = map[string]string{
	"Accept-Encoding":           "gzip, deflate, br",
	"Accept-Language":           "en-US,en;q=0.9",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
	"User-Agent":                "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
}

// Fetch follows 300-302 redirects by hand until the 303 that names the
// instance.
func (f *Fetcher) Fetch(ctx context.Context) (Credentials, error) {
	target := f.URL
	for hop := 0; hop < maxHops; hop++ {
		status, location, err := f.options(ctx, target)
		if err != nil {
			return Credentials{}, err
		}
		switch status {
		case http.StatusMultipleChoices, http.StatusMovedPermanently, http.StatusFound:
			next, err := resolve(target, location)
			if err != nil {
				return Credentials{}, err
			}
			target = next
		case http.StatusSeeOther:
			if creds, ok := parse(target); ok {
				return creds, nil
			}
			next, err := resolve(target, location)
			if err != nil {
				return Credentials{}, err
			}
			if creds, ok := parse(next); ok {
				return creds, nil
			}
			return Credentials{}, apperr.Newf(apperr.Internal, "demo server redirected to %s without credentials", next)
		default:
			return Credentials{}, apperr.Newf(apperr.Internal, "demo server answered %d %s", status, http.StatusText(status))
		}
	}
	return Credentials{}, apperr.Newf(apperr.Internal, "demo server redirected more than %d times", maxHops)
}

func (f *Fetcher) options(ctx context.Context, target string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, target, nil)
	if err != nil {
		return 0, "", apperr.Wrap(apperr.Internal, "demo request", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Location"), nil
}

func resolve(base, location string) (string, error) {
	if location == "" {
		return "", apperr.New(apperr.Internal, "demo server redirected without a Location")
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "demo redirect", err)
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "demo redirect", err)
	}
	return b.ResolveReference(loc).String(), nil
}

// parse reads dbname, user and key from the query of raw.
func parse(raw string) (Credentials, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return Credentials{}, false
	}
	q := u.Query()
	creds := Credentials{
		Instance: fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Database: q.Get("dbname"),
		Username: q.Get("user"),
		Password: q.Get("key"),
	}
	return creds, creds.Database != "" && creds.Username != "" && creds.Password != ""
}
