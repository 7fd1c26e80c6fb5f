// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package types

import (
	"fmt"
	"net/url"
	"strings"
)

// URL is an absolute URL with both a scheme and a host. Trailing slashes are trimmed.
type URL string

// ParseURL validates s and returns it as a URL.
func ParseURL(s string) (URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not a valid URL (expected scheme://host[:port])", s)
	}
	return URL(strings.TrimRight(u.String(), "/")), nil
}

// ParseURLValue is the coercion hook used by the parser.
func ParseURLValue(s string) (any, error) {
	return ParseURL(s)
}

// Join appends an endpoint path.
func (u URL) Join(path string) string {
	return string(u) + "/" + strings.TrimLeft(path, "/")
}

// Host returns the host[:port] part.
func (u URL) Host() string {
	p, err := url.Parse(string(u))
	if err != nil {
		return ""
	}
	return p.Host
}

func (u URL) String() string { return string(u) }
