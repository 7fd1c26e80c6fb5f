// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package xmlrpc

import (
	"fmt"
	"net/http"
)

// Fault is an application-level error returned by the server.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.String)
}

// ProtocolError is a transport-level failure: the server answered with a non-2xx status.
type ProtocolError struct {
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

// Message returns the status text without the numeric code.
func (e *ProtocolError) Message() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return e.Status
}
