// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns network failures talking to an Odoo instance into
// short, user-facing explanations.
package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Category is the broad class of a network failure.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	Refused
	TLS
	Server
)

func (c Category) String() string {
	switch c {
	case Timeout:
		return "timeout"
	case DNS:
		return "dns"
	case Refused:
		return "refused"
	case TLS:
		return "tls"
	case Server:
		return "server"
	}
	return "generic"
}

// Classify detects the category of err.
func Classify(err error) Category {
	switch {
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return Refused
	case isSSLError(err):
		return TLS
	case isServerError(err.Error()):
		return Server
	}
	return Generic
}

// Describe returns a headline followed by hints for err, phrased for the
// instance at host.
func Describe(err error, host string) []string {
	if err == nil {
		return nil
	}
	switch Classify(err) {
	case Timeout:
		return []string{
			fmt.Sprintf("Connection to %s timed out", host),
			"The instance took too long to respond. It may be overloaded or a firewall may be dropping packets.",
		}
	case DNS:
		return []string{
			fmt.Sprintf("Cannot resolve %s", host),
			"Check the instance address (--inst or OD_INSTANCE) and your DNS settings.",
		}
	case Refused:
		return []string{
			fmt.Sprintf("Connection refused by %s", host),
			"Is the Odoo server running and listening on that port?",
		}
	case TLS:
		return []string{
			fmt.Sprintf("Secure connection to %s failed", host),
			"Check the certificate, any HTTPS proxy and the system clock.",
		}
	case Server:
		return []string{
			fmt.Sprintf("%s reported a server error", host),
			"The instance is reachable but failing. Try again later.",
		}
	}
	details := err.Error()
	if len(details) > 100 {
		details = details[:100] + "..."
	}
	return []string{
		fmt.Sprintf("Cannot connect to %s", host),
		"Technical details: " + details,
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError checks if the error indicates a server-side problem (5xx errors).
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
