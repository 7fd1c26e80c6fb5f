// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses PostgreSQL connection strings given as output targets.
//
// Passwords pasted into a target are often not URL-encoded, so a string that
// the standard URL parser rejects is split by hand before giving up.
package dsn

import "fmt"

// DefaultPort is used when the target names no port.
const DefaultPort = "5432"

// Info is a parsed PostgreSQL connection string.
type Info struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s (%s)", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

func newParseError(reason, hint string) *ParseError {
	return &ParseError{Reason: reason, Hint: hint}
}
