// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package types holds the small value types shared by the parser, the session and
// the output layer: Secret, which never prints its contents, and URL, which only
// exists in a validated shape.
package types

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/awnumar/memguard"
)

// Secret holds a sensitive string, sealed in an encrypted enclave. Every textual
// representation is masked with one "*" per character.
type Secret struct {
	enclave *memguard.Enclave
	size    int
}

// NewSecret seals s.
func NewSecret(s string) Secret {
	if s == "" {
		return Secret{}
	}
	buf := []byte(s)
	// NewEnclave wipes buf after copying it.
	return Secret{enclave: memguard.NewEnclave(buf), size: utf8.RuneCountInString(s)}
}

// ParseSecret is the coercion hook used by the parser.
func ParseSecret(s string) (any, error) {
	return NewSecret(s), nil
}

// Reveal returns the underlying value.
func (s Secret) Reveal() string {
	if s.enclave == nil {
		return ""
	}
	lb, err := s.enclave.Open()
	if err != nil {
		return ""
	}
	defer lb.Destroy()
	return string(lb.Bytes())
}

// Len returns the number of characters in the underlying value.
func (s Secret) Len() int { return s.size }

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool { return s.size == 0 }

// Equal compares two secrets in constant time.
func (s Secret) Equal(o Secret) bool {
	if s.size != o.size {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.Reveal()), []byte(o.Reveal())) == 1
}

func (s Secret) String() string { return strings.Repeat("*", s.size) }

// GoString masks %#v output as well.
func (s Secret) GoString() string { return fmt.Sprintf("'%s'", s.String()) }

// Format masks every verb.
func (s Secret) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('#') {
			fmt.Fprint(f, s.GoString())
			return
		}
		fmt.Fprint(f, s.String())
	case 'q':
		fmt.Fprintf(f, "%q", s.String())
	default:
		fmt.Fprint(f, s.String())
	}
}

// MarshalJSON masks the value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
