// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// StdinToken asks an id list argument to read its values from standard input.
const StdinToken = "-"

var idsPattern = regexp.MustCompile(`^[\d\s]+$`)

// Int parses a base-10 integer.
func Int(tok string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return nil, fmt.Errorf("invalid int value: %q", tok)
	}
	return n, nil
}

// StdinIDs returns a Coercer for id lists. Any token other than StdinToken is
// parsed as one integer; StdinToken reads whitespace-separated integers from in,
// which must not be a terminal.
func StdinIDs(name string, in io.Reader) Coercer {
	return func(tok string) (any, error) {
		if tok != StdinToken {
			return Int(tok)
		}
		if isTTY(in) {
			return nil, fmt.Errorf("%q is invalid for `%s`: standard input is a terminal", tok, name)
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading ids for `%s`: %w", name, err)
		}
		text := strings.TrimSpace(string(data))
		if !idsPattern.MatchString(text) {
			return nil, fmt.Errorf("%q is invalid for `%s`", text, name)
		}
		var ids Spread
		for _, field := range strings.Fields(text) {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("%q is invalid for `%s`", text, name)
			}
			ids = append(ids, n)
		}
		return ids, nil
	}
}

func isTTY(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
