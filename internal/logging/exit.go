// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"io"
)

// Exit is the signal that ends an invocation. Components return it as an error;
// the command layer catches it once and turns it into the process exit status.
type Exit struct {
	Code    int
	Message string
	// Out receives Message. Nil means standard output.
	Out io.Writer
}

// NewExit builds an exit signal; the optional values form its message.
func NewExit(code int, v ...any) *Exit {
	e := &Exit{Code: code}
	if len(v) > 0 {
		e.Message = join(v)
	}
	return e
}

func (e *Exit) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("exit %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("exit %d", e.Code)
}

// Done prints the message, if any, and returns the exit status.
func (e *Exit) Done(stdout io.Writer) int {
	if e.Message != "" {
		w := e.Out
		if w == nil {
			w = stdout
		}
		fmt.Fprintln(w, e.Message)
	}
	return e.Code
}
