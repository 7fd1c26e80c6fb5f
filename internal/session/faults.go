// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"
	"regexp"
	"sort"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
	"clo/cli/internal/xmlrpc"
)

var (
	exceptionPattern = regexp.MustCompile(`Traceback +.+:\n((?: .+\n)+)(\S.+)`)
	framePattern     = regexp.MustCompile(`(?im)^ *File +"([^"]+)", +line +(\d+), +in +(\w+)\n +(\S.+)`)
)

// Frame is one entry of a server-side traceback.
type Frame struct {
	File     string
	Line     string
	Function string
	Source   string
}

func (f Frame) String() string {
	return fmt.Sprintf("File %q, line %s, in %s: %s", f.File, f.Line, f.Function, f.Source)
}

// Stack is one exception of a traceback chain.
type Stack struct {
	Frames []Frame
	Error  string
}

// ToStacks extracts the chained exceptions embedded in a fault message, oldest
// first. A message without a traceback yields no stacks.
func ToStacks(message string) []Stack {
	var stacks []Stack
	for _, exc := range exceptionPattern.FindAllStringSubmatch(message, -1) {
		st := Stack{Error: exc[2]}
		for _, m := range framePattern.FindAllStringSubmatch(exc[1], -1) {
			st.Frames = append(st.Frames, Frame{File: m[1], Line: m[2], Function: m[3], Source: m[4]})
		}
		stacks = append(stacks, st)
	}
	return stacks
}

// HandleProtocol logs a transport-level failure and returns its exit status. At
// DEBUG the URL and every response header are logged too.
func (s *Session) HandleProtocol(err *xmlrpc.ProtocolError) int {
	s.log.Error(fmt.Sprintf("PROTOCOL_ERROR(%d): %s", err.StatusCode, err.Message()))
	if s.log.Enabled(logging.DEBUG) {
		s.log.Debug("URL:", err.URL)
		s.log.Debug("HEADERS:")
		keys := make([]string, 0, len(err.Header))
		for k := range err.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range err.Header[k] {
				s.log.Debug(fmt.Sprintf("- %s: %s", k, v))
			}
		}
	}
	return apperr.CodeProtocol
}

// HandleFault logs an application-level error returned by the server and returns
// its exit status. Embedded tracebacks are logged frame by frame at DEBUG.
func (s *Session) HandleFault(f *xmlrpc.Fault) int {
	stacks := ToStacks(f.String)
	if len(stacks) == 0 {
		s.log.Error(fmt.Sprintf("FAULT_ERROR(%d): %s", f.Code, f.String))
		return apperr.CodeFault
	}
	for i, st := range stacks {
		for j, frame := range st.Frames {
			if j == 0 {
				s.log.Debug(frame)
				continue
			}
			s.log.Send(logging.DEBUG, "  -", frame)
		}
		if i > 0 {
			s.log.Info("During handling of the above exception, another exception occurred:")
		}
		s.log.Error(fmt.Sprintf("FAULT_ERROR(%d): %s", f.Code, st.Error))
	}
	return apperr.CodeFault
}
