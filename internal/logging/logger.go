// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides the leveled logger used across clo, the exit signal that
// ends an invocation, and utilities for keeping credentials out of log output.
//
// Log lines have the shape "LEVEL | message" and go to the error stream. The active
// level decides which severities are emitted; everything more verbose is dropped.
// FATAL is special: a Fatal call always produces an *Exit for the caller to return,
// whether or not the line itself was emitted.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// DefaultLevel is the level a new Logger starts with.
const DefaultLevel = ERROR

var labelStyles = [numLevels]*pterm.Style{
	FATAL: pterm.NewStyle(pterm.FgRed, pterm.Bold),
	ERROR: pterm.NewStyle(pterm.FgRed),
	WARN:  pterm.NewStyle(pterm.FgYellow),
	INFO:  pterm.NewStyle(pterm.FgCyan),
	DEBUG: pterm.NewStyle(pterm.FgGray),
	TRACE: pterm.NewStyle(pterm.FgMagenta),
}

// Logger writes leveled lines to a single stream.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	styled bool
	emit   [numLevels]func(label, msg string)
}

// New returns a Logger writing to w at DefaultLevel. Level labels are coloured only
// when w is a terminal.
func New(w io.Writer) *Logger {
	l := &Logger{out: w, styled: isTerminal(w)}
	l.SetLevel(DefaultLevel)
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetLevel makes lv the active threshold and rebinds every severity accordingly.
func (l *Logger) SetLevel(lv Level) {
	if lv < OFF {
		lv = OFF
	}
	if lv > TRACE {
		lv = TRACE
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lv
	for i := 1; i < numLevels; i++ {
		if Level(i) <= lv {
			l.emit[i] = l.send
		} else {
			l.emit[i] = discard
		}
	}
}

// Level returns the active threshold.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Enabled reports whether lines at lv are currently emitted.
func (l *Logger) Enabled(lv Level) bool {
	return lv > OFF && lv <= l.Level()
}

// Bump raises the threshold to lv. It never lowers verbosity.
func (l *Logger) Bump(lv Level) {
	if lv > l.Level() {
		l.SetLevel(lv)
	}
}

// Fatal logs at FATAL and returns the exit signal carrying code.
func (l *Logger) Fatal(code int, v ...any) *Exit {
	l.log(FATAL, v...)
	return &Exit{Code: code}
}

// Fail logs at ERROR and returns the exit signal carrying code.
func (l *Logger) Fail(code int, v ...any) *Exit {
	l.log(ERROR, v...)
	return &Exit{Code: code}
}

func (l *Logger) Error(v ...any) { l.log(ERROR, v...) }
func (l *Logger) Warn(v ...any)  { l.log(WARN, v...) }
func (l *Logger) Info(v ...any)  { l.log(INFO, v...) }
func (l *Logger) Debug(v ...any) { l.log(DEBUG, v...) }
func (l *Logger) Trace(v ...any) { l.log(TRACE, v...) }

// Debugf formats according to a format specifier and logs at DEBUG.
func (l *Logger) Debugf(format string, args ...any) {
	if l.Enabled(DEBUG) {
		l.log(DEBUG, fmt.Sprintf(format, args...))
	}
}

// Send writes a line with a custom label when lv is enabled.
func (l *Logger) Send(lv Level, label string, v ...any) {
	if l.Enabled(lv) {
		l.send(label, join(v))
	}
}

func (l *Logger) log(lv Level, v ...any) {
	l.mu.Lock()
	emit := l.emit[lv]
	l.mu.Unlock()
	emit(l.label(lv), join(v))
}

func (l *Logger) label(lv Level) string {
	label := fmt.Sprintf("%-5s |", lv)
	if l.styled {
		return labelStyles[lv].Sprint(label)
	}
	return label
}

func (l *Logger) send(label, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, label, msg)
}

func discard(string, string) {}

// join renders values the way print does: space separated.
func join(v []any) string {
	return strings.TrimSuffix(fmt.Sprintln(v...), "\n")
}
