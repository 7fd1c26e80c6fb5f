// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"
)

// Level is a log severity, ordered by increasing verbosity.
type Level int

const (
	OFF Level = iota
	FATAL
	ERROR
	WARN
	INFO
	DEBUG
	TRACE
)

const numLevels = int(TRACE) + 1

var levelNames = [numLevels]string{"OFF", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l Level) String() string {
	if l < OFF || l > TRACE {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel resolves a level name, case-insensitively.
func ParseLevel(name string) (Level, error) {
	for i, n := range levelNames {
		if strings.EqualFold(n, name) {
			return Level(i), nil
		}
	}
	return OFF, fmt.Errorf("invalid level %q (choose from %s)", name, Pretty())
}

// Pretty renders the level names for help text, e.g. "OFF|FATAL|...|TRACE".
func Pretty() string {
	return strings.Join(levelNames[:], "|")
}
