// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cli compiles a declarative table of commands and arguments into a
// cobra command tree.
//
// The table describes arguments the way a shell user sees them: flags that take
// several values (--domain FIELD OPERATOR VALUE), flags that append constants to a
// shared list (--or, --and), positional arguments with fixed choices and values
// that fall back to the environment or an interactive prompt. pflag only knows
// single-valued flags, so Parse first rewrites the command line into repeated
// --name=value flags, then lets cobra parse it into a Namespace.
package cli

import (
	"context"
	"strings"
)

// Action decides what happens to the values of an argument.
type Action int

const (
	// Store keeps the last value. With OneOrMore every value is kept.
	Store Action = iota
	// StoreTrue sets true when the flag is present.
	StoreTrue
	// Append adds each value, or each group of Nargs values, to a list.
	Append
	// AppendConst adds Const to a list when the flag is present.
	AppendConst
	// Extend adds every value to a list individually.
	Extend
)

// Nargs is the number of command-line tokens an argument consumes.
type Nargs int

const (
	// One consumes exactly one token.
	One Nargs = 0
	// Optional consumes a value only in the --flag=VALUE form.
	Optional Nargs = -1
	// OneOrMore consumes tokens up to the next flag.
	OneOrMore Nargs = -2
)

// Coercer converts one token into a typed value.
type Coercer func(tok string) (any, error)

// Spread is returned by a Coercer whose single token stands for several values.
type Spread []any

// Detail describes one argument.
type Detail struct {
	Action Action
	Nargs  Nargs
	Const  any
	// Default is stored in the Namespace before parsing.
	Default any
	Type    Coercer
	// NewType builds a fresh Coercer for every parse; it wins over Type.
	NewType func() Coercer
	// Combine builds one value from a complete group of Nargs tokens.
	Combine  func([]any) (any, error)
	Choices  []string
	Required bool
	Help     string
	Metavar  []string
	// Dest is the Namespace key. It defaults to the first long name.
	Dest   string
	Ask    *Ask
	Hidden bool
}

// Ask makes an unset argument fall back to an environment variable and then to
// the Asker.
type Ask struct {
	Prompt string
	Env    string
	Secret bool
}

// Question is handed to the Asker for an argument still unset after parsing.
type Question struct {
	Dest   string
	Prompt string
	Env    string
	Secret bool
}

// Asker acquires a value interactively. It may consult ns for values resolved
// earlier, since arguments are resolved in table order.
type Asker func(ctx context.Context, q Question, ns *Namespace) (string, error)

// Exclusive puts arguments sharing Key in one mutually exclusive group.
type Exclusive struct {
	Key      string
	Required bool
}

// Group puts arguments sharing Title in one section of the help output.
type Group struct {
	Title       string
	Description string
}

// Argument is a flag ("--name", "-n") or a positional ("topic").
type Argument struct {
	Names     []string
	Detail    Detail
	Exclusive *Exclusive
	Group     *Group
}

// Positional reports whether the argument is positional.
func (a *Argument) Positional() bool {
	return len(a.Names) > 0 && !strings.HasPrefix(a.Names[0], "-")
}

// Long returns the first long flag name without dashes.
func (a *Argument) Long() string {
	for _, n := range a.Names {
		if strings.HasPrefix(n, "--") {
			return strings.TrimPrefix(n, "--")
		}
	}
	if a.Positional() {
		return a.Names[0]
	}
	return ""
}

// Aliases returns the long names after the first.
func (a *Argument) Aliases() []string {
	var out []string
	first := true
	for _, n := range a.Names {
		if !strings.HasPrefix(n, "--") {
			continue
		}
		if first {
			first = false
			continue
		}
		out = append(out, strings.TrimPrefix(n, "--"))
	}
	return out
}

// Short returns the one-letter name, if any.
func (a *Argument) Short() string {
	for _, n := range a.Names {
		if len(n) == 2 && n[0] == '-' && n[1] != '-' {
			return n[1:]
		}
	}
	return ""
}

// DestName returns the Namespace key of the argument.
func (a *Argument) DestName() string {
	if a.Detail.Dest != "" {
		return a.Detail.Dest
	}
	return strings.ReplaceAll(a.Long(), "-", "_")
}

// Arity returns how many tokens follow the flag on the command line, with -1
// meaning "up to the next flag".
func (a *Argument) Arity() int {
	switch a.Detail.Action {
	case StoreTrue, AppendConst:
		return 0
	}
	switch n := a.Detail.Nargs; {
	case n == Optional:
		return 0
	case n == OneOrMore:
		return -1
	case n == One:
		return 1
	default:
		return int(n)
	}
}

// Command is one subcommand.
type Command struct {
	Name      string
	Short     string
	Long      string
	Example   string
	Arguments []Argument
}

// Program is the whole command-line interface.
type Program struct {
	Name    string
	Short   string
	Long    string
	Version string
	Globals []Argument
	// Commands are the subcommands; one of them is required.
	Commands []Command
	// IntrospectFlags are Namespace keys that, when true, suppress prompting.
	IntrospectFlags []string
}
