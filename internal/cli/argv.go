// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cli

import (
	"slices"
	"strconv"
	"strings"

	apperr "clo/cli/internal/errors"
)

// scope resolves flag names for one level of the command line.
type scope struct {
	long  map[string]*Argument
	short map[string]*Argument
}

func newScope(args ...[]Argument) *scope {
	s := &scope{long: map[string]*Argument{}, short: map[string]*Argument{}}
	for _, list := range args {
		for i := range list {
			a := &list[i]
			if a.Positional() {
				continue
			}
			if l := a.Long(); l != "" {
				s.long[l] = a
			}
			for _, alias := range a.Aliases() {
				s.long[alias] = a
			}
			if sh := a.Short(); sh != "" {
				s.short[sh] = a
			}
		}
	}
	return s
}

// expand rewrites argv so that every value belongs to its own --name=value
// token. Flags are resolved against the globals until the subcommand is seen,
// then against the globals and that subcommand's arguments.
func (p *Program) expand(argv []string) ([]string, error) {
	commands := make(map[string]*Command, len(p.Commands))
	for i := range p.Commands {
		commands[p.Commands[i].Name] = &p.Commands[i]
	}
	sc := newScope(p.Globals)
	seenCommand := false

	out := make([]string, 0, len(argv))
	// A repeated store flag replaces the values of its previous occurrence.
	held := map[*Argument][]int{}
	drop := map[int]bool{}
	occur := func(arg *Argument, n int) {
		if arg.Detail.Action != Store || arg.Detail.Nargs != OneOrMore {
			return
		}
		for _, j := range held[arg] {
			drop[j] = true
		}
		held[arg] = nil
		for k := 0; k < n; k++ {
			held[arg] = append(held[arg], len(out)+k)
		}
	}

	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		var arg *Argument
		switch {
		case tok == "--":
			return append(without(out, drop), argv[i:]...), nil
		case strings.HasPrefix(tok, "--"):
			name, _, hasValue := strings.Cut(tok[2:], "=")
			if hasValue {
				if a := sc.long[name]; a != nil {
					occur(a, 1)
				}
				out = append(out, tok)
				continue
			}
			arg = sc.long[name]
		case len(tok) == 2 && tok[0] == '-' && tok[1] != '-':
			arg = sc.short[tok[1:]]
		case looksLikeFlag(tok):
			out = append(out, tok)
			continue
		default:
			if c, ok := commands[tok]; ok && !seenCommand {
				seenCommand = true
				sc = newScope(p.Globals, c.Arguments)
			}
			out = append(out, tok)
			continue
		}

		if arg == nil || arg.Arity() == 0 {
			out = append(out, tok)
			continue
		}
		values, err := take(arg, tok, argv[i+1:])
		if err != nil {
			return nil, err
		}
		occur(arg, len(values))
		for _, v := range values {
			out = append(out, "--"+arg.Long()+"="+v)
		}
		i += len(values)
	}
	return without(out, drop), nil
}

func without(toks []string, drop map[int]bool) []string {
	if len(drop) == 0 {
		return toks
	}
	kept := make([]string, 0, len(toks)-len(drop))
	for i, tok := range toks {
		if !drop[i] {
			kept = append(kept, tok)
		}
	}
	return kept
}

// take returns the tokens following flag that belong to arg.
func take(arg *Argument, flag string, rest []string) ([]string, error) {
	switch n := arg.Arity(); {
	case n == 1:
		if len(rest) == 0 || looksLikeFlag(rest[0]) {
			return nil, apperr.Newf(apperr.Argument, "argument %s: expected one argument", flag)
		}
		return rest[:1], nil
	case n > 1:
		if len(rest) < n || slices.ContainsFunc(rest[:n], looksLikeFlag) {
			return nil, apperr.Newf(apperr.Argument, "argument %s: expected %d arguments", flag, n)
		}
		return rest[:n], nil
	default:
		j := 0
		for j < len(rest) && !looksLikeFlag(rest[j]) {
			j++
		}
		if j == 0 {
			return nil, apperr.Newf(apperr.Argument, "argument %s: expected at least one argument", flag)
		}
		return rest[:j], nil
	}
}

// looksLikeFlag reports whether tok starts a new option. A lone "-" and negative
// numbers are values.
func looksLikeFlag(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err != nil
}
