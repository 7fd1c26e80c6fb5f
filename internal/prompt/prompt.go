// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package prompt reads values from the user when neither a flag nor the
// environment supplied them.
//
// Reads happen on a helper goroutine so that cancelling the context returns at
// once. A secret prompt puts the terminal in no-echo mode and restores the
// previous state on every exit path, including cancellation.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"clo/cli/internal/terminal"
)

// ErrNoTerminal is returned when a secret is requested but standard input is
// not a terminal.
var ErrNoTerminal = errors.New("standard input is not a terminal")

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in  *os.File
	out *os.File

	// lines serves answers for non-terminal input; one reader is kept so buffered
	// data survives between questions.
	lines *bufio.Reader

	isTerminal   func(fd uintptr) bool
	readPassword func(fd int) ([]byte, error)
	clear        bool
}

// New returns a Prompter reading from in and printing to out.
func New(in, out *os.File) *Prompter {
	return &Prompter{
		in:           in,
		out:          out,
		lines:        bufio.NewReader(in),
		isTerminal:   func(fd uintptr) bool { return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) },
		readPassword: term.ReadPassword,
		clear:        true,
	}
}

// Ask prints label and reads an answer, repeating the question while the answer
// is empty. Secret answers are read without echo.
func (p *Prompter) Ask(ctx context.Context, label string, secret bool) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text := label + ": "
		fmt.Fprint(p.out, text)

		var (
			answer string
			err    error
		)
		if secret {
			answer, err = p.secret(ctx)
			fmt.Fprintln(p.out)
		} else {
			answer, err = p.line(ctx)
		}
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if p.clear && p.isTerminal(p.out.Fd()) {
			shown := len(answer)
			if secret {
				shown = 0
			}
			terminal.ClearPreviousLines(p.out, len(text)+shown)
		}
		if answer != "" {
			return answer, nil
		}
	}
}

type result struct {
	text string
	err  error
}

func (p *Prompter) line(ctx context.Context) (string, error) {
	done := make(chan result, 1)
	go func() {
		s, err := p.lines.ReadString('\n')
		if errors.Is(err, io.EOF) && s != "" {
			err = nil
		}
		done <- result{s, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("no answer: %w", io.ErrUnexpectedEOF)
		}
		return r.text, r.err
	}
}

func (p *Prompter) secret(ctx context.Context) (string, error) {
	fd := p.in.Fd()
	if !p.isTerminal(fd) {
		return "", ErrNoTerminal
	}
	state, err := term.GetState(int(fd))
	if err != nil {
		return "", fmt.Errorf("reading terminal state: %w", err)
	}

	done := make(chan result, 1)
	go func() {
		b, err := p.readPassword(int(fd))
		done <- result{string(b), err}
	}()
	select {
	case <-ctx.Done():
		_ = term.Restore(int(fd), state)
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}
