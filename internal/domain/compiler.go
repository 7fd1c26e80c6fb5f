// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package domain

import apperr "clo/cli/internal/errors"

// Position of a token inside a criterion triple.
const (
	PosField    = 1
	PosOperator = 2
	PosValue    = 3
)

// Compiler turns a flat token stream into Domain triples. It is fed one token per
// call and cycles through field, operator and value positions; only the operator
// position is validated. A Compiler belongs to one argument and must not be shared.
type Compiler struct {
	pos     int
	pending [2]string
}

// NewCompiler returns a Compiler expecting a field.
func NewCompiler() *Compiler {
	return &Compiler{pos: PosField}
}

// Position returns the position the next token will take.
func (c *Compiler) Position() int {
	if c.pos == 0 {
		return PosField
	}
	return c.pos
}

// Coerce accepts the next token and returns it, validated for its position.
// An invalid operator leaves the position unchanged.
func (c *Compiler) Coerce(tok string) (any, error) {
	_, _, err := c.Feed(tok)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// Feed accepts the next token. When the token completes a triple, the Domain is
// returned with done set.
func (c *Compiler) Feed(tok string) (d Domain, done bool, err error) {
	switch c.Position() {
	case PosField:
		c.pending[0] = tok
		c.pos = PosOperator
	case PosOperator:
		if _, err := ParseOperator(tok); err != nil {
			return Domain{}, false, err
		}
		c.pending[1] = tok
		c.pos = PosValue
	default:
		d = Domain{Field: c.pending[0], Operator: Operator(c.pending[1]), Value: tok}
		c.Reset()
		return d, true, nil
	}
	return Domain{}, false, nil
}

// Reset discards a partial triple.
func (c *Compiler) Reset() {
	c.pos = PosField
	c.pending = [2]string{}
}

// Combine builds a Domain from a complete group of three coerced tokens.
func Combine(tokens []any) (any, error) {
	if len(tokens) != 3 {
		return nil, apperr.Newf(apperr.Argument, "a domain needs FIELD OPERATOR VALUE, got %d token(s)", len(tokens))
	}
	s := make([]string, 3)
	for i, t := range tokens {
		v, ok := t.(string)
		if !ok {
			return nil, apperr.Newf(apperr.Argument, "unexpected domain token %v", t)
		}
		s[i] = v
	}
	op, err := ParseOperator(s[1])
	if err != nil {
		return nil, err
	}
	return Domain{Field: s[0], Operator: op, Value: s[2]}, nil
}
