// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package domain implements the record filter language: criteria triples of
// (field, operator, value) combined by prefix logic markers.
//
// Criteria arrive from the command line one token at a time. A Compiler tracks the
// position of each token inside its triple so the operator can be validated as soon
// as it is seen, before the rest of the command line is parsed.
package domain

import (
	"fmt"
	"strings"

	apperr "clo/cli/internal/errors"
)

// Operator compares a field with a value.
type Operator string

// Operators is the fixed set of comparison operators accepted by the server.
var Operators = []Operator{
	"=", "!=", ">", ">=", "<", "<=", "=?",
	"=like", "like", "not like", "ilike", "not ilike", "=ilike",
	"in", "not in", "child_of", "parent_of",
}

// ParseOperator validates s against Operators.
func ParseOperator(s string) (Operator, error) {
	for _, op := range Operators {
		if string(op) == s {
			return op, nil
		}
	}
	return "", apperr.Newf(apperr.Argument, "%q is not a valid operator; choose from %s", s, OperatorList())
}

// OperatorList renders the valid operators for diagnostics.
func OperatorList() string {
	names := make([]string, len(Operators))
	for i, op := range Operators {
		names[i] = "'" + string(op) + "'"
	}
	return strings.Join(names, ", ")
}

// Criterion is an element of a filter: a Domain or a Logic marker.
type Criterion interface {
	fmt.Stringer
	// RPCValue is the value sent over the wire.
	RPCValue() any
	isCriterion()
}

// Domain is one (field, operator, value) criterion.
type Domain struct {
	Field    string
	Operator Operator
	Value    string
}

func (d Domain) String() string {
	return fmt.Sprintf("%s %s %s", d.Field, d.Operator, d.Value)
}

func (d Domain) RPCValue() any { return []any{d.Field, string(d.Operator), d.Value} }
func (Domain) isCriterion()    {}

// Logic is a prefix marker combining the criteria that follow it.
type Logic string

const (
	And Logic = "&"
	Or  Logic = "|"
	Not Logic = "!"
)

// Arity returns how many criteria the marker governs.
func (l Logic) Arity() int {
	if l == Not {
		return 1
	}
	return 2
}

func (l Logic) String() string { return string(l) }
func (l Logic) RPCValue() any  { return string(l) }
func (Logic) isCriterion()     {}

// List is an ordered filter in prefix notation. Consecutive criteria without a
// marker are implicitly joined by And.
type List []Criterion

// RPCValue returns the wire form of the whole filter.
func (l List) RPCValue() any {
	out := make([]any, len(l))
	for i, c := range l {
		out[i] = c.RPCValue()
	}
	return out
}

// Validate checks that every logic marker is followed by enough criteria.
func (l List) Validate() error {
	operands := 0
	for i := len(l) - 1; i >= 0; i-- {
		switch c := l[i].(type) {
		case Domain:
			operands++
		case Logic:
			n := c.Arity()
			if operands < n {
				return apperr.Newf(apperr.Argument,
					"logic marker '%s' at position %d needs %d criteria after it, found %d", c, i+1, n, operands)
			}
			operands -= n - 1
		}
	}
	return nil
}
