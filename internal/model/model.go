// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model dispatches operations on a remote Odoo model.
//
// Every Operation maps to exactly one remote method plus the arguments sent when
// the caller provides none. Execute wraps each remote call in a single error
// envelope that converts any failure into an exit signal.
package model

import (
	"context"
	"errors"
	"fmt"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
	"clo/cli/internal/session"
	"clo/cli/internal/xmlrpc"
)

// Operation is a high-level action on a model.
type Operation int

const (
	Search Operation = iota
	Count
	Find
	Read
	Write
	Create
	Delete
	Fields
)

// Method describes the remote call behind an Operation.
type Method struct {
	Name   string
	Args   []any
	Kwargs map[string]any
}

var methods = map[Operation]Method{
	Search: {Name: "search", Args: []any{[]any{}}},
	Count:  {Name: "search_count", Args: []any{[]any{}}},
	Find:   {Name: "search_read", Args: []any{[]any{}}},
	Read:   {Name: "read"},
	Write:  {Name: "write"},
	Create: {Name: "create"},
	Delete: {Name: "unlink"},
	Fields: {Name: "fields_get", Args: []any{[]any{}}},
}

var operationNames = [...]string{"Search", "Count", "Find", "Read", "Write", "Create", "Delete", "Fields"}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return fmt.Sprintf("Operation(%d)", int(o))
	}
	return operationNames[o]
}

// Method returns the remote call for o.
func (o Operation) Method() (Method, bool) {
	m, ok := methods[o]
	return m, ok
}

// ParseOperation resolves an operation by its name, e.g. "Search".
func ParseOperation(name string) (Operation, bool) {
	for i, n := range operationNames {
		if n == name {
			return Operation(i), true
		}
	}
	return 0, false
}

// Model is a handle on a named remote collection.
type Model struct {
	name string
	sess *session.Session
	log  *logging.Logger
}

// New returns a handle on name that calls through sess.
func New(name string, sess *session.Session, log *logging.Logger) *Model {
	return &Model{name: name, sess: sess, log: log}
}

// Name returns the model name, e.g. "res.users".
func (m *Model) Name() string { return m.name }

func (m *Model) String() string { return fmt.Sprintf("Model['%s']", m.name) }

// Execute runs op with args and kwargs; nil values are replaced by the operation's
// defaults. The session is logged in on first use. Any failure comes back as a
// *logging.Exit: protocol errors and faults carry the session handler's status,
// interruption 250 and everything else 30.
func (m *Model) Execute(ctx context.Context, op Operation, args []any, kwargs map[string]any) (any, error) {
	method, ok := op.Method()
	if !ok {
		return nil, m.log.Fail(apperr.CodeDispatch, fmt.Sprintf("unknown operation %v", op))
	}
	if len(args) == 0 {
		args = method.Args
	}
	if len(kwargs) == 0 {
		kwargs = method.Kwargs
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	if err := m.sess.Login(ctx); err != nil {
		return nil, err
	}
	obj, err := m.sess.Object()
	if err != nil {
		return nil, m.envelope(ctx, err)
	}

	db, uid, pass := m.sess.Arguments()
	m.log.Debugf("%s.%s -> %s", m, op, method.Name)
	result, err := obj.Call(ctx, "execute_kw", db, uid, pass, m.name, method.Name, args, kwargs)
	if err != nil {
		return nil, m.envelope(ctx, err)
	}
	return result, nil
}

func (m *Model) envelope(ctx context.Context, err error) error {
	var (
		exit  *logging.Exit
		fault *xmlrpc.Fault
		perr  *xmlrpc.ProtocolError
	)
	switch {
	case errors.As(err, &exit):
		return exit
	case errors.As(err, &perr):
		return logging.NewExit(m.sess.HandleProtocol(perr))
	case errors.As(err, &fault):
		return logging.NewExit(m.sess.HandleFault(fault))
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return m.log.Fatal(apperr.CodeInterrupted, "Operation aborted")
	}
	return m.log.Fail(apperr.CodeDispatch, err)
}
