// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"context"
	"fmt"

	apperr "clo/cli/internal/errors"
)

// Record is one row returned by the server.
type Record = map[string]any

// Query narrows Search and Find.
type Query struct {
	Fields []string
	Offset int
	// Limit is ignored when nil.
	Limit *int
	Order string
}

func (q Query) kwargs(withFields bool) map[string]any {
	kw := map[string]any{"offset": q.Offset}
	if withFields && len(q.Fields) > 0 {
		kw["fields"] = q.Fields
	}
	if q.Limit != nil {
		kw["limit"] = *q.Limit
	}
	if q.Order != "" {
		kw["order"] = q.Order
	}
	return kw
}

func criteria(c any) []any {
	if c == nil {
		return nil
	}
	return []any{c}
}

// Search returns the ids of the records matching filter.
func (m *Model) Search(ctx context.Context, filter any, q Query) ([]int, error) {
	res, err := m.Execute(ctx, Search, criteria(filter), q.kwargs(false))
	if err != nil {
		return nil, err
	}
	return m.ints(res)
}

// Count returns the number of records matching filter.
func (m *Model) Count(ctx context.Context, filter any, limit *int) (int, error) {
	var kw map[string]any
	if limit != nil {
		kw = map[string]any{"limit": *limit}
	}
	res, err := m.Execute(ctx, Count, criteria(filter), kw)
	if err != nil {
		return 0, err
	}
	n, ok := res.(int)
	if !ok {
		return 0, m.unexpected(Count, res)
	}
	return n, nil
}

// Find combines Search and Read in one call.
func (m *Model) Find(ctx context.Context, filter any, q Query) ([]Record, error) {
	res, err := m.Execute(ctx, Find, criteria(filter), q.kwargs(true))
	if err != nil {
		return nil, err
	}
	return m.records(res)
}

// Read returns the records with the given ids.
func (m *Model) Read(ctx context.Context, ids []int, fields []string) ([]Record, error) {
	var kw map[string]any
	if len(fields) > 0 {
		kw = map[string]any{"fields": fields}
	}
	res, err := m.Execute(ctx, Read, []any{ids}, kw)
	if err != nil {
		return nil, err
	}
	return m.records(res)
}

// Write updates the records with the given ids.
func (m *Model) Write(ctx context.Context, ids []int, values map[string]any) (bool, error) {
	res, err := m.Execute(ctx, Write, []any{ids, values}, nil)
	if err != nil {
		return false, err
	}
	ok, _ := res.(bool)
	return ok, nil
}

// Create inserts one record and returns its id.
func (m *Model) Create(ctx context.Context, values map[string]any) (int, error) {
	res, err := m.Execute(ctx, Create, []any{values}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := res.(int)
	if !ok {
		return 0, m.unexpected(Create, res)
	}
	return id, nil
}

// Delete removes the records with the given ids.
func (m *Model) Delete(ctx context.Context, ids []int) (bool, error) {
	res, err := m.Execute(ctx, Delete, []any{ids}, nil)
	if err != nil {
		return false, err
	}
	ok, _ := res.(bool)
	return ok, nil
}

// Fields returns the field definitions of the model, restricted to attributes when
// any are given.
func (m *Model) Fields(ctx context.Context, attributes []string) (map[string]Record, error) {
	var kw map[string]any
	if len(attributes) > 0 {
		kw = map[string]any{"attributes": attributes}
	}
	res, err := m.Execute(ctx, Fields, nil, kw)
	if err != nil {
		return nil, err
	}
	raw, ok := res.(map[string]any)
	if !ok {
		return nil, m.unexpected(Fields, res)
	}
	out := make(map[string]Record, len(raw))
	for name, v := range raw {
		meta, _ := v.(map[string]any)
		out[name] = meta
	}
	return out, nil
}

func (m *Model) ints(res any) ([]int, error) {
	list, ok := res.([]any)
	if !ok {
		return nil, m.unexpected(Search, res)
	}
	out := make([]int, 0, len(list))
	for _, v := range list {
		n, ok := v.(int)
		if !ok {
			return nil, m.unexpected(Search, res)
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *Model) records(res any) ([]Record, error) {
	list, ok := res.([]any)
	if !ok {
		return nil, m.unexpected(Find, res)
	}
	out := make([]Record, 0, len(list))
	for _, v := range list {
		rec, ok := v.(map[string]any)
		if !ok {
			return nil, m.unexpected(Find, res)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Model) unexpected(op Operation, res any) error {
	return m.log.Fail(apperr.CodeDispatch, fmt.Sprintf("%s.%s: unexpected result %T", m, op, res))
}
