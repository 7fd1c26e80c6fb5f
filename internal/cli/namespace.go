// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cli

import "sort"

// Namespace holds the parsed values keyed by destination.
type Namespace struct {
	values map[string]any
	set    map[string]bool
}

// NewNamespace returns an empty Namespace.
func NewNamespace() *Namespace {
	return &Namespace{values: map[string]any{}, set: map[string]bool{}}
}

// Get returns the value stored at dest.
func (n *Namespace) Get(dest string) any { return n.values[dest] }

// Has reports whether dest was given on the command line or resolved after it.
func (n *Namespace) Has(dest string) bool { return n.set[dest] }

// Set stores v at dest and marks it as given.
func (n *Namespace) Set(dest string, v any) {
	n.values[dest] = v
	n.set[dest] = true
}

// Default stores v at dest without marking it as given.
func (n *Namespace) Default(dest string, v any) {
	if _, ok := n.values[dest]; !ok {
		n.values[dest] = v
	}
}

// Append adds v to the list at dest. A default list is replaced, not extended.
func (n *Namespace) Append(dest string, v ...any) {
	var list []any
	if n.set[dest] {
		list, _ = n.values[dest].([]any)
	}
	n.values[dest] = append(list, v...)
	n.set[dest] = true
}

// String returns the string at dest, or "".
func (n *Namespace) String(dest string) string {
	s, _ := n.values[dest].(string)
	return s
}

// Bool returns the bool at dest, or false.
func (n *Namespace) Bool(dest string) bool {
	b, _ := n.values[dest].(bool)
	return b
}

// Int returns the int at dest and whether one is stored.
func (n *Namespace) Int(dest string) (int, bool) {
	i, ok := n.values[dest].(int)
	return i, ok
}

// List returns the list at dest.
func (n *Namespace) List(dest string) []any {
	l, _ := n.values[dest].([]any)
	return l
}

// Strings returns the string elements of the list at dest.
func (n *Namespace) Strings(dest string) []string {
	var out []string
	for _, v := range n.List(dest) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Ints returns the int elements of the list at dest.
func (n *Namespace) Ints(dest string) []int {
	var out []int
	for _, v := range n.List(dest) {
		if i, ok := v.(int); ok {
			out = append(out, i)
		}
	}
	return out
}

// Keys returns every destination holding a value, sorted.
func (n *Namespace) Keys() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
