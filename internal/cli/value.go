// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// presentSentinel is what pflag passes to Set for a flag given without a value.
const presentSentinel = "true"

// flagValue feeds the tokens of one argument into a Namespace.
type flagValue struct {
	arg     *Argument
	ns      *Namespace
	coerce  Coercer
	pending []any
}

var _ pflag.Value = (*flagValue)(nil)

func newFlagValue(arg *Argument, ns *Namespace) *flagValue {
	v := &flagValue{arg: arg, ns: ns, coerce: arg.Detail.Type}
	if arg.Detail.NewType != nil {
		v.coerce = arg.Detail.NewType()
	}
	return v
}

func (v *flagValue) String() string {
	d := v.arg.Detail.Default
	if d == nil || v.arg.Detail.Ask != nil {
		return ""
	}
	switch x := d.(type) {
	case []any:
		if len(x) == 0 {
			return ""
		}
	case bool:
		if !x {
			return ""
		}
	}
	return fmt.Sprint(d)
}

func (v *flagValue) Type() string {
	switch v.arg.Detail.Action {
	case StoreTrue, AppendConst:
		return "bool"
	}
	if len(v.arg.Detail.Metavar) > 0 {
		return strings.Join(v.arg.Detail.Metavar, " ")
	}
	return strings.ToUpper(v.arg.DestName())
}

func (v *flagValue) Set(tok string) error {
	d := v.arg.Detail
	dest := v.arg.DestName()
	switch d.Action {
	case StoreTrue:
		b, err := strconv.ParseBool(tok)
		if err != nil {
			return err
		}
		v.ns.Set(dest, b)
		return nil
	case AppendConst:
		v.ns.Append(dest, d.Const)
		return nil
	}

	if len(d.Choices) > 0 && !slices.Contains(d.Choices, tok) {
		return fmt.Errorf("invalid choice %q (choose from %s)", tok, quoteList(d.Choices))
	}
	val, err := v.convert(tok)
	if err != nil {
		return err
	}

	if n := int(d.Nargs); n > 1 {
		v.pending = append(v.pending, val)
		if len(v.pending) < n {
			return nil
		}
		group := v.pending
		v.pending = nil
		if d.Combine != nil {
			if val, err = d.Combine(group); err != nil {
				return err
			}
		} else {
			val = group
		}
	}
	v.apply(dest, val)
	return nil
}

func (v *flagValue) convert(tok string) (any, error) {
	if v.coerce == nil {
		return tok, nil
	}
	return v.coerce(tok)
}

func (v *flagValue) apply(dest string, val any) {
	d := v.arg.Detail
	if spread, ok := val.(Spread); ok {
		v.ns.Append(dest, spread...)
		return
	}
	switch {
	case d.Action == Append || d.Action == Extend:
		v.ns.Append(dest, val)
	case d.Nargs == OneOrMore:
		v.ns.Append(dest, val)
	default:
		v.ns.Set(dest, val)
	}
}

// complete reports an error when a group of Nargs tokens was left unfinished.
func (v *flagValue) complete() error {
	if len(v.pending) > 0 {
		return fmt.Errorf("flag --%s expects %d values, got %d", v.arg.Long(), int(v.arg.Detail.Nargs), len(v.pending))
	}
	return nil
}

func quoteList(items []string) string {
	q := make([]string, len(items))
	for i, s := range items {
		q[i] = "'" + s + "'"
	}
	return strings.Join(q, ", ")
}
