package odootest

import (
	"fmt"
	"strings"

	"clo/cli/internal/xmlrpc"
)

// filter keeps the records matching the filter in args[0].
func filter(recs []Record, args []any) ([]Record, *xmlrpc.Fault) {
	var terms []any
	if len(args) > 0 {
		terms, _ = args[0].([]any)
	}
	var out []Record
	for _, r := range recs {
		ok, err := matches(r, terms)
		if err != nil {
			return nil, &xmlrpc.Fault{Code: 1, String: err.Error()}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// matches evaluates a prefix-notation filter; top-level terms are and-ed.
func matches(r Record, terms []any) (bool, error) {
	pos := 0
	for pos < len(terms) {
		ok, err := eval(r, terms, &pos)
		if err != nil {
			return false, err
		}
		if !ok {
			// consume the rest to surface malformed input
			for pos < len(terms) {
				if _, err := eval(r, terms, &pos); err != nil {
					return false, err
				}
			}
			return false, nil
		}
	}
	return true, nil
}

func eval(r Record, terms []any, pos *int) (bool, error) {
	if *pos >= len(terms) {
		return false, fmt.Errorf("Invalid domain: missing operand")
	}
	term := terms[*pos]
	*pos++
	switch t := term.(type) {
	case string:
		switch t {
		case "!":
			v, err := eval(r, terms, pos)
			return !v, err
		case "&", "|":
			a, err := eval(r, terms, pos)
			if err != nil {
				return false, err
			}
			b, err := eval(r, terms, pos)
			if err != nil {
				return false, err
			}
			if t == "&" {
				return a && b, nil
			}
			return a || b, nil
		}
		return false, fmt.Errorf("Invalid domain term %q", t)
	case []any:
		if len(t) != 3 {
			return false, fmt.Errorf("Invalid domain term %v", t)
		}
		field, _ := t[0].(string)
		op, _ := t[1].(string)
		return compare(r[field], op, t[2])
	}
	return false, fmt.Errorf("Invalid domain term %v", term)
}

func compare(have any, op string, want any) (bool, error) {
	h, w := fmt.Sprint(have), fmt.Sprint(want)
	switch op {
	case "=", "=?":
		return h == w, nil
	case "!=":
		return h != w, nil
	case ">":
		return h > w, nil
	case ">=":
		return h >= w, nil
	case "<":
		return h < w, nil
	case "<=":
		return h <= w, nil
	case "like", "=like":
		return strings.Contains(h, strings.Trim(w, "%")), nil
	case "ilike", "=ilike":
		return strings.Contains(strings.ToLower(h), strings.ToLower(strings.Trim(w, "%"))), nil
	case "not like":
		return !strings.Contains(h, w), nil
	case "not ilike":
		return !strings.Contains(strings.ToLower(h), strings.ToLower(w)), nil
	case "in", "not in":
		items, ok := want.([]any)
		if !ok {
			items = []any{want}
		}
		found := false
		for _, item := range items {
			if fmt.Sprint(item) == h {
				found = true
			}
		}
		return found == (op == "in"), nil
	case "child_of", "parent_of":
		return h == w, nil
	}
	return false, fmt.Errorf("Invalid operator %q", op)
}
