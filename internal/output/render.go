// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package output renders call results and reads records supplied as input.
//
// Results are written as indented JSON by default. Lists can be written raw,
// one space-separated line, and record lists as CSV. Records for create can be
// read from a JSON array or a CSV file with a header row.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/settings"
)

// Format selects how a result is written.
type Format int

const (
	JSON Format = iota
	Raw
	CSV
)

func (f Format) String() string {
	switch f {
	case Raw:
		return "raw"
	case CSV:
		return "csv"
	default:
		return "json"
	}
}

// FormatOf returns the format requested by s.
func FormatOf(s *settings.Settings) Format {
	switch {
	case s.CSV:
		return CSV
	case s.Raw:
		return Raw
	default:
		return JSON
	}
}

// Render writes v to w in format f.
func Render(w io.Writer, v any, f Format) error {
	switch f {
	case CSV:
		return renderCSV(w, v)
	case Raw:
		if line, ok := rawLine(v); ok {
			_, err := fmt.Fprintln(w, line)
			return err
		}
	}
	return renderJSON(w, v)
}

func renderJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return apperr.Wrap(apperr.Output, "encoding JSON", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// rawLine joins the items of a list result with spaces.
func rawLine(v any) (string, bool) {
	var items []string
	switch x := v.(type) {
	case []int:
		for _, n := range x {
			items = append(items, strconv.Itoa(n))
		}
	case []string:
		items = x
	case []any:
		for _, item := range x {
			items = append(items, cell(item))
		}
	default:
		return "", false
	}
	return strings.Join(items, " "), true
}

// Records converts a result to a list of records, reporting whether every
// element is one.
func Records(v any) ([]map[string]any, bool) {
	switch x := v.(type) {
	case []map[string]any:
		return x, true
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, item := range x {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, rec)
		}
		return out, true
	}
	return nil, false
}

// Header returns the CSV columns of recs: id first, then every other key in
// sorted order.
func Header(recs []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	hasID := false
	for _, rec := range recs {
		for k := range rec {
			if k == "id" {
				hasID = true
				continue
			}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	if hasID {
		keys = append([]string{"id"}, keys...)
	}
	return keys
}

func renderCSV(w io.Writer, v any) error {
	recs, ok := Records(v)
	if !ok {
		return apperr.Newf(apperr.Output, "cannot write %T as CSV: a list of records is required", v)
	}
	if len(recs) == 0 {
		return nil
	}
	header := Header(recs)
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(header); err != nil {
		return apperr.Wrap(apperr.Output, "writing CSV", err)
	}
	row := make([]string, len(header))
	for _, rec := range recs {
		for i, k := range header {
			row[i] = cell(rec[k])
		}
		if err := cw.Write(row); err != nil {
			return apperr.Wrap(apperr.Output, "writing CSV", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.Wrap(apperr.Output, "writing CSV", err)
	}
	return nil
}

// cell renders one value the way the server's own tooling prints it.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			s += ".0"
		}
		return s
	}
	return settings.Repr(v)
}
