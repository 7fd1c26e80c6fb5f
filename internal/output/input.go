// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/settings"
)

// ReadRecords loads records from path, or from stdin when path is "-". Files
// ending in .json, or whose content starts with '[' or '{', are read as JSON;
// anything else as CSV with a header row.
func ReadRecords(path string, stdin io.Reader) ([]map[string]any, error) {
	var r io.Reader = stdin
	if path != settings.Stdout {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.Input, "opening records file", err)
		}
		defer f.Close()
		r = f
	}
	br := bufio.NewReader(r)
	if strings.EqualFold(filepath.Ext(path), ".json") || startsJSON(br) {
		return FromJSON(br)
	}
	return FromCSV(br)
}

func startsJSON(br *bufio.Reader) bool {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if err != nil {
			return false
		}
		c := b[i-1]
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[', '{':
			return true
		default:
			return false
		}
	}
}

// FromJSON decodes a JSON array of objects, or a single object.
func FromJSON(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.Input, "reading JSON records", err)
	}
	data = bytes.TrimSpace(data)
	dec := func(v any) error {
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()
		return d.Decode(v)
	}
	var recs []map[string]any
	if len(data) > 0 && data[0] == '{' {
		var one map[string]any
		if err := dec(&one); err != nil {
			return nil, apperr.Wrap(apperr.Input, "decoding JSON records", err)
		}
		recs = []map[string]any{one}
	} else if err := dec(&recs); err != nil {
		return nil, apperr.Wrap(apperr.Input, "decoding JSON records", err)
	}
	for _, rec := range recs {
		for k, v := range rec {
			rec[k] = number(v)
		}
	}
	if len(recs) == 0 {
		return nil, apperr.New(apperr.Input, "no records found")
	}
	return recs, nil
}

// number turns decoded json.Numbers into int or float64.
func number(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = number(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = number(x[k])
		}
	}
	return v
}

// FromCSV reads records from CSV with a header row. Every value is a string.
func FromCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.New(apperr.Input, "no records found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Input, "reading CSV header", err)
	}
	var recs []map[string]any
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Input, "reading CSV records", err)
		}
		rec := make(map[string]any, len(header))
		for i, k := range header {
			rec[strings.TrimSpace(k)] = row[i]
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, apperr.New(apperr.Input, "no records found")
	}
	return recs, nil
}
