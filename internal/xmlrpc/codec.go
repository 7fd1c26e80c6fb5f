// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the XML-RPC dateTime.iso8601 layout.
const TimeLayout = "20060102T15:04:05"

// Valuer is implemented by types that choose their own wire representation.
type Valuer interface {
	RPCValue() any
}

// EncodeCall writes a methodCall document.
func EncodeCall(w io.Writer, method string, params []any) error {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&b, []byte(method)); err != nil {
		return err
	}
	b.WriteString("</methodName><params>")
	for i, p := range params {
		b.WriteString("<param>")
		if err := encodeValue(&b, p); err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
		b.WriteString("</param>")
	}
	b.WriteString("</params></methodCall>\n")
	_, err := w.Write(b.Bytes())
	return err
}

// EncodeResponse writes a successful methodResponse document.
func EncodeResponse(w io.Writer, v any) error {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<methodResponse><params><param>")
	if err := encodeValue(&b, v); err != nil {
		return err
	}
	b.WriteString("</param></params></methodResponse>\n")
	_, err := w.Write(b.Bytes())
	return err
}

// EncodeFault writes a fault methodResponse document.
func EncodeFault(w io.Writer, f *Fault) error {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<methodResponse><fault>")
	if err := encodeValue(&b, map[string]any{"faultCode": f.Code, "faultString": f.String}); err != nil {
		return err
	}
	b.WriteString("</fault></methodResponse>\n")
	_, err := w.Write(b.Bytes())
	return err
}

func encodeValue(b *bytes.Buffer, v any) error {
	b.WriteString("<value>")
	if err := encodeInner(b, v); err != nil {
		return err
	}
	b.WriteString("</value>")
	return nil
}

func encodeInner(b *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("<nil/>")
		return nil
	case Valuer:
		return encodeInner(b, x.RPCValue())
	case bool:
		if x {
			b.WriteString("<boolean>1</boolean>")
		} else {
			b.WriteString("<boolean>0</boolean>")
		}
		return nil
	case string:
		b.WriteString("<string>")
		if err := xml.EscapeText(b, []byte(x)); err != nil {
			return err
		}
		b.WriteString("</string>")
		return nil
	case []byte:
		b.WriteString("<base64>")
		b.WriteString(base64.StdEncoding.EncodeToString(x))
		b.WriteString("</base64>")
		return nil
	case time.Time:
		b.WriteString("<dateTime.iso8601>")
		b.WriteString(x.Format(TimeLayout))
		b.WriteString("</dateTime.iso8601>")
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return encodeInner(b, nil)
		}
		return encodeInner(b, rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n > math.MaxInt32 || n < math.MinInt32 {
			fmt.Fprintf(b, "<i8>%d</i8>", n)
		} else {
			fmt.Fprintf(b, "<int>%d</int>", n)
		}
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := rv.Uint()
		if n > math.MaxInt64 {
			return fmt.Errorf("unsigned value %d overflows int64", n)
		}
		return encodeInner(b, int64(n))
	case reflect.Float32, reflect.Float64:
		b.WriteString("<double>")
		b.WriteString(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
		b.WriteString("</double>")
		return nil
	case reflect.String:
		return encodeInner(b, rv.String())
	case reflect.Slice, reflect.Array:
		b.WriteString("<array><data>")
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(b, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		b.WriteString("</data></array>")
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		b.WriteString("<struct>")
		for _, k := range keys {
			b.WriteString("<member><name>")
			if err := xml.EscapeText(b, []byte(k)); err != nil {
				return err
			}
			b.WriteString("</name>")
			if err := encodeValue(b, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()); err != nil {
				return err
			}
			b.WriteString("</member>")
		}
		b.WriteString("</struct>")
		return nil
	}
	return fmt.Errorf("unsupported value type %T", v)
}

// DecodeResponse reads a methodResponse document. A fault response is returned as
// a *Fault error.
func DecodeResponse(r io.Reader) (any, error) {
	d := newDecoder(r)
	if err := d.expectStart("methodResponse"); err != nil {
		return nil, err
	}
	se, err := d.nextStart()
	if err != nil {
		return nil, err
	}
	switch se.Name.Local {
	case "params":
		if err := d.expectStart("param"); err != nil {
			return nil, err
		}
		if err := d.expectStart("value"); err != nil {
			return nil, err
		}
		return d.readValue()
	case "fault":
		if err := d.expectStart("value"); err != nil {
			return nil, err
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		return nil, faultFrom(v)
	}
	return nil, fmt.Errorf("unexpected element <%s> in methodResponse", se.Name.Local)
}

// DecodeCall reads a methodCall document.
func DecodeCall(r io.Reader) (string, []any, error) {
	d := newDecoder(r)
	if err := d.expectStart("methodCall"); err != nil {
		return "", nil, err
	}
	if err := d.expectStart("methodName"); err != nil {
		return "", nil, err
	}
	method, err := d.readText()
	if err != nil {
		return "", nil, err
	}
	var params []any
	for {
		se, err := d.nextStart()
		if errors.Is(err, errEnd) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return method, params, nil
		}
		if err != nil {
			return "", nil, err
		}
		if se.Name.Local != "value" {
			continue
		}
		v, err := d.readValue()
		if err != nil {
			return "", nil, err
		}
		params = append(params, v)
	}
}

func faultFrom(v any) *Fault {
	f := &Fault{}
	m, ok := v.(map[string]any)
	if !ok {
		f.String = fmt.Sprint(v)
		return f
	}
	switch c := m["faultCode"].(type) {
	case int:
		f.Code = c
	case string:
		if n, err := strconv.Atoi(c); err == nil {
			f.Code = n
		} else {
			f.Code = 1
			f.String = c + ": "
		}
	}
	if s, ok := m["faultString"].(string); ok {
		f.String += s
	}
	return f
}

var errEnd = errors.New("end of element")

type decoder struct {
	*xml.Decoder
}

func newDecoder(r io.Reader) *decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	return &decoder{Decoder: d}
}

// nextStart returns the next start element. It returns errEnd when an end element
// comes first.
func (d *decoder) nextStart() (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, errEnd
		}
	}
}

func (d *decoder) expectStart(name string) error {
	se, err := d.nextStart()
	if err != nil {
		return fmt.Errorf("expected <%s>: %w", name, err)
	}
	if se.Name.Local != name {
		return fmt.Errorf("expected <%s>, found <%s>", name, se.Name.Local)
	}
	return nil
}

// readText collects character data up to the end of the current element.
func (d *decoder) readText() (string, error) {
	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("unexpected <%s> in text", t.Name.Local)
		}
	}
}

// readValue decodes the content of a <value> whose start tag was consumed, and
// consumes its end tag.
func (d *decoder) readValue() (any, error) {
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			// untyped values are strings
			return text.String(), nil
		case xml.StartElement:
			v, err := d.readTyped(t.Name.Local)
			if err != nil {
				return nil, err
			}
			if err := d.skipToEnd(); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
}

func (d *decoder) skipToEnd() error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			return fmt.Errorf("unexpected <%s> after value", t.Name.Local)
		}
	}
}

func (d *decoder) readTyped(kind string) (any, error) {
	switch kind {
	case "nil":
		return nil, d.skipToEnd()
	case "array":
		return d.readArray()
	case "struct":
		return d.readStruct()
	}

	s, err := d.readText()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "int", "i4", "i8":
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad %s %q: %w", kind, s, err)
		}
		return int(n), nil
	case "boolean":
		switch strings.TrimSpace(s) {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return nil, fmt.Errorf("bad boolean %q", s)
	case "double":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("bad double %q: %w", s, err)
		}
		return f, nil
	case "string":
		return s, nil
	case "base64":
		return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	case "dateTime.iso8601":
		if t, err := time.Parse(TimeLayout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported value type <%s>", kind)
}

func (d *decoder) readArray() (any, error) {
	if err := d.expectStart("data"); err != nil {
		return nil, err
	}
	out := []any{}
	for {
		se, err := d.nextStart()
		if errors.Is(err, errEnd) {
			// </data>, then </array>
			return out, d.skipToEnd()
		}
		if err != nil {
			return nil, err
		}
		if se.Name.Local != "value" {
			return nil, fmt.Errorf("unexpected <%s> in array", se.Name.Local)
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (d *decoder) readStruct() (any, error) {
	out := map[string]any{}
	for {
		se, err := d.nextStart()
		if errors.Is(err, errEnd) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if se.Name.Local != "member" {
			return nil, fmt.Errorf("unexpected <%s> in struct", se.Name.Local)
		}
		if err := d.expectStart("name"); err != nil {
			return nil, err
		}
		name, err := d.readText()
		if err != nil {
			return nil, err
		}
		if err := d.expectStart("value"); err != nil {
			return nil, err
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		out[name] = v
		if err := d.skipToEnd(); err != nil { // </member>
			return nil, err
		}
	}
}
