// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package settings holds the fully parsed configuration of one invocation and
// derives from it the arguments of the remote call.
package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"clo/cli/internal/domain"
	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
	"clo/cli/internal/model"
	"clo/cli/internal/types"
)

// Action is the subcommand of an invocation.
type Action string

const (
	Search  Action = "search"
	Count   Action = "count"
	Read    Action = "read"
	Find    Action = "find"
	Create  Action = "create"
	Write   Action = "write"
	Delete  Action = "delete"
	Fields  Action = "fields"
	Explain Action = "explain"
)

// Title returns the operation name, e.g. "Search".
func (a Action) Title() string {
	if a == "" {
		return ""
	}
	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

// Operation maps the action onto a model operation. Explain has none.
func (a Action) Operation() (model.Operation, bool) {
	return model.ParseOperation(a.Title())
}

// Topics accepted by explain.
var Topics = []string{"models", "domains", "logic", "fields", "server"}

// Defaults for connection parameters.
const (
	DefaultModel    = "res.users"
	DefaultInstance = "http://localhost:8069"
	// Stdout names the standard output as a target.
	Stdout = "-"
)

// Pair is one field assignment given with --value.
type Pair struct {
	Field string
	Value string
}

// Values is an ordered set of field assignments.
type Values []Pair

// Map returns the assignments as a map; later pairs win.
func (v Values) Map() map[string]any {
	out := make(map[string]any, len(v))
	for _, p := range v {
		out[p.Field] = p.Value
	}
	return out
}

// RPCValue sends the assignments as a struct.
func (v Values) RPCValue() any { return v.Map() }

// Settings is the parsed configuration of one invocation.
type Settings struct {
	Action Action `validate:"required,oneof=search count read find create write delete fields explain"`
	Model  string `validate:"required"`

	Instance types.URL `validate:"required,url"`
	Database string
	Username string
	Password types.Secret
	Keyring  bool

	Criteria   domain.List `validate:"prefix"`
	IDs        []int       `validate:"required_if=Action read,required_if=Action write,required_if=Action delete"`
	Values     Values      `validate:"required_if=Action write"`
	Records    []map[string]any
	Using      string
	Fields     []string
	Attributes []string
	Offset     int  `validate:"min=0"`
	Limit      *int `validate:"omitempty,min=0"`
	Order      string

	Raw    bool
	CSV    bool
	DryRun bool
	Out    string
	Env    string
	Level  logging.Level

	Topic   string `validate:"required_if=Action explain,omitempty,oneof=models domains logic fields server"`
	Verbose bool
}

// New returns Settings holding the defaults.
func New() *Settings {
	return &Settings{
		Model:    DefaultModel,
		Instance: DefaultInstance,
		Out:      Stdout,
		Level:    logging.DefaultLevel,
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("prefix", validatePrefix)
}

func validatePrefix(fl validator.FieldLevel) bool {
	list, ok := fl.Field().Interface().(domain.List)
	return ok && list.Validate() == nil
}

// Validate checks the settings. Failures are argument errors.
func (s *Settings) Validate() error {
	if err := s.Criteria.Validate(); err != nil {
		return err
	}
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.Argument, "invalid settings", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.New(apperr.Argument, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a URL", name)
	}
	return fmt.Sprintf("%s failed %q", name, fe.Tag())
}

// Keyword is one keyword argument of the remote call.
type Keyword struct {
	Name  string
	Value any
}

// Positional returns the positional arguments of the remote call.
func (s *Settings) Positional() []any {
	criteria := s.Criteria
	if criteria == nil {
		criteria = domain.List{}
	}
	ids := s.IDs
	if ids == nil {
		ids = []int{}
	}
	switch s.Action {
	case Search, Count, Find:
		return []any{criteria}
	case Read, Delete:
		return []any{ids}
	case Write:
		return []any{ids, s.Values}
	case Create:
		if s.Records != nil {
			return []any{s.Records}
		}
		return []any{s.Values}
	}
	return nil
}

// Keywords returns the keyword arguments of the remote call in display order.
// Fields are sent only when some were named; the server then returns them all.
func (s *Settings) Keywords() []Keyword {
	var kw []Keyword
	switch s.Action {
	case Search:
		kw = append(kw, Keyword{"offset", s.Offset})
		kw = s.appendPaging(kw)
	case Count:
		if s.Limit != nil {
			kw = append(kw, Keyword{"limit", *s.Limit})
		}
	case Find:
		kw = s.appendFields(kw)
		kw = append(kw, Keyword{"offset", s.Offset})
		kw = s.appendPaging(kw)
	case Read:
		kw = s.appendFields(kw)
	case Fields:
		if len(s.Attributes) > 0 {
			kw = append(kw, Keyword{"attributes", s.Attributes})
		}
	case Explain:
		kw = append(kw, Keyword{"topic", s.Topic}, Keyword{"verbose", s.Verbose})
	}
	return kw
}

func (s *Settings) appendFields(kw []Keyword) []Keyword {
	if len(s.Fields) > 0 {
		kw = append(kw, Keyword{"fields", s.Fields})
	}
	return kw
}

func (s *Settings) appendPaging(kw []Keyword) []Keyword {
	if s.Limit != nil {
		kw = append(kw, Keyword{"limit", *s.Limit})
	}
	if s.Order != "" {
		kw = append(kw, Keyword{"order", s.Order})
	}
	return kw
}

// Kwargs returns the keyword arguments as a map, the form the call is sent in.
func (s *Settings) Kwargs() map[string]any {
	kw := s.Keywords()
	out := make(map[string]any, len(kw))
	for _, k := range kw {
		out[k.Name] = k.Value
	}
	return out
}

// Describe renders the resolved call the way a dry run reports it, e.g.
// "Model['res.users'].Search([], offset=0)".
func (s *Settings) Describe() string {
	var args []string
	for _, p := range s.Positional() {
		args = append(args, Repr(p))
	}
	for _, k := range s.Keywords() {
		args = append(args, k.Name+"="+Repr(k.Value))
	}
	line := fmt.Sprintf("Model[%s].%s(%s)", Repr(s.Model), s.Action.Title(), strings.Join(args, ", "))
	if s.Out != "" && s.Out != Stdout {
		line += " -> " + s.Out
		if s.CSV {
			line += " (CSV)"
		}
	}
	return line
}

func (s *Settings) String() string {
	limit := "None"
	if s.Limit != nil {
		limit = fmt.Sprint(*s.Limit)
	}
	return fmt.Sprintf(
		"Settings(action=%s, model=%s, instance=%s, database=%s, username=%s, password=%#v, criteria=%s, ids=%v, values=%s, fields=%v, offset=%d, limit=%s, order=%s, raw=%t, csv=%t, dry_run=%t, out=%s, log=%s)",
		Repr(string(s.Action)), Repr(s.Model), Repr(logging.Mask(string(s.Instance))), Repr(s.Database), Repr(s.Username), s.Password,
		Repr(s.Criteria), s.IDs, Repr(s.Values), s.Fields, s.Offset, limit, Repr(s.Order), s.Raw, s.CSV, s.DryRun, Repr(s.Out), s.Level,
	)
}

// Repr renders v as a Python literal.
func Repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return quote(x)
	case types.Secret:
		return x.GoString()
	case types.URL:
		return quote(string(x))
	case domain.Domain:
		return fmt.Sprintf("[%s, %s, %s]", quote(x.Field), quote(string(x.Operator)), quote(x.Value))
	case domain.Logic:
		return quote(string(x))
	case domain.List:
		items := make([]string, len(x))
		for i, c := range x {
			items[i] = Repr(c)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case Values:
		items := make([]string, len(x))
		for i, p := range x {
			items[i] = quote(p.Field) + ": " + quote(p.Value)
		}
		return "{" + strings.Join(items, ", ") + "}"
	case []int:
		items := make([]string, len(x))
		for i, n := range x {
			items[i] = fmt.Sprint(n)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []string:
		items := make([]string, len(x))
		for i, s := range x {
			items[i] = quote(s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = Repr(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []map[string]any:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = Repr(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = quote(k) + ": " + Repr(x[k])
		}
		return "{" + strings.Join(items, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// quote mimics Python's str repr: single quotes unless the text contains one and
// no double quote.
func quote(s string) string {
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	}
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, q, `\`+q)
	return q + r.Replace(s) + q
}
