package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clo/cli/internal/domain"
	"clo/cli/internal/types"
)

func testProgram(stdin string) *Program {
	domains := []Argument{
		{Names: []string{"--domain", "-d"}, Detail: Detail{
			Action: Append, Nargs: 3, Dest: "criteria",
			NewType: func() Coercer { return domain.NewCompiler().Coerce },
			Combine: domain.Combine,
			Metavar: []string{"FIELD", "OPERATOR", "VALUE"},
		}},
		{Names: []string{"--or", "-o"}, Detail: Detail{Action: AppendConst, Const: domain.Or, Dest: "criteria"}},
		{Names: []string{"--and", "-a"}, Detail: Detail{Action: AppendConst, Const: domain.And, Dest: "criteria"}},
		{Names: []string{"--not", "-n"}, Detail: Detail{Action: AppendConst, Const: domain.Not, Dest: "criteria"}},
	}
	return &Program{
		Name:    "clo",
		Version: "0.5.0",
		Globals: []Argument{
			{Names: []string{"--model", "-m"}, Detail: Detail{Default: "res.users"}},
			{Names: []string{"--inst", "--instance"}, Detail: Detail{
				Type: types.ParseURLValue, Dest: "instance",
				Ask: &Ask{Prompt: "Instance", Env: "OD_INSTANCE"},
			}},
			{Names: []string{"--pass"}, Detail: Detail{
				Type: types.ParseSecret, Dest: "password", Hidden: true,
				Ask: &Ask{Prompt: "Password", Env: "OD_PASSWORD", Secret: true},
			}},
			{Names: []string{"--dry-run"}, Detail: Detail{Action: StoreTrue}},
		},
		Commands: []Command{
			{Name: "search", Arguments: append(domains,
				Argument{Names: []string{"--offset"}, Detail: Detail{Type: Int, Default: 0}},
				Argument{Names: []string{"--limit"}, Detail: Detail{Type: Int}},
			)},
			{Name: "read", Arguments: []Argument{
				{Names: []string{"--ids", "-i"}, Detail: Detail{Nargs: OneOrMore, Type: StdinIDs("--ids", strings.NewReader(stdin)), Required: true}},
				{Names: []string{"--fields", "-f"}, Detail: Detail{Nargs: OneOrMore}, Group: &Group{Title: "Output"}},
			}},
			{Name: "fields", Arguments: []Argument{
				{Names: []string{"--attributes", "--attr", "-a"}, Detail: Detail{Nargs: OneOrMore}},
			}},
			{Name: "create", Arguments: []Argument{
				{Names: []string{"--value", "-v"}, Detail: Detail{Action: Append, Nargs: 2, Dest: "values"}, Exclusive: &Exclusive{Key: "records", Required: true}},
				{Names: []string{"--using"}, Exclusive: &Exclusive{Key: "records", Required: true}},
			}},
			{Name: "explain", Arguments: []Argument{
				{Names: []string{"topic"}, Detail: Detail{Choices: []string{"models", "domains"}}},
				{Names: []string{"--verbose", "-v"}, Detail: Detail{Action: StoreTrue, Default: false}},
			}},
		},
		IntrospectFlags: []string{"dry_run"},
	}
}

type harness struct {
	parser *Parser
	out    *bytes.Buffer
	env    map[string]string
	asked  []string
}

func newHarness(stdin string) *harness {
	h := &harness{out: &bytes.Buffer{}, env: map[string]string{}}
	h.parser = NewParser(testProgram(stdin),
		WithOutput(h.out, h.out),
		WithLookupEnv(func(k string) (string, bool) { v, ok := h.env[k]; return v, ok }),
		WithAsker(func(_ context.Context, q Question, _ *Namespace) (string, error) {
			h.asked = append(h.asked, q.Dest)
			if q.Secret {
				return "s3cret", nil
			}
			return "http://prompted:8069", nil
		}),
	)
	return h
}

func (h *harness) parse(t *testing.T, argv ...string) *Result {
	t.Helper()
	res, err := h.parser.Parse(context.Background(), argv)
	require.NoError(t, err)
	return res
}

func (h *harness) fail(t *testing.T, argv ...string) *ParseError {
	t.Helper()
	_, err := h.parser.Parse(context.Background(), argv)
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected parse error, got %v", err)
	return perr
}

func TestDomainsAndLogicKeepOrder(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "search", "-o", "-d", "login", "=", "demo", "--domain", "name", "not ilike", "x", "-n", "-d", "id", ">", "-1")
	assert.Equal(t, "search", res.Command)
	assert.Equal(t, []any{
		domain.Or,
		domain.Domain{Field: "login", Operator: "=", Value: "demo"},
		domain.Domain{Field: "name", Operator: "not ilike", Value: "x"},
		domain.Not,
		domain.Domain{Field: "id", Operator: ">", Value: "-1"},
	}, res.Namespace.List("criteria"))
	offset, ok := res.Namespace.Int("offset")
	assert.True(t, ok)
	assert.Equal(t, 0, offset)
}

func TestInvalidOperatorStopsParsing(t *testing.T) {
	h := newHarness("")
	perr := h.fail(t, "search", "-d", "login", "is", "good")
	assert.Contains(t, perr.Error(), `"is" is not a valid operator`)
	assert.Contains(t, perr.Usage, "clo search")
	assert.Empty(t, h.asked)
}

func TestIncompleteDomain(t *testing.T) {
	h := newHarness("")
	perr := h.fail(t, "search", "-d", "login", "=")
	assert.Contains(t, perr.Error(), "expected 3 arguments")
}

func TestDomainRejectsFlagOperand(t *testing.T) {
	h := newHarness("")
	perr := h.fail(t, "--dry-run", "search", "-d", "login", "=", "--limit")
	assert.Contains(t, perr.Error(), "argument -d: expected 3 arguments")

	res := h.parse(t, "search", "-d", "id", ">", "-1")
	assert.Len(t, res.Namespace.List("criteria"), 1)
}

func TestRepeatedStoreFlagKeepsLast(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "read", "-i", "1", "2", "-f", "login", "--ids", "3")
	assert.Equal(t, []int{3}, res.Namespace.Ints("ids"))

	res = h.parse(t, "read", "--ids=1", "-i", "4", "5", "-f", "a", "-f", "b", "c")
	assert.Equal(t, []int{4, 5}, res.Namespace.Ints("ids"))
	assert.Equal(t, []string{"b", "c"}, res.Namespace.Strings("fields"))

	res = h.parse(t, "create", "-v", "a", "1", "-v", "b", "2")
	assert.Len(t, res.Namespace.List("values"), 2)
}

func TestShorthandsResolvePerCommand(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "fields", "-a", "type", "string")
	assert.Equal(t, []string{"type", "string"}, res.Namespace.Strings("attributes"))

	res = h.parse(t, "search", "-a", "-d", "a", "=", "1", "-d", "b", "=", "2")
	assert.Equal(t, domain.And, res.Namespace.List("criteria")[0])
}

func TestLongAliases(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "--instance", "http://odoo:8069/", "fields", "--attr", "type")
	assert.Equal(t, types.URL("http://odoo:8069"), res.Namespace.Get("instance"))
	assert.Equal(t, []string{"type"}, res.Namespace.Strings("attributes"))
}

func TestStdinIDs(t *testing.T) {
	h := newHarness("2 6\n7\n")
	res := h.parse(t, "read", "-i", "-", "-f", "login")
	assert.Equal(t, []int{2, 6, 7}, res.Namespace.Ints("ids"))

	h = newHarness("2 six")
	perr := h.fail(t, "read", "--ids", "-")
	assert.Contains(t, perr.Error(), "`--ids`")

	h = newHarness("")
	res = h.parse(t, "read", "--ids", "3", "4")
	assert.Equal(t, []int{3, 4}, res.Namespace.Ints("ids"))
}

func TestRequiredFlag(t *testing.T) {
	h := newHarness("")
	perr := h.fail(t, "read", "-f", "login")
	assert.Contains(t, perr.Error(), "ids")
}

func TestAskChain(t *testing.T) {
	h := newHarness("")
	h.env["OD_INSTANCE"] = "http://from-env:8069"
	res := h.parse(t, "search")
	assert.Equal(t, types.URL("http://from-env:8069"), res.Namespace.Get("instance"))
	assert.Equal(t, []string{"password"}, h.asked)
	secret, ok := res.Namespace.Get("password").(types.Secret)
	require.True(t, ok)
	assert.Equal(t, "s3cret", secret.Reveal())

	h = newHarness("")
	res = h.parse(t, "--inst", "http://flag:8069", "--pass", "x", "search")
	assert.Empty(t, h.asked)
	assert.Equal(t, types.URL("http://flag:8069"), res.Namespace.Get("instance"))
}

func TestDryRunNeverPrompts(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "--dry-run", "search")
	assert.Empty(t, h.asked)
	assert.True(t, res.Namespace.Bool("dry_run"))
	assert.False(t, res.Namespace.Has("password"))
}

func TestExclusiveGroup(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "create", "-v", "login", "new", "-v", "name", "New")
	assert.Equal(t, []any{[]any{"login", "new"}, []any{"name", "New"}}, res.Namespace.List("values"))

	h.fail(t, "create")
	h.fail(t, "create", "-v", "a", "b", "--using", "records.csv")
}

func TestPositionalChoices(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "explain", "models", "-v")
	assert.Equal(t, "models", res.Namespace.String("topic"))
	assert.True(t, res.Namespace.Bool("verbose"))

	perr := h.fail(t, "explain", "weather")
	assert.Contains(t, perr.Error(), "invalid choice")
	perr = h.fail(t, "explain")
	assert.Contains(t, perr.Error(), "required: topic")
}

func TestHelpAndVersion(t *testing.T) {
	h := newHarness("")
	res := h.parse(t, "--version")
	assert.Empty(t, res.Command)
	assert.Equal(t, "clo 0.5.0\n", h.out.String())

	h.out.Reset()
	res = h.parse(t, "read", "--help")
	assert.Empty(t, res.Command)
	assert.Contains(t, h.out.String(), "Output:")
	assert.Contains(t, h.out.String(), "--ids")
}

func TestMissingAction(t *testing.T) {
	h := newHarness("")
	perr := h.fail(t, "--model", "res.partner")
	assert.Contains(t, perr.Error(), "an ACTION is required")

	perr = h.fail(t, "search", "--bogus")
	assert.Contains(t, perr.Error(), "unknown flag: --bogus")
}

func TestMarkdown(t *testing.T) {
	h := newHarness("")
	var buf bytes.Buffer
	require.NoError(t, h.parser.Markdown(&buf))
	assert.Contains(t, buf.String(), "## clo search")
	assert.Contains(t, buf.String(), "## clo explain")
}
