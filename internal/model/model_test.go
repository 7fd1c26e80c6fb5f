package model

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clo/cli/internal/domain"
	"clo/cli/internal/logging"
	"clo/cli/internal/odootest"
	"clo/cli/internal/session"
	"clo/cli/internal/types"
	"clo/cli/internal/xmlrpc"
)

type fixture struct {
	srv *odootest.Server
	log *logging.Logger
	buf *bytes.Buffer
	reg *Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := odootest.New()
	t.Cleanup(srv.Close)
	var buf bytes.Buffer
	log := logging.New(&buf)
	sess := session.New(log)
	sess.Configure(srv.Instance(), odootest.Database, "admin", types.NewSecret("admin"))
	return &fixture{srv: srv, log: log, buf: &buf, reg: NewRegistry(sess, log)}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exit *logging.Exit
	require.True(t, errors.As(err, &exit), "expected exit signal, got %v", err)
	return exit.Code
}

func TestOperationTable(t *testing.T) {
	tests := []struct {
		op       Operation
		method   string
		defaults bool
	}{
		{Search, "search", true},
		{Count, "search_count", true},
		{Find, "search_read", true},
		{Read, "read", false},
		{Write, "write", false},
		{Create, "create", false},
		{Delete, "unlink", false},
		{Fields, "fields_get", true},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			m, ok := tt.op.Method()
			require.True(t, ok)
			assert.Equal(t, tt.method, m.Name)
			if tt.defaults {
				assert.Equal(t, []any{[]any{}}, m.Args)
			} else {
				assert.Empty(t, m.Args)
			}
			op, ok := ParseOperation(tt.op.String())
			require.True(t, ok)
			assert.Equal(t, tt.op, op)
		})
	}
}

func TestExecuteAuthenticatesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := f.reg.Get("res.users")

	n, err := m.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, err := m.Search(ctx, domain.List{domain.Domain{Field: "login", Operator: "=", Value: "demo"}}, Query{})
	require.NoError(t, err)
	assert.Equal(t, []int{6}, ids)

	assert.Equal(t, 1, f.srv.Calls("common.authenticate"))
}

func TestTypedHelpers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := f.reg.Get("res.users")

	limit := 1
	recs, err := m.Find(ctx, domain.List{
		domain.Or,
		domain.Domain{Field: "login", Operator: "=", Value: "demo"},
		domain.Domain{Field: "login", Operator: "=", Value: "portal"},
	}, Query{Fields: []string{"login"}, Limit: &limit, Order: "login desc"})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"id": 7, "login": "portal"}}, recs)

	recs, err = m.Read(ctx, []int{2}, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"id": 2, "name": "Mitchell Admin"}}, recs)

	id, err := m.Create(ctx, map[string]any{"login": "new", "name": "New User"})
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	ok, err := m.Write(ctx, []int{id}, map[string]any{"name": "Renamed"})
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err = m.Read(ctx, []int{id}, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", recs[0]["name"])

	ok, err = m.Delete(ctx, []int{id})
	require.NoError(t, err)
	assert.True(t, ok)

	fields, err := m.Fields(ctx, []string{"type"})
	require.NoError(t, err)
	assert.Equal(t, Record{"name": "login", "type": "char"}, fields["login"])
}

func TestExecuteFault(t *testing.T) {
	f := setup(t)
	f.srv.Faults["res.users.search"] = &xmlrpc.Fault{Code: 2, String: "Access Denied"}

	_, err := f.reg.Get("res.users").Execute(context.Background(), Search, nil, nil)
	assert.Equal(t, 100, exitCode(t, err))
	assert.Contains(t, f.buf.String(), "ERROR | FAULT_ERROR(2): Access Denied")
}

func TestExecuteProtocolError(t *testing.T) {
	f := setup(t)
	f.srv.Status["/xmlrpc/2/object"] = http.StatusBadGateway

	_, err := f.reg.Get("res.users").Execute(context.Background(), Count, nil, nil)
	assert.Equal(t, 200, exitCode(t, err))
	assert.Contains(t, f.buf.String(), "PROTOCOL_ERROR(502): Bad Gateway")
}

func TestExecuteDispatchFailure(t *testing.T) {
	f := setup(t)

	_, err := f.reg.Get("res.users").Execute(context.Background(), Search, []any{make(chan int)}, nil)
	assert.Equal(t, 30, exitCode(t, err))
	assert.Contains(t, f.buf.String(), "ERROR |")
}

func TestExecuteUnknownModelFault(t *testing.T) {
	f := setup(t)

	_, err := f.reg.Get("res.nope").Execute(context.Background(), Search, nil, nil)
	assert.Equal(t, 100, exitCode(t, err))
	assert.Contains(t, f.buf.String(), "FAULT_ERROR(1): KeyError: 'Object res.nope doesn't exist'")
}

func TestRegistryCachesHandles(t *testing.T) {
	f := setup(t)
	assert.Same(t, f.reg.Get("res.users"), f.reg.Get("res.users"))
	assert.NotSame(t, f.reg.Get("res.users"), f.reg.Get("res.partner"))
	assert.Equal(t, "Model['res.users']", f.reg.Get("res.users").String())
}

func TestLookup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.reg.Lookup(ctx, "res.partner")
	require.NoError(t, err)
	assert.Equal(t, "res.partner", m.Name())

	_, err = f.reg.Lookup(ctx, "res.nope")
	assert.Equal(t, 20, exitCode(t, err))
	_, err = f.reg.Lookup(ctx, "res.nada")
	assert.Equal(t, 20, exitCode(t, err))

	_, err = f.reg.Lookup(ctx, DirectoryModel)
	require.NoError(t, err)

	assert.Equal(t, 1, f.srv.Calls("object.ir.model.search_read"))
}

func TestEntries(t *testing.T) {
	f := setup(t)
	entries, err := f.reg.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Model: "res.partner", Name: "Contact"}, entries[0])
	assert.Equal(t, "Users of the application", entries[1].Info)
}
