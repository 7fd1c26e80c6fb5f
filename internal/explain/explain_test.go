package explain

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clo/cli/internal/logging"
	"clo/cli/internal/model"
	"clo/cli/internal/odootest"
	"clo/cli/internal/session"
	"clo/cli/internal/types"
)

func setup(t *testing.T) (*Explainer, *bytes.Buffer, *odootest.Server) {
	t.Helper()
	srv := odootest.New()
	t.Cleanup(srv.Close)
	log := logging.New(&bytes.Buffer{})
	sess := session.New(log)
	sess.Configure(srv.Instance(), odootest.Database, "admin", types.NewSecret("admin"))
	var out bytes.Buffer
	return New(&out, false, model.NewRegistry(sess, log), sess), &out, srv
}

func TestModels(t *testing.T) {
	e, out, srv := setup(t)
	srv.Models["res.users"].Info = "Users of the application\nwith access rights"
	require.NoError(t, e.Topic(context.Background(), "models", "", false))
	assert.Equal(t, "\nMODELS\n\nThe following models are available to query:\n\n"+
		"  res.partner  Contact\n"+
		"  res.users..  User\n", out.String())

	out.Reset()
	require.NoError(t, e.Topic(context.Background(), "models", "", true))
	assert.Contains(t, out.String(), "  res.users..  User\n"+
		"               Users of the application\n"+
		"               with access rights\n")
}

func TestFields(t *testing.T) {
	e, out, _ := setup(t)
	require.NoError(t, e.Topic(context.Background(), "fields", "res.users", false))
	text := out.String()
	assert.Contains(t, text, "The following fields apply to the `res.users` model:")
	assert.Contains(t, text, "  email  Email  <char>\n")
	assert.Contains(t, text, "  login  Login  <char>\n         Used to log into the system\n")
	assert.NotContains(t, text, "password")
}

func TestFieldsUnknownModel(t *testing.T) {
	e, _, _ := setup(t)
	err := e.Topic(context.Background(), "fields", "no.such", false)
	var exit *logging.Exit
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 20, exit.Code)
}

func TestStaticTopics(t *testing.T) {
	e, out, srv := setup(t)
	require.NoError(t, e.Topic(context.Background(), "domains", "", false))
	assert.Contains(t, out.String(), "DOMAINS")
	assert.Contains(t, out.String(), "child_of")

	out.Reset()
	require.NoError(t, e.Topic(context.Background(), "logic", "", false))
	assert.Contains(t, out.String(), "successive domains imply `--and`")
	assert.Zero(t, srv.TotalCalls())
}

func TestServer(t *testing.T) {
	e, out, srv := setup(t)
	require.NoError(t, e.Topic(context.Background(), "server", "", false))
	assert.Contains(t, out.String(), "SERVER")
	assert.Contains(t, out.String(), "server_version")
	assert.Contains(t, out.String(), "17.0")
	assert.Zero(t, srv.Calls("common.authenticate"))
}

func TestUnknownTopic(t *testing.T) {
	e, _, _ := setup(t)
	assert.Error(t, e.Topic(context.Background(), "weather", "", false))
}
