package types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretMasksEveryRepresentation(t *testing.T) {
	s := NewSecret("abc")

	assert.Equal(t, "***", s.String())
	assert.Equal(t, "***", fmt.Sprint(s))
	assert.Equal(t, "***", fmt.Sprintf("%v", s))
	assert.Equal(t, "***", fmt.Sprintf("%s", s))
	assert.Equal(t, "'***'", fmt.Sprintf("%#v", s))
	assert.Equal(t, `"***"`, fmt.Sprintf("%q", s))

	b, err := json.Marshal(map[string]any{"password": s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password":"***"}`, string(b))
}

func TestSecretMasksCharacters(t *testing.T) {
	s := NewSecret("café")
	assert.Equal(t, "****", s.String())
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, "café", s.Reveal())
	assert.True(t, s.Equal(NewSecret("café")))
}

func TestSecretRoundTrip(t *testing.T) {
	s := NewSecret("hunter2")
	assert.Equal(t, "hunter2", s.Reveal())
	assert.Equal(t, 7, s.Len())
	assert.True(t, s.Equal(NewSecret("hunter2")))
	assert.False(t, s.Equal(NewSecret("hunter3")))
	assert.False(t, s.Equal(NewSecret("short")))

	var zero Secret
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.Reveal())
	assert.Equal(t, "", zero.String())
	assert.True(t, zero.Equal(NewSecret("")))
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    URL
		wantErr bool
	}{
		{name: "local instance", input: "http://localhost:8069", want: "http://localhost:8069"},
		{name: "trailing slash", input: "https://demo.odoo.com/", want: "https://demo.odoo.com"},
		{name: "garbage", input: "htt&2325jklj", wantErr: true},
		{name: "no scheme", input: "localhost:8069", wantErr: true},
		{name: "no host", input: "http://", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLJoin(t *testing.T) {
	u := URL("http://localhost:8069")
	assert.Equal(t, "http://localhost:8069/xmlrpc/2/common", u.Join("/xmlrpc/2/common"))
	assert.Equal(t, "localhost:8069", u.Host())
}
