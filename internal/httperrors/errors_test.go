package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), Timeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "odoo.invalid"}, DNS},
		{"refused", errors.New("dial tcp 127.0.0.1:8069: connect: connection refused"), Refused},
		{"tls", errors.New("x509: certificate signed by unknown authority"), TLS},
		{"server", errors.New("502 Bad Gateway"), Server},
		{"other", errors.New("unexpected EOF"), Generic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDescribe(t *testing.T) {
	lines := Describe(errors.New("connection refused"), "localhost:8069")
	assert.Equal(t, "Connection refused by localhost:8069", lines[0])
	assert.Len(t, lines, 2)
	assert.Nil(t, Describe(nil, "x"))
}

func TestExtractHostFromURL(t *testing.T) {
	assert.Equal(t, "localhost:8069", ExtractHostFromURL("http://localhost:8069/xmlrpc/2/common"))
	assert.Equal(t, "server", ExtractHostFromURL("::"))
}
