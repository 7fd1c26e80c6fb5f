package demo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clo/cli/internal/config"
)

func testFetcher(srv *httptest.Server) *Fetcher {
	f := NewFetcher()
	f.URL = srv.URL
	return f
}

func TestFetchFollowsRedirects(t *testing.T) {
	var methods []string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		http.Redirect(w, r, "/web/login", http.StatusFound)
	})
	mux.HandleFunc("/web/login", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		http.Redirect(w, r, "/saas/start?dbname=demo_abc&user=admin&key=k3y", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/saas/start", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		http.Redirect(w, r, "/web", http.StatusSeeOther)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	creds, err := testFetcher(srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{Instance: srv.URL, Database: "demo_abc", Username: "admin", Password: "k3y"}, creds)
	assert.Equal(t, []string{http.MethodOptions, http.MethodOptions, http.MethodOptions}, methods)
	assert.Equal(t, "demo_abc", creds.Env()[config.EnvDatabase])
	assert.Equal(t, srv.URL, creds.Env()[config.EnvInstance])
}

func TestFetchCredentialsInLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://x1.demo.test/web?dbname=d&user=u&key=p")
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer srv.Close()

	creds, err := testFetcher(srv).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{Instance: "https://x1.demo.test", Database: "d", Username: "u", Password: "p"}, creds)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"unexpected status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, "answered 200 OK"},
		{"303 without credentials", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/web", http.StatusSeeOther)
		}, "without credentials"},
		{"redirect loop", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusFound)
		}, "more than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := testFetcher(srv).Fetch(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
