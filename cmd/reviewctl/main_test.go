package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	jsonOut = &buf
	t.Cleanup(func() { backend = "" })
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func fakeBackend(t *testing.T) (*httptest.Server, func() []string) {
	var mu sync.Mutex
	var calls []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()
		switch {
		case strings.HasPrefix(r.URL.Path, "/reviews/bad"):
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path == "/logs/recent":
			_, _ = w.Write([]byte(`[{"message":"scrape done"}]`))
		default:
			_, _ = w.Write([]byte(`{"status":"started"}`))
		}
	}))
	t.Cleanup(ts.Close)
	return ts, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
}

func TestScrapeAndGenerate(t *testing.T) {
	ts, calls := fakeBackend(t)

	out, err := run(t, "scrape", "--backend", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "started"`)

	_, err = run(t, "generate-replies", "--backend", ts.URL, "--max-count", "3")
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /scrape", "POST /generate-replies?max_count=3"}, calls())
}

func TestLogs(t *testing.T) {
	ts, _ := fakeBackend(t)
	out, err := run(t, "logs", "--backend", ts.URL, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "scrape done")
}

func TestRegenerate_ReportsFailures(t *testing.T) {
	ts, calls := fakeBackend(t)

	_, err := run(t, "regenerate", "--backend", ts.URL, "1", "2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"POST /reviews/1/regenerate-reply", "POST /reviews/2/regenerate-reply"}, calls())

	_, err = run(t, "regenerate", "--backend", ts.URL, "3", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestHistory_RequiresDSN(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	_, err := run(t, "history")
	require.Error(t, err)
}
