package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/pagegraph/internal/config"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() { _, _ = io.Copy(&buf, r); close(done) }()

	err = fn()
	w.Close()
	<-done
	return buf.String(), err
}

func TestHelp(t *testing.T) {
	out, err := captureStdout(t, func() error { return run([]string{"help", "paginate"}) })
	require.NoError(t, err)
	require.Contains(t, out, "paginate FLAGS")
	require.Contains(t, out, "-api-key")

	require.Error(t, run([]string{"help", "nope"}))
}

func TestUnknownCommand(t *testing.T) {
	require.ErrorContains(t, run([]string{"frobnicate"}), "unknown command")
	require.ErrorContains(t, run(nil), "missing command")
}

func TestRequiresAPIKey(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	err := cmdGraph([]string{"-identity", "vitalik.eth"}, io.Discard)
	require.ErrorIs(t, err, config.ErrNoAPIKey)
}

func TestGraphRequiresIdentity(t *testing.T) {
	require.ErrorContains(t, cmdGraph(nil, io.Discard), "-identity is required")
}

func TestPaginatePagesThroughEndpoint(t *testing.T) {
	var n atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		next := ""
		if n.Add(1) == 1 {
			next = "c1"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"Items": map[string]any{
				"Item":     []any{map[string]any{"id": n.Load()}},
				"pageInfo": map[string]any{"nextCursor": next, "prevCursor": ""},
			},
		}})
	}))
	defer srv.Close()

	queryFile := filepath.Join(t.TempDir(), "q.graphql")
	require.NoError(t, os.WriteFile(queryFile, []byte(`query Q($limit: Int) { Items(input: {limit: $limit}) { Item { id } } }`), 0o644))

	var out bytes.Buffer
	err := cmdPaginate([]string{
		"-endpoint", srv.URL,
		"-api-key", "k",
		"-query", queryFile,
		"-vars", `{"limit": 1}`,
	}, &out)
	require.NoError(t, err)
	require.Equal(t, int32(2), n.Load())
	require.Equal(t, "k", auth.Load())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var first, second pageOutput
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.True(t, first.HasNextPage)
	require.Equal(t, "c1", first.PageInfo["Items"]["nextCursor"])
	require.Contains(t, first.Query, "pageInfo")
	require.False(t, second.HasNextPage)
	require.Contains(t, second.Query, `"c1"`)
}

func TestPaginateRejectsBadDirection(t *testing.T) {
	err := cmdPaginate([]string{"-query", "q.graphql", "-direction", "sideways"}, io.Discard)
	require.ErrorContains(t, err, "invalid -direction")
}
