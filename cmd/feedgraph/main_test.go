package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanpama/feedgraph/internal/config"
	"github.com/hanpama/feedgraph/internal/reqid"
)

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"help", "serve"}, &out, io.Discard))
	require.Contains(t, out.String(), "serve FLAGS")
	require.Contains(t, out.String(), "-metrics.namespace")

	out.Reset()
	require.NoError(t, run([]string{"help"}, &out, io.Discard))
	require.Contains(t, out.String(), "print-schema")

	require.Error(t, run([]string{"help", "nope"}, io.Discard, io.Discard))
}

func TestUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	require.Error(t, run([]string{"launch"}, io.Discard, &stderr))
	require.Contains(t, stderr.String(), "USAGE")
	require.Error(t, run(nil, io.Discard, io.Discard))
}

func TestPrintSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"print-schema"}, &out, io.Discard))
	require.Contains(t, out.String(), "type Query {")
	require.Contains(t, out.String(), "  allMovies: [Movie!]!\n")

	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, run([]string{"print-schema", "-out", path}, io.Discard, io.Discard))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, out.String(), string(b))
}

func newTestApp(t *testing.T, yts http.HandlerFunc) http.Handler {
	t.Helper()
	remote := httptest.NewServer(yts)
	t.Cleanup(remote.Close)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	cfg.Catalog.BaseURL = remote.URL
	require.NoError(t, cfg.Validate())

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a.Handler
}

func graphql(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(reqid.Header, "test-rid")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, w.Body.String()
}

func TestServeEndToEnd(t *testing.T) {
	var forwarded string
	h := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get(reqid.Header)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","data":{"movies":[{"id":1,"url":"https://yts.mx/movies/one","title":"One","genres":["Drama"]}]}}`))
	})

	w, body := graphql(t, h, `{"query":"{ allMessages { text author { fullName } } allMovies { title genres } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`{"data":{"allMessages":[{"text":"first tweet","author":{"fullName":"Jane Moe"}},{"text":"second tweet","author":{"fullName":"John Doe"}}],"allMovies":[{"title":"One","genres":["Drama"]}]}}`+"\n",
		body)
	require.Equal(t, "test-rid", forwarded)

	w, body = graphql(t, h, `{"query":"mutation { postMessage(text: \"hi\", userId: \"1\") { id } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"postMessage":{"id":"3"}}}`, body)

	mw := httptest.NewRecorder()
	h.ServeHTTP(mw, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, mw.Code)
	require.Contains(t, mw.Body.String(), "feedgraph_messages_posted_total 1")
	require.Contains(t, mw.Body.String(), `feedgraph_catalog_calls_total{operation="list_movies",status="200"} 1`)
}

func TestServeRemoteDown(t *testing.T) {
	h := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	w, body := graphql(t, h, `{"query":"{ allUsers { firstName } movie(id: \"1\") { title } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, body, `"allUsers":[{"firstName":"John"},{"firstName":"Jane"}]`)
	require.Contains(t, body, `"movie":null`)
	require.Contains(t, body, `"code":"REMOTE_UNAVAILABLE"`)
	require.Contains(t, body, `"path":["movie"]`)
}

func TestServeMovieWithoutGenres(t *testing.T) {
	h := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","data":{"movies":[` +
			`{"id":1,"url":"https://yts.mx/movies/one","title":"One","genres":["Drama"]},` +
			`{"id":2,"url":"https://yts.mx/movies/two","title":"Two"}]}}`))
	})

	w, body := graphql(t, h, `{"query":"{ allUsers { id } allMovies { title genres } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, body, `"allUsers":[{"id":"1"},{"id":"2"}]`)
	require.Contains(t, body, `"allMovies":null`)
	require.Contains(t, body, `"code":"REMOTE_UNAVAILABLE"`)
	require.Contains(t, body, `"path":["allMovies"]`)
}

func TestSeedFile(t *testing.T) {
	remote := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(remote.Close)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	cfg.Catalog.BaseURL = remote.URL
	cfg.Metrics.Enabled = false
	cfg.Store.SeedFile = filepath.Join("..", "..", "internal", "store", "testdata", "seed.yaml")
	require.NoError(t, cfg.Validate())

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	w, body := graphql(t, a.Handler, `{"query":"mutation { postMessage(text: \"x\", userId: \"10\") { id } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"postMessage":{"id":"8"}}}`, body)

	mw := httptest.NewRecorder()
	a.Handler.ServeHTTP(mw, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusNotFound, mw.Code)
}

func TestBadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: [{id: \"1\", firstName: A}]\n"), 0o600))

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	cfg.Store.SeedFile = path
	_, err = newApp(cfg, zap.NewNop())
	require.Error(t, err)
}
