package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	eventbus "github.com/hanpama/feedgraph/internal/eventbus"
	events "github.com/hanpama/feedgraph/internal/events"
	executor "github.com/hanpama/feedgraph/internal/executor"
	reqid "github.com/hanpama/feedgraph/internal/reqid"
	schema "github.com/hanpama/feedgraph/internal/schema"
)

type codedError struct{}

func (codedError) Error() string              { return "remote catalog unavailable" }
func (codedError) Extensions() map[string]any { return map[string]any{"code": "REMOTE_UNAVAILABLE"} }

func newTestHandler(t *testing.T, rt executor.Runtime, opts ...Option) *Handler {
	t.Helper()
	sch := schema.NewSchema("").SetQueryType("Query")
	sch.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("hello", "", schema.NamedType("String"))).
		AddField(schema.NewField("broken", "", schema.NamedType("String"))))
	h, err := New(rt, sch, opts...)
	require.NoError(t, err)
	return h
}

func helloRuntime() *executor.MockRuntime {
	return executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello":  executor.NewMockValueResolver("world"),
		"Query.broken": executor.NewMockErrorResolver(codedError{}),
	})
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostAndGet(t *testing.T) {
	h := newTestHandler(t, helloRuntime())

	w := post(h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())

	req := httptest.NewRequest("GET", "/graphql?query=%7B%20hello%20%7D", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}

func TestMutationRequiresPost(t *testing.T) {
	sch := schema.NewSchema("").SetQueryType("Query").SetMutationType("Mutation")
	sch.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("hello", "", schema.NamedType("String"))))
	sch.AddType(schema.NewType("Mutation", schema.TypeKindObject, "").
		AddField(schema.NewField("deleteMessage", "", schema.NonNullType(schema.NamedType("Boolean"))).
			AddArgument(schema.NewInputValue("id", "", schema.NonNullType(schema.NamedType("ID"))))))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Mutation.deleteMessage": executor.NewMockValueResolver(true),
	})
	h, err := New(rt, sch)
	require.NoError(t, err)

	query := `mutation { deleteMessage(id: "1") }`
	req := httptest.NewRequest("GET", "/graphql?"+url.Values{"query": {query}}.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var res specResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "POST")
	require.Empty(t, rt.GetCalls())

	w = post(h, toString(map[string]any{"query": query}))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"deleteMessage":true}}`, w.Body.String())
	require.Len(t, rt.GetCalls(), 1)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t, helloRuntime())
	cases := []struct {
		name   string
		method string
		ctype  string
		body   string
		status int
		msg    string
	}{
		{"Method", "PUT", "application/json", `{}`, http.StatusMethodNotAllowed, "method not allowed"},
		{"Content type", "POST", "text/plain", `{ hello }`, http.StatusBadRequest, "unsupported Content-Type"},
		{"Invalid JSON", "POST", "application/json", `{`, http.StatusBadRequest, "invalid JSON"},
		{"Missing query", "POST", "application/json", `{"variables":{}}`, http.StatusBadRequest, "missing 'query'"},
		{"Empty batch", "POST", "application/json", `[]`, http.StatusBadRequest, "empty batch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/graphql", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", tc.ctype)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)

			var res specResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			require.Nil(t, res.Data)
			require.Len(t, res.Errors, 1)
			require.Equal(t, tc.msg, res.Errors[0].Message)
		})
	}
}

func TestSyntaxErrorHasLocation(t *testing.T) {
	h := newTestHandler(t, helloRuntime())
	w := post(h, `{"query":"{ hello "}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res specResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.NotEmpty(t, res.Errors[0].Locations)
	require.Equal(t, 1, res.Errors[0].Locations[0].Line)
}

func TestFieldErrorsAreLocatedAndCoded(t *testing.T) {
	h := newTestHandler(t, helloRuntime())
	w := post(h, `{"query":"{ hello broken }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"data": {"hello": "world", "broken": null},
		"errors": [{"message": "remote catalog unavailable", "path": ["broken"], "extensions": {"code": "REMOTE_UNAVAILABLE"}}]
	}`, w.Body.String())
}

func TestValidationFailureIsReported(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	var finished []events.GraphQLFinish
	eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) { finished = append(finished, e) })

	h := newTestHandler(t, helloRuntime())
	w := post(h, `{"query":"{ nope }"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res specResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.Equal(t, executor.ValidationFailedCode, res.Errors[0].Extensions["code"])
	require.Equal(t, []specLocation{{Line: 1, Column: 3}}, res.Errors[0].Locations)

	require.Len(t, finished, 1)
	require.True(t, finished[0].Validation)
}

func TestBatch(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	var finish events.HTTPFinish
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) { finish = e })

	h := newTestHandler(t, helloRuntime())
	w := post(h, `[{"query":"{ hello }"},{"query":"{ a: hello }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"data":{"hello":"world"}},{"data":{"a":"world"}}]`, w.Body.String())
	require.Equal(t, 2, finish.Batch)
	require.Equal(t, w.Body.Len(), finish.Bytes)
}

func TestPretty(t *testing.T) {
	h := newTestHandler(t, helloRuntime(), WithPretty())
	w := post(h, `{"query":"{ hello }"}`)
	require.Equal(t, "{\n  \"data\": {\n    \"hello\": \"world\"\n  }\n}\n", w.Body.String())
}

func TestForwardedHeaders(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured metadata.MD
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured, _ = metadata.FromOutgoingContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt, WithMetadataHeaders("X-Test"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "abc")
	req.Header.Set("X-Other", "nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"abc"}, captured.Get("x-test"))
	require.Empty(t, captured.Get("x-other"))
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured metadata.MD
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured, _ = metadata.FromOutgoingContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, captured.Get("x-test"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, helloRuntime(), WithMaxBodyBytes(10))
	w := post(h, `{"query":"1234567890"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var capturedMD metadata.MD
	var capturedID string
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		capturedMD, _ = metadata.FromOutgoingContext(ctx)
		capturedID, _ = reqid.FromContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	t.Run("Generated", func(t *testing.T) {
		w := post(h, `{"query":"{ hello }"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotEmpty(t, capturedID)
		require.Equal(t, capturedID, w.Header().Get(reqid.Header))
		require.Equal(t, []string{capturedID}, capturedMD.Get("x-request-id"))
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(reqid.Header, "upstream-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, "upstream-1", capturedID)
		require.Equal(t, "upstream-1", w.Header().Get(reqid.Header))
	})
}

func TestRouter(t *testing.T) {
	h := newTestHandler(t, helloRuntime())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("m 1\n")) })
	router := NewRouter(Routes{GraphQL: h, Metrics: metrics, CORSOrigins: []string{"*"}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok\n", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, "m 1\n", w.Body.String())

	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/graphql", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, pre)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterWithoutCORS(t *testing.T) {
	router := NewRouter(Routes{GraphQL: newTestHandler(t, helloRuntime())})
	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
