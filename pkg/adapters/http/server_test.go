package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/pkg/adapters/memory"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoKnots = "Hello\n* A -> a\n* B -> b\n== a ==\nGot A\n== b ==\nGot B"

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	lib := memory.NewLibraryFromScripts(map[string]string{"two": twoKnots})
	mgr := session.NewManager(memory.NewStore(), lib)
	h, err := NewHandler(mgr, opts...)
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, "skein API", doc.Info.Title)
	assert.NotNil(t, doc.Paths.Find("/sessions/{id}/choices"))
}

func TestServer_SessionLifecycle(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stories":["two"]}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/stories/two/sessions", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/sessions/s1", w.Header().Get("Location"))
	started := decode[session.Session](t, w)
	assert.Equal(t, []string{"Hello"}, started.History)
	require.Len(t, started.Choices, 2)
	assert.Equal(t, "B", started.Choices[1].Text)

	w = do(t, h, http.MethodPost, "/sessions/s1/choices", `{"index":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	chosen := decode[session.Session](t, w)
	assert.True(t, chosen.Complete)
	require.NotNil(t, chosen.Diff)
	assert.Equal(t, []string{"• B", "Got B", domain.AutoEndText}, chosen.Diff.History.Appended)

	w = do(t, h, http.MethodPost, "/sessions/s1/choices", `{"index":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[session.Session](t, w).Turn)

	w = do(t, h, http.MethodGet, "/sessions", "")
	assert.JSONEq(t, `{"sessions":["s1"]}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/sessions/s1/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	reset := decode[session.Session](t, w)
	assert.Equal(t, []string{"Hello"}, reset.History)
	assert.False(t, reset.Complete)

	w = do(t, h, http.MethodDelete, "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "session not found")
}

func TestServer_StartGeneratesID(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodPost, "/stories/two/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, decode[session.Session](t, w).ID)
}

func TestServer_BadRequests(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/stories/two/sessions", `{"session_id":"s1"}`).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown story", http.MethodPost, "/stories/nope/sessions", "", http.StatusNotFound},
		{"session id with slash", http.MethodPost, "/stories/two/sessions", `{"session_id":"a/b"}`, http.StatusBadRequest},
		{"malformed start body", http.MethodPost, "/stories/two/sessions", `{`, http.StatusBadRequest},
		{"malformed choice body", http.MethodPost, "/sessions/s1/choices", `nope`, http.StatusBadRequest},
		{"missing index", http.MethodPost, "/sessions/s1/choices", `{}`, http.StatusBadRequest},
		{"index out of range", http.MethodPost, "/sessions/s1/choices", `{"index":9}`, http.StatusUnprocessableEntity},
		{"choice on unknown session", http.MethodPost, "/sessions/zz/choices", `{"index":0}`, http.StatusNotFound},
		{"unknown graph format", http.MethodGet, "/stories/two/graph?format=svg", "", http.StatusBadRequest},
		{"graph of unknown story", http.MethodGet, "/stories/nope/graph", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_Graph(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/stories/two/sessions", `{"session_id":"s1"}`).Code)

	w := do(t, h, http.MethodGet, "/stories/two/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var g struct {
		Order []int         `json:"order"`
		Edges []domain.Edge `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.NotEmpty(t, g.Order)
	assert.NotEmpty(t, g.Edges)

	w = do(t, h, http.MethodGet, "/stories/two/graph?format=mermaid&session=s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD\n"))
	assert.Contains(t, w.Body.String(), "class n1 current;")

	req := httptest.NewRequest(http.MethodGet, "/stories/two/graph", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD\n"))
}

func TestServer_Meta(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("skein_choices_total 0\n"))
	})
	h := newTestHandler(t, WithMetricsHandler(metrics))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	info := decode[map[string]string](t, w)
	assert.Equal(t, "0.1.0", info["api_version"])
	assert.Equal(t, "skein-http", info["app"])

	w = do(t, h, http.MethodGet, "/openapi.yaml", "")
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), "skein_choices_total")

	w = do(t, h, http.MethodOptions, "/stories", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_MetricsNotMountedByDefault(t *testing.T) {
	w := do(t, newTestHandler(t), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SubscribeEvents(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/stories/two/sessions", "application/json", strings.NewReader(`{"session_id":"s1"}`))
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/s1/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	reader := bufio.NewReader(stream.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	resp, err = http.Post(srv.URL+"/sessions/s1/choices", "application/json", strings.NewReader(`{"index":0}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &diff))
	assert.Equal(t, "s1", diff.SessionID)
	assert.Equal(t, []string{"• A", "Got A", domain.AutoEndText}, diff.History.Appended)
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	ch, cancel := sm.Subscribe("s1")
	assert.Equal(t, 1, sm.Subscribers("s1"))

	sm.Broadcast("s1", "hello")
	sm.Broadcast("s2", "ignored")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s1"))
	_, ok := <-ch
	assert.False(t, ok)
}
