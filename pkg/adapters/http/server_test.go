package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/controller"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/plugins"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	handler   http.Handler
	submitter *memory.Submitter
	stream    *memory.Broadcaster
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{submitter: &memory.Submitter{}, stream: memory.NewBroadcaster(64)}

	reg := registry.New()
	require.NoError(t, reg.Register(plugins.Defaults(h.submitter)...))
	reg.Freeze()

	fetcher := memory.NewFetcher(map[string]any{
		"schema/ui/profile.json": map[string]any{
			"id":       "profile",
			"children": []any{map[string]any{"id": "name", "datasource": "user.name"}},
		},
		"mock-data/user.json": map[string]any{"name": "ada"},
	})
	env := node.NewEnv(reg, node.WithFetcher(fetcher), node.WithMessenger(h.stream))
	w := controller.NewWorkflow(controller.New(env))
	h.handler = arborhttp.NewHandler(w, arborhttp.WithStream(h.stream), arborhttp.WithVersion("test"))
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndInfo(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/info", nil)
	assert.Equal(t, "test", decode[map[string]string](t, rec)["version"])

	rec = h.do(t, http.MethodOptions, "/layouts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLayoutLifecycle(t *testing.T) {
	h := newHarness(t)

	// 1. Load inline and by locator
	rec := h.do(t, http.MethodPost, "/layouts", arborhttp.LoadRequest{
		Src: map[string]any{"id": "inline", "children": []any{map[string]any{"id": "x"}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[node.View](t, rec)
	assert.Equal(t, "inline", view.Root)
	assert.Len(t, view.Children, 1)

	rec = h.do(t, http.MethodPost, "/layouts", arborhttp.LoadRequest{ID: "profile", Src: "profile.json"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 2. Inspect
	layouts := decode[arborhttp.LayoutsResponse](t, h.do(t, http.MethodGet, "/layouts", nil))
	assert.Equal(t, "profile", layouts.Active)
	assert.Equal(t, []string{"inline", "profile"}, layouts.Stack)

	rec = h.do(t, http.MethodGet, "/layouts/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[node.View](t, rec)
	require.Len(t, profile.Children, 1)
	assert.Equal(t, "ada", profile.Children[0].Data)

	rec = h.do(t, http.MethodGet, "/layouts/profile/nodes?id=name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]node.View](t, rec), 1)

	// 3. Hide and delete
	layouts = decode[arborhttp.LayoutsResponse](t, h.do(t, http.MethodPost, "/layouts/profile/hide", nil))
	assert.Equal(t, "inline", layouts.Active)

	layouts = decode[arborhttp.LayoutsResponse](t, h.do(t, http.MethodDelete, "/layouts/inline", nil))
	assert.Equal(t, "profile", layouts.Active)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/layouts/inline", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/layouts/inline", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/layouts", arborhttp.LoadRequest{Src: 42}).Code)
}

func TestEventsDataAndCommit(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/layouts", arborhttp.LoadRequest{ID: "profile", Src: "profile.json"}).Code)

	// 1. Change event stores the value
	rec := h.do(t, http.MethodPost, "/events", arborhttp.EventRequest{
		Root:     "profile",
		Selector: map[string]any{"id": "name"},
		Event:    plugins.NameChange,
		Payload:  map[string]any{"value": "grace"},
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// 2. Commit submits it
	rec = h.do(t, http.MethodPost, "/commit", arborhttp.SourcesRequest{Sources: []string{"user.name"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	subs := h.submitter.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "grace", subs[0].Payload)

	// 3. Data can be pushed from outside
	count := decode[arborhttp.CountResponse](t, h.do(t, http.MethodPut, "/data", arborhttp.DataRequest{Source: "user.name", Value: "linus"}))
	assert.Equal(t, 1, count.Count)

	count = decode[arborhttp.CountResponse](t, h.do(t, http.MethodPut, "/state", arborhttp.StateRequest{Source: "user.name", State: map[string]any{"locked": true}}))
	assert.Equal(t, 1, count.Count)

	count = decode[arborhttp.CountResponse](t, h.do(t, http.MethodPost, "/messages", arborhttp.MessageRequest{Selector: map[string]any{"id": "name"}, Payload: "hi"}))
	assert.Equal(t, 1, count.Count)

	rec = h.do(t, http.MethodPost, "/validate", arborhttp.SourcesRequest{Sources: []string{"user.name"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[controller.ValidationReport](t, rec).OK)

	// 4. Errors
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/events", arborhttp.EventRequest{Selector: map[string]any{"id": "nope"}, Event: "change"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/messages", arborhttp.MessageRequest{Selector: map[string]any{}}).Code)
}

func TestWebSocketStream(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/ws?kind=registry", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var hello arborhttp.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "connected", hello.Type)

	// 1. A load is pushed as a registry message
	resp, err := http.Post(srv.URL+"/layouts", "application/json", bytes.NewBufferString(`{"id":"profile","src":"profile.json"}`))
	require.NoError(t, err)
	resp.Body.Close()

	var frame struct {
		Type string         `json:"type"`
		Data domain.Message `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, "message", frame.Type)
	assert.Equal(t, domain.MessageRegistry, frame.Data.Kind)

	// 2. Ping and events travel the other way
	require.NoError(t, wsjson.Write(ctx, conn, arborhttp.ClientMessage{Type: "ping", ID: "1"}))
	var pong arborhttp.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &pong))
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "1", pong.RequestID)

	require.NoError(t, wsjson.Write(ctx, conn, arborhttp.ClientMessage{
		Type: "event", ID: "2", Root: "profile",
		Selector: map[string]any{"id": "name"}, Event: "change",
		Payload: map[string]any{"value": "grace"},
	}))
	var ack arborhttp.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &ack))
	assert.Equal(t, "ack", ack.Type)
	assert.Equal(t, "2", ack.RequestID)

	conn.Close(websocket.StatusNormalClosure, "")
}
