// Package http exposes the layout controller over a JSON API and streams
// engine messages to rendering clients through SSE or WebSocket.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/controller"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/go-chi/chi/v5"
)

// Stream is the message feed consumed by SSE and WebSocket clients.
type Stream interface {
	Subscribe() (<-chan domain.Message, func())
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStream enables GET /events and GET /ws.
func WithStream(st Stream) Option {
	return func(s *Server) { s.stream = st }
}

// WithVersion reports version in GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server serves the layout API. Node trees are not safe for concurrent
// mutation, so engine calls are serialized.
type Server struct {
	workflow *controller.Workflow
	stream   Stream
	logger   *slog.Logger
	version  string

	mu sync.Mutex
}

// NewServer creates the API server.
func NewServer(w *controller.Workflow, opts ...Option) *Server {
	s := &Server{workflow: w, logger: logging.NewNop(), version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for w.
func NewHandler(w *controller.Workflow, opts ...Option) http.Handler {
	return NewServer(w, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Route("/layouts", func(r chi.Router) {
		r.Get("/", s.ListLayouts)
		r.Post("/", s.LoadLayout)
		r.Get("/{name}", s.GetLayout)
		r.Post("/{name}/hide", s.HideLayout)
		r.Delete("/{name}", s.DeleteLayout)
		r.Get("/{name}/nodes", s.SearchNodes)
	})

	r.Post("/events", s.DispatchEvent)
	r.Post("/messages", s.CastMessage)
	r.Post("/validate", s.Validate)
	r.Post("/commit", s.Commit)
	r.Put("/data", s.UpdateData)
	r.Put("/state", s.UpdateState)

	if s.stream != nil {
		r.Get("/events", s.SubscribeEvents)
		r.Get("/ws", s.ServeWS)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Request bodies --

// LoadRequest is the body of POST /layouts. Src is a schema object or a
// layout locator.
type LoadRequest struct {
	ID      string         `json:"id,omitempty"`
	Src     any            `json:"src"`
	Options map[string]any `json:"options,omitempty"`
}

// EventRequest is the body of POST /events.
type EventRequest struct {
	Root     string         `json:"root"`
	Selector map[string]any `json:"selector"`
	Event    string         `json:"event"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// MessageRequest is the body of POST /messages.
type MessageRequest struct {
	Selector map[string]any `json:"selector"`
	Payload  any            `json:"payload"`
	Roots    []string       `json:"roots,omitempty"`
}

// SourcesRequest is the body of POST /validate and POST /commit.
type SourcesRequest struct {
	Sources []string `json:"sources"`
}

// DataRequest is the body of PUT /data.
type DataRequest struct {
	Source string `json:"source"`
	Value  any    `json:"value"`
}

// StateRequest is the body of PUT /state.
type StateRequest struct {
	Source string         `json:"source"`
	State  map[string]any `json:"state"`
}

// CountResponse reports how many nodes a call touched.
type CountResponse struct {
	Count int `json:"count"`
}

// LayoutsResponse lists the registered layouts.
type LayoutsResponse struct {
	Active string   `json:"active"`
	Stack  []string `json:"stack"`
}

// -- Handlers --

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"app": "arbor-http", "version": s.version})
}

// ListLayouts handles GET /layouts.
func (s *Server) ListLayouts(w http.ResponseWriter, r *http.Request) {
	c := s.workflow.Controller()
	s.writeJSON(w, http.StatusOK, LayoutsResponse{Active: c.ActiveLayout(), Stack: c.Layouts()})
}

// LoadLayout handles POST /layouts.
func (s *Server) LoadLayout(w http.ResponseWriter, r *http.Request) {
	var body LoadRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []controller.LoadOption{controller.WithRenderOptions(body.Options)}
	if body.ID != "" {
		opts = append(opts, controller.WithID(body.ID))
	}
	n, err := s.workflow.Controller().LoadUINode(r.Context(), body.Src, opts...)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, n.View())
}

// GetLayout handles GET /layouts/{name}.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.workflow.Controller().GetUINode(chi.URLParam(r, "name"))
	if !ok {
		s.fail(w, http.StatusNotFound, domain.ErrLayoutNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, n.View())
}

// HideLayout handles POST /layouts/{name}/hide.
func (s *Server) HideLayout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.workflow.Controller().HideUINode(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	s.ListLayouts(w, r)
}

// DeleteLayout handles DELETE /layouts/{name}.
func (s *Server) DeleteLayout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.workflow.Controller().DeleteUINode(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	s.ListLayouts(w, r)
}

// SearchNodes handles GET /layouts/{name}/nodes?field=value.
func (s *Server) SearchNodes(w http.ResponseWriter, r *http.Request) {
	selector := make(map[string]any)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			selector[k] = v[0]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.workflow.Controller().Search(selector, chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	views := make([]*node.View, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, n.View())
	}
	s.writeJSON(w, http.StatusOK, views)
}

// DispatchEvent handles POST /events: the first node of root matching
// selector handles the named event.
func (s *Server) DispatchEvent(w http.ResponseWriter, r *http.Request) {
	var body EventRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dispatch(r.Context(), body); err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dispatch(ctx context.Context, body EventRequest) error {
	var roots []string
	if body.Root != "" {
		roots = append(roots, body.Root)
	}
	nodes, err := s.workflow.Controller().Search(body.Selector, roots...)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: no node matches the selector", domain.ErrNotFound)
	}
	return nodes[0].HandleEvent(ctx, body.Event, body.Payload)
}

// CastMessage handles POST /messages.
func (s *Server) CastMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.workflow.Controller().CastMessage(r.Context(), body.Selector, body.Payload, body.Roots...)
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// Validate handles POST /validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var body SourcesRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.workflow.Controller().ValidateAll(r.Context(), body.Sources)
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// Commit handles POST /commit. A rejected commit answers 409 with the report.
func (s *Server) Commit(w http.ResponseWriter, r *http.Request) {
	var body SourcesRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.workflow.Controller().Commit(r.Context(), body.Sources)
	switch {
	case errors.Is(err, domain.ErrCommitRejected):
		s.logger.Info("commit rejected", "sources", body.Sources, "err", err)
		s.writeJSON(w, http.StatusConflict, report)
	case err != nil:
		s.fail(w, statusOf(err), err)
	default:
		s.writeJSON(w, http.StatusOK, report)
	}
}

// UpdateData handles PUT /data.
func (s *Server) UpdateData(w http.ResponseWriter, r *http.Request) {
	var body DataRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.workflow.UpdateData(r.Context(), body.Source, body.Value)
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// UpdateState handles PUT /state.
func (s *Server) UpdateState(w http.ResponseWriter, r *http.Request) {
	var body StateRequest
	if !s.decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.workflow.UpdateState(r.Context(), body.Source, body.State)
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// -- Helpers --

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrLayoutNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedSelector):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCommitRejected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
