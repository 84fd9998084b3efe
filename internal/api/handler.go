package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/envoverlay/internal/overlay"
	"github.com/eugenenazirov/envoverlay/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Renderer produces a freshly overlaid document from the configured sources.
type Renderer interface {
	Render() (overlay.Document, error)
}

// Handler wires renderer and storage dependencies into HTTP handlers.
type Handler struct {
	renderer Renderer
	storage  storage.Storage

	clock func() time.Time

	// mu pairs the stored document with updatedAt
	mu        sync.RWMutex
	updatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(renderer Renderer, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		renderer: renderer,
		storage:  store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.updatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	doc, updatedAt, err := h.snapshot()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := configResponse{
		Config:    doc,
		UpdatedAt: updatedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRawConfig serves the bare document, for static front-ends that fetch
// their runtime configuration as a plain JSON file.
func (h *Handler) handleRawConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	doc, err := h.storage.GetDocument()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleGetValue(w http.ResponseWriter, r *http.Request) {
	path := splitRequestPath(r.PathValue("path"))
	if len(path) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid path", "path must contain at least one key")
		return
	}

	value, err := h.storage.Value(path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	resp := valueResponse{
		Path:  strings.Join(path, overlay.PathSeparator),
		Value: value,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	_ = r
	doc, err := h.renderer.Render()
	if err != nil {
		switch {
		case errors.Is(err, overlay.ErrPathConflict):
			writeError(w, http.StatusUnprocessableEntity, "Path conflict", err.Error(),
				"Remove the conflicting value from the source document or change the rule's target path")
		case errors.Is(err, overlay.ErrInvalidRule):
			writeError(w, http.StatusInternalServerError, "Invalid rule", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	current, updatedAt, err := h.commit(doc)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := configResponse{
		Config:    current,
		UpdatedAt: updatedAt,
		Message:   "Configuration reloaded successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

// commit stores doc and stamps updatedAt under the same lock.
func (h *Handler) commit(doc overlay.Document) (overlay.Document, time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.storage.SetDocument(doc); err != nil {
		return nil, time.Time{}, err
	}
	h.updatedAt = h.clock()

	current, err := h.storage.GetDocument()
	if err != nil {
		return nil, time.Time{}, err
	}
	return current, h.updatedAt, nil
}

func (h *Handler) snapshot() (overlay.Document, time.Time, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	doc, err := h.storage.GetDocument()
	if err != nil {
		return nil, time.Time{}, err
	}
	return doc, h.updatedAt, nil
}

// splitRequestPath accepts both a/b/c and a.b.c.
func splitRequestPath(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '.'
	})
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type configResponse struct {
	Config    overlay.Document `json:"config"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Message   string           `json:"message,omitempty"`
}

type valueResponse struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
