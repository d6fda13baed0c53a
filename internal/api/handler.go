// Package api provides HTTP handlers for the query resolver REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
	"github.com/DanielChung520/AI-Box-sub013/internal/events"
	"github.com/DanielChung520/AI-Box-sub013/internal/history"
	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
	"github.com/DanielChung520/AI-Box-sub013/internal/session"
)

// Handler wires the HTTP surface to the resolver pipeline and its stores.
type Handler struct {
	resolver *resolver.Resolver
	registry *schema.Registry
	sessions *session.Manager
	emitter  *events.Emitter
	history  *history.Store
	logger   *slog.Logger
}

// NewHandler creates a Handler. history may be nil when the audit store is
// disabled; the history endpoint then returns an empty list.
func NewHandler(res *resolver.Resolver, registry *schema.Registry, sessions *session.Manager,
	emitter *events.Emitter, hist *history.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver: res,
		registry: registry,
		sessions: sessions,
		emitter:  emitter,
		history:  hist,
		logger:   logger,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) resolveQuery(w http.ResponseWriter, r *http.Request) {
	var req resolver.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %s", err.Error()))
		return
	}
	if req.Query == "" {
		writeError(w, domain.ErrValidation("query is required"))
		return
	}
	if req.SystemID == "" {
		writeError(w, domain.ErrValidation("system_id is required"))
		return
	}

	resp, err := h.resolver.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, domain.ErrValidation("invalid request body: %s", err.Error()))
			return
		}
	}

	id, err := h.sessions.CreateSession(r.Context(), body.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handler) addSessionMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body struct {
		Role     string            `json:"role"`
		Content  string            `json:"content"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %s", err.Error()))
		return
	}
	if body.Role == "" || body.Content == "" {
		writeError(w, domain.ErrValidation("role and content are required"))
		return
	}

	if !h.sessions.AddMessage(r.Context(), sessionID, body.Role, body.Content, body.Metadata) {
		writeError(w, domain.ErrNotFound("session %s not found", sessionID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	cc, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, domain.ErrNotFound("session %s not found", sessionID))
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.sessions.ClearSession(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": []history.Entry{}})
		return
	}

	opts := history.ListOptions{SessionID: r.URL.Query().Get("session_id")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, domain.ErrValidation("limit must be an integer"))
			return
		}
		opts.Limit = n
	}

	entries, err := h.history.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) listSystems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"systems": h.registry.SystemIDs()})
}

func (h *Handler) validateSystem(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemID")
	dialect := r.URL.Query().Get("dialect")
	if dialect == "" {
		writeError(w, domain.ErrValidation("dialect query parameter is required"))
		return
	}

	gaps, err := h.registry.ValidateSystem(systemID, dialect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"system_id": systemID,
		"dialect":   dialect,
		"complete":  len(gaps) == 0,
		"gaps":      gaps,
	})
}

func (h *Handler) reloadSchemas(w http.ResponseWriter, _ *http.Request) {
	if err := h.registry.Reload(); err != nil {
		h.logger.Error("schema reload failed", "error", err)
		writeError(w, err)
		return
	}
	h.logger.Info("schema registry reloaded", "systems", h.registry.SystemIDs())
	writeJSON(w, http.StatusOK, map[string]interface{}{"systems": h.registry.SystemIDs()})
}
