package posts

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/pkg/handlers"
	"github.com/JaimeStill/botwatch/pkg/routes"
)

// Handler provides HTTP endpoints over the pipeline output root.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler with the given system, logger, and request body limit.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "posts"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for post endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/posts", Handler: h.List},
			{Method: "GET", Pattern: "/posts/{postId}/files/{file}", Handler: h.File},
			{Method: "GET", Pattern: "/stats", Handler: h.Stats},
			{Method: "GET", Pattern: "/weights", Handler: h.Weights},
			{Method: "POST", Pattern: "/rank", Handler: h.Rank},
		},
	}
}

// List returns every post analysis, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.sys.List(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, list)
}

// File streams one artifact of a post.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	rc, err := h.sys.Open(r.Context(), r.PathValue("postId"), r.PathValue("file"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("file stream interrupted", "post_id", r.PathValue("postId"), "error", err)
	}
}

// Stats returns aggregate counts across every post analysis.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sys.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Weights returns the configured scoring weights.
func (h *Handler) Weights(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Weights())
}

// Rank re-analyzes every post. The optional JSON body is a partial weights
// object merged over the configured weights.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	var overrides *scoring.Overrides

	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var o scoring.Overrides
	switch err := json.NewDecoder(body).Decode(&o); {
	case err == nil:
		overrides = &o
	case errors.Is(err, io.EOF):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	summary, err := h.sys.Rank(r.Context(), overrides)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, summary)
}
