package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/botwatch/pkg/handlers"
	"github.com/JaimeStill/botwatch/pkg/routes"
	"github.com/JaimeStill/botwatch/pkg/storage"
)

// archiveHandler exposes the archived post artifacts held in blob storage.
type archiveHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newArchiveHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
) *archiveHandler {
	return &archiveHandler{
		store:       store,
		logger:      logger.With("handler", "archive"),
		maxListSize: maxListSize,
	}
}

func (h *archiveHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/archive",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
			{Method: "GET", Pattern: "/{key...}", Handler: h.find},
		},
	}
}

func (h *archiveHandler) list(w http.ResponseWriter, r *http.Request) {
	maxResults, err := storage.ParseMaxResults(
		r.URL.Query().Get("max_results"),
		h.maxListSize,
	)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	blobs, err := h.store.List(r.Context(), r.URL.Query().Get("prefix"), maxResults)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, blobs)
}

func (h *archiveHandler) find(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Find(r.Context(), r.PathValue("key"))
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, meta)
}

func (h *archiveHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
