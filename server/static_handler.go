package server

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"GenreFM/logger"
)

// ArchiveHandler streams the archived upload behind a classification.
func (h *APIHandler) ArchiveHandler(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		writeError(w, http.StatusServiceUnavailable, "upload archive is disabled")
		return
	}
	row, ok := h.lookupClassification(w, r)
	if !ok {
		return
	}
	if row.ArchiveKey == "" {
		writeError(w, http.StatusNotFound, "upload was not archived")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	data, err := h.objects.Get(ctx, row.ArchiveKey)
	if err != nil {
		logger.Error("fetch archived upload", logger.String("key", row.ArchiveKey), logger.ErrorField(err))
		writeError(w, http.StatusNotFound, "archived upload not found")
		return
	}

	w.Header().Set("Content-Type", detectContentType(row.ArchiveKey))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(row.Filename))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if _, err := w.Write(data); err != nil {
		logger.Warn("write archived upload", logger.ErrorField(err))
	}
}

// detectContentType maps an archived object's extension to a MIME type.
func detectContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
