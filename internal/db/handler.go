package db

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"room-relay/internal/chat"
	"room-relay/internal/httpx"
)

// ArchiveReader is the read side of the message archive.
type ArchiveReader interface {
	RoomMessages(ctx context.Context, roomID string, limit int) ([]chat.ChatMessage, error)
}

type Handler struct {
	archive ArchiveReader
	log     *log.Logger
}

func NewHandler(archive ArchiveReader, logger *log.Logger) *Handler {
	return &Handler{archive: archive, log: logger}
}

// GetArchive serves GET /rooms/{roomId}/archive?limit=N. Unlike the Redis
// history it is not bounded by the retention window.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	limit := chat.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.archive.RoomMessages(r.Context(), roomID, limit)
	if err != nil {
		h.log.Printf("error reading archive for room %q: %v", roomID, err)
		httpx.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, messages)
}
