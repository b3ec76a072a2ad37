package chat

import (
	"errors"
	"log"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"room-relay/internal/httpx"
	"room-relay/internal/user"
)

type Handler struct {
	hub      *Hub
	repo     *Repository
	log      *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint and the history query surface.
// An allowedOrigins entry of "*" accepts any Origin.
func NewHandler(hub *Hub, repo *Repository, logger *log.Logger, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, repo: repo, log: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ServeWs)
	r.Get("/ws", h.ServeWs)
	r.Get("/healthz", h.Health)
	r.Route("/rooms/{roomId}", func(r chi.Router) {
		r.Get("/messages", h.GetMessages)
		r.Get("/users", h.GetUsers)
	})
}

// ServeWs upgrades the request. The connection starts unauthenticated and
// is registered only after a valid auth frame.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := newClient(h.hub, conn)
	go client.writePump()
	go client.readPump()
}

// GetMessages serves GET /rooms/{roomId}/messages?limit=N, newest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.repo.GetRoomMessages(r.Context(), roomID, limit)
	if err != nil {
		h.log.Printf("error fetching messages for room %q: %v", roomID, err)
		httpx.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, messages)
}

// GetUsers serves GET /rooms/{roomId}/users. Member ids without a stored
// profile are left out of the result.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	ids, err := h.repo.GetRoomUsers(r.Context(), roomID)
	if err != nil {
		h.log.Printf("error fetching users for room %q: %v", roomID, err)
		httpx.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		u, err := h.repo.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				continue
			}
			h.log.Printf("error fetching user %q for room %q: %v", id, roomID, err)
			httpx.RespondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		users = append(users, *u)
	}

	httpx.RespondJSON(w, http.StatusOK, users)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		h.log.Printf("health check failed: %v", err)
		httpx.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.hub.ConnectionCount(),
	})
}
