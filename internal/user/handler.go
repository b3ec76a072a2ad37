package user

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"room-relay/internal/httpx"
)

type Handler struct {
	repo *Repository
	log  *log.Logger
}

func NewHandler(repo *Repository, logger *log.Logger) *Handler {
	return &Handler{repo: repo, log: logger}
}

// GetProfile serves GET /users/{userId}.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	u, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Printf("error fetching user %q: %v", userID, err)
		httpx.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, u)
}
