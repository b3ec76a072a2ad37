package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-relay/internal/testutil"
)

func setupRouter(t *testing.T) (*chi.Mux, *Repository, func(string)) {
	repo, mr := newTestRepository(t)
	h := NewHandler(repo, testutil.TestLogger(t))

	r := chi.NewRouter()
	r.Get("/users/{userId}", h.GetProfile)
	return r, repo, mr.SetError
}

func TestGetProfile(t *testing.T) {
	r, repo, _ := setupRouter(t)
	require.NoError(t, repo.Save(context.Background(), User{UserID: "2", UserName: "Bob"}))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/users/2", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var got User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, User{UserID: "2", UserName: "Bob"}, got)
}

func TestGetProfileNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/users/404", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetProfileStorageError(t *testing.T) {
	r, _, setError := setupRouter(t)
	setError("boom")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/users/2", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, resp.Body.String())
}
