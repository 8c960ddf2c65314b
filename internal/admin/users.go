// Package admin implements the management surface: user accounts and the
// video catalog. Every route here sits behind auth.RequireAdmin; the
// handlers mutate the store directly, while the media gateway stays
// read-only with respect to metadata.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidgate/vidgate/internal/auth"
	"github.com/vidgate/vidgate/internal/httputil"
	"github.com/vidgate/vidgate/internal/media"
	"github.com/vidgate/vidgate/internal/rank"
	"github.com/vidgate/vidgate/internal/store"
	"github.com/vidgate/vidgate/internal/validate"
)

type Handler struct {
	store   *store.Store
	gateway *media.Gateway

	// Hook for post-upload media processing (thumbnail + duration probe);
	// tests replace it to keep ffmpeg out of the loop.
	process func(videoID, thumbName string)
}

func NewHandler(s *store.Store, g *media.Gateway) *Handler {
	h := &Handler{store: s, gateway: g}
	h.process = func(videoID, thumbName string) {
		go func() {
			media.GenerateThumbnail(s, g, videoID, thumbName)
			media.ProbeDuration(s, g, videoID)
		}()
	}
	return h
}

type userItem struct {
	Username string `json:"username"`
	Rank     string `json:"rank"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.store.Users()
	items := make([]userItem, 0, len(users))
	for _, u := range users {
		items = append(items, userItem{Username: u.Username, Rank: u.Rank.String()})
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Rank     string `json:"rank"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		httputil.WriteError(w, http.StatusBadRequest, "username is required")
		return
	}
	if msg := validate.Username(req.Username); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.Password(req.Password); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	userRank, err := rank.Parse(req.Rank)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "rank must be top, middle, or free")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	err = h.store.AddUser(store.User{Username: req.Username, PasswordHash: string(hash), Rank: userRank})
	if errors.Is(err, store.ErrExists) {
		httputil.WriteError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save user")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, userItem{Username: req.Username, Rank: userRank.String()})
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Rank     *string `json:"rank"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUser(username)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.Username != nil {
		if *req.Username == "" {
			httputil.WriteError(w, http.StatusBadRequest, "username is required")
			return
		}
		if username == auth.AdminUsername && *req.Username != auth.AdminUsername {
			httputil.WriteError(w, http.StatusBadRequest, "the admin account cannot be renamed")
			return
		}
		if msg := validate.Username(*req.Username); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		user.Username = *req.Username
	}
	if req.Rank != nil {
		newRank, err := rank.Parse(*req.Rank)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "rank must be top, middle, or free")
			return
		}
		user.Rank = newRank
	}
	if req.Password != nil {
		if msg := validate.Password(*req.Password); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		user.PasswordHash = string(hash)
	}

	err = h.store.UpdateUser(username, user)
	if errors.Is(err, store.ErrExists) {
		httputil.WriteError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userItem{Username: user.Username, Rank: user.Rank.String()})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == auth.AdminUsername {
		httputil.WriteError(w, http.StatusBadRequest, "the admin account cannot be deleted")
		return
	}
	err := h.store.DeleteUser(username)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
