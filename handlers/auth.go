package handlers

import (
	"encoding/json"
	"net/http"

	"smack-integrations/middleware"
	"smack-integrations/models"
	"smack-integrations/store"

	log "github.com/sirupsen/logrus"
)

type AuthHandler struct {
	store *store.Store
}

func NewAuthHandler(s *store.Store) *AuthHandler {
	return &AuthHandler{store: s}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "Username, display name, and password are required")
		return
	}

	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	if existing, _ := h.store.GetUserByUsername(req.Username); existing != nil {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}

	user, err := h.store.CreateUser(req.Username, req.DisplayName, req.Password)
	if err != nil {
		log.WithError(err).WithField("username", req.Username).Error("create user")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil || !h.store.ValidatePassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.store.UpdateUserStatus(user.ID, "online")
	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := middleware.GenerateToken(user.ID)
	if err != nil {
		log.WithError(err).Error("generate token")
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, status, models.AuthResponse{
		Token: token,
		User:  user.ToResponse(),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(middleware.GetUserID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user.ToResponse())
}
