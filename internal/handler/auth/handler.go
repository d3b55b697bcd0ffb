package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/echofeed/backend/internal/auth"
	middlewarePkg "github.com/echofeed/backend/internal/middleware"
	usermodel "github.com/echofeed/backend/internal/model/user"
	userservice "github.com/echofeed/backend/internal/service/user"
	"github.com/echofeed/backend/pkg/utils"
)

// Handler serves signup and login.
type Handler struct {
	users  *userservice.Service
	issuer *auth.Issuer
}

// New creates the auth handler.
func New(users *userservice.Service, issuer *auth.Issuer) *Handler {
	return &Handler{users: users, issuer: issuer}
}

// RegisterRoutes registers auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtectedRoutes registers routes that expect an authenticated
// caller; the router mounts them behind the bearer-token middleware.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
}

type tokenResponse struct {
	Token string         `json:"token"`
	User  usermodel.User `json:"user"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Username == "" || payload.Password == "" || payload.Email == "" {
		utils.RespondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	u, err := h.users.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, userservice.ErrUsernameTaken) {
			utils.RespondError(w, http.StatusConflict, "username already taken")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	token, err := h.issuer.Issue(u.ID, u.Username)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, tokenResponse{Token: token, User: u})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	username, ok := middlewarePkg.UsernameFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, userservice.ErrInvalidCredentials) {
			utils.RespondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := h.issuer.Issue(u.ID, u.Username)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, tokenResponse{Token: token, User: u})
}
