package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/server/middleware"
	"github.com/hostwatch/hostwatch/internal/service"
)

// AuthHandler serves login, the caller's own account and user
// administration.
type AuthHandler struct {
	guard  *service.Guard
	creds  *service.CredentialService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(guard *service.Guard, creds *service.CredentialService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{guard: guard, creds: creds, logger: logger}
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Login exchanges a username and password for a bearer token. Every
// credential failure gets the same 401.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	session, err := h.guard.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, "log in")
		return
	}

	h.logger.Info("login", "user", session.User.Username, "role", session.User.Role)
	writeJSON(w, http.StatusOK, model.LoginResponse{
		Token:     session.Token,
		TokenType: "bearer",
		ExpiresIn: int64(session.Claims.ExpiresAt.Sub(session.Claims.IssuedAt).Seconds()),
		ExpiresAt: session.Claims.ExpiresAt,
		User:      session.User,
	})
}

// Me describes the caller.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	resp := model.Identity{Username: p.Username, Role: p.Role, AuthEnabled: h.guard.Enabled()}
	if !p.ExpiresAt.IsZero() {
		exp := p.ExpiresAt
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword replaces the caller's password. Tokens issued earlier stay
// valid until they expire.
// POST /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if p.Implicit {
		writeError(w, http.StatusBadRequest, "Authentication is disabled; there is no account to update")
		return
	}

	var req model.ChangePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	u, err := h.creds.ChangePassword(r.Context(), p.Username, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, h.logger, err, "change password")
		return
	}

	h.logger.Info("password changed", "user", u.Username)
	writeJSON(w, http.StatusOK, u.Public())
}

// ---------------------------------------------------------------------------
// User administration
// ---------------------------------------------------------------------------

// ListUsers returns every account ordered by username.
// GET /api/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.creds.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, model.UserList{Users: users, Total: len(users)})
}

// CreateUser adds an account. Role defaults to viewer.
// POST /api/users
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Role == "" {
		req.Role = model.RoleViewer
	}

	u, err := h.creds.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, h.logger, err, "create user")
		return
	}

	h.logger.Info("user created", "user", u.Username, "role", u.Role, "by", actor(r))
	writeJSON(w, http.StatusCreated, u.Public())
}

// UpdateUser activates or deactivates an account. Admins cannot deactivate
// themselves.
// PATCH /api/users/{username}
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))

	var req model.UpdateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}
	if !*req.Active && username == actor(r) {
		writeError(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}

	u, err := h.creds.SetUserActive(r.Context(), username, *req.Active)
	if err != nil {
		writeServiceError(w, h.logger, err, "update user")
		return
	}

	h.logger.Info("user updated", "user", u.Username, "active", u.Active, "by", actor(r))
	writeJSON(w, http.StatusOK, u.Public())
}

func actor(r *http.Request) string {
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		return p.Username
	}
	return ""
}
