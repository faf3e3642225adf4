package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/policy"
	"github.com/erazemk/izposoja/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	TokenTTL  time.Duration
}

// loginRequest accepts either an email or a username as the login.
type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		writeError(w, r, apperr.Validation("email and password required"))
		return
	}

	user, err := store.GetUserByLogin(r.Context(), h.DB, login)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.IsActive {
		writeError(w, r, apperr.Authentication("invalid credentials"))
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		slog.Warn("login failed", "login", login, "remote", r.RemoteAddr)
		writeError(w, r, apperr.Authentication("invalid credentials"))
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Email, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged in", "user", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me. The response lists the roles the user may
// assign, so clients can offer only those when creating users.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(actor(r), policy.ViewProfile, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, meResponse{
		User:           CurrentUser(r.Context()),
		CreatableRoles: policy.CreatableRoles(actor(r)),
	})
}

// meResponse is the current user plus the roles they may assign to new users.
type meResponse struct {
	*model.User
	CreatableRoles []string `json:"creatableRoles"`
}

// ChangePassword handles PUT /api/auth/password. The current password is
// always required here, for admins too.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if err := policy.Authorize(a, policy.ChangeOwnPassword, policy.Target{UserID: a.UserID}); err != nil {
		writeError(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := setPassword(r, h.DB, CurrentUser(r.Context()), req.NewPassword, &req.CurrentPassword); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user changed own password", "user_id", a.UserID)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, r, apperr.Authentication("not authenticated"))
		return
	}

	expiresAt := time.Now().Add(auth.DefaultTokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expiresAt); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged out", "user_id", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// setPassword validates and stores a new password for user. When current is
// non-nil it must match the stored password.
func setPassword(r *http.Request, db *sql.DB, user *model.User, password string, current *string) error {
	if err := model.ValidatePassword(password); err != nil {
		return err
	}
	if current != nil {
		if *current == "" {
			return apperr.Validation("current password required")
		}
		ok, err := auth.CheckPassword(user.PasswordHash, *current)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("current password is incorrect")
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return store.UpdateUserPassword(r.Context(), db, user.ID, hash)
}
