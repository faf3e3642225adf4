package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/policy"
	"github.com/erazemk/izposoja/internal/store"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin manager staff"`
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitnil,email"`
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Role     *string `json:"role" validate:"omitnil,oneof=admin manager staff"`
	IsActive *bool   `json:"isActive"`
}

type passwordRequest struct {
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"required"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(actor(r), policy.ListUsers, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.CreateUser, policy.Target{Role: req.Role}); err != nil {
		writeError(w, r, err)
		return
	}

	n := model.NewUser{
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
	}
	if err := n.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(n.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, n.Email, n.Username, n.Name, hash, n.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user created", "by", a.UserID, "user", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}. Users can always read their own record.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if a.UserID != id {
		if err := policy.Authorize(a, policy.ListUsers, policy.Target{UserID: id}); err != nil {
			writeError(w, r, err)
			return
		}
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, apperr.NotFound("user not found"))
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.EditUser, policy.Target{UserID: id}); err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u := model.UserUpdate{
		Email:    trimmed(req.Email),
		Username: trimmed(req.Username),
		Name:     trimmed(req.Name),
		Role:     req.Role,
		IsActive: req.IsActive,
	}
	if err := policy.CheckUserEdit(a, id, u); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user updated", "by", a.UserID, "user", user.Email)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.DeleteUser, policy.Target{UserID: id}); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user deleted", "by", a.UserID, "user_id", id)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// ChangePassword handles PUT /api/users/{id}/password. Admins reset any
// password; everyone else changes their own and must give the current one.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.ChangePassword, policy.Target{UserID: id}); err != nil {
		writeError(w, r, err)
		return
	}

	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, apperr.NotFound("user not found"))
		return
	}

	var current *string
	if policy.PasswordChangeNeedsCurrent(a, id) {
		current = req.CurrentPassword
		if current == nil {
			current = new(string)
		}
	}
	if err := setPassword(r, h.DB, user, req.NewPassword, current); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("password changed", "by", a.UserID, "user_id", id)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
