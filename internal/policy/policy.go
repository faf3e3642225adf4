// Package policy decides which role may perform which action. Every
// mutating API operation asks Authorize before touching the store.
package policy

import (
	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/model"
)

// Action names an operation subject to authorization.
type Action string

// Actions.
const (
	ViewProfile       Action = "profile.view"
	ChangeOwnPassword Action = "password.change_own"
	CreateUser        Action = "user.create"
	EditUser          Action = "user.edit"
	DeleteUser        Action = "user.delete"
	ChangePassword    Action = "user.password"
	ListUsers         Action = "user.list"
	ManageCatalog     Action = "catalog.manage"
	ManageOrder       Action = "order.manage"
	DeleteOrder       Action = "order.delete"
	CompleteOrder     Action = "order.complete"
	ManageImages      Action = "image.manage"
)

// Actor is the authenticated user performing an action.
type Actor struct {
	UserID int64
	Role   string
}

// Target describes the user an action applies to, when there is one.
// Role is the role being assigned for CreateUser.
type Target struct {
	UserID int64
	Role   string
}

func (a Actor) isSelf(t Target) bool {
	return t.UserID != 0 && a.UserID == t.UserID
}

// Authorize returns nil if actor may perform action on target, or an
// authorization error otherwise.
func Authorize(actor Actor, action Action, target Target) error {
	if !model.ValidRole(actor.Role) {
		return apperr.Authorization("unknown role")
	}

	switch action {
	case ViewProfile, ChangeOwnPassword, ManageOrder:
		return nil

	case CreateUser:
		switch actor.Role {
		case model.RoleAdmin:
			return nil
		case model.RoleManager:
			if target.Role == model.RoleStaff {
				return nil
			}
			return apperr.Authorization("managers can only create staff users")
		}
		return apperr.Authorization("insufficient permissions")

	case EditUser:
		if actor.Role == model.RoleAdmin {
			return nil
		}

	case DeleteUser:
		if actor.Role == model.RoleAdmin {
			if actor.isSelf(target) {
				return apperr.Authorization("cannot delete your own account")
			}
			return nil
		}

	case ChangePassword:
		if actor.Role == model.RoleAdmin || actor.isSelf(target) {
			return nil
		}

	case ListUsers, ManageCatalog, DeleteOrder, CompleteOrder, ManageImages:
		if model.RoleAtLeast(actor.Role, model.RoleManager) {
			return nil
		}
	}

	return apperr.Authorization("insufficient permissions")
}

// PasswordChangeNeedsCurrent reports whether the actor must present the
// target's current password. Admins reset passwords without it.
func PasswordChangeNeedsCurrent(actor Actor, targetID int64) bool {
	return actor.Role != model.RoleAdmin && actor.UserID == targetID
}

// CheckUserEdit enforces the self-protection rules at the edit-user boundary:
// an admin can neither deactivate their own account nor change their own role.
func CheckUserEdit(actor Actor, targetID int64, u model.UserUpdate) error {
	if actor.UserID != targetID {
		return nil
	}
	if u.IsActive != nil && !*u.IsActive {
		return apperr.Validation("cannot disable your own account")
	}
	if u.Role != nil && *u.Role != model.RoleAdmin && actor.Role == model.RoleAdmin {
		return apperr.Validation("cannot change your own role")
	}
	return nil
}

// CreatableRoles lists the roles actor may assign to new users.
func CreatableRoles(actor Actor) []string {
	roles := make([]string, 0, 3)
	for _, r := range []string{model.RoleAdmin, model.RoleManager, model.RoleStaff} {
		if Authorize(actor, CreateUser, Target{Role: r}) == nil {
			roles = append(roles, r)
		}
	}
	return roles
}
