package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/model"
)

const userColumns = `id, email, username, password_hash, name, role, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var username sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &username, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	if username.Valid {
		u.Username = &username.String
	}
	return u, nil
}

// CreateUser creates a new active user. Email and username must be unique.
func CreateUser(ctx context.Context, db *sql.DB, email, username, name, passwordHash, role string) (*model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkUnique(ctx, tx, 0, email, username); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, name, role) VALUES (?, ?, ?, ?, ?)`,
		email, nullString(username), passwordHash, name, role,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.KindConflict, err, "email or username already in use")
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// checkUnique rejects an email or username already used by a user other than exceptID.
func checkUnique(ctx context.Context, q querier, exceptID int64, email, username string) error {
	var n int
	if email != "" {
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`, email, exceptID,
		).Scan(&n); err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if n > 0 {
			return apperr.Conflict("email already in use")
		}
	}
	if username != "" {
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?`, username, exceptID,
		).Scan(&n); err != nil {
			return fmt.Errorf("checking username: %w", err)
		}
		if n > 0 {
			return apperr.Conflict("username already in use")
		}
	}
	return nil
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	return getUser(ctx, db, id)
}

func getUser(ctx context.Context, q querier, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByLogin returns a user by email or username (including inactive
// users, for auth checks).
func GetUserByLogin(ctx context.Context, db *sql.DB, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? OR username = ?
		 ORDER BY email = ? DESC LIMIT 1`, login, login, login,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by login: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by name.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser applies a partial update. It keeps email and username unique and
// refuses to leave the system without an active admin.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, u model.UserUpdate) (*model.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.Empty() {
		user, err := GetUser(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, apperr.NotFound("user not found")
		}
		return user, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getUser(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("user not found")
	}

	var email, username string
	if u.Email != nil {
		email = *u.Email
	}
	if u.Username != nil {
		username = *u.Username
	}
	if err := checkUnique(ctx, tx, id, email, username); err != nil {
		return nil, err
	}

	losesAdmin := existing.Role == model.RoleAdmin && existing.IsActive &&
		((u.Role != nil && *u.Role != model.RoleAdmin) || (u.IsActive != nil && !*u.IsActive))
	if losesAdmin {
		if err := ensureOtherAdmin(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	var sets []string
	var args []any
	if u.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *u.Email)
	}
	if u.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, nullString(*u.Username))
	}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *u.Role)
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}

	if len(sets) > 0 {
		args = append(args, id)
		_, err = tx.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "email or username already in use")
		}
		if err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user update: %w", err)
	}
	return GetUser(ctx, db, id)
}

// ensureOtherAdmin fails unless an active admin other than id exists.
func ensureOtherAdmin(ctx context.Context, q querier, id int64) error {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active = 1 AND id <> ?`, id,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if n == 0 {
		return apperr.Conflict("at least one active admin is required")
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// DeleteUser removes a user. The last active admin cannot be deleted.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getUser(ctx, tx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound("user not found")
	}
	if existing.Role == model.RoleAdmin && existing.IsActive {
		if err := ensureOtherAdmin(ctx, tx, id); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user deletion: %w", err)
	}
	return nil
}
