package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"os"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// openDatabase opens the database at path and makes sure the schema is
// current. A missing database is created with a fresh admin account, whose
// generated password is returned; otherwise the password is empty.
func openDatabase(ctx context.Context, path, adminEmail, adminName string) (*sql.DB, string, error) {
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, "", fmt.Errorf("ensuring schema: %w", err)
	}
	if !fresh {
		return database, "", nil
	}

	password, err := createAdmin(ctx, database, adminEmail, adminName)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}
	return database, password, nil
}

// createAdmin adds an admin account with a generated password.
func createAdmin(ctx context.Context, database *sql.DB, email, name string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	n := model.NewUser{Email: email, Name: name, Password: password, Role: model.RoleAdmin}
	if err := n.Validate(); err != nil {
		return "", fmt.Errorf("admin account: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, n.Email, "", n.Name, hash, n.Role); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// resetPassword sets a generated password for the user with the given login.
func resetPassword(ctx context.Context, database *sql.DB, login string) (*model.User, string, error) {
	user, err := store.GetUserByLogin(ctx, database, login)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", fmt.Errorf("no user %q", login)
	}

	password, err := generatePassword(16)
	if err != nil {
		return nil, "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	if err := store.UpdateUserPassword(ctx, database, user.ID, hash); err != nil {
		return nil, "", err
	}
	return user, password, nil
}

// printCredentials prints a generated login to w.
func printCredentials(w io.Writer, heading, login, password string) {
	fmt.Fprintln(w, heading)
	fmt.Fprintf(w, "  Login:    %s\n", login)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "It can be changed after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
