package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	p1, err := generatePassword(16)
	require.NoError(t, err)
	p2, err := generatePassword(16)
	require.NoError(t, err)

	assert.Len(t, p1, 16)
	assert.NotEqual(t, p1, p2)
}

func TestOpenDatabaseBootstrapsAdmin(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.sqlite3")

	database, password, err := openDatabase(ctx, path, "root@example.com", "Root")
	require.NoError(t, err)
	require.NotEmpty(t, password)

	admin, err := store.GetUserByLogin(ctx, database, "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	ok, err := auth.CheckPassword(admin.PasswordHash, password)
	require.NoError(t, err)
	assert.True(t, ok)
	database.Close()

	// Reopening an existing database creates nobody.
	database, password, err = openDatabase(ctx, path, "other@example.com", "Other")
	require.NoError(t, err)
	defer database.Close()
	assert.Empty(t, password)

	users, err := store.ListUsers(ctx, database)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestInitAndResetPasswordCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.sqlite3")
	envFile := filepath.Join(dir, "missing.env")

	run := func(args ...string) (string, error) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--env-file", envFile, "--db", path, "--admin-email", "boss@example.com"}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("init")
	require.NoError(t, err)
	assert.Contains(t, out, "boss@example.com")

	_, err = run("init")
	assert.Error(t, err, "init refuses an existing database")

	out, err = run("reset-password", "boss@example.com")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Password reset:"))

	_, err = run("reset-password", "nobody@example.com")
	assert.Error(t, err)
}
