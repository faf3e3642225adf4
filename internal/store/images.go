package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PutImage stores an image blob under path, replacing any existing one.
func PutImage(ctx context.Context, db *sql.DB, path string, data []byte, contentType string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO images (path, data, content_type) VALUES (?, ?, ?)
		 ON CONFLICT (path) DO UPDATE SET data = excluded.data, content_type = excluded.content_type`,
		path, data, contentType,
	)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// GetImage returns the image stored under path. A missing image returns nil data.
func GetImage(ctx context.Context, db *sql.DB, path string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := db.QueryRowContext(ctx,
		`SELECT data, content_type FROM images WHERE path = ?`, path,
	).Scan(&data, &contentType)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image: %w", err)
	}
	return data, contentType, nil
}

// DeleteImage removes the image stored under path and reports whether it existed.
func DeleteImage(ctx context.Context, db *sql.DB, path string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM images WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("deleting image: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
