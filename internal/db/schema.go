package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    username      TEXT UNIQUE,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('admin', 'manager', 'staff')),
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_items (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    category    TEXT,
    description TEXT,
    image_url   TEXT,
    is_active   INTEGER NOT NULL DEFAULT 1,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS orders (
    id                   INTEGER PRIMARY KEY,
    customer_name        TEXT NOT NULL,
    customer_phone       TEXT,
    customer_email       TEXT,
    delivery_address     TEXT,
    event_date           TEXT,
    out_date             DATETIME,
    expected_return_date TEXT,
    actual_return_date   DATETIME,
    status               TEXT NOT NULL DEFAULT 'draft'
        CHECK (status IN ('draft', 'confirmed', 'out', 'partial_return', 'returned', 'completed')),
    notes                TEXT,
    created_by           INTEGER REFERENCES users(id) ON DELETE SET NULL,
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_lines (
    id                   INTEGER PRIMARY KEY,
    order_id             INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    catalog_item_id      INTEGER REFERENCES catalog_items(id),
    custom_item_name     TEXT,
    quantity             INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
    quantity_checked_out INTEGER NOT NULL DEFAULT 0,
    quantity_checked_in  INTEGER NOT NULL DEFAULT 0,
    checked_out_by       INTEGER REFERENCES users(id) ON DELETE SET NULL,
    checked_out_at       DATETIME,
    checked_in_by        INTEGER REFERENCES users(id) ON DELETE SET NULL,
    checked_in_at        DATETIME,
    notes                TEXT,
    CHECK ((catalog_item_id IS NULL) <> (custom_item_name IS NULL)),
    CHECK (0 <= quantity_checked_in
       AND quantity_checked_in <= quantity_checked_out
       AND quantity_checked_out <= quantity)
);

CREATE TABLE IF NOT EXISTS images (
    path         TEXT PRIMARY KEY,
    data         BLOB NOT NULL,
    content_type TEXT NOT NULL,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: lookup indexes for order listing and line reconciliation.
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id)`,
	// Migration 2: catalog lines are resolved by item when listing history.
	`CREATE INDEX IF NOT EXISTS idx_order_lines_catalog_item ON order_lines(catalog_item_id)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies the migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
