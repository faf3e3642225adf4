package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/model"
)

const catalogColumns = `id, name, category, description, image_url, is_active, created_at, updated_at, deleted_at`

func scanCatalogItem(row rowScanner) (*model.CatalogItem, error) {
	item := &model.CatalogItem{}
	var category, description, imageURL sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Name, &category, &description, &imageURL,
		&item.IsActive, &item.CreatedAt, &item.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	item.Category = category.String
	item.Description = description.String
	item.ImageURL = imageURL.String
	if deletedAt.Valid {
		item.DeletedAt = &deletedAt.Time
	}
	return item, nil
}

// CreateCatalogItem creates a new active catalog item.
func CreateCatalogItem(ctx context.Context, db *sql.DB, n model.NewCatalogItem) (*model.CatalogItem, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO catalog_items (name, category, description, image_url) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(n.Name), nullString(n.Category), nullString(n.Description), nullString(n.ImageURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating catalog item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting catalog item id: %w", err)
	}
	return GetCatalogItem(ctx, db, id)
}

// GetCatalogItem returns a catalog item by ID. Deleted items are not returned.
func GetCatalogItem(ctx context.Context, db *sql.DB, id int64) (*model.CatalogItem, error) {
	return getCatalogItem(ctx, db, id)
}

func getCatalogItem(ctx context.Context, q querier, id int64) (*model.CatalogItem, error) {
	item, err := scanCatalogItem(q.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item: %w", err)
	}
	return item, nil
}

// ListCatalogItems returns non-deleted catalog items ordered by category and
// name. With availableOnly, inactive items are left out.
func ListCatalogItems(ctx context.Context, db *sql.DB, availableOnly bool) ([]model.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items WHERE deleted_at IS NULL`
	if availableOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY COALESCE(category, ''), name, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing catalog items: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning catalog item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateCatalogItem applies a partial update to a catalog item.
func UpdateCatalogItem(ctx context.Context, db *sql.DB, id int64, u model.CatalogItemUpdate) (*model.CatalogItem, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*u.Name))
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, nullString(*u.Category))
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*u.Description))
	}
	if u.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, nullString(*u.ImageURL))
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}
	args = append(args, id)

	result, err := db.ExecContext(ctx,
		`UPDATE catalog_items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating catalog item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("catalog item not found")
	}
	return GetCatalogItem(ctx, db, id)
}

// DeleteCatalogItem soft-deletes a catalog item. Order lines that reference
// it keep resolving its name.
func DeleteCatalogItem(ctx context.Context, db *sql.DB, id int64) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`UPDATE catalog_items SET deleted_at = ?, is_active = 0, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("deleting catalog item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("catalog item not found")
	}
	return nil
}

// ListCatalogItemLines returns the order lines that reference a catalog item,
// newest first.
func ListCatalogItemLines(ctx context.Context, db *sql.DB, itemID int64) ([]model.OrderLine, error) {
	rows, err := db.QueryContext(ctx,
		lineSelect+` WHERE l.catalog_item_id = ? ORDER BY l.order_id DESC, l.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing catalog item lines: %w", err)
	}
	defer rows.Close()
	return scanLines(rows)
}
