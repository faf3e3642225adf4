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

const lineSelect = `SELECT l.id, l.order_id, l.catalog_item_id, l.custom_item_name, l.quantity,
	l.quantity_checked_out, l.quantity_checked_in, l.checked_out_by, l.checked_out_at,
	l.checked_in_by, l.checked_in_at, l.notes,
	COALESCE(c.name, l.custom_item_name, 'Unknown item')
	FROM order_lines l
	LEFT JOIN catalog_items c ON c.id = l.catalog_item_id`

func scanLine(row rowScanner) (*model.OrderLine, error) {
	l := &model.OrderLine{}
	var catalogID, outBy, inBy sql.NullInt64
	var custom, notes sql.NullString
	var outAt, inAt sql.NullTime
	if err := row.Scan(&l.ID, &l.OrderID, &catalogID, &custom, &l.Quantity,
		&l.QuantityCheckedOut, &l.QuantityCheckedIn, &outBy, &outAt,
		&inBy, &inAt, &notes, &l.Name); err != nil {
		return nil, err
	}
	if catalogID.Valid {
		l.CatalogItemID = &catalogID.Int64
	}
	l.CustomItemName = custom.String
	l.Notes = notes.String
	if outBy.Valid {
		l.CheckedOutBy = &outBy.Int64
	}
	if outAt.Valid {
		l.CheckedOutAt = &outAt.Time
	}
	if inBy.Valid {
		l.CheckedInBy = &inBy.Int64
	}
	if inAt.Valid {
		l.CheckedInAt = &inAt.Time
	}
	return l, nil
}

func scanLines(rows *sql.Rows) ([]model.OrderLine, error) {
	var lines []model.OrderLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		lines = append(lines, *l)
	}
	return lines, rows.Err()
}

func listLines(ctx context.Context, q querier, orderID int64) ([]model.OrderLine, error) {
	rows, err := q.QueryContext(ctx, lineSelect+` WHERE l.order_id = ? ORDER BY l.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()
	return scanLines(rows)
}

func getLine(ctx context.Context, q querier, orderID, lineID int64) (*model.OrderLine, error) {
	l, err := scanLine(q.QueryRowContext(ctx,
		lineSelect+` WHERE l.id = ? AND l.order_id = ?`, lineID, orderID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order line: %w", err)
	}
	return l, nil
}

// insertLine adds a validated line to an order. A catalog reference must
// point at a non-deleted item.
func insertLine(ctx context.Context, q querier, orderID int64, n model.NewLine) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}

	var catalogID sql.NullInt64
	var custom sql.NullString
	if n.CatalogItemID != nil && *n.CatalogItemID > 0 {
		item, err := getCatalogItem(ctx, q, *n.CatalogItemID)
		if err != nil {
			return 0, err
		}
		if item == nil {
			return 0, apperr.NotFound("catalog item %d not found", *n.CatalogItemID)
		}
		catalogID = sql.NullInt64{Int64: item.ID, Valid: true}
	} else {
		custom = nullString(strings.TrimSpace(n.CustomItemName))
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO order_lines (order_id, catalog_item_id, custom_item_name, quantity, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		orderID, catalogID, custom, n.Quantity, nullString(n.Notes),
	)
	if err != nil {
		return 0, fmt.Errorf("adding order line: %w", err)
	}
	return result.LastInsertId()
}

// AddLine adds a line to an existing order. Completed orders cannot change.
func AddLine(ctx context.Context, db *sql.DB, orderID int64, n model.NewLine) (*model.OrderLine, error) {
	if n.Quantity == 0 {
		n.Quantity = 1
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := getOrderStatus(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if status == model.OrderStatusCompleted {
		return nil, apperr.Validation("order is completed")
	}

	id, err := insertLine(ctx, tx, orderID, n)
	if err != nil {
		return nil, err
	}
	if err := touchOrder(ctx, tx, orderID); err != nil {
		return nil, err
	}

	line, err := getLine(ctx, tx, orderID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order line: %w", err)
	}
	return line, nil
}

// UpdateLine edits a line's custom name, requested quantity or notes. The
// quantity cannot drop below what has already been checked out.
func UpdateLine(ctx context.Context, db *sql.DB, orderID, lineID int64, u model.LineUpdate) (*model.OrderLine, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	line, err := getLine(ctx, tx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, apperr.NotFound("order line not found")
	}

	var sets []string
	var args []any
	if u.CustomItemName != nil {
		if line.CatalogItemID != nil {
			return nil, apperr.Validation("catalog lines have no custom name")
		}
		name := strings.TrimSpace(*u.CustomItemName)
		if name == "" {
			return nil, apperr.Validation("custom item name cannot be empty")
		}
		sets = append(sets, "custom_item_name = ?")
		args = append(args, name)
	}
	if u.Quantity != nil {
		if *u.Quantity < line.QuantityCheckedOut {
			return nil, apperr.Validation("quantity cannot be below the %d already checked out", line.QuantityCheckedOut)
		}
		sets = append(sets, "quantity = ?")
		args = append(args, *u.Quantity)
	}
	if u.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(*u.Notes))
	}

	if len(sets) > 0 {
		args = append(args, lineID, orderID)
		if _, err := tx.ExecContext(ctx,
			`UPDATE order_lines SET `+strings.Join(sets, ", ")+` WHERE id = ? AND order_id = ?`, args...,
		); err != nil {
			return nil, fmt.Errorf("updating order line: %w", err)
		}
		if err := touchOrder(ctx, tx, orderID); err != nil {
			return nil, err
		}
	}

	line, err = getLine(ctx, tx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order line update: %w", err)
	}
	return line, nil
}

func getOrderStatus(ctx context.Context, q querier, orderID int64) (string, error) {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("order not found")
	}
	if err != nil {
		return "", fmt.Errorf("getting order status: %w", err)
	}
	return status, nil
}

func touchOrder(ctx context.Context, q querier, orderID int64) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE orders SET updated_at = ? WHERE id = ?`, time.Now().UTC(), orderID,
	); err != nil {
		return fmt.Errorf("touching order: %w", err)
	}
	return nil
}
