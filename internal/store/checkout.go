package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/lifecycle"
	"github.com/erazemk/izposoja/internal/model"
)

// CheckOut hands units of an order's lines to the customer in a single
// transaction and moves the order to out. Each increment is bounded in SQL so
// a concurrent checkout cannot push a line past its requested quantity.
func CheckOut(ctx context.Context, db *sql.DB, orderID, actorID int64, reqs []model.LineQuantity) (*model.Order, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order not found")
	}

	plan, err := lifecycle.PlanCheckOut(order, order.Lines, reqs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, p := range plan {
		if p.Quantity <= 0 {
			return nil, apperr.Validation("line %d: quantity must be positive", p.LineID)
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE order_lines
			 SET quantity_checked_out = quantity_checked_out + ?, checked_out_by = ?, checked_out_at = ?
			 WHERE id = ? AND order_id = ? AND quantity_checked_out + ? <= quantity`,
			p.Quantity, actorID, now, p.LineID, orderID, p.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("checking out line %d: %w", p.LineID, err)
		}
		if n, _ := result.RowsAffected(); n != 1 {
			return nil, apperr.Conflict("line %d changed while checking out", p.LineID)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, out_date = ?, actual_return_date = NULL, updated_at = ? WHERE id = ?`,
		model.OrderStatusOut, now, now, orderID,
	); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	order, err = getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing checkout: %w", err)
	}
	return order, nil
}

// CheckIn records units coming back from the customer and reconciles the
// order status from all of its lines in the same transaction. Zero-quantity
// entries leave the line untouched but still count toward reconciliation.
func CheckIn(ctx context.Context, db *sql.DB, orderID, actorID int64, reqs []model.LineQuantity) (*model.Order, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order not found")
	}

	plan, err := lifecycle.PlanCheckIn(order, order.Lines, reqs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, p := range plan {
		if p.Quantity < 0 {
			return nil, apperr.Validation("line %d: quantity cannot be negative", p.LineID)
		}
		if p.Quantity == 0 {
			continue
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE order_lines
			 SET quantity_checked_in = quantity_checked_in + ?, checked_in_by = ?, checked_in_at = ?
			 WHERE id = ? AND order_id = ? AND quantity_checked_in + ? <= quantity_checked_out`,
			p.Quantity, actorID, now, p.LineID, orderID, p.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("checking in line %d: %w", p.LineID, err)
		}
		if n, _ := result.RowsAffected(); n != 1 {
			return nil, apperr.Conflict("line %d changed while checking in", p.LineID)
		}
	}

	lines, err := listLines(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	rec := lifecycle.Reconcile(lines, len(plan))

	var returnedAt sql.NullTime
	if rec.AllReturned {
		returnedAt = sql.NullTime{Time: now, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, actual_return_date = ?, updated_at = ? WHERE id = ?`,
		rec.Status, returnedAt, now, orderID,
	); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	order, err = getOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing check-in: %w", err)
	}
	return order, nil
}
