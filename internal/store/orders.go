package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/lifecycle"
	"github.com/erazemk/izposoja/internal/model"
)

// Status filters accepted by ListOrders besides a concrete status.
const (
	FilterAll    = "all"
	FilterActive = "active"
)

const orderColumns = `o.id, o.customer_name, o.customer_phone, o.customer_email, o.delivery_address,
	o.event_date, o.out_date, o.expected_return_date, o.actual_return_date, o.status, o.notes,
	o.created_by, o.created_at, o.updated_at`

func scanOrder(row rowScanner, extra ...any) (*model.Order, error) {
	o := &model.Order{}
	var phone, email, address, eventDate, expected, notes sql.NullString
	var outDate, actualReturn sql.NullTime
	var createdBy sql.NullInt64
	dest := []any{&o.ID, &o.CustomerName, &phone, &email, &address,
		&eventDate, &outDate, &expected, &actualReturn, &o.Status, &notes,
		&createdBy, &o.CreatedAt, &o.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	o.CustomerPhone = phone.String
	o.CustomerEmail = email.String
	o.DeliveryAddress = address.String
	o.EventDate = eventDate.String
	o.ExpectedReturnDate = expected.String
	o.Notes = notes.String
	if outDate.Valid {
		o.OutDate = &outDate.Time
	}
	if actualReturn.Valid {
		o.ActualReturnDate = &actualReturn.Time
	}
	if createdBy.Valid {
		o.CreatedBy = &createdBy.Int64
	}
	return o, nil
}

// CreateOrder creates a draft order together with its initial lines.
func CreateOrder(ctx context.Context, db *sql.DB, n model.NewOrder, createdBy int64) (*model.Order, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var creator sql.NullInt64
	if createdBy > 0 {
		creator = sql.NullInt64{Int64: createdBy, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO orders (customer_name, customer_phone, customer_email, delivery_address,
		 event_date, expected_return_date, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(n.CustomerName), nullString(n.CustomerPhone), nullString(n.CustomerEmail),
		nullString(n.DeliveryAddress), nullString(n.EventDate), nullString(n.ExpectedReturnDate),
		nullString(n.Notes), creator,
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting order id: %w", err)
	}

	for _, l := range n.Lines {
		if _, err := insertLine(ctx, tx, id, l); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}
	return GetOrder(ctx, db, id)
}

// GetOrder returns an order with all of its lines.
func GetOrder(ctx context.Context, db *sql.DB, id int64) (*model.Order, error) {
	return getOrder(ctx, db, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*model.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o.Lines, err = listLines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.ItemCount = len(o.Lines)
	return o, nil
}

// ListOrders returns orders newest first with their line counts. filter is
// FilterAll, FilterActive (not returned or completed) or a single status.
func ListOrders(ctx context.Context, db *sql.DB, filter string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `,
		(SELECT COUNT(*) FROM order_lines l WHERE l.order_id = o.id)
		FROM orders o`
	var args []any
	switch {
	case filter == "" || filter == FilterAll:
	case filter == FilterActive:
		query += ` WHERE o.status NOT IN ('returned', 'completed')`
	case model.ValidOrderStatus(filter):
		query += ` WHERE o.status = ?`
		args = append(args, filter)
	default:
		return nil, apperr.Validation("invalid status filter %q", filter)
	}
	query += ` ORDER BY o.created_at DESC, o.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var count int
		o, err := scanOrder(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o.ItemCount = count
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ListOrdersWithLines returns every order with its lines loaded, for
// building the dashboard.
func ListOrdersWithLines(ctx context.Context, db *sql.DB) ([]model.Order, error) {
	orders, err := ListOrders(ctx, db, FilterAll)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, lineSelect+` ORDER BY l.order_id, l.id`)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	lines, err := scanLines(rows)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]model.OrderLine)
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
	}
	return orders, nil
}

// UpdateOrder applies a partial update. A status change must pass
// lifecycle.ValidateStatusEdit against the order's current lines.
func UpdateOrder(ctx context.Context, db *sql.DB, id int64, u model.OrderUpdate) (*model.Order, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("order not found")
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, nullString(strings.TrimSpace(*v)))
		}
	}
	if u.CustomerName != nil {
		sets = append(sets, "customer_name = ?")
		args = append(args, strings.TrimSpace(*u.CustomerName))
	}
	add("customer_phone", u.CustomerPhone)
	add("customer_email", u.CustomerEmail)
	add("delivery_address", u.DeliveryAddress)
	add("event_date", u.EventDate)
	add("expected_return_date", u.ExpectedReturnDate)
	add("notes", u.Notes)
	if u.Status != nil {
		if err := lifecycle.ValidateStatusEdit(existing.Status, *u.Status, existing.Lines); err != nil {
			return nil, err
		}
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	); err != nil {
		return nil, fmt.Errorf("updating order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order update: %w", err)
	}
	return GetOrder(ctx, db, id)
}

// DeleteOrder removes an order; its lines go with it.
func DeleteOrder(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}
