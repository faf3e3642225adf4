package store

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

// seedOrder creates a staff user and a draft order with one custom line per
// quantity given.
func seedOrder(t *testing.T, database *sql.DB, quantities ...int) (*model.User, *model.Order) {
	t.Helper()
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "crew@example.com", "", "Crew", "hash", model.RoleStaff)
	require.NoError(t, err)

	n := model.NewOrder{CustomerName: "Festival d.o.o.", ExpectedReturnDate: "2026-10-20"}
	for i, q := range quantities {
		n.Lines = append(n.Lines, model.NewLine{CustomItemName: []string{"Chair", "Table", "Tent"}[i%3], Quantity: q})
	}
	order, err := CreateOrder(ctx, database, n, user.ID)
	require.NoError(t, err)
	return user, order
}

func assertLineInvariant(t *testing.T, o *model.Order) {
	t.Helper()
	for _, l := range o.Lines {
		assert.True(t, 0 <= l.QuantityCheckedIn && l.QuantityCheckedIn <= l.QuantityCheckedOut && l.QuantityCheckedOut <= l.Quantity,
			"line %d: in=%d out=%d qty=%d", l.ID, l.QuantityCheckedIn, l.QuantityCheckedOut, l.Quantity)
	}
}

func TestCheckOutCheckInRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 3)
	lineID := order.Lines[0].ID

	out, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOut, out.Status)
	assert.NotNil(t, out.OutDate)
	assert.Equal(t, 3, out.Lines[0].QuantityCheckedOut)
	require.NotNil(t, out.Lines[0].CheckedOutBy)
	assert.Equal(t, user.ID, *out.Lines[0].CheckedOutBy)
	assert.NotNil(t, out.Lines[0].CheckedOutAt)

	back, err := CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReturned, back.Status)
	assert.NotNil(t, back.ActualReturnDate)
	assert.Equal(t, 3, back.Lines[0].QuantityCheckedIn)
	assertLineInvariant(t, back)
}

func TestCheckInTwoLines(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 2, 1)
	a, b := order.Lines[0].ID, order.Lines[1].ID

	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: a, Quantity: 2}, {LineID: b, Quantity: 1}})
	require.NoError(t, err)

	// First line fully back, second still out.
	got, err := CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: a, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartialReturn, got.Status)
	assert.Nil(t, got.ActualReturnDate)

	got, err = CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: b, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReturned, got.Status)
	assert.NotNil(t, got.ActualReturnDate)
	assertLineInvariant(t, got)
}

func TestCheckInZeroQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 4)
	lineID := order.Lines[0].ID

	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 4}})
	require.NoError(t, err)

	got, err := CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 0}})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Lines[0].QuantityCheckedOut)
	assert.Zero(t, got.Lines[0].QuantityCheckedIn)
	assert.Nil(t, got.Lines[0].CheckedInAt)
	assert.Equal(t, model.OrderStatusPartialReturn, got.Status)
}

func TestCheckOutIsAllOrNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 2, 1)
	a, b := order.Lines[0].ID, order.Lines[1].ID

	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: a, Quantity: 1}, {LineID: b, Quantity: 2}})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	got, err := GetOrder(ctx, database, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDraft, got.Status)
	assert.Zero(t, got.Lines[0].QuantityCheckedOut)
	assert.Zero(t, got.Lines[1].QuantityCheckedOut)
}

func TestCheckOutRejects(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 2)
	other, err := CreateOrder(ctx, database, model.NewOrder{CustomerName: "Other", Lines: []model.NewLine{{CustomItemName: "Stage"}}}, user.ID)
	require.NoError(t, err)

	_, err = CheckOut(ctx, database, 999, user.ID, []model.LineQuantity{{LineID: 1, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: other.Lines[0].ID, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "line of another order")

	_, err = CheckOut(ctx, database, order.ID, user.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: order.Lines[0].ID, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "check-in before checkout")
}

func TestCheckInOverrun(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 3)
	lineID := order.Lines[0].ID

	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 2}})
	require.NoError(t, err)

	_, err = CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 3}})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	got, err := GetOrder(ctx, database, order.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Lines[0].QuantityCheckedIn)
	assert.Equal(t, model.OrderStatusOut, got.Status)
}

// newFileDB opens a database file with the default connection pool, so
// concurrent transactions hold separate connections.
func newFileDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "izposoja.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.EnsureSchema(database))
	return database
}

func TestConcurrentCheckOut(t *testing.T) {
	database := newFileDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 3)
	lineID := order.Lines[0].ID

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 1}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 5, conflicts)

	got, err := GetOrder(ctx, database, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Lines[0].QuantityCheckedOut)
	assertLineInvariant(t, got)
}

func TestCompleteAfterReturn(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 1)
	lineID := order.Lines[0].ID

	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 1}})
	require.NoError(t, err)
	_, err = CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 1}})
	require.NoError(t, err)

	got, err := UpdateOrder(ctx, database, order.ID, model.OrderUpdate{Status: ptr(model.OrderStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, got.Status)

	_, err = CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = AddLine(ctx, database, order.ID, model.NewLine{CustomItemName: "Extra"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestOverflowingQuantitiesRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 3)
	lineID := order.Lines[0].ID
	huge := []model.LineQuantity{{LineID: lineID, Quantity: math.MaxInt}, {LineID: lineID, Quantity: math.MaxInt}}

	_, err := CheckOut(ctx, database, order.ID, user.ID, huge)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "checkout: %v", err)

	_, err = CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 3}})
	require.NoError(t, err)
	_, err = CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 3}})
	require.NoError(t, err)

	_, err = CheckIn(ctx, database, order.ID, user.ID, huge)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "checkin: %v", err)

	got, err := GetOrder(ctx, database, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReturned, got.Status)
	assert.Equal(t, 3, got.Lines[0].QuantityCheckedOut)
	assert.Equal(t, 3, got.Lines[0].QuantityCheckedIn)
	assert.NotNil(t, got.ActualReturnDate)
	assertLineInvariant(t, got)
}

func TestCheckOutAfterReturnClearsReturnDate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, order := seedOrder(t, database, 1)
	lineID := order.Lines[0].ID

	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 1}})
	require.NoError(t, err)
	back, err := CheckIn(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: lineID, Quantity: 1}})
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusReturned, back.Status)
	require.NotNil(t, back.ActualReturnDate)

	extra, err := AddLine(ctx, database, order.ID, model.NewLine{CustomItemName: "Heater", Quantity: 2})
	require.NoError(t, err)

	out, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: extra.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOut, out.Status)
	assert.Nil(t, out.ActualReturnDate)
	assertLineInvariant(t, out)
}
