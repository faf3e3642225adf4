package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestCreateOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "staff@example.com", "", "Staff", "hash", model.RoleStaff)
	require.NoError(t, err)
	item, err := CreateCatalogItem(ctx, database, model.NewCatalogItem{Name: "Tent 6x3"})
	require.NoError(t, err)

	order, err := CreateOrder(ctx, database, model.NewOrder{
		CustomerName:       "Poroka Kranjc",
		CustomerEmail:      "kranjc@example.com",
		EventDate:          "2026-11-07",
		ExpectedReturnDate: "2026-11-09",
		Lines: []model.NewLine{
			{CatalogItemID: &item.ID, Quantity: 2},
			{CustomItemName: "Fairy lights"},
		},
	}, user.ID)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusDraft, order.Status)
	assert.Equal(t, "2026-11-09", order.ExpectedReturnDate)
	require.NotNil(t, order.CreatedBy)
	assert.Equal(t, user.ID, *order.CreatedBy)
	assert.Nil(t, order.OutDate)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, 2, order.ItemCount)
	assert.Equal(t, "Tent 6x3", order.Lines[0].Name)
	assert.Equal(t, "Fairy lights", order.Lines[1].Name)
	assert.Equal(t, 1, order.Lines[1].Quantity, "quantity defaults to 1")
}

func TestCreateOrderRejects(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		order model.NewOrder
		kind  apperr.Kind
	}{
		{"no customer", model.NewOrder{}, apperr.KindValidation},
		{"bad date", model.NewOrder{CustomerName: "A", EventDate: "07.11.2026"}, apperr.KindValidation},
		{"line with both refs", model.NewOrder{CustomerName: "A", Lines: []model.NewLine{{CatalogItemID: ptr(int64(1)), CustomItemName: "x"}}}, apperr.KindValidation},
		{"missing catalog item", model.NewOrder{CustomerName: "A", Lines: []model.NewLine{{CatalogItemID: ptr(int64(42))}}}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateOrder(ctx, database, tt.order, 0)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	orders, err := ListOrders(ctx, database, FilterAll)
	require.NoError(t, err)
	assert.Empty(t, orders, "failed creates leave nothing behind")
}

func TestListOrdersFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	draft, err := CreateOrder(ctx, database, model.NewOrder{CustomerName: "Draft", Lines: []model.NewLine{{CustomItemName: "Chair"}}}, 0)
	require.NoError(t, err)
	done, err := CreateOrder(ctx, database, model.NewOrder{CustomerName: "Done"}, 0)
	require.NoError(t, err)
	_, err = database.Exec(`UPDATE orders SET status = 'completed' WHERE id = ?`, done.ID)
	require.NoError(t, err)

	all, err := ListOrders(ctx, database, FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := ListOrders(ctx, database, FilterActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, draft.ID, active[0].ID)
	assert.Equal(t, 1, active[0].ItemCount)

	completed, err := ListOrders(ctx, database, model.OrderStatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)

	_, err = ListOrders(ctx, database, "lost")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	order, err := CreateOrder(ctx, database, model.NewOrder{CustomerName: "Ana", Lines: []model.NewLine{{CustomItemName: "Chair", Quantity: 2}}}, 0)
	require.NoError(t, err)

	got, err := UpdateOrder(ctx, database, order.ID, model.OrderUpdate{
		Notes:  ptr("ring the bell"),
		Status: ptr(model.OrderStatusConfirmed),
	})
	require.NoError(t, err)
	assert.Equal(t, "ring the bell", got.Notes)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)

	_, err = UpdateOrder(ctx, database, order.ID, model.OrderUpdate{Status: ptr(model.OrderStatusReturned)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = UpdateOrder(ctx, database, 999, model.OrderUpdate{Notes: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteOrderCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	order, err := CreateOrder(ctx, database, model.NewOrder{
		CustomerName: "Ana",
		Lines:        []model.NewLine{{CustomItemName: "Chair"}, {CustomItemName: "Table"}},
	}, 0)
	require.NoError(t, err)

	require.NoError(t, DeleteOrder(ctx, database, order.ID))

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM order_lines WHERE order_id = ?`, order.ID).Scan(&n))
	assert.Zero(t, n)

	got, err := GetOrder(ctx, database, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, apperr.Is(DeleteOrder(ctx, database, order.ID), apperr.KindNotFound))
}

func TestAddAndUpdateLine(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	order, err := CreateOrder(ctx, database, model.NewOrder{CustomerName: "Ana"}, 0)
	require.NoError(t, err)

	line, err := AddLine(ctx, database, order.ID, model.NewLine{CustomItemName: "Heater"})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "Heater", line.Name)

	_, err = AddLine(ctx, database, 999, model.NewLine{CustomItemName: "Heater"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	line, err = UpdateLine(ctx, database, order.ID, line.ID, model.LineUpdate{Quantity: ptr(4), CustomItemName: ptr("Patio heater")})
	require.NoError(t, err)
	assert.Equal(t, 4, line.Quantity)
	assert.Equal(t, "Patio heater", line.Name)

	_, err = UpdateLine(ctx, database, order.ID+1, line.ID, model.LineUpdate{Quantity: ptr(2)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateLineQuantityBelowCheckedOut(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, order := seedOrder(t, database, 3)
	_, err := CheckOut(ctx, database, order.ID, user.ID, []model.LineQuantity{{LineID: order.Lines[0].ID, Quantity: 2}})
	require.NoError(t, err)

	_, err = UpdateLine(ctx, database, order.ID, order.Lines[0].ID, model.LineUpdate{Quantity: ptr(1)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	line, err := UpdateLine(ctx, database, order.ID, order.Lines[0].ID, model.LineUpdate{Quantity: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
}
