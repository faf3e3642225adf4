package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/model"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := now.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func TestComputeCounts(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1).Format(model.DateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(model.DateLayout)

	orders := []model.Order{
		{ID: 1, CustomerName: "Late", Status: model.OrderStatusOut, ExpectedReturnDate: yesterday,
			Lines: []model.OrderLine{{ID: 1, Quantity: 4, QuantityCheckedOut: 4}}},
		{ID: 2, CustomerName: "OnTime", Status: model.OrderStatusPartialReturn, ExpectedReturnDate: tomorrow,
			Lines: []model.OrderLine{{ID: 2, Quantity: 5, QuantityCheckedOut: 5, QuantityCheckedIn: 2}}},
		{ID: 3, CustomerName: "Draft", Status: model.OrderStatusDraft,
			Lines: []model.OrderLine{{ID: 3, Quantity: 9}}},
		{ID: 4, CustomerName: "Back", Status: model.OrderStatusReturned, ExpectedReturnDate: yesterday,
			Lines: []model.OrderLine{{ID: 4, Quantity: 2, QuantityCheckedOut: 2, QuantityCheckedIn: 2}}},
		{ID: 5, CustomerName: "Done", Status: model.OrderStatusCompleted},
	}

	d := Compute(orders, now, RecentActivityLimit)
	assert.Equal(t, 7, d.ItemsOut)
	assert.Equal(t, 1, d.OverdueOrders)
	assert.Equal(t, 3, d.ActiveOrders)
	assert.NotNil(t, d.RecentActivity)
	assert.Empty(t, d.RecentActivity)
}

func TestOverdueMovesWithReturnDate(t *testing.T) {
	order := model.Order{ID: 1, Status: model.OrderStatusOut,
		ExpectedReturnDate: now.AddDate(0, 0, -1).Format(model.DateLayout)}
	assert.Equal(t, 1, Compute([]model.Order{order}, now, 10).OverdueOrders)

	order.ExpectedReturnDate = now.AddDate(0, 0, 1).Format(model.DateLayout)
	assert.Equal(t, 0, Compute([]model.Order{order}, now, 10).OverdueOrders)
}

func TestRecentActivityOrderAndLimit(t *testing.T) {
	orders := []model.Order{
		{ID: 1, CustomerName: "Kovač", Status: model.OrderStatusPartialReturn, Lines: []model.OrderLine{
			{ID: 1, Quantity: 1, QuantityCheckedOut: 1, QuantityCheckedIn: 1, CheckedOutAt: at(1), CheckedInAt: at(5)},
			{ID: 2, Quantity: 1, QuantityCheckedOut: 1, CheckedOutAt: at(1)},
		}},
		{ID: 2, CustomerName: "Horvat", Status: model.OrderStatusOut, Lines: []model.OrderLine{
			{ID: 3, Quantity: 1, QuantityCheckedOut: 1, CheckedOutAt: at(3)},
		}},
	}

	d := Compute(orders, now, 3)
	require.Len(t, d.RecentActivity, 3)

	first := d.RecentActivity[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, model.ActivityCheckin, first.Type)
	assert.Equal(t, "Kovač", first.OrderName)
	assert.Equal(t, 1, first.ItemCount)

	assert.Equal(t, int64(3), d.RecentActivity[1].ID)
	assert.Equal(t, "Horvat", d.RecentActivity[1].OrderName)

	// Lines 1 and 2 were checked out at the same instant; input order wins.
	assert.Equal(t, int64(1), d.RecentActivity[2].ID)
	assert.Equal(t, model.ActivityCheckout, d.RecentActivity[2].Type)
}
