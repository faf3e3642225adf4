package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/policy"
	"github.com/erazemk/izposoja/internal/store"
)

// OrdersHandler handles orders, their lines, checkout and check-in.
type OrdersHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

type lineRequest struct {
	CatalogItemID  *int64 `json:"catalogItemId"`
	CustomItemName string `json:"customItemName"`
	Quantity       int    `json:"quantity" validate:"gte=0"`
	Notes          string `json:"notes"`
}

func (l lineRequest) toModel() model.NewLine {
	return model.NewLine{
		CatalogItemID:  l.CatalogItemID,
		CustomItemName: l.CustomItemName,
		Quantity:       l.Quantity,
		Notes:          l.Notes,
	}
}

type createOrderRequest struct {
	CustomerName       string        `json:"customerName" validate:"required"`
	CustomerPhone      string        `json:"customerPhone"`
	CustomerEmail      string        `json:"customerEmail" validate:"omitempty,email"`
	DeliveryAddress    string        `json:"deliveryAddress"`
	EventDate          string        `json:"eventDate"`
	ExpectedReturnDate string        `json:"expectedReturnDate"`
	Notes              string        `json:"notes"`
	Items              []lineRequest `json:"items" validate:"dive"`
}

type updateOrderRequest struct {
	CustomerName       *string `json:"customerName"`
	CustomerPhone      *string `json:"customerPhone"`
	CustomerEmail      *string `json:"customerEmail"`
	DeliveryAddress    *string `json:"deliveryAddress"`
	EventDate          *string `json:"eventDate"`
	ExpectedReturnDate *string `json:"expectedReturnDate"`
	Status             *string `json:"status"`
	Notes              *string `json:"notes"`
}

type updateLineRequest struct {
	CustomItemName *string `json:"customItemName"`
	Quantity       *int    `json:"quantity"`
	Notes          *string `json:"notes"`
}

// movementRequest is the checkout and check-in body. itemId is the order
// line ID.
type movementRequest struct {
	Items []struct {
		ItemID   int64 `json:"itemId" validate:"required"`
		Quantity int   `json:"quantity"`
	} `json:"items" validate:"required,min=1,dive"`
}

func (m movementRequest) toModel() []model.LineQuantity {
	reqs := make([]model.LineQuantity, len(m.Items))
	for i, it := range m.Items {
		reqs[i] = model.LineQuantity{LineID: it.ItemID, Quantity: it.Quantity}
	}
	return reqs
}

// List handles GET /api/orders. ?status= takes active (default), all or a
// single status.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(actor(r), policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	filter := r.URL.Query().Get("status")
	if filter == "" {
		filter = store.FilterActive
	}

	orders, err := store.ListOrders(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if err := policy.Authorize(a, policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	n := model.NewOrder{
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		CustomerEmail:      req.CustomerEmail,
		DeliveryAddress:    req.DeliveryAddress,
		EventDate:          req.EventDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
	}
	for _, l := range req.Items {
		n.Lines = append(n.Lines, l.toModel())
	}

	order, err := store.CreateOrder(r.Context(), h.DB, n, a.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order created", "by", a.UserID, "order_id", order.ID, "lines", len(order.Lines))
	jsonResponse(w, http.StatusCreated, order)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := policy.Authorize(actor(r), policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order == nil {
		writeError(w, r, apperr.NotFound("order not found"))
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Update handles PUT /api/orders/{id}. Completing an order needs the
// order.complete permission on top of order.manage.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status != nil && *req.Status == model.OrderStatusCompleted {
		if err := policy.Authorize(a, policy.CompleteOrder, policy.Target{}); err != nil {
			writeError(w, r, err)
			return
		}
	}

	order, err := store.UpdateOrder(r.Context(), h.DB, id, model.OrderUpdate{
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		CustomerEmail:      req.CustomerEmail,
		DeliveryAddress:    req.DeliveryAddress,
		EventDate:          req.EventDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Status:             req.Status,
		Notes:              req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.Status != nil {
		slog.Info("order status set", "by", a.UserID, "order_id", id, "status", order.Status)
	}
	jsonResponse(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id}.
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.DeleteOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteOrder(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("order deleted", "by", a.UserID, "order_id", id)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// AddLine handles POST /api/orders/{id}/items.
func (h *OrdersHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := policy.Authorize(actor(r), policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req lineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	line, err := store.AddLine(r.Context(), h.DB, id, req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, line)
}

// UpdateLine handles PUT /api/orders/{id}/items/{lineId}.
func (h *OrdersHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lineID, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := policy.Authorize(actor(r), policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req updateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	line, err := store.UpdateLine(r.Context(), h.DB, id, lineID, model.LineUpdate{
		CustomItemName: req.CustomItemName,
		Quantity:       req.Quantity,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, line)
}

// CheckOut handles POST /api/orders/{id}/checkout.
func (h *OrdersHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "checkout", store.CheckOut)
}

// CheckIn handles POST /api/orders/{id}/checkin.
func (h *OrdersHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "checkin", store.CheckIn)
}

type moveFunc func(ctx context.Context, db *sql.DB, orderID, actorID int64, reqs []model.LineQuantity) (*model.Order, error)

func (h *OrdersHandler) move(w http.ResponseWriter, r *http.Request, op string, fn moveFunc) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	a := actor(r)
	if err := policy.Authorize(a, policy.ManageOrder, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reqs := req.toModel()

	order, err := fn(r.Context(), h.DB, id, a.UserID, reqs)
	if err != nil {
		h.Metrics.ObserveLineOp(op, 0, "", err)
		writeError(w, r, err)
		return
	}

	units := 0
	for _, q := range reqs {
		units += q.Quantity
	}
	h.Metrics.ObserveLineOp(op, units, order.Status, nil)
	slog.Info("order "+op, "by", a.UserID, "order_id", id, "units", units, "status", order.Status)
	jsonResponse(w, http.StatusOK, order)
}
