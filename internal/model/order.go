package model

import (
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
)

// Order is a customer rental booking.
type Order struct {
	ID                 int64      `json:"id"`
	CustomerName       string     `json:"customerName"`
	CustomerPhone      string     `json:"customerPhone,omitempty"`
	CustomerEmail      string     `json:"customerEmail,omitempty"`
	DeliveryAddress    string     `json:"deliveryAddress,omitempty"`
	EventDate          string     `json:"eventDate,omitempty"`
	OutDate            *time.Time `json:"outDate,omitempty"`
	ExpectedReturnDate string     `json:"expectedReturnDate,omitempty"`
	ActualReturnDate   *time.Time `json:"actualReturnDate,omitempty"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	CreatedBy          *int64     `json:"createdBy,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	// Joined fields (not always populated).
	ItemCount int         `json:"itemCount"`
	Lines     []OrderLine `json:"items,omitempty"`
}

// Order statuses.
const (
	OrderStatusDraft         = "draft"
	OrderStatusConfirmed     = "confirmed"
	OrderStatusOut           = "out"
	OrderStatusPartialReturn = "partial_return"
	OrderStatusReturned      = "returned"
	OrderStatusCompleted     = "completed"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusOut,
		OrderStatusPartialReturn, OrderStatusReturned, OrderStatusCompleted:
		return true
	}
	return false
}

// OrderLine is a single catalog or custom item within an order.
// Invariant: 0 <= QuantityCheckedIn <= QuantityCheckedOut <= Quantity.
type OrderLine struct {
	ID                 int64      `json:"id"`
	OrderID            int64      `json:"orderId"`
	CatalogItemID      *int64     `json:"catalogItemId,omitempty"`
	CustomItemName     string     `json:"customItemName,omitempty"`
	Quantity           int        `json:"quantity"`
	QuantityCheckedOut int        `json:"quantityCheckedOut"`
	QuantityCheckedIn  int        `json:"quantityCheckedIn"`
	CheckedOutBy       *int64     `json:"checkedOutBy,omitempty"`
	CheckedOutAt       *time.Time `json:"checkedOutAt,omitempty"`
	CheckedInBy        *int64     `json:"checkedInBy,omitempty"`
	CheckedInAt        *time.Time `json:"checkedInAt,omitempty"`
	Notes              string     `json:"notes,omitempty"`

	// Name is the catalog item name, or the custom name for free-text lines.
	Name string `json:"name"`
}

// RemainingToCheckOut is how many units can still be handed out.
func (l OrderLine) RemainingToCheckOut() int {
	return l.Quantity - l.QuantityCheckedOut
}

// Outstanding is how many units are with the customer.
func (l OrderLine) Outstanding() int {
	return l.QuantityCheckedOut - l.QuantityCheckedIn
}

// LineQuantity targets a line in a checkout or check-in request.
type LineQuantity struct {
	LineID   int64
	Quantity int
}

// NewLine describes a line to add to an order.
type NewLine struct {
	CatalogItemID  *int64
	CustomItemName string
	Quantity       int
	Notes          string
}

// Validate checks that exactly one item reference is set and the quantity is positive.
func (n NewLine) Validate() error {
	hasCatalog := n.CatalogItemID != nil && *n.CatalogItemID > 0
	hasCustom := strings.TrimSpace(n.CustomItemName) != ""
	if hasCatalog == hasCustom {
		return apperr.Validation("exactly one of catalogItemId or customItemName is required")
	}
	if n.Quantity < 1 {
		return apperr.Validation("quantity must be at least 1")
	}
	return nil
}

// NewOrder holds the fields for creating an order, with optional initial lines.
type NewOrder struct {
	CustomerName       string
	CustomerPhone      string
	CustomerEmail      string
	DeliveryAddress    string
	EventDate          string
	ExpectedReturnDate string
	Notes              string
	Lines              []NewLine
}

// Validate checks the order fields and every initial line. Lines without a
// quantity default to 1.
func (n *NewOrder) Validate() error {
	if strings.TrimSpace(n.CustomerName) == "" {
		return apperr.Validation("customer name required")
	}
	if err := ValidateDate("eventDate", n.EventDate); err != nil {
		return err
	}
	if err := ValidateDate("expectedReturnDate", n.ExpectedReturnDate); err != nil {
		return err
	}
	for i := range n.Lines {
		if n.Lines[i].Quantity == 0 {
			n.Lines[i].Quantity = 1
		}
		if err := n.Lines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// OrderUpdate is a partial update of an order. Status edits are further
// restricted by the lifecycle rules.
type OrderUpdate struct {
	CustomerName       *string
	CustomerPhone      *string
	CustomerEmail      *string
	DeliveryAddress    *string
	EventDate          *string
	ExpectedReturnDate *string
	Status             *string
	Notes              *string
}

func (u OrderUpdate) Validate() error {
	if u.CustomerName != nil && strings.TrimSpace(*u.CustomerName) == "" {
		return apperr.Validation("customer name cannot be empty")
	}
	if u.EventDate != nil {
		if err := ValidateDate("eventDate", *u.EventDate); err != nil {
			return err
		}
	}
	if u.ExpectedReturnDate != nil {
		if err := ValidateDate("expectedReturnDate", *u.ExpectedReturnDate); err != nil {
			return err
		}
	}
	if u.Status != nil && !ValidOrderStatus(*u.Status) {
		return apperr.Validation("invalid status")
	}
	return nil
}

// LineUpdate is a direct edit of a line's descriptive fields or requested quantity.
type LineUpdate struct {
	CustomItemName *string
	Quantity       *int
	Notes          *string
}

func (u LineUpdate) Validate() error {
	if u.Quantity != nil && *u.Quantity < 1 {
		return apperr.Validation("quantity must be at least 1")
	}
	return nil
}

// Activity types.
const (
	ActivityCheckout = "checkout"
	ActivityCheckin  = "checkin"
)

// Activity is one checkout or check-in event on a line.
type Activity struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"orderId"`
	Type      string    `json:"type"`
	OrderName string    `json:"orderName"`
	ItemCount int       `json:"itemCount"`
	Timestamp time.Time `json:"timestamp"`
}

// Dashboard is the summary shown on the landing page.
type Dashboard struct {
	ItemsOut       int        `json:"itemsOut"`
	OverdueOrders  int        `json:"overdueOrders"`
	ActiveOrders   int        `json:"activeOrders"`
	RecentActivity []Activity `json:"recentActivity"`
}
