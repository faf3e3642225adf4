// Package lifecycle holds the order state machine: request bounds checks for
// checkout and check-in, status reconciliation from line quantities, direct
// status edits and overdue detection. It does no I/O; the store applies the
// decisions made here inside a transaction.
package lifecycle

import (
	"math"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/model"
)

// PlanCheckOut validates a checkout request against the order's current lines
// and returns the per-line increments to apply, with repeated line IDs merged.
func PlanCheckOut(order *model.Order, lines []model.OrderLine, reqs []model.LineQuantity) ([]model.LineQuantity, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("no items to check out")
	}
	if order.Status == model.OrderStatusCompleted {
		return nil, apperr.Validation("order is completed")
	}
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive")
		}
	}

	plan, err := merge(order.ID, lines, reqs)
	if err != nil {
		return nil, err
	}

	byID := index(lines)
	for _, p := range plan {
		l := byID[p.LineID]
		if p.Quantity > l.RemainingToCheckOut() {
			return nil, apperr.Conflict("line %d: cannot check out %d, only %d remaining", l.ID, p.Quantity, l.RemainingToCheckOut())
		}
	}
	return plan, nil
}

// PlanCheckIn validates a check-in request. A zero quantity is accepted and
// still counts as touching the line during reconciliation.
func PlanCheckIn(order *model.Order, lines []model.OrderLine, reqs []model.LineQuantity) ([]model.LineQuantity, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("no items to check in")
	}
	switch order.Status {
	case model.OrderStatusDraft, model.OrderStatusConfirmed:
		return nil, apperr.Validation("order has not been checked out")
	case model.OrderStatusCompleted:
		return nil, apperr.Validation("order is completed")
	}
	for _, r := range reqs {
		if r.Quantity < 0 {
			return nil, apperr.Validation("quantity cannot be negative")
		}
	}

	plan, err := merge(order.ID, lines, reqs)
	if err != nil {
		return nil, err
	}

	byID := index(lines)
	for _, p := range plan {
		l := byID[p.LineID]
		if p.Quantity > l.Outstanding() {
			return nil, apperr.Conflict("line %d: cannot check in %d, only %d out", l.ID, p.Quantity, l.Outstanding())
		}
	}
	return plan, nil
}

// merge sums quantities per line, keeping first-appearance order, and checks
// that every line belongs to the order. Quantities must be non-negative; a
// sum that would overflow int is a conflict, since no line can hold it.
func merge(orderID int64, lines []model.OrderLine, reqs []model.LineQuantity) ([]model.LineQuantity, error) {
	byID := index(lines)
	pos := make(map[int64]int, len(reqs))
	var plan []model.LineQuantity
	for _, r := range reqs {
		if _, ok := byID[r.LineID]; !ok {
			return nil, apperr.NotFound("line %d not found on order %d", r.LineID, orderID)
		}
		if i, ok := pos[r.LineID]; ok {
			if plan[i].Quantity > math.MaxInt-r.Quantity {
				return nil, apperr.Conflict("line %d: requested quantity too large", r.LineID)
			}
			plan[i].Quantity += r.Quantity
			continue
		}
		pos[r.LineID] = len(plan)
		plan = append(plan, r)
	}
	return plan, nil
}

func index(lines []model.OrderLine) map[int64]model.OrderLine {
	m := make(map[int64]model.OrderLine, len(lines))
	for _, l := range lines {
		m[l.ID] = l
	}
	return m
}

// Reconciliation is the outcome of recomputing an order's status.
type Reconciliation struct {
	Status      string
	AllReturned bool
	AnyPartial  bool
}

// Reconcile derives the order status after a check-in from all of the
// order's lines. touched is the number of lines named in the check-in call.
//
// Any call that touched a line moves the order to partial_return unless
// everything is back, even when the touched lines are fully returned or the
// call changed nothing.
func Reconcile(lines []model.OrderLine, touched int) Reconciliation {
	r := Reconciliation{AllReturned: true}
	for _, l := range lines {
		if l.QuantityCheckedIn < l.QuantityCheckedOut {
			r.AllReturned = false
		}
		if l.QuantityCheckedIn > 0 && l.QuantityCheckedIn < l.QuantityCheckedOut {
			r.AnyPartial = true
		}
	}

	switch {
	case r.AllReturned:
		r.Status = model.OrderStatusReturned
	case r.AnyPartial || touched > 0:
		r.Status = model.OrderStatusPartialReturn
	default:
		r.Status = model.OrderStatusOut
	}
	return r
}

// ValidateStatusEdit checks a direct status change made through an order
// update. Only draft/confirmed toggles and returned -> completed are allowed;
// the other statuses are derived by checkout and check-in.
func ValidateStatusEdit(current, next string, lines []model.OrderLine) error {
	if current == next {
		return nil
	}

	switch next {
	case model.OrderStatusDraft, model.OrderStatusConfirmed:
		if current != model.OrderStatusDraft && current != model.OrderStatusConfirmed {
			return apperr.Validation("cannot move a %s order back to %s", current, next)
		}
		for _, l := range lines {
			if l.QuantityCheckedOut > 0 {
				return apperr.Validation("order has checked out items")
			}
		}
		return nil
	case model.OrderStatusCompleted:
		if current != model.OrderStatusReturned {
			return apperr.Validation("only returned orders can be completed")
		}
		return nil
	}
	return apperr.Validation("status %s is set by checkout and check-in", next)
}

// Today returns the current UTC calendar date at midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsOut reports whether the order has items with the customer.
func IsOut(status string) bool {
	return status == model.OrderStatusOut || status == model.OrderStatusPartialReturn
}

// IsActive reports whether the order still needs attention.
func IsActive(status string) bool {
	return status != model.OrderStatusCompleted && status != model.OrderStatusReturned
}

// IsOverdue reports whether the order is out past its expected return date.
// Only the calendar date is compared.
func IsOverdue(o *model.Order, today time.Time) bool {
	if !IsOut(o.Status) || o.ExpectedReturnDate == "" {
		return false
	}
	due, err := time.Parse(model.DateLayout, o.ExpectedReturnDate)
	if err != nil {
		return false
	}
	return due.Before(Today(today))
}
