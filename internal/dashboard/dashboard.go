// Package dashboard computes the summary counts and activity feed from the
// current order state.
package dashboard

import (
	"sort"
	"time"

	"github.com/erazemk/izposoja/internal/lifecycle"
	"github.com/erazemk/izposoja/internal/model"
)

// RecentActivityLimit is how many events the feed shows.
const RecentActivityLimit = 10

// Compute builds the dashboard from orders with their lines loaded.
// Activity is reported per line event: a checkout touching three lines
// shows up as three entries.
func Compute(orders []model.Order, now time.Time, limit int) model.Dashboard {
	d := model.Dashboard{RecentActivity: []model.Activity{}}
	var events []model.Activity

	for i := range orders {
		o := &orders[i]
		if lifecycle.IsOut(o.Status) {
			for _, l := range o.Lines {
				d.ItemsOut += l.Outstanding()
			}
		}
		if lifecycle.IsOverdue(o, now) {
			d.OverdueOrders++
		}
		if lifecycle.IsActive(o.Status) {
			d.ActiveOrders++
		}

		for _, l := range o.Lines {
			if l.CheckedOutAt != nil {
				events = append(events, activity(o, l, model.ActivityCheckout, *l.CheckedOutAt))
			}
			if l.CheckedInAt != nil {
				events = append(events, activity(o, l, model.ActivityCheckin, *l.CheckedInAt))
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	d.RecentActivity = append(d.RecentActivity, events...)
	return d
}

func activity(o *model.Order, l model.OrderLine, kind string, at time.Time) model.Activity {
	return model.Activity{
		ID:        l.ID,
		OrderID:   o.ID,
		Type:      kind,
		OrderName: o.CustomerName,
		ItemCount: 1,
		Timestamp: at,
	}
}
