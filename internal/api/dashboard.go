package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/dashboard"
	"github.com/erazemk/izposoja/internal/store"
)

// DashboardHandler serves the landing page summary.
type DashboardHandler struct {
	DB  *sql.DB
	Now func() time.Time
}

// Get handles GET /api/dashboard. Any authenticated user may read it.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	orders, err := store.ListOrdersWithLines(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, dashboard.Compute(orders, h.Now(), dashboard.RecentActivityLimit))
}
