package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/apperr"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/policy"
	"github.com/erazemk/izposoja/internal/store"
)

// ItemsHandler handles catalog item endpoints. Every role can read the
// catalog; managing it needs manager or above.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

type updateItemRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	IsActive    *bool   `json:"isActive"`
}

// List handles GET /api/items. ?available=true leaves out inactive items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	availableOnly := r.URL.Query().Get("available") == "true"

	items, err := store.ListCatalogItems(r.Context(), h.DB, availableOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(actor(r), policy.ManageCatalog, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.CreateCatalogItem(r.Context(), h.DB, model.NewCatalogItem{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("catalog item created", "by", actor(r).UserID, "item", item.Name)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetCatalogItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeError(w, r, apperr.NotFound("item not found"))
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := policy.Authorize(actor(r), policy.ManageCatalog, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.UpdateCatalogItem(r.Context(), h.DB, id, model.CatalogItemUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := policy.Authorize(actor(r), policy.ManageCatalog, policy.Target{}); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteCatalogItem(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("catalog item deleted", "by", actor(r).UserID, "item_id", id)
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// History handles GET /api/items/{id}/history: every order line that has
// used the item.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	lines, err := store.ListCatalogItemLines(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if lines == nil {
		lines = []model.OrderLine{}
	}
	jsonResponse(w, http.StatusOK, lines)
}
