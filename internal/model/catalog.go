package model

import (
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/apperr"
)

// CatalogItem is a predefined hire item that order lines can reference.
type CatalogItem struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// NewCatalogItem holds the fields for creating a catalog item.
type NewCatalogItem struct {
	Name        string
	Category    string
	Description string
	ImageURL    string
}

func (n NewCatalogItem) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return apperr.Validation("name required")
	}
	return nil
}

// CatalogItemUpdate is a partial update of a catalog item.
type CatalogItemUpdate struct {
	Name        *string
	Category    *string
	Description *string
	ImageURL    *string
	IsActive    *bool
}

func (u CatalogItemUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return apperr.Validation("name cannot be empty")
	}
	return nil
}
