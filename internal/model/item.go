package model

import (
	"fmt"
	"strings"
)

// Item is one catalog entry. IDs are assigned by the caller.
type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MinStock int    `json:"minStock"`
	Stock    int    `json:"stock"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// NewItem builds a validated item.
func NewItem(id int64, name string, minStock, stock int, imageURL string) (Item, error) {
	item := Item{ID: id, Name: name, MinStock: minStock, Stock: stock, ImageURL: imageURL}
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Validate checks the required item fields.
func (i Item) Validate() error {
	if i.ID <= 0 {
		return fmt.Errorf("%w: item id must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item %d: name required", ErrInvalidInput, i.ID)
	}
	if i.MinStock < 0 {
		return fmt.Errorf("%w: item %d: minimum stock must not be negative", ErrInvalidInput, i.ID)
	}
	return nil
}

// LowStock reports whether the item is below its minimum stock threshold.
func (i Item) LowStock() bool {
	return i.Stock < i.MinStock
}

// ValidateCatalog checks every item and that ids are unique within the batch.
func ValidateCatalog(items []Item) error {
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate item id %d", ErrInvalidInput, item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

// FindItem returns the catalog entry with the given id.
func FindItem(items []Item, id int64) (Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}
