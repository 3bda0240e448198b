package stock

import (
	"fmt"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// ApplyGoodsIn returns a copy of catalog with lines added to stock.
func ApplyGoodsIn(catalog []model.Item, lines []model.StockLine) ([]model.Item, error) {
	return apply(catalog, lines, 1)
}

// ApplyGoodsOut returns a copy of catalog with lines taken from stock. Lines
// for the same item are checked as a total. No item may go below zero.
func ApplyGoodsOut(catalog []model.Item, lines []model.StockLine) ([]model.Item, error) {
	return apply(catalog, lines, -1)
}

func apply(catalog []model.Item, lines []model.StockLine, sign int) ([]model.Item, error) {
	next := append([]model.Item(nil), catalog...)
	index := make(map[int64]int, len(next))
	for i, item := range next {
		index[item.ID] = i
	}

	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	for _, l := range model.MergeStockLines(lines) {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		i, ok := index[l.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not in the catalog", model.ErrInvalidInput, l.ItemID)
		}
		if sign < 0 && next[i].Stock < l.Quantity {
			return nil, fmt.Errorf("%w: %s: have %d, need %d",
				model.ErrInsufficientStock, next[i].Name, next[i].Stock, l.Quantity)
		}
		if sign < 0 {
			next[i].Stock -= l.Quantity
			continue
		}
		stock, err := model.AddStock(next[i].Stock, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", next[i].Name, err)
		}
		next[i].Stock = stock
	}
	return next, nil
}

// AddItem returns a copy of catalog with item appended.
func AddItem(catalog []model.Item, item model.Item) ([]model.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if _, ok := model.FindItem(catalog, item.ID); ok {
		return nil, fmt.Errorf("%w: duplicate item id %d", model.ErrInvalidInput, item.ID)
	}
	return append(append([]model.Item(nil), catalog...), item), nil
}

// RemoveItem returns a copy of catalog without item id. Items that still
// hold stock cannot be removed.
func RemoveItem(catalog []model.Item, id int64) ([]model.Item, error) {
	next := make([]model.Item, 0, len(catalog))
	found := false
	for _, item := range catalog {
		if item.ID != id {
			next = append(next, item)
			continue
		}
		if item.Stock > 0 {
			return nil, fmt.Errorf("%w: %s still has %d in stock", model.ErrInvalidInput, item.Name, item.Stock)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return next, nil
}

// LowStock returns the items below their minimum stock.
func LowStock(catalog []model.Item) []model.Item {
	var low []model.Item
	for _, item := range catalog {
		if item.LowStock() {
			low = append(low, item)
		}
	}
	return low
}

// NextItemID picks an id for a new item: the current time in milliseconds,
// or one past the highest id if that is already taken or larger.
func NextItemID(catalog []model.Item, now time.Time) int64 {
	id := now.UnixMilli()
	for _, item := range catalog {
		if item.ID >= id {
			id = item.ID + 1
		}
	}
	return id
}
