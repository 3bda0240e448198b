package stock

import (
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// Basket collects quantities per item. Adding an item that is already in the
// basket increases its quantity; lines keep the order items were first added.
type Basket struct {
	lines []model.StockLine
}

// Add adds qty of item id.
func (b *Basket) Add(id int64, qty int) error {
	line := model.StockLine{ItemID: id, Quantity: qty}
	if err := line.Validate(); err != nil {
		return err
	}
	for i := range b.lines {
		if b.lines[i].ItemID == id {
			merged := model.StockLine{ItemID: id, Quantity: b.lines[i].Quantity + qty}
			if err := merged.Validate(); err != nil {
				return err
			}
			b.lines[i] = merged
			return nil
		}
	}
	b.lines = append(b.lines, line)
	return nil
}

// Remove drops item id from the basket.
func (b *Basket) Remove(id int64) {
	for i := range b.lines {
		if b.lines[i].ItemID == id {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return
		}
	}
}

// Quantity returns how much of item id is in the basket.
func (b *Basket) Quantity(id int64) int {
	for _, l := range b.lines {
		if l.ItemID == id {
			return l.Quantity
		}
	}
	return 0
}

// Lines returns a copy of the basket contents.
func (b *Basket) Lines() []model.StockLine {
	return append([]model.StockLine(nil), b.lines...)
}

// Len returns the number of distinct items.
func (b *Basket) Len() int { return len(b.lines) }

// Clear empties the basket.
func (b *Basket) Clear() { b.lines = nil }

// GoodsInBasket collects incoming stock.
type GoodsInBasket struct {
	Basket
}

// GoodsOutBasket collects outgoing stock. Quantities are checked against the
// catalog as they are added.
type GoodsOutBasket struct {
	Basket
}

// AddChecked adds qty of item id after checking that the catalog holds the
// basket's total for that item.
func (b *GoodsOutBasket) AddChecked(catalog []model.Item, id int64, qty int) error {
	if err := (model.StockLine{ItemID: id, Quantity: qty}).Validate(); err != nil {
		return err
	}
	item, ok := model.FindItem(catalog, id)
	if !ok {
		return fmt.Errorf("%w: item %d is not in the catalog", model.ErrInvalidInput, id)
	}
	if total := b.Quantity(id) + qty; total > item.Stock {
		return fmt.Errorf("%w: %s: have %d, need %d", model.ErrInsufficientStock, item.Name, item.Stock, total)
	}
	return b.Add(id, qty)
}

// Validate rechecks every line against catalog, which may be fresher than
// the one the lines were added against.
func (b *GoodsOutBasket) Validate(catalog []model.Item) error {
	if b.Len() == 0 {
		return fmt.Errorf("%w: basket is empty", model.ErrInvalidInput)
	}
	_, err := ApplyGoodsOut(catalog, b.lines)
	return err
}

// Snapshot returns the basket as ledger lines named from catalog.
func (b *GoodsOutBasket) Snapshot(catalog []model.Item) ([]model.GoodsOutLine, error) {
	out := make([]model.GoodsOutLine, 0, len(b.lines))
	for _, l := range b.lines {
		item, ok := model.FindItem(catalog, l.ItemID)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not in the catalog", model.ErrInvalidInput, l.ItemID)
		}
		out = append(out, model.GoodsOutLine{ItemID: l.ItemID, Name: item.Name, Quantity: l.Quantity})
	}
	return out, nil
}
