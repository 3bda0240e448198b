package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// GoodsOutLine is one (item, quantity) line of a goods-out record. Name is a
// snapshot taken when the record was written.
type GoodsOutLine struct {
	ItemID   int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"qty"`
}

// GoodsOutRecord is an immutable ledger entry.
type GoodsOutRecord struct {
	ID       int64          `json:"id"`
	Date     time.Time      `json:"date"`
	Receiver string         `json:"receiver"`
	Items    []GoodsOutLine `json:"items"`
}

// Validate checks a single line.
func (l GoodsOutLine) Validate() error {
	if l.ItemID <= 0 {
		return fmt.Errorf("%w: line item id must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: line for item %d: name required", ErrInvalidInput, l.ItemID)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: line for item %d: quantity must be positive", ErrInvalidInput, l.ItemID)
	}
	return nil
}

// NewGoodsOut builds an unsaved record from a receiver and lines. The lines
// are copied so later changes by the caller do not leak into the record.
func NewGoodsOut(receiver string, lines []GoodsOutLine) (GoodsOutRecord, error) {
	receiver = strings.TrimSpace(receiver)
	if receiver == "" {
		return GoodsOutRecord{}, fmt.Errorf("%w: receiver required", ErrInvalidInput)
	}
	if len(lines) == 0 {
		return GoodsOutRecord{}, fmt.Errorf("%w: at least one line required", ErrInvalidInput)
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return GoodsOutRecord{}, err
		}
	}
	return GoodsOutRecord{
		Receiver: receiver,
		Items:    append([]GoodsOutLine(nil), lines...),
	}, nil
}

// MaxQuantity is the largest quantity a single stock movement may carry, after
// lines for the same item are merged.
const MaxQuantity = 1_000_000_000

// StockLine is a quantity of one item moved into or out of stock.
type StockLine struct {
	ItemID   int64 `json:"id"`
	Quantity int   `json:"qty"`
}

// Validate checks a single stock movement.
func (l StockLine) Validate() error {
	if l.ItemID <= 0 {
		return fmt.Errorf("%w: item id must be positive", ErrInvalidInput)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalidInput, l.ItemID)
	}
	if l.Quantity > MaxQuantity {
		return fmt.Errorf("%w: item %d: quantity exceeds %d", ErrInvalidInput, l.ItemID, MaxQuantity)
	}
	return nil
}

// AddStock returns stock increased by qty, or ErrInvalidInput when the sum
// does not fit in an int.
func AddStock(stock, qty int) (int, error) {
	if qty > 0 && stock > math.MaxInt-qty {
		return 0, fmt.Errorf("%w: stock %d cannot grow by %d", ErrInvalidInput, stock, qty)
	}
	return stock + qty, nil
}

// MergeStockLines sums quantities of lines that reference the same item,
// keeping the order of first appearance.
func MergeStockLines(lines []StockLine) []StockLine {
	merged := make([]StockLine, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ItemID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ItemID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
