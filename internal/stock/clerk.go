package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

// API is the part of the server API the clerk needs. *client.Client
// implements it.
type API interface {
	CatalogSource
	ReplaceItems(ctx context.Context, items []model.Item, expected *int64) (int64, error)
	RecordGoodsOut(ctx context.Context, receiver string, lines []model.StockLine) (*model.GoodsOutRecord, int64, error)
}

// DefaultAttempts bounds how often a catalog write is retried after a
// conflicting concurrent write.
const DefaultAttempts = 3

// Clerk runs the stock workflows against the server through a catalog cache.
type Clerk struct {
	api      API
	cache    *Cache
	attempts int
	now      func() time.Time
}

// NewClerk creates a clerk whose cached catalog is refreshed after maxAge.
func NewClerk(api API, maxAge time.Duration) *Clerk {
	return &Clerk{
		api:      api,
		cache:    NewCache(api, maxAge),
		attempts: DefaultAttempts,
		now:      time.Now,
	}
}

// Catalog returns the cached catalog.
func (c *Clerk) Catalog(ctx context.Context) ([]model.Item, error) {
	items, _, err := c.cache.Get(ctx)
	return items, err
}

// GoodsIn adds the basket to stock by pushing the updated catalog. The basket
// is cleared on success.
func (c *Clerk) GoodsIn(ctx context.Context, b *GoodsInBasket) (int64, error) {
	if b.Len() == 0 {
		return 0, fmt.Errorf("%w: basket is empty", model.ErrInvalidInput)
	}
	lines := b.Lines()
	version, err := c.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		return ApplyGoodsIn(items, lines)
	})
	if err != nil {
		return 0, err
	}
	b.Clear()
	return version, nil
}

// GoodsOut issues the basket to receiver. The basket is checked against the
// catalog before anything is sent; the server then decrements stock and
// records the ledger entry together. The basket is cleared on success.
func (c *Clerk) GoodsOut(ctx context.Context, receiver string, b *GoodsOutBasket) (*model.GoodsOutRecord, error) {
	receiver = strings.TrimSpace(receiver)
	if receiver == "" {
		return nil, fmt.Errorf("%w: receiver required", model.ErrInvalidInput)
	}

	items, _, err := c.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(items); err != nil {
		return nil, err
	}

	rec, _, err := c.api.RecordGoodsOut(ctx, receiver, b.Lines())
	c.cache.Invalidate()
	if err != nil {
		return nil, err
	}
	b.Clear()
	return rec, nil
}

// CreateItem adds a new item with a generated id.
func (c *Clerk) CreateItem(ctx context.Context, name string, minStock, stock int, imageURL string) (model.Item, error) {
	var created model.Item
	_, err := c.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		item, err := model.NewItem(NextItemID(items, c.now()), name, minStock, stock, imageURL)
		if err != nil {
			return nil, err
		}
		created = item
		return AddItem(items, item)
	})
	if err != nil {
		return model.Item{}, err
	}
	return created, nil
}

// DeleteItem removes an item that has no stock left.
func (c *Clerk) DeleteItem(ctx context.Context, id int64) error {
	_, err := c.mutate(ctx, func(items []model.Item) ([]model.Item, error) {
		return RemoveItem(items, id)
	})
	return err
}

// mutate applies fn to the current catalog and writes the result back,
// conditional on the version that was read. On a conflict it rereads and
// tries again.
func (c *Clerk) mutate(ctx context.Context, fn func([]model.Item) ([]model.Item, error)) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		items, version, err := c.cache.Get(ctx)
		if err != nil {
			return 0, err
		}
		next, err := fn(items)
		if err != nil {
			return 0, err
		}

		newVersion, err := c.api.ReplaceItems(ctx, next, &version)
		c.cache.Invalidate()
		if err == nil {
			return newVersion, nil
		}
		if !errors.Is(err, model.ErrConflict) {
			return 0, err
		}
		slog.Debug("catalog changed concurrently, retrying", "attempt", attempt, "version", version)
		lastErr = err
	}
	return 0, fmt.Errorf("giving up after %d attempts: %w", c.attempts, lastErr)
}
