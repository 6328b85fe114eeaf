// Package reconcile applies create/update/delete operations against the
// remote CRUD endpoints with an optimistic local-state policy. The server is
// authoritative; the local lists are a best-effort cache healed by Refresh.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/shopstack/shopsync/internal/envelope"
	"github.com/shopstack/shopsync/internal/events"
	"github.com/shopstack/shopsync/internal/models"
)

// CatalogAPI is the slice of the API client the catalog coordinator needs.
type CatalogAPI interface {
	AddProduct(ctx context.Context, item models.CatalogItem) error
	GetProducts(ctx context.Context) ([]byte, error)
	UpdateProduct(ctx context.Context, productID string, item models.CatalogItem) error
	DeleteProduct(ctx context.Context, productID string) error
}

// Catalog coordinates mutations of the product catalog. Update and delete
// are optimistic: the local row changes even when the remote call fails,
// with the row marked Unsynced so the divergence is visible until the next
// refresh. Create is not optimistic; a failed create leaves local state
// untouched so the caller's form input stays live for retry.
type Catalog struct {
	api CatalogAPI
	bus *events.Bus

	mu    sync.RWMutex
	items []models.CatalogItem
}

// NewCatalog creates a catalog coordinator publishing on bus.
func NewCatalog(api CatalogAPI, bus *events.Bus) *Catalog {
	return &Catalog{api: api, bus: bus}
}

// Items returns a copy of the local catalog.
func (c *Catalog) Items() []models.CatalogItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// Create adds a catalog item remotely, then locally. On failure local state
// is untouched and the error propagates.
func (c *Catalog) Create(ctx context.Context, item models.CatalogItem) error {
	if err := c.api.AddProduct(ctx, item); err != nil {
		c.publishMutation("create", item.ProductID, false, err)
		return err
	}

	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()

	c.publishMutation("create", item.ProductID, false, nil)
	return nil
}

// Update calls the remote endpoint, then applies the caller-supplied fields
// to the local row either way. On remote failure the row is marked Unsynced
// and the error is returned for the caller to surface; local and remote
// state diverge until the next Refresh.
func (c *Catalog) Update(ctx context.Context, productID string, item models.CatalogItem) error {
	err := c.api.UpdateProduct(ctx, productID, item)

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ProductID == productID {
			item.ProductID = c.items[i].ProductID // key is immutable
			item.Unsynced = err != nil
			c.items[i] = item
			break
		}
	}
	c.mu.Unlock()

	c.publishMutation("update", productID, err != nil, err)
	return err
}

// Delete calls the remote endpoint, then removes the local row either way.
func (c *Catalog) Delete(ctx context.Context, productID string) error {
	err := c.api.DeleteProduct(ctx, productID)

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.publishMutation("delete", productID, err != nil, err)
	return err
}

// Refresh replaces the local catalog wholesale from the server through the
// normalizer. It is the only operation that heals divergence introduced by
// a failed optimistic mutation.
func (c *Catalog) Refresh(ctx context.Context) error {
	raw, err := c.api.GetProducts(ctx)
	if err != nil {
		return err
	}

	items, err := envelope.Products(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(&events.RefreshEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventRefresh, Time: time.Now()},
			Entity:    "catalog",
			Count:     len(items),
		})
	}
	return nil
}

func (c *Catalog) publishMutation(op, key string, diverged bool, err error) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(&events.MutationEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventMutation, Time: time.Now()},
		Entity:    "catalog",
		Op:        op,
		Key:       key,
		Diverged:  diverged,
		Err:       err,
	})
}
