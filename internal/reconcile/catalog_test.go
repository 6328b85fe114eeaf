package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopstack/shopsync/internal/models"
)

// fakeCatalogAPI counts calls and fails on command.
type fakeCatalogAPI struct {
	failWith error
	listBody []byte
	calls    int
}

func (f *fakeCatalogAPI) AddProduct(ctx context.Context, item models.CatalogItem) error {
	f.calls++
	return f.failWith
}

func (f *fakeCatalogAPI) GetProducts(ctx context.Context) ([]byte, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.listBody, nil
}

func (f *fakeCatalogAPI) UpdateProduct(ctx context.Context, productID string, item models.CatalogItem) error {
	f.calls++
	return f.failWith
}

func (f *fakeCatalogAPI) DeleteProduct(ctx context.Context, productID string) error {
	f.calls++
	return f.failWith
}

func seededCatalog(api CatalogAPI) *Catalog {
	c := NewCatalog(api, nil)
	c.items = []models.CatalogItem{
		{ProductID: "P1", Name: "Earbuds", Price: 59.99},
		{ProductID: "P2", Name: "Hub", Price: 39.99},
	}
	return c
}

func TestCatalogCreate_SuccessAppendsLocally(t *testing.T) {
	api := &fakeCatalogAPI{}
	c := NewCatalog(api, nil)

	err := c.Create(context.Background(), models.CatalogItem{ProductID: "P9", Name: "Mouse"})
	if err != nil {
		t.Fatal(err)
	}

	items := c.Items()
	if len(items) != 1 || items[0].ProductID != "P9" {
		t.Errorf("Expected the created item locally, got %v", items)
	}
}

func TestCatalogCreate_FailureLeavesLocalUntouched(t *testing.T) {
	api := &fakeCatalogAPI{failWith: errors.New("boom")}
	c := NewCatalog(api, nil)

	err := c.Create(context.Background(), models.CatalogItem{ProductID: "P9"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if len(c.Items()) != 0 {
		t.Error("A failed create must not touch local state")
	}
}

func TestCatalogUpdate_FailureStillAppliesLocally(t *testing.T) {
	api := &fakeCatalogAPI{failWith: errors.New("500")}
	c := seededCatalog(api)

	err := c.Update(context.Background(), "P1", models.CatalogItem{Name: "Earbuds Pro", Price: 79.99})
	if err == nil {
		t.Fatal("Expected the remote error to propagate")
	}

	items := c.Items()
	if items[0].Name != "Earbuds Pro" || items[0].Price != 79.99 {
		t.Errorf("Local row must reflect the caller's fields after a failed update, got %+v", items[0])
	}
	if !items[0].Unsynced {
		t.Error("Row must be marked Unsynced after a failed optimistic update")
	}
	if items[0].ProductID != "P1" {
		t.Errorf("Key must stay immutable, got %s", items[0].ProductID)
	}
}

func TestCatalogUpdate_SuccessClearsUnsynced(t *testing.T) {
	api := &fakeCatalogAPI{}
	c := seededCatalog(api)
	c.items[0].Unsynced = true

	if err := c.Update(context.Background(), "P1", models.CatalogItem{Name: "Earbuds v2"}); err != nil {
		t.Fatal(err)
	}

	items := c.Items()
	if items[0].Unsynced {
		t.Error("A successful update must not leave the row marked Unsynced")
	}
}

func TestCatalogDelete_FailureStillRemovesLocally(t *testing.T) {
	api := &fakeCatalogAPI{failWith: errors.New("500")}
	c := seededCatalog(api)

	err := c.Delete(context.Background(), "P1")
	if err == nil {
		t.Fatal("Expected the remote error to propagate")
	}

	items := c.Items()
	if len(items) != 1 || items[0].ProductID != "P2" {
		t.Errorf("Row must be removed locally even on remote failure, got %v", items)
	}
}

func TestCatalogRefresh_HealsDivergence(t *testing.T) {
	api := &fakeCatalogAPI{failWith: errors.New("500")}
	c := seededCatalog(api)

	_ = c.Update(context.Background(), "P1", models.CatalogItem{Name: "Diverged"})
	_ = c.Delete(context.Background(), "P2")

	// Server still has the originals.
	api.failWith = nil
	api.listBody = []byte(`{"products":[{"product_id":"P1","name":"Earbuds","price":59.99},{"product_id":"P2","name":"Hub","price":39.99}]}`)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("Expected the server's 2 rows after refresh, got %d", len(items))
	}
	if items[0].Name != "Earbuds" || items[0].Unsynced {
		t.Errorf("Refresh must replace diverged rows with server truth, got %+v", items[0])
	}
}

func TestCatalogRefresh_FailureKeepsLocal(t *testing.T) {
	api := &fakeCatalogAPI{failWith: errors.New("timeout")}
	c := seededCatalog(api)

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	if len(c.Items()) != 2 {
		t.Error("A failed refresh must keep the existing local list")
	}
}
