package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopstack/shopsync/internal/api"
	"github.com/shopstack/shopsync/internal/models"
)

// fakeBehaviorAPI counts calls and fails on command.
type fakeBehaviorAPI struct {
	failWith error
	listBody []byte
	calls    int
}

func (f *fakeBehaviorAPI) AddBehavior(ctx context.Context, rec models.BehaviorRecord) error {
	f.calls++
	return f.failWith
}

func (f *fakeBehaviorAPI) GetBehaviors(ctx context.Context) ([]byte, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.listBody, nil
}

func (f *fakeBehaviorAPI) UpdateBehavior(ctx context.Context, stableID string, rec models.BehaviorRecord) error {
	f.calls++
	return f.failWith
}

func (f *fakeBehaviorAPI) DeleteBehavior(ctx context.Context, stableID string) error {
	f.calls++
	return f.failWith
}

func seededBehavior(api BehaviorAPI) *Behavior {
	b := NewBehavior(api, nil)
	b.items = []models.BehaviorRecord{
		{StableID: "aaa111", UserID: "U1", ProductID: "P1", Action: "view"},
		{StableID: "bbb222", UserID: "U2", ProductID: "P2", Action: "purchase"},
	}
	return b
}

func TestBehaviorUpdate_MissingIdentityNeverReachesNetwork(t *testing.T) {
	fake := &fakeBehaviorAPI{}
	b := seededBehavior(fake)

	err := b.Update(context.Background(), "", models.BehaviorRecord{Action: "purchase"})
	if !errors.Is(err, api.ErrMissingIdentity) {
		t.Fatalf("Expected ErrMissingIdentity, got %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("Missing-identity update must make zero network calls, made %d", fake.calls)
	}

	// And no local mutation either.
	items := b.Items()
	if items[0].Action != "view" || items[1].Action != "purchase" {
		t.Errorf("Local rows must stay untouched, got %v", items)
	}
}

func TestBehaviorDelete_MissingIdentityNeverReachesNetwork(t *testing.T) {
	fake := &fakeBehaviorAPI{}
	b := seededBehavior(fake)

	err := b.Delete(context.Background(), "")
	if !errors.Is(err, api.ErrMissingIdentity) {
		t.Fatalf("Expected ErrMissingIdentity, got %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("Missing-identity delete must make zero network calls, made %d", fake.calls)
	}
	if len(b.Items()) != 2 {
		t.Error("Local rows must stay untouched")
	}
}

func TestBehaviorUpdate_FailureStillAppliesLocally(t *testing.T) {
	fake := &fakeBehaviorAPI{failWith: errors.New("500")}
	b := seededBehavior(fake)

	err := b.Update(context.Background(), "aaa111", models.BehaviorRecord{
		UserID: "U1", ProductID: "P1", Action: "add_to_cart",
	})
	if err == nil {
		t.Fatal("Expected the remote error to propagate")
	}

	items := b.Items()
	if items[0].Action != "add_to_cart" {
		t.Errorf("Row must reflect the caller's fields after a failed update, got %+v", items[0])
	}
	if !items[0].Unsynced {
		t.Error("Row must be marked Unsynced after a failed optimistic update")
	}
	if items[0].StableID != "aaa111" {
		t.Errorf("Stable id must be preserved, got %s", items[0].StableID)
	}
}

func TestBehaviorDelete_OptimisticRemoval(t *testing.T) {
	fake := &fakeBehaviorAPI{failWith: errors.New("timeout")}
	b := seededBehavior(fake)

	err := b.Delete(context.Background(), "bbb222")
	if err == nil {
		t.Fatal("Expected the remote error to propagate")
	}

	items := b.Items()
	if len(items) != 1 || items[0].StableID != "aaa111" {
		t.Errorf("Row must be removed locally even on remote failure, got %v", items)
	}
}

func TestBehaviorCreate_FailureLeavesLocalUntouched(t *testing.T) {
	fake := &fakeBehaviorAPI{failWith: errors.New("boom")}
	b := NewBehavior(fake, nil)

	if err := b.Create(context.Background(), models.BehaviorRecord{UserID: "U1"}); err == nil {
		t.Fatal("Expected error")
	}
	if len(b.Items()) != 0 {
		t.Error("A failed create must not touch local state")
	}
}

func TestBehaviorRefresh_ReplacesWholesale(t *testing.T) {
	fake := &fakeBehaviorAPI{
		listBody: []byte(`{"behaviors":[{"_id":"ccc333","user_id":"U3","product_id":"P3","action":"view","timestamp":"2024-05-01 10:00:00"}]}`),
	}
	b := seededBehavior(fake)

	if err := b.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	items := b.Items()
	if len(items) != 1 || items[0].StableID != "ccc333" {
		t.Errorf("Expected the server's list after refresh, got %v", items)
	}
}
