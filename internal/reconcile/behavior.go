package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/shopstack/shopsync/internal/api"
	"github.com/shopstack/shopsync/internal/envelope"
	"github.com/shopstack/shopsync/internal/events"
	"github.com/shopstack/shopsync/internal/models"
)

// BehaviorAPI is the slice of the API client the behavior coordinator needs.
type BehaviorAPI interface {
	AddBehavior(ctx context.Context, rec models.BehaviorRecord) error
	GetBehaviors(ctx context.Context) ([]byte, error)
	UpdateBehavior(ctx context.Context, stableID string, rec models.BehaviorRecord) error
	DeleteBehavior(ctx context.Context, stableID string) error
}

// Behavior coordinates mutations of the user-behavior log. Unlike catalog
// items, behavior records have no natural business key: update and delete
// require the server-assigned stable id and fail fast without one, before
// any network round-trip, so an unrelated record is never corrupted.
type Behavior struct {
	api BehaviorAPI
	bus *events.Bus

	mu    sync.RWMutex
	items []models.BehaviorRecord
}

// NewBehavior creates a behavior-log coordinator publishing on bus.
func NewBehavior(api BehaviorAPI, bus *events.Bus) *Behavior {
	return &Behavior{api: api, bus: bus}
}

// Items returns a copy of the local behavior log.
func (b *Behavior) Items() []models.BehaviorRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.BehaviorRecord, len(b.items))
	copy(out, b.items)
	return out
}

// Create adds a behavior record remotely, then locally. On failure local
// state is untouched.
func (b *Behavior) Create(ctx context.Context, rec models.BehaviorRecord) error {
	if err := b.api.AddBehavior(ctx, rec); err != nil {
		b.publishMutation("create", rec.StableID, false, err)
		return err
	}

	b.mu.Lock()
	b.items = append(b.items, rec)
	b.mu.Unlock()

	b.publishMutation("create", rec.StableID, false, nil)
	return nil
}

// Update applies the optimistic policy keyed on the stable id. A record
// without one returns ErrMissingIdentity with no network call and no local
// change.
func (b *Behavior) Update(ctx context.Context, stableID string, rec models.BehaviorRecord) error {
	if stableID == "" {
		return api.ErrMissingIdentity
	}

	err := b.api.UpdateBehavior(ctx, stableID, rec)

	b.mu.Lock()
	for i := range b.items {
		if b.items[i].StableID == stableID {
			rec.StableID = b.items[i].StableID // server id preserved
			rec.Unsynced = err != nil
			b.items[i] = rec
			break
		}
	}
	b.mu.Unlock()

	b.publishMutation("update", stableID, err != nil, err)
	return err
}

// Delete removes a record by stable id, optimistically.
func (b *Behavior) Delete(ctx context.Context, stableID string) error {
	if stableID == "" {
		return api.ErrMissingIdentity
	}

	err := b.api.DeleteBehavior(ctx, stableID)

	b.mu.Lock()
	for i := range b.items {
		if b.items[i].StableID == stableID {
			b.items = append(b.items[:i], b.items[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	b.publishMutation("delete", stableID, err != nil, err)
	return err
}

// Refresh replaces the local behavior log wholesale from the server.
func (b *Behavior) Refresh(ctx context.Context) error {
	raw, err := b.api.GetBehaviors(ctx)
	if err != nil {
		return err
	}

	items, err := envelope.Behaviors(raw)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.items = items
	b.mu.Unlock()

	if b.bus != nil {
		b.bus.Publish(&events.RefreshEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventRefresh, Time: time.Now()},
			Entity:    "behavior",
			Count:     len(items),
		})
	}
	return nil
}

func (b *Behavior) publishMutation(op, key string, diverged bool, err error) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(&events.MutationEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventMutation, Time: time.Now()},
		Entity:    "behavior",
		Op:        op,
		Key:       key,
		Diverged:  diverged,
		Err:       err,
	})
}
