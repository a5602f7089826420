package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatherhub/gatherhub-backend/internal/types"
)

func seedGathering(id string, createdAt time.Time) *types.Gathering {
	return &types.Gathering{
		ID:              id,
		Date:            "25/12/2026",
		Time:            "19:30",
		Location:        "Casa da Ana",
		ProvidedItems:   []string{"farofa"},
		ConfirmedGuests: []types.GuestEntry{},
		DeclinedGuests:  []string{},
		InvitedUsers:    []string{"bruno"},
		CreatedBy:       "ana",
		CreatedAt:       createdAt,
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := NewMemoryGatheringStore()
	ctx := context.Background()

	g := seedGathering("g1", time.Now())
	if err := store.Create(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, g); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	got, err := store.FindByID(ctx, "g1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Location != "Casa da Ana" {
		t.Fatalf("location: got %q", got.Location)
	}

	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCopiesAreIsolated(t *testing.T) {
	store := NewMemoryGatheringStore()
	ctx := context.Background()

	if err := store.Create(ctx, seedGathering("g1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := store.FindByID(ctx, "g1")
	first.ProvidedItems = append(first.ProvidedItems, "smuggled")
	first.Location = "elsewhere"

	second, _ := store.FindByID(ctx, "g1")
	if len(second.ProvidedItems) != 1 || second.Location != "Casa da Ana" {
		t.Fatalf("stored record was mutated through a returned copy: %+v", second)
	}
}

func TestMemoryStoreUpdateVersionCheck(t *testing.T) {
	store := NewMemoryGatheringStore()
	ctx := context.Background()

	if err := store.Create(ctx, seedGathering("g1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _ := store.FindByID(ctx, "g1")
	b, _ := store.FindByID(ctx, "g1")

	a.DeclinedGuests = append(a.DeclinedGuests, "carla")
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}

	b.DeclinedGuests = append(b.DeclinedGuests, "diego")
	if err := store.Update(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict for stale write, got %v", err)
	}

	// Reloading picks up the new version and the write goes through.
	fresh, _ := store.FindByID(ctx, "g1")
	fresh.DeclinedGuests = append(fresh.DeclinedGuests, "diego")
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("retried update: %v", err)
	}
	final, _ := store.FindByID(ctx, "g1")
	if len(final.DeclinedGuests) != 2 {
		t.Fatalf("declined guests: want=2 got=%v", final.DeclinedGuests)
	}

	if err := store.Update(ctx, seedGathering("missing", time.Now())); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown id, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryGatheringStore()
	ctx := context.Background()

	if err := store.Create(ctx, seedGathering("g1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, "g1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreFindAllOrdering(t *testing.T) {
	store := NewMemoryGatheringStore()
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	offsets := map[string]time.Duration{"first": 0, "second": time.Minute, "third": 2 * time.Minute}
	for _, id := range []string{"third", "first", "second"} {
		if err := store.Create(ctx, seedGathering(id, base.Add(offsets[id]))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	all, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("ordering: want=%v got=[%s %s %s]", want, all[0].ID, all[1].ID, all[2].ID)
		}
	}
}
