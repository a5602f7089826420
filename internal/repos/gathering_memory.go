package repos

import (
	"context"
	"sort"
	"sync"

	"github.com/gatherhub/gatherhub-backend/internal/types"
)

// memoryGatheringStore is the map-backed GatheringStore. Records are deep
// copied in and out so no caller can mutate stored state except through the
// store contract.
type memoryGatheringStore struct {
	mu   sync.RWMutex
	byID map[string]*types.Gathering
}

func NewMemoryGatheringStore() GatheringStore {
	return &memoryGatheringStore{byID: make(map[string]*types.Gathering)}
}

func (ms *memoryGatheringStore) Create(ctx context.Context, g *types.Gathering) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.byID[g.ID]; ok {
		return ErrDuplicate
	}
	ms.byID[g.ID] = copyGathering(g)
	return nil
}

func (ms *memoryGatheringStore) FindByID(ctx context.Context, id string) (*types.Gathering, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	g, ok := ms.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGathering(g), nil
}

func (ms *memoryGatheringStore) FindAll(ctx context.Context) ([]*types.Gathering, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	results := make([]*types.Gathering, 0, len(ms.byID))
	for _, g := range ms.byID {
		results = append(results, copyGathering(g))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

func (ms *memoryGatheringStore) Update(ctx context.Context, g *types.Gathering) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	current, ok := ms.byID[g.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != g.Version {
		return ErrVersionConflict
	}
	next := copyGathering(g)
	next.Version++
	ms.byID[g.ID] = next
	g.Version = next.Version
	return nil
}

func (ms *memoryGatheringStore) Delete(ctx context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.byID[id]; !ok {
		return ErrNotFound
	}
	delete(ms.byID, id)
	return nil
}

func copyGathering(g *types.Gathering) *types.Gathering {
	out := *g
	out.ProvidedItems = append(out.ProvidedItems[:0:0], g.ProvidedItems...)
	out.DeclinedGuests = append(out.DeclinedGuests[:0:0], g.DeclinedGuests...)
	out.InvitedUsers = append(out.InvitedUsers[:0:0], g.InvitedUsers...)
	out.ConfirmedGuests = out.ConfirmedGuests[:0:0]
	for _, e := range g.ConfirmedGuests {
		out.ConfirmedGuests = append(out.ConfirmedGuests, types.GuestEntry{
			Name:  e.Name,
			Items: append([]string(nil), e.Items...),
		})
	}
	return &out
}
