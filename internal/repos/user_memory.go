package repos

import (
	"context"
	"sync"

	"github.com/gatherhub/gatherhub-backend/internal/types"
)

type memoryUserStore struct {
	mu         sync.RWMutex
	byUsername map[string]*types.User
}

func NewMemoryUserStore() UserStore {
	return &memoryUserStore{byUsername: make(map[string]*types.User)}
}

func (ms *memoryUserStore) Create(ctx context.Context, u *types.User) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.byUsername[u.Username]; ok {
		return ErrDuplicate
	}
	ms.byUsername[u.Username] = copyUser(u)
	return nil
}

func (ms *memoryUserStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	u, ok := ms.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (ms *memoryUserStore) FindByUsernames(ctx context.Context, usernames []string) ([]*types.User, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var results []*types.User
	for _, name := range usernames {
		if u, ok := ms.byUsername[name]; ok {
			results = append(results, copyUser(u))
		}
	}
	return results, nil
}

func (ms *memoryUserStore) AddEndpoint(ctx context.Context, username, endpoint string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	u, ok := ms.byUsername[username]
	if !ok {
		return ErrNotFound
	}
	if u.HasEndpoint(endpoint) {
		return nil
	}
	u.DeviceEndpoints = append(u.DeviceEndpoints, endpoint)
	return nil
}

func copyUser(u *types.User) *types.User {
	out := *u
	out.DeviceEndpoints = append(out.DeviceEndpoints[:0:0], u.DeviceEndpoints...)
	return &out
}
