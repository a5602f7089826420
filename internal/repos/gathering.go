package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/types"
)

// GatheringStore is the persistence contract the lifecycle depends on. The
// backing technology is swappable: NewGatheringStore wraps gorm (postgres or
// sqlite), NewMemoryGatheringStore keeps everything in a map.
//
// Update is a conditional write: it only succeeds when the stored version
// still matches the version the record was read at, and bumps it. A stale
// writer gets ErrVersionConflict and is expected to reload and retry, which
// is what keeps concurrent confirmations from dropping each other.
type GatheringStore interface {
	Create(ctx context.Context, g *types.Gathering) error
	FindByID(ctx context.Context, id string) (*types.Gathering, error)
	FindAll(ctx context.Context) ([]*types.Gathering, error)
	Update(ctx context.Context, g *types.Gathering) error
	Delete(ctx context.Context, id string) error
}

type gatheringStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGatheringStore(db *gorm.DB, baseLog *logger.Logger) GatheringStore {
	return &gatheringStore{db: db, log: baseLog.With("repo", "GatheringStore")}
}

func (gs *gatheringStore) Create(ctx context.Context, g *types.Gathering) error {
	return gs.db.WithContext(ctx).Create(g).Error
}

func (gs *gatheringStore) FindByID(ctx context.Context, id string) (*types.Gathering, error) {
	var g types.Gathering
	if err := gs.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (gs *gatheringStore) FindAll(ctx context.Context) ([]*types.Gathering, error) {
	var results []*types.Gathering
	if err := gs.db.WithContext(ctx).
		Order("created_at").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (gs *gatheringStore) Update(ctx context.Context, g *types.Gathering) error {
	res := gs.db.WithContext(ctx).
		Model(&types.Gathering{}).
		Where("id = ? AND version = ?", g.ID, g.Version).
		Updates(map[string]any{
			"provided_items":   g.ProvidedItems,
			"confirmed_guests": g.ConfirmedGuests,
			"declined_guests":  g.DeclinedGuests,
			"version":          g.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := gs.db.WithContext(ctx).
			Model(&types.Gathering{}).
			Where("id = ?", g.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	g.Version++
	return nil
}

func (gs *gatheringStore) Delete(ctx context.Context, id string) error {
	res := gs.db.WithContext(ctx).Delete(&types.Gathering{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
