package repos

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/types"
)

// UserStore is the directory's persistence contract.
type UserStore interface {
	Create(ctx context.Context, u *types.User) error
	FindByUsername(ctx context.Context, username string) (*types.User, error)
	FindByUsernames(ctx context.Context, usernames []string) ([]*types.User, error)
	AddEndpoint(ctx context.Context, username, endpoint string) error
}

type userStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserStore(db *gorm.DB, baseLog *logger.Logger) UserStore {
	return &userStore{db: db, log: baseLog.With("repo", "UserStore")}
}

func (us *userStore) Create(ctx context.Context, u *types.User) error {
	if err := us.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (us *userStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	var u types.User
	if err := us.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (us *userStore) FindByUsernames(ctx context.Context, usernames []string) ([]*types.User, error) {
	var results []*types.User
	if len(usernames) == 0 {
		return results, nil
	}
	if err := us.db.WithContext(ctx).
		Where("username IN ?", usernames).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AddEndpoint appends endpoint to the user's device set if absent. The row
// is locked for the read-modify-write so two logins cannot lose an endpoint.
func (us *userStore) AddEndpoint(ctx context.Context, username, endpoint string) error {
	return us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u types.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "username = ?", username).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if u.HasEndpoint(endpoint) {
			return nil
		}
		u.DeviceEndpoints = append(u.DeviceEndpoints, endpoint)
		return tx.Model(&types.User{}).
			Where("username = ?", username).
			Update("device_endpoints", u.DeviceEndpoints).Error
	})
}

// 23505 is postgres unique_violation; gorm's sqlite translator surfaces the
// same condition as ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
