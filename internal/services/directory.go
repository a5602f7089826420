package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/repos"
	"github.com/gatherhub/gatherhub-backend/internal/types"
)

// DirectoryService is the registry of users and their device endpoints.
type DirectoryService interface {
	Register(ctx context.Context, username, displayName string) (*types.User, error)
	RecordLogin(ctx context.Context, username, endpoint string) (*types.User, error)
	GetUser(ctx context.Context, username string) (*types.User, error)
	ResolveEndpoints(ctx context.Context, userIDs []string) ([]string, error)
}

type directoryService struct {
	store repos.UserStore
	log   *logger.Logger
	now   nowFunc
}

func NewDirectoryService(store repos.UserStore, log *logger.Logger) DirectoryService {
	return &directoryService{
		store: store,
		log:   log.With("service", "DirectoryService"),
		now:   defaultNow,
	}
}

// Register creates a user. A taken username is a conflict, not an idempotent
// success: callers that retry a registration see 409 and know the name is in
// use.
func (ds *directoryService) Register(ctx context.Context, username, displayName string) (*types.User, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" {
		return nil, apierr.Validation("username is required")
	}
	if displayName == "" {
		return nil, apierr.Validation("displayName is required")
	}

	now := ds.now()
	u := &types.User{
		Username:        username,
		DisplayName:     displayName,
		DeviceEndpoints: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := ds.store.Create(ctx, u); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, apierr.Conflict("username %q is already registered", username)
		}
		ds.log.Error("Failed to create user", "username", username, "error", err)
		return nil, apierr.Internal(err)
	}

	ds.log.Info("User registered", "username", username)
	return u, nil
}

// RecordLogin registers the device endpoint for the user, add-if-absent.
func (ds *directoryService) RecordLogin(ctx context.Context, username, endpoint string) (*types.User, error) {
	username = strings.TrimSpace(username)
	endpoint = strings.TrimSpace(endpoint)
	if username == "" {
		return nil, apierr.Validation("username is required")
	}
	if endpoint == "" {
		return nil, apierr.Validation("endpoint is required")
	}

	if err := ds.store.AddEndpoint(ctx, username, endpoint); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound("user %q not found", username)
		}
		ds.log.Error("Failed to record login", "username", username, "error", err)
		return nil, apierr.Internal(err)
	}

	u, err := ds.store.FindByUsername(ctx, username)
	if err != nil {
		ds.log.Error("Failed to reload user after login", "username", username, "error", err)
		return nil, apierr.Internal(err)
	}
	ds.log.Info("Login recorded", "username", username, "endpoint", endpoint)
	return u, nil
}

func (ds *directoryService) GetUser(ctx context.Context, username string) (*types.User, error) {
	u, err := ds.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound("user %q not found", username)
		}
		return nil, apierr.Internal(err)
	}
	return u, nil
}

// ResolveEndpoints flattens the device endpoints of all named users into one
// list, in user order. Unknown users contribute nothing.
func (ds *directoryService) ResolveEndpoints(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	users, err := ds.store.FindByUsernames(ctx, userIDs)
	if err != nil {
		ds.log.Error("Failed to resolve endpoints", "user_count", len(userIDs), "error", err)
		return nil, apierr.Internal(err)
	}
	var endpoints []string
	for _, u := range users {
		endpoints = append(endpoints, u.DeviceEndpoints...)
	}
	return endpoints, nil
}
