package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/repos"
	"github.com/gatherhub/gatherhub-backend/internal/types"
)

// Classification statuses.
const (
	StatusActive = "active"
	StatusPast   = "past"
)

// Creation notification modes: broadcast on a topic derived from the new
// gathering's id, or multicast to the invited users' devices.
const (
	NotifyModeTopic = "topic"
	NotifyModeUsers = "users"
)

// casMaxAttempts bounds the reload-and-retry loop a conditional update runs
// when concurrent writers touch the same gathering.
const casMaxAttempts = 5

// CreateGatheringInput carries everything a host submits to schedule a
// gathering. ProvidedItems and InvitedUsers must be present (possibly
// empty) sequences.
type CreateGatheringInput struct {
	Date          string
	Time          string
	Location      string
	ProvidedItems []string
	InvitedUsers  []string
	CreatedBy     string
}

// GatheringService is the gathering lifecycle: creation, classification,
// RSVP mutation, cancellation.
type GatheringService interface {
	Create(ctx context.Context, in CreateGatheringInput) (*types.Gathering, error)
	Classify(ctx context.Context, status string) ([]*types.Gathering, error)
	GetDetails(ctx context.Context, id string) (*types.Gathering, error)
	ConfirmPresence(ctx context.Context, id, name string, selectedItems []string) (*types.Gathering, error)
	DeclinePresence(ctx context.Context, id, name string) (*types.Gathering, error)
	Cancel(ctx context.Context, id string) error
	ListPendingInvites(ctx context.Context, userID string) ([]*types.Gathering, error)
}

type gatheringService struct {
	store      repos.GatheringStore
	dispatcher NotificationDispatcher
	log        *logger.Logger
	notifyMode string
	now        nowFunc
}

func NewGatheringService(store repos.GatheringStore, dispatcher NotificationDispatcher, log *logger.Logger, notifyMode string) GatheringService {
	if notifyMode != NotifyModeUsers {
		notifyMode = NotifyModeTopic
	}
	return &gatheringService{
		store:      store,
		dispatcher: dispatcher,
		log:        log.With("service", "GatheringService"),
		notifyMode: notifyMode,
		now:        defaultNow,
	}
}

func (gs *gatheringService) Create(ctx context.Context, in CreateGatheringInput) (*types.Gathering, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	g := &types.Gathering{
		ID:              uuid.New().String(),
		Date:            strings.TrimSpace(in.Date),
		Time:            strings.TrimSpace(in.Time),
		Location:        strings.TrimSpace(in.Location),
		ProvidedItems:   append([]string{}, in.ProvidedItems...),
		ConfirmedGuests: []types.GuestEntry{},
		DeclinedGuests:  []string{},
		InvitedUsers:    append([]string{}, in.InvitedUsers...),
		CreatedBy:       in.CreatedBy,
		CreatedAt:       gs.now(),
	}

	if err := gs.store.Create(ctx, g); err != nil {
		gs.log.Error("Failed to persist gathering", "error", err)
		return nil, apierr.Internal(err)
	}
	gs.log.Info("Gathering created", "gathering_id", g.ID, "created_by", g.CreatedBy)

	// The record is committed; delivery trouble is the dispatcher's problem,
	// never the creator's.
	gs.notifyCreation(ctx, g)

	return g, nil
}

func validateCreate(in CreateGatheringInput) error {
	if strings.TrimSpace(in.Date) == "" {
		return apierr.Validation("date is required")
	}
	if _, err := time.ParseInLocation(types.DateLayout, strings.TrimSpace(in.Date), time.Local); err != nil {
		return apierr.Validation("date must be DD/MM/YYYY")
	}
	if strings.TrimSpace(in.Time) == "" {
		return apierr.Validation("time is required")
	}
	if _, err := time.ParseInLocation(types.TimeLayout, strings.TrimSpace(in.Time), time.Local); err != nil {
		return apierr.Validation("time must be HH:MM")
	}
	if strings.TrimSpace(in.Location) == "" {
		return apierr.Validation("location is required")
	}
	if in.ProvidedItems == nil {
		return apierr.Validation("providedItems must be a list")
	}
	if in.InvitedUsers == nil {
		return apierr.Validation("invitedUsers must be a list")
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return apierr.Validation("hostId is required")
	}
	return nil
}

func (gs *gatheringService) notifyCreation(ctx context.Context, g *types.Gathering) {
	title := "You have been invited to a gathering"
	body := fmt.Sprintf("%s on %s at %s", g.Location, g.Date, g.Time)
	payload := map[string]any{
		"gatheringId": g.ID,
		"date":        g.Date,
		"time":        g.Time,
		"location":    g.Location,
		"items":       []string(g.ProvidedItems),
	}

	var err error
	switch gs.notifyMode {
	case NotifyModeUsers:
		_, err = gs.dispatcher.NotifyUsers(ctx, g.InvitedUsers, title, body, payload)
	default:
		_, err = gs.dispatcher.NotifyTopic(ctx, TopicForGathering(g.ID), title, body, payload)
	}
	if err != nil {
		gs.log.Warn("Creation notification failed", "gathering_id", g.ID, "mode", gs.notifyMode, "error", err)
	}
}

// TopicForGathering derives the broadcast topic key for a gathering.
func TopicForGathering(id string) string {
	return "gathering-" + id
}

// Classify partitions all gatherings by comparing each one's event instant,
// composed from its date and time in local time, against now. A gathering
// happening exactly now counts as active. A record whose date or time fails
// to parse is a data-integrity fault: it is excluded from both partitions
// and logged, rather than failing the whole pass.
func (gs *gatheringService) Classify(ctx context.Context, status string) ([]*types.Gathering, error) {
	if status != StatusActive && status != StatusPast {
		return nil, apierr.Validation("status must be %q or %q", StatusActive, StatusPast)
	}

	all, err := gs.store.FindAll(ctx)
	if err != nil {
		gs.log.Error("Failed to load gatherings", "error", err)
		return nil, apierr.Internal(err)
	}

	now := gs.now()
	results := make([]*types.Gathering, 0, len(all))
	for _, g := range all {
		instant, perr := g.EventInstant()
		if perr != nil {
			gs.log.Warn("Gathering has unparseable date/time; excluded from classification",
				"gathering_id", g.ID, "date", g.Date, "time", g.Time, "error", perr)
			continue
		}
		active := !instant.Before(now)
		if (status == StatusActive) == active {
			results = append(results, g)
		}
	}
	return results, nil
}

func (gs *gatheringService) GetDetails(ctx context.Context, id string) (*types.Gathering, error) {
	g, err := gs.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound("gathering %q not found", id)
		}
		return nil, apierr.Internal(err)
	}
	return g, nil
}

// ConfirmPresence appends the guest entry and every selected item, in order,
// to the gathering. There is deliberately no idempotency: confirming twice
// appends twice, matching the append-only contract of both sequences.
func (gs *gatheringService) ConfirmPresence(ctx context.Context, id, name string, selectedItems []string) (*types.Gathering, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Validation("name is required")
	}
	if selectedItems == nil {
		return nil, apierr.Validation("selectedItems must be a list")
	}

	g, err := gs.mutate(ctx, id, func(g *types.Gathering) {
		g.ConfirmedGuests = append(g.ConfirmedGuests, types.GuestEntry{
			Name:  name,
			Items: append([]string(nil), selectedItems...),
		})
		g.ProvidedItems = append(g.ProvidedItems, selectedItems...)
	})
	if err != nil {
		return nil, err
	}

	gs.log.Info("Presence confirmed", "gathering_id", id, "guest", name, "item_count", len(selectedItems))
	gs.notifyRSVP(ctx, g, fmt.Sprintf("%s confirmed presence", name))
	return g, nil
}

// DeclinePresence appends the name to the declined list. No cross-check
// against confirmations: a guest who confirmed earlier and declines later
// appears in both lists.
func (gs *gatheringService) DeclinePresence(ctx context.Context, id, name string) (*types.Gathering, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Validation("name is required")
	}

	g, err := gs.mutate(ctx, id, func(g *types.Gathering) {
		g.DeclinedGuests = append(g.DeclinedGuests, name)
	})
	if err != nil {
		return nil, err
	}

	gs.log.Info("Presence declined", "gathering_id", id, "guest", name)
	gs.notifyRSVP(ctx, g, fmt.Sprintf("%s declined", name))
	return g, nil
}

// mutate runs a read-modify-write cycle under the store's conditional
// update, retrying on version conflicts so concurrent RSVPs never drop each
// other's appends.
func (gs *gatheringService) mutate(ctx context.Context, id string, apply func(*types.Gathering)) (*types.Gathering, error) {
	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		g, err := gs.store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				return nil, apierr.NotFound("gathering %q not found", id)
			}
			return nil, apierr.Internal(err)
		}

		apply(g)

		err = gs.store.Update(ctx, g)
		if err == nil {
			return g, nil
		}
		if errors.Is(err, repos.ErrVersionConflict) {
			gs.log.Debug("Concurrent update; retrying", "gathering_id", id, "attempt", attempt+1)
			continue
		}
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound("gathering %q not found", id)
		}
		return nil, apierr.Internal(err)
	}
	return nil, apierr.Internal(fmt.Errorf("gathering %q: gave up after %d conflicting updates", id, casMaxAttempts))
}

func (gs *gatheringService) notifyRSVP(ctx context.Context, g *types.Gathering, body string) {
	payload := map[string]any{
		"gatheringId": g.ID,
		"items":       []string(g.ProvidedItems),
	}
	if _, err := gs.dispatcher.NotifyUsers(ctx, []string{g.CreatedBy}, "RSVP update", body, payload); err != nil {
		gs.log.Warn("RSVP notification failed", "gathering_id", g.ID, "error", err)
	}
}

func (gs *gatheringService) Cancel(ctx context.Context, id string) error {
	if err := gs.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return apierr.NotFound("gathering %q not found", id)
		}
		gs.log.Error("Failed to delete gathering", "gathering_id", id, "error", err)
		return apierr.Internal(err)
	}
	gs.log.Info("Gathering cancelled", "gathering_id", id)
	return nil
}

// ListPendingInvites returns the gatherings the user was invited to and has
// not answered, in either direction.
func (gs *gatheringService) ListPendingInvites(ctx context.Context, userID string) ([]*types.Gathering, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apierr.Validation("userId is required")
	}

	all, err := gs.store.FindAll(ctx)
	if err != nil {
		gs.log.Error("Failed to load gatherings", "error", err)
		return nil, apierr.Internal(err)
	}

	pending := make([]*types.Gathering, 0)
	for _, g := range all {
		if g.IsInvited(userID) && !g.HasResponded(userID) {
			pending = append(pending, g)
		}
	}
	return pending, nil
}
