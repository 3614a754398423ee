// Package domain defines the business logic for the deal signal aggregator.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIdempotentReplay indicates an existing activity was found for the provided idempotency key.
	ErrIdempotentReplay = errors.New("activity already exists for idempotency key")
	// ErrDealNotFound is returned when a deal cannot be located.
	ErrDealNotFound = errors.New("deal not found")
)

// ActivityFilter narrows a feed listing. Zero values mean "no constraint".
// Free-text search stays with the caller; the repository only filters on
// indexed columns.
type ActivityFilter struct {
	Types   []ActivityType
	ActorID string
	From    time.Time
	To      time.Time
}

// Cursor models the pagination token for feed listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Repository captures persistence operations. Deal-related collections are
// fetched independently; the aggregator joins them in memory.
type Repository interface {
	FindActivityByIdempotency(ctx context.Context, tenantID, dealID, idempotencyKey string) (*DealActivity, error)
	CreateActivity(ctx context.Context, activity DealActivity, idempotencyKey string) error
	ListActivities(ctx context.Context, tenantID, dealID string, filter ActivityFilter, cursor *Cursor, limit int) ([]DealActivity, *Cursor, error)

	GetDeal(ctx context.Context, tenantID, dealID string) (*Deal, error)
	ListDeals(ctx context.Context, tenantID string) ([]Deal, error)
	ListRequests(ctx context.Context, tenantID, dealID string) ([]DiligenceRequest, error)
	ListDocuments(ctx context.Context, tenantID, dealID string) ([]Document, error)
	ListFolders(ctx context.Context, tenantID, dealID string) ([]Folder, error)

	ListProfiles(ctx context.Context, tenantID string, userIDs []string) (map[string]Profile, error)
}

// Service orchestrates feed workflows.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordActivityInput captures the payload from the API layer.
type RecordActivityInput struct {
	TenantID       string
	DealID         string
	UserID         *string
	ActivityType   ActivityType
	EntityType     string
	EntityID       string
	Metadata       Metadata
	IdempotencyKey string
}

// RecordActivity appends a feed row with idempotent replay semantics. The
// second return value reports whether an existing row was replayed.
func (s *Service) RecordActivity(ctx context.Context, input RecordActivityInput) (*DealActivity, bool, error) {
	existing, err := s.repo.FindActivityByIdempotency(ctx, input.TenantID, input.DealID, input.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	activity := DealActivity{
		ID:           uuid.NewString(),
		TenantID:     input.TenantID,
		DealID:       input.DealID,
		UserID:       input.UserID,
		ActivityType: input.ActivityType,
		EntityType:   input.EntityType,
		EntityID:     input.EntityID,
		Metadata:     input.Metadata,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateActivity(ctx, activity, input.IdempotencyKey); err != nil {
		return nil, false, err
	}

	return &activity, false, nil
}

// ListFeed fetches a page of activities newest-first and resolves actor
// display names. Enrichment failures do not fail the listing; affected
// entries fall back to an empty actor name.
func (s *Service) ListFeed(ctx context.Context, tenantID, dealID string, filter ActivityFilter, cursor *Cursor, limit int) ([]FeedEntry, *Cursor, error) {
	activities, next, err := s.repo.ListActivities(ctx, tenantID, dealID, filter, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(activities))
	seen := make(map[string]struct{})
	for _, act := range activities {
		actor := act.Actor()
		if actor == "" {
			continue
		}
		if _, ok := seen[actor]; ok {
			continue
		}
		seen[actor] = struct{}{}
		ids = append(ids, actor)
	}

	var profiles map[string]Profile
	if len(ids) > 0 {
		profiles, err = s.repo.ListProfiles(ctx, tenantID, ids)
		if err != nil {
			profiles = nil
		}
	}

	entries := make([]FeedEntry, 0, len(activities))
	for _, act := range activities {
		entry := FeedEntry{Activity: act}
		if actor := act.Actor(); actor != "" {
			if profile, ok := profiles[actor]; ok {
				entry.ActorName = profile.DisplayName
			}
		}
		entries = append(entries, entry)
	}

	return entries, next, nil
}
