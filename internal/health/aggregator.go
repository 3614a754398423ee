package health

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/dealroom/internal/domain"
)

// Aggregator fetches the rows a health computation needs and runs the scorer.
type Aggregator struct {
	repo   domain.Repository
	logger *log.Logger
}

// NewAggregator constructs an Aggregator. A nil logger falls back to the
// default logger.
func NewAggregator(repo domain.Repository, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{repo: repo, logger: logger}
}

// DealHealth computes the health view for a single deal. Any failed
// related-row fetch fails the whole computation; a partially scored deal is
// worse than no score.
func (a *Aggregator) DealHealth(ctx context.Context, tenantID, dealID string, now time.Time) (*DealHealth, error) {
	deal, err := a.repo.GetDeal(ctx, tenantID, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, domain.ErrDealNotFound
	}

	snap, err := a.snapshot(ctx, tenantID, *deal)
	if err != nil {
		return nil, err
	}

	result := Compute(now, snap)
	return &result, nil
}

// PortfolioHealth computes health for every deal in the tenant. Deals whose
// related-row fetches fail are logged and excluded rather than scored with
// zero-filled inputs.
func (a *Aggregator) PortfolioHealth(ctx context.Context, tenantID string, now time.Time) ([]DealHealth, error) {
	deals, err := a.repo.ListDeals(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	results := make([]DealHealth, 0, len(deals))
	for _, deal := range deals {
		snap, err := a.snapshot(ctx, tenantID, deal)
		if err != nil {
			a.logger.Printf("health: skipping deal %s: %v", deal.ID, err)
			continue
		}
		results = append(results, Compute(now, snap))
	}
	return results, nil
}

func (a *Aggregator) snapshot(ctx context.Context, tenantID string, deal domain.Deal) (Snapshot, error) {
	requests, err := a.repo.ListRequests(ctx, tenantID, deal.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch requests: %w", err)
	}
	documents, err := a.repo.ListDocuments(ctx, tenantID, deal.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch documents: %w", err)
	}
	folders, err := a.repo.ListFolders(ctx, tenantID, deal.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch folders: %w", err)
	}

	return Snapshot{Deal: deal, Requests: requests, Documents: documents, Folders: folders}, nil
}
