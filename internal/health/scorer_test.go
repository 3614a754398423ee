package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/dealroom/internal/domain"
)

var scoreNow = time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)

func freshDeal() domain.Deal {
	return domain.Deal{
		ID:           "deal-1",
		TenantID:     "tenant-1",
		Status:       domain.DealStatusActive,
		CurrentStage: domain.StageAnalysis,
		CreatedAt:    scoreNow.Add(-2 * time.Hour),
		UpdatedAt:    scoreNow.Add(-time.Hour),
	}
}

func due(t time.Time) *time.Time { return &t }

func TestComputeFreshDealScoresFull(t *testing.T) {
	result := Compute(scoreNow, Snapshot{Deal: freshDeal()})

	require.Equal(t, 100, result.Score)
	require.Empty(t, result.UrgentItems)
	require.Equal(t, 0, result.DocumentCompletion)
	require.Equal(t, 0, result.DaysSinceActivity)
}

func TestComputeOverdueDeduction(t *testing.T) {
	deal := freshDeal()
	requests := make([]domain.DiligenceRequest, 0, 6)
	for i := 0; i < 6; i++ {
		requests = append(requests, domain.DiligenceRequest{
			ID:      "req",
			DealID:  deal.ID,
			Status:  domain.RequestStatusCompleted,
			DueDate: due(scoreNow.Add(-48 * time.Hour)),
		})
	}
	// Completed requests are never overdue.
	result := Compute(scoreNow, Snapshot{Deal: deal, Requests: requests})
	require.Equal(t, 100, result.Score)

	for i := range requests {
		requests[i].Status = domain.RequestStatusAnswered
	}
	// Six overdue at 5 points each; answered requests are not pending, so no
	// pending deduction stacks on top.
	result = Compute(scoreNow, Snapshot{Deal: deal, Requests: requests})
	require.Equal(t, 70, result.Score)
	require.Equal(t, 6, result.OverdueTasks)
	require.Contains(t, result.UrgentItems, UrgentItem{Type: UrgentOverdue, Count: 6})
}

func TestComputePendingThresholds(t *testing.T) {
	deal := freshDeal()

	build := func(n int) []domain.DiligenceRequest {
		out := make([]domain.DiligenceRequest, n)
		for i := range out {
			out[i] = domain.DiligenceRequest{Status: domain.RequestStatusOpen}
		}
		return out
	}

	require.Equal(t, 100, Compute(scoreNow, Snapshot{Deal: deal, Requests: build(2)}).Score)
	require.Equal(t, 95, Compute(scoreNow, Snapshot{Deal: deal, Requests: build(3)}).Score)
	require.Equal(t, 95, Compute(scoreNow, Snapshot{Deal: deal, Requests: build(5)}).Score)
	require.Equal(t, 85, Compute(scoreNow, Snapshot{Deal: deal, Requests: build(6)}).Score)
}

func TestComputeStalenessDeductionsStack(t *testing.T) {
	deal := freshDeal()
	deal.CreatedAt = scoreNow.Add(-40 * 24 * time.Hour)
	stage := scoreNow.Add(-time.Hour)
	deal.StageEnteredAt = &stage

	deal.UpdatedAt = scoreNow.Add(-8 * 24 * time.Hour)
	result := Compute(scoreNow, Snapshot{Deal: deal})
	require.Equal(t, 80, result.Score)
	require.Contains(t, result.UrgentItems, UrgentItem{Type: UrgentStalled, Count: 8})

	// Past 14 days both staleness deductions apply.
	deal.UpdatedAt = scoreNow.Add(-15 * 24 * time.Hour)
	result = Compute(scoreNow, Snapshot{Deal: deal})
	require.Equal(t, 50, result.Score)
	require.Equal(t, 15, result.DaysSinceActivity)
}

func TestComputeStageDwellDeduction(t *testing.T) {
	deal := freshDeal()
	deal.CreatedAt = scoreNow.Add(-60 * 24 * time.Hour)

	stage := scoreNow.Add(-20 * 24 * time.Hour)
	deal.StageEnteredAt = &stage
	require.Equal(t, 95, Compute(scoreNow, Snapshot{Deal: deal}).Score)

	stage = scoreNow.Add(-35 * 24 * time.Hour)
	require.Equal(t, 85, Compute(scoreNow, Snapshot{Deal: deal}).Score)
}

func TestComputeStageDwellFallsBackToCreation(t *testing.T) {
	deal := freshDeal()
	deal.StageEnteredAt = nil
	deal.CreatedAt = scoreNow.Add(-35 * 24 * time.Hour)

	result := Compute(scoreNow, Snapshot{Deal: deal})
	require.Equal(t, 35, result.DaysInStage)
	require.Equal(t, 85, result.Score)
}

func TestDocumentCompletion(t *testing.T) {
	folderA := "folder-a"
	folderB := "folder-b"

	folders := []domain.Folder{
		{ID: folderA, IsRequired: true},
		{ID: folderB, IsRequired: true},
		{ID: "folder-na", IsRequired: true, IsNotApplicable: true},
		{ID: "folder-optional"},
	}
	docs := []domain.Document{
		{ID: "doc-1", FolderID: &folderA, Status: domain.DocumentStatusApproved},
		{ID: "doc-2", FolderID: &folderB, Status: domain.DocumentStatusRejected},
	}

	percent, tracked := documentCompletion(docs, folders)
	require.True(t, tracked)
	// Rejected documents do not populate their folder.
	require.Equal(t, 50, percent)

	percent, tracked = documentCompletion(nil, nil)
	require.False(t, tracked)
	require.Equal(t, 0, percent)

	percent, tracked = documentCompletion(docs, nil)
	require.True(t, tracked)
	require.Equal(t, 50, percent)
}

func TestComputeLowCompletionUrgentItem(t *testing.T) {
	folderA := "folder-a"
	deal := freshDeal()

	snap := Snapshot{
		Deal: deal,
		Folders: []domain.Folder{
			{ID: folderA, IsRequired: true},
			{ID: "folder-b", IsRequired: true},
			{ID: "folder-c", IsRequired: true},
			{ID: "folder-d", IsRequired: true},
		},
		Documents: []domain.Document{
			{ID: "doc-1", FolderID: &folderA, Status: domain.DocumentStatusApproved},
		},
	}

	result := Compute(scoreNow, snap)
	require.Equal(t, 25, result.DocumentCompletion)
	require.Equal(t, 80, result.Score)
	require.Contains(t, result.UrgentItems, UrgentItem{Type: UrgentMissing})

	// Paused deals skip the missing-documents flag.
	snap.Deal.Status = domain.DealStatusPaused
	result = Compute(scoreNow, snap)
	require.NotContains(t, result.UrgentItems, UrgentItem{Type: UrgentMissing})
}

func TestComputeClampsAtZero(t *testing.T) {
	deal := freshDeal()
	deal.UpdatedAt = scoreNow.Add(-30 * 24 * time.Hour)
	deal.CreatedAt = scoreNow.Add(-90 * 24 * time.Hour)

	requests := make([]domain.DiligenceRequest, 0, 12)
	for i := 0; i < 12; i++ {
		requests = append(requests, domain.DiligenceRequest{
			Status:  domain.RequestStatusOpen,
			DueDate: due(scoreNow.Add(-72 * time.Hour)),
		})
	}

	result := Compute(scoreNow, Snapshot{Deal: deal, Requests: requests})
	require.Equal(t, 0, result.Score)
}

func TestCloseProbabilityIsPureStageLookup(t *testing.T) {
	require.Equal(t, 90, CloseProbability(domain.StageClosing))
	require.Equal(t, 70, CloseProbability(domain.StageFinalReview))
	require.Equal(t, 50, CloseProbability(domain.StageAnalysis))
	require.Equal(t, 30, CloseProbability(domain.StageInformationRequest))
	require.Equal(t, 10, CloseProbability(domain.StageDealInitiated))
	require.Equal(t, 20, CloseProbability("legacy_stage"))

	// Probability tracks the stage, not the score.
	deal := freshDeal()
	deal.CurrentStage = domain.StageClosing
	deal.UpdatedAt = scoreNow.Add(-20 * 24 * time.Hour)
	result := Compute(scoreNow, Snapshot{Deal: deal})
	require.Equal(t, 50, result.Score)
	require.Equal(t, 90, result.CloseProbability)
}
