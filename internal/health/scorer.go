// Package health derives the 0-100 deal health score and urgent-item flags
// from a deal and its independently fetched related rows. The scoring
// functions are pure; the Aggregator wires them to the repository.
package health

import (
	"time"

	"example.com/dealroom/internal/domain"
)

// Urgent item types surfaced to prioritize attention on a deal.
type UrgentItemType string

const (
	UrgentOverdue UrgentItemType = "overdue"
	UrgentPending UrgentItemType = "pending"
	UrgentMissing UrgentItemType = "missing"
	UrgentStalled UrgentItemType = "stalled"
)

// UrgentItem is a typed flag. Count carries the overdue-task count or the
// stalled day count where applicable, zero otherwise.
type UrgentItem struct {
	Type  UrgentItemType `json:"type"`
	Count int            `json:"count,omitempty"`
}

// Snapshot bundles the rows a health computation needs. The caller fetches
// each collection separately; no relational join is assumed.
type Snapshot struct {
	Deal      domain.Deal
	Requests  []domain.DiligenceRequest
	Documents []domain.Document
	Folders   []domain.Folder
}

// DealHealth is the derived, never-persisted health view of one deal.
type DealHealth struct {
	DealID             string       `json:"deal_id"`
	Score              int          `json:"health_score"`
	DaysSinceActivity  int          `json:"days_since_activity"`
	DaysInStage        int          `json:"days_in_stage"`
	OverdueTasks       int          `json:"overdue_tasks"`
	PendingRequests    int          `json:"pending_requests"`
	DocumentCompletion int          `json:"document_completion"`
	UrgentItems        []UrgentItem `json:"urgent_items"`
	CloseProbability   int          `json:"close_probability"`
}

var closeProbabilityByStage = map[string]int{
	domain.StageClosing:            90,
	domain.StageFinalReview:        70,
	domain.StageAnalysis:           50,
	domain.StageInformationRequest: 30,
	domain.StageDealInitiated:      10,
}

// CloseProbability is a pure stage lookup, unrelated to the health score.
func CloseProbability(stage string) int {
	if p, ok := closeProbabilityByStage[stage]; ok {
		return p
	}
	return 20
}

// Compute applies the fixed deduction table to a base of 100. All rules are
// subtractions, so their order does not matter; the result is clamped to
// [0, 100]. Urgent items are derived from the same inputs but independently
// of the score.
func Compute(now time.Time, snap Snapshot) DealHealth {
	daysSinceActivity := wholeDays(now.Sub(snap.Deal.UpdatedAt))
	daysInStage := wholeDays(now.Sub(snap.Deal.StageStart()))

	overdue := 0
	pending := 0
	for _, req := range snap.Requests {
		if req.Overdue(now) {
			overdue++
		}
		if req.Pending() {
			pending++
		}
	}

	completion, tracked := documentCompletion(snap.Documents, snap.Folders)

	score := 100

	if daysSinceActivity > 7 {
		score -= 20
	}
	if daysSinceActivity > 14 {
		score -= 30
	}

	// A brand-new deal with nothing in the data room is not penalized for
	// incomplete documents; the deduction applies only once there is
	// something to track.
	if tracked {
		if completion < 50 {
			score -= 20
		} else if completion < 80 {
			score -= 10
		}
	}

	score -= 5 * overdue

	if pending > 5 {
		score -= 15
	} else if pending > 2 {
		score -= 5
	}

	if daysInStage > 30 {
		score -= 15
	} else if daysInStage > 14 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	urgent := make([]UrgentItem, 0, 4)
	if overdue > 0 {
		urgent = append(urgent, UrgentItem{Type: UrgentOverdue, Count: overdue})
	}
	if pending > 3 {
		urgent = append(urgent, UrgentItem{Type: UrgentPending})
	}
	if completion < 30 && snap.Deal.Status == domain.DealStatusActive {
		urgent = append(urgent, UrgentItem{Type: UrgentMissing})
	}
	if daysSinceActivity > 7 {
		urgent = append(urgent, UrgentItem{Type: UrgentStalled, Count: daysSinceActivity})
	}

	return DealHealth{
		DealID:             snap.Deal.ID,
		Score:              score,
		DaysSinceActivity:  daysSinceActivity,
		DaysInStage:        daysInStage,
		OverdueTasks:       overdue,
		PendingRequests:    pending,
		DocumentCompletion: completion,
		UrgentItems:        urgent,
		CloseProbability:   CloseProbability(snap.Deal.CurrentStage),
	}
}

// documentCompletion returns the completion percentage and whether there is
// anything to track. With no documents and no required folders the
// percentage is 0; with documents but no required-folder tracking it is a
// flat 50; otherwise it is the share of required folders holding at least
// one non-rejected document.
func documentCompletion(docs []domain.Document, folders []domain.Folder) (percent int, tracked bool) {
	requiredTotal := 0
	populated := make(map[string]bool)

	for _, doc := range docs {
		if doc.FolderID != nil && doc.Status != domain.DocumentStatusRejected {
			populated[*doc.FolderID] = true
		}
	}

	requiredComplete := 0
	for _, folder := range folders {
		if !folder.Tracked() {
			continue
		}
		requiredTotal++
		if populated[folder.ID] {
			requiredComplete++
		}
	}

	switch {
	case requiredTotal == 0 && len(docs) == 0:
		return 0, false
	case requiredTotal == 0:
		return 50, true
	default:
		return requiredComplete * 100 / requiredTotal, true
	}
}

func wholeDays(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
