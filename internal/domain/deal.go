package domain

import "time"

// Deal stages in pipeline order. The close-probability lookup is keyed by
// these values; anything else falls back to a default.
const (
	StageDealInitiated      = "deal_initiated"
	StageInformationRequest = "information_request"
	StageAnalysis           = "analysis"
	StageFinalReview        = "final_review"
	StageClosing            = "closing"
)

// Deal statuses.
const (
	DealStatusActive = "active"
	DealStatusPaused = "paused"
	DealStatusClosed = "closed"
)

// Diligence request statuses.
const (
	RequestStatusOpen       = "open"
	RequestStatusInProgress = "in_progress"
	RequestStatusAnswered   = "answered"
	RequestStatusCompleted  = "completed"
)

// Document statuses.
const (
	DocumentStatusPending  = "pending"
	DocumentStatusApproved = "approved"
	DocumentStatusRejected = "rejected"
)

// Deal is the tracked M&A opportunity. The aggregator only reads deals; all
// writes happen elsewhere in the platform.
type Deal struct {
	ID             string
	TenantID       string
	Title          string
	Status         string
	CurrentStage   string
	AskingPrice    *int64 // cents, nil when undisclosed
	StageEnteredAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StageStart returns when the deal entered its current stage, falling back to
// the creation time when no transition timestamp was recorded.
func (d Deal) StageStart() time.Time {
	if d.StageEnteredAt != nil {
		return *d.StageEnteredAt
	}
	return d.CreatedAt
}

// DiligenceRequest is a tracked information request raised against a deal.
type DiligenceRequest struct {
	ID      string
	DealID  string
	Title   string
	Status  string
	DueDate *time.Time
}

// Overdue reports whether the request's due date has passed without completion.
func (r DiligenceRequest) Overdue(now time.Time) bool {
	return r.DueDate != nil && r.DueDate.Before(now) && r.Status != RequestStatusCompleted
}

// Pending reports whether the request still needs an answer.
func (r DiligenceRequest) Pending() bool {
	return r.Status == RequestStatusOpen || r.Status == RequestStatusInProgress
}

// Document is a data-room file reference.
type Document struct {
	ID       string
	DealID   string
	FolderID *string
	FileName string
	Status   string
}

// Folder is a data-room category. Required folders drive the document
// completion percentage; not-applicable ones are excluded from tracking.
type Folder struct {
	ID              string
	DealID          string
	Name            string
	IsRequired      bool
	IsNotApplicable bool
}

// Tracked reports whether the folder counts toward completion.
func (f Folder) Tracked() bool {
	return f.IsRequired && !f.IsNotApplicable
}

// Profile is the minimal identity row used to label feed actors.
type Profile struct {
	UserID      string
	DisplayName string
}
