package domain

import "time"

// ActivityType enumerates the closed set of deal events recorded in the feed.
type ActivityType string

const (
	ActivityDocumentUploaded   ActivityType = "document_uploaded"
	ActivityDocumentDeleted    ActivityType = "document_deleted"
	ActivityDocumentApproved   ActivityType = "document_approved"
	ActivityDocumentRejected   ActivityType = "document_rejected"
	ActivityDocumentDownloaded ActivityType = "document_downloaded"
	ActivityDocumentMoved      ActivityType = "document_moved"

	ActivityRequestCreated       ActivityType = "request_created"
	ActivityRequestUpdated       ActivityType = "request_updated"
	ActivityRequestStatusChanged ActivityType = "request_status_changed"
	ActivityRequestCompleted     ActivityType = "request_completed"
	ActivityRequestAnswered      ActivityType = "request_answered"

	ActivityCommentAdded      ActivityType = "comment_added"
	ActivityTeamMemberAdded   ActivityType = "team_member_added"
	ActivityTeamMemberRemoved ActivityType = "team_member_removed"
	ActivityPermissionChanged ActivityType = "permission_changed"
	ActivityNDASigned         ActivityType = "nda_signed"

	ActivityDealStageChanged ActivityType = "deal_stage_changed"
	ActivityDealCreated      ActivityType = "deal_created"
	ActivityDealUpdated      ActivityType = "deal_updated"
	ActivityFolderCreated    ActivityType = "folder_created"
	ActivityMention          ActivityType = "mention"
)

// Metadata carries the type-dependent payload attached to an activity. All
// fields are optional; which ones are meaningful depends on ActivityType.
// Empty strings are treated as absent by the description templates.
type Metadata struct {
	FileName        string `json:"file_name,omitempty"`
	FolderName      string `json:"folder_name,omitempty"`
	RequestTitle    string `json:"request_title,omitempty"`
	NewStatus       string `json:"new_status,omitempty"`
	MemberName      string `json:"member_name,omitempty"`
	PermissionLevel string `json:"permission_level,omitempty"`
	OldStage        string `json:"old_stage,omitempty"`
	NewStage        string `json:"new_stage,omitempty"`
	MentionedName   string `json:"mentioned_name,omitempty"`
}

// DealActivity is an immutable append-only feed record. Rows are written once
// by RecordActivity and never updated or deleted.
type DealActivity struct {
	ID           string
	TenantID     string
	DealID       string
	UserID       *string // nil for system-generated events
	ActivityType ActivityType
	EntityType   string
	EntityID     string
	Metadata     Metadata
	CreatedAt    time.Time
}

// Actor returns the acting user id, or empty for system events.
func (a DealActivity) Actor() string {
	if a.UserID == nil {
		return ""
	}
	return *a.UserID
}

// FeedEntry pairs an activity with the display name of its actor, resolved
// from the profiles table after the fetch.
type FeedEntry struct {
	Activity  DealActivity
	ActorName string
}
