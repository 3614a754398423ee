// Package feed renders activity rows for display: one-line descriptions,
// icon/color/category tags, and recency grouping. Everything here is pure and
// safe to re-run on every request.
package feed

import (
	"fmt"

	"example.com/dealroom/internal/domain"
)

// Feed categories used for filter grouping.
const (
	CategoryDocuments = "documents"
	CategoryRequests  = "requests"
	CategoryTeam      = "team"
	CategoryDeal      = "deal"
)

// Descriptor holds everything the presentation layer needs for one activity
// type. Adding a new type is a single entry in the catalog below.
type Descriptor struct {
	Describe func(domain.Metadata) string
	Icon     string
	Color    string
	Category string
}

// fallbackDescriptor covers activity types introduced by newer backends.
// Rendering must never block on forward-compatibility gaps.
var fallbackDescriptor = Descriptor{
	Describe: func(domain.Metadata) string { return "performed an action" },
	Icon:     "activity",
	Color:    "slate",
	Category: CategoryDeal,
}

var catalog = map[domain.ActivityType]Descriptor{
	domain.ActivityDocumentUploaded: {
		Describe: func(m domain.Metadata) string { return "uploaded " + file(m) },
		Icon:     "file-plus",
		Color:    "emerald",
		Category: CategoryDocuments,
	},
	domain.ActivityDocumentDeleted: {
		Describe: func(m domain.Metadata) string { return "deleted " + file(m) },
		Icon:     "file-minus",
		Color:    "red",
		Category: CategoryDocuments,
	},
	domain.ActivityDocumentApproved: {
		Describe: func(m domain.Metadata) string { return "approved " + file(m) },
		Icon:     "file-check",
		Color:    "emerald",
		Category: CategoryDocuments,
	},
	domain.ActivityDocumentRejected: {
		Describe: func(m domain.Metadata) string { return "rejected " + file(m) },
		Icon:     "file-x",
		Color:    "red",
		Category: CategoryDocuments,
	},
	domain.ActivityDocumentDownloaded: {
		Describe: func(m domain.Metadata) string { return "downloaded " + file(m) },
		Icon:     "download",
		Color:    "blue",
		Category: CategoryDocuments,
	},
	domain.ActivityDocumentMoved: {
		Describe: func(m domain.Metadata) string {
			return fmt.Sprintf("moved %s to %s", file(m), folder(m))
		},
		Icon:     "folder-input",
		Color:    "blue",
		Category: CategoryDocuments,
	},
	domain.ActivityFolderCreated: {
		Describe: func(m domain.Metadata) string { return "created folder " + folder(m) },
		Icon:     "folder-plus",
		Color:    "blue",
		Category: CategoryDocuments,
	},

	domain.ActivityRequestCreated: {
		Describe: func(m domain.Metadata) string { return "created " + request(m) },
		Icon:     "list-plus",
		Color:    "blue",
		Category: CategoryRequests,
	},
	domain.ActivityRequestUpdated: {
		Describe: func(m domain.Metadata) string { return "updated " + request(m) },
		Icon:     "pencil",
		Color:    "blue",
		Category: CategoryRequests,
	},
	domain.ActivityRequestStatusChanged: {
		Describe: func(m domain.Metadata) string {
			if m.NewStatus == "" {
				return "changed the status of " + request(m)
			}
			return fmt.Sprintf("changed the status of %s to %s", request(m), m.NewStatus)
		},
		Icon:     "refresh-cw",
		Color:    "amber",
		Category: CategoryRequests,
	},
	domain.ActivityRequestCompleted: {
		Describe: func(m domain.Metadata) string { return "completed " + request(m) },
		Icon:     "check-circle",
		Color:    "emerald",
		Category: CategoryRequests,
	},
	domain.ActivityRequestAnswered: {
		Describe: func(m domain.Metadata) string { return "answered " + request(m) },
		Icon:     "message-circle",
		Color:    "emerald",
		Category: CategoryRequests,
	},
	domain.ActivityCommentAdded: {
		Describe: func(m domain.Metadata) string {
			if m.RequestTitle != "" {
				return "commented on " + m.RequestTitle
			}
			return "added a comment"
		},
		Icon:     "message-square",
		Color:    "slate",
		Category: CategoryRequests,
	},

	domain.ActivityTeamMemberAdded: {
		Describe: func(m domain.Metadata) string {
			return "added " + member(m) + " to the deal team"
		},
		Icon:     "user-plus",
		Color:    "emerald",
		Category: CategoryTeam,
	},
	domain.ActivityTeamMemberRemoved: {
		Describe: func(m domain.Metadata) string {
			return "removed " + member(m) + " from the deal team"
		},
		Icon:     "user-minus",
		Color:    "red",
		Category: CategoryTeam,
	},
	domain.ActivityPermissionChanged: {
		Describe: func(m domain.Metadata) string {
			if m.PermissionLevel == "" {
				return "changed permissions for " + member(m)
			}
			return fmt.Sprintf("changed permissions for %s to %s", member(m), m.PermissionLevel)
		},
		Icon:     "shield",
		Color:    "amber",
		Category: CategoryTeam,
	},
	domain.ActivityNDASigned: {
		Describe: func(domain.Metadata) string { return "signed the NDA" },
		Icon:     "file-signature",
		Color:    "emerald",
		Category: CategoryTeam,
	},
	domain.ActivityMention: {
		Describe: func(m domain.Metadata) string {
			if m.MentionedName == "" {
				return "mentioned a teammate"
			}
			return "mentioned " + m.MentionedName
		},
		Icon:     "at-sign",
		Color:    "blue",
		Category: CategoryTeam,
	},

	domain.ActivityDealStageChanged: {
		Describe: func(m domain.Metadata) string {
			if m.OldStage != "" && m.NewStage != "" {
				return fmt.Sprintf("moved the deal from %s to %s", m.OldStage, m.NewStage)
			}
			if m.NewStage != "" {
				return "moved the deal to " + m.NewStage
			}
			return "moved the deal to a new stage"
		},
		Icon:     "trending-up",
		Color:    "violet",
		Category: CategoryDeal,
	},
	domain.ActivityDealCreated: {
		Describe: func(domain.Metadata) string { return "created the deal" },
		Icon:     "briefcase",
		Color:    "violet",
		Category: CategoryDeal,
	},
	domain.ActivityDealUpdated: {
		Describe: func(domain.Metadata) string { return "updated deal details" },
		Icon:     "pencil",
		Color:    "slate",
		Category: CategoryDeal,
	},
}

// DescriptorFor returns the catalog entry for an activity type, falling back
// to a generic descriptor for unknown values.
func DescriptorFor(t domain.ActivityType) Descriptor {
	if d, ok := catalog[t]; ok {
		return d
	}
	return fallbackDescriptor
}

// Describe renders the one-line description for an activity.
func Describe(activity domain.DealActivity) string {
	return DescriptorFor(activity.ActivityType).Describe(activity.Metadata)
}

// Category returns the filter-grouping tag for an activity type.
func Category(t domain.ActivityType) string {
	return DescriptorFor(t).Category
}

func file(m domain.Metadata) string {
	if m.FileName == "" {
		return "a document"
	}
	return m.FileName
}

func folder(m domain.Metadata) string {
	if m.FolderName == "" {
		return "a folder"
	}
	return m.FolderName
}

func request(m domain.Metadata) string {
	if m.RequestTitle == "" {
		return "a diligence request"
	}
	return m.RequestTitle
}

func member(m domain.Metadata) string {
	if m.MemberName == "" {
		return "a team member"
	}
	return m.MemberName
}
