package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/dealroom/internal/domain"
)

func TestDescribeUsesMetadata(t *testing.T) {
	cases := []struct {
		name     string
		activity domain.DealActivity
		want     string
	}{
		{
			name: "document upload names the file",
			activity: domain.DealActivity{
				ActivityType: domain.ActivityDocumentUploaded,
				Metadata:     domain.Metadata{FileName: "Q3-financials.pdf"},
			},
			want: "uploaded Q3-financials.pdf",
		},
		{
			name: "document move names file and folder",
			activity: domain.DealActivity{
				ActivityType: domain.ActivityDocumentMoved,
				Metadata:     domain.Metadata{FileName: "cap-table.xlsx", FolderName: "Financials"},
			},
			want: "moved cap-table.xlsx to Financials",
		},
		{
			name: "status change includes the new status",
			activity: domain.DealActivity{
				ActivityType: domain.ActivityRequestStatusChanged,
				Metadata:     domain.Metadata{RequestTitle: "Customer contracts", NewStatus: "answered"},
			},
			want: "changed the status of Customer contracts to answered",
		},
		{
			name: "stage change names both stages",
			activity: domain.DealActivity{
				ActivityType: domain.ActivityDealStageChanged,
				Metadata:     domain.Metadata{OldStage: "analysis", NewStage: "final_review"},
			},
			want: "moved the deal from analysis to final_review",
		},
		{
			name: "nda ignores metadata",
			activity: domain.DealActivity{
				ActivityType: domain.ActivityNDASigned,
				Metadata:     domain.Metadata{FileName: "ignored.pdf"},
			},
			want: "signed the NDA",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Describe(tc.activity))
		})
	}
}

func TestDescribeMissingMetadataFallsBack(t *testing.T) {
	cases := map[domain.ActivityType]string{
		domain.ActivityDocumentUploaded: "uploaded a document",
		domain.ActivityDocumentMoved:    "moved a document to a folder",
		domain.ActivityRequestCreated:   "created a diligence request",
		domain.ActivityTeamMemberAdded:  "added a team member to the deal team",
		domain.ActivityCommentAdded:     "added a comment",
		domain.ActivityMention:          "mentioned a teammate",
	}

	for activityType, want := range cases {
		got := Describe(domain.DealActivity{ActivityType: activityType})
		require.Equal(t, want, got, "type %s", activityType)
	}
}

// Every catalog entry must render something readable with empty metadata;
// placeholder junk like "undefined" or "null" must never surface.
func TestDescribeNeverEmitsPlaceholders(t *testing.T) {
	for activityType, descriptor := range catalog {
		text := descriptor.Describe(domain.Metadata{})
		require.NotEmpty(t, text, "type %s", activityType)
		require.False(t, strings.Contains(text, "undefined"), "type %s rendered %q", activityType, text)
		require.False(t, strings.Contains(text, "null"), "type %s rendered %q", activityType, text)
		require.NotEmpty(t, descriptor.Icon, "type %s", activityType)
		require.NotEmpty(t, descriptor.Color, "type %s", activityType)
		require.NotEmpty(t, descriptor.Category, "type %s", activityType)
	}
}

func TestDescriptorForUnknownType(t *testing.T) {
	d := DescriptorFor(domain.ActivityType("hologram_projected"))
	require.Equal(t, "performed an action", d.Describe(domain.Metadata{}))
	require.Equal(t, CategoryDeal, d.Category)
}

func TestCategoryAssignments(t *testing.T) {
	require.Equal(t, CategoryDocuments, Category(domain.ActivityFolderCreated))
	require.Equal(t, CategoryRequests, Category(domain.ActivityCommentAdded))
	require.Equal(t, CategoryTeam, Category(domain.ActivityNDASigned))
	require.Equal(t, CategoryDeal, Category(domain.ActivityDealCreated))
}
