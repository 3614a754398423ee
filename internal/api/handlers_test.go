package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/dealroom/internal/auth"
	"example.com/dealroom/internal/domain"
	"example.com/dealroom/internal/health"
	"example.com/dealroom/internal/stream"
)

func newTestHandler(repo domain.Repository, now time.Time) *Handler {
	service := domain.NewService(repo)
	agg := health.NewAggregator(repo, log.New(log.Writer(), "[health-test] ", 0))
	handler := NewHandler(service, agg, stream.NewHub())
	handler.now = func() time.Time { return now }
	return handler
}

func readClaims() *auth.Claims {
	return &auth.Claims{
		Subject:  "user-1",
		TenantID: "tenant-1",
		Scopes: map[string]struct{}{
			auth.ScopeDealsRead: {},
		},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func writeClaims() *auth.Claims {
	claims := readClaims()
	claims.Scopes[auth.ScopeDealsWrite] = struct{}{}
	return claims
}

func withClaims(req *http.Request, claims *auth.Claims) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestListActivitiesGroupedByRecency(t *testing.T) {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	actor := "user-1"
	repo := &mockRepo{
		activities: []domain.DealActivity{
			{
				ID:           "act-today",
				TenantID:     "tenant-1",
				DealID:       "deal-1",
				UserID:       &actor,
				ActivityType: domain.ActivityDocumentUploaded,
				Metadata:     domain.Metadata{FileName: "ledger.xlsx"},
				CreatedAt:    now.Add(-2 * time.Hour),
			},
			{
				ID:           "act-yesterday",
				TenantID:     "tenant-1",
				DealID:       "deal-1",
				ActivityType: domain.ActivityDealStageChanged,
				Metadata:     domain.Metadata{OldStage: "analysis", NewStage: "final_review"},
				CreatedAt:    now.Add(-26 * time.Hour),
			},
		},
		profiles: map[string]domain.Profile{
			"user-1": {UserID: "user-1", DisplayName: "Dana Reeve"},
		},
	}
	handler := newTestHandler(repo, now)

	req := httptest.NewRequest(http.MethodGet, "/v1/deals/deal-1/activities?group=recency", nil)
	req = withClaims(req, readClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp GroupedActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Groups) != 2 {
		t.Fatalf("expected 2 groups got %d", len(resp.Groups))
	}
	if resp.Groups[0].Label != "Today" || !resp.Groups[0].IsToday {
		t.Fatalf("unexpected first group %+v", resp.Groups[0])
	}
	if resp.Groups[1].Label != "Yesterday" {
		t.Fatalf("unexpected second group label %q", resp.Groups[1].Label)
	}

	item := resp.Groups[0].Items[0]
	if item.ActorName != "Dana Reeve" {
		t.Fatalf("expected enriched actor name got %q", item.ActorName)
	}
	if !strings.Contains(item.Description, "ledger.xlsx") {
		t.Fatalf("expected description to name the file, got %q", item.Description)
	}

	system := resp.Groups[1].Items[0]
	if system.ActorName != "System" {
		t.Fatalf("expected system actor got %q", system.ActorName)
	}
}

func TestListActivitiesRejectsMissingScope(t *testing.T) {
	handler := newTestHandler(&mockRepo{}, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/deals/deal-1/activities", nil)
	claims := readClaims()
	claims.Scopes = map[string]struct{}{}
	req = withClaims(req, claims)

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRecordActivityRequiresWriteScope(t *testing.T) {
	handler := newTestHandler(&mockRepo{}, time.Now())

	body := strings.NewReader(`{"activity_type":"comment_added"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/deals/deal-1/activities", body)
	req = withClaims(req, readClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRecordActivityAccepted(t *testing.T) {
	repo := &mockRepo{}
	handler := newTestHandler(repo, time.Now())

	body := strings.NewReader(`{"activity_type":"document_uploaded","metadata":{"file_name":"cim.pdf"}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/deals/deal-1/activities", body)
	req = withClaims(req, writeClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RecordActivityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Replay {
		t.Fatal("expected fresh record, got replay")
	}
	if repo.created == nil {
		t.Fatal("expected activity to reach the repository")
	}
	if repo.created.Metadata.FileName != "cim.pdf" {
		t.Fatalf("unexpected metadata %+v", repo.created.Metadata)
	}
	if repo.created.UserID == nil || *repo.created.UserID != "user-1" {
		t.Fatalf("expected actor user-1 got %v", repo.created.UserID)
	}
}

func TestRecordActivityIdempotentReplay(t *testing.T) {
	existing := domain.DealActivity{
		ID:           "act-existing",
		TenantID:     "tenant-1",
		DealID:       "deal-1",
		ActivityType: domain.ActivityCommentAdded,
		CreatedAt:    time.Now().Add(-time.Minute),
	}
	repo := &mockRepo{existing: &existing}
	handler := newTestHandler(repo, time.Now())

	body := strings.NewReader(`{"activity_type":"comment_added"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/deals/deal-1/activities", body)
	req.Header.Set("Idempotency-Key", "retry-1")
	req = withClaims(req, writeClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RecordActivityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Replay || resp.ActivityID != "act-existing" {
		t.Fatalf("expected replay of act-existing got %+v", resp)
	}
	if repo.created != nil {
		t.Fatal("replay must not create a second row")
	}
}

func TestRecordActivityRejectsEmptyType(t *testing.T) {
	handler := newTestHandler(&mockRepo{}, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/v1/deals/deal-1/activities", strings.NewReader(`{}`))
	req = withClaims(req, writeClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestDealHealthNotFound(t *testing.T) {
	handler := newTestHandler(&mockRepo{}, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/deals/deal-unknown/health", nil)
	req = withClaims(req, readClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDealHealthFreshDealScoresFull(t *testing.T) {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		deal: &domain.Deal{
			ID:           "deal-1",
			TenantID:     "tenant-1",
			Status:       domain.DealStatusActive,
			CurrentStage: domain.StageDealInitiated,
			CreatedAt:    now.Add(-time.Hour),
			UpdatedAt:    now.Add(-time.Hour),
		},
	}
	handler := newTestHandler(repo, now)

	req := httptest.NewRequest(http.MethodGet, "/v1/deals/deal-1/health", nil)
	req = withClaims(req, readClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp health.DealHealth
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Score != 100 {
		t.Fatalf("expected score 100 got %d", resp.Score)
	}
	if resp.CloseProbability != 10 {
		t.Fatalf("expected close probability 10 got %d", resp.CloseProbability)
	}
}

func TestPortfolioHealth(t *testing.T) {
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		deals: []domain.Deal{
			{
				ID:           "deal-1",
				TenantID:     "tenant-1",
				Status:       domain.DealStatusActive,
				CurrentStage: domain.StageClosing,
				CreatedAt:    now.Add(-48 * time.Hour),
				UpdatedAt:    now.Add(-time.Hour),
			},
			{
				ID:           "deal-2",
				TenantID:     "tenant-1",
				Status:       domain.DealStatusActive,
				CurrentStage: domain.StageAnalysis,
				CreatedAt:    now.Add(-24 * time.Hour),
				UpdatedAt:    now.Add(-time.Hour),
			},
		},
	}
	handler := newTestHandler(repo, now)

	req := httptest.NewRequest(http.MethodGet, "/v1/portfolio/health", nil)
	req = withClaims(req, readClaims())

	rr := httptest.NewRecorder()
	handler.portfolioHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp PortfolioHealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(resp.Items))
	}
	if resp.Items[0].CloseProbability != 90 {
		t.Fatalf("expected close probability 90 for closing stage got %d", resp.Items[0].CloseProbability)
	}
}

func TestListActivitiesRejectsBadCursor(t *testing.T) {
	handler := newTestHandler(&mockRepo{}, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/deals/deal-1/activities?cursor=%3F%3F", nil)
	req = withClaims(req, readClaims())

	rr := httptest.NewRecorder()
	handler.dealSubtree(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

type mockRepo struct {
	activities []domain.DealActivity
	profiles   map[string]domain.Profile
	existing   *domain.DealActivity
	created    *domain.DealActivity
	deal       *domain.Deal
	deals      []domain.Deal
	requests   []domain.DiligenceRequest
	documents  []domain.Document
	folders    []domain.Folder
}

func (m *mockRepo) FindActivityByIdempotency(ctx context.Context, tenantID, dealID, idempotencyKey string) (*domain.DealActivity, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	return m.existing, nil
}

func (m *mockRepo) CreateActivity(ctx context.Context, activity domain.DealActivity, idempotencyKey string) error {
	m.created = &activity
	return nil
}

func (m *mockRepo) ListActivities(ctx context.Context, tenantID, dealID string, filter domain.ActivityFilter, cursor *domain.Cursor, limit int) ([]domain.DealActivity, *domain.Cursor, error) {
	if limit <= 0 || limit > len(m.activities) {
		limit = len(m.activities)
	}
	out := make([]domain.DealActivity, limit)
	copy(out, m.activities[:limit])
	return out, nil, nil
}

func (m *mockRepo) GetDeal(ctx context.Context, tenantID, dealID string) (*domain.Deal, error) {
	if m.deal != nil && m.deal.ID == dealID {
		return m.deal, nil
	}
	return nil, nil
}

func (m *mockRepo) ListDeals(ctx context.Context, tenantID string) ([]domain.Deal, error) {
	return m.deals, nil
}

func (m *mockRepo) ListRequests(ctx context.Context, tenantID, dealID string) ([]domain.DiligenceRequest, error) {
	return m.requests, nil
}

func (m *mockRepo) ListDocuments(ctx context.Context, tenantID, dealID string) ([]domain.Document, error) {
	return m.documents, nil
}

func (m *mockRepo) ListFolders(ctx context.Context, tenantID, dealID string) ([]domain.Folder, error) {
	return m.folders, nil
}

func (m *mockRepo) ListProfiles(ctx context.Context, tenantID string, userIDs []string) (map[string]domain.Profile, error) {
	return m.profiles, nil
}
