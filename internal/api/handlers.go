// Package api exposes HTTP handlers for the deal signal aggregator.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/dealroom/internal/auth"
	"example.com/dealroom/internal/domain"
	"example.com/dealroom/internal/feed"
	"example.com/dealroom/internal/health"
	"example.com/dealroom/internal/persistence"
	"example.com/dealroom/internal/stream"
)

// Handler coordinates HTTP requests with the domain service, the health
// aggregator, and the live stream hub.
type Handler struct {
	service *domain.Service
	health  *health.Aggregator
	hub     *stream.Hub
	now     func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, healthAgg *health.Aggregator, hub *stream.Hub) *Handler {
	return &Handler{
		service: service,
		health:  healthAgg,
		hub:     hub,
		now:     time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/deals/", h.dealSubtree)
	mux.HandleFunc("/v1/portfolio/health", h.portfolioHealth)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// dealSubtree routes /v1/deals/{id}/... to the matching handler.
func (h *Handler) dealSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/deals/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	dealID := parts[0]

	switch parts[1] {
	case "activities":
		switch r.Method {
		case http.MethodPost:
			h.recordActivity(w, r, dealID)
		case http.MethodGet:
			h.listActivities(w, r, dealID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		}
	case "activities/stream":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.streamActivities(w, r, dealID)
	case "health":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.dealHealth(w, r, dealID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request, dealID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeDealsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope deals:write required")
		return
	}

	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	actor := claims.Subject
	input := domain.RecordActivityInput{
		TenantID:       claims.TenantID,
		DealID:         dealID,
		ActivityType:   domain.ActivityType(req.ActivityType),
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Metadata:       req.Metadata,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if !req.System {
		input.UserID = &actor
	}

	activity, replay, err := h.service.RecordActivity(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	status := http.StatusAccepted
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, RecordActivityResponse{
		ActivityID: activity.ID,
		Replay:     replay,
	})
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request, dealID string) {
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	entries, next, err := h.service.ListFeed(r.Context(), claims.TenantID, dealID, filter, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if r.URL.Query().Get("group") == "recency" {
		buckets := feed.GroupByRecency(h.now(), entries)
		groups := make([]ActivityGroup, 0, len(buckets))
		for _, bucket := range buckets {
			group := ActivityGroup{
				Label:   bucket.Label,
				IsToday: bucket.IsToday,
				Items:   make([]ActivityView, 0, len(bucket.Entries)),
			}
			for _, entry := range bucket.Entries {
				group.Items = append(group.Items, h.toActivityView(entry))
			}
			groups = append(groups, group)
		}
		writeJSON(w, http.StatusOK, GroupedActivitiesResponse{
			Groups:     groups,
			NextCursor: persistence.EncodeCursor(next),
		})
		return
	}

	items := make([]ActivityView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, h.toActivityView(entry))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) dealHealth(w http.ResponseWriter, r *http.Request, dealID string) {
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	result, err := h.health.DealHealth(r.Context(), claims.TenantID, dealID, h.now())
	if err != nil {
		if errors.Is(err, domain.ErrDealNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "deal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) portfolioHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	results, err := h.health.PortfolioHealth(r.Context(), claims.TenantID, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PortfolioHealthResponse{Items: results})
}

// streamActivities serves the per-deal live feed over SSE. The subscription
// is torn down when the client disconnects; events for other deals never
// reach this stream.
func (h *Handler) streamActivities(w http.ResponseWriter, r *http.Request, dealID string) {
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming unsupported")
		return
	}

	ch, cancel := h.hub.Subscribe(dealID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case activity, open := <-ch:
			if !open {
				return
			}
			if activity.TenantID != claims.TenantID {
				continue
			}
			view := h.toActivityView(domain.FeedEntry{Activity: activity})
			view.IsNew = true
			payload, err := json.Marshal(view)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: activity\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func requireReadScope(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(auth.ScopeDealsRead) && !claims.HasScope(auth.ScopeDealsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope deals:read required")
		return nil, false
	}
	return claims, true
}

func parseFilter(r *http.Request) (domain.ActivityFilter, error) {
	var filter domain.ActivityFilter

	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				filter.Types = append(filter.Types, domain.ActivityType(part))
			}
		}
	}
	filter.ActorID = r.URL.Query().Get("actor")

	if raw := r.URL.Query().Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("invalid from timestamp")
		}
		filter.From = ts
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("invalid to timestamp")
		}
		filter.To = ts
	}
	return filter, nil
}

// RecordActivityRequest is the payload for POST /v1/deals/{id}/activities.
type RecordActivityRequest struct {
	ActivityType string          `json:"activity_type"`
	EntityType   string          `json:"entity_type,omitempty"`
	EntityID     string          `json:"entity_id,omitempty"`
	Metadata     domain.Metadata `json:"metadata"`
	System       bool            `json:"system,omitempty"`
}

// Validate ensures request correctness.
func (r RecordActivityRequest) Validate() error {
	if strings.TrimSpace(r.ActivityType) == "" {
		return errors.New("activity_type is required")
	}
	return nil
}

// RecordActivityResponse describes the response body for record.
type RecordActivityResponse struct {
	ActivityID string `json:"activity_id"`
	Replay     bool   `json:"idempotent_replay"`
}

// ActivityView exposes one enriched, render-ready feed entry.
type ActivityView struct {
	ActivityID   string          `json:"activity_id"`
	DealID       string          `json:"deal_id"`
	UserID       *string         `json:"user_id,omitempty"`
	ActorName    string          `json:"actor_name"`
	ActivityType string          `json:"activity_type"`
	EntityType   string          `json:"entity_type,omitempty"`
	EntityID     string          `json:"entity_id,omitempty"`
	Metadata     domain.Metadata `json:"metadata"`
	Description  string          `json:"description"`
	Icon         string          `json:"icon"`
	Color        string          `json:"color"`
	Category     string          `json:"category"`
	CreatedAt    time.Time       `json:"created_at"`
	IsNew        bool            `json:"is_new"`
}

// ActivityGroup is one recency bucket of the grouped listing.
type ActivityGroup struct {
	Label   string         `json:"label"`
	IsToday bool           `json:"is_today"`
	Items   []ActivityView `json:"items"`
}

// ListActivitiesResponse packages flat list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// GroupedActivitiesResponse packages recency-grouped results.
type GroupedActivitiesResponse struct {
	Groups     []ActivityGroup `json:"groups"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// PortfolioHealthResponse packages per-deal health views. Deals whose
// related-row fetches failed are absent.
type PortfolioHealthResponse struct {
	Items []health.DealHealth `json:"items"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) toActivityView(entry domain.FeedEntry) ActivityView {
	activity := entry.Activity
	descriptor := feed.DescriptorFor(activity.ActivityType)

	actorName := entry.ActorName
	if activity.UserID == nil {
		actorName = "System"
	}

	return ActivityView{
		ActivityID:   activity.ID,
		DealID:       activity.DealID,
		UserID:       activity.UserID,
		ActorName:    actorName,
		ActivityType: string(activity.ActivityType),
		EntityType:   activity.EntityType,
		EntityID:     activity.EntityID,
		Metadata:     activity.Metadata,
		Description:  descriptor.Describe(activity.Metadata),
		Icon:         descriptor.Icon,
		Color:        descriptor.Color,
		Category:     descriptor.Category,
		CreatedAt:    activity.CreatedAt,
		IsNew:        h.hub.IsNew(activity.ID),
	}
}
