package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/dealroom/internal/domain"
	"example.com/dealroom/internal/events"
	"example.com/dealroom/internal/observability"
)

// Repository provides Postgres-backed persistence for the deal feed and the
// health-view row fetches. Every transaction pins the tenant for RLS.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `activity_id, tenant_id, deal_id, user_id, activity_type, entity_type, entity_id, metadata, created_at`

// FindActivityByIdempotency checks if an activity already exists for the supplied idempotency key.
func (r *Repository) FindActivityByIdempotency(ctx context.Context, tenantID, dealID, idempotencyKey string) (*domain.DealActivity, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + activityColumns + `
        FROM deal_activities WHERE tenant_id=$1 AND deal_id=$2 AND idempotency_key=$3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	activity, err := scanActivity(tx.QueryRow(ctx, query, tenantID, dealID, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return activity, nil
}

// CreateActivity persists the feed row and records outbox events inside a single transaction.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.DealActivity, idempotencyKey string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", activity.TenantID); err != nil {
		return err
	}

	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return err
	}

	insertActivity := `INSERT INTO deal_activities (activity_id, tenant_id, deal_id, user_id, activity_type, entity_type, entity_id, metadata, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err = tx.Exec(ctx, insertActivity,
		activity.ID,
		activity.TenantID,
		activity.DealID,
		activity.UserID,
		string(activity.ActivityType),
		nullIfEmpty(activity.EntityType),
		nullIfEmpty(activity.EntityID),
		metadata,
		nullIfEmpty(idempotencyKey),
		activity.CreatedAt,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, activity, "deal_activity.recorded", events.ActivityRecorded{
		ActivityID:   activity.ID,
		TenantID:     activity.TenantID,
		DealID:       activity.DealID,
		UserID:       activity.UserID,
		ActivityType: string(activity.ActivityType),
		EntityType:   activity.EntityType,
		EntityID:     activity.EntityID,
		Metadata:     activity.Metadata,
		CreatedAt:    activity.CreatedAt,
	}); err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, activity, "deal.touched", events.DealTouched{
		TenantID:   activity.TenantID,
		DealID:     activity.DealID,
		OccurredAt: activity.CreatedAt,
	}); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `UPDATE deals SET updated_at = $1 WHERE tenant_id = $2 AND deal_id = $3`,
		activity.CreatedAt, activity.TenantID, activity.DealID); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(activity.CreatedAt)
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, activity domain.DealActivity, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := meta.PartitionKeyFn(activity)
	dedupeKey := fmt.Sprintf("%s:%s", activity.ID, eventType)

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		activity.TenantID,
		"deal_activity",
		activity.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// ListActivities returns a newest-first page of the deal's feed, optionally
// narrowed by type subset, actor, and date range.
func (r *Repository) ListActivities(ctx context.Context, tenantID, dealID string, filter domain.ActivityFilter, cursor *domain.Cursor, limit int) ([]domain.DealActivity, *domain.Cursor, error) {
	args := []interface{}{tenantID, dealID, limit}
	query := `SELECT ` + activityColumns + `
        FROM deal_activities WHERE tenant_id=$1 AND deal_id=$2`

	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		args = append(args, types)
		query += fmt.Sprintf(` AND activity_type = ANY($%d)`, len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(` AND user_id = $%d`, len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}
	if cursor != nil {
		args = append(args, cursor.CreatedAt, cursor.ID)
		query += fmt.Sprintf(` AND (created_at, activity_id) < ($%d, $%d)`, len(args)-1, len(args))
	}

	query += ` ORDER BY created_at DESC, activity_id DESC LIMIT $3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.DealActivity, 0, limit)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *activity)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

// GetDeal retrieves a deal by ID, returning nil when absent.
func (r *Repository) GetDeal(ctx context.Context, tenantID, dealID string) (*domain.Deal, error) {
	const query = `SELECT deal_id, tenant_id, title, status, current_stage, asking_price, stage_entered_at, created_at, updated_at
        FROM deals WHERE tenant_id=$1 AND deal_id=$2`

	var deal domain.Deal
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query, tenantID, dealID)
		return row.Scan(&deal.ID, &deal.TenantID, &deal.Title, &deal.Status, &deal.CurrentStage, &deal.AskingPrice, &deal.StageEnteredAt, &deal.CreatedAt, &deal.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// ListDeals returns every deal for the tenant, most recently touched first.
func (r *Repository) ListDeals(ctx context.Context, tenantID string) ([]domain.Deal, error) {
	const query = `SELECT deal_id, tenant_id, title, status, current_stage, asking_price, stage_entered_at, created_at, updated_at
        FROM deals WHERE tenant_id=$1 ORDER BY updated_at DESC`

	var deals []domain.Deal
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var deal domain.Deal
			if err := rows.Scan(&deal.ID, &deal.TenantID, &deal.Title, &deal.Status, &deal.CurrentStage, &deal.AskingPrice, &deal.StageEnteredAt, &deal.CreatedAt, &deal.UpdatedAt); err != nil {
				return err
			}
			deals = append(deals, deal)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// ListRequests returns the deal's diligence requests.
func (r *Repository) ListRequests(ctx context.Context, tenantID, dealID string) ([]domain.DiligenceRequest, error) {
	const query = `SELECT request_id, deal_id, title, status, due_date
        FROM diligence_requests WHERE tenant_id=$1 AND deal_id=$2`

	var requests []domain.DiligenceRequest
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, dealID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var req domain.DiligenceRequest
			if err := rows.Scan(&req.ID, &req.DealID, &req.Title, &req.Status, &req.DueDate); err != nil {
				return err
			}
			requests = append(requests, req)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// ListDocuments returns the deal's data-room documents.
func (r *Repository) ListDocuments(ctx context.Context, tenantID, dealID string) ([]domain.Document, error) {
	const query = `SELECT document_id, deal_id, folder_id, file_name, status
        FROM documents WHERE tenant_id=$1 AND deal_id=$2`

	var docs []domain.Document
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, dealID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var doc domain.Document
			if err := rows.Scan(&doc.ID, &doc.DealID, &doc.FolderID, &doc.FileName, &doc.Status); err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ListFolders returns the deal's data-room folders.
func (r *Repository) ListFolders(ctx context.Context, tenantID, dealID string) ([]domain.Folder, error) {
	const query = `SELECT folder_id, deal_id, name, is_required, is_not_applicable
        FROM folders WHERE tenant_id=$1 AND deal_id=$2`

	var folders []domain.Folder
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, dealID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var folder domain.Folder
			if err := rows.Scan(&folder.ID, &folder.DealID, &folder.Name, &folder.IsRequired, &folder.IsNotApplicable); err != nil {
				return err
			}
			folders = append(folders, folder)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// ListProfiles resolves display names for the supplied user ids.
func (r *Repository) ListProfiles(ctx context.Context, tenantID string, userIDs []string) (map[string]domain.Profile, error) {
	if len(userIDs) == 0 {
		return map[string]domain.Profile{}, nil
	}

	const query = `SELECT user_id, display_name FROM profiles WHERE tenant_id=$1 AND user_id = ANY($2)`

	profiles := make(map[string]domain.Profile, len(userIDs))
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userIDs)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var profile domain.Profile
			if err := rows.Scan(&profile.UserID, &profile.DisplayName); err != nil {
				return err
			}
			profiles[profile.UserID] = profile
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// withTenantTx runs fn inside a transaction with the tenant pinned for RLS.
func (r *Repository) withTenantTx(ctx context.Context, tenantID string, fn func(pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*domain.DealActivity, error) {
	var (
		activity   domain.DealActivity
		entityType *string
		entityID   *string
		metadata   []byte
	)
	if err := row.Scan(&activity.ID, &activity.TenantID, &activity.DealID, &activity.UserID, &activity.ActivityType, &entityType, &entityID, &metadata, &activity.CreatedAt); err != nil {
		return nil, err
	}
	if entityType != nil {
		activity.EntityType = *entityType
	}
	if entityID != nil {
		activity.EntityID = *entityID
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &activity.Metadata); err != nil {
			// Malformed metadata degrades to an empty bag; the activity
			// still renders with generic phrasing.
			activity.Metadata = domain.Metadata{}
		}
	}
	return &activity, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.DealActivity) string
}

var eventCatalog = map[string]EventMetadata{
	"deal_activity.recorded": {
		Topic:         "deal_activity_events",
		SchemaSubject: "deal_activity_events-value",
		PartitionKeyFn: func(a domain.DealActivity) string {
			return fmt.Sprintf("%s:%s", a.TenantID, a.DealID)
		},
	},
	"deal.touched": {
		Topic:         "deal_touch_events",
		SchemaSubject: "deal_touch_events-value",
		PartitionKeyFn: func(a domain.DealActivity) string {
			return a.DealID
		},
	},
}
