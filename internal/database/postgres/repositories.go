package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EventRepository handles the append-only pool event journal
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append journals one pool event
func (r *EventRepository) Append(ctx context.Context, event *EventRecord) error {
	query := `
		INSERT INTO pool_events (kind, key, at, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		event.Kind, event.Key, event.At, event.Payload, now,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	event.CreatedAt = now
	return nil
}

// GetRecentByKind retrieves recent events of one kind with pagination
func (r *EventRepository) GetRecentByKind(ctx context.Context, kind string, limit, offset int) ([]*EventRecord, error) {
	query := `
		SELECT id, kind, key, at, payload, created_at
		FROM pool_events
		WHERE kind = $1
		ORDER BY at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []*EventRecord
	for rows.Next() {
		event := &EventRecord{}
		err := rows.Scan(
			&event.ID, &event.Kind, &event.Key, &event.At,
			&event.Payload, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// DistributionRepository handles distribution history records
type DistributionRepository struct {
	db *sql.DB
}

// NewDistributionRepository creates a new distribution repository
func NewDistributionRepository(db *sql.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// Record stores one scheduler payout or cleanup
func (r *DistributionRepository) Record(ctx context.Context, dist *Distribution) error {
	query := `
		INSERT INTO distributions (recipient, amount, cursor, cleanup, executed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		dist.Recipient, dist.Amount, dist.Cursor, dist.Cleanup, dist.ExecutedAt,
	).Scan(&dist.ID)

	if err != nil {
		return fmt.Errorf("failed to record distribution: %w", err)
	}

	return nil
}

// GetRecent retrieves recent distributions with pagination
func (r *DistributionRepository) GetRecent(ctx context.Context, limit, offset int) ([]*Distribution, error) {
	query := `
		SELECT id, recipient, amount, cursor, cleanup, executed_at
		FROM distributions
		ORDER BY executed_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query distributions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var dists []*Distribution
	for rows.Next() {
		dist := &Distribution{}
		err := rows.Scan(
			&dist.ID, &dist.Recipient, &dist.Amount,
			&dist.Cursor, &dist.Cleanup, &dist.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		dists = append(dists, dist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distributions: %w", err)
	}

	return dists, nil
}

// GetByRecipient retrieves a recipient's distributions with pagination
func (r *DistributionRepository) GetByRecipient(ctx context.Context, recipient string, limit, offset int) ([]*Distribution, error) {
	query := `
		SELECT id, recipient, amount, cursor, cleanup, executed_at
		FROM distributions
		WHERE recipient = $1
		ORDER BY executed_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, recipient, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query distributions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var dists []*Distribution
	for rows.Next() {
		dist := &Distribution{}
		err := rows.Scan(
			&dist.ID, &dist.Recipient, &dist.Amount,
			&dist.Cursor, &dist.Cleanup, &dist.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		dists = append(dists, dist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distributions: %w", err)
	}

	return dists, nil
}
