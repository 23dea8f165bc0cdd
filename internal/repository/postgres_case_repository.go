package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

type postgresCaseStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCaseStore instantiates a case store over the cases table.
func NewPostgresCaseStore(pool *pgxpool.Pool) CaseStore {
	return &postgresCaseStore{pool: pool}
}

func (r *postgresCaseStore) LoadAll(ctx context.Context) ([]domain.Case, error) {
	const query = `
        SELECT id, title, category, notes, status, escalated, sla_hours, escalated_until, created_at, updated_at
        FROM cases ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Case{}
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Category,
			&c.Notes,
			&c.Status,
			&c.Escalated,
			&c.SLAHours,
			&c.EscalatedUntil,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// SaveAll replaces the table contents with cases inside one transaction.
func (r *postgresCaseStore) SaveAll(ctx context.Context, cases []domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cases WHERE NOT (id = ANY($1))`, ids); err != nil {
		return fmt.Errorf("prune cases: %w", err)
	}

	const upsert = `
        INSERT INTO cases (id, title, category, notes, status, escalated, sla_hours, escalated_until, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, category=EXCLUDED.category, notes=EXCLUDED.notes,
            status=EXCLUDED.status, escalated=EXCLUDED.escalated, sla_hours=EXCLUDED.sla_hours,
            escalated_until=EXCLUDED.escalated_until, updated_at=EXCLUDED.updated_at`
	batch := &pgx.Batch{}
	for _, c := range cases {
		batch.Queue(upsert,
			c.ID,
			c.Title,
			c.Category,
			c.Notes,
			string(c.Status),
			c.Escalated,
			c.SLAHours,
			c.EscalatedUntil,
			c.CreatedAt,
			c.UpdatedAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range cases {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert case: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresCaseStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type postgresHistoryLog struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryLog builds a history log over the case_history table.
func NewPostgresHistoryLog(pool *pgxpool.Pool) HistoryLog {
	return &postgresHistoryLog{pool: pool}
}

func (r *postgresHistoryLog) Append(ctx context.Context, event domain.HistoryEvent) error {
	before, err := snapshotJSON(event.Before)
	if err != nil {
		return err
	}
	after, err := snapshotJSON(event.After)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	if event.Meta == nil {
		meta = []byte("{}")
	}

	const query = `
        INSERT INTO case_history (id, ts, action, case_id, before, after, meta)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Action),
		event.CaseID,
		before,
		after,
		meta,
	)
	return err
}

func (r *postgresHistoryLog) Query(ctx context.Context, caseID string) ([]domain.HistoryEvent, error) {
	query := `
        SELECT id, ts, action, case_id, before, after, meta
        FROM case_history`
	args := []any{}
	if caseID != "" {
		query += ` WHERE case_id=$1`
		args = append(args, caseID)
	}
	query += ` ORDER BY ts DESC, seq DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.HistoryEvent{}
	for rows.Next() {
		var (
			event               domain.HistoryEvent
			before, after, meta []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Action,
			&event.CaseID,
			&before,
			&after,
			&meta,
		); err != nil {
			return nil, err
		}
		if event.Before, err = decodeSnapshot(before); err != nil {
			return nil, err
		}
		if event.After, err = decodeSnapshot(after); err != nil {
			return nil, err
		}
		event.Meta = map[string]string{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &event.Meta); err != nil {
				return nil, fmt.Errorf("decode history meta %s: %w", event.ID, err)
			}
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

func snapshotJSON(c *domain.Case) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func decodeSnapshot(raw []byte) (*domain.Case, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var c domain.Case
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode case snapshot: %w", err)
	}
	return &c, nil
}
