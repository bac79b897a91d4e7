package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists audit events in the audit_log table. The table
// grants INSERT and SELECT only; no UPDATE or DELETE statement exists in
// this codebase and none should be added.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (category, occurred_at, actor, action, entity_type, entity_id, reason, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(event.Category), event.Timestamp, event.Actor, string(event.Action),
		event.EntityType, event.EntityID, event.Reason, detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, actor, action, entity_type, entity_id, reason, detail
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY occurred_at ASC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var category, action string
		var detail []byte
		if err := rows.Scan(&category, &e.Timestamp, &e.Actor, &action, &e.EntityType, &e.EntityID, &e.Reason, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = Category(category)
		e.Action = Action(action)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
