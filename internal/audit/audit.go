// Package audit implements the append-only audit trail every mutating tool
// handler writes to. It is distinct from internal/eventbus: the audit log is
// a persisted, queryable record; the event bus is a fire-and-forget
// publish-subscribe stream for observers (SPEC_FULL.md section 2).
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type Log struct {
	db *sql.DB
}

func New(db *sql.DB) *Log { return &Log{db: db} }

// Append writes one audit entry and returns its monotonic id. Audit ids are
// monotonically increasing per process; they are not a cross-process clock.
func (l *Log) Append(ctx context.Context, action, actorID, targetID string, details map[string]any) (int64, error) {
	var detailsJSON []byte
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return 0, err
		}
		detailsJSON = b
	}
	now := time.Now().UTC()
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_logs (action, actor_id, target_id, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		action, nullable(actorID), nullable(targetID), nullableBytes(detailsJSON), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns the most recent entries, newest last, capped at limit.
func (l *Log) List(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, action, actor_id, target_id, details, created_at FROM audit_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var actorID, targetID, details sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &actorID, &targetID, &details, &createdAt); err != nil {
			return nil, err
		}
		e.ActorID = actorID.String
		e.TargetID = targetID.String
		if details.Valid && details.String != "" {
			_ = json.Unmarshal([]byte(details.String), &e.Details)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.Ts = ts
		}
		out = append(out, e)
	}
	// reverse to oldest-first, matching an append-only read order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
