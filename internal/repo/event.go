package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

// EventRepo persists the append-only event_logs table. It is distinct from
// internal/eventbus, which only fans events out to live subscribers: this is
// the durable record those events leave behind.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, evt model.EventEntry) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO event_logs (type, payload, created_at) VALUES (?, ?, ?)`,
		evt.Type, string(payload), evt.Ts.Format(time.RFC3339Nano))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *EventRepo) List(ctx context.Context, limit int) ([]model.EventEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, type, payload, created_at FROM event_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []model.EventEntry
	for rows.Next() {
		var e model.EventEntry
		var payload, createdAt string
		if err := rows.Scan(&e.ID, &e.Type, &payload, &createdAt); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(payload), &e.Payload)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.Ts = t
		}
		out = append(out, e)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, apperr.Storage(rows.Err())
}
