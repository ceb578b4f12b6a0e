package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type PatchRepo struct{ db *sql.DB }

func NewPatchRepo(db *sql.DB) *PatchRepo { return &PatchRepo{db: db} }

func (r *PatchRepo) Record(ctx context.Context, p *model.Patch) error {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return apperr.Storage(err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	p.AppliedAt = now
	_, err = r.db.ExecContext(ctx, `INSERT INTO patches (id, world_id, op, data, applied_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.WorldID, p.Op, string(data), now)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *PatchRepo) ListByWorld(ctx context.Context, worldID string) ([]*model.Patch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, world_id, op, data, applied_at FROM patches WHERE world_id = ? ORDER BY applied_at`, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Patch
	for rows.Next() {
		var p model.Patch
		var data string
		if err := rows.Scan(&p.ID, &p.WorldID, &p.Op, &data, &p.AppliedAt); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(data), &p.Data)
		out = append(out, &p)
	}
	return out, apperr.Storage(rows.Err())
}
