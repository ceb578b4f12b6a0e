package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
)

// TurnStateRepo persists per-world workflow progress: one JSON blob row per
// world, upserted as a batch workflow advances. Cascades on world delete per
// spec 4.8.
type TurnStateRepo struct{ db *sql.DB }

func NewTurnStateRepo(db *sql.DB) *TurnStateRepo { return &TurnStateRepo{db: db} }

func (r *TurnStateRepo) Get(ctx context.Context, worldID string) (map[string]any, error) {
	row := r.db.QueryRowContext(ctx, `SELECT data FROM turn_state WHERE world_id = ?`, worldID)
	var data string
	if err := row.Scan(&data); err == sql.ErrNoRows {
		return map[string]any{}, nil
	} else if err != nil {
		return nil, apperr.Storage(err)
	}
	var out map[string]any
	_ = json.Unmarshal([]byte(data), &out)
	return out, nil
}

func (r *TurnStateRepo) Put(ctx context.Context, worldID string, data map[string]any) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO turn_state (world_id, data) VALUES (?, ?)
		 ON CONFLICT(world_id) DO UPDATE SET data = excluded.data`,
		worldID, string(blob))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}
