package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type EffectRepo struct{ db *sql.DB }

func NewEffectRepo(db *sql.DB) *EffectRepo { return &EffectRepo{db: db} }

func (r *EffectRepo) Create(ctx context.Context, e *model.CustomEffect) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO custom_effects (id, target_id, target_type, data, is_active) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.TargetID, e.TargetType, string(data), e.IsActive)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *EffectRepo) FindByID(ctx context.Context, id string) (*model.CustomEffect, error) {
	row := r.db.QueryRowContext(ctx, `SELECT data FROM custom_effects WHERE id = ?`, id)
	var data string
	if err := row.Scan(&data); err == sql.ErrNoRows {
		return nil, apperr.NotFound("effect", id)
	} else if err != nil {
		return nil, apperr.Storage(err)
	}
	var e model.CustomEffect
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, apperr.Storage(err)
	}
	return &e, nil
}

// Query filters effects by target, optional category and source type, and
// whether only active effects should be returned.
func (r *EffectRepo) Query(ctx context.Context, targetID, category, sourceType string, activeOnly bool) ([]*model.CustomEffect, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data, is_active FROM custom_effects WHERE target_id = ?`, targetID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.CustomEffect
	for rows.Next() {
		var data string
		var active int
		if err := rows.Scan(&data, &active); err != nil {
			return nil, apperr.Storage(err)
		}
		var e model.CustomEffect
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, apperr.Storage(err)
		}
		e.IsActive = active != 0
		if activeOnly && !e.IsActive {
			continue
		}
		if category != "" && string(e.Category) != category {
			continue
		}
		if sourceType != "" && e.SourceType != sourceType {
			continue
		}
		out = append(out, &e)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *EffectRepo) Update(ctx context.Context, e *model.CustomEffect) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperr.Storage(err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE custom_effects SET data = ?, is_active = ? WHERE id = ?`, string(data), e.IsActive, e.ID)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("effect", e.ID)
	}
	return nil
}

func (r *EffectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM custom_effects WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// DeleteByTargetAndName removes effects matching (targetID, name), used by
// remove_effect's by-name variant.
func (r *EffectRepo) DeleteByTargetAndName(ctx context.Context, targetID, name string) error {
	effects, err := r.Query(ctx, targetID, "", "", false)
	if err != nil {
		return err
	}
	for _, e := range effects {
		if e.Name == name {
			if err := r.Delete(ctx, e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
