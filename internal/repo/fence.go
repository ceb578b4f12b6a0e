package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type FenceRepo struct{ db *sql.DB }

func NewFenceRepo(db *sql.DB) *FenceRepo { return &FenceRepo{db: db} }

func (r *FenceRepo) Create(ctx context.Context, f *model.Fence) error {
	specs, err := json.Marshal(f.Specializations)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO fences (npc_id, faction_id, buy_rate, max_heat_level, daily_heat_capacity, daily_heat_used, specializations, cooldown_days)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.NPCID, nullStr(f.FactionID), f.BuyRate, string(f.MaxHeatLevel), f.DailyHeatCapacity, f.DailyHeatUsed, string(specs), f.CooldownDays)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *FenceRepo) FindByID(ctx context.Context, npcID string) (*model.Fence, error) {
	row := r.db.QueryRowContext(ctx, fenceSelect+` WHERE npc_id = ?`, npcID)
	f, err := scanFence(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("fence", npcID)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return f, nil
}

func (r *FenceRepo) List(ctx context.Context) ([]*model.Fence, error) {
	rows, err := r.db.QueryContext(ctx, fenceSelect)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Fence
	for rows.Next() {
		f, err := scanFence(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, f)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *FenceRepo) Update(ctx context.Context, f *model.Fence) error {
	specs, err := json.Marshal(f.Specializations)
	if err != nil {
		return apperr.Storage(err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE fences SET faction_id=?, buy_rate=?, max_heat_level=?, daily_heat_capacity=?, daily_heat_used=?, specializations=?, cooldown_days=? WHERE npc_id = ?`,
		nullStr(f.FactionID), f.BuyRate, string(f.MaxHeatLevel), f.DailyHeatCapacity, f.DailyHeatUsed, string(specs), f.CooldownDays, f.NPCID)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("fence", f.NPCID)
	}
	return nil
}

// ResetDailyCapacity zeroes daily_heat_used for every fence, called by decay.
func (r *FenceRepo) ResetDailyCapacity(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE fences SET daily_heat_used = 0`)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

const fenceSelect = `SELECT npc_id, faction_id, buy_rate, max_heat_level, daily_heat_capacity, daily_heat_used, specializations, cooldown_days FROM fences`

func scanFence(row interface{ Scan(...any) error }) (*model.Fence, error) {
	var f model.Fence
	var factionID sql.NullString
	var specs string
	if err := row.Scan(&f.NPCID, &factionID, &f.BuyRate, &f.MaxHeatLevel, &f.DailyHeatCapacity, &f.DailyHeatUsed, &specs, &f.CooldownDays); err != nil {
		return nil, err
	}
	f.FactionID = factionID.String
	_ = json.Unmarshal([]byte(specs), &f.Specializations)
	return &f, nil
}
