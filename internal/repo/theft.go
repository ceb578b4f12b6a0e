package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type TheftRepo struct{ db *sql.DB }

func NewTheftRepo(db *sql.DB) *TheftRepo { return &TheftRepo{db: db} }

func (r *TheftRepo) Create(ctx context.Context, t *model.TheftRecord) error {
	t.CreatedAt = time.Now().UTC()
	witnesses, err := json.Marshal(t.Witnesses)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO theft_records (item_id, stolen_from, stolen_by, stolen_location, witnesses, heat_level, reported_to_guards, bounty, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ItemID, t.StolenFrom, t.StolenBy, nullStr(t.StolenLocation), string(witnesses), string(t.HeatLevel),
		t.ReportedToGuards, t.Bounty, t.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *TheftRepo) FindByItem(ctx context.Context, itemID string) (*model.TheftRecord, error) {
	row := r.db.QueryRowContext(ctx, theftSelect+` WHERE item_id = ?`, itemID)
	t, err := scanTheft(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("theftRecord", itemID)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return t, nil
}

// ByHolder lists open theft records for items a character currently holds,
// joined against inventory_items; used by search_character.
func (r *TheftRepo) ByHolder(ctx context.Context, characterID string) ([]*model.TheftRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tr.item_id, tr.stolen_from, tr.stolen_by, tr.stolen_location, tr.witnesses, tr.heat_level, tr.reported_to_guards, tr.bounty, tr.created_at
		 FROM theft_records tr JOIN inventory_items inv ON inv.item_id = tr.item_id
		 WHERE inv.character_id = ?`, characterID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.TheftRecord
	for rows.Next() {
		t, err := scanTheft(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, t)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *TheftRepo) Update(ctx context.Context, t *model.TheftRecord) error {
	witnesses, err := json.Marshal(t.Witnesses)
	if err != nil {
		return apperr.Storage(err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE theft_records SET stolen_location=?, witnesses=?, heat_level=?, reported_to_guards=?, bounty=? WHERE item_id = ?`,
		nullStr(t.StolenLocation), string(witnesses), string(t.HeatLevel), t.ReportedToGuards, t.Bounty, t.ItemID)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("theftRecord", t.ItemID)
	}
	return nil
}

// ListOpen returns every recorded theft, used by decay to advance heat
// across the whole ledger.
func (r *TheftRepo) ListOpen(ctx context.Context) ([]*model.TheftRecord, error) {
	rows, err := r.db.QueryContext(ctx, theftSelect)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.TheftRecord
	for rows.Next() {
		t, err := scanTheft(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, t)
	}
	return out, apperr.Storage(rows.Err())
}

// IsOpenVictim reports whether npcID is the stolen-from party of any record,
// enforcing invariant 4 (no NPC is simultaneously a fence and a theft victim).
func (r *TheftRepo) IsOpenVictim(ctx context.Context, npcID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM theft_records WHERE stolen_from = ?`, npcID).Scan(&n)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return n > 0, nil
}

const theftSelect = `SELECT item_id, stolen_from, stolen_by, stolen_location, witnesses, heat_level, reported_to_guards, bounty, created_at FROM theft_records`

func scanTheft(row interface{ Scan(...any) error }) (*model.TheftRecord, error) {
	var t model.TheftRecord
	var location sql.NullString
	var witnesses, createdAt string
	var reported int
	if err := row.Scan(&t.ItemID, &t.StolenFrom, &t.StolenBy, &location, &witnesses, &t.HeatLevel, &reported, &t.Bounty, &createdAt); err != nil {
		return nil, err
	}
	t.StolenLocation = location.String
	t.ReportedToGuards = reported != 0
	_ = json.Unmarshal([]byte(witnesses), &t.Witnesses)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return &t, nil
}
