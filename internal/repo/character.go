package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type CharacterRepo struct{ db *sql.DB }

func NewCharacterRepo(db *sql.DB) *CharacterRepo { return &CharacterRepo{db: db} }

func (r *CharacterRepo) Create(ctx context.Context, c *model.Character) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.HitDieSize == 0 {
		c.HitDieSize = 8
	}
	statsJSON, err := json.Marshal(c.Stats)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO characters (id, world_id, name, stats, hp, max_hp, ac, level, faction_id, behavior, character_type, hit_die_size, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullStr(c.WorldID), c.Name, string(statsJSON), c.HP, c.MaxHP, c.AC, c.Level,
		nullStr(c.FactionID), nullStr(c.Behavior), string(c.CharacterType), c.HitDieSize,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// CreateTx is Create scoped to an existing transaction, used by batch
// character/NPC creation so an entire roster commits atomically.
func CreateTx(ctx context.Context, tx *sql.Tx, c *model.Character) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.HitDieSize == 0 {
		c.HitDieSize = 8
	}
	statsJSON, err := json.Marshal(c.Stats)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO characters (id, world_id, name, stats, hp, max_hp, ac, level, faction_id, behavior, character_type, hit_die_size, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullStr(c.WorldID), c.Name, string(statsJSON), c.HP, c.MaxHP, c.AC, c.Level,
		nullStr(c.FactionID), nullStr(c.Behavior), string(c.CharacterType), c.HitDieSize,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	return err
}

func (r *CharacterRepo) FindByID(ctx context.Context, id string) (*model.Character, error) {
	row := r.db.QueryRowContext(ctx, characterSelect+` WHERE id = ?`, id)
	c, err := scanCharacter(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("character", id)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return c, nil
}

func (r *CharacterRepo) List(ctx context.Context, worldID string) ([]*model.Character, error) {
	var rows *sql.Rows
	var err error
	if worldID != "" {
		rows, err = r.db.QueryContext(ctx, characterSelect+` WHERE world_id = ? ORDER BY name`, worldID)
	} else {
		rows, err = r.db.QueryContext(ctx, characterSelect+` ORDER BY name`)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, c)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *CharacterRepo) Update(ctx context.Context, c *model.Character) error {
	c.UpdatedAt = time.Now().UTC()
	statsJSON, err := json.Marshal(c.Stats)
	if err != nil {
		return apperr.Storage(err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE characters SET name=?, stats=?, hp=?, max_hp=?, ac=?, level=?, faction_id=?, behavior=?, character_type=?, hit_die_size=?, updated_at=?
		 WHERE id = ?`,
		c.Name, string(statsJSON), c.HP, c.MaxHP, c.AC, c.Level, nullStr(c.FactionID), nullStr(c.Behavior),
		string(c.CharacterType), c.HitDieSize, c.UpdatedAt.Format(time.RFC3339Nano), c.ID)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("character", c.ID)
	}
	return nil
}

// UpdateHP is the narrow write-path combat and rest use; it avoids a
// read-modify-write race on the full row for the common "just change hp" case.
func (r *CharacterRepo) UpdateHP(ctx context.Context, id string, hp int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE characters SET hp = ?, updated_at = ? WHERE id = ?`,
		hp, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("character", id)
	}
	return nil
}

// UpdateHPTx is UpdateHP scoped to an existing transaction, used by encounter
// end write-back so every token's hp copy commits atomically.
func UpdateHPTx(ctx context.Context, tx *sql.Tx, id string, hp int) error {
	_, err := tx.ExecContext(ctx, `UPDATE characters SET hp = ?, updated_at = ? WHERE id = ?`,
		hp, time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

// FindByIDTx reads a character inside an existing transaction.
func FindByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Character, error) {
	row := tx.QueryRowContext(ctx, characterSelect+` WHERE id = ?`, id)
	c, err := scanCharacter(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("character", id)
	}
	return c, err
}

func (r *CharacterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

const characterSelect = `SELECT id, world_id, name, stats, hp, max_hp, ac, level, faction_id, behavior, character_type, hit_die_size, created_at, updated_at FROM characters`

func scanCharacter(row interface{ Scan(...any) error }) (*model.Character, error) {
	var c model.Character
	var worldID, factionID, behavior sql.NullString
	var statsJSON, createdAt, updatedAt string
	if err := row.Scan(&c.ID, &worldID, &c.Name, &statsJSON, &c.HP, &c.MaxHP, &c.AC, &c.Level,
		&factionID, &behavior, &c.CharacterType, &c.HitDieSize, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.WorldID = worldID.String
	c.FactionID = factionID.String
	c.Behavior = behavior.String
	_ = json.Unmarshal([]byte(statsJSON), &c.Stats)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}
