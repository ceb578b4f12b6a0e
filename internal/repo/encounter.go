package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type EncounterRepo struct{ db *sql.DB }

func NewEncounterRepo(db *sql.DB) *EncounterRepo { return &EncounterRepo{db: db} }

// Save persists the full encounter snapshot (header row plus one battlefield
// row per token) in a single transaction, matching the teacher's pattern of
// wrapping the token-blob write together with its owning row.
func (r *EncounterRepo) Save(ctx context.Context, enc *model.Encounter) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		terrain, err := marshalTerrain(enc.Terrain)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO encounters (id, world_id, round, active_token_id, current_turn_index, status, terrain)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET round=excluded.round, active_token_id=excluded.active_token_id,
			   current_turn_index=excluded.current_turn_index, status=excluded.status, terrain=excluded.terrain`,
			enc.ID, nullStr(enc.WorldID), enc.Round, nullStr(enc.ActiveTokenID), enc.CurrentIndex, string(enc.Status), terrain,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM battlefield WHERE encounter_id = ?`, enc.ID); err != nil {
			return err
		}
		for _, tok := range enc.Tokens {
			data, err := json.Marshal(tok)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO battlefield (encounter_id, token_id, data) VALUES (?, ?, ?)`,
				enc.ID, tok.ID, string(data)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EncounterRepo) FindByID(ctx context.Context, id string) (*model.Encounter, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, world_id, round, active_token_id, current_turn_index, status, terrain FROM encounters WHERE id = ?`, id)
	enc, err := scanEncounter(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("encounter", id)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	tokens, err := r.loadTokens(ctx, id)
	if err != nil {
		return nil, err
	}
	enc.Tokens = tokens
	return enc, nil
}

func (r *EncounterRepo) loadTokens(ctx context.Context, encounterID string) ([]*model.Token, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM battlefield WHERE encounter_id = ?`, encounterID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Token
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperr.Storage(err)
		}
		var tok model.Token
		if err := json.Unmarshal([]byte(data), &tok); err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, &tok)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *EncounterRepo) List(ctx context.Context, worldID string) ([]*model.Encounter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, world_id, round, active_token_id, current_turn_index, status, terrain FROM encounters WHERE world_id = ? OR ? = ''`,
		worldID, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Encounter
	for rows.Next() {
		enc, err := scanEncounter(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	for _, enc := range out {
		tokens, err := r.loadTokens(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		enc.Tokens = tokens
	}
	return out, nil
}

func (r *EncounterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM encounters WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// EndWithWriteBack copies each token's final hp into its persisted character
// record (when the token maps to one) and marks the encounter completed, all
// inside one transaction. This closes the canonical HP-desync failure mode.
func (r *EncounterRepo) EndWithWriteBack(ctx context.Context, enc *model.Encounter) error {
	enc.Status = model.EncounterCompleted
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, tok := range enc.Tokens {
			if tok.CharacterID == "" {
				continue // ad-hoc participant, silently skipped per spec 4.3
			}
			if _, err := FindByIDTx(ctx, tx, tok.CharacterID); err != nil {
				if e, ok := apperr.As(err); ok && e.Kind == apperr.KindNotFound {
					continue
				}
				return err
			}
			if err := UpdateHPTx(ctx, tx, tok.CharacterID, tok.HP); err != nil {
				return err
			}
		}
		terrain, err := marshalTerrain(enc.Terrain)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE encounters SET round=?, active_token_id=?, current_turn_index=?, status=?, terrain=? WHERE id = ?`,
			enc.Round, nullStr(enc.ActiveTokenID), enc.CurrentIndex, string(enc.Status), terrain, enc.ID)
		return err
	})
}

func marshalTerrain(t *model.Terrain) (any, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanEncounter(row interface{ Scan(...any) error }) (*model.Encounter, error) {
	var enc model.Encounter
	var worldID, activeTokenID, terrain sql.NullString
	if err := row.Scan(&enc.ID, &worldID, &enc.Round, &activeTokenID, &enc.CurrentIndex, &enc.Status, &terrain); err != nil {
		return nil, err
	}
	enc.WorldID = worldID.String
	enc.ActiveTokenID = activeTokenID.String
	if terrain.Valid && terrain.String != "" {
		var t model.Terrain
		if err := json.Unmarshal([]byte(terrain.String), &t); err == nil {
			enc.Terrain = &t
		}
	}
	return &enc, nil
}
