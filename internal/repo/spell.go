package repo

import (
	"context"
	"database/sql"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type SpellRepo struct{ db *sql.DB }

func NewSpellRepo(db *sql.DB) *SpellRepo { return &SpellRepo{db: db} }

func (r *SpellRepo) Create(ctx context.Context, s *model.SynthesizedSpell) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO synthesized_spells (id, character_id, name, school, level, effect_type, effect_dice) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CharacterID, s.Name, nullStr(s.School), s.Level, nullStr(s.EffectType), nullStr(s.EffectDice))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *SpellRepo) ListByCharacter(ctx context.Context, characterID string) ([]*model.SynthesizedSpell, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, character_id, name, school, level, effect_type, effect_dice FROM synthesized_spells WHERE character_id = ? ORDER BY level`,
		characterID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.SynthesizedSpell
	for rows.Next() {
		var s model.SynthesizedSpell
		var school, effectType, effectDice sql.NullString
		if err := rows.Scan(&s.ID, &s.CharacterID, &s.Name, &school, &s.Level, &effectType, &effectDice); err != nil {
			return nil, apperr.Storage(err)
		}
		s.School, s.EffectType, s.EffectDice = school.String, effectType.String, effectDice.String
		out = append(out, &s)
	}
	return out, apperr.Storage(rows.Err())
}
