package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestSpellRepo_CreateListByCharacter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chars := NewCharacterRepo(s.DB)
	spells := NewSpellRepo(s.DB)

	require.NoError(t, chars.Create(ctx, newTestCharacter("wizard")))
	require.NoError(t, spells.Create(ctx, &model.SynthesizedSpell{
		ID: "s1", CharacterID: "wizard", Name: "Cinder Bolt", School: "evocation", Level: 2, EffectType: "damage", EffectDice: "3d6",
	}))

	list, err := spells.ListByCharacter(ctx, "wizard")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Cinder Bolt", list[0].Name)
	require.Equal(t, "3d6", list[0].EffectDice)
}
