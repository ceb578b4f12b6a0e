package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func newTestCharacter(id string) *model.Character {
	return &model.Character{
		ID:            id,
		Name:          "Vex",
		Stats:         model.Stats{Str: 14, Dex: 12, Con: 13, Int: 10, Wis: 10, Cha: 8},
		HP:            20,
		MaxHP:         20,
		AC:            15,
		Level:         3,
		CharacterType: model.CharacterPC,
	}
}

func TestCharacterRepo_CreateUpdateHP(t *testing.T) {
	s := newTestStore(t)
	repo := NewCharacterRepo(s.DB)
	ctx := context.Background()

	c := newTestCharacter("c1")
	require.NoError(t, repo.Create(ctx, c))
	require.Equal(t, 8, c.HitDieSize, "default hit die size should be applied on create")

	require.NoError(t, repo.UpdateHP(ctx, "c1", 5))
	got, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 5, got.HP)
	require.Equal(t, model.Stats{Str: 14, Dex: 12, Con: 13, Int: 10, Wis: 10, Cha: 8}, got.Stats)
}

func TestCharacterRepo_List_FiltersByWorld(t *testing.T) {
	s := newTestStore(t)
	worlds := NewWorldRepo(s.DB)
	repo := NewCharacterRepo(s.DB)
	ctx := context.Background()

	require.NoError(t, worlds.Create(ctx, &model.World{ID: "w1", Name: "x", Width: 1, Height: 1}))
	require.NoError(t, worlds.Create(ctx, &model.World{ID: "w2", Name: "y", Width: 1, Height: 1}))

	c1 := newTestCharacter("c1")
	c1.WorldID = "w1"
	c2 := newTestCharacter("c2")
	c2.WorldID = "w2"
	require.NoError(t, repo.Create(ctx, c1))
	require.NoError(t, repo.Create(ctx, c2))

	list, err := repo.List(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "c1", list[0].ID)
}
