package rest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/store"
)

func newEngine(t *testing.T) (*Engine, *repo.CharacterRepo) {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	characters := repo.NewCharacterRepo(s.DB)
	return New(characters), characters
}

func TestCreateCharacter_DefaultsHPToMaxHP(t *testing.T) {
	e, _ := newEngine(t)
	c, err := e.CreateCharacter(context.Background(), &model.Character{Name: "Hero", MaxHP: 25})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.Equal(t, 25, c.HP)
}

func TestLongRest_RestoresToMaxHP(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "hero", HP: 3, MaxHP: 30}))

	res, err := e.LongRest(ctx, "hero")
	require.NoError(t, err)
	require.Equal(t, 3, res.PreviousHP)
	require.Equal(t, 30, res.NewHP)
}

func TestShortRest_CapsAtMaxHPAndFloorsAtOnePerDie(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "hero", HP: 28, MaxHP: 30, HitDieSize: 8, Stats: model.Stats{Con: 6}}))

	res, err := e.ShortRest(ctx, diceroll.New(1), "hero", 3)
	require.NoError(t, err)
	require.Len(t, res.Rolls, 3)
	require.LessOrEqual(t, res.AmountHealed, 2)
	require.Equal(t, 28+res.AmountHealed, res.NewHP)
}

func TestShortRest_ClampsNegativeHitDice(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "hero", HP: 10, MaxHP: 30}))

	res, err := e.ShortRest(ctx, diceroll.New(1), "hero", -5)
	require.NoError(t, err)
	require.Empty(t, res.Rolls)
	require.Equal(t, 10, res.NewHP)
}

func TestTransfer_RejectsNonPositiveQuantity(t *testing.T) {
	s, err := store.Open("file:transfer-test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer s.Close()
	err = Transfer(context.Background(), repo.NewInventoryRepo(s.DB), "a", "b", "item1", 0)
	require.Error(t, err)
}
