package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestTheftRepo_CreateFindUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	theft := NewTheftRepo(s.DB)

	rec := &model.TheftRecord{
		ItemID:     "ring1",
		StolenFrom: "baron",
		StolenBy:   "rogue",
		HeatLevel:  model.HeatBurning,
		Witnesses:  []string{"guard1"},
	}
	require.NoError(t, theft.Create(ctx, rec))

	got, err := theft.FindByItem(ctx, "ring1")
	require.NoError(t, err)
	require.Equal(t, model.HeatBurning, got.HeatLevel)
	require.Equal(t, []string{"guard1"}, got.Witnesses)

	got.HeatLevel = model.StepCooler(got.HeatLevel)
	require.NoError(t, theft.Update(ctx, got))

	reloaded, err := theft.FindByItem(ctx, "ring1")
	require.NoError(t, err)
	require.Equal(t, model.HeatHot, reloaded.HeatLevel)
}

func TestTheftRepo_IsOpenVictim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	theft := NewTheftRepo(s.DB)

	open, err := theft.IsOpenVictim(ctx, "baron")
	require.NoError(t, err)
	require.False(t, open)

	require.NoError(t, theft.Create(ctx, &model.TheftRecord{
		ItemID: "ring1", StolenFrom: "baron", StolenBy: "rogue", HeatLevel: model.HeatWarm,
	}))

	open, err = theft.IsOpenVictim(ctx, "baron")
	require.NoError(t, err)
	require.True(t, open)
}

func TestTheftRepo_ByHolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chars := NewCharacterRepo(s.DB)
	items := NewItemRepo(s.DB)
	inv := NewInventoryRepo(s.DB)
	theft := NewTheftRepo(s.DB)

	require.NoError(t, chars.Create(ctx, newTestCharacter("rogue")))
	require.NoError(t, items.Create(ctx, &model.Item{ID: "ring1", Name: "Signet Ring", Type: model.ItemMisc, Value: 50}))
	require.NoError(t, inv.Upsert(ctx, &model.InventoryEntry{CharacterID: "rogue", ItemID: "ring1", Quantity: 1}))
	require.NoError(t, theft.Create(ctx, &model.TheftRecord{
		ItemID: "ring1", StolenFrom: "baron", StolenBy: "rogue", HeatLevel: model.HeatWarm,
	}))

	list, err := theft.ByHolder(ctx, "rogue")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "ring1", list[0].ItemID)
}
