package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestInventoryRepo_Transfer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chars := NewCharacterRepo(s.DB)
	items := NewItemRepo(s.DB)
	inv := NewInventoryRepo(s.DB)

	require.NoError(t, chars.Create(ctx, newTestCharacter("src")))
	require.NoError(t, chars.Create(ctx, newTestCharacter("dst")))
	require.NoError(t, items.Create(ctx, &model.Item{ID: "torch", Name: "Torch", Type: model.ItemMisc, Weight: 1, Value: 1}))
	require.NoError(t, inv.Upsert(ctx, &model.InventoryEntry{CharacterID: "src", ItemID: "torch", Quantity: 3}))

	require.NoError(t, inv.Transfer(ctx, "src", "dst", "torch", 2))

	srcEntry, err := inv.Get(ctx, "src", "torch")
	require.NoError(t, err)
	require.Equal(t, 1, srcEntry.Quantity)

	dstEntry, err := inv.Get(ctx, "dst", "torch")
	require.NoError(t, err)
	require.Equal(t, 2, dstEntry.Quantity)

	// Transferring the remaining unit removes the source row entirely.
	require.NoError(t, inv.Transfer(ctx, "src", "dst", "torch", 1))
	_, err = inv.Get(ctx, "src", "torch")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindNotFound, ae.Kind)
}

func TestInventoryRepo_Transfer_InsufficientQuantity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chars := NewCharacterRepo(s.DB)
	items := NewItemRepo(s.DB)
	inv := NewInventoryRepo(s.DB)

	require.NoError(t, chars.Create(ctx, newTestCharacter("src")))
	require.NoError(t, chars.Create(ctx, newTestCharacter("dst")))
	require.NoError(t, items.Create(ctx, &model.Item{ID: "torch", Name: "Torch", Type: model.ItemMisc, Weight: 1, Value: 1}))
	require.NoError(t, inv.Upsert(ctx, &model.InventoryEntry{CharacterID: "src", ItemID: "torch", Quantity: 1}))

	err := inv.Transfer(ctx, "src", "dst", "torch", 5)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindInvariant, ae.Kind)
}

func TestInventoryRepo_Transfer_EquippedRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chars := NewCharacterRepo(s.DB)
	items := NewItemRepo(s.DB)
	inv := NewInventoryRepo(s.DB)

	require.NoError(t, chars.Create(ctx, newTestCharacter("src")))
	require.NoError(t, chars.Create(ctx, newTestCharacter("dst")))
	require.NoError(t, items.Create(ctx, &model.Item{ID: "sword", Name: "Sword", Type: model.ItemWeapon, Weight: 3, Value: 10}))
	require.NoError(t, inv.Upsert(ctx, &model.InventoryEntry{CharacterID: "src", ItemID: "sword", Quantity: 1, Equipped: true, Slot: "mainHand"}))

	err := inv.Transfer(ctx, "src", "dst", "sword", 1)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindInvariant, ae.Kind)
}
