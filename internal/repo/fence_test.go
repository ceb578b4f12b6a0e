package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestFenceRepo_CreateUpdateResetDaily(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fences := NewFenceRepo(s.DB)

	f := &model.Fence{
		NPCID: "fagin", BuyRate: 0.4, MaxHeatLevel: model.HeatWarm,
		DailyHeatCapacity: 100, Specializations: []string{"jewelry"},
	}
	require.NoError(t, fences.Create(ctx, f))

	f.DailyHeatUsed = 60
	require.NoError(t, fences.Update(ctx, f))

	got, err := fences.FindByID(ctx, "fagin")
	require.NoError(t, err)
	require.Equal(t, 60, got.DailyHeatUsed)
	require.Equal(t, []string{"jewelry"}, got.Specializations)

	require.NoError(t, fences.ResetDailyCapacity(ctx))
	got, err = fences.FindByID(ctx, "fagin")
	require.NoError(t, err)
	require.Equal(t, 0, got.DailyHeatUsed)
}

func TestFenceRepo_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fences := NewFenceRepo(s.DB)

	require.NoError(t, fences.Create(ctx, &model.Fence{NPCID: "a", MaxHeatLevel: model.HeatCool, DailyHeatCapacity: 10}))
	require.NoError(t, fences.Create(ctx, &model.Fence{NPCID: "b", MaxHeatLevel: model.HeatHot, DailyHeatCapacity: 20}))

	list, err := fences.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
