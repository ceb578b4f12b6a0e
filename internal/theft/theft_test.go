package theft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/store"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(repo.NewTheftRepo(s.DB), repo.NewFenceRepo(s.DB))
}

func TestSteal_RejectsSelfTheft(t *testing.T) {
	e := newEngine(t)
	_, err := e.Steal(context.Background(), "A", "A", "x", "", nil)
	require.Error(t, err)
}

func TestSteal_CreatesBurningRecord(t *testing.T) {
	e := newEngine(t)
	rec, err := e.Steal(context.Background(), "rogue", "baron", "ring1", "market", []string{"guard1"})
	require.NoError(t, err)
	require.Equal(t, model.HeatBurning, rec.HeatLevel)

	got, err := e.Check(context.Background(), "ring1")
	require.NoError(t, err)
	require.Equal(t, "baron", got.StolenFrom)
}

func TestRecognize_VictimAlwaysHostile(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, err := e.Steal(ctx, "rogue", "baron", "ring1", "", nil)
	require.NoError(t, err)

	res, err := e.Recognize(ctx, diceroll.New(1), "baron", "ring1")
	require.NoError(t, err)
	require.True(t, res.Recognized)
	require.Equal(t, "hostile", res.Reaction)
}

func TestRecognize_WitnessAlwaysSuspicious(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, err := e.Steal(ctx, "rogue", "baron", "ring1", "", []string{"guard1"})
	require.NoError(t, err)

	res, err := e.Recognize(ctx, diceroll.New(1), "guard1", "ring1")
	require.NoError(t, err)
	require.True(t, res.Recognized)
	require.Equal(t, "suspicious", res.Reaction)
}

func TestRegisterFence_RejectsOpenVictim(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, mustSteal(e, ctx, "rogue", "baron", "ring1"))

	err := e.RegisterFence(ctx, &model.Fence{NPCID: "baron", BuyRate: 0.5, MaxHeatLevel: model.HeatCold, DailyHeatCapacity: 100})
	require.Error(t, err)
}

func TestSell_RejectsTooHotItem(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, mustSteal(e, ctx, "rogue", "baron", "ring1"))
	require.NoError(t, e.fence.Create(ctx, &model.Fence{NPCID: "fence1", BuyRate: 0.6, MaxHeatLevel: model.HeatCool, DailyHeatCapacity: 100}))

	res, err := e.Sell(ctx, "rogue", "fence1", "ring1", 100)
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Contains(t, res.Reason, "too hot")
}

func TestSell_AcceptsWithinCapacityAndDiscountsBurning(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, mustSteal(e, ctx, "rogue", "baron", "ring1"))
	require.NoError(t, e.fence.Create(ctx, &model.Fence{NPCID: "fence1", BuyRate: 1.0, MaxHeatLevel: model.HeatBurning, DailyHeatCapacity: 100}))

	res, err := e.Sell(ctx, "rogue", "fence1", "ring1", 100)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.LessOrEqual(t, res.Price, 50.0) // burning <= 0.5x rate

	f, err := e.GetFence(ctx, "fence1")
	require.NoError(t, err)
	require.Equal(t, 80, f.DailyHeatUsed)
}

func TestDecay_StepsHeatAndResetsCapacity(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, mustSteal(e, ctx, "rogue", "baron", "ring1"))
	require.NoError(t, e.fence.Create(ctx, &model.Fence{NPCID: "fence1", BuyRate: 1.0, MaxHeatLevel: model.HeatBurning, DailyHeatCapacity: 100, DailyHeatUsed: 40}))

	res, err := e.Decay(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 1, res.RecordsAdvanced)

	rec, err := e.Check(ctx, "ring1")
	require.NoError(t, err)
	require.Equal(t, model.HeatCold, rec.HeatLevel)

	f, err := e.GetFence(ctx, "fence1")
	require.NoError(t, err)
	require.Equal(t, 0, f.DailyHeatUsed)
}

func mustSteal(e *Engine, ctx context.Context, thief, victim, item string) error {
	_, err := e.Steal(ctx, thief, victim, item, "", nil)
	return err
}
