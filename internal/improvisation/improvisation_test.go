package improvisation

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
	return New(characters, repo.NewEffectRepo(s.DB), repo.NewSpellRepo(s.DB)), characters
}

func TestAbilityForSkill_KnownAndFallback(t *testing.T) {
	require.Equal(t, "dex", abilityForSkill("stealth"))
	require.Equal(t, "str", abilityForSkill("nonexistent-skill"))
}

func TestStunt_NaturalOneIsCriticalFailure(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "hero", Stats: model.Stats{Str: 14}, HP: 20, MaxHP: 20}))

	roller := diceroll.New(0)
	for i := 0; i < 200; i++ {
		res, err := e.Stunt(ctx, roller, "hero", "athletics", 15, false, false, "", "2d6", nil)
		require.NoError(t, err)
		if res.Roll == 1 {
			require.True(t, res.CriticalFailure)
			require.False(t, res.Success)
			require.Greater(t, res.SelfDamage, 0)
			return
		}
	}
	t.Fatal("no natural 1 observed in 200 rolls")
}

func TestStunt_CriticalSuccessDoublesDamage(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "hero", Stats: model.Stats{Dex: 20}, HP: 20, MaxHP: 20}))

	roller := diceroll.New(0)
	for i := 0; i < 500; i++ {
		res, err := e.Stunt(ctx, roller, "hero", "acrobatics", 10, false, false, "1d1", "", nil)
		require.NoError(t, err)
		if res.CriticalSuccess {
			require.Equal(t, 2, res.DamageDealt)
			return
		}
	}
	t.Fatal("no critical success observed in 500 rolls")
}

func TestApplyEffect_RejectsOutOfRangePower(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.ApplyEffect(context.Background(), &model.CustomEffect{TargetID: "x", PowerLevel: 6})
	require.Error(t, err)
}

func TestAdvanceDurations_ExpiresAtZero(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	ef, err := e.ApplyEffect(ctx, &model.CustomEffect{TargetID: "goblin", Name: "burning", PowerLevel: 2, Duration: model.Duration{Type: model.DurationRounds, Value: 1}})
	require.NoError(t, err)

	res, err := e.AdvanceDurations(ctx, "goblin")
	require.NoError(t, err)
	require.Len(t, res.Expired, 1)
	require.Equal(t, ef.ID, res.Expired[0].ID)

	active, err := e.GetEffects(ctx, "goblin", "", "", true)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestProcessTriggers_MatchesByEventName(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	_, err := e.ApplyEffect(ctx, &model.CustomEffect{
		TargetID: "hero", Name: "vengeance", PowerLevel: 1,
		Duration: model.Duration{Type: model.DurationPermanent},
		Triggers: []model.Trigger{{Event: "on_hit"}},
	})
	require.NoError(t, err)

	matched, err := e.ProcessTriggers(ctx, "hero", "on_hit")
	require.NoError(t, err)
	require.Len(t, matched, 1)

	none, err := e.ProcessTriggers(ctx, "hero", "on_miss")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSynthesize_NaturalTwentyIsMastery(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "mage", Stats: model.Stats{Int: 18}, Level: 5, HP: 20, MaxHP: 20}))

	roller := diceroll.New(0)
	for i := 0; i < 500; i++ {
		res, err := e.Synthesize(ctx, roller, "mage", 3, "evocation", "damage", "3d6", SynthesisCircumstances{})
		require.NoError(t, err)
		if res.Roll == 20 {
			require.Equal(t, OutcomeMastery, res.Outcome)
			require.True(t, res.SpellMastered)
			require.False(t, res.SpellSlotConsumed)
			book, err := e.GetSpellbook(ctx, "mage")
			require.NoError(t, err)
			require.Len(t, book, 1)
			return
		}
	}
	t.Fatal("no natural 20 observed in 500 rolls")
}

func TestSynthesize_NaturalOneIsCatastrophicWithWildSurge(t *testing.T) {
	e, characters := newEngine(t)
	ctx := context.Background()
	require.NoError(t, characters.Create(ctx, &model.Character{ID: "mage", Stats: model.Stats{Int: 10}, Level: 1, HP: 20, MaxHP: 20}))

	roller := diceroll.New(0)
	for i := 0; i < 500; i++ {
		res, err := e.Synthesize(ctx, roller, "mage", 4, "necromancy", "damage", "", SynthesisCircumstances{})
		require.NoError(t, err)
		if res.Roll == 1 {
			require.Equal(t, OutcomeCatastrophic, res.Outcome)
			require.NotEmpty(t, res.WildSurgeEffect)
			return
		}
	}
	t.Fatal("no natural 1 observed in 500 rolls")
}
