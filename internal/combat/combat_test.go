package combat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestNewEncounter_RequiresParticipants(t *testing.T) {
	_, err := NewEncounter("e1", "w1", nil, diceroll.New(1))
	require.Error(t, err)
}

func TestNewEncounter_InitiativeStableDescendingSort(t *testing.T) {
	roller := diceroll.New(diceroll.SeedFrom("battle-1"))
	enc, err := NewEncounter("e1", "w1", []Participant{
		{ID: "hero", Name: "Hero", HP: 20, MaxHP: 20, InitBonus: 2},
		{ID: "goblin", Name: "Goblin", HP: 7, MaxHP: 7, InitBonus: 1},
	}, roller)
	require.NoError(t, err)
	require.Len(t, enc.Tokens, 2)
	require.True(t, enc.Tokens[0].Initiative >= enc.Tokens[1].Initiative)
	require.Equal(t, 1, enc.Round)
	require.Equal(t, enc.Tokens[0].ID, enc.ActiveTokenID)
	byID := map[string]*model.Token{}
	for _, tok := range enc.Tokens {
		byID[tok.ID] = tok
	}
	require.True(t, byID["goblin"].IsEnemy)
	require.False(t, byID["hero"].IsEnemy)
}

func TestClassifyEnemy_NameHeuristic(t *testing.T) {
	require.True(t, ClassifyEnemy("npc-1", "Goblin Scout"))
	require.False(t, ClassifyEnemy("pc-1", "Hero"))
}

func TestAttack_NaturalOneAutoMisses(t *testing.T) {
	enc := &model.Encounter{Tokens: []*model.Token{
		{ID: "hero", HP: 20, MaxHP: 20},
		{ID: "goblin", HP: 7, MaxHP: 7},
	}}
	roller := diceroll.New(0)
	for i := 0; i < 200; i++ {
		res, err := Attack(enc, roller, "hero", "goblin", 5, 12, 6)
		require.NoError(t, err)
		if res.Roll == 1 {
			require.True(t, res.AutoMiss)
			require.False(t, res.Hit)
			require.Equal(t, 0, res.DamageDealt)
			return
		}
	}
}

func TestAttack_NaturalTwentyDoublesDamage(t *testing.T) {
	enc := &model.Encounter{Tokens: []*model.Token{
		{ID: "hero", HP: 20, MaxHP: 20},
		{ID: "goblin", HP: 14, MaxHP: 14},
	}}
	roller := diceroll.New(0)
	for i := 0; i < 500; i++ {
		goblin := enc.Tokens[1]
		goblin.HP = 14
		goblin.Defeated = false
		res, err := Attack(enc, roller, "hero", "goblin", 5, 12, 6)
		require.NoError(t, err)
		if res.Critical {
			require.True(t, res.Hit)
			require.Equal(t, 12, res.DamageDealt)
			require.Equal(t, 2, res.TargetHP)
			return
		}
	}
	t.Fatal("no natural 20 observed in 500 rolls")
}

func TestAttack_DamageClampsAtZeroAndDefeats(t *testing.T) {
	enc := &model.Encounter{Tokens: []*model.Token{
		{ID: "hero", HP: 20, MaxHP: 20},
		{ID: "goblin", HP: 3, MaxHP: 7},
	}}
	roller := diceroll.New(0)
	// Force a guaranteed hit by giving an overwhelming attack bonus.
	res, err := Attack(enc, roller, "hero", "goblin", 100, 1, 10)
	require.NoError(t, err)
	require.True(t, res.Hit)
	require.Equal(t, 0, res.TargetHP)
	require.True(t, res.Defeated)
	require.True(t, enc.Tokens[1].Defeated)
}

func TestHeal_CapsAtMaxHP(t *testing.T) {
	enc := &model.Encounter{Tokens: []*model.Token{{ID: "hero", HP: 15, MaxHP: 20}}}
	res, err := Heal(enc, "hero", 100)
	require.NoError(t, err)
	require.Equal(t, 20, res.TargetHP)
	require.Equal(t, 5, res.AmountHealed)
}

func TestAdvanceTurn_SkipsDefeatedAndWrapsRound(t *testing.T) {
	enc := &model.Encounter{
		Status: model.EncounterActive,
		Round:  1,
		Tokens: []*model.Token{
			{ID: "a", HP: 10, MaxHP: 10},
			{ID: "b", HP: 0, MaxHP: 10, Defeated: true},
			{ID: "c", HP: 10, MaxHP: 10},
		},
	}
	res, err := AdvanceTurn(enc)
	require.NoError(t, err)
	require.Equal(t, "c", res.ActiveTokenID)
	require.False(t, res.RoundAdvanced)

	res, err = AdvanceTurn(enc)
	require.NoError(t, err)
	require.Equal(t, "a", res.ActiveTokenID)
	require.True(t, res.RoundAdvanced)
	require.Equal(t, 2, enc.Round)
}

func TestAdvanceTurn_EncounterOverWhenOneSideDefeated(t *testing.T) {
	enc := &model.Encounter{
		Status: model.EncounterActive,
		Tokens: []*model.Token{
			{ID: "hero", HP: 10, MaxHP: 10, IsEnemy: false},
			{ID: "goblin", HP: 0, MaxHP: 10, IsEnemy: true, Defeated: true},
		},
	}
	res, err := AdvanceTurn(enc)
	require.NoError(t, err)
	require.True(t, res.EncounterOver)
}

func TestAdvanceTurn_RejectsNonActiveEncounter(t *testing.T) {
	enc := &model.Encounter{Status: model.EncounterCompleted, Tokens: []*model.Token{{ID: "a"}}}
	_, err := AdvanceTurn(enc)
	require.Error(t, err)
}

func TestPauseResume(t *testing.T) {
	enc := &model.Encounter{Status: model.EncounterActive}
	require.NoError(t, Pause(enc))
	require.Equal(t, model.EncounterPaused, enc.Status)
	require.NoError(t, Resume(enc))
	require.Equal(t, model.EncounterActive, enc.Status)
	require.Error(t, Resume(enc))
}
