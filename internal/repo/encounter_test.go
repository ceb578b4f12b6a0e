package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestEncounterRepo_SaveAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := NewEncounterRepo(s.DB)

	enc := &model.Encounter{
		ID:     "e1",
		Round:  1,
		Status: model.EncounterActive,
		Tokens: []*model.Token{
			{ID: "t1", Name: "Hero", HP: 20, MaxHP: 20, AC: 15, Initiative: 18},
			{ID: "t2", Name: "Goblin", HP: 7, MaxHP: 7, AC: 12, Initiative: 9, IsEnemy: true},
		},
	}
	require.NoError(t, repo.Save(ctx, enc))

	got, err := repo.FindByID(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got.Tokens, 2)
	require.Equal(t, model.EncounterActive, got.Status)
}

func TestEncounterRepo_EndWithWriteBack_CopiesHPAndSkipsAdHoc(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chars := NewCharacterRepo(s.DB)
	enc := NewEncounterRepo(s.DB)

	hero := newTestCharacter("hero")
	require.NoError(t, chars.Create(ctx, hero))

	encounter := &model.Encounter{
		ID:     "e1",
		Round:  3,
		Status: model.EncounterActive,
		Tokens: []*model.Token{
			{ID: "t1", CharacterID: "hero", Name: "Hero", HP: 6, MaxHP: 20, AC: 15},
			{ID: "t2", Name: "Ad-hoc Bandit", HP: 0, MaxHP: 10, AC: 12, IsEnemy: true, Defeated: true},
		},
	}
	require.NoError(t, enc.Save(ctx, encounter))
	require.NoError(t, enc.EndWithWriteBack(ctx, encounter))

	persisted, err := chars.FindByID(ctx, "hero")
	require.NoError(t, err)
	require.Equal(t, 6, persisted.HP)

	reloaded, err := enc.FindByID(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, model.EncounterCompleted, reloaded.Status)
}
