package combatmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/combat"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/store"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewManager(repo.NewEncounterRepo(s.DB))
}

func TestCreate_PersistsAndCaches(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	roller := diceroll.New(1)

	enc, err := m.Create(ctx, "sess1", "enc1", "world1", []combat.Participant{
		{ID: "hero", Name: "Hero", HP: 10, MaxHP: 10},
		{ID: "goblin", Name: "Goblin", HP: 5, MaxHP: 5},
	}, roller)
	require.NoError(t, err)

	got, err := m.Get(ctx, "sess1", "enc1")
	require.NoError(t, err)
	require.Same(t, enc, got)
}

func TestSave_PersistsMutation(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	roller := diceroll.New(1)

	enc, err := m.Create(ctx, "sess1", "enc1", "world1", []combat.Participant{
		{ID: "hero", Name: "Hero", HP: 10, MaxHP: 10},
	}, roller)
	require.NoError(t, err)

	_, err = combat.Heal(enc, "hero", 0)
	require.NoError(t, err)
	enc.Round = 3
	require.NoError(t, m.Save(ctx, "sess1", enc))

	loaded, err := m.Get(ctx, "sess2", "enc1")
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Round)
}

func TestEnd_DropsCacheAndMarksCompleted(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	roller := diceroll.New(1)

	enc, err := m.Create(ctx, "sess1", "enc1", "world1", []combat.Participant{
		{ID: "hero", CharacterID: "", Name: "Hero", HP: 10, MaxHP: 10},
	}, roller)
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, "sess1", enc))
	require.Equal(t, model.EncounterCompleted, enc.Status)

	reloaded, err := m.Get(ctx, "sess1", "enc1")
	require.NoError(t, err)
	require.NotSame(t, enc, reloaded)
}
