package batch

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
	return New(s.DB, repo.NewCharacterRepo(s.DB), repo.NewItemRepo(s.DB), repo.NewInventoryRepo(s.DB),
		repo.NewTurnStateRepo(s.DB), repo.NewCalculationRepo(s.DB))
}

func TestCreateCharacters_FromTemplate(t *testing.T) {
	e := newEngine(t)
	out, err := e.CreateCharacters(context.Background(), []CharacterSpec{
		{Name: "Lyra", TemplateID: "veteran-adventurer"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, model.CharacterPC, out[0].CharacterType)
	require.Equal(t, 24, out[0].HP)
	require.Equal(t, 24, out[0].MaxHP)
}

func TestCreateCharacters_UnknownTemplateRejected(t *testing.T) {
	e := newEngine(t)
	_, err := e.CreateCharacters(context.Background(), []CharacterSpec{{Name: "X", TemplateID: "nope"}})
	require.Error(t, err)
}

func TestCreateCharacters_AtomicOnPartialFailure(t *testing.T) {
	e := newEngine(t)
	_, err := e.CreateCharacters(context.Background(), []CharacterSpec{
		{Name: "Good", TemplateID: "commoner"},
		{Name: "Bad", TemplateID: "does-not-exist"},
	})
	require.Error(t, err)

	list, err := e.characters.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreateNPCs_SetsNPCType(t *testing.T) {
	e := newEngine(t)
	out, err := e.CreateNPCs(context.Background(), []CharacterSpec{{Name: "Guard1", TemplateID: "guard"}})
	require.NoError(t, err)
	require.Equal(t, model.CharacterNPC, out[0].CharacterType)
}

func TestDistributeItems_IncrementsEachCharacter(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.items.Create(ctx, &model.Item{ID: "torch", Name: "Torch", Type: model.ItemMisc, Value: 1}))

	chars, err := e.CreateCharacters(ctx, []CharacterSpec{{Name: "A", TemplateID: "commoner"}, {Name: "B", TemplateID: "commoner"}})
	require.NoError(t, err)

	ids := []string{chars[0].ID, chars[1].ID}
	res, err := e.DistributeItems(ctx, "torch", 3, ids)
	require.NoError(t, err)
	require.Equal(t, 3, res.Quantity)

	entry, err := e.inventory.Get(ctx, chars[0].ID, "torch")
	require.NoError(t, err)
	require.Equal(t, 3, entry.Quantity)
}

func TestDistributeItems_RejectsUnknownItem(t *testing.T) {
	e := newEngine(t)
	_, err := e.DistributeItems(context.Background(), "missing", 1, []string{"a"})
	require.Error(t, err)
}

func TestExecuteWorkflow_AdvancesAndCompletes(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	roller := diceroll.New(42)

	r1, err := e.ExecuteWorkflow(ctx, roller, "world-1", "ambush-encounter-setup")
	require.NoError(t, err)
	require.Equal(t, 0, r1.StepIndex)
	require.False(t, r1.Complete)

	r2, err := e.ExecuteWorkflow(ctx, roller, "world-1", "ambush-encounter-setup")
	require.NoError(t, err)
	require.Equal(t, 1, r2.StepIndex)
	require.True(t, r2.Complete)

	_, err = e.ExecuteWorkflow(ctx, roller, "world-1", "ambush-encounter-setup")
	require.Error(t, err)
}

func TestExecuteWorkflow_UnknownTemplateRejected(t *testing.T) {
	e := newEngine(t)
	_, err := e.ExecuteWorkflow(context.Background(), diceroll.New(1), "world-1", "nope")
	require.Error(t, err)
}

func TestListAndGetTemplate(t *testing.T) {
	all := ListTemplates("")
	require.NotEmpty(t, all)

	kind, tmpl, err := GetTemplate("commoner")
	require.NoError(t, err)
	require.Equal(t, "character", kind)
	require.NotNil(t, tmpl)

	_, _, err = GetTemplate("nope")
	require.Error(t, err)
}
