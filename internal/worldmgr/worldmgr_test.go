package worldmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/store"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewManager(repo.NewWorldRepo(s.DB), repo.NewPatchRepo(s.DB))
}

func TestGenerate_PersistsAndCaches(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	w, err := m.Generate(ctx, "sess1", "Testworld", 42, 30, 30)
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)

	got, err := m.Get(ctx, "sess1", w.ID)
	require.NoError(t, err)
	require.Same(t, w, got) // served from cache, not re-hydrated
}

func TestGet_LoadsFromRepoOnCacheMiss(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	w, err := m.Generate(ctx, "sess1", "Testworld", 7, 20, 20)
	require.NoError(t, err)

	got, err := m.Get(ctx, "sess2", w.ID) // different session, never cached there
	require.NoError(t, err)
	require.Equal(t, w.ID, got.ID)
	require.NotSame(t, w, got)
}

func TestInvalidate_ForcesReload(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	w, err := m.Generate(ctx, "sess1", "Testworld", 7, 20, 20)
	require.NoError(t, err)

	m.Invalidate("sess1", w.ID)
	got, err := m.Get(ctx, "sess1", w.ID)
	require.NoError(t, err)
	require.NotSame(t, w, got)
}

func TestApplyPatch_SetTile(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	w, err := m.Generate(ctx, "sess1", "Testworld", 7, 20, 20)
	require.NoError(t, err)

	patch, err := m.ApplyPatch(ctx, "sess1", w.ID, PatchSetTile, map[string]any{"x": 1, "y": 2, "terrain": "lava"})
	require.NoError(t, err)
	require.NotEmpty(t, patch.ID)

	tiles, err := m.RegionTiles(ctx, w.ID, 1, 2, 1, 2)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	require.Equal(t, "lava", tiles[0].Data["terrain"])
}

func TestApplyPatch_UnknownOpRejected(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	w, err := m.Generate(ctx, "sess1", "Testworld", 7, 20, 20)
	require.NoError(t, err)

	_, err = m.ApplyPatch(ctx, "sess1", w.ID, "nonsense", nil)
	require.Error(t, err)
}

func TestPreviewPatch_DoesNotPersist(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	w, err := m.Generate(ctx, "sess1", "Testworld", 7, 20, 20)
	require.NoError(t, err)

	_, err = m.PreviewPatch(ctx, w.ID, PatchSetTile, map[string]any{"x": 5, "y": 5})
	require.NoError(t, err)

	tiles, err := m.RegionTiles(ctx, w.ID, 5, 5, 5, 5)
	require.NoError(t, err)
	require.Empty(t, tiles)
}

func TestOverview_ReportsCounts(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	w, err := m.Generate(ctx, "sess1", "Testworld", 7, 20, 20)
	require.NoError(t, err)

	ov, err := m.Overview(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, w.ID, ov.WorldID)
	require.Positive(t, ov.TileCount)
}
