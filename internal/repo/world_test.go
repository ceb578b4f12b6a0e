package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestWorldRepo_CreateAndFind(t *testing.T) {
	s := newTestStore(t)
	repo := NewWorldRepo(s.DB)
	ctx := context.Background()

	w := &model.World{ID: "w1", Name: "Ashfen Vale", Seed: 7, Width: 20, Height: 15}
	require.NoError(t, repo.Create(ctx, w))

	got, err := repo.FindByID(ctx, "w1")
	require.NoError(t, err)
	require.Equal(t, "Ashfen Vale", got.Name)
	require.False(t, got.CreatedAt.IsZero())
}

func TestWorldRepo_FindByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := NewWorldRepo(s.DB)

	_, err := repo.FindByID(context.Background(), "missing")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindNotFound, ae.Kind)
}

func TestWorldRepo_SetTileCache_InvalidateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	repo := NewWorldRepo(s.DB)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.World{ID: "w1", Name: "x", Seed: 1, Width: 5, Height: 5}))

	require.NoError(t, repo.SetTileCache(ctx, "w1", []byte{1, 2, 3}))
	got, err := repo.FindByID(ctx, "w1")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got.TileCache)

	require.NoError(t, repo.InvalidateTileCache(ctx, "w1"))
	got, err = repo.FindByID(ctx, "w1")
	require.NoError(t, err)
	require.Nil(t, got.TileCache)
}

func TestWorldRepo_SaveGenerated_TilesInRegion(t *testing.T) {
	s := newTestStore(t)
	repo := NewWorldRepo(s.DB)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.World{ID: "w1", Name: "x", Seed: 1, Width: 5, Height: 5}))

	tiles := []model.Tile{
		{WorldID: "w1", X: 0, Y: 0, Data: map[string]any{"isWall": false}},
		{WorldID: "w1", X: 4, Y: 4, Data: map[string]any{"isWall": true}},
	}
	require.NoError(t, repo.SaveGenerated(ctx, "w1", nil, tiles, nil, nil))

	in := repoMustTilesInRegion(t, repo, ctx, "w1", 0, 0, 1, 1)
	require.Len(t, in, 1)
	require.Equal(t, 0, in[0].X)
}

func repoMustTilesInRegion(t *testing.T, r *WorldRepo, ctx context.Context, worldID string, x0, y0, x1, y1 int) []model.Tile {
	t.Helper()
	out, err := r.TilesInRegion(ctx, worldID, x0, y0, x1, y1)
	require.NoError(t, err)
	return out
}
