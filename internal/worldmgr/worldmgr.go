// Package worldmgr is the in-memory runtime cache of generated worlds,
// keyed by sessionId:worldId per SPEC_FULL.md section 4 ("in-memory managers
// cache runtime objects... reconstructible from persisted state"). The
// relational store (internal/repo.WorldRepo) remains the source of truth;
// this cache only spares a repeat caller the cost of re-hydrating a
// recently touched world.
package worldmgr

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
	"github.com/Mnehmos/mnehmos.rpg.mcp/pkg/dungeon"
)

// Supported apply_map_patch/preview_map_patch DSL operations. spec.md names
// "DSL patching" in the tool catalogue (section 6) but designs no op set;
// this is this rewrite's own resolution, grounded on the rows
// pkg/dungeon.Generate already produces (tiles, structures, regions) — see
// DESIGN.md's Open Question entry for the World map engine.
const (
	PatchSetTile      = "set_tile"
	PatchAddStructure = "add_structure"
	PatchAddRegion    = "add_region"
)

type Manager struct {
	worlds  *repo.WorldRepo
	patches *repo.PatchRepo

	mu    sync.Mutex
	cache map[string]*model.World
}

func NewManager(worlds *repo.WorldRepo, patches *repo.PatchRepo) *Manager {
	return &Manager{worlds: worlds, patches: patches, cache: make(map[string]*model.World)}
}

func key(sessionID, worldID string) string { return sessionID + ":" + worldID }

// Generate carves a fresh layout via pkg/dungeon, persists the world row and
// every derived geography row in one transaction, and seeds the cache entry
// for sessionID.
func (m *Manager) Generate(ctx context.Context, sessionID, name string, seed int64, width, height int) (*model.World, error) {
	w := &model.World{ID: uuid.NewString(), Name: name, Seed: seed, Width: width, Height: height}
	if err := m.worlds.Create(ctx, w); err != nil {
		return nil, err
	}
	gen := dungeon.Generate(w.ID, seed, width, height)
	if err := m.worlds.SaveGenerated(ctx, w.ID, gen.Regions, gen.Tiles, gen.Structures, gen.Rivers); err != nil {
		return nil, err
	}
	m.put(sessionID, w)
	return w, nil
}

// Get returns the cached world for (sessionID, worldID) if present,
// otherwise loads and caches it from the repository.
func (m *Manager) Get(ctx context.Context, sessionID, worldID string) (*model.World, error) {
	m.mu.Lock()
	w, ok := m.cache[key(sessionID, worldID)]
	m.mu.Unlock()
	if ok {
		return w, nil
	}
	w, err := m.worlds.FindByID(ctx, worldID)
	if err != nil {
		return nil, err
	}
	m.put(sessionID, w)
	return w, nil
}

func (m *Manager) put(sessionID string, w *model.World) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key(sessionID, w.ID)] = w
}

// Invalidate drops sessionID's cached copy of worldID, forcing the next Get
// to re-hydrate from the repository. Call after any world mutation
// (apply_map_patch) per the tile-cache invalidation rule in spec section 3.
func (m *Manager) Invalidate(sessionID, worldID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key(sessionID, worldID))
}

// validatePatch checks a patch's op/data shape without writing anything,
// shared by PreviewPatch and ApplyPatch so a preview can never diverge from
// what apply would actually accept.
func validatePatch(op string, data map[string]any) error {
	switch op {
	case PatchSetTile:
		if _, ok := data["x"]; !ok {
			return apperr.Validation("set_tile patch requires x", map[string]any{"op": op})
		}
		if _, ok := data["y"]; !ok {
			return apperr.Validation("set_tile patch requires y", map[string]any{"op": op})
		}
	case PatchAddStructure, PatchAddRegion:
		// any data shape is accepted; structures/regions carry an opaque
		// designer-defined payload (model.Structure.Data/model.Region.Data).
	default:
		return apperr.Validation("unknown patch op", map[string]any{"op": op})
	}
	return nil
}

func coordFromData(data map[string]any) (int, int) {
	toInt := func(v any) int {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		default:
			return 0
		}
	}
	return toInt(data["x"]), toInt(data["y"])
}

// PreviewPatch validates a patch without persisting it or touching the tile
// cache, so a caller can check a DSL op is well-formed before committing to
// ApplyPatch.
func (m *Manager) PreviewPatch(ctx context.Context, worldID, op string, data map[string]any) (*model.Patch, error) {
	if _, err := m.worlds.FindByID(ctx, worldID); err != nil {
		return nil, err
	}
	if err := validatePatch(op, data); err != nil {
		return nil, err
	}
	return &model.Patch{WorldID: worldID, Op: op, Data: data}, nil
}

// ApplyPatch validates, applies, and records a DSL patch: set_tile upserts
// one tile row, add_structure/add_region append a new geography row. Any
// successful apply invalidates both the world's persisted tile_cache column
// (spec section 3: "invalidated on any world mutation") and this manager's
// in-process cache entry for worldID, across every session — a map mutation
// is visible to all sessions sharing the world, unlike the per-session
// Generate/Get caching.
func (m *Manager) ApplyPatch(ctx context.Context, sessionID, worldID, op string, data map[string]any) (*model.Patch, error) {
	if _, err := m.worlds.FindByID(ctx, worldID); err != nil {
		return nil, err
	}
	if err := validatePatch(op, data); err != nil {
		return nil, err
	}

	switch op {
	case PatchSetTile:
		x, y := coordFromData(data)
		if err := m.worlds.UpsertTile(ctx, worldID, x, y, data); err != nil {
			return nil, err
		}
	case PatchAddStructure:
		if err := m.worlds.AddStructure(ctx, model.Structure{ID: uuid.NewString(), WorldID: worldID, Data: data}); err != nil {
			return nil, err
		}
	case PatchAddRegion:
		name, _ := data["name"].(string)
		if err := m.worlds.AddRegion(ctx, model.Region{ID: uuid.NewString(), WorldID: worldID, Name: name, Data: data}); err != nil {
			return nil, err
		}
	}

	if err := m.worlds.InvalidateTileCache(ctx, worldID); err != nil {
		return nil, err
	}
	patch := &model.Patch{ID: uuid.NewString(), WorldID: worldID, Op: op, Data: data}
	if err := m.patches.Record(ctx, patch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	for k, cached := range m.cache {
		if cached.ID == worldID {
			delete(m.cache, k)
		}
	}
	m.mu.Unlock()
	return patch, nil
}

// Overview is the get_world_map_overview projection: counts rather than full
// row bodies, cheap enough to call on every scene transition.
type Overview struct {
	WorldID         string `json:"worldId"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	RegionCount     int    `json:"regionCount"`
	StructureCount  int    `json:"structureCount"`
	RiverCount      int    `json:"riverCount"`
	TileCount       int    `json:"tileCount"`
}

func (m *Manager) Overview(ctx context.Context, worldID string) (*Overview, error) {
	w, err := m.worlds.FindByID(ctx, worldID)
	if err != nil {
		return nil, err
	}
	regions, err := m.worlds.ListRegions(ctx, worldID)
	if err != nil {
		return nil, err
	}
	structures, err := m.worlds.ListStructures(ctx, worldID)
	if err != nil {
		return nil, err
	}
	rivers, err := m.worlds.ListRivers(ctx, worldID)
	if err != nil {
		return nil, err
	}
	tiles, err := m.worlds.ListTiles(ctx, worldID)
	if err != nil {
		return nil, err
	}
	return &Overview{
		WorldID:        worldID,
		Width:          w.Width,
		Height:         w.Height,
		RegionCount:    len(regions),
		StructureCount: len(structures),
		RiverCount:     len(rivers),
		TileCount:      len(tiles),
	}, nil
}

// RegionTiles is get_region_map: every tile whose coordinates fall in the
// requested bounding box.
func (m *Manager) RegionTiles(ctx context.Context, worldID string, x0, y0, x1, y1 int) ([]model.Tile, error) {
	if _, err := m.worlds.FindByID(ctx, worldID); err != nil {
		return nil, err
	}
	return m.worlds.TilesInRegion(ctx, worldID, x0, y0, x1, y1)
}

// WorldTiles is get_world_tiles: the full tile grid. Callers needing this
// repeatedly should prefer the gzip tile_cache snapshot (pkg/dungeon.
// CompressTiles/DecompressTiles) over re-querying every row each time.
func (m *Manager) WorldTiles(ctx context.Context, worldID string) ([]model.Tile, error) {
	if _, err := m.worlds.FindByID(ctx, worldID); err != nil {
		return nil, err
	}
	return m.worlds.ListTiles(ctx, worldID)
}
