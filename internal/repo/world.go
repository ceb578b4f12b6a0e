package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type WorldRepo struct{ db *sql.DB }

func NewWorldRepo(db *sql.DB) *WorldRepo { return &WorldRepo{db: db} }

func (r *WorldRepo) Create(ctx context.Context, w *model.World) error {
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO worlds (id, name, seed, width, height, tile_cache, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Seed, w.Width, w.Height, nullBytes(w.TileCache),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *WorldRepo) FindByID(ctx context.Context, id string) (*model.World, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, seed, width, height, tile_cache, created_at, updated_at FROM worlds WHERE id = ?`, id)
	w, err := scanWorld(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("world", id)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return w, nil
}

func (r *WorldRepo) List(ctx context.Context) ([]*model.World, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, seed, width, height, tile_cache, created_at, updated_at FROM worlds ORDER BY created_at`)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.World
	for rows.Next() {
		w, err := scanWorld(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, w)
	}
	return out, apperr.Storage(rows.Err())
}

// InvalidateTileCache clears the derived tile-cache snapshot; called on any
// world mutation per spec section 3 ("invalidated on any world mutation").
func (r *WorldRepo) InvalidateTileCache(ctx context.Context, worldID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE worlds SET tile_cache = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), worldID)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *WorldRepo) SetTileCache(ctx context.Context, worldID string, blob []byte) error {
	_, err := r.db.ExecContext(ctx, `UPDATE worlds SET tile_cache = ? WHERE id = ?`, blob, worldID)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *WorldRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM worlds WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// SaveGenerated persists a freshly generated layout's Regions/Tiles/
// Structures/Rivers in one transaction.
func (r *WorldRepo) SaveGenerated(ctx context.Context, worldID string, regions []model.Region, tiles []model.Tile, structures []model.Structure, rivers []model.River) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, reg := range regions {
			data, err := json.Marshal(reg.Data)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO regions (id, world_id, name, data) VALUES (?, ?, ?, ?)`,
				reg.ID, worldID, reg.Name, string(data)); err != nil {
				return err
			}
		}
		for _, t := range tiles {
			data, err := json.Marshal(t.Data)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tiles (world_id, x, y, data) VALUES (?, ?, ?, ?)
				 ON CONFLICT(world_id, x, y) DO UPDATE SET data = excluded.data`,
				worldID, t.X, t.Y, string(data)); err != nil {
				return err
			}
		}
		for _, s := range structures {
			data, err := json.Marshal(s.Data)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO structures (id, world_id, data) VALUES (?, ?, ?)`,
				s.ID, worldID, string(data)); err != nil {
				return err
			}
		}
		for _, riv := range rivers {
			data, err := json.Marshal(riv.Data)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO rivers (id, world_id, data) VALUES (?, ?, ?)`,
				riv.ID, worldID, string(data)); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertTile writes or overwrites a single tile's data, the unit of mutation
// a map patch operates on (SPEC_FULL.md's DSL patching over World geography).
func (r *WorldRepo) UpsertTile(ctx context.Context, worldID string, x, y int, data map[string]any) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tiles (world_id, x, y, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(world_id, x, y) DO UPDATE SET data = excluded.data`,
		worldID, x, y, string(blob))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *WorldRepo) AddStructure(ctx context.Context, s model.Structure) error {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return apperr.Storage(err)
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO structures (id, world_id, data) VALUES (?, ?, ?)`,
		s.ID, s.WorldID, string(data)); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *WorldRepo) AddRegion(ctx context.Context, reg model.Region) error {
	data, err := json.Marshal(reg.Data)
	if err != nil {
		return apperr.Storage(err)
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO regions (id, world_id, name, data) VALUES (?, ?, ?, ?)`,
		reg.ID, reg.WorldID, reg.Name, string(data)); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *WorldRepo) ListTiles(ctx context.Context, worldID string) ([]model.Tile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT world_id, x, y, data FROM tiles WHERE world_id = ? ORDER BY y, x`, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []model.Tile
	for rows.Next() {
		var t model.Tile
		var data string
		if err := rows.Scan(&t.WorldID, &t.X, &t.Y, &data); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(data), &t.Data)
		out = append(out, t)
	}
	return out, apperr.Storage(rows.Err())
}

// TilesInRegion filters tiles by an (x0,y0)-(x1,y1) bounding box, used by
// get_region_map/get_world_tiles to avoid shipping the whole grid at once.
func (r *WorldRepo) TilesInRegion(ctx context.Context, worldID string, x0, y0, x1, y1 int) ([]model.Tile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT world_id, x, y, data FROM tiles WHERE world_id = ? AND x BETWEEN ? AND ? AND y BETWEEN ? AND ? ORDER BY y, x`,
		worldID, x0, x1, y0, y1)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []model.Tile
	for rows.Next() {
		var t model.Tile
		var data string
		if err := rows.Scan(&t.WorldID, &t.X, &t.Y, &data); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(data), &t.Data)
		out = append(out, t)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *WorldRepo) ListRegions(ctx context.Context, worldID string) ([]model.Region, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, world_id, name, data FROM regions WHERE world_id = ?`, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []model.Region
	for rows.Next() {
		var reg model.Region
		var data string
		if err := rows.Scan(&reg.ID, &reg.WorldID, &reg.Name, &data); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(data), &reg.Data)
		out = append(out, reg)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *WorldRepo) ListStructures(ctx context.Context, worldID string) ([]model.Structure, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, world_id, data FROM structures WHERE world_id = ?`, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []model.Structure
	for rows.Next() {
		var s model.Structure
		var data string
		if err := rows.Scan(&s.ID, &s.WorldID, &data); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(data), &s.Data)
		out = append(out, s)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *WorldRepo) ListRivers(ctx context.Context, worldID string) ([]model.River, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, world_id, data FROM rivers WHERE world_id = ?`, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []model.River
	for rows.Next() {
		var riv model.River
		var data string
		if err := rows.Scan(&riv.ID, &riv.WorldID, &data); err != nil {
			return nil, apperr.Storage(err)
		}
		_ = json.Unmarshal([]byte(data), &riv.Data)
		out = append(out, riv)
	}
	return out, apperr.Storage(rows.Err())
}

func scanWorld(row interface{ Scan(...any) error }) (*model.World, error) {
	var w model.World
	var tileCache []byte
	var createdAt, updatedAt string
	if err := row.Scan(&w.ID, &w.Name, &w.Seed, &w.Width, &w.Height, &tileCache, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.TileCache = tileCache
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		w.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		w.UpdatedAt = t
	}
	return &w, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
