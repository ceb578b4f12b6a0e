// Package store opens the relational store backing every repository in
// internal/repo. It is grounded on the pure-Go modernc.org/sqlite driver and
// the WAL-pragma/init-schema pattern used by the retrieved voxelcraft.ai
// indexdb package, adapted to this project's table layout (section 6 of
// SPEC_FULL.md).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Store struct {
	DB *sql.DB
}

// Open creates (or attaches to) the sqlite database at dsn and ensures the
// schema exists. Pass "file::memory:?cache=shared" for an in-memory store
// under tests, per spec section 6 ("an in-memory store is selected when
// running under a test flag").
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty storage dsn")
	}
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create storage dir: %w", mkErr)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// In-memory stores with cache=shared still behave correctly under a
	// single connection; keep the pool small regardless, matching the
	// teacher's single-writer assumption for its replay store.
	db.SetMaxOpenConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS worlds (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			tile_cache BLOB,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS regions (
			id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tiles (
			world_id TEXT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (world_id, x, y)
		);`,
		`CREATE TABLE IF NOT EXISTS structures (
			id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			data TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rivers (
			id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			data TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS characters (
			id TEXT PRIMARY KEY,
			world_id TEXT REFERENCES worlds(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			stats TEXT NOT NULL,
			hp INTEGER NOT NULL,
			max_hp INTEGER NOT NULL,
			ac INTEGER NOT NULL,
			level INTEGER NOT NULL,
			faction_id TEXT,
			behavior TEXT,
			character_type TEXT NOT NULL,
			hit_die_size INTEGER NOT NULL DEFAULT 8,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			weight REAL NOT NULL,
			value INTEGER NOT NULL,
			properties TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			character_id TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			quantity INTEGER NOT NULL,
			equipped INTEGER NOT NULL DEFAULT 0,
			slot TEXT,
			PRIMARY KEY (character_id, item_id)
		);`,
		`CREATE TABLE IF NOT EXISTS encounters (
			id TEXT PRIMARY KEY,
			world_id TEXT REFERENCES worlds(id) ON DELETE CASCADE,
			round INTEGER NOT NULL,
			active_token_id TEXT,
			current_turn_index INTEGER NOT NULL,
			status TEXT NOT NULL,
			terrain TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS battlefield (
			encounter_id TEXT NOT NULL REFERENCES encounters(id) ON DELETE CASCADE,
			token_id TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (encounter_id, token_id)
		);`,
		`CREATE TABLE IF NOT EXISTS quests (
			id TEXT PRIMARY KEY,
			world_id TEXT REFERENCES worlds(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			objectives TEXT NOT NULL,
			rewards TEXT NOT NULL,
			prerequisites TEXT,
			giver TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS quest_logs (
			character_id TEXT PRIMARY KEY REFERENCES characters(id) ON DELETE CASCADE,
			active_quests TEXT NOT NULL,
			completed_quests TEXT NOT NULL,
			failed_quests TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS patches (
			id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			op TEXT NOT NULL,
			data TEXT NOT NULL,
			applied_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			actor_id TEXT,
			target_id TEXT,
			details TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS event_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			payload TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS calculations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			input TEXT,
			output TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turn_state (
			world_id TEXT PRIMARY KEY REFERENCES worlds(id) ON DELETE CASCADE,
			data TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS synthesized_spells (
			id TEXT PRIMARY KEY,
			character_id TEXT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			school TEXT,
			level INTEGER NOT NULL,
			effect_type TEXT,
			effect_dice TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS theft_records (
			item_id TEXT PRIMARY KEY,
			stolen_from TEXT NOT NULL,
			stolen_by TEXT NOT NULL,
			stolen_location TEXT,
			witnesses TEXT,
			heat_level TEXT NOT NULL,
			reported_to_guards INTEGER NOT NULL DEFAULT 0,
			bounty INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fences (
			npc_id TEXT PRIMARY KEY,
			faction_id TEXT,
			buy_rate REAL NOT NULL,
			max_heat_level TEXT NOT NULL,
			daily_heat_capacity INTEGER NOT NULL,
			daily_heat_used INTEGER NOT NULL DEFAULT 0,
			specializations TEXT,
			cooldown_days INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS custom_effects (
			id TEXT PRIMARY KEY,
			target_id TEXT NOT NULL,
			target_type TEXT NOT NULL,
			data TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec schema stmt: %w", err)
		}
	}
	return nil
}
