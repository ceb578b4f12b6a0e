// Package combatmgr is the in-memory runtime cache of active encounters,
// keyed by sessionId:encounterId per SPEC_FULL.md section 4. A combat
// handler round-trips through Get/Save so internal/combat's pure functions
// never need to know about persistence, and internal/repo.EncounterRepo
// remains the source of truth on process restart.
package combatmgr

import (
	"context"
	"sync"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/combat"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
)

type Manager struct {
	encounters *repo.EncounterRepo

	mu    sync.Mutex
	cache map[string]*model.Encounter
}

func NewManager(encounters *repo.EncounterRepo) *Manager {
	return &Manager{encounters: encounters, cache: make(map[string]*model.Encounter)}
}

func key(sessionID, encounterID string) string { return sessionID + ":" + encounterID }

// Create rolls initiative via internal/combat.NewEncounter, persists the
// resulting snapshot, and seeds the cache entry for sessionID.
func (m *Manager) Create(ctx context.Context, sessionID, id, worldID string, participants []combat.Participant, roller *diceroll.Roller) (*model.Encounter, error) {
	enc, err := combat.NewEncounter(id, worldID, participants, roller)
	if err != nil {
		return nil, err
	}
	if err := m.encounters.Save(ctx, enc); err != nil {
		return nil, err
	}
	m.put(sessionID, enc)
	return enc, nil
}

// Get returns the cached encounter for (sessionID, encounterID) if present,
// otherwise loads it from the repository (e.g. load_encounter, or a fresh
// session resuming an encounter started elsewhere).
func (m *Manager) Get(ctx context.Context, sessionID, encounterID string) (*model.Encounter, error) {
	m.mu.Lock()
	enc, ok := m.cache[key(sessionID, encounterID)]
	m.mu.Unlock()
	if ok {
		return enc, nil
	}
	enc, err := m.encounters.FindByID(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	m.put(sessionID, enc)
	return enc, nil
}

// Save persists a mutated encounter (attack/heal/advance_turn all mutate
// their *model.Encounter in place) and refreshes the cache entry.
func (m *Manager) Save(ctx context.Context, sessionID string, enc *model.Encounter) error {
	if err := m.encounters.Save(ctx, enc); err != nil {
		return err
	}
	m.put(sessionID, enc)
	return nil
}

// End runs the repository's HP write-back and completion transition, then
// drops the cache entry: a completed encounter has no further mutations.
func (m *Manager) End(ctx context.Context, sessionID string, enc *model.Encounter) error {
	if err := m.encounters.EndWithWriteBack(ctx, enc); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.cache, key(sessionID, enc.ID))
	m.mu.Unlock()
	return nil
}

func (m *Manager) put(sessionID string, enc *model.Encounter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key(sessionID, enc.ID)] = enc
}
