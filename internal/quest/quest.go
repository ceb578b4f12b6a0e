// Package quest implements the Quest Engine: quest lifecycle, objective
// progress, prerequisite chains and reward grant, per SPEC_FULL.md section 5
// (spec 4.5). internal/repo.QuestRepo and internal/repo.QuestLogRepo remain
// the sanctioned writers; this package layers the lifecycle rules and
// reward-grant transaction on top of them.
package quest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
)

type Engine struct {
	db         *sql.DB
	quests     *repo.QuestRepo
	logs       *repo.QuestLogRepo
	characters *repo.CharacterRepo
	items      *repo.ItemRepo
}

func New(db *sql.DB, quests *repo.QuestRepo, logs *repo.QuestLogRepo, characters *repo.CharacterRepo, items *repo.ItemRepo) *Engine {
	return &Engine{db: db, quests: quests, logs: logs, characters: characters, items: items}
}

// Create fills in missing ids (quest and objective), defaults Current to 0
// and Completed to false on every objective, and rejects a prerequisite
// cycle before persisting (spec 4.5, DESIGN notes on cyclic references).
func (e *Engine) Create(ctx context.Context, q *model.Quest) (*model.Quest, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	for _, ob := range q.Objectives {
		if ob.ID == "" {
			ob.ID = uuid.NewString()
		}
		ob.Current = 0
		ob.Completed = false
	}
	if q.Status == "" {
		q.Status = model.QuestOffered
	}
	if err := e.rejectCycle(ctx, q.ID, q.Prerequisites, map[string]bool{q.ID: true}); err != nil {
		return nil, err
	}
	if err := e.quests.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// rejectCycle walks the prerequisite graph from candidateIDs, failing if it
// ever revisits a quest already on the current path (including the quest
// being created/updated itself).
func (e *Engine) rejectCycle(ctx context.Context, rootID string, candidateIDs []string, visiting map[string]bool) error {
	for _, id := range candidateIDs {
		if visiting[id] {
			return apperr.Invariant("quest prerequisites contain a cycle", map[string]any{"questId": rootID, "cycleAt": id})
		}
		q, err := e.quests.FindByID(ctx, id)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindNotFound {
				continue // prerequisite not yet created is allowed; nothing further to walk
			}
			return err
		}
		visiting[id] = true
		if err := e.rejectCycle(ctx, rootID, q.Prerequisites, visiting); err != nil {
			return err
		}
		delete(visiting, id)
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, id string) (*model.Quest, error) { return e.quests.FindByID(ctx, id) }

func (e *Engine) List(ctx context.Context, worldID string) ([]*model.Quest, error) {
	return e.quests.List(ctx, worldID)
}

// Assign attaches questID to characterID's active list. Requires the
// character and quest to exist, the quest not already active/completed for
// that character, and every prerequisite id to already be in the
// character's completed list (spec invariant 7, scenario 4).
func (e *Engine) Assign(ctx context.Context, characterID, questID string) error {
	if _, err := e.characters.FindByID(ctx, characterID); err != nil {
		return err
	}
	q, err := e.quests.FindByID(ctx, questID)
	if err != nil {
		return err
	}
	log, err := e.logs.Get(ctx, characterID)
	if err != nil {
		return err
	}
	if contains(log.ActiveQuests, questID) || contains(log.CompletedQuests, questID) {
		return apperr.Conflict("quest is already active or completed for this character", map[string]any{"questId": questID})
	}
	for _, prereq := range q.Prerequisites {
		if !contains(log.CompletedQuests, prereq) {
			return apperr.Invariant(fmt.Sprintf("prerequisite quest %q is not yet completed", prereq), map[string]any{"missingPrerequisite": prereq})
		}
	}
	log.ActiveQuests = append(log.ActiveQuests, questID)
	if err := e.logs.Put(ctx, log); err != nil {
		return err
	}
	q.Status = model.QuestActive
	return e.quests.Update(ctx, q)
}

// UpdateObjective adds delta to the named objective's current progress,
// clamped at required, syncing its completed flag atomically (spec 4.5,
// invariant 5).
func (e *Engine) UpdateObjective(ctx context.Context, questID, objectiveID string, delta int) (*model.Quest, error) {
	q, err := e.quests.FindByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	ob, err := findObjective(q, objectiveID)
	if err != nil {
		return nil, err
	}
	ob.Current += delta
	if ob.Current < 0 {
		ob.Current = 0
	}
	ob.Sync()
	if err := e.quests.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// CompleteObjective marks one objective fully done outright.
func (e *Engine) CompleteObjective(ctx context.Context, questID, objectiveID string) (*model.Quest, error) {
	q, err := e.quests.FindByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	ob, err := findObjective(q, objectiveID)
	if err != nil {
		return nil, err
	}
	ob.Current = ob.Required
	ob.Sync()
	if err := e.quests.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// CompleteResult echoes the reward fields. XP and gold are informational
// only: they are reported here and not persisted.
type CompleteResult struct {
	Quest          *model.Quest `json:"quest"`
	Experience     int          `json:"experience"`
	Gold           int          `json:"gold"`
	ItemsGranted   []string     `json:"itemsGranted"`
	ItemsMissing   []string     `json:"itemsMissing,omitempty"`
}

// CompleteQuest requires every objective completed (spec invariant 5) and is
// idempotent: completing an already-completed quest is rejected rather than
// double-granting rewards (spec section 8). Item rewards are added to
// inventory and the quest moves from active to completed in the character's
// log inside one transaction (spec 4.5, 4.8).
func (e *Engine) CompleteQuest(ctx context.Context, characterID, questID string) (*CompleteResult, error) {
	q, err := e.quests.FindByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.Status == model.QuestComplete {
		return nil, apperr.Conflict("quest is already completed", map[string]any{"questId": questID})
	}
	for _, ob := range q.Objectives {
		if !ob.Completed {
			return nil, apperr.Conflict("not all objectives are completed", map[string]any{"objectiveId": ob.ID})
		}
	}

	var missing []string
	var granted []string
	for _, itemID := range q.Rewards.Items {
		if _, err := e.items.FindByID(ctx, itemID); err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindNotFound {
				missing = append(missing, itemID)
				continue
			}
			return nil, err
		}
		granted = append(granted, itemID)
	}

	err = repo.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		log, err := repo.GetQuestLogTx(ctx, tx, characterID)
		if err != nil {
			return err
		}
		log.ActiveQuests = removeString(log.ActiveQuests, questID)
		if !contains(log.CompletedQuests, questID) {
			log.CompletedQuests = append(log.CompletedQuests, questID)
		}
		if err := repo.PutQuestLogTx(ctx, tx, log); err != nil {
			return err
		}
		for _, itemID := range granted {
			if err := repo.UpsertIncrementTx(ctx, tx, characterID, itemID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	q.Status = model.QuestComplete
	if err := e.quests.Update(ctx, q); err != nil {
		return nil, err
	}

	return &CompleteResult{
		Quest:        q,
		Experience:   q.Rewards.Experience,
		Gold:         q.Rewards.Gold,
		ItemsGranted: granted,
		ItemsMissing: missing,
	}, nil
}

// HydratedLog is the full-object projection of a character's quest log (spec
// 4.5's get_quest_log), with per-objective progress strings for narrative use.
type HydratedLog struct {
	CharacterID string        `json:"characterId"`
	Active      []QuestDetail `json:"activeQuests"`
	Completed   []QuestDetail `json:"completedQuests"`
	Failed      []QuestDetail `json:"failedQuests"`
}

type QuestDetail struct {
	*model.Quest
	ObjectiveProgress []string `json:"objectiveProgress"`
}

func (e *Engine) GetQuestLog(ctx context.Context, characterID string) (*HydratedLog, error) {
	log, err := e.logs.Get(ctx, characterID)
	if err != nil {
		return nil, err
	}
	hydrate := func(ids []string) ([]QuestDetail, error) {
		out := make([]QuestDetail, 0, len(ids))
		for _, id := range ids {
			q, err := e.quests.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			progress := make([]string, 0, len(q.Objectives))
			for _, ob := range q.Objectives {
				progress = append(progress, fmt.Sprintf("%s: %d/%d", ob.Description, ob.Current, ob.Required))
			}
			out = append(out, QuestDetail{Quest: q, ObjectiveProgress: progress})
		}
		return out, nil
	}
	active, err := hydrate(log.ActiveQuests)
	if err != nil {
		return nil, err
	}
	completed, err := hydrate(log.CompletedQuests)
	if err != nil {
		return nil, err
	}
	failed, err := hydrate(log.FailedQuests)
	if err != nil {
		return nil, err
	}
	return &HydratedLog{CharacterID: characterID, Active: active, Completed: completed, Failed: failed}, nil
}

func findObjective(q *model.Quest, objectiveID string) (*model.Objective, error) {
	for _, ob := range q.Objectives {
		if ob.ID == objectiveID {
			return ob, nil
		}
	}
	return nil, apperr.NotFound("objective", objectiveID)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
