// Package batch implements the Batch Engine behind the batch_manage
// consolidated tool: bulk character/NPC creation from templates, bulk item
// distribution, and named multi-step workflow execution. The tool group is
// named in spec section 6 but left otherwise unspecified by the distilled
// spec; this package's design (template catalogue, workflow/turn-state
// semantics) is recorded as an Open Question resolution in DESIGN.md.
package batch

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
)

type Engine struct {
	db           *sql.DB
	characters   *repo.CharacterRepo
	items        *repo.ItemRepo
	inventory    *repo.InventoryRepo
	turnState    *repo.TurnStateRepo
	calculations *repo.CalculationRepo
}

func New(db *sql.DB, characters *repo.CharacterRepo, items *repo.ItemRepo, inventory *repo.InventoryRepo, turnState *repo.TurnStateRepo, calculations *repo.CalculationRepo) *Engine {
	return &Engine{db: db, characters: characters, items: items, inventory: inventory, turnState: turnState, calculations: calculations}
}

// CharacterSpec is one roster entry for create_characters/create_npcs. A
// non-empty TemplateID seeds stats/hp/ac/level from the template catalogue;
// any explicitly-set field on the spec overrides the template's value.
type CharacterSpec struct {
	Name       string      `json:"name"`
	TemplateID string      `json:"templateId,omitempty"`
	WorldID    string      `json:"worldId,omitempty"`
	Level      int         `json:"level,omitempty"`
	HP         int         `json:"hp,omitempty"`
	MaxHP      int         `json:"maxHp,omitempty"`
	AC         int         `json:"ac,omitempty"`
	Stats      *model.Stats `json:"stats,omitempty"`
	Behavior   string      `json:"behavior,omitempty"`
}

func buildCharacter(spec CharacterSpec, charType model.CharacterType) (*model.Character, error) {
	c := &model.Character{
		ID:            uuid.NewString(),
		WorldID:       spec.WorldID,
		Name:          spec.Name,
		CharacterType: charType,
		Behavior:      spec.Behavior,
	}
	if spec.TemplateID != "" {
		tmpl, ok := characterTemplates[spec.TemplateID]
		if !ok {
			return nil, apperr.NotFound("characterTemplate", spec.TemplateID)
		}
		c.Level = tmpl.Level
		c.HP = tmpl.HP
		c.MaxHP = tmpl.HP
		c.AC = tmpl.AC
		c.HitDieSize = tmpl.HitDieSize
		c.Stats = tmpl.Stats
	}
	if spec.Level != 0 {
		c.Level = spec.Level
	}
	if spec.AC != 0 {
		c.AC = spec.AC
	}
	if spec.Stats != nil {
		c.Stats = *spec.Stats
	}
	if spec.MaxHP != 0 {
		c.MaxHP = spec.MaxHP
	}
	if spec.HP != 0 {
		c.HP = spec.HP
	} else if c.HP == 0 {
		c.HP = c.MaxHP
	}
	if c.MaxHP == 0 {
		c.MaxHP = c.HP
	}
	return c, nil
}

// CreateCharacters bulk-creates player characters in a single transaction:
// either the whole roster persists or none of it does, matching the
// all-or-nothing multi-row write convention repo.WithTx enforces elsewhere
// (quest reward grant, encounter write-back).
func (e *Engine) CreateCharacters(ctx context.Context, specs []CharacterSpec) ([]*model.Character, error) {
	return e.createRoster(ctx, specs, model.CharacterPC)
}

// CreateNPCs is CreateCharacters for non-player characters.
func (e *Engine) CreateNPCs(ctx context.Context, specs []CharacterSpec) ([]*model.Character, error) {
	return e.createRoster(ctx, specs, model.CharacterNPC)
}

func (e *Engine) createRoster(ctx context.Context, specs []CharacterSpec, charType model.CharacterType) ([]*model.Character, error) {
	if len(specs) == 0 {
		return nil, apperr.Validation("at least one character spec is required", nil)
	}
	out := make([]*model.Character, 0, len(specs))
	for _, spec := range specs {
		c, err := buildCharacter(spec, charType)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	err := repo.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		for _, c := range out {
			if err := repo.CreateTx(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

// DistributeResult reports per-character outcome of an item distribution.
type DistributeResult struct {
	ItemID       string   `json:"itemId"`
	Quantity     int      `json:"quantity"`
	CharacterIDs []string `json:"characterIds"`
}

// DistributeItems grants quantity units of itemID to every character in
// characterIDs atomically, reusing repo.UpsertIncrementTx the
// same way quest reward granting does.
func (e *Engine) DistributeItems(ctx context.Context, itemID string, quantity int, characterIDs []string) (*DistributeResult, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive", map[string]any{"quantity": quantity})
	}
	if len(characterIDs) == 0 {
		return nil, apperr.Validation("at least one characterId is required", nil)
	}
	if _, err := e.items.FindByID(ctx, itemID); err != nil {
		return nil, err
	}
	err := repo.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		for _, characterID := range characterIDs {
			if err := repo.UpsertIncrementTx(ctx, tx, characterID, itemID, quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &DistributeResult{ItemID: itemID, Quantity: quantity, CharacterIDs: characterIDs}, nil
}

// WorkflowStepResult is returned by ExecuteWorkflow after evaluating exactly
// one pending step.
type WorkflowStepResult struct {
	WorkflowID string `json:"workflowId"`
	StepIndex  int    `json:"stepIndex"`
	StepKind   string `json:"stepKind"`
	Dice       string `json:"dice"`
	Total      int    `json:"total"`
	Rolls      []int  `json:"rolls"`
	Complete   bool   `json:"complete"`
}

// ExecuteWorkflow advances a named workflow template by exactly one step per
// call: the pending step index lives in turn_state (keyed per world), the
// step's roll is appended to the calculations audit trail, and the new
// index is written back. Calling again after completion returns a
// ConflictingState error rather than silently re-rolling the last step.
func (e *Engine) ExecuteWorkflow(ctx context.Context, roller *diceroll.Roller, worldID, workflowID string) (*WorkflowStepResult, error) {
	tmpl, ok := workflowTemplates[workflowID]
	if !ok {
		return nil, apperr.NotFound("workflowTemplate", workflowID)
	}

	state, err := e.turnState.Get(ctx, worldID)
	if err != nil {
		return nil, err
	}
	progress, _ := state["workflows"].(map[string]any)
	if progress == nil {
		progress = map[string]any{}
	}
	stepIndex := 0
	if raw, ok := progress[workflowID]; ok {
		if f, ok := raw.(float64); ok {
			stepIndex = int(f)
		}
	}
	if stepIndex >= len(tmpl.Steps) {
		return nil, apperr.Conflict("workflow already complete", map[string]any{"workflowId": workflowID})
	}
	step := tmpl.Steps[stepIndex]

	total, rolls, err := roller.RollDice(step.Dice)
	if err != nil {
		return nil, apperr.Validation("invalid dice notation in workflow step", map[string]any{"dice": step.Dice, "cause": err.Error()})
	}

	if _, err := e.calculations.Record(ctx, step.Kind,
		map[string]any{"workflowId": workflowID, "stepIndex": stepIndex, "dice": step.Dice},
		map[string]any{"total": total, "rolls": rolls}); err != nil {
		return nil, err
	}

	stepIndex++
	progress[workflowID] = stepIndex
	state["workflows"] = progress
	if err := e.turnState.Put(ctx, worldID, state); err != nil {
		return nil, err
	}

	return &WorkflowStepResult{
		WorkflowID: workflowID,
		StepIndex:  stepIndex - 1,
		StepKind:   step.Kind,
		Dice:       step.Dice,
		Total:      total,
		Rolls:      rolls,
		Complete:   stepIndex >= len(tmpl.Steps),
	}, nil
}

// TemplateSummary is the list_templates discovery projection: full template
// bodies for get_template, names/descriptions only here to keep the listing
// response small.
type TemplateSummary struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"` // "character" or "workflow"
	Description string `json:"description"`
}

// ListTemplates returns every template's summary, optionally filtered by
// kind ("character", "workflow", or "" for both).
func ListTemplates(kind string) []TemplateSummary {
	var out []TemplateSummary
	if kind == "" || kind == "character" {
		for _, t := range characterTemplates {
			out = append(out, TemplateSummary{ID: t.ID, Kind: "character", Description: t.Description})
		}
	}
	if kind == "" || kind == "workflow" {
		for _, t := range workflowTemplates {
			out = append(out, TemplateSummary{ID: t.ID, Kind: "workflow", Description: t.Description})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetTemplate returns the full body of one template (either a
// CharacterTemplate or a WorkflowTemplate) by id.
func GetTemplate(id string) (kind string, template any, err error) {
	if t, ok := characterTemplates[id]; ok {
		return "character", t, nil
	}
	if t, ok := workflowTemplates[id]; ok {
		return "workflow", t, nil
	}
	return "", nil, apperr.NotFound("template", id)
}
