// Package rest implements long/short rest resolution and the character
// creation/update operations named in SPEC_FULL.md section 5 (spec 4.7).
// Inventory transfer and item-ownership-uniqueness already live at the
// repository layer (internal/repo.InventoryRepo.Transfer/HoldersOf) since
// neither needs rule logic beyond what the repository's transaction already
// enforces; this package only owns the rules that do not reduce to a single
// repository call.
package rest

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
)

type Engine struct {
	characters *repo.CharacterRepo
}

func New(characters *repo.CharacterRepo) *Engine {
	return &Engine{characters: characters}
}

// CreateCharacter assigns an id when absent and defaults HP to MaxHP for a
// freshly created character.
func (e *Engine) CreateCharacter(ctx context.Context, c *model.Character) (*model.Character, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.HP == 0 {
		c.HP = c.MaxHP
	}
	if err := e.characters.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) GetCharacter(ctx context.Context, id string) (*model.Character, error) {
	return e.characters.FindByID(ctx, id)
}

func (e *Engine) UpdateCharacter(ctx context.Context, c *model.Character) (*model.Character, error) {
	if err := e.characters.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) ListCharacters(ctx context.Context, worldID string) ([]*model.Character, error) {
	return e.characters.List(ctx, worldID)
}

// LongRestResult reports the hp delta from a long rest.
type LongRestResult struct {
	PreviousHP int `json:"previousHp"`
	NewHP      int `json:"newHp"`
}

// LongRest restores a character to full hp (spec 4.7: future spell-slot
// restore is explicitly out of scope until spell slots exist on Character).
func (e *Engine) LongRest(ctx context.Context, characterID string) (*LongRestResult, error) {
	c, err := e.characters.FindByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	prev := c.HP
	if err := e.characters.UpdateHP(ctx, characterID, c.MaxHP); err != nil {
		return nil, err
	}
	return &LongRestResult{PreviousHP: prev, NewHP: c.MaxHP}, nil
}

// ShortRestResult reports every hit-die roll and the resulting hp delta.
type ShortRestResult struct {
	Rolls        []int `json:"rolls"`
	AmountHealed int   `json:"amountHealed"`
	NewHP        int   `json:"newHp"`
}

// ShortRest rolls hitDiceSpent dice of the character's hit-die size, each
// healing max(1, roll+conModifier), summed and capped at maxHp-hp (spec 4.7).
func (e *Engine) ShortRest(ctx context.Context, roller *diceroll.Roller, characterID string, hitDiceSpent int) (*ShortRestResult, error) {
	if hitDiceSpent < 0 {
		hitDiceSpent = 0
	}
	c, err := e.characters.FindByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	dieSize := c.HitDieSize
	if dieSize == 0 {
		dieSize = 8
	}
	conMod := model.Modifier(c.Stats.Con)

	rolls := make([]int, 0, hitDiceSpent)
	total := 0
	for i := 0; i < hitDiceSpent; i++ {
		roll := roller.Die(dieSize)
		rolls = append(rolls, roll)
		healed := roll + conMod
		if healed < 1 {
			healed = 1
		}
		total += healed
	}

	room := c.MaxHP - c.HP
	if total > room {
		total = room
	}
	if total < 0 {
		total = 0
	}
	newHP := c.HP + total
	if err := e.characters.UpdateHP(ctx, characterID, newHP); err != nil {
		return nil, err
	}
	return &ShortRestResult{Rolls: rolls, AmountHealed: total, NewHP: newHP}, nil
}

// Transfer moves an inventory item between characters. It rejects a
// non-positive quantity and otherwise delegates to the repository's
// transaction, matching spec 4.7's "executed as a single atomic transaction"
// requirement.
func Transfer(ctx context.Context, inv *repo.InventoryRepo, srcCharacterID, dstCharacterID, itemID string, quantity int) error {
	if quantity <= 0 {
		return apperr.Validation("quantity must be positive", map[string]any{"quantity": quantity})
	}
	return inv.Transfer(ctx, srcCharacterID, dstCharacterID, itemID, quantity)
}
