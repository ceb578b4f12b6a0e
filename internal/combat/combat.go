// Package combat implements the deterministic turn-based Combat Engine:
// initiative ordering, attack/heal resolution, and turn advance, per
// SPEC_FULL.md section 5 (spec 4.3). It operates purely on an in-memory
// *model.Encounter; internal/repo.EncounterRepo owns the persisted snapshot
// and internal/repo.EncounterRepo.EndWithWriteBack owns the HP write-back
// invariant (spec invariant 2). Grounded on the teacher's
// internal/engine/turn_queue.go initiative/turn-order shape, generalized
// from its fixed ECS entity list to model.Token participants.
package combat

import (
	"sort"
	"strings"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

// enemyTokens are substrings that auto-classify a participant as an enemy
// when the caller does not supply isEnemy explicitly (spec 4.3).
var enemyTokens = []string{"goblin", "orc", "bandit", "enemy", "hostile", "monster", "wolf", "skeleton", "zombie", "cultist", "raider"}

// Participant is the caller-supplied shape for one combatant at encounter
// creation time, before initiative has been rolled.
type Participant struct {
	ID          string
	CharacterID string
	Name        string
	HP          int
	MaxHP       int
	AC          int
	InitBonus   int
	IsEnemy     *bool // nil means auto-classify from ID/Name
}

// ClassifyEnemy applies the heuristic name/id scan from spec 4.3. Caller
// override always wins; this is only the fallback.
func ClassifyEnemy(id, name string) bool {
	haystack := strings.ToLower(id + " " + name)
	for _, tok := range enemyTokens {
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}

// NewEncounter rolls initiative for every participant with roller, sorts
// descending with a stable tie-break on insertion order, and returns a fresh
// active encounter at round 1. At least one participant is required.
func NewEncounter(id, worldID string, participants []Participant, roller *diceroll.Roller) (*model.Encounter, error) {
	if len(participants) == 0 {
		return nil, apperr.Validation("an encounter requires at least one participant", nil)
	}
	tokens := make([]*model.Token, 0, len(participants))
	for i, p := range participants {
		isEnemy := ClassifyEnemy(p.ID, p.Name)
		if p.IsEnemy != nil {
			isEnemy = *p.IsEnemy
		}
		tok := &model.Token{
			ID:          p.ID,
			CharacterID: p.CharacterID,
			Name:        p.Name,
			HP:          p.HP,
			MaxHP:       p.MaxHP,
			AC:          p.AC,
			InitBonus:   p.InitBonus,
			Initiative:  roller.D20() + p.InitBonus,
			IsEnemy:     isEnemy,
		}
		tok.SetOrderSeq(i)
		tokens = append(tokens, tok)
	}
	sortInitiative(tokens)

	enc := &model.Encounter{
		ID:           id,
		WorldID:      worldID,
		Tokens:       tokens,
		Round:        1,
		CurrentIndex: 0,
		Status:       model.EncounterActive,
	}
	if len(tokens) > 0 {
		enc.ActiveTokenID = tokens[0].ID
	}
	return enc, nil
}

// sortInitiative orders tokens descending by initiative, breaking ties by
// original insertion order (spec invariant 8).
func sortInitiative(tokens []*model.Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Initiative != tokens[j].Initiative {
			return tokens[i].Initiative > tokens[j].Initiative
		}
		return tokens[i].OrderSeq() < tokens[j].OrderSeq()
	})
}

func findToken(enc *model.Encounter, id string) (*model.Token, error) {
	for _, t := range enc.Tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperr.NotFound("token", id)
}

// AttackResult is the structured outcome of one attack resolution (spec 4.3).
type AttackResult struct {
	Roll       int  `json:"roll"`
	AttackTotal int `json:"attackTotal"`
	DC         int  `json:"dc"`
	Hit        bool `json:"hit"`
	Critical   bool `json:"critical"`
	AutoMiss   bool `json:"autoMiss"`
	DamageDealt int `json:"damageDealt"`
	TargetHP   int  `json:"targetHp"`
	Defeated   bool `json:"defeated"`
}

// Attack resolves (actorID, targetID, attackBonus, dc, damage) against enc,
// mutating the target token's hp in place. Step order matches spec 4.3:
// natural 1 auto-misses, natural 20 auto-crits (damage doubled), otherwise
// roll+bonus >= dc hits at full damage.
func Attack(enc *model.Encounter, roller *diceroll.Roller, actorID, targetID string, attackBonus, dc, damage int) (*AttackResult, error) {
	if _, err := findToken(enc, actorID); err != nil {
		return nil, err
	}
	target, err := findToken(enc, targetID)
	if err != nil {
		return nil, err
	}

	roll := roller.D20()
	res := &AttackResult{Roll: roll, DC: dc}

	switch {
	case roll == 1:
		res.AutoMiss = true
	case roll == 20:
		res.Hit = true
		res.Critical = true
		res.AttackTotal = roll + attackBonus
		res.DamageDealt = damage * 2
	default:
		total := roll + attackBonus
		res.AttackTotal = total
		if total >= dc {
			res.Hit = true
			res.DamageDealt = damage
		}
	}

	if res.DamageDealt > 0 {
		target.HP -= res.DamageDealt
		if target.HP < 0 {
			target.HP = 0
		}
	}
	if target.HP <= 0 {
		target.Defeated = true
	}
	res.TargetHP = target.HP
	res.Defeated = target.Defeated
	return res, nil
}

// HealResult is the structured outcome of a heal resolution.
type HealResult struct {
	AmountHealed int `json:"amountHealed"`
	TargetHP     int `json:"targetHp"`
}

// Heal applies amount to targetID's hp, capped at maxHp. No roll (spec 4.3).
func Heal(enc *model.Encounter, targetID string, amount int) (*HealResult, error) {
	target, err := findToken(enc, targetID)
	if err != nil {
		return nil, err
	}
	before := target.HP
	target.HP += amount
	if target.HP > target.MaxHP {
		target.HP = target.MaxHP
	}
	if target.HP > 0 {
		target.Defeated = false
	}
	return &HealResult{AmountHealed: target.HP - before, TargetHP: target.HP}, nil
}

// AdvanceResult reports the new turn pointer after AdvanceTurn.
type AdvanceResult struct {
	Round          int    `json:"round"`
	CurrentTurnIdx int    `json:"currentTurnIndex"`
	ActiveTokenID  string `json:"activeTokenId"`
	RoundAdvanced  bool   `json:"roundAdvanced"`
	EncounterOver  bool   `json:"encounterOver"` // true if one side is fully defeated
}

// AdvanceTurn moves currentTurnIndex to the next non-defeated token, wrapping
// the round counter when it cycles back to index 0 (spec 4.3). It does not
// itself transition the encounter to completed; callers act on
// AdvanceResult.EncounterOver and call end_encounter explicitly, per spec's
// "status becomes completed on next end-encounter call".
func AdvanceTurn(enc *model.Encounter) (*AdvanceResult, error) {
	if len(enc.Tokens) == 0 {
		return nil, apperr.Conflict("encounter has no participants", nil)
	}
	if enc.Status != model.EncounterActive {
		return nil, apperr.Conflict("cannot advance a turn in a "+string(enc.Status)+" encounter", nil)
	}

	n := len(enc.Tokens)
	idx := enc.CurrentIndex
	roundAdvanced := false
	for i := 0; i < n; i++ {
		idx++
		if idx >= n {
			idx = 0
			roundAdvanced = true
		}
		if !enc.Tokens[idx].Defeated {
			break
		}
	}
	enc.CurrentIndex = idx
	if roundAdvanced {
		enc.Round++
	}
	enc.ActiveTokenID = enc.Tokens[idx].ID

	return &AdvanceResult{
		Round:          enc.Round,
		CurrentTurnIdx: enc.CurrentIndex,
		ActiveTokenID:  enc.ActiveTokenID,
		RoundAdvanced:  roundAdvanced,
		EncounterOver:  oneSideDefeated(enc),
	}, nil
}

// oneSideDefeated reports whether every enemy or every non-enemy token is
// defeated, the trigger condition for ending the encounter (spec 4.3).
func oneSideDefeated(enc *model.Encounter) bool {
	enemiesLeft, alliesLeft := false, false
	for _, t := range enc.Tokens {
		if t.Defeated {
			continue
		}
		if t.IsEnemy {
			enemiesLeft = true
		} else {
			alliesLeft = true
		}
	}
	return !enemiesLeft || !alliesLeft
}

// Pause/Resume toggle the encounter's paused state without ending it.
func Pause(enc *model.Encounter) error {
	if enc.Status != model.EncounterActive {
		return apperr.Conflict("can only pause an active encounter", nil)
	}
	enc.Status = model.EncounterPaused
	return nil
}

func Resume(enc *model.Encounter) error {
	if enc.Status != model.EncounterPaused {
		return apperr.Conflict("can only resume a paused encounter", nil)
	}
	enc.Status = model.EncounterActive
	return nil
}
