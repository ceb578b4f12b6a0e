// Package improvisation implements the Improvisation Engine: stunt
// resolution, custom-effect application/query/removal, and arcane
// synthesis with its wild-surge table, per SPEC_FULL.md section 5 (spec 4.6).
// Skill-to-ability mapping and the wild-surge table are loaded once from
// data/*.yaml (see data.go), the same embed-once-at-package-load pattern the
// rest of the example pack uses for static rule tables.
package improvisation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
)

type Engine struct {
	characters *repo.CharacterRepo
	effects    *repo.EffectRepo
	spells     *repo.SpellRepo
}

func New(characters *repo.CharacterRepo, effects *repo.EffectRepo, spells *repo.SpellRepo) *Engine {
	return &Engine{characters: characters, effects: effects, spells: spells}
}

func abilityScore(s model.Stats, ability string) int {
	switch ability {
	case "str":
		return s.Str
	case "dex":
		return s.Dex
	case "con":
		return s.Con
	case "int":
		return s.Int
	case "wis":
		return s.Wis
	case "cha":
		return s.Cha
	default:
		return s.Str
	}
}

// proficiencyBonus follows the standard level-scaled progression: +2 at
// level 1, +1 every four levels thereafter.
func proficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

func d20WithAdvantage(roller *diceroll.Roller, advantage, disadvantage bool) int {
	if advantage && !disadvantage {
		a, b := roller.D20(), roller.D20()
		if a > b {
			return a
		}
		return b
	}
	if disadvantage && !advantage {
		a, b := roller.D20(), roller.D20()
		if a < b {
			return a
		}
		return b
	}
	return roller.D20()
}

// StuntTarget declares one target of a stunt's saving throw, if any.
type StuntTarget struct {
	TargetID      string `json:"targetId"`
	SavingThrowDC int    `json:"savingThrowDc,omitempty"`
	HalfOnSave    bool   `json:"halfOnSave"`
	Condition     string `json:"condition,omitempty"`
}

// TargetOutcome is one target's resolved saving throw and final damage.
type TargetOutcome struct {
	TargetID        string `json:"targetId"`
	SaveRoll        int    `json:"saveRoll,omitempty"`
	Saved           bool   `json:"saved"`
	DamageTaken     int    `json:"damageTaken"`
	ConditionApplied string `json:"conditionApplied,omitempty"`
}

// StuntResult is the structured outcome of a rule-of-cool stunt attempt.
type StuntResult struct {
	Roll            int              `json:"roll"`
	Modifier        int              `json:"modifier"`
	Total           int               `json:"total"`
	DC              int               `json:"dc"`
	CriticalSuccess bool              `json:"criticalSuccess"`
	CriticalFailure bool              `json:"criticalFailure"`
	Success         bool              `json:"success"`
	DamageDealt     int               `json:"damageDealt,omitempty"`
	SelfDamage      int               `json:"selfDamage,omitempty"`
	Targets         []TargetOutcome   `json:"targets,omitempty"`
}

// Stunt resolves a "rule of cool" skill check (spec 4.6). advantage and
// disadvantage are never both honoured; if both are set they cancel and a
// single d20 is rolled.
func (e *Engine) Stunt(ctx context.Context, roller *diceroll.Roller, actorID, skill string, dc int, advantage, disadvantage bool, successDamage, failureDamage string, targets []StuntTarget) (*StuntResult, error) {
	if dc < 5 || dc > 35 {
		return nil, apperr.Validation("dc must be in [5,35]", map[string]any{"dc": dc})
	}
	actor, err := e.characters.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ability := abilityForSkill(skill)
	mod := model.Modifier(abilityScore(actor.Stats, ability))

	roll := d20WithAdvantage(roller, advantage, disadvantage)
	total := roll + mod
	margin := total - dc

	res := &StuntResult{Roll: roll, Modifier: mod, Total: total, DC: dc}
	res.CriticalSuccess = roll == 20 || margin >= 10
	res.CriticalFailure = roll == 1 || margin <= -10
	res.Success = !res.CriticalFailure && (res.CriticalSuccess || total >= dc)

	if res.Success && successDamage != "" {
		dmg, _, err := roller.RollDice(successDamage)
		if err != nil {
			return nil, apperr.Validation("invalid successDamage dice notation", map[string]any{"successDamage": successDamage})
		}
		if res.CriticalSuccess {
			dmg *= 2
		}
		res.DamageDealt = dmg
		for _, t := range targets {
			outcome := TargetOutcome{TargetID: t.TargetID, DamageTaken: dmg}
			if t.SavingThrowDC > 0 {
				save := roller.D20()
				outcome.SaveRoll = save
				outcome.Saved = save >= t.SavingThrowDC
				if outcome.Saved {
					if t.HalfOnSave {
						outcome.DamageTaken = dmg / 2
					} else {
						outcome.DamageTaken = 0
					}
				} else {
					outcome.ConditionApplied = t.Condition
				}
			}
			res.Targets = append(res.Targets, outcome)
		}
	}

	if res.CriticalFailure && failureDamage != "" {
		dmg, _, err := roller.RollDice(failureDamage)
		if err != nil {
			return nil, apperr.Validation("invalid failureDamage dice notation", map[string]any{"failureDamage": failureDamage})
		}
		res.SelfDamage = dmg
	}

	return res, nil
}

// ApplyEffect assigns an id and marks the effect active before persisting.
func (e *Engine) ApplyEffect(ctx context.Context, ef *model.CustomEffect) (*model.CustomEffect, error) {
	if ef.PowerLevel < 1 || ef.PowerLevel > 5 {
		return nil, apperr.Validation("powerLevel must be in [1,5]", map[string]any{"powerLevel": ef.PowerLevel})
	}
	if ef.ID == "" {
		ef.ID = uuid.NewString()
	}
	ef.IsActive = true
	if err := e.effects.Create(ctx, ef); err != nil {
		return nil, err
	}
	return ef, nil
}

func (e *Engine) GetEffects(ctx context.Context, targetID, category, sourceType string, activeOnly bool) ([]*model.CustomEffect, error) {
	return e.effects.Query(ctx, targetID, category, sourceType, activeOnly)
}

func (e *Engine) RemoveEffect(ctx context.Context, id string) error {
	return e.effects.Delete(ctx, id)
}

func (e *Engine) RemoveEffectByName(ctx context.Context, targetID, name string) error {
	return e.effects.DeleteByTargetAndName(ctx, targetID, name)
}

// DurationAdvanceResult partitions effects touched by AdvanceDurations into
// those still ticking and those that just expired (spec 4.6).
type DurationAdvanceResult struct {
	Advanced []*model.CustomEffect `json:"advanced"`
	Expired  []*model.CustomEffect `json:"expired"`
}

// AdvanceDurations decrements the rounds counter of every active
// rounds-typed effect on targetID by one, flagging any that reach zero
// inactive. Non-rounds durations (minutes/hours/days/permanent/until_removed)
// are left untouched; they expire through narrative or real-time bookkeeping
// outside this engine's scope.
func (e *Engine) AdvanceDurations(ctx context.Context, targetID string) (*DurationAdvanceResult, error) {
	effects, err := e.effects.Query(ctx, targetID, "", "", true)
	if err != nil {
		return nil, err
	}
	res := &DurationAdvanceResult{}
	for _, ef := range effects {
		if ef.Duration.Type != model.DurationRounds {
			continue
		}
		ef.Duration.Value--
		if ef.Duration.Value <= 0 {
			ef.Duration.Value = 0
			ef.IsActive = false
			res.Expired = append(res.Expired, ef)
		} else {
			res.Advanced = append(res.Advanced, ef)
		}
		if err := e.effects.Update(ctx, ef); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ProcessTriggers returns every active effect on targetID whose trigger list
// names event; the trigger's condition string is opaque and left for
// downstream narrative tooling to evaluate, matching the mechanics field's
// own opaque-string contract.
func (e *Engine) ProcessTriggers(ctx context.Context, targetID, event string) ([]*model.CustomEffect, error) {
	effects, err := e.effects.Query(ctx, targetID, "", "", true)
	if err != nil {
		return nil, err
	}
	var matched []*model.CustomEffect
	for _, ef := range effects {
		for _, trig := range ef.Triggers {
			if trig.Event == event {
				matched = append(matched, ef)
				break
			}
		}
	}
	return matched, nil
}

// SynthesisOutcome names one of the five arcane-synthesis outcome bands.
type SynthesisOutcome string

const (
	OutcomeMastery      SynthesisOutcome = "mastery"
	OutcomeSuccess      SynthesisOutcome = "success"
	OutcomeFizzle       SynthesisOutcome = "fizzle"
	OutcomeBackfire     SynthesisOutcome = "backfire"
	OutcomeCatastrophic SynthesisOutcome = "catastrophic"
)

// SynthesisCircumstances carries every DC modifier input spec 4.6 names.
type SynthesisCircumstances struct {
	InCombat          bool
	MaterialValue     int
	LeyLineOrNexus    bool
	BloodMoonOrEclipse bool
	DesperationOrUrgency bool
}

// SynthesizeResult is the structured outcome of an arcane synthesis attempt.
type SynthesizeResult struct {
	DC               int              `json:"dc"`
	Roll             int              `json:"roll"`
	Modifier         int              `json:"modifier"`
	Total            int              `json:"total"`
	Margin           int              `json:"margin"`
	Outcome          SynthesisOutcome `json:"outcome"`
	SpellMastered    bool             `json:"spellMastered,omitempty"`
	SpellSlotConsumed bool            `json:"spellSlotConsumed"`
	SelfDamage       int              `json:"selfDamage,omitempty"`
	WildSurgeEffect  string           `json:"wildSurgeEffect,omitempty"`
	WildSurgeText    string           `json:"wildSurgeDescription,omitempty"`
}

// Synthesize resolves an arcane synthesis attempt per spec 4.6's DC formula
// and outcome bands. Whether the caster already knows a related spell is
// derived from their synthesized spellbook (any prior spell of the same
// school) rather than taken as caller-supplied, consistent with
// internal/repo.SpellRepo being the source of truth for what a character knows.
func (e *Engine) Synthesize(ctx context.Context, roller *diceroll.Roller, casterID string, spellLevel int, school, effectType, effectDice string, circ SynthesisCircumstances) (*SynthesizeResult, error) {
	caster, err := e.characters.FindByID(ctx, casterID)
	if err != nil {
		return nil, err
	}
	known, err := e.spells.ListByCharacter(ctx, casterID)
	if err != nil {
		return nil, err
	}
	hasRelatedKnownSpell := false
	for _, s := range known {
		if s.School == school {
			hasRelatedKnownSpell = true
			break
		}
	}

	dc := 10 + 2*spellLevel
	if circ.InCombat {
		dc += 2
	}
	if hasRelatedKnownSpell {
		dc -= 2
	} else {
		dc += 3
	}
	if reduction := circ.MaterialValue / 100; reduction > 0 {
		if reduction > 5 {
			reduction = 5
		}
		dc -= reduction
	}
	if circ.LeyLineOrNexus {
		dc -= 3
	}
	if circ.BloodMoonOrEclipse {
		dc -= 2
	}
	if circ.DesperationOrUrgency {
		dc += 2
	}

	mod := model.Modifier(abilityScore(caster.Stats, "int")) + proficiencyBonus(caster.Level)
	roll := roller.D20()
	total := roll + mod
	margin := total - dc

	res := &SynthesizeResult{DC: dc, Roll: roll, Modifier: mod, Total: total, Margin: margin, SpellSlotConsumed: true}

	switch {
	case roll == 1 || margin <= -10:
		res.Outcome = OutcomeCatastrophic
		entry := rollWildSurge(roller.Percent())
		res.WildSurgeEffect = entry.Effect
		res.WildSurgeText = entry.Description
	case margin <= -6:
		res.Outcome = OutcomeBackfire
		lvl := spellLevel
		if lvl < 1 {
			lvl = 1
		}
		dmg, _, _ := roller.RollDice(fmt.Sprintf("%dd6", lvl))
		res.SelfDamage = dmg
	case margin <= -1:
		res.Outcome = OutcomeFizzle
	case roll == 20 || margin >= 10:
		res.Outcome = OutcomeMastery
		res.SpellMastered = true
		res.SpellSlotConsumed = false
		spell := &model.SynthesizedSpell{
			ID:          uuid.NewString(),
			CharacterID: casterID,
			Name:        school + " synthesis",
			School:      school,
			Level:       spellLevel,
			EffectType:  effectType,
			EffectDice:  effectDice,
		}
		if err := e.spells.Create(ctx, spell); err != nil {
			return nil, err
		}
	default:
		res.Outcome = OutcomeSuccess
	}

	if res.SelfDamage > 0 {
		newHP := caster.HP - res.SelfDamage
		if newHP < 0 {
			newHP = 0
		}
		if err := e.characters.UpdateHP(ctx, casterID, newHP); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (e *Engine) GetSpellbook(ctx context.Context, characterID string) ([]*model.SynthesizedSpell, error) {
	return e.spells.ListByCharacter(ctx, characterID)
}
