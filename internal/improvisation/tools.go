package improvisation

import (
	"context"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/actionrouter"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/registry"
)

// NewRouter wires the Engine's eight operations behind the improvisation_manage
// consolidated tool (spec section 6), one actionrouter.AddAction per action.
func NewRouter(e *Engine) *actionrouter.Router {
	r := actionrouter.New("improvisation_manage")

	type stuntTargetPayload struct {
		TargetID      string `json:"targetId"`
		SavingThrowDC int    `json:"savingThrowDc,omitempty"`
		HalfOnSave    bool   `json:"halfOnSave"`
		Condition     string `json:"condition,omitempty"`
	}
	type stuntPayload struct {
		ActorID       string                `json:"actorId"`
		Skill         string                `json:"skill"`
		DC            int                   `json:"dc"`
		Advantage     bool                  `json:"advantage"`
		Disadvantage  bool                  `json:"disadvantage"`
		SuccessDamage string                `json:"successDamage,omitempty"`
		FailureDamage string                `json:"failureDamage,omitempty"`
		Targets       []stuntTargetPayload  `json:"targets,omitempty"`
	}
	_ = actionrouter.AddAction(r, "stunt", []string{"skill_check", "attempt_stunt"}, "resolve a rule-of-cool stunt attempt",
		func(ctx context.Context, sess registry.SessionContext, p stuntPayload) (string, any, error) {
			targets := make([]StuntTarget, 0, len(p.Targets))
			for _, t := range p.Targets {
				targets = append(targets, StuntTarget{TargetID: t.TargetID, SavingThrowDC: t.SavingThrowDC, HalfOnSave: t.HalfOnSave, Condition: t.Condition})
			}
			roller := diceroll.New(diceroll.SeedFrom(sess.SessionID, "stunt", p.ActorID, time.Now().String()))
			res, err := e.Stunt(ctx, roller, p.ActorID, p.Skill, p.DC, p.Advantage, p.Disadvantage, p.SuccessDamage, p.FailureDamage, targets)
			if err != nil {
				return "", nil, err
			}
			return "stunt resolved", res, nil
		})

	type applyEffectPayload struct {
		TargetID   string                   `json:"targetId"`
		TargetType string                   `json:"targetType"`
		Name       string                   `json:"name"`
		Category   model.EffectCategory     `json:"category"`
		PowerLevel int                      `json:"powerLevel"`
		Mechanics  []map[string]any         `json:"mechanics,omitempty"`
		Duration   model.Duration           `json:"duration"`
		Triggers   []model.Trigger          `json:"triggers,omitempty"`
		SourceType string                   `json:"sourceType,omitempty"`
	}
	_ = actionrouter.AddAction(r, "apply_effect", []string{"add_effect"}, "apply a custom effect to a target",
		func(ctx context.Context, sess registry.SessionContext, p applyEffectPayload) (string, any, error) {
			ef := &model.CustomEffect{
				TargetID: p.TargetID, TargetType: p.TargetType, Name: p.Name, Category: p.Category,
				PowerLevel: p.PowerLevel, Mechanics: p.Mechanics, Duration: p.Duration, Triggers: p.Triggers, SourceType: p.SourceType,
			}
			out, err := e.ApplyEffect(ctx, ef)
			if err != nil {
				return "", nil, err
			}
			return "effect applied", out, nil
		})

	type getEffectsPayload struct {
		TargetID   string `json:"targetId"`
		Category   string `json:"category,omitempty"`
		SourceType string `json:"sourceType,omitempty"`
		ActiveOnly bool   `json:"activeOnly"`
	}
	_ = actionrouter.AddAction(r, "get_effects", []string{"list_effects"}, "query a target's custom effects",
		func(ctx context.Context, sess registry.SessionContext, p getEffectsPayload) (string, any, error) {
			out, err := e.GetEffects(ctx, p.TargetID, p.Category, p.SourceType, p.ActiveOnly)
			if err != nil {
				return "", nil, err
			}
			return "effects retrieved", out, nil
		})

	type removeEffectPayload struct {
		EffectID string `json:"effectId,omitempty"`
		TargetID string `json:"targetId,omitempty"`
		Name     string `json:"name,omitempty"`
	}
	_ = actionrouter.AddAction(r, "remove_effect", nil, "remove a custom effect by id or by target+name",
		func(ctx context.Context, sess registry.SessionContext, p removeEffectPayload) (string, any, error) {
			if p.EffectID != "" {
				if err := e.RemoveEffect(ctx, p.EffectID); err != nil {
					return "", nil, err
				}
				return "effect removed", map[string]any{"effectId": p.EffectID}, nil
			}
			if err := e.RemoveEffectByName(ctx, p.TargetID, p.Name); err != nil {
				return "", nil, err
			}
			return "effect removed", map[string]any{"targetId": p.TargetID, "name": p.Name}, nil
		})

	type targetOnlyPayload struct {
		TargetID string `json:"targetId"`
	}
	_ = actionrouter.AddAction(r, "advance_durations", []string{"tick_durations"}, "advance a target's round-based effect durations by one",
		func(ctx context.Context, sess registry.SessionContext, p targetOnlyPayload) (string, any, error) {
			out, err := e.AdvanceDurations(ctx, p.TargetID)
			if err != nil {
				return "", nil, err
			}
			return "durations advanced", out, nil
		})

	type processTriggersPayload struct {
		TargetID string `json:"targetId"`
		Event    string `json:"event"`
	}
	_ = actionrouter.AddAction(r, "process_triggers", nil, "return active effects on a target whose triggers match an event",
		func(ctx context.Context, sess registry.SessionContext, p processTriggersPayload) (string, any, error) {
			out, err := e.ProcessTriggers(ctx, p.TargetID, p.Event)
			if err != nil {
				return "", nil, err
			}
			return "triggers processed", out, nil
		})

	type synthesizePayload struct {
		CasterID             string `json:"casterId"`
		SpellLevel            int    `json:"spellLevel"`
		School                string `json:"school"`
		EffectType            string `json:"effectType"`
		EffectDice            string `json:"effectDice,omitempty"`
		InCombat              bool   `json:"inCombat"`
		MaterialValue         int    `json:"materialValue,omitempty"`
		LeyLineOrNexus        bool   `json:"leyLineOrNexus"`
		BloodMoonOrEclipse    bool   `json:"bloodMoonOrEclipse"`
		DesperationOrUrgency  bool   `json:"desperationOrUrgency"`
	}
	_ = actionrouter.AddAction(r, "synthesize", []string{"cast_synthesis"}, "attempt arcane spell synthesis",
		func(ctx context.Context, sess registry.SessionContext, p synthesizePayload) (string, any, error) {
			roller := diceroll.New(diceroll.SeedFrom(sess.SessionID, "synthesize", p.CasterID, time.Now().String()))
			circ := SynthesisCircumstances{
				InCombat: p.InCombat, MaterialValue: p.MaterialValue, LeyLineOrNexus: p.LeyLineOrNexus,
				BloodMoonOrEclipse: p.BloodMoonOrEclipse, DesperationOrUrgency: p.DesperationOrUrgency,
			}
			out, err := e.Synthesize(ctx, roller, p.CasterID, p.SpellLevel, p.School, p.EffectType, p.EffectDice, circ)
			if err != nil {
				return "", nil, err
			}
			return "synthesis resolved", out, nil
		})

	type characterOnlyPayload struct {
		CharacterID string `json:"characterId"`
	}
	_ = actionrouter.AddAction(r, "get_spellbook", nil, "list a character's synthesized spells",
		func(ctx context.Context, sess registry.SessionContext, p characterOnlyPayload) (string, any, error) {
			out, err := e.GetSpellbook(ctx, p.CharacterID)
			if err != nil {
				return "", nil, err
			}
			return "spellbook retrieved", out, nil
		})

	return r
}
