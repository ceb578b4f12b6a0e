// Package actionrouter implements the Action Router: one consolidated MCP
// tool ("theft_manage", "improvisation_manage", ...) multiplexed into many
// sub-actions via an "action" discriminator field, per spec section 4.2.
// It reuses the teacher's handlers.HandlerFunc shape per sub-action
// (internal/engine/handlers/interface.go) but adds the fuzzy-alias
// resolution step the teacher never needed, since it dispatches one action
// per tool rather than many.
package actionrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/registry"
)

// similarityThreshold is the minimum normalised edit-distance similarity at
// which a fuzzy match is accepted transparently, per spec 4.2.
const similarityThreshold = 0.6

type subAction struct {
	canonical   string
	aliases     []string
	description string
	handler     func(ctx context.Context, raw json.RawMessage, sess registry.SessionContext) (registry.Envelope, error)
}

// Router dispatches a consolidated tool's raw payload to the sub-handler
// selected by its "action" field, falling back to fuzzy alias resolution.
type Router struct {
	toolName string
	order    []string // canonical action names, registration order
	actions  map[string]*subAction
}

func New(toolName string) *Router {
	return &Router{toolName: toolName, actions: make(map[string]*subAction)}
}

type actionEnvelope struct {
	Action string `json:"action"`
}

// AddAction registers a typed sub-handler for one canonical action name.
// The wrapping (unmarshal→validate→call) mirrors registry.RegisterTyped so
// consolidated-tool sub-handlers get the same contract as top-level tools.
func AddAction[T any](r *Router, canonical string, aliases []string, description string, handler func(ctx context.Context, sess registry.SessionContext, payload T) (string, any, error)) error {
	if _, exists := r.actions[canonical]; exists {
		return apperr.Conflict("action already registered", map[string]any{"tool": r.toolName, "action": canonical})
	}
	wrapped := func(ctx context.Context, raw json.RawMessage, sess registry.SessionContext) (registry.Envelope, error) {
		var payload T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return registry.Envelope{}, apperr.Validation(fmt.Sprintf("invalid payload for %s action %s", r.toolName, canonical), map[string]any{"cause": err.Error()})
			}
		}
		if v, ok := any(payload).(registry.Validator); ok {
			if err := v.Validate(); err != nil {
				return registry.Envelope{}, apperr.Validation(err.Error(), nil)
			}
		}
		message, state, err := handler(ctx, sess, payload)
		if err != nil {
			return registry.Envelope{}, err
		}
		return registry.NewEnvelope(message, state), nil
	}
	r.actions[canonical] = &subAction{canonical: canonical, aliases: aliases, description: description, handler: wrapped}
	r.order = append(r.order, canonical)
	return nil
}

// resolve implements spec 4.2's alias-resolution contract: exact canonical
// match, then exact alias match, then fuzzy match across actions ∪ aliases
// at similarity ≥ similarityThreshold. Ties in the fuzzy pass favour
// whichever canonical action was registered first.
func (r *Router) resolve(action string) (*subAction, []apperr.Suggestion) {
	if sa, ok := r.actions[action]; ok {
		return sa, nil
	}
	for _, canonical := range r.order {
		sa := r.actions[canonical]
		for _, alias := range sa.aliases {
			if alias == action {
				return sa, nil
			}
		}
	}

	type scored struct {
		canonical string
		sim       float64
	}
	var best *scored
	suggestions := make([]apperr.Suggestion, 0, len(r.order))
	for _, canonical := range r.order {
		sa := r.actions[canonical]
		candidates := append([]string{canonical}, sa.aliases...)
		top := 0.0
		for _, c := range candidates {
			if s := similarity(strings.ToLower(action), strings.ToLower(c)); s > top {
				top = s
			}
		}
		suggestions = append(suggestions, apperr.Suggestion{Value: canonical, Similarity: top})
		if best == nil || top > best.sim {
			best = &scored{canonical: canonical, sim: top}
		}
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Similarity > suggestions[j].Similarity })

	if best != nil && best.sim >= similarityThreshold {
		return r.actions[best.canonical], nil
	}
	return nil, suggestions
}

// Dispatch matches the registry.RegisterRaw handler signature so a consolidated
// tool is registered with the router's Dispatch method directly as its handler.
func (r *Router) Dispatch(ctx context.Context, raw json.RawMessage, sess registry.SessionContext) (registry.Envelope, error) {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Action == "" {
		return registry.Envelope{}, apperr.Validation("missing or invalid \"action\" field", nil)
	}

	sa, suggestions := r.resolve(env.Action)
	if sa == nil {
		return registry.Envelope{}, apperr.UnknownAction(env.Action, r.order, suggestions)
	}
	return sa.handler(ctx, raw, sess)
}

// Schema builds a minimal discovery schema for the consolidated tool: an
// object with a required "action" enum plus free-form additional
// properties, since the union of every sub-action's fields is optional and
// mutually exclusive per action (spec 4.2's "single action field plus the
// union of sub-action fields as optional").
func (r *Router) Schema() *jsonschema.Schema {
	actionSchema := &jsonschema.Schema{Type: "string"}
	for _, canonical := range r.order {
		actionSchema.Enum = append(actionSchema.Enum, canonical)
	}
	props := jsonschema.NewProperties()
	props.Set("action", actionSchema)
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{"action"},
		AdditionalProperties: &jsonschema.Schema{},
	}
}

// Actions returns the canonical action names in registration order, used by
// discovery responses and tests.
func (r *Router) Actions() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
