// Package registry implements the Tool Registry: the boundary layer that
// advertises available tools and their schemas to a caller and routes
// invocations to typed handlers. It generalizes the teacher's fixed
// map[domain.ActionType]handlers.HandlerFunc dispatch table
// (internal/engine/service.go) into an open, runtime-extensible
// map[string]*ToolDef with idempotent registration.
package registry

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/pkg/logger"
)

// SessionContext carries the caller's session identity. All runtime caches
// downstream (internal/worldmgr, internal/combatmgr) are keyed by it to
// isolate concurrent conversations, per spec section 4.1.
type SessionContext struct {
	SessionID string
}

// Validator is implemented by a tool's typed payload struct when it has
// cross-field checks beyond what JSON-schema-shaped unmarshalling already
// enforces. Grounded verbatim on the teacher's pkg/api.Validator interface.
type Validator interface {
	Validate() error
}

// ToolDef is the registry's internal record for one registered tool.
type ToolDef struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     func(ctx context.Context, raw json.RawMessage, sess SessionContext) (Envelope, error)
}

// ToolInfo is the discovery-facing projection of a ToolDef, omitting the
// handler closure.
type ToolInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Registry maps tool name to its definition. Zero value is usable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*ToolDef
}

func New() *Registry {
	return &Registry{tools: make(map[string]*ToolDef)}
}

// register is the untyped insertion path shared by RegisterTool and
// RegisterTyped; re-registering an existing name fails with DuplicateTool,
// matching spec section 4.1 ("re-registering the same name fails with
// DuplicateTool") and the idempotence property in section 8.
func (r *Registry) register(def *ToolDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return apperr.Conflict("tool already registered", map[string]any{"tool": def.Name, "kind": "DuplicateTool"})
	}
	r.tools[def.Name] = def
	return nil
}

// RegisterTyped wires a typed handler for payload type T, reflecting T's
// JSON-schema shape with invopop/jsonschema (grounded on
// Mikko-Finell-mine-and-die's schema_generate.go Reflector usage) and
// wrapping unmarshal→validate→call exactly as the teacher's
// handlers.WithPayload[T] does.
func RegisterTyped[T any](r *Registry, name, description string, handler func(ctx context.Context, sess SessionContext, payload T) (string, any, error)) error {
	reflector := jsonschema.Reflector{RequiredFromJSONSchemaTags: false, DoNotReference: true}
	schema := reflector.ReflectFromType(reflect.TypeOf(*new(T)))
	schema.Version = ""

	wrapped := func(ctx context.Context, raw json.RawMessage, sess SessionContext) (Envelope, error) {
		var payload T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return Envelope{}, apperr.Validation("invalid payload for tool "+name, map[string]any{"cause": err.Error()})
			}
		}
		if v, ok := any(payload).(Validator); ok {
			if err := v.Validate(); err != nil {
				return Envelope{}, apperr.Validation(err.Error(), nil)
			}
		}
		message, state, err := handler(ctx, sess, payload)
		if err != nil {
			return Envelope{}, err
		}
		return NewEnvelope(message, state), nil
	}

	return r.register(&ToolDef{Name: name, Description: description, Schema: schema, Handler: wrapped})
}

// RegisterRaw wires a tool whose handler already speaks the
// (ctx, rawArgs, sess) → (Envelope, error) contract directly, bypassing the
// typed unmarshal/validate wrapper RegisterTyped builds. This is how
// consolidated tools register: internal/actionrouter.Router.Dispatch has
// exactly this signature, since its sub-actions each carry their own typed
// payload and the top-level tool's shape varies by action.
func RegisterRaw(r *Registry, name, description string, schema *jsonschema.Schema, handler func(ctx context.Context, raw json.RawMessage, sess SessionContext) (Envelope, error)) error {
	return r.register(&ToolDef{Name: name, Description: description, Schema: schema, Handler: handler})
}

// List returns every registered tool's discovery projection, sorted by name
// for deterministic presentation to the caller.
func (r *Registry) List() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolInfo, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, ToolInfo{Name: def.Name, Description: def.Description, InputSchema: def.Schema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke fetches the named tool's handler, routes rawArgs through its
// schema/validation pipeline, and calls it. Unknown tool names fail with
// UnknownTool per spec section 4.1. A handler error is returned as it is:
// ToErrorEnvelope converts it to an error envelope at the transport boundary,
// not here, so callers that want the raw error (e.g. for logging) still get it
// back. Invoke does not recover a panicking handler.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage, sess SessionContext) (Envelope, error) {
	r.mu.RLock()
	def, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Envelope{}, apperr.UnknownTool(name)
	}
	logger.Log.WithFields(map[string]any{"tool": name, "sessionId": sess.SessionID}).Debug("invoking tool")
	env, err := def.Handler(ctx, rawArgs, sess)
	if err != nil {
		logger.Log.WithFields(map[string]any{"tool": name, "sessionId": sess.SessionID, "err": err.Error()}).Warn("tool invocation failed")
		return Envelope{}, err
	}
	return env, nil
}
