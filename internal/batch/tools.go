package batch

import (
	"context"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/actionrouter"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/registry"
)

// NewRouter wires the Engine's six operations behind the batch_manage
// consolidated tool (spec section 6), one actionrouter.AddAction per action.
func NewRouter(e *Engine) *actionrouter.Router {
	r := actionrouter.New("batch_manage")

	type rosterPayload struct {
		Characters []CharacterSpec `json:"characters"`
	}
	_ = actionrouter.AddAction(r, "create_characters", nil, "bulk-create player characters, optionally from templates",
		func(ctx context.Context, sess registry.SessionContext, p rosterPayload) (string, any, error) {
			out, err := e.CreateCharacters(ctx, p.Characters)
			if err != nil {
				return "", nil, err
			}
			return "characters created", out, nil
		})

	_ = actionrouter.AddAction(r, "create_npcs", nil, "bulk-create npcs, optionally from templates",
		func(ctx context.Context, sess registry.SessionContext, p rosterPayload) (string, any, error) {
			out, err := e.CreateNPCs(ctx, p.Characters)
			if err != nil {
				return "", nil, err
			}
			return "npcs created", out, nil
		})

	type distributePayload struct {
		ItemID       string   `json:"itemId"`
		Quantity     int      `json:"quantity"`
		CharacterIDs []string `json:"characterIds"`
	}
	_ = actionrouter.AddAction(r, "distribute_items", []string{"grant_items"}, "grant a fixed item quantity to a list of characters",
		func(ctx context.Context, sess registry.SessionContext, p distributePayload) (string, any, error) {
			out, err := e.DistributeItems(ctx, p.ItemID, p.Quantity, p.CharacterIDs)
			if err != nil {
				return "", nil, err
			}
			return "items distributed", out, nil
		})

	type executeWorkflowPayload struct {
		WorldID    string `json:"worldId"`
		WorkflowID string `json:"workflowId"`
	}
	_ = actionrouter.AddAction(r, "execute_workflow", []string{"advance_workflow"}, "advance a named workflow template by one step",
		func(ctx context.Context, sess registry.SessionContext, p executeWorkflowPayload) (string, any, error) {
			roller := diceroll.New(diceroll.SeedFrom(sess.SessionID, "workflow", p.WorldID, p.WorkflowID, time.Now().String()))
			out, err := e.ExecuteWorkflow(ctx, roller, p.WorldID, p.WorkflowID)
			if err != nil {
				return "", nil, err
			}
			return "workflow step executed", out, nil
		})

	type listTemplatesPayload struct {
		Kind string `json:"kind,omitempty"`
	}
	_ = actionrouter.AddAction(r, "list_templates", nil, "list character and/or workflow templates",
		func(ctx context.Context, sess registry.SessionContext, p listTemplatesPayload) (string, any, error) {
			return "templates listed", ListTemplates(p.Kind), nil
		})

	type getTemplatePayload struct {
		TemplateID string `json:"templateId"`
	}
	_ = actionrouter.AddAction(r, "get_template", nil, "fetch one template's full body by id",
		func(ctx context.Context, sess registry.SessionContext, p getTemplatePayload) (string, any, error) {
			kind, tmpl, err := GetTemplate(p.TemplateID)
			if err != nil {
				return "", nil, err
			}
			return "template found", map[string]any{"kind": kind, "template": tmpl}, nil
		})

	return r
}
