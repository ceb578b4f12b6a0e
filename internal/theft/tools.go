package theft

import (
	"context"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/actionrouter"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/registry"
)

// NewRouter wires the Engine's ten operations behind the theft_manage
// consolidated tool (spec section 6), one actionrouter.AddAction per action.
func NewRouter(e *Engine) *actionrouter.Router {
	r := actionrouter.New("theft_manage")

	type stealPayload struct {
		ThiefID   string   `json:"thiefId"`
		VictimID  string   `json:"victimId"`
		ItemID    string   `json:"itemId"`
		Location  string   `json:"location,omitempty"`
		Witnesses []string `json:"witnesses,omitempty"`
	}
	_ = actionrouter.AddAction(r, "steal", nil, "record a new theft",
		func(ctx context.Context, sess registry.SessionContext, p stealPayload) (string, any, error) {
			out, err := e.Steal(ctx, p.ThiefID, p.VictimID, p.ItemID, p.Location, p.Witnesses)
			if err != nil {
				return "", nil, err
			}
			return "theft recorded", out, nil
		})

	type itemOnlyPayload struct {
		ItemID string `json:"itemId"`
	}
	_ = actionrouter.AddAction(r, "check", []string{"check_item"}, "look up a theft record by item",
		func(ctx context.Context, sess registry.SessionContext, p itemOnlyPayload) (string, any, error) {
			out, err := e.Check(ctx, p.ItemID)
			if err != nil {
				return "", nil, err
			}
			return "theft record found", out, nil
		})

	type characterOnlyPayload struct {
		CharacterID string `json:"characterId"`
	}
	_ = actionrouter.AddAction(r, "search", nil, "search a character for stolen goods",
		func(ctx context.Context, sess registry.SessionContext, p characterOnlyPayload) (string, any, error) {
			out, err := e.Search(ctx, p.CharacterID)
			if err != nil {
				return "", nil, err
			}
			return "search complete", out, nil
		})

	type recognizePayload struct {
		NPCID  string `json:"npcId"`
		ItemID string `json:"itemId"`
	}
	_ = actionrouter.AddAction(r, "recognize", nil, "resolve whether an npc recognises an item as stolen",
		func(ctx context.Context, sess registry.SessionContext, p recognizePayload) (string, any, error) {
			roller := diceroll.New(diceroll.SeedFrom(sess.SessionID, "recognize", p.NPCID, p.ItemID, time.Now().String()))
			out, err := e.Recognize(ctx, roller, p.NPCID, p.ItemID)
			if err != nil {
				return "", nil, err
			}
			return "recognition resolved", out, nil
		})

	type sellPayload struct {
		SellerID  string `json:"sellerId"`
		FenceID   string `json:"fenceId"`
		ItemID    string `json:"itemId"`
		ItemValue int    `json:"itemValue"`
	}
	_ = actionrouter.AddAction(r, "sell", []string{"fence"}, "sell a stolen item to a fence",
		func(ctx context.Context, sess registry.SessionContext, p sellPayload) (string, any, error) {
			out, err := e.Sell(ctx, p.SellerID, p.FenceID, p.ItemID, p.ItemValue)
			if err != nil {
				return "", nil, err
			}
			return "sale resolved", out, nil
		})

	type registerFencePayload struct {
		NPCID             string          `json:"npcId"`
		FactionID         string          `json:"factionId,omitempty"`
		BuyRate           float64         `json:"buyRate"`
		MaxHeatLevel      model.HeatLevel `json:"maxHeatLevel"`
		DailyHeatCapacity int             `json:"dailyHeatCapacity"`
		Specializations   []string        `json:"specializations,omitempty"`
		CooldownDays      int             `json:"cooldownDays,omitempty"`
	}
	_ = actionrouter.AddAction(r, "register_fence", nil, "register an npc as a fence",
		func(ctx context.Context, sess registry.SessionContext, p registerFencePayload) (string, any, error) {
			f := &model.Fence{
				NPCID: p.NPCID, FactionID: p.FactionID, BuyRate: p.BuyRate, MaxHeatLevel: p.MaxHeatLevel,
				DailyHeatCapacity: p.DailyHeatCapacity, Specializations: p.Specializations, CooldownDays: p.CooldownDays,
			}
			if err := e.RegisterFence(ctx, f); err != nil {
				return "", nil, err
			}
			return "fence registered", f, nil
		})

	type reportPayload struct {
		ItemID        string `json:"itemId"`
		BountyOffered int    `json:"bountyOffered,omitempty"`
	}
	_ = actionrouter.AddAction(r, "report", []string{"report_to_guards"}, "report a theft to the guards",
		func(ctx context.Context, sess registry.SessionContext, p reportPayload) (string, any, error) {
			out, err := e.Report(ctx, p.ItemID, p.BountyOffered)
			if err != nil {
				return "", nil, err
			}
			return "theft reported", out, nil
		})

	type decayPayload struct {
		DaysAdvanced int `json:"daysAdvanced"`
	}
	_ = actionrouter.AddAction(r, "decay", []string{"advance_heat"}, "advance every open theft record's heat and reset fence daily capacity",
		func(ctx context.Context, sess registry.SessionContext, p decayPayload) (string, any, error) {
			out, err := e.Decay(ctx, p.DaysAdvanced)
			if err != nil {
				return "", nil, err
			}
			return "decay applied", out, nil
		})

	type npcOnlyPayload struct {
		NPCID string `json:"npcId"`
	}
	_ = actionrouter.AddAction(r, "get_fence", nil, "look up a fence by npc id",
		func(ctx context.Context, sess registry.SessionContext, p npcOnlyPayload) (string, any, error) {
			out, err := e.GetFence(ctx, p.NPCID)
			if err != nil {
				return "", nil, err
			}
			return "fence found", out, nil
		})

	_ = actionrouter.AddAction(r, "list_fences", nil, "list every registered fence",
		func(ctx context.Context, sess registry.SessionContext, p struct{}) (string, any, error) {
			out, err := e.ListFences(ctx)
			if err != nil {
				return "", nil, err
			}
			return "fences listed", out, nil
		})

	return r
}
