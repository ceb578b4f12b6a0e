// Package theft implements the Theft/Fence Engine: stolen-item provenance,
// heat-decay, fence acceptance rules, and recognition rolls, per SPEC_FULL.md
// section 5 (spec 4.4). It wraps internal/repo.TheftRepo and
// internal/repo.FenceRepo, which remain the only sanctioned writers of
// persisted state; this package owns the business rules layered on top.
package theft

import (
	"context"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/diceroll"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/repo"
)

type Engine struct {
	theft *repo.TheftRepo
	fence *repo.FenceRepo
}

func New(theftRepo *repo.TheftRepo, fenceRepo *repo.FenceRepo) *Engine {
	return &Engine{theft: theftRepo, fence: fenceRepo}
}

// Steal records a new theft. Fails if the thief and victim are the same
// party (spec invariant 3, scenario 2).
func (e *Engine) Steal(ctx context.Context, thiefID, victimID, itemID, location string, witnesses []string) (*model.TheftRecord, error) {
	if thiefID == victimID {
		return nil, apperr.Invariant("thief and victim cannot be the same character", map[string]any{"characterId": thiefID})
	}
	rec := &model.TheftRecord{
		ItemID:         itemID,
		StolenFrom:     victimID,
		StolenBy:       thiefID,
		StolenLocation: location,
		Witnesses:      witnesses,
		HeatLevel:      model.HeatBurning,
	}
	if err := e.theft.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) Check(ctx context.Context, itemID string) (*model.TheftRecord, error) {
	return e.theft.FindByItem(ctx, itemID)
}

// DetectionBand maps a heat level to a human-facing risk band (spec 4.4).
func DetectionBand(h model.HeatLevel) string {
	switch h {
	case model.HeatBurning:
		return "very high"
	case model.HeatHot:
		return "high"
	case model.HeatWarm:
		return "moderate"
	case model.HeatCool:
		return "low"
	default:
		return "none"
	}
}

// SearchResult enumerates the stolen items a character currently holds and
// the overall detection risk, driven by the hottest item held.
type SearchResult struct {
	Items          []*model.TheftRecord `json:"items"`
	HottestHeat    model.HeatLevel      `json:"hottestHeat,omitempty"`
	DetectionRisk  string               `json:"detectionRisk"`
}

func (e *Engine) Search(ctx context.Context, characterID string) (*SearchResult, error) {
	items, err := e.theft.ByHolder(ctx, characterID)
	if err != nil {
		return nil, err
	}
	res := &SearchResult{Items: items, DetectionRisk: DetectionBand("")}
	hottest := model.HeatLevel("")
	hottestVal := -1
	for _, it := range items {
		if v := model.HeatValue(it.HeatLevel); v > hottestVal {
			hottestVal = v
			hottest = it.HeatLevel
		}
	}
	res.HottestHeat = hottest
	res.DetectionRisk = DetectionBand(hottest)
	return res, nil
}

// RecognizeResult is the structured outcome of a recognition check.
type RecognizeResult struct {
	Recognized bool   `json:"recognized"`
	Reaction   string `json:"reaction"` // hostile, suspicious, neutral
	Roll       int    `json:"roll,omitempty"`
	Threshold  int    `json:"threshold,omitempty"`
}

// Recognize resolves whether npcID recognises itemID as stolen, per spec
// 4.4's ordered rule: victim is always hostile-recognized, a witness is
// always suspicious-recognized, otherwise roll a uniform percent against a
// heat+bounty-derived threshold. Ties favour non-recognition.
func (e *Engine) Recognize(ctx context.Context, roller *diceroll.Roller, npcID, itemID string) (*RecognizeResult, error) {
	rec, err := e.theft.FindByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if npcID == rec.StolenFrom {
		return &RecognizeResult{Recognized: true, Reaction: "hostile"}, nil
	}
	for _, w := range rec.Witnesses {
		if w == npcID {
			return &RecognizeResult{Recognized: true, Reaction: "suspicious"}, nil
		}
	}
	threshold := model.HeatValue(rec.HeatLevel) + rec.Bounty/10
	if threshold > 100 {
		threshold = 100
	}
	roll := roller.Percent()
	recognized := roll < threshold // ties (roll == threshold) favour non-recognition
	reaction := "neutral"
	if recognized {
		reaction = "suspicious"
	}
	return &RecognizeResult{Recognized: recognized, Reaction: reaction, Roll: roll, Threshold: threshold}, nil
}

// heatDiscount returns the fraction of a fence's buy rate paid for an item at
// the given heat level: cooler items sell closer to full rate, burning items
// sell at half rate or less (spec 4.4).
func heatDiscount(h model.HeatLevel) float64 {
	switch h {
	case model.HeatBurning:
		return 0.5
	case model.HeatHot:
		return 0.65
	case model.HeatWarm:
		return 0.8
	case model.HeatCool:
		return 0.9
	default:
		return 1.0
	}
}

// SellResult is the structured outcome of selling a stolen item to a fence.
type SellResult struct {
	Accepted bool    `json:"accepted"`
	Reason   string  `json:"reason,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// Sell resolves a sale of itemID (valued itemValue) to fenceID. The fence
// must have room under its daily heat capacity, its maxHeatLevel must cover
// the record's heat, and the item must not be under cooldown. Per-item
// cooldown tracking has no storage home in the data model, so this package
// treats the daily capacity gate as the operative cooldown signal (recorded
// in DESIGN.md) rather than inventing an untracked field; Fence.CooldownDays
// is stored but not checked here.
func (e *Engine) Sell(ctx context.Context, sellerID, fenceID, itemID string, itemValue int) (*SellResult, error) {
	rec, err := e.theft.FindByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	f, err := e.fence.FindByID(ctx, fenceID)
	if err != nil {
		return nil, err
	}

	if model.HeatValue(rec.HeatLevel) > model.HeatValue(f.MaxHeatLevel) {
		return &SellResult{Accepted: false, Reason: "item is too hot for this fence"}, nil
	}
	need := model.HeatValue(rec.HeatLevel)
	if f.DailyHeatCapacity-f.DailyHeatUsed < need {
		return &SellResult{Accepted: false, Reason: "fence has no remaining daily heat capacity"}, nil
	}

	price := float64(itemValue) * f.BuyRate * heatDiscount(rec.HeatLevel)
	f.DailyHeatUsed += need
	if err := e.fence.Update(ctx, f); err != nil {
		return nil, err
	}
	return &SellResult{Accepted: true, Price: price}, nil
}

// RegisterFence fails if the NPC has any open theft-victim record (spec
// invariant 4: no NPC is simultaneously a fence and a theft victim).
func (e *Engine) RegisterFence(ctx context.Context, f *model.Fence) error {
	isVictim, err := e.theft.IsOpenVictim(ctx, f.NPCID)
	if err != nil {
		return err
	}
	if isVictim {
		return apperr.Invariant("an open theft victim cannot be registered as a fence", map[string]any{"npcId": f.NPCID})
	}
	return e.fence.Create(ctx, f)
}

func (e *Engine) GetFence(ctx context.Context, npcID string) (*model.Fence, error) {
	return e.fence.FindByID(ctx, npcID)
}

func (e *Engine) ListFences(ctx context.Context) ([]*model.Fence, error) {
	return e.fence.List(ctx)
}

// Report marks a theft record reported to the guards and adds to its bounty.
func (e *Engine) Report(ctx context.Context, itemID string, bountyOffered int) (*model.TheftRecord, error) {
	rec, err := e.theft.FindByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	rec.ReportedToGuards = true
	rec.Bounty += bountyOffered
	if err := e.theft.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DecayResult reports how many records Decay advanced and by how many steps.
type DecayResult struct {
	RecordsAdvanced int `json:"recordsAdvanced"`
	StepsPerRecord  int `json:"stepsPerRecord"`
}

// Decay advances every open theft record's heat toward cold by one step per
// day (daysAdvanced applies daysAdvanced steps, clamped at cold), and resets
// every fence's daily heat capacity, per spec 4.4.
func (e *Engine) Decay(ctx context.Context, daysAdvanced int) (*DecayResult, error) {
	if daysAdvanced < 0 {
		daysAdvanced = 0
	}
	records, err := e.theft.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		for i := 0; i < daysAdvanced; i++ {
			rec.HeatLevel = model.StepCooler(rec.HeatLevel)
		}
		if err := e.theft.Update(ctx, rec); err != nil {
			return nil, err
		}
	}
	if err := e.fence.ResetDailyCapacity(ctx); err != nil {
		return nil, err
	}
	return &DecayResult{RecordsAdvanced: len(records), StepsPerRecord: daysAdvanced}, nil
}
