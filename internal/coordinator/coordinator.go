// Package coordinator implements C5: synthesis of the six specialist
// recommendations into one tentative decision, grounded on
// original_source/src/agents/coordinator_agent.py. The priority
// hierarchy (spec §4.5) is Safety > Compliance > Cost >
// Efficiency = Smoothness > Forecast; Safety and Compliance may veto by
// forcing their corrective command set verbatim whenever either reaches
// CRITICAL.
package coordinator

import (
	"context"
	"fmt"
	"sort"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

const (
	nameSafety     = "water_level_safety"
	nameCompliance = "constraint_compliance"
	nameCost       = "energy_cost"
	nameEfficiency = "pump_efficiency"
	nameSmoothness = "flow_smoothness"
	nameForecast   = "inflow_forecasting"
)

// Result is the tentative pre-validation decision C5 produces. The
// validator (C6) may still rewrite PumpCommands; nothing here is final.
type Result struct {
	PumpCommands      []domain.PumpCommand
	Reasoning         string
	Priority          domain.Priority
	ConflictsResolved []string
	Confidence        float64
}

// Coordinator is C5.
type Coordinator struct {
	client      llm.Client
	logger      logging.Logger
	model       *pumpmodel.Model
	constraints constraints.Set
}

// New returns a Coordinator.
func New(client llm.Client, logger logging.Logger, model *pumpmodel.Model, cset constraints.Set) *Coordinator {
	return &Coordinator{client: client, logger: logging.OrNop(logger), model: model, constraints: cset}
}

func indexByName(recs []domain.Recommendation) map[string]domain.Recommendation {
	out := make(map[string]domain.Recommendation, len(recs))
	for _, r := range recs {
		out[r.AgentName] = r
	}
	return out
}

// Synthesize produces a tentative Decision from all six Recommendations.
// An agent that missed its deadline still appears here as a low-priority
// timeout stub (see kernel.Driver.fanOutAgents) rather than being absent,
// so byName always has all six names to index.
func (c *Coordinator) Synthesize(ctx context.Context, recs []domain.Recommendation, state domain.SystemState, tracker domain.RuntimeTracker) Result {
	byName := indexByName(recs)

	if res, ok := c.checkVeto(byName); ok {
		return res
	}

	return c.synthesizeDeterministic(ctx, byName, state, tracker)
}

// checkVeto adopts a vetoing agent's corrective command set verbatim.
// Safety outranks Compliance when both veto in the same tick.
func (c *Coordinator) checkVeto(byName map[string]domain.Recommendation) (Result, bool) {
	for _, name := range []string{nameSafety, nameCompliance} {
		rec, ok := byName[name]
		if !ok || !rec.CanVeto || rec.Priority != domain.PriorityCritical {
			continue
		}
		cmds, ok := rec.Data["pump_commands"].([]domain.PumpCommand)
		if !ok || len(cmds) == 0 {
			continue
		}
		return Result{
			PumpCommands:      cmds,
			Reasoning:         fmt.Sprintf("%s veto adopted verbatim: %s", name, rec.Reasoning),
			Priority:          domain.PriorityCritical,
			ConflictsResolved: []string{fmt.Sprintf("%s forced corrective command set at CRITICAL priority", name)},
			Confidence:        rec.Confidence,
		}, true
	}
	return Result{}, false
}

// baselineFlowM3H estimates the flow needed to hold the tunnel level
// steady against current inflow, with a drawdown term once the level
// sits meaningfully above the empty target.
func baselineFlowM3H(state domain.SystemState, cset constraints.Set) float64 {
	inflowM3H := state.F1M3Per15Min * 4
	drawdown := 0.0
	if state.L1M > cset.L1EmptyTarget {
		drawdown = (state.L1M - cset.L1EmptyTarget) * 150 // m3/h per meter above target
	}
	required := inflowM3H + drawdown
	if required < 0 {
		required = 0
	}
	return required
}

func (c *Coordinator) synthesizeDeterministic(ctx context.Context, byName map[string]domain.Recommendation, state domain.SystemState, tracker domain.RuntimeTracker) Result {
	var conflicts []string

	required := baselineFlowM3H(state, c.constraints)

	if cost, ok := byName[nameCost]; ok {
		if defer_, _ := cost.Data["defer_non_critical_pumping"].(bool); defer_ {
			trajectoryState := "SAFE"
			if safety, ok := byName[nameSafety]; ok {
				trajectoryState, _ = safety.Data["trajectory_state"].(string)
			}
			if trajectoryState == "SAFE" {
				scaled := required * 0.7
				conflicts = append(conflicts, fmt.Sprintf("energy cost deferral scaled required flow from %.0f to %.0f m3/h", required, scaled))
				required = scaled
			} else {
				conflicts = append(conflicts, "energy cost deferral suppressed: water level trajectory above SAFE")
			}
		}
	}

	if smoothness, ok := byName[nameSmoothness]; ok && tracker.HasPriorDecision {
		maxSwing, _ := smoothness.Data["max_step_m3h"].(float64)
		last := tracker.LastCommittedF2M3H
		highUrgency := false
		for _, name := range []string{nameSafety, nameCompliance} {
			if rec, ok := byName[name]; ok && rec.Priority.AtLeast(domain.PriorityHigh) {
				highUrgency = true
			}
		}
		if !highUrgency && maxSwing > 0 {
			lo, hi := last-maxSwing, last+maxSwing
			if required < lo {
				conflicts = append(conflicts, fmt.Sprintf("flow smoothness clamped required flow up from %.0f to %.0f m3/h", required, lo))
				required = lo
			} else if required > hi {
				conflicts = append(conflicts, fmt.Sprintf("flow smoothness clamped required flow down from %.0f to %.0f m3/h", required, hi))
				required = hi
			}
		}
	}

	order := prependPreferred(constraints.AllPumpIDs, nil)
	var freqHint map[string]float64
	if eff, ok := byName[nameEfficiency]; ok {
		if preferred, ok := eff.Data["recommended_pumps"].([]string); ok && len(preferred) > 0 {
			order = prependPreferred(constraints.AllPumpIDs, preferred)
		}
		if freqs, ok := eff.Data["frequencies"].(map[string]float64); ok && len(freqs) > 0 {
			freqHint = freqs
		}
	}

	commands := c.dispatchByOrder(order, freqHint, required, state.L1M)

	priority := domain.PriorityLow
	for _, rec := range byName {
		priority = priority.Max(rec.Priority)
	}

	var confSum float64
	var confN int
	for _, rec := range byName {
		confSum += rec.Confidence
		confN++
	}
	confidence := 0.5
	if confN > 0 {
		confidence = confSum / float64(confN)
	}

	reasoning := c.narrateSynthesis(ctx, byName, required, priority)

	return Result{
		PumpCommands:      commands,
		Reasoning:         reasoning,
		Priority:          priority,
		ConflictsResolved: conflicts,
		Confidence:        confidence,
	}
}

// prependPreferred returns all, reordered so that every id in preferred
// appears first (in preferred's order), followed by the remaining ids in
// their original order. Used to take Efficiency's recommended pump
// subset as the coordinator's dispatch baseline (spec §4.5 step 1)
// without dropping the pumps Efficiency didn't mention.
func prependPreferred(all, preferred []string) []string {
	if len(preferred) == 0 {
		return append([]string(nil), all...)
	}
	seen := make(map[string]bool, len(preferred))
	order := make([]string, 0, len(all))
	for _, id := range preferred {
		if !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, id := range all {
		if !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	return order
}

// dispatchByOrder greedily starts pumps from order until cumulative flow
// meets required, leaving the rest stopped. A pump present in freqHint
// starts at that frequency (Efficiency's baseline, spec §4.5 step 1);
// otherwise it starts at nominal. The validator applies the
// fine-grained frequency rewrites (F2 cap, min-one-pump, runtime rule);
// this stage only picks which pumps run and a starting frequency.
func (c *Coordinator) dispatchByOrder(order []string, freqHint map[string]float64, requiredM3H, l1M float64) []domain.PumpCommand {
	freqFor := func(id string) float64 {
		if f, ok := freqHint[id]; ok && f > 0 {
			return f
		}
		return c.constraints.FreqNominalHz
	}

	started := make(map[string]bool, len(order))
	var cumulative float64
	for _, id := range order {
		if cumulative >= requiredM3H {
			break
		}
		res, err := c.model.Performance(id, freqFor(id), l1M)
		if err != nil {
			continue
		}
		started[id] = true
		cumulative += res.FlowM3H
	}

	cmds := make([]domain.PumpCommand, 0, len(constraints.AllPumpIDs))
	for _, id := range constraints.AllPumpIDs {
		cmd := domain.PumpCommand{PumpID: id}
		if started[id] {
			cmd.Start = true
			cmd.FrequencyHz = freqFor(id)
			if res, err := c.model.Performance(id, cmd.FrequencyHz, l1M); err == nil {
				cmd.FlowM3H, cmd.PowerKW, cmd.Efficiency = res.FlowM3H, res.PowerKW, res.Efficiency
			}
		}
		cmds = append(cmds, cmd.Normalize())
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].PumpID < cmds[j].PumpID })
	return cmds
}

func (c *Coordinator) narrateSynthesis(ctx context.Context, byName map[string]domain.Recommendation, required float64, priority domain.Priority) string {
	fallback := fmt.Sprintf("synthesized dispatch for required flow %.0f m3/h at %s priority from %d specialist inputs", required, priority, len(byName))
	if c.client == nil {
		return fallback
	}
	prompt := fmt.Sprintf(
		"You are the coordinator for a wastewater lift station's pump control agents. %d specialist "+
			"recommendations arrived this tick with overall priority %s and a target flow of %.0f m3/h. "+
			"In two sentences, summarize the dispatch rationale for an operator.",
		len(byName), priority, required,
	)
	text, err := c.client.Complete(ctx, prompt)
	if err != nil || text == "" {
		c.logger.Warn("coordinator: llm narration failed, using fallback reasoning: %v", err)
		return fallback
	}
	return text
}
