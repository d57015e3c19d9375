package agents

import (
	"context"
	"fmt"

	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
)

// PumpEfficiencyAgent searches single-pump and pump-pair combinations
// across a fixed frequency grid for the best efficiency/flow-match
// dispatch against the tick's target flow, grounded on
// original_source/src/agents/specialist_agents.py's
// _tool_find_optimal_combination.
type PumpEfficiencyAgent struct {
	client llm.Client
	logger logging.Logger
}

func NewPumpEfficiencyAgent(client llm.Client, logger logging.Logger) *PumpEfficiencyAgent {
	return &PumpEfficiencyAgent{client: client, logger: logging.OrNop(logger)}
}

func (a *PumpEfficiencyAgent) Name() string { return "pump_efficiency" }

func (a *PumpEfficiencyAgent) Assess(ctx context.Context, in Input) (domain.Recommendation, error) {
	target := targetFlowM3H(in.Model, in.Constraints, in.State)
	combos := allCombinations(in.Model, in.Constraints, in.State.L1M)
	best, ok := bestCombination(combos, target)

	priority := domain.PriorityMedium

	var specificEnergy float64
	if ok && best.TotalFlowM3H > 0 {
		specificEnergy = best.TotalPowerKW / best.TotalFlowM3H
	}

	fallback := fmt.Sprintf("target flow %.0f m3/h at L1=%.2fm: no combination matched the flow-match band", target, in.State.L1M)
	if ok {
		fallback = fmt.Sprintf("target flow %.0f m3/h at L1=%.2fm: recommend %v at %v, avg efficiency %.1f%%",
			target, in.State.L1M, best.Pumps, best.Frequencies, best.AvgEfficiency*100)
	}
	prompt := fmt.Sprintf(
		"You are the pump efficiency specialist for a wastewater lift station. Target flow is %.0f m3/h at L1=%.2fm. "+
			"In one sentence, justify the recommended pump combination and its trade-offs.",
		target, in.State.L1M,
	)
	reasoning := narrate(ctx, a.client, a.logger, a.Name(), prompt, fallback)

	data := map[string]any{
		"target_flow_m3h": target,
	}
	if ok {
		data["recommended_pumps"] = best.Pumps
		data["frequencies"] = best.Frequencies
		data["specific_energy"] = specificEnergy
		data["efficiency"] = best.AvgEfficiency
	} else {
		data["recommended_pumps"] = []string{}
		data["frequencies"] = map[string]float64{}
		data["specific_energy"] = 0.0
		data["efficiency"] = 0.0
	}

	return domain.Recommendation{
		AgentName:          a.Name(),
		Priority:           priority,
		Confidence:         0.75,
		RecommendationType: "PUMP_EFFICIENCY",
		Reasoning:          reasoning,
		CanVeto:            false,
		Data:               data,
	}, nil
}
