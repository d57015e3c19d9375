package agents

import (
	"context"
	"fmt"
	"math"

	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
)

// maxAllowedStepM3H is the tick-to-tick flow change Flow Smoothness
// will tolerate before staging the change across two ticks instead of
// committing it in one.
const maxAllowedStepM3H = 2000.0

// mediumEscalationStepM3H is the larger step size past which Flow
// Smoothness escalates its own priority from LOW to MEDIUM.
const mediumEscalationStepM3H = 4000.0

// FlowSmoothnessAgent discourages large tick-to-tick swings in total
// pumped flow, which stress the downstream treatment plant, grounded
// on original_source/src/agents/specialist_agents.py's smoothness
// specialist (_tool_calculate_flow_variability / _tool_create_staged_plan).
// It never vetoes — smoothness always yields to safety, compliance, and
// cost.
type FlowSmoothnessAgent struct {
	client llm.Client
	logger logging.Logger
}

func NewFlowSmoothnessAgent(client llm.Client, logger logging.Logger) *FlowSmoothnessAgent {
	return &FlowSmoothnessAgent{client: client, logger: logging.OrNop(logger)}
}

func (a *FlowSmoothnessAgent) Name() string { return "flow_smoothness" }

// stageFlow finds the best-matching pump combination for flowM3H and
// packages it as one step of a staged plan.
func stageFlow(combos []pumpCombination, delayTicks int, flowM3H float64) map[string]any {
	var pumps []string
	if best, ok := bestCombination(combos, flowM3H); ok {
		pumps = best.Pumps
	}
	return map[string]any{
		"delay_ticks": delayTicks,
		"pumps":       pumps,
		"flow":        flowM3H,
	}
}

func (a *FlowSmoothnessAgent) Assess(ctx context.Context, in Input) (domain.Recommendation, error) {
	last := in.Tracker.LastCommittedF2M3H
	proposed := targetFlowM3H(in.Model, in.Constraints, in.State)

	var deltaF2 float64
	if in.Tracker.HasPriorDecision {
		deltaF2 = proposed - last
	}
	flowVariability := math.Abs(deltaF2)

	priority := domain.PriorityLow
	if flowVariability > mediumEscalationStepM3H {
		priority = domain.PriorityMedium
	}

	var staged []map[string]any
	if in.Tracker.HasPriorDecision && flowVariability > maxAllowedStepM3H {
		combos := allCombinations(in.Model, in.Constraints, in.State.L1M)
		midFlow := last + deltaF2/2
		staged = []map[string]any{
			stageFlow(combos, 0, midFlow),
			stageFlow(combos, 1, proposed),
		}
	}

	fallback := fmt.Sprintf("last committed flow %.0f m3/h, proposed %.0f m3/h, variability %.0f m3/h", last, proposed, flowVariability)
	prompt := fmt.Sprintf(
		"You are the flow smoothness specialist for a wastewater lift station. Last committed total flow was "+
			"%.0f m3/h, this tick's proposed flow is %.0f m3/h. In one sentence, recommend whether the change "+
			"should be staged to avoid destabilizing the downstream treatment process.",
		last, proposed,
	)
	reasoning := narrate(ctx, a.client, a.logger, a.Name(), prompt, fallback)

	return domain.Recommendation{
		AgentName:          a.Name(),
		Priority:           priority,
		Confidence:         0.8,
		RecommendationType: "FLOW_SMOOTHNESS",
		Reasoning:          reasoning,
		CanVeto:            false,
		Data: map[string]any{
			"flow_variability": flowVariability,
			"max_step_m3h":     maxAllowedStepM3H,
			"staged":           staged,
		},
	}, nil
}
