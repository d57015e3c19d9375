package agents

import (
	"context"
	"fmt"

	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
)

// InflowForecastAgent surfaces C3's forecast as a Recommendation,
// grounded on original_source/src/agents/inflow_agent.py. It never
// vetoes: its job is to warn the coordinator early, not to force a
// command set.
type InflowForecastAgent struct {
	client llm.Client
	logger logging.Logger
}

func NewInflowForecastAgent(client llm.Client, logger logging.Logger) *InflowForecastAgent {
	return &InflowForecastAgent{client: client, logger: logging.OrNop(logger)}
}

func (a *InflowForecastAgent) Name() string { return "inflow_forecasting" }

func (a *InflowForecastAgent) Assess(ctx context.Context, in Input) (domain.Recommendation, error) {
	snap := in.Forecast

	priority := domain.PriorityMedium
	if snap.StormDetected || snap.PeakValue > 2*in.State.F1M3Per15Min {
		priority = domain.PriorityHigh
	}

	var horizon []float64
	if snap.Next6h != nil {
		horizon = snap.Next6h.Values()
	}
	predictedInflow := in.State.F1M3Per15Min
	if len(horizon) > 0 {
		predictedInflow = horizon[0]
	}

	fallback := fmt.Sprintf(
		"inflow trend %s, peak %.0f m3/15min in %d ticks, storm_detected=%v (confidence %.2f)",
		snap.Trend, snap.PeakValue, snap.PeakTimeOffset, snap.StormDetected, snap.Confidence,
	)

	prompt := fmt.Sprintf(
		"You are the inflow forecasting specialist for a wastewater lift station. "+
			"Current level L1=%.2fm, inflow F1=%.0f m3/15min. Forecast trend=%s, peak=%.0f m3/15min "+
			"at tick+%d, storm_detected=%v. In one or two sentences, explain the operational implication.",
		in.State.L1M, in.State.F1M3Per15Min, snap.Trend, snap.PeakValue, snap.PeakTimeOffset, snap.StormDetected,
	)
	reasoning := narrate(ctx, a.client, a.logger, a.Name(), prompt, fallback)

	return domain.Recommendation{
		AgentName:          a.Name(),
		Priority:           priority,
		Confidence:         snap.Confidence,
		RecommendationType: "INFLOW_FORECAST",
		Reasoning:          reasoning,
		CanVeto:            false,
		Data: map[string]any{
			"trend":                  string(snap.Trend),
			"peak_value_m3h":         snap.PeakValue,
			"peak_offset_tick":       snap.PeakTimeOffset,
			"storm_detected":         snap.StormDetected,
			"next_6h":                horizon,
			"predicted_inflow":       predictedInflow,
			"forecast_horizon_steps": len(horizon),
		},
	}, nil
}
