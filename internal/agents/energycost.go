package agents

import (
	"context"
	"fmt"
	"math"

	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
	"github.com/liftstation/pumpkernel/internal/priceband"
)

// EnergyCostAgent recommends deferring or accelerating pumping based on
// electricity price, grounded on
// original_source/src/simulation/price_manager.py's diurnal price
// pattern and identify_cheap_windows.
type EnergyCostAgent struct {
	client llm.Client
	logger logging.Logger
}

func NewEnergyCostAgent(client llm.Client, logger logging.Logger) *EnergyCostAgent {
	return &EnergyCostAgent{client: client, logger: logging.OrNop(logger)}
}

func (a *EnergyCostAgent) Name() string { return "energy_cost" }

// projectDiurnalPrices approximates the next 24 ticks of price from the
// current reading using the typical day/night price ratio the original
// dataset exhibits (prices are cheapest overnight, peak in the early
// evening). The coordinator never treats this as ground truth — only
// as a signal for whether to defer non-critical pumping (spec §4.4).
func projectDiurnalPrices(current float64, hourOfDay int) []float64 {
	out := make([]float64, 24)
	for i := range out {
		hour := (hourOfDay + i/4) % 24
		// Smooth diurnal multiplier: trough ~03:00, peak ~15:00.
		phase := 2 * math.Pi * (float64(hour) - 3) / 24
		multiplier := 1.0 + 0.35*math.Cos(phase-math.Pi)
		out[i] = current * multiplier
	}
	return out
}

func (a *EnergyCostAgent) Assess(ctx context.Context, in Input) (domain.Recommendation, error) {
	hour := in.State.Timestamp.Hour()
	projected := projectDiurnalPrices(in.State.ElectricityPriceEURKWh, hour)
	cheap := priceband.CheapWindows(projected, 25)
	expensive := priceband.ExpensiveWindows(projected, 75)

	savings, ratio, risk := priceband.ArbitrageValue(in.State.ElectricityPriceEURKWh, cheap, in.State.L1M)

	priority := domain.PriorityLow
	deferable := risk == "LOW" || risk == "MEDIUM"
	shouldDefer := false
	switch {
	case in.State.ElectricityPriceEURKWh < 0:
		// Negative prices: the grid pays to consume. Strong signal to
		// run more, never to defer.
		priority = domain.PriorityMedium
	case ratio > 1.5 && deferable && len(cheap) > 0:
		priority = domain.PriorityMedium
		shouldDefer = true
	}

	var nextCheapOffset, nextExpensiveOffset int = -1, -1
	if len(cheap) > 0 {
		nextCheapOffset = cheap[0].StartStep
	}
	if len(expensive) > 0 {
		nextExpensiveOffset = expensive[0].StartStep
	}

	fallback := fmt.Sprintf(
		"price %.4f EUR/kWh, price_ratio_to_cheapest=%.2f, defer=%v, risk=%s, est. savings %.2f EUR/1000kWh",
		in.State.ElectricityPriceEURKWh, ratio, shouldDefer, risk, savings,
	)
	prompt := fmt.Sprintf(
		"You are the energy cost specialist for a wastewater lift station. Current price=%.4f EUR/kWh, "+
			"water level L1=%.2fm. %d cheap windows and %d expensive windows detected in the next 6 hours. "+
			"In one or two sentences, recommend whether non-critical pumping should be deferred.",
		in.State.ElectricityPriceEURKWh, in.State.L1M, len(cheap), len(expensive),
	)
	reasoning := narrate(ctx, a.client, a.logger, a.Name(), prompt, fallback)

	return domain.Recommendation{
		AgentName:          a.Name(),
		Priority:           priority,
		Confidence:         0.7,
		RecommendationType: "ENERGY_COST",
		Reasoning:          reasoning,
		CanVeto:            false,
		Data: map[string]any{
			"defer_non_critical_pumping": shouldDefer,
			"price_ratio_to_cheapest":    ratio,
			"estimated_savings_eur_1000kwh": savings,
			"risk_band":                  risk,
			"next_cheap_window_offset":   nextCheapOffset,
			"next_expensive_window_offset": nextExpensiveOffset,
		},
	}, nil
}
