// Package metrics implements C7: the decision-level cost, energy, and
// flow summary, plus the final constraint re-check that should always
// come back empty once C6 has run. Grounded on
// original_source/src/simulation/price_manager.py's cost accounting and
// original_source/config/constraints.py's validation rules.
package metrics

import (
	"fmt"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
)

// tickHours is the fixed 15-minute decision cadence expressed in hours.
const tickHours = 0.25

// Calculate computes the tick's cost/energy/flow summary and re-checks
// the committed commands against C2. A non-empty violations slice means
// the validator failed to produce a feasible set — this should never
// happen for a correctly wired kernel, but the check itself stays a
// hard invariant rather than an assumption.
func Calculate(cmds []domain.PumpCommand, state domain.SystemState, cset constraints.Set) (domain.CostCalculation, []domain.ConstraintViolation) {
	var totalPowerKW, totalFlowM3H float64
	for _, c := range cmds {
		if c.Start {
			totalPowerKW += c.PowerKW
			totalFlowM3H += c.FlowM3H
		}
	}

	energyKWh := totalPowerKW * tickHours
	flowM3 := totalFlowM3H * tickHours
	costEUR := energyKWh * state.ElectricityPriceEURKWh // sign preserved: a negative price yields negative cost

	var specificEnergy float64
	if flowM3 > 0 {
		specificEnergy = energyKWh / flowM3
	}

	calc := domain.CostCalculation{
		TotalPowerKW:           totalPowerKW,
		EnergyConsumedKWh:      energyKWh,
		CostEUR:                costEUR,
		FlowPumpedM3:           flowM3,
		SpecificEnergyKWhPerM3: specificEnergy,
	}

	return calc, checkViolations(cmds, totalFlowM3H, state, cset)
}

func checkViolations(cmds []domain.PumpCommand, totalFlowM3H float64, state domain.SystemState, cset constraints.Set) []domain.ConstraintViolation {
	var violations []domain.ConstraintViolation

	if !cset.ValidateTotalFlow(totalFlowM3H) {
		violations = append(violations, domain.ConstraintViolation{
			Type: "total_flow_exceeds_cap", Value: totalFlowM3H, Limit: fmt.Sprintf("<= %.0f m3/h", cset.F2MaxM3H),
		})
	}

	running := 0
	for _, c := range cmds {
		if c.Start {
			running++
			if !cset.ValidateFrequency(c.FrequencyHz, false) {
				violations = append(violations, domain.ConstraintViolation{
					Type: fmt.Sprintf("pump_%s_frequency_out_of_band", c.PumpID), Value: c.FrequencyHz,
					Limit: fmt.Sprintf("[%.1f, %.1f] Hz", cset.FreqMinHz, cset.FreqNominalHz),
				})
			}
		} else if c.FrequencyHz != 0 {
			violations = append(violations, domain.ConstraintViolation{
				Type: fmt.Sprintf("pump_%s_frequency_without_start", c.PumpID), Value: c.FrequencyHz, Limit: "0 Hz when stopped",
			})
		}
	}
	if running < cset.MinActivePumps {
		violations = append(violations, domain.ConstraintViolation{
			Type: "fewer_than_min_active_pumps", Value: float64(running), Limit: fmt.Sprintf(">= %d", cset.MinActivePumps),
		})
	}

	if ok, status := cset.ValidateWaterLevel(state.L1M); !ok {
		violations = append(violations, domain.ConstraintViolation{
			Type: "water_level_out_of_hard_bounds", Value: state.L1M, Limit: fmt.Sprintf("[%.1f, %.1f] m (status %s)", cset.L1Min, cset.L1Max, status),
		})
	}

	return violations
}
