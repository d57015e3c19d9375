package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
)

func TestCalculatePreservesNegativePriceSign(t *testing.T) {
	cset := constraints.Default()
	cmds := []domain.PumpCommand{
		{PumpID: "1.1", Start: true, FrequencyHz: 50, FlowM3H: 1670, PowerKW: 192.7},
	}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 3.0, ElectricityPriceEURKWh: -0.05}

	calc, violations := Calculate(cmds, state, cset)
	require.Empty(t, violations)
	require.InDelta(t, 192.7*0.25, calc.EnergyConsumedKWh, 1e-9)
	require.Less(t, calc.CostEUR, 0.0)
}

func TestCalculateFlagsTotalFlowViolation(t *testing.T) {
	cset := constraints.Default()
	cmds := []domain.PumpCommand{
		{PumpID: "1.1", Start: true, FrequencyHz: 50, FlowM3H: cset.F2MaxM3H + 500, PowerKW: 100},
	}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 3.0, ElectricityPriceEURKWh: 0.1}

	_, violations := Calculate(cmds, state, cset)
	require.NotEmpty(t, violations)
}

func TestCalculateZeroFlowHasZeroSpecificEnergy(t *testing.T) {
	cset := constraints.Default()
	cmds := []domain.PumpCommand{{PumpID: "1.1", Start: false}}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 3.0, ElectricityPriceEURKWh: 0.1}

	calc, _ := Calculate(cmds, state, cset)
	require.Equal(t, 0.0, calc.SpecificEnergyKWhPerM3)
}
