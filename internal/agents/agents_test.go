package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/forecast"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

func newTestInput(t *testing.T, l1 float64) Input {
	model, err := pumpmodel.New(0)
	require.NoError(t, err)
	tracker := domain.NewRuntimeTracker(constraints.AllPumpIDs)
	return Input{
		State: domain.SystemState{
			Timestamp:              time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			L1M:                    l1,
			VM3:                    1000,
			F1M3Per15Min:           500,
			F2M3H:                  1000,
			ElectricityPriceEURKWh: 0.15,
			PriceScenario:          domain.ScenarioNormal,
			HistoryIndex:           200,
		},
		Forecast:    forecast.Snapshot{Next6h: &forecast.Sequence{}, Next24h: &forecast.Sequence{}, Trend: forecast.TrendStable, Confidence: 0.8},
		Tracker:     tracker.Snapshot(),
		Constraints: constraints.Default(),
		Model:       model,
	}
}

func TestWaterLevelSafetyVetoesAtCriticalLevel(t *testing.T) {
	in := newTestInput(t, 8.05)
	agent := NewWaterLevelSafetyAgent(llm.NewMockClient("mock", nil), nil)

	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityCritical, rec.Priority)
	require.True(t, rec.CanVeto)

	cmds, ok := rec.Data["pump_commands"].([]domain.PumpCommand)
	require.True(t, ok)
	require.NotEmpty(t, cmds)

	var running int
	for _, c := range cmds {
		if c.Start {
			running++
		}
	}
	require.Greater(t, running, 0)
}

func TestWaterLevelSafetyIsQuietWithinNormalBand(t *testing.T) {
	in := newTestInput(t, 3.0)
	agent := NewWaterLevelSafetyAgent(llm.NewMockClient("mock", nil), nil)

	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityLow, rec.Priority)
	require.False(t, rec.CanVeto)
}

func TestWaterLevelSafetyEmitsCriticalAtAlarmLevelWithoutStorm(t *testing.T) {
	in := newTestInput(t, 7.5)
	agent := NewWaterLevelSafetyAgent(llm.NewMockClient("mock", nil), nil)

	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityCritical, rec.Priority)
	require.True(t, rec.CanVeto)

	cmds, ok := rec.Data["pump_commands"].([]domain.PumpCommand)
	require.True(t, ok)

	var running int
	for _, c := range cmds {
		if c.Start {
			running++
		}
	}
	require.GreaterOrEqual(t, running, 3)
}

func TestConstraintComplianceVetoesOnFlowCapBreach(t *testing.T) {
	in := newTestInput(t, 3.0)
	in.State.F2M3H = in.Constraints.F2MaxM3H + 1

	agent := NewConstraintComplianceAgent(llm.NewMockClient("mock", nil), nil)
	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityCritical, rec.Priority)
	require.True(t, rec.CanVeto)
	require.Contains(t, rec.Data, "pump_commands")
}

func TestPumpEfficiencyRecommendsAMatchingCombination(t *testing.T) {
	in := newTestInput(t, 4.0)
	agent := NewPumpEfficiencyAgent(llm.NewMockClient("mock", nil), nil)

	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityMedium, rec.Priority)

	pumps, ok := rec.Data["recommended_pumps"].([]string)
	require.True(t, ok)
	require.LessOrEqual(t, len(pumps), 2)

	freqs, ok := rec.Data["frequencies"].(map[string]float64)
	require.True(t, ok)
	require.Len(t, freqs, len(pumps))
	require.Contains(t, rec.Data, "specific_energy")
	require.Contains(t, rec.Data, "efficiency")
}

func TestInflowForecastFlagsStorm(t *testing.T) {
	in := newTestInput(t, 4.0)
	in.Forecast.StormDetected = true
	in.Forecast.Next6h = &forecast.Sequence{}

	agent := NewInflowForecastAgent(llm.NewMockClient("mock", nil), nil)
	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityHigh, rec.Priority)
}

func TestInflowForecastDefaultsToMediumWithoutStormOrSpike(t *testing.T) {
	in := newTestInput(t, 4.0)

	agent := NewInflowForecastAgent(llm.NewMockClient("mock", nil), nil)
	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityMedium, rec.Priority)
	require.Contains(t, rec.Data, "predicted_inflow")
	require.Equal(t, 0, rec.Data["forecast_horizon_steps"])
}

func TestEnergyCostFlagsNegativePrice(t *testing.T) {
	in := newTestInput(t, 4.0)
	in.State.ElectricityPriceEURKWh = -0.02

	agent := NewEnergyCostAgent(llm.NewMockClient("mock", nil), nil)
	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityMedium, rec.Priority)
}

func TestFlowSmoothnessReportsNoVariabilityWithoutPriorDecision(t *testing.T) {
	in := newTestInput(t, 4.0)

	agent := NewFlowSmoothnessAgent(llm.NewMockClient("mock", nil), nil)
	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.False(t, in.Tracker.HasPriorDecision)
	require.Equal(t, domain.PriorityLow, rec.Priority)
	require.Equal(t, 0.0, rec.Data["flow_variability"])
	require.Equal(t, maxAllowedStepM3H, rec.Data["max_step_m3h"])
	require.Nil(t, rec.Data["staged"])
}

func TestFlowSmoothnessStagesLargeStepAndEscalatesPriority(t *testing.T) {
	in := newTestInput(t, 4.0)
	in.State.F1M3Per15Min = 5000 // projected F1*4 = 20000 m3/h target
	in.Tracker.HasPriorDecision = true
	in.Tracker.LastCommittedF2M3H = 1000

	agent := NewFlowSmoothnessAgent(llm.NewMockClient("mock", nil), nil)
	rec, err := agent.Assess(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityMedium, rec.Priority)

	staged, ok := rec.Data["staged"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, staged, 2)
}

func TestRegistryReturnsSixAgents(t *testing.T) {
	reg := NewRegistry(llm.NewMockClient("mock", nil), nil)
	require.Len(t, reg, 6)
	names := map[string]bool{}
	for _, a := range reg {
		names[a.Name()] = true
	}
	require.Len(t, names, 6)
}
