package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseState() SystemState {
	return SystemState{
		Timestamp:              time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		L1M:                    3,
		VM3:                    1000,
		F1M3Per15Min:           500,
		F2M3H:                  1000,
		ElectricityPriceEURKWh: 0.2,
		PriceScenario:          ScenarioNormal,
	}
}

func TestValidateRejectsNegativeLevel(t *testing.T) {
	s := baseState()
	s.L1M = -1
	var invalid *InvalidStateError
	require.ErrorAs(t, s.Validate(), &invalid)
}

func TestValidateRejectsNaN(t *testing.T) {
	s := baseState()
	s.F1M3Per15Min = math.NaN()
	require.Error(t, s.Validate())
}

func TestValidateRejectsUnknownScenario(t *testing.T) {
	s := baseState()
	s.PriceScenario = "negative"
	require.Error(t, s.Validate())
}

func TestValidateAcceptsNegativePriceWithinBand(t *testing.T) {
	s := baseState()
	s.ElectricityPriceEURKWh = -5
	require.NoError(t, s.Validate())
}

func TestPriorityAtLeastAndMax(t *testing.T) {
	require.True(t, PriorityCritical.AtLeast(PriorityHigh))
	require.False(t, PriorityLow.AtLeast(PriorityMedium))
	require.Equal(t, PriorityHigh, PriorityMedium.Max(PriorityHigh))
}

func TestPumpCommandNormalizeZeroesFrequencyWhenStopped(t *testing.T) {
	c := PumpCommand{Start: false, FrequencyHz: 42}.Normalize()
	require.Zero(t, c.FrequencyHz)
}

func TestRuntimeTrackerCommitTracksStartedAtAndRuntime(t *testing.T) {
	tr := NewRuntimeTracker([]string{"1.1", "1.2"})
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.Commit(t0, []PumpCommand{{PumpID: "1.1", Start: true, FrequencyHz: 45, FlowM3H: 300}}, false)
	require.Equal(t, 0.0, tr.RuntimeHours("1.1", t0))

	t1 := t0.Add(30 * time.Minute)
	require.InDelta(t, 0.5, tr.RuntimeHours("1.1", t1), 1e-9)

	tr.Commit(t1, []PumpCommand{{PumpID: "1.1", Start: false}}, true)
	require.Zero(t, tr.RuntimeHours("1.1", t1))
	require.NotNil(t, tr.LastEmptyBelow05MAt)
	require.True(t, tr.HasPriorDecision)
}

func TestRuntimeTrackerSnapshotIsIndependentCopy(t *testing.T) {
	tr := NewRuntimeTracker([]string{"1.1"})
	snap := tr.Snapshot()
	tr.Commit(time.Now(), []PumpCommand{{PumpID: "1.1", Start: true, FrequencyHz: 45}}, false)
	require.False(t, snap.HasPriorDecision)
	require.Nil(t, snap.Pumps["1.1"].StartedAt)
}

func TestDecisionTotalFlowAndRunningPumps(t *testing.T) {
	d := Decision{PumpCommands: []PumpCommand{
		{PumpID: "1.1", Start: true, FlowM3H: 100},
		{PumpID: "1.2", Start: false, FlowM3H: 50},
	}}
	require.Equal(t, 100.0, d.TotalFlowM3H())
	require.Equal(t, []string{"1.1"}, d.RunningPumps())
}
