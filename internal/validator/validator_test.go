package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

func newValidator(t *testing.T) *Validator {
	model, err := pumpmodel.New(0)
	require.NoError(t, err)
	return New(model, constraints.Default())
}

func allStopped() []domain.PumpCommand {
	cmds := make([]domain.PumpCommand, 0, len(constraints.AllPumpIDs))
	for _, id := range constraints.AllPumpIDs {
		cmds = append(cmds, domain.PumpCommand{PumpID: id})
	}
	return cmds
}

func TestMinOnePumpStartsWhenAllStopped(t *testing.T) {
	v := newValidator(t)
	state := domain.SystemState{Timestamp: time.Now(), L1M: 3.0, F1M3Per15Min: 0}

	out, conflicts := v.Validate(allStopped(), state, domain.RuntimeTracker{Pumps: map[string]domain.PumpRuntimeState{}}, false)

	var running int
	for _, c := range out {
		if c.Start {
			running++
		}
	}
	require.GreaterOrEqual(t, running, 1)
	require.NotEmpty(t, conflicts)
}

func TestFrequencyClampEnforcesInvariant(t *testing.T) {
	v := newValidator(t)
	cmds := allStopped()
	cmds[0] = domain.PumpCommand{PumpID: "1.1", Start: true, FrequencyHz: 10}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 3.0}

	out, _ := v.Validate(cmds, state, domain.RuntimeTracker{Pumps: map[string]domain.PumpRuntimeState{}}, false)
	for _, c := range out {
		require.Equal(t, c.Start, c.FrequencyHz != 0)
		if c.Start {
			require.GreaterOrEqual(t, c.FrequencyHz, v.constraints.FreqMinHz)
			require.LessOrEqual(t, c.FrequencyHz, v.constraints.FreqNominalHz)
		}
	}
}

func TestF2CapReducesTotalFlow(t *testing.T) {
	v := newValidator(t)
	cmds := allStopped()
	for i := range cmds {
		if constraints.PumpClassOf(cmds[i].PumpID) == constraints.ClassLarge {
			cmds[i].Start = true
			cmds[i].FrequencyHz = 50
		}
	}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 3.0}

	out, conflicts := v.Validate(cmds, state, domain.RuntimeTracker{Pumps: map[string]domain.PumpRuntimeState{}}, false)

	var total float64
	for _, c := range out {
		total += c.FlowM3H
	}
	require.LessOrEqual(t, total, v.constraints.F2MaxM3H+1e-6)
	require.NotEmpty(t, conflicts)
}

func TestMinRuntimeRuleKeepsRecentlyStartedPumpRunning(t *testing.T) {
	v := newValidator(t)
	cmds := allStopped()

	startedAt := time.Now().Add(-30 * time.Minute)
	tracker := domain.RuntimeTracker{Pumps: map[string]domain.PumpRuntimeState{
		"1.1": {StartedAt: &startedAt, LastFrequencyHz: 50},
	}}
	state := domain.SystemState{Timestamp: startedAt.Add(30 * time.Minute), L1M: 3.0}

	out, conflicts := v.Validate(cmds, state, tracker, false)

	var found bool
	for _, c := range out {
		if c.PumpID == "1.1" {
			found = c.Start
		}
	}
	require.True(t, found)
	require.NotEmpty(t, conflicts)
}

func TestSufficientFlowGuardStartsPumpWhenProjectedLevelExceedsCeiling(t *testing.T) {
	v := newValidator(t)
	cmds := allStopped()
	cmds[0] = domain.PumpCommand{PumpID: "1.1", Start: true, FrequencyHz: 48}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 6.8, F1M3Per15Min: 4000}

	out, conflicts := v.Validate(cmds, state, domain.RuntimeTracker{Pumps: map[string]domain.PumpRuntimeState{}}, false)

	var running int
	for _, c := range out {
		if c.Start {
			running++
		}
	}
	require.Greater(t, running, 1)
	require.NotEmpty(t, conflicts)
}

func TestSufficientFlowGuardStandsDownWhenSafetyAlreadyVetoed(t *testing.T) {
	v := newValidator(t)
	cmds := allStopped()
	cmds[0] = domain.PumpCommand{PumpID: "1.1", Start: true, FrequencyHz: 48}
	state := domain.SystemState{Timestamp: time.Now(), L1M: 6.8, F1M3Per15Min: 4000}

	out, _ := v.Validate(cmds, state, domain.RuntimeTracker{Pumps: map[string]domain.PumpRuntimeState{}}, true)

	var running int
	for _, c := range out {
		if c.Start {
			running++
		}
	}
	require.Equal(t, 1, running)
}
