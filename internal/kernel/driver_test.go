package kernel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/liftstation/pumpkernel/internal/agents"
	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/coordinator"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/forecast"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
	"github.com/liftstation/pumpkernel/internal/telemetry"
	"github.com/liftstation/pumpkernel/internal/validator"
)

type fakeHistory struct{ base float64 }

func (f fakeHistory) InflowWindow(historyIndex, lookback int) ([]float64, bool) {
	if historyIndex < lookback {
		return nil, false
	}
	out := make([]float64, lookback)
	for i := range out {
		out[i] = f.base
	}
	return out, true
}

type fakeStates struct{}

func (fakeStates) StateAt(historyIndex int) (domain.SystemState, error) {
	if historyIndex < 0 {
		return domain.SystemState{}, fmt.Errorf("negative index")
	}
	return domain.SystemState{
		Timestamp:              time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(historyIndex) * 15 * time.Minute),
		L1M:                    3.0,
		VM3:                    1200,
		F1M3Per15Min:           500,
		F2M3H:                  1500,
		ElectricityPriceEURKWh: 0.15,
		PriceScenario:          domain.ScenarioNormal,
		HistoryIndex:           historyIndex,
	}, nil
}

func newTestDriver(t *testing.T) *Driver {
	model, err := pumpmodel.New(0)
	require.NoError(t, err)
	fc, err := forecast.New(fakeHistory{base: 500}, 48, 0, nil)
	require.NoError(t, err)
	client := llm.NewMockClient("mock", nil)
	registry := agents.NewRegistry(client, nil)
	coord := coordinator.New(client, nil, model, constraints.Default())
	valid := validator.New(model, constraints.Default())

	return New(registry, fc, model, coord, valid, constraints.Default(), fakeStates{}, nil, Config{
		AgentTimeout:       500 * time.Millisecond,
		CoordinatorTimeout: 500 * time.Millisecond,
	})
}

func TestDecideRejectsInvalidState(t *testing.T) {
	d := newTestDriver(t)
	_, err := d.Decide(context.Background(), domain.SystemState{L1M: -1})
	require.Error(t, err)
	var invalid *domain.InvalidStateError
	require.ErrorAs(t, err, &invalid)
}

func TestDecideProducesFeasibleDecision(t *testing.T) {
	d := newTestDriver(t)
	state, err := d.StateAt(200)
	require.NoError(t, err)

	decision, err := d.Decide(context.Background(), state)
	require.NoError(t, err)
	require.Empty(t, decision.ConstraintViolations)
	require.NotEmpty(t, decision.PumpCommands)
	require.NotEmpty(t, decision.AgentMessages)

	var running int
	for _, c := range decision.PumpCommands {
		require.Equal(t, c.Start, c.FrequencyHz != 0)
		if c.Start {
			running++
		}
	}
	require.GreaterOrEqual(t, running, constraints.Default().MinActivePumps)
	require.NoError(t, d.LastTickDiagnostics())
}

func TestDecideRecordsTelemetryWhenAttached(t *testing.T) {
	d := newTestDriver(t)
	reg := prometheus.NewRegistry()
	d.AttachTelemetry(telemetry.New(reg))

	state, err := d.StateAt(200)
	require.NoError(t, err)
	_, err = d.Decide(context.Background(), state)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestDecideIsSerializedAcrossConcurrentCalls(t *testing.T) {
	d := newTestDriver(t)
	state, err := d.StateAt(200)
	require.NoError(t, err)

	const n = 5
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := d.Decide(context.Background(), state)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}
