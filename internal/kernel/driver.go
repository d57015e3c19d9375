// Package kernel implements C8: the decision driver that wires C1-C7
// together into one tick. Grounded on the teacher repo's
// internal/tools/builtin/subagent.go fan-out pattern (errgroup +
// per-agent context deadline) and original_source's top-level
// orchestration loop.
package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/liftstation/pumpkernel/internal/agents"
	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/coordinator"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/forecast"
	"github.com/liftstation/pumpkernel/internal/logging"
	"github.com/liftstation/pumpkernel/internal/metrics"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
	"github.com/liftstation/pumpkernel/internal/telemetry"
	"github.com/liftstation/pumpkernel/internal/validator"
)

// StateSource resolves a historical tick by index, backing StateAt.
type StateSource interface {
	StateAt(historyIndex int) (domain.SystemState, error)
}

// Config bounds how long a tick tolerates a slow specialist or
// coordinator before proceeding without it (spec §4.4/§5).
type Config struct {
	AgentTimeout       time.Duration
	CoordinatorTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = 8 * time.Second
	}
	if c.CoordinatorTimeout <= 0 {
		c.CoordinatorTimeout = 20 * time.Second
	}
	return c
}

// Driver is C8. One Driver instance owns the single RuntimeTracker for
// its process; at most one tick may be in flight at a time (spec §5),
// enforced by mu.
type Driver struct {
	mu sync.Mutex

	agentRegistry []agents.Agent
	forecaster    *forecast.Forecaster
	model         *pumpmodel.Model
	coordinator   *coordinator.Coordinator
	validator     *validator.Validator
	constraints   constraints.Set
	tracker       *domain.RuntimeTracker
	states        StateSource
	logger        logging.Logger
	cfg           Config
	telemetry     *telemetry.Metrics

	lastTickDiagnostics error
}

// AttachTelemetry wires a process-level telemetry sink into the driver;
// every subsequent Decide call records tick latency, decision priority,
// cost, constraint violations, and per-agent timeouts against it. Safe
// to call at most once before the driver starts serving ticks.
func (d *Driver) AttachTelemetry(m *telemetry.Metrics) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.telemetry = m
}

// New assembles a Driver from its components. The RuntimeTracker starts
// with every pump in constraints.AllPumpIDs stopped.
func New(
	registry []agents.Agent,
	forecaster *forecast.Forecaster,
	model *pumpmodel.Model,
	coord *coordinator.Coordinator,
	valid *validator.Validator,
	cset constraints.Set,
	states StateSource,
	logger logging.Logger,
	cfg Config,
) *Driver {
	return &Driver{
		agentRegistry: registry,
		forecaster:    forecaster,
		model:         model,
		coordinator:   coord,
		validator:     valid,
		constraints:   cset,
		tracker:       domain.NewRuntimeTracker(constraints.AllPumpIDs),
		states:        states,
		logger:        logging.OrNop(logger),
		cfg:           cfg.withDefaults(),
	}
}

// StateAt resolves a historical SystemState by index (spec §6).
func (d *Driver) StateAt(historyIndex int) (domain.SystemState, error) {
	return d.states.StateAt(historyIndex)
}

// HistoryLen reports the underlying StateSource's row count, when it
// exposes one (internal/dataset.Reader does). ok is false for a
// StateSource that has no fixed length, such as a live feed.
func (d *Driver) HistoryLen() (length int, ok bool) {
	if l, ok := d.states.(interface{ Len() int }); ok {
		return l.Len(), true
	}
	return 0, false
}

// LastTickDiagnostics returns the aggregated specialist failures (timeouts,
// parse errors) from the most recently completed tick, or nil if every
// specialist reported successfully. Callers that want the decision itself
// to keep flowing on a partial specialist fan-out use this for
// after-the-fact observability rather than as a tick failure signal.
func (d *Driver) LastTickDiagnostics() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTickDiagnostics
}

// Decide runs one full tick: validate input, fan out the six
// specialists, synthesize, validate, and commit. The only error it can
// return is *domain.InvalidStateError (spec's error taxonomy); every
// other failure mode is absorbed and recorded inside the Decision.
func (d *Driver) Decide(ctx context.Context, state domain.SystemState) (domain.Decision, error) {
	if err := state.Validate(); err != nil {
		return domain.Decision{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tickStart := time.Now()

	trackerSnapshot := d.tracker.Snapshot()

	snap := d.forecaster.Forecast(state.HistoryIndex)

	recs, diag := d.fanOutAgents(ctx, state, snap, trackerSnapshot)
	d.lastTickDiagnostics = diag

	coordCtx, cancel := context.WithTimeout(ctx, d.cfg.CoordinatorTimeout)
	synth := d.coordinator.Synthesize(coordCtx, recs, state, trackerSnapshot)
	cancel()

	safetyVetoed := false
	for _, r := range recs {
		if r.RecommendationType == "WATER_LEVEL_SAFETY" && r.CanVeto && r.Priority == domain.PriorityCritical {
			safetyVetoed = true
			break
		}
	}

	finalCmds, validatorConflicts := d.validator.Validate(synth.PumpCommands, state, trackerSnapshot, safetyVetoed)

	costCalc, violations := metrics.Calculate(finalCmds, state, d.constraints)

	emptied := state.L1M <= d.constraints.L1EmptyTarget

	decision := domain.Decision{
		Timestamp:            state.Timestamp,
		PumpCommands:         finalCmds,
		CoordinatorReasoning: synth.Reasoning,
		PriorityApplied:      synth.Priority,
		ConflictsResolved:    append(append([]string(nil), synth.ConflictsResolved...), validatorConflicts...),
		Confidence:           synth.Confidence,
		CostCalculation:      costCalc,
		ConstraintViolations: violations,
		AgentMessages:        recs,
	}

	d.tracker.Commit(state.Timestamp, finalCmds, emptied)

	if d.telemetry != nil {
		present := make(map[string]bool, len(recs))
		for _, r := range recs {
			present[r.AgentName] = r.RecommendationType != timeoutStubType
		}
		allNames := make([]string, len(d.agentRegistry))
		for i, a := range d.agentRegistry {
			allNames[i] = a.Name()
		}
		d.telemetry.Observe(decision, time.Since(tickStart).Seconds(), present, allNames)
	}

	return decision, nil
}

// timeoutStubType marks a recommendation that fanOutAgents synthesized
// in place of a specialist that timed out or errored, so the
// coordinator always sees exactly len(agentRegistry) recommendations
// (spec §4.4).
const timeoutStubType domain.RecommendationType = "TIMEOUT"

// fanOutAgents runs every registered specialist concurrently, each
// bounded by its own AgentTimeout. An agent that times out or errors has
// its slot replaced with a LOW/0-confidence stub (spec §4.4) rather than
// being dropped, so the coordinator always synthesizes from exactly
// len(agentRegistry) recommendations. The individual failures are not
// discarded, though — they are aggregated with multierr into a single
// diagnostic value the caller can inspect after the tick via
// LastTickDiagnostics.
func (d *Driver) fanOutAgents(ctx context.Context, state domain.SystemState, snap forecast.Snapshot, tracker domain.RuntimeTracker) ([]domain.Recommendation, error) {
	results := make([]domain.Recommendation, len(d.agentRegistry))
	errs := make([]error, len(d.agentRegistry))

	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range d.agentRegistry {
		i, agent := i, agent
		g.Go(func() error {
			agentCtx, cancel := context.WithTimeout(gctx, d.cfg.AgentTimeout)
			defer cancel()

			rec, err := agent.Assess(agentCtx, agents.Input{
				State:       state,
				Forecast:    snap,
				Tracker:     tracker,
				Constraints: d.constraints,
				Model:       d.model,
			})
			if err != nil {
				d.logger.Warn("kernel: agent %s produced no recommendation this tick, substituting a timeout stub: %v", agent.Name(), err)
				errs[i] = fmt.Errorf("%s: %w", agent.Name(), err)
				results[i] = domain.Recommendation{
					AgentName:          agent.Name(),
					Priority:           domain.PriorityLow,
					Confidence:         0.0,
					RecommendationType: timeoutStubType,
					Reasoning:          "timeout",
				}
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	// errgroup.WithContext cancels gctx on the first error, but every
	// agent error above is swallowed inside its goroutine (returns
	// nil), so Wait never actually observes a failure; it only blocks
	// until every specialist has finished or been timed out.
	_ = g.Wait()

	var diag error
	for _, err := range errs {
		diag = multierr.Append(diag, err)
	}
	return results, diag
}
