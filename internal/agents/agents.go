// Package agents implements C4: the six specialist agents. Per spec §9's
// design note, agents are polymorphic over a single capability —
// Assess(state, forecast, specs, tracker) -> Recommendation — and are
// dispatched from a registry rather than hand-wired one by one, grounded
// on the teacher repo's internal/tools/builtin registry pattern.
package agents

import (
	"context"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/forecast"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

// Input is the read-only bundle every specialist agent receives. All six
// agents consume the same Forecast snapshot and RuntimeTracker snapshot
// (spec §4.4), which is what lets C3/C4 run concurrently: nothing here
// is mutated by an agent.
type Input struct {
	State       domain.SystemState
	Forecast    forecast.Snapshot
	Tracker     domain.RuntimeTracker
	Constraints constraints.Set
	Model       *pumpmodel.Model
}

// Agent is the single capability every specialist implements.
type Agent interface {
	// Name identifies the agent in Recommendation.AgentName and in
	// telemetry/log lines.
	Name() string
	// Assess produces one Recommendation from Input. Implementations
	// must not return an error for degraded LLM output — an agent that
	// cannot reach or parse its LLM falls back to its deterministic
	// path and still returns a Recommendation; an error return is
	// reserved for contexts that are already done (caller-side
	// timeout), which the C4 fan-out replaces with a LOW/0-confidence
	// timeout stub rather than dropping the agent from the tick
	// (spec §4.4).
	Assess(ctx context.Context, in Input) (domain.Recommendation, error)
}

// NewRegistry returns the six specialist agents in the canonical order
// used for deterministic iteration in logs and tests. client may be a
// MockClient; every agent degrades gracefully when client is nil.
func NewRegistry(client llm.Client, logger logging.Logger) []Agent {
	logger = logging.OrNop(logger)
	return []Agent{
		NewInflowForecastAgent(client, logger),
		NewEnergyCostAgent(client, logger),
		NewPumpEfficiencyAgent(client, logger),
		NewWaterLevelSafetyAgent(client, logger),
		NewFlowSmoothnessAgent(client, logger),
		NewConstraintComplianceAgent(client, logger),
	}
}

// narrate asks client for a short narrative justification of a
// deterministically-already-decided recommendation. The reasoning text
// returned is never parsed for control values (spec §4.4/§9) — only
// Data is machine-usable — so an LLM error, a timeout, or an empty reply
// is swallowed here and a canned fallback string used instead; any other
// reply text is used as-is, unparsed.
func narrate(ctx context.Context, client llm.Client, logger logging.Logger, agentName, prompt, fallback string) string {
	if client == nil {
		return fallback
	}
	text, err := client.Complete(ctx, prompt)
	if err != nil {
		logger.Warn("%s: llm narration failed, using fallback reasoning: %v", agentName, err)
		return fallback
	}
	if text == "" {
		return fallback
	}
	return text
}

// cloneCommands deep-copies a command slice so a veto agent's corrective
// set can be safely handed across goroutine boundaries via
// Recommendation.Data.
func cloneCommands(cmds []domain.PumpCommand) []domain.PumpCommand {
	out := make([]domain.PumpCommand, len(cmds))
	copy(out, cmds)
	return out
}
