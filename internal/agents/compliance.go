package agents

import (
	"context"
	"fmt"

	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
)

// ConstraintComplianceAgent is the second vetoing specialist (spec
// §4.5: Safety > Compliance > Cost > Efficiency = Smoothness >
// Forecast). It checks the hard operational rules C2 enforces — total
// flow cap, minimum runtime before stop, daily emptying — and, when
// one is already breached going into this tick, forces a corrective
// set rather than letting the coordinator negotiate around it.
// Grounded on original_source/config/constraints.py and
// original_source/src/agents/specialist_agents.py's compliance
// specialist.
type ConstraintComplianceAgent struct {
	client llm.Client
	logger logging.Logger
}

func NewConstraintComplianceAgent(client llm.Client, logger logging.Logger) *ConstraintComplianceAgent {
	return &ConstraintComplianceAgent{client: client, logger: logging.OrNop(logger)}
}

func (a *ConstraintComplianceAgent) Name() string { return "constraint_compliance" }

func (a *ConstraintComplianceAgent) Assess(ctx context.Context, in Input) (domain.Recommendation, error) {
	var violations []string

	if !in.Constraints.ValidateTotalFlow(in.State.F2M3H) {
		violations = append(violations, fmt.Sprintf("F2 %.0f m3/h exceeds cap %.0f m3/h", in.State.F2M3H, in.Constraints.F2MaxM3H))
	}

	for pumpID, st := range in.Tracker.Pumps {
		if st.StartedAt == nil {
			continue
		}
		hours := in.Tracker.RuntimeHours(pumpID, in.State.Timestamp)
		if hours > 0 && hours < in.Constraints.MinRuntimeHours && st.LastFrequencyHz == 0 {
			// A pump with StartedAt set but a last committed frequency of
			// 0 is counted as stopped before the minimum runtime elapsed.
			// RuntimeTracker.Commit clears StartedAt whenever it records a
			// stop, so a tracker maintained only by Commit never reaches
			// this branch.
			violations = append(violations, fmt.Sprintf("pump %s stopped after only %.2fh (<%.1fh minimum)", pumpID, hours, in.Constraints.MinRuntimeHours))
		}
	}

	dueForEmptying := false
	if in.Constraints.IsDryWeather(in.State.F1M3Per15Min) {
		if in.Tracker.LastEmptyBelow05MAt == nil {
			dueForEmptying = true
		} else {
			elapsed := in.State.Timestamp.Sub(*in.Tracker.LastEmptyBelow05MAt)
			if elapsed.Hours() >= float64(in.Constraints.EmptyingWindowTicks)*0.25 {
				dueForEmptying = true
			}
		}
	}

	// original_source's _tool_check_daily_emptying prefers a 02:00-06:00
	// local window for the emptying drawdown when dry weather allows it;
	// this is advisory only, the rolling-24h rule above stays the one the
	// validator enforces.
	hour := in.State.Timestamp.Hour()
	isGoodTimeToEmpty := in.Constraints.IsDryWeather(in.State.F1M3Per15Min) && hour >= 2 && hour < 6

	priority := domain.PriorityLow
	canVeto := false
	var corrective []domain.PumpCommand

	switch {
	case len(violations) > 0:
		priority = domain.PriorityCritical
		canVeto = true
		corrective = correctiveFullFlowModel(in.Model, in.Constraints, in.State.L1M)
	case dueForEmptying && in.State.L1M > in.Constraints.L1EmptyTarget:
		priority = domain.PriorityMedium
	default:
		priority = domain.PriorityLow
	}

	fallback := fmt.Sprintf("violations=%v due_for_emptying=%v", violations, dueForEmptying)
	prompt := fmt.Sprintf(
		"You are the constraint compliance specialist for a wastewater lift station. Current violations: %v. "+
			"Due for dry-weather emptying: %v. In one sentence, state the compliance posture for this tick.",
		violations, dueForEmptying,
	)
	reasoning := narrate(ctx, a.client, a.logger, a.Name(), prompt, fallback)

	data := map[string]any{
		"violations":           violations,
		"due_for_emptying":     dueForEmptying,
		"is_good_time_to_empty": isGoodTimeToEmpty,
	}
	if canVeto {
		data["pump_commands"] = cloneCommands(corrective)
	}

	return domain.Recommendation{
		AgentName:          a.Name(),
		Priority:           priority,
		Confidence:         0.9,
		RecommendationType: "CONSTRAINT_COMPLIANCE",
		Reasoning:          reasoning,
		CanVeto:            canVeto,
		Data:               data,
	}, nil
}
