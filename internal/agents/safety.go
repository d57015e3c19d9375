package agents

import (
	"context"
	"fmt"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/llm"
	"github.com/liftstation/pumpkernel/internal/logging"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

// WaterLevelSafetyAgent is one of the two vetoing specialists (spec
// §4.5 priority hierarchy: Safety > Compliance > Cost > Efficiency =
// Smoothness > Forecast). When the tunnel level is outside its safe
// band it produces a corrective command set the coordinator must adopt
// verbatim at CRITICAL priority, grounded on
// original_source/src/agents/specialist_agents.py's safety specialist.
type WaterLevelSafetyAgent struct {
	client llm.Client
	logger logging.Logger
}

func NewWaterLevelSafetyAgent(client llm.Client, logger logging.Logger) *WaterLevelSafetyAgent {
	return &WaterLevelSafetyAgent{client: client, logger: logging.OrNop(logger)}
}

func (a *WaterLevelSafetyAgent) Name() string { return "water_level_safety" }

// correctiveFullFlowModel starts every large pump at nominal frequency
// and leaves the small pumps stopped, maximizing total flow without
// relying on the less efficient small units — used once level is
// critical.
func correctiveFullFlowModel(model *pumpmodel.Model, constraintSet constraints.Set, l1 float64) []domain.PumpCommand {
	cmds := make([]domain.PumpCommand, 0, len(constraints.AllPumpIDs))
	for _, id := range constraints.AllPumpIDs {
		cmd := domain.PumpCommand{PumpID: id}
		if constraints.PumpClassOf(id) == constraints.ClassLarge {
			cmd.Start = true
			cmd.FrequencyHz = constraintSet.FreqNominalHz
		}
		if res, err := model.Performance(id, cmd.FrequencyHz, l1); err == nil {
			cmd.FlowM3H, cmd.PowerKW, cmd.Efficiency = res.FlowM3H, res.PowerKW, res.Efficiency
		}
		cmds = append(cmds, cmd.Normalize())
	}
	return cmds
}

// correctiveModerateFlowModel starts a single pump at nominal frequency:
// the first pump in AllPumpIDs order that constraints.PumpClassOf rates
// large. Assess computes it for the WATCH state, where full emergency
// dispatch is not yet justified; WATCH does not veto, so this set is not
// put into Data.
func correctiveModerateFlowModel(model *pumpmodel.Model, constraintSet constraints.Set, l1 float64) []domain.PumpCommand {
	cmds := make([]domain.PumpCommand, 0, len(constraints.AllPumpIDs))
	started := false
	for _, id := range constraints.AllPumpIDs {
		cmd := domain.PumpCommand{PumpID: id}
		if !started && constraints.PumpClassOf(id) == constraints.ClassLarge {
			cmd.Start = true
			cmd.FrequencyHz = constraintSet.FreqNominalHz
			started = true
		}
		if res, err := model.Performance(id, cmd.FrequencyHz, l1); err == nil {
			cmd.FlowM3H, cmd.PowerKW, cmd.Efficiency = res.FlowM3H, res.PowerKW, res.Efficiency
		}
		cmds = append(cmds, cmd.Normalize())
	}
	return cmds
}

// trajectoryState is the SAFE/WATCH/RISK/CRITICAL state machine spec
// §4.4 requires Water Level Safety to run, driven off a 4-tick L1
// projection rather than the instantaneous level alone.
type trajectoryState string

const (
	stateSafe     trajectoryState = "SAFE"
	stateWatch    trajectoryState = "WATCH"
	stateRisk     trajectoryState = "RISK"
	stateCritical trajectoryState = "CRITICAL"
)

// projectTrajectory projects L1 over the next 4 ticks given a per-tick
// inflow sequence and an assumed steady outflow under the current pump
// plan, using the same linear volume-to-level approximation as
// original_source's _tool_calculate_trajectory
// (new_L1 = new_V / VolumePerMeterM3).
func projectTrajectory(l1Now float64, inflowPerTick []float64, outflowM3H float64) []float64 {
	const ticks = 4
	outPerTick := outflowM3H * 0.25
	levels := make([]float64, ticks)
	level := l1Now
	for i := 0; i < ticks; i++ {
		var in float64
		switch {
		case i < len(inflowPerTick):
			in = inflowPerTick[i]
		case len(inflowPerTick) > 0:
			in = inflowPerTick[len(inflowPerTick)-1]
		}
		level += (in - outPerTick) / domain.VolumePerMeterM3
		levels[i] = level
	}
	return levels
}

// classifyTrajectory derives the SAFE/WATCH/RISK/CRITICAL state from
// the current level and its projection, per spec §4.4's exact
// thresholds.
func classifyTrajectory(l1Now float64, projected []float64) trajectoryState {
	if l1Now >= 7.2 {
		return stateCritical
	}
	crosses := func(threshold float64) bool {
		for _, l := range projected {
			if l >= threshold {
				return true
			}
		}
		return false
	}
	switch {
	case crosses(8.0):
		return stateCritical
	case crosses(7.2):
		return stateRisk
	case crosses(6.0):
		return stateWatch
	default:
		return stateSafe
	}
}

func (a *WaterLevelSafetyAgent) Assess(ctx context.Context, in Input) (domain.Recommendation, error) {
	outflowM3H := in.Tracker.LastCommittedF2M3H
	if !in.Tracker.HasPriorDecision {
		outflowM3H = in.State.F2M3H
	}

	var inflowPerTick []float64
	if in.Forecast.Next6h != nil {
		inflowPerTick = in.Forecast.Next6h.Values()
	}
	if len(inflowPerTick) == 0 {
		inflowPerTick = []float64{in.State.F1M3Per15Min}
	}

	projected := projectTrajectory(in.State.L1M, inflowPerTick, outflowM3H)
	state := classifyTrajectory(in.State.L1M, projected)

	var priority domain.Priority
	canVeto := false
	var corrective []domain.PumpCommand

	switch state {
	case stateCritical:
		priority = domain.PriorityCritical
		canVeto = true
		corrective = correctiveFullFlowModel(in.Model, in.Constraints, in.State.L1M)
	case stateRisk:
		priority = domain.PriorityHigh
		canVeto = true
		corrective = correctiveFullFlowModel(in.Model, in.Constraints, in.State.L1M)
	case stateWatch:
		priority = domain.PriorityMedium
		corrective = correctiveModerateFlowModel(in.Model, in.Constraints, in.State.L1M)
	default:
		priority = domain.PriorityLow
	}

	fallback := fmt.Sprintf("water level L1=%.2fm, trajectory_state=%s, storm_detected=%v", in.State.L1M, state, in.Forecast.StormDetected)
	prompt := fmt.Sprintf(
		"You are the water level safety specialist for a wastewater lift station. L1=%.2fm, 4-tick projected trajectory state=%s. "+
			"In one sentence, state the safety risk and whether emergency dispatch is required.",
		in.State.L1M, state,
	)
	reasoning := narrate(ctx, a.client, a.logger, a.Name(), prompt, fallback)

	data := map[string]any{
		"trajectory_state": string(state),
		"projected_l1_m":   projected,
	}
	if canVeto {
		data["pump_commands"] = cloneCommands(corrective)
	}

	return domain.Recommendation{
		AgentName:          a.Name(),
		Priority:           priority,
		Confidence:         0.95,
		RecommendationType: "WATER_LEVEL_SAFETY",
		Reasoning:          reasoning,
		CanVeto:            canVeto,
		Data:               data,
	}, nil
}
