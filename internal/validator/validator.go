// Package validator implements C6: a deterministic, total, always-
// feasible rewriter of the coordinator's tentative pump commands. Every
// rewrite is applied in a fixed order — frequency clamp, min-one-pump,
// F2 cap, runtime rule, sufficient-flow guard — and is recorded into the
// returned conflicts list, grounded on
// original_source/config/constraints.py's validation rules.
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

// Validator is C6. It holds no mutable state; Validate is a pure
// function of its arguments (spec §5).
type Validator struct {
	model       *pumpmodel.Model
	constraints constraints.Set
}

// New returns a Validator.
func New(model *pumpmodel.Model, cset constraints.Set) *Validator {
	return &Validator{model: model, constraints: cset}
}

// Validate rewrites cmds into a feasible command set and returns the
// rewritten commands plus a human-readable log of every rewrite it
// applied. The input is never mutated. safetyVetoed reports whether the
// Water Level Safety specialist already issued a CRITICAL veto this
// tick; when it has, the sufficient-flow guard below stands down rather
// than layering a second, redundant pump start on top of Safety's own
// corrective dispatch.
func (v *Validator) Validate(cmds []domain.PumpCommand, state domain.SystemState, tracker domain.RuntimeTracker, safetyVetoed bool) ([]domain.PumpCommand, []string) {
	out := cloneCommands(cmds)
	var conflicts []string

	out, conflicts = v.clampFrequency(out, conflicts)
	out, conflicts = v.enforceMinOnePump(out, state.L1M, conflicts)
	out, conflicts = v.capTotalFlow(out, state.L1M, conflicts)
	out, conflicts = v.enforceMinRuntime(out, state.Timestamp, tracker, conflicts)
	out, conflicts = v.enforceSufficientFlow(out, state, safetyVetoed, conflicts)

	out = v.recompute(out, state.L1M)
	return out, conflicts
}

func cloneCommands(cmds []domain.PumpCommand) []domain.PumpCommand {
	out := make([]domain.PumpCommand, len(cmds))
	copy(out, cmds)
	return out
}

// clampFrequency enforces the invariant that every started pump runs
// within [FreqMinHz, FreqNominalHz] and every stopped pump reports 0 Hz.
func (v *Validator) clampFrequency(cmds []domain.PumpCommand, conflicts []string) ([]domain.PumpCommand, []string) {
	for i, c := range cmds {
		if !c.Start {
			if c.FrequencyHz != 0 {
				conflicts = append(conflicts, fmt.Sprintf("frequency clamp: pump %s stopped but reported %.2fHz, zeroed", c.PumpID, c.FrequencyHz))
				cmds[i].FrequencyHz = 0
			}
			continue
		}
		if c.FrequencyHz < v.constraints.FreqMinHz {
			conflicts = append(conflicts, fmt.Sprintf("frequency clamp: pump %s raised from %.2fHz to minimum %.2fHz", c.PumpID, c.FrequencyHz, v.constraints.FreqMinHz))
			cmds[i].FrequencyHz = v.constraints.FreqMinHz
		} else if c.FrequencyHz > v.constraints.FreqNominalHz {
			conflicts = append(conflicts, fmt.Sprintf("frequency clamp: pump %s lowered from %.2fHz to nominal %.2fHz", c.PumpID, c.FrequencyHz, v.constraints.FreqNominalHz))
			cmds[i].FrequencyHz = v.constraints.FreqNominalHz
		}
	}
	return cmds, conflicts
}

// enforceMinOnePump starts the single most efficient large pump at
// nominal frequency when the tentative set leaves every pump stopped.
func (v *Validator) enforceMinOnePump(cmds []domain.PumpCommand, l1M float64, conflicts []string) ([]domain.PumpCommand, []string) {
	running := 0
	for _, c := range cmds {
		if c.Start {
			running++
		}
	}
	if running >= v.constraints.MinActivePumps {
		return cmds, conflicts
	}

	id, _, err := v.model.BestEfficiencyPump(constraints.AllPumpIDs, v.constraints.FreqNominalHz, l1M)
	if err != nil {
		return cmds, conflicts
	}
	for i, c := range cmds {
		if c.PumpID == id {
			cmds[i].Start = true
			cmds[i].FrequencyHz = v.constraints.FreqNominalHz
			conflicts = append(conflicts, fmt.Sprintf("min-one-pump: started %s at nominal frequency, no pump was running", id))
			break
		}
	}
	return cmds, conflicts
}

// capTotalFlow reduces started pumps' frequencies in 0.5Hz steps, in
// round-robin passes over the running pumps ordered highest frequency
// first, until total flow respects F2Max (SPEC_FULL §1 resolves the
// F2-cap rewrite granularity to 0.5Hz steps). Pump efficiency plays no
// part in that order.
func (v *Validator) capTotalFlow(cmds []domain.PumpCommand, l1M float64, conflicts []string) ([]domain.PumpCommand, []string) {
	const step = 0.5

	total := func() float64 {
		var sum float64
		for _, c := range cmds {
			if c.Start {
				res, err := v.model.Performance(c.PumpID, c.FrequencyHz, l1M)
				if err == nil {
					sum += res.FlowM3H
				}
			}
		}
		return sum
	}

	if total() <= v.constraints.F2MaxM3H {
		return cmds, conflicts
	}

	order := make([]int, 0, len(cmds))
	for i, c := range cmds {
		if c.Start {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool { return cmds[order[a]].FrequencyHz > cmds[order[b]].FrequencyHz })

	reduced := false
	for total() > v.constraints.F2MaxM3H {
		progressed := false
		for _, idx := range order {
			if total() <= v.constraints.F2MaxM3H {
				break
			}
			if cmds[idx].FrequencyHz-step >= v.constraints.FreqMinHz {
				cmds[idx].FrequencyHz -= step
				progressed = true
				reduced = true
			}
		}
		if !progressed {
			break
		}
	}
	if reduced {
		conflicts = append(conflicts, fmt.Sprintf("F2 cap: reduced running pumps in 0.5Hz steps to stay within %.0f m3/h", v.constraints.F2MaxM3H))
	}

	// Frequency reduction alone may not be enough once every running
	// pump sits at FreqMinHz; stop the lowest-flow pumps next, always
	// leaving at least MinActivePumps running.
	running := 0
	for _, idx := range order {
		if cmds[idx].Start {
			running++
		}
	}
	for total() > v.constraints.F2MaxM3H && running > v.constraints.MinActivePumps {
		var weakestIdx = -1
		var weakestFlow float64
		for _, idx := range order {
			if !cmds[idx].Start {
				continue
			}
			res, err := v.model.Performance(cmds[idx].PumpID, cmds[idx].FrequencyHz, l1M)
			if err != nil {
				continue
			}
			if weakestIdx == -1 || res.FlowM3H < weakestFlow {
				weakestIdx, weakestFlow = idx, res.FlowM3H
			}
		}
		if weakestIdx == -1 {
			break
		}
		cmds[weakestIdx].Start = false
		cmds[weakestIdx].FrequencyHz = 0
		running--
		conflicts = append(conflicts, fmt.Sprintf("F2 cap: stopped %s, frequency floor alone could not stay within %.0f m3/h", cmds[weakestIdx].PumpID, v.constraints.F2MaxM3H))
	}
	return cmds, conflicts
}

// enforceMinRuntime keeps a pump running at its last committed
// frequency if the tentative set stops it before MinRuntimeHours have
// elapsed since it started.
func (v *Validator) enforceMinRuntime(cmds []domain.PumpCommand, now time.Time, tracker domain.RuntimeTracker, conflicts []string) ([]domain.PumpCommand, []string) {
	for i, c := range cmds {
		if c.Start {
			continue
		}
		st, ok := tracker.Pumps[c.PumpID]
		if !ok || st.StartedAt == nil {
			continue
		}
		runtime := now.Sub(*st.StartedAt).Hours()
		if runtime < v.constraints.MinRuntimeHours {
			freq := st.LastFrequencyHz
			if freq <= 0 {
				freq = v.constraints.FreqNominalHz
			}
			cmds[i].Start = true
			cmds[i].FrequencyHz = freq
			conflicts = append(conflicts, fmt.Sprintf(
				"runtime rule: kept %s running at %.2fHz, only %.2fh of %.1fh minimum elapsed",
				c.PumpID, freq, runtime, v.constraints.MinRuntimeHours,
			))
		}
	}
	return cmds, conflicts
}

// enforceSufficientFlow starts the next most efficient idle pump, at
// nominal frequency, while the rewritten set's projected L1 one tick
// out would still exceed the 7.0m ceiling, preventing the upstream
// rewrites above from leaving the tunnel to fill unchecked. Mirrors
// original_source's linear trajectory approximation
// (new_L1 = new_V / VolumePerMeterM3) rather than comparing against the
// instantaneous inflow rate, so a large but brief inflow spike that
// still nets a falling level doesn't trigger an extra pump. Stands down
// entirely when Safety already vetoed this tick — its own corrective
// dispatch has already addressed the level.
func (v *Validator) enforceSufficientFlow(cmds []domain.PumpCommand, state domain.SystemState, safetyVetoed bool, conflicts []string) ([]domain.PumpCommand, []string) {
	if safetyVetoed {
		return cmds, conflicts
	}

	totalFlow := func() float64 {
		var sum float64
		for _, c := range cmds {
			if c.Start {
				res, err := v.model.Performance(c.PumpID, c.FrequencyHz, state.L1M)
				if err == nil {
					sum += res.FlowM3H
				}
			}
		}
		return sum
	}

	projectedL1 := func() float64 {
		deltaVM3 := state.F1M3Per15Min - totalFlow()*0.25
		return state.L1M + deltaVM3/domain.VolumePerMeterM3
	}

	const ceilingM = 7.0
	if projectedL1() <= ceilingM {
		return cmds, conflicts
	}

	running := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		if c.Start {
			running[c.PumpID] = true
		}
	}
	var idle []string
	for _, id := range constraints.AllPumpIDs {
		if !running[id] {
			idle = append(idle, id)
		}
	}

	for projectedL1() > ceilingM && len(idle) > 0 {
		id, _, err := v.model.BestEfficiencyPump(idle, v.constraints.FreqNominalHz, state.L1M)
		if err != nil {
			break
		}
		for i, c := range cmds {
			if c.PumpID == id {
				cmds[i].Start = true
				cmds[i].FrequencyHz = v.constraints.FreqNominalHz
				break
			}
		}
		conflicts = append(conflicts, fmt.Sprintf("sufficient-flow guard: started %s at nominal frequency, projected L1 next tick exceeded %.1fm", id, ceilingM))

		next := idle[:0]
		for _, x := range idle {
			if x != id {
				next = append(next, x)
			}
		}
		idle = next
	}
	return cmds, conflicts
}

func (v *Validator) recompute(cmds []domain.PumpCommand, l1M float64) []domain.PumpCommand {
	for i, c := range cmds {
		if rewritten, err := v.model.Recompute(c, l1M); err == nil {
			cmds[i] = rewritten
		}
	}
	return cmds
}
