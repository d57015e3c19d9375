package agents

import (
	"math"
	"sort"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
	"github.com/liftstation/pumpkernel/internal/pumpmodel"
)

// candidateFrequenciesHz is the fixed frequency grid Pump Efficiency and
// Flow Smoothness search when building a candidate dispatch.
var candidateFrequenciesHz = []float64{47.8, 48.0, 48.5, 49.0, 49.5, 50.0}

// pumpCombination is one candidate dispatch: a subset of pumps (one or
// two — the original's singles+pairs enumeration, not a full powerset)
// each running at its own frequency.
type pumpCombination struct {
	Pumps         []string
	Frequencies   map[string]float64
	TotalFlowM3H  float64
	TotalPowerKW  float64
	AvgEfficiency float64
	MatchQuality  float64
	score         float64 // AvgEfficiency * MatchQuality, the ranking key
}

// minimumOnePumpFlow is the smallest flow any single pump can deliver at
// the minimum running frequency — the floor below which a target flow
// can never legitimately fall, since at least one pump must always run.
func minimumOnePumpFlow(model *pumpmodel.Model, cset constraints.Set, l1M float64) float64 {
	var min float64
	found := false
	for _, id := range constraints.AllPumpIDs {
		res, err := model.Performance(id, cset.FreqMinHz, l1M)
		if err != nil {
			continue
		}
		if !found || res.FlowM3H < min {
			min = res.FlowM3H
			found = true
		}
	}
	return min
}

// targetFlowM3H is the flow Pump Efficiency and Flow Smoothness each
// independently derive from the current tick's inputs — the next 15
// minutes of inflow projected forward at a steady rate, floored at the
// minimum one pump can deliver. Smoothness recomputes this itself rather
// than reading Efficiency's Recommendation, preserving the rule that the
// six specialists never observe each other's output (spec §4.4) while
// still tracking "a proposed F2 derived from the efficiency agent's
// target" in substance.
func targetFlowM3H(model *pumpmodel.Model, cset constraints.Set, state domain.SystemState) float64 {
	projectedF1 := state.F1M3Per15Min * 4
	floor := minimumOnePumpFlow(model, cset, state.L1M)
	if projectedF1 > floor {
		return projectedF1
	}
	return floor
}

// singlePumpCombinations enumerates every pump at every candidate
// frequency, grounded on original_source's _tool_find_optimal_combination.
func singlePumpCombinations(model *pumpmodel.Model, l1M float64) []pumpCombination {
	out := make([]pumpCombination, 0, len(constraints.AllPumpIDs)*len(candidateFrequenciesHz))
	for _, id := range constraints.AllPumpIDs {
		for _, freq := range candidateFrequenciesHz {
			res, err := model.Performance(id, freq, l1M)
			if err != nil {
				continue
			}
			out = append(out, pumpCombination{
				Pumps:         []string{id},
				Frequencies:   map[string]float64{id: freq},
				TotalFlowM3H:  res.FlowM3H,
				TotalPowerKW:  res.PowerKW,
				AvgEfficiency: res.Efficiency,
			})
		}
	}
	return out
}

// pairPumpCombinations enumerates every unordered pair of pumps across
// the candidate frequency grid, discarding any pair whose combined flow
// would already breach the F2 cap.
func pairPumpCombinations(model *pumpmodel.Model, cset constraints.Set, l1M float64) []pumpCombination {
	ids := constraints.AllPumpIDs
	out := make([]pumpCombination, 0, len(ids)*len(ids)*len(candidateFrequenciesHz))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			for _, f1 := range candidateFrequenciesHz {
				res1, err1 := model.Performance(ids[i], f1, l1M)
				if err1 != nil {
					continue
				}
				for _, f2 := range candidateFrequenciesHz {
					res2, err2 := model.Performance(ids[j], f2, l1M)
					if err2 != nil {
						continue
					}
					totalFlow := res1.FlowM3H + res2.FlowM3H
					if totalFlow > cset.F2MaxM3H {
						continue
					}
					out = append(out, pumpCombination{
						Pumps:         []string{ids[i], ids[j]},
						Frequencies:   map[string]float64{ids[i]: f1, ids[j]: f2},
						TotalFlowM3H:  totalFlow,
						TotalPowerKW:  res1.PowerKW + res2.PowerKW,
						AvgEfficiency: (res1.Efficiency + res2.Efficiency) / 2,
					})
				}
			}
		}
	}
	return out
}

// scoreAgainstTarget filters combos to those within the original's
// match-quality bands (±20% for a single pump, ±10% for a pair, since a
// pair has finer-grained control over the combined flow), scores the
// survivors by weighted efficiency x match-quality, and sorts by that
// score — ties broken by higher average efficiency, then by fewer
// running pumps.
func scoreAgainstTarget(combos []pumpCombination, targetFlow float64) []pumpCombination {
	if targetFlow <= 0 {
		return nil
	}
	scored := make([]pumpCombination, 0, len(combos))
	for _, c := range combos {
		lo, hi := 0.8*targetFlow, 1.2*targetFlow
		if len(c.Pumps) > 1 {
			lo, hi = 0.9*targetFlow, 1.1*targetFlow
		}
		if c.TotalFlowM3H < lo || c.TotalFlowM3H > hi {
			continue
		}
		c.MatchQuality = 1.0 - math.Abs(c.TotalFlowM3H-targetFlow)/targetFlow
		c.score = c.AvgEfficiency * c.MatchQuality
		scored = append(scored, c)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].AvgEfficiency != scored[j].AvgEfficiency {
			return scored[i].AvgEfficiency > scored[j].AvgEfficiency
		}
		return len(scored[i].Pumps) < len(scored[j].Pumps)
	})
	return scored
}

// bestCombination returns the highest-scoring combination for
// targetFlow, or ok=false if nothing in combos falls within the
// match-quality band.
func bestCombination(combos []pumpCombination, targetFlow float64) (pumpCombination, bool) {
	scored := scoreAgainstTarget(combos, targetFlow)
	if len(scored) == 0 {
		return pumpCombination{}, false
	}
	return scored[0], true
}

// allCombinations enumerates both singles and pairs for l1M, the full
// search space both specialists score against.
func allCombinations(model *pumpmodel.Model, cset constraints.Set, l1M float64) []pumpCombination {
	return append(singlePumpCombinations(model, l1M), pairPumpCombinations(model, cset, l1M)...)
}
