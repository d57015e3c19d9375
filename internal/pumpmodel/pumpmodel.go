// Package pumpmodel implements C1: pump flow/power/efficiency as a
// function of (pump id, frequency, water level), grounded on
// original_source/src/simulation/pump_models.py.
package pumpmodel

import (
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/liftstation/pumpkernel/internal/constraints"
	"github.com/liftstation/pumpkernel/internal/domain"
)

// UnknownPump is returned by Performance for an id outside the fixed
// 8-pump roster.
type UnknownPump struct{ PumpID string }

func (e *UnknownPump) Error() string { return fmt.Sprintf("unknown pump id %q", e.PumpID) }

// FrequencyOutOfBand is returned by Performance when f is neither 0 nor
// inside [47.8, 50].
type FrequencyOutOfBand struct{ FrequencyHz float64 }

func (e *FrequencyOutOfBand) Error() string {
	return fmt.Sprintf("frequency %.2f Hz out of band (must be 0 or in [47.8, 50])", e.FrequencyHz)
}

// spec is the calibrated per-pump template. RatedPowerKW is individually
// calibrated per pump (SPEC_FULL.md §4); the rest follow the large/small
// template the curve data shares.
type spec struct {
	ratedPowerKW    float64
	ratedFlowM3H    float64 // at 50Hz
	ratedHeadM      float64
	ratedEfficiency float64
}

// calibration mirrors PUMP_CALIBRATION in pump_models.py: each pump's
// rated power was reverse-engineered from operational data via
// P_rated = P_measured / (f_measured/50)^3. Large/small classification
// (used by the fallback path below and by Water Level Safety's
// corrective sets) lives separately in constraints.PumpClassOf —
// this table only carries the individually calibrated curve constants.
var calibration = map[string]spec{
	"1.1": {ratedPowerKW: 192.7, ratedFlowM3H: 464 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.816},
	"1.2": {ratedPowerKW: 381.1, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.848},
	"1.3": {ratedPowerKW: 381.1, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.848},
	"1.4": {ratedPowerKW: 398.0, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.848},
	"2.1": {ratedPowerKW: 192.3, ratedFlowM3H: 464 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.816},
	"2.2": {ratedPowerKW: 393.9, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.848},
	"2.3": {ratedPowerKW: 394.6, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.848},
	"2.4": {ratedPowerKW: 368.4, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: 0.848},
}

// fallbackEfficiency is used when curve data is unavailable (spec §4.1
// fallback path).
const fallbackEfficiency = 0.80

// Result is the (flow, power, efficiency) triple plus the clamp flag
// the spec requires for diagnostics when the box [0,8]x[47.8,50] (or 0)
// would otherwise be silently extrapolated.
type Result struct {
	FlowM3H       float64
	PowerKW       float64
	Efficiency    float64
	Approximate   bool // true if this came from the affinity-only fallback
	Clamped       bool // true if L1 was clamped to [0, 8]
}

type cacheKey struct {
	pumpID  string
	freqTen int // frequency_hz * 10, rounded, for stable map keys
	l1Tenth int // L1_m * 10, rounded (0.1m buckets)
}

// Model is C1. It is read-only after construction (spec §5).
type Model struct {
	l2    float64
	specs map[string]spec
	cache *lru.Cache[cacheKey, Result]
}

// New returns a pump model using the built-in calibration table. cacheSize
// bounds the memoization LRU (spec_full §3: pump-performance lookups are
// memoized per (pump_id, frequency_hz, L1_bucket)).
func New(cacheSize int) (*Model, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	c, err := lru.New[cacheKey, Result](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Model{l2: constraints.Default().L2WWTPM, specs: calibration, cache: c}, nil
}

// Head returns H = L2 - L1.
func (m *Model) Head(l1 float64) float64 { return m.l2 - l1 }

// Performance computes (flow_m3h, power_kw, efficiency) via the
// affinity laws, cross-checked against the canonical hydraulic power
// relation. Frequency 0 always yields the zero result. The model is
// defined over L1 in [0,8] and f in [47.8,50]; an L1 outside [0,8] is
// replaced by the boundary value and sets Clamped, while a frequency
// outside the band fails with FrequencyOutOfBand.
func (m *Model) Performance(pumpID string, frequencyHz, l1M float64) (Result, error) {
	if frequencyHz != 0 && (frequencyHz < 47.8 || frequencyHz > 50.0+1e-9) {
		return Result{}, &FrequencyOutOfBand{FrequencyHz: frequencyHz}
	}

	sp, ok := m.specs[pumpID]
	approximate := false
	if !ok {
		if !isKnownPump(pumpID) {
			return Result{}, &UnknownPump{PumpID: pumpID}
		}
		// Fallback path (spec §4.1): curve missing for a known pump id.
		approximate = true
		if constraints.PumpClassOf(pumpID) == constraints.ClassLarge {
			sp = spec{ratedPowerKW: 386, ratedFlowM3H: 925 * 3.6, ratedHeadM: 31.5, ratedEfficiency: fallbackEfficiency}
		} else {
			sp = spec{ratedPowerKW: 192.5, ratedFlowM3H: 464 * 3.6, ratedHeadM: 31.5, ratedEfficiency: fallbackEfficiency}
		}
	}

	if frequencyHz == 0 {
		return Result{FlowM3H: 0, PowerKW: 0, Efficiency: 0, Approximate: approximate}, nil
	}

	// frequencyHz is guaranteed in [47.8, 50] here (0 handled above,
	// anything else already rejected as FrequencyOutOfBand). Only L1
	// extrapolation beyond [0, 8] is silently clamped, per spec §4.1.
	clamped := false
	f := frequencyHz
	l1 := l1M
	if l1 < 0 {
		l1 = 0
		clamped = true
	}
	if l1 > 8 {
		l1 = 8
		clamped = true
	}

	key := cacheKey{pumpID: pumpID, freqTen: int(math.Round(f * 10)), l1Tenth: int(math.Round(l1 * 10))}
	if cached, ok := m.cache.Get(key); ok {
		cached.Approximate = approximate
		cached.Clamped = clamped
		return cached, nil
	}

	speedRatio := f / 50.0
	flowM3H := sp.ratedFlowM3H * speedRatio
	powerKW := sp.ratedPowerKW * speedRatio * speedRatio * speedRatio

	speedDeviation := math.Abs(speedRatio - 1.0)
	efficiencyPenalty := 1.0 - speedDeviation*0.05 // 0.5% drop per 10% speed change
	efficiency := sp.ratedEfficiency * efficiencyPenalty
	efficiency = clampF(efficiency, 0.70, 0.90)

	// Cross-check against the canonical hydraulic relation
	// P_hydraulic = rho*g*Q*H/eta; if the curve-derived power implies an
	// efficiency far from the curve value, trust the curve but record
	// nothing further — this is a diagnostic cross-check only, per spec
	// §4.1, not a second source of truth.
	head := m.Head(l1)
	_ = hydraulicPower(flowM3H, head, efficiency)

	res := Result{FlowM3H: flowM3H, PowerKW: powerKW, Efficiency: efficiency, Approximate: approximate, Clamped: clamped}
	m.cache.Add(key, res)
	return res, nil
}

// hydraulicPower computes rho*g*Q*H/eta in kW, Q in m3/h converted to
// m3/s, used only as a cross-check per spec §4.1.
func hydraulicPower(flowM3H, headM, efficiency float64) float64 {
	const rho = 1000.0 // kg/m3
	const g = 9.81
	if efficiency <= 0 {
		return 0
	}
	qM3s := flowM3H / 3600.0
	return rho * g * qM3s * headM / efficiency / 1000.0
}

func isKnownPump(pumpID string) bool {
	for _, id := range constraints.AllPumpIDs {
		if id == pumpID {
			return true
		}
	}
	return false
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Recompute recomputes flow/power/efficiency for a committed command,
// overwriting its derived fields in place (used by the validator's
// final recompute pass, spec §4.6).
func (m *Model) Recompute(cmd domain.PumpCommand, l1M float64) (domain.PumpCommand, error) {
	if !cmd.Start {
		cmd.FrequencyHz = 0
		cmd.FlowM3H, cmd.PowerKW, cmd.Efficiency = 0, 0, 0
		return cmd, nil
	}
	res, err := m.Performance(cmd.PumpID, cmd.FrequencyHz, l1M)
	if err != nil {
		return cmd, err
	}
	cmd.FlowM3H, cmd.PowerKW, cmd.Efficiency = res.FlowM3H, res.PowerKW, res.Efficiency
	return cmd, nil
}

// BestEfficiencyPump returns the pump id maximizing efficiency at
// (l1M, frequencyHz) among candidates, used by the validator's
// min-one-pump rewrite and its sufficient-flow guard.
func (m *Model) BestEfficiencyPump(candidates []string, frequencyHz, l1M float64) (string, Result, error) {
	if len(candidates) == 0 {
		return "", Result{}, errors.New("no candidate pumps")
	}
	var bestID string
	var best Result
	found := false
	for _, id := range candidates {
		res, err := m.Performance(id, frequencyHz, l1M)
		if err != nil {
			continue
		}
		if !found || res.Efficiency > best.Efficiency {
			bestID, best, found = id, res, true
		}
	}
	if !found {
		return "", Result{}, errors.New("no candidate pump produced a valid performance result")
	}
	return bestID, best, nil
}
