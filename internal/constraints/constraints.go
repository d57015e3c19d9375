// Package constraints holds C2: the static, process-wide hydraulic and
// operational bounds, grounded on original_source/config/constraints.py.
package constraints

// Set is immutable after construction; the whole kernel shares one
// instance (see Default).
type Set struct {
	L1Min         float64
	L1Alarm       float64
	L1Max         float64
	L1EmptyTarget float64

	F2MaxM3H float64

	FreqMinHz     float64
	FreqNominalHz float64

	MinRuntimeHours float64

	MinActivePumps int

	DryWeatherInflowThresholdM3Per15Min float64
	EmptyingWindowTicks                 int // rolling window, in 15-min ticks (96 = 24h)

	L2WWTPM float64
}

// Default returns the canonical constraint set from spec §4.2.
func Default() Set {
	return Set{
		L1Min:         0.0,
		L1Alarm:       7.2,
		L1Max:         8.0,
		L1EmptyTarget: 0.5,

		F2MaxM3H: 16000.0,

		FreqMinHz:     47.8,
		FreqNominalHz: 50.0,

		MinRuntimeHours: 2.0,

		MinActivePumps: 1,

		DryWeatherInflowThresholdM3Per15Min: 1000.0,
		EmptyingWindowTicks:                 96,

		L2WWTPM: 30.0,
	}
}

// IsDryWeather reports whether inflow F1 (m3/15min) counts as dry
// weather for the daily-emptying rule.
func (s Set) IsDryWeather(f1 float64) bool {
	return f1 < s.DryWeatherInflowThresholdM3Per15Min
}

// ValidateFrequency reports whether frequency is within the allowed
// operating band. allowRamp widens the band to [0, FreqNominalHz] for
// the brief ramp-up/ramp-down exception that must never appear in a
// committed command (spec §4.2).
func (s Set) ValidateFrequency(hz float64, allowRamp bool) bool {
	if allowRamp {
		return hz >= 0 && hz <= s.FreqNominalHz
	}
	return hz >= s.FreqMinHz && hz <= s.FreqNominalHz
}

// ValidateTotalFlow reports whether total pumped flow is within F2Max.
func (s Set) ValidateTotalFlow(totalF2 float64) bool {
	return totalF2 <= s.F2MaxM3H
}

// WaterLevelStatus classifies L1 for diagnostics / logging.
type WaterLevelStatus string

const (
	LevelOK       WaterLevelStatus = "OK"
	LevelWarning  WaterLevelStatus = "WARNING"
	LevelCritical WaterLevelStatus = "CRITICAL"
)

// ValidateWaterLevel returns a status and whether L1 is within the hard
// bounds [L1Min, L1Max].
func (s Set) ValidateWaterLevel(l1 float64) (ok bool, status WaterLevelStatus) {
	switch {
	case l1 < s.L1Min || l1 > s.L1Max:
		return false, LevelCritical
	case l1 > s.L1Alarm:
		return true, LevelWarning
	default:
		return true, LevelOK
	}
}

// AllPumpIDs is the canonical ordering of the 8 station pumps, using the
// dotted historical identifiers (Open Question resolved in SPEC_FULL.md
// §1: "1.1".."2.4", not "P1L"-style names).
var AllPumpIDs = []string{"1.1", "1.2", "1.3", "1.4", "2.1", "2.2", "2.3", "2.4"}

// PumpClass is "large" or "small". It picks the fallback spec when
// individual pump calibration data is unavailable, and it decides which
// pumps Water Level Safety's corrective command sets start.
type PumpClass string

const (
	ClassLarge PumpClass = "large"
	ClassSmall PumpClass = "small"
)

// PumpClassOf mirrors original_source/config/constraints.py's
// get_pump_config(): pump 1.3 is historically unused/small, 2.1 is
// small, the rest are large.
func PumpClassOf(pumpID string) PumpClass {
	switch pumpID {
	case "1.3", "2.1":
		return ClassSmall
	default:
		return ClassLarge
	}
}
