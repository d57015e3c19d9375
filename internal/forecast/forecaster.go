// Package forecast implements C3: the inflow forecaster. Only inference
// is in scope (spec §1 Non-goals); training lives outside this module.
// Grounded on original_source/src/models/inflow_forecaster.py and
// original_source/src/agents/inflow_agent.py.
package forecast

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/liftstation/pumpkernel/internal/logging"
)

// Trend classifies the near-term inflow direction.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendStable  Trend = "stable"
	TrendFalling Trend = "falling"
)

const (
	windowSize6h  = 24 // 6h at 15-min cadence
	windowSize24h = 96 // 24h at 15-min cadence
	stormThreshold = 1500.0
)

// Sequence is a lazy, finite, single-use iterator over forecast values:
// each Forecast() call returns fresh sequences that cannot be restarted
// (spec §4.3) — Next drains the underlying slice exactly once.
type Sequence struct {
	values []float64
	i      int
}

// Next returns the next forecasted value, or ok=false when exhausted.
func (s *Sequence) Next() (value float64, ok bool) {
	if s == nil || s.i >= len(s.values) {
		return 0, false
	}
	v := s.values[s.i]
	s.i++
	return v, true
}

// Values returns the remaining values as a slice without consuming the
// sequence, for callers that need random access (e.g. a trajectory
// projection over the next 4 ticks).
func (s *Sequence) Values() []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s.values[s.i:]...)
}

// Snapshot is the ForecastSnapshot passed to every specialist agent
// (spec §4.4): all six consume the forecast strictly via this value, so
// C3 may run concurrently with them.
type Snapshot struct {
	Next6h         *Sequence
	Next24h        *Sequence
	PeakValue      float64
	PeakTimeOffset int // ticks ahead of now
	Trend          Trend
	StormDetected  bool
	Confidence     float64
}

// HistorySource supplies the last N inflow samples ending at (and
// including) historyIndex. ok is false if historyIndex is out of range
// for the underlying dataset.
type HistorySource interface {
	InflowWindow(historyIndex, lookback int) (samples []float64, ok bool)
}

// Forecaster is C3. The underlying model is single-threaded and
// read-only after construction; calls may block for tens of
// milliseconds (spec §5).
type Forecaster struct {
	history    HistorySource
	lookback   int
	logger     logging.Logger
	cache      *lru.Cache[int, Snapshot]
}

// New returns a Forecaster reading lookback samples of history per call
// (48 ticks / 12h, matching the window the original LSTM model trained
// on). cacheSize bounds the per-history_index memoization LRU
// (SPEC_FULL.md §3).
func New(history HistorySource, lookback, cacheSize int, logger logging.Logger) (*Forecaster, error) {
	if lookback <= 0 {
		lookback = 48
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	c, err := lru.New[int, Snapshot](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Forecaster{history: history, lookback: lookback, logger: logging.OrNop(logger), cache: c}, nil
}

// Forecast produces a fresh Snapshot for historyIndex. It never fails
// hard: if historyIndex < window size (cold start), it returns a
// degraded forecast that copies the last observed value across the
// horizon, confidence 0.2, and no storm flag (spec §4.3).
func (f *Forecaster) Forecast(historyIndex int) Snapshot {
	if cached, ok := f.cache.Get(historyIndex); ok {
		return cloneSnapshot(cached)
	}

	samples, ok := f.history.InflowWindow(historyIndex, f.lookback)
	var snap Snapshot
	if !ok || len(samples) < f.lookback {
		snap = f.degradedForecast(samples)
	} else {
		snap = f.model(samples)
	}

	f.cache.Add(historyIndex, snap)
	return cloneSnapshot(snap)
}

// degradedForecast implements the cold-start fallback: persistence of
// the last observed value, confidence 0.2, no storm detection.
func (f *Forecaster) degradedForecast(samples []float64) Snapshot {
	last := 0.0
	if len(samples) > 0 {
		last = samples[len(samples)-1]
	}
	f.logger.Warn("forecaster cold start: insufficient history, returning degraded persistence forecast")
	return Snapshot{
		Next6h:         &Sequence{values: repeat(last, windowSize6h)},
		Next24h:        &Sequence{values: repeat(last, windowSize24h)},
		PeakValue:      last,
		PeakTimeOffset: 0,
		Trend:          TrendStable,
		StormDetected:  false,
		Confidence:     0.2,
	}
}

// model is the inference step. It is a lightweight feature-free
// extrapolation (persistence + trend continuation) standing in for the
// trained sequence model the original project loads from disk — this
// kernel module only implements inference wiring (spec §1 Non-goals:
// "Training the forecasting model (only inference is in scope)").
func (f *Forecaster) model(samples []float64) Snapshot {
	n := len(samples)
	current := samples[n-1]

	// Trend: compare the mean of the most recent quarter of the window
	// against the mean of the quarter before it.
	q := n / 4
	if q < 1 {
		q = 1
	}
	recentMean := mean(samples[n-q:])
	priorMean := mean(samples[n-2*q : n-q])
	delta := recentMean - priorMean

	trend := TrendStable
	switch {
	case delta > 0.05*priorMean+1e-6:
		trend = TrendRising
	case delta < -0.05*priorMean-1e-6:
		trend = TrendFalling
	}

	slope := delta / float64(q)

	next6 := extrapolate(current, slope, windowSize6h)
	next24 := extrapolate(current, slope, windowSize24h)

	peakVal, peakIdx := peak(next24)
	storm := peakVal > stormThreshold

	return Snapshot{
		Next6h:         &Sequence{values: next6},
		Next24h:        &Sequence{values: next24},
		PeakValue:      peakVal,
		PeakTimeOffset: peakIdx,
		Trend:          trend,
		StormDetected:  storm,
		Confidence:     0.85,
	}
}

func extrapolate(current, slope float64, steps int) []float64 {
	out := make([]float64, steps)
	for i := 0; i < steps; i++ {
		v := current + slope*float64(i+1)
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func peak(xs []float64) (value float64, index int) {
	for i, x := range xs {
		if i == 0 || x > value {
			value, index = x, i
		}
	}
	return value, index
}

func cloneSnapshot(s Snapshot) Snapshot {
	cp := s
	if s.Next6h != nil {
		cp.Next6h = &Sequence{values: append([]float64(nil), s.Next6h.values...)}
	}
	if s.Next24h != nil {
		cp.Next24h = &Sequence{values: append([]float64(nil), s.Next24h.values...)}
	}
	return cp
}
