package forecast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liftstation/pumpkernel/internal/logging"
)

type fakeHistory struct {
	samples map[int][]float64
}

func (f fakeHistory) InflowWindow(historyIndex, lookback int) ([]float64, bool) {
	s, ok := f.samples[historyIndex]
	return s, ok
}

func TestForecastColdStart(t *testing.T) {
	f, err := New(fakeHistory{samples: map[int][]float64{}}, 48, 0, logging.Nop())
	require.NoError(t, err)

	snap := f.Forecast(0)
	require.Equal(t, 0.2, snap.Confidence)
	require.False(t, snap.StormDetected)
	v, ok := snap.Next6h.Next()
	require.True(t, ok)
	require.Zero(t, v)
}

func TestForecastStormDetection(t *testing.T) {
	samples := make([]float64, 48)
	for i := range samples {
		samples[i] = 1000 + float64(i)*50 // steep rise
	}
	f, err := New(fakeHistory{samples: map[int][]float64{100: samples}}, 48, 0, logging.Nop())
	require.NoError(t, err)

	snap := f.Forecast(100)
	require.True(t, snap.StormDetected)
	require.Equal(t, TrendRising, snap.Trend)
}

func TestForecastIsNotRestartable(t *testing.T) {
	samples := make([]float64, 48)
	for i := range samples {
		samples[i] = 500
	}
	f, err := New(fakeHistory{samples: map[int][]float64{5: samples}}, 48, 0, logging.Nop())
	require.NoError(t, err)

	snap := f.Forecast(5)
	first, ok := snap.Next6h.Next()
	require.True(t, ok)
	require.InDelta(t, 500, first, 1)

	// Draining further advances the same sequence; it does not reset.
	for {
		_, ok = snap.Next6h.Next()
		if !ok {
			break
		}
	}
	_, ok = snap.Next6h.Next()
	require.False(t, ok)
}

func TestForecastCachesByHistoryIndex(t *testing.T) {
	samples := make([]float64, 48)
	for i := range samples {
		samples[i] = 800
	}
	f, err := New(fakeHistory{samples: map[int][]float64{42: samples}}, 48, 0, logging.Nop())
	require.NoError(t, err)

	a := f.Forecast(42)
	b := f.Forecast(42)
	require.Equal(t, a.PeakValue, b.PeakValue)
	// Each call returns an independent, freshly-drainable sequence.
	va, _ := a.Next6h.Next()
	vb, _ := b.Next6h.Next()
	require.Equal(t, va, vb)
}
