package priceband

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheapWindowsFindsContiguousLowSpan(t *testing.T) {
	prices := []float64{0.30, 0.30, 0.05, 0.05, 0.05, 0.30, 0.30}
	windows := CheapWindows(prices, 50)
	require.NotEmpty(t, windows)
	require.Equal(t, 2, windows[0].StartStep)
	require.Equal(t, 4, windows[0].EndStep)
	require.Equal(t, 3, windows[0].DurationTicks())
}

func TestExpensiveWindowsFindsContiguousHighSpan(t *testing.T) {
	prices := []float64{0.10, 0.10, 0.90, 0.95, 0.10}
	windows := ExpensiveWindows(prices, 80)
	require.NotEmpty(t, windows)
	require.Equal(t, 2, windows[0].StartStep)
	require.Equal(t, 3, windows[0].EndStep)
}

func TestCheapWindowsEmptyForecastReturnsNil(t *testing.T) {
	require.Nil(t, CheapWindows(nil, 25))
}

func TestArbitrageValueReflectsCurrentVsCheapestWindow(t *testing.T) {
	cheap := []Window{{StartStep: 4, EndStep: 6, AvgPrice: 0.05}}
	savings, ratio, risk := ArbitrageValue(0.25, cheap, 3.0)
	require.InDelta(t, 200.0, savings, 1e-9)
	require.InDelta(t, 5.0, ratio, 1e-9)
	require.Equal(t, "LOW", risk)
}

func TestArbitrageValueEscalatesRiskWithWaterLevel(t *testing.T) {
	cheap := []Window{{StartStep: 0, EndStep: 1, AvgPrice: 0.05}}
	_, _, risk := ArbitrageValue(0.25, cheap, 7.0)
	require.Equal(t, "HIGH", risk)
}

func TestArbitrageValueNoWindowsReturnsNoneRisk(t *testing.T) {
	savings, ratio, risk := ArbitrageValue(0.25, nil, 3.0)
	require.Zero(t, savings)
	require.Equal(t, 1.0, ratio)
	require.Equal(t, "NONE", risk)
}
