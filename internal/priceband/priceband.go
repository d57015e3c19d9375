// Package priceband identifies cheap/expensive electricity windows in a
// forward price forecast, grounded on
// original_source/src/simulation/price_manager.py's
// identify_cheap_windows. This is a supplemental feature (SPEC_FULL.md
// §4): the base spec names next_cheap_window/next_expensive_window but
// does not specify how they are derived.
package priceband

import "sort"

// Window is a contiguous span of the forecast meeting a price
// percentile threshold.
type Window struct {
	StartStep int // ticks ahead of now
	EndStep   int
	AvgPrice  float64
}

// DurationTicks returns the window's length in 15-minute ticks.
func (w Window) DurationTicks() int { return w.EndStep - w.StartStep + 1 }

// CheapWindows returns contiguous spans of prices at or below the given
// percentile (0-100) of the forecast.
func CheapWindows(forecast []float64, percentile float64) []Window {
	if len(forecast) == 0 {
		return nil
	}
	threshold := quantile(forecast, percentile/100.0)
	return windowsWhere(forecast, func(p float64) bool { return p <= threshold })
}

// ExpensiveWindows returns contiguous spans of prices at or above the
// given percentile (0-100) of the forecast.
func ExpensiveWindows(forecast []float64, percentile float64) []Window {
	if len(forecast) == 0 {
		return nil
	}
	threshold := quantile(forecast, percentile/100.0)
	return windowsWhere(forecast, func(p float64) bool { return p >= threshold })
}

func windowsWhere(forecast []float64, match func(float64) bool) []Window {
	var windows []Window
	inWindow := false
	start := 0
	var sum float64
	var count int

	flush := func(end int) {
		if inWindow {
			windows = append(windows, Window{StartStep: start, EndStep: end, AvgPrice: sum / float64(count)})
		}
		inWindow, sum, count = false, 0, 0
	}

	for i, p := range forecast {
		if match(p) {
			if !inWindow {
				start = i
				inWindow = true
			}
			sum += p
			count++
		} else {
			flush(i - 1)
		}
	}
	flush(len(forecast) - 1)
	return windows
}

// quantile computes the q-th quantile (0..1) of xs using linear
// interpolation between closest ranks, matching pandas' default
// Series.quantile behavior closely enough for threshold selection.
func quantile(xs []float64, q float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ArbitrageValue estimates the EUR/1000kWh saving from deferring to the
// cheapest identified window, and a qualitative risk band derived from
// the current water level (more headroom tolerates deferral).
func ArbitrageValue(currentPrice float64, cheap []Window, l1M float64) (savingsPer1000kWh float64, priceRatio float64, risk string) {
	if len(cheap) == 0 {
		return 0, 1, "NONE"
	}
	best := cheap[0]
	for _, w := range cheap[1:] {
		if w.AvgPrice < best.AvgPrice {
			best = w
		}
	}
	ratio := 1.0
	if best.AvgPrice > 0 {
		ratio = currentPrice / best.AvgPrice
	}
	savings := (currentPrice - best.AvgPrice) * 1000

	risk = "LOW"
	switch {
	case l1M >= 6.5:
		risk = "HIGH"
	case l1M >= 5.0:
		risk = "MEDIUM"
	}
	return savings, ratio, risk
}
