package constraints

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateWaterLevelClassifiesBands(t *testing.T) {
	s := Default()

	ok, status := s.ValidateWaterLevel(3.0)
	require.True(t, ok)
	require.Equal(t, LevelOK, status)

	ok, status = s.ValidateWaterLevel(7.5)
	require.True(t, ok)
	require.Equal(t, LevelWarning, status)

	ok, status = s.ValidateWaterLevel(8.5)
	require.False(t, ok)
	require.Equal(t, LevelCritical, status)

	ok, status = s.ValidateWaterLevel(-0.1)
	require.False(t, ok)
	require.Equal(t, LevelCritical, status)
}

func TestValidateFrequencyRejectsBelowFloorUnlessRampAllowed(t *testing.T) {
	s := Default()
	require.False(t, s.ValidateFrequency(30, false))
	require.True(t, s.ValidateFrequency(30, true))
	require.True(t, s.ValidateFrequency(49, false))
	require.False(t, s.ValidateFrequency(51, true))
}

func TestIsDryWeatherThreshold(t *testing.T) {
	s := Default()
	require.True(t, s.IsDryWeather(500))
	require.False(t, s.IsDryWeather(1500))
}

func TestPumpClassOfMatchesSmallPumpSet(t *testing.T) {
	require.Equal(t, ClassSmall, PumpClassOf("1.3"))
	require.Equal(t, ClassSmall, PumpClassOf("2.1"))
	require.Equal(t, ClassLarge, PumpClassOf("1.1"))
	require.Equal(t, ClassLarge, PumpClassOf("2.4"))
}

func TestAllPumpIDsHasEightCanonicalEntries(t *testing.T) {
	require.Len(t, AllPumpIDs, 8)
	require.Contains(t, AllPumpIDs, "1.1")
	require.Contains(t, AllPumpIDs, "2.4")
}
