package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONHandlesFencedBlock(t *testing.T) {
	raw := "here is my analysis\n```json\n{\"priority\":\"HIGH\",\"confidence\":0.9}\n```\nthanks"
	out, err := ExtractJSON(raw)
	require.NoError(t, err)
	require.Equal(t, "HIGH", StringField(out, "priority", ""))
	require.InDelta(t, 0.9, FloatField(out, "confidence", 0), 1e-9)
}

func TestExtractJSONRepairsTrailingComma(t *testing.T) {
	raw := `{"priority":"LOW","flag":true,}`
	out, err := ExtractJSON(raw)
	require.NoError(t, err)
	require.True(t, BoolField(out, "flag", false))
}

func TestExtractJSONRejectsGarbage(t *testing.T) {
	_, err := ExtractJSON("not json at all, just prose")
	require.Error(t, err)
}

func TestFieldAccessorsFallBackOnMissingOrWrongType(t *testing.T) {
	m := map[string]any{"priority": 5}
	require.Equal(t, "MEDIUM", StringField(m, "priority", "MEDIUM"))
	require.Equal(t, 1.5, FloatField(m, "missing", 1.5))
	require.False(t, BoolField(m, "priority", false))
}
