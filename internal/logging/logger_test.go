package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesLeveledComponentScopedLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "pumpmodel")
	l.Warn("pump %s dropped below floor", "1.1")

	out := buf.String()
	require.Contains(t, out, "[WARN]")
	require.Contains(t, out, "pumpmodel")
	require.Contains(t, out, "pump 1.1 dropped below floor")
}

func TestOrNopReturnsNopLoggerForNil(t *testing.T) {
	l := OrNop(nil)
	require.NotPanics(t, func() { l.Error("boom %d", 1) })
}

func TestOrNopPassesThroughNonNilLogger(t *testing.T) {
	var buf bytes.Buffer
	real := New(&buf, "agents")
	l := OrNop(real)
	l.Info("hello")
	require.True(t, strings.Contains(buf.String(), "hello"))
}
