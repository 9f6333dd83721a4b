package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinagent_Logger_FormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 10, 19, 8, 30, 5, 42_500_000, time.FixedZone("CEST", 2*60*60))
	require.Equal(t, "2026-10-19T06:30:05.042Z", formatRFC3339Millis(ts))
}

func TestFinagent_Logger_LevelsAndEmptyAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug("hidden")
	log.Info("pipeline: candidate generated", "attempt", 1, "empty", "")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "pipeline: candidate generated")
	assert.Contains(t, out, "attempt=1")
	assert.NotContains(t, out, "empty=")
	assert.NotContains(t, out, "\x1b[", "no color codes when not writing to a terminal")

	buf.Reset()
	New(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
