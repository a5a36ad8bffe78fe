package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestJSONLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithFormat("info", "json", &buf).Component("bookings")

	logger.Info("appointment booked", "doctor_id", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "bookings", record["component"])
	assert.Equal(t, "appointment booked", record["msg"])
	assert.EqualValues(t, 7, record["doctor_id"])
}

func TestTextLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithFormat("warn", "text", &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.True(t, strings.Contains(out, "msg=kept"))
}
