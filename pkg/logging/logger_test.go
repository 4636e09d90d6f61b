package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestStructuredLogger_WritesJSONWithServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("battery-api", "1.2.3", InfoLevel)
	logger.SetOutput(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.Info(ctx, "[TEST] hello", Fields{"cycles": 1000, "profile": "excellent"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "[TEST] hello", entry["message"])
	assert.Equal(t, "battery-api", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "req-42", entry["request_id"])

	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1000), fields["cycles"])
	assert.Equal(t, "excellent", fields["profile"])
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("battery-api", "test", WarnLevel)
	logger.SetOutput(&buf)

	logger.Debug(context.Background(), "debug", nil)
	logger.Info(context.Background(), "info", nil)
	assert.Empty(t, buf.String())

	logger.Error(context.Background(), "boom", Fields{}, errors.New("disk on fire"))
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Equal(t, "disk on fire", entries[0]["error"])
	assert.NotEmpty(t, entries[0]["caller"])

	buf.Reset()
	logger.SetLevel(DebugLevel)
	logger.Debug(context.Background(), "now visible", nil)
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestContextLogger_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("battery-api", "test", DebugLevel)
	logger.SetOutput(&buf)

	scoped := logger.WithFields(Fields{"component": "impact", "method": "rules"})
	scoped.Info(context.Background(), "estimate", Fields{"method": "surrogate"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	fields := entries[0]["fields"].(map[string]interface{})
	assert.Equal(t, "impact", fields["component"])
	assert.Equal(t, "surrogate", fields["method"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}
