package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelError, ParseLevel("CRITICAL"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetupWriterJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupWriter(&buf, "WARNING", "json")

	logger.Info("dropped")
	logger.Warn("routing_decision", "session_id", "5519999999999")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "routing_decision", rec["msg"])
	assert.Equal(t, "5519999999999", rec["session_id"])
}

func TestSetupWriterConsole(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "INFO", "console")
	slog.Info("message_sent", "phone", "5511")

	assert.Contains(t, buf.String(), "msg=message_sent")
	assert.Contains(t, buf.String(), "phone=5511")
}
