package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "info", "json"), "member_repository")

	logger.Debug("hidden")
	logger.Warn("duplicate property set", "id", 12)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "duplicate property set", entry["msg"])
	assert.Equal(t, "member_repository", entry["component"])
	assert.EqualValues(t, 12, entry["id"])
}

func TestError_WritesMessage(t *testing.T) {
	var buf bytes.Buffer
	Error(NewWithWriter(&buf, "info", "json"), "save failed", errors.New("boom"))
	assert.Contains(t, buf.String(), "save failed")
}
