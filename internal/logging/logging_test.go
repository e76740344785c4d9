package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "WARN", "json")
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("module", "room").Msg("slow consumer")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "room", line["module"])
	assert.Equal(t, "slow consumer", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "", "console")
	require.NoError(t, err)

	logger.Info().Msg("listening")
	assert.Contains(t, buf.String(), "listening")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "json")
	assert.ErrorContains(t, err, "log level")

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.ErrorContains(t, err, "unknown log format")
}
