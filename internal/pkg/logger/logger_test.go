package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Format: FormatJSON, Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: "info", Format: FormatText}) })

	componentLogger := Component("clearance")
	componentLogger.Info().Str("studentId", "S1").Msg("submitted")
	Debug().Msg("dropped below the configured level")
	fieldLogger := WithField("command", "seed")
	fieldLogger.Warn().Msg("seeding")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "clearance", first["component"])
	assert.Equal(t, "S1", first["studentId"])
	assert.Equal(t, "info", first["level"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "seed", second["command"])
}
