package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linerelay/internal/shared/types"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{Level: "warn"}, &buf))

	buf.Reset()
	Info().Msg("hidden")
	assert.Empty(t, buf.String())

	Warn().Str("peer", "127.0.0.1:1").Int("n", 2).Msg("shown")
	entry := lastLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "127.0.0.1:1", entry["peer"])
	assert.EqualValues(t, 2, entry["n"])
	assert.Contains(t, entry, "time")
}

func TestInitWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{Level: "chatty"}, &buf))
	assert.Equal(t, zerolog.InfoLevel, WithComponent("x").GetLevel())

	buf.Reset()
	Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{Level: "debug"}, &buf))

	l := WithComponent("gateway")
	l.Info().Msg("hello")
	entry := lastLine(t, &buf)
	assert.Equal(t, "gateway", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestInitWithWriter_EmptyLevelIsSilentInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{}, &buf))
	assert.Equal(t, zerolog.InfoLevel, WithComponent("x").GetLevel())
	assert.NotContains(t, buf.String(), "Unknown log level")
}

func TestInitWithWriter_UnknownLevelIsReported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{Level: "chatty"}, &buf))
	assert.Contains(t, buf.String(), "Unknown log level 'chatty'")
}
