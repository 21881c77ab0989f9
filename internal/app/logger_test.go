package app_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubspace/internal/app"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := app.NewLogger("debug", "json", &buf)
	require.NoError(t, err)

	log.WithField("component", "test").Debug("hello")
	log.Trace("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewLogger_Levels(t *testing.T) {
	log, err := app.NewLogger("trace", "text", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.TraceLevel, log.GetLevel())
	assert.NotSame(t, logrus.StandardLogger(), log)

	_, err = app.NewLogger("verbose", "text", &bytes.Buffer{})
	require.Error(t, err)
}
