package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/pkg/logger"
)

func TestLoggerWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput("info", &buf)

	log.Info("Reposição concluída.", map[string]interface{}{"product_id": "p1", "new_stock": 15})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Reposição concluída.", entry["message"])
	assert.Equal(t, "p1", entry["product_id"])
	assert.EqualValues(t, 15, entry["new_stock"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput("error", &buf)

	log.Debug("debug", nil)
	log.Info("info", nil)
	log.Warn("warn", nil)
	assert.Empty(t, buf.String())

	log.Error("falhou", errors.New("connection refused"))
	assert.Contains(t, buf.String(), "connection refused")
}

func TestLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput("verbose", &buf)

	log.Debug("hidden", nil)
	log.Info("shown", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}
