package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ak/millboard/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "millboard.log")
	log, err := New(config.LoggingConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.WithComponent("orders").WithOrder("ORD-0007").WithRequest("req-1").Info("Order created")
	log.WithRequest("").Debug("no request")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "orders", entry["component"])
	assert.Equal(t, "ORD-0007", entry["order_id"])
	assert.Equal(t, "req-1", entry["request_id"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.NotContains(t, lines[1], "request_id")
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	log, err := New(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("dropped")
	log.WithUser("u1", "admin").Warn("kept")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"username":"admin"`)
}

func TestNew_BadOutput(t *testing.T) {
	_, err := New(config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}
