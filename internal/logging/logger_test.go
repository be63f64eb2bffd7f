package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging/adapters"
)

func TestMultiLoggerLevelsAndFields(t *testing.T) {
	logger, memory := NewDiscardLogger()
	logger.SetLevel(WarnLevel)

	child := logger.WithField("component", "cache").WithError(errors.New("upstream down"))
	child.Info("dropped")
	child.Warn("kept", map[string]interface{}{"attempt": 2})

	entries := memory.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "kept", entries[0].Message)
	require.Equal(t, "cache", entries[0].Fields["component"])
	require.Equal(t, "upstream down", entries[0].Fields["error"])
	require.Equal(t, 2, entries[0].Fields["attempt"])
}

func TestChildSeesAdaptersAddedLater(t *testing.T) {
	logger := NewMultiLogger()
	child := logger.WithField("k", "v")

	memory := adapters.NewMemoryAdapter("late")
	require.NoError(t, logger.AddAdapter(memory))
	require.Error(t, logger.AddAdapter(memory))

	child.Info("hello")
	require.Equal(t, []string{"hello"}, memory.Messages())
}

func TestManagerInitializeFileAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "inventory.log")

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Adapters = []config.AdapterConfig{{
		Name:    "file",
		Type:    "file",
		Enabled: true,
		Options: map[string]interface{}{"file_path": path, "format": "text"},
	}}

	manager := NewManager()
	require.NoError(t, manager.Initialize(cfg))
	manager.GetLogger().Debug("refresh complete", map[string]interface{}{"listings": 12})
	require.NoError(t, manager.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "[DEBUG] refresh complete listings=12"))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, WarnLevel, ParseLogLevel("WARNING"))
	require.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}
