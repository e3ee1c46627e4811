package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-checkin/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.SchedulerInterval)
	assert.Equal(t, 4, cfg.SchedulerConcurrency)
	assert.True(t, cfg.MockLLM(), "local mode defaults to the mock LLM")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FARUM_STORAGE_BACKEND", "sqlite")
	t.Setenv("FARUM_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("FARUM_SCHEDULER_INTERVAL", "1h30m")
	t.Setenv("FARUM_USE_MOCK_LLM", "false")
	t.Setenv("FARUM_TIMEZONE", "UTC")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 90*time.Minute, cfg.SchedulerInterval)
	assert.False(t, cfg.MockLLM())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"gcp without project", map[string]string{"FARUM_MODE": "gcp"}},
		{"firestore without project", map[string]string{"FARUM_STORAGE_BACKEND": "firestore"}},
		{"unknown backend", map[string]string{"FARUM_STORAGE_BACKEND": "redis"}},
		{"zero interval", map[string]string{"FARUM_SCHEDULER_INTERVAL": "0s"}},
		{"bad timezone", map[string]string{"FARUM_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FARUM_GCP_PROJECT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
