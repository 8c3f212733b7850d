package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "comptrend.db", cfg.Database.Path)
	assert.Equal(t, int64(20), cfg.Upload.MaxSizeMB)
	assert.Equal(t, 12, cfg.Analysis.RecentMonths)
	assert.Equal(t, 100, cfg.Analysis.ChartPoints)
	assert.Equal(t, 100, cfg.BatchProcessing.QueueSize)
	assert.Equal(t, 2, cfg.BatchProcessing.ProcessorCount)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYSIS_RECENT_MONTHS", "6")
	t.Setenv("BATCH_MAX_RETRIES", "1")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Analysis.RecentMonths)
	assert.Equal(t, 1, cfg.BatchProcessing.MaxRetries)
}
