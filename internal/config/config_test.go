package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Load.RetryAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.Load.RetryBackoff)
	assert.Equal(t, 50, cfg.Load.MaxErrors)
	assert.True(t, cfg.Google.Recursive)
	assert.NotEmpty(t, cfg.Load.IgnoreSheets)
	assert.False(t, cfg.Configured())
}

func TestConfigured(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Configured())

	cfg.Google.FolderID = "folder"
	assert.True(t, cfg.Configured())

	cfg.Google.FolderID = ""
	cfg.Google.SheetIDs = []string{"abc"}
	assert.True(t, cfg.Configured())
}

func TestDefaultPeriods(t *testing.T) {
	periods := DefaultPeriods()
	require.Len(t, periods, 2)
	assert.Equal(t, "mar-mai/2024", periods[0].Name)
	assert.Equal(t, []int{3, 4, 5}, periods[0].Months)
	assert.Equal(t, "jun-ago/2024", periods[1].Name)
	assert.Equal(t, []int{6, 7, 8}, periods[1].Months)
}

func TestLimiter(t *testing.T) {
	cfg := Default()
	limiter := cfg.Google.Limiter()
	require.NotNil(t, limiter)
	assert.Equal(t, 5.0, float64(limiter.Limit()))
	assert.Equal(t, 5, limiter.Burst())

	// Broken values fall back to safe defaults.
	bad := GoogleConfig{RateLimitRPS: -1, RateLimitBurst: 0}
	limiter = bad.Limiter()
	assert.Equal(t, 5.0, float64(limiter.Limit()))
	assert.Equal(t, 5, limiter.Burst())
}

func TestValidateRejectsBadPeriods(t *testing.T) {
	cfg := Default()
	cfg.Periods.Periods = []PeriodConfig{{Name: "", Months: []int{1}}}
	assert.Error(t, cfg.validate())

	cfg.Periods.Periods = []PeriodConfig{{Name: "vazio"}}
	assert.Error(t, cfg.validate())

	cfg.Periods.Periods = []PeriodConfig{{Name: "fora", Months: []int{13}}}
	assert.Error(t, cfg.validate())

	cfg.Periods.Periods = DefaultPeriods()
	assert.NoError(t, cfg.validate())
}

func TestMergeConfigsEnvWins(t *testing.T) {
	fileCfg := Config{}
	fileCfg.Google.FolderID = "from-file"
	fileCfg.Google.CredentialsFile = "file-creds.json"

	envCfg := Config{}
	envCfg.Google.FolderID = "from-env"

	merged := mergeConfigs(fileCfg, envCfg)
	assert.Equal(t, "from-env", merged.Google.FolderID)
	// Unset env values inherit from the file.
	assert.Equal(t, "file-creds.json", merged.Google.CredentialsFile)
}
