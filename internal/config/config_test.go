package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/analytics"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/spacedrep"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "dev", cfg.Log.Mode)
	assert.Equal(t, mastery.DefaultParams(), cfg.Mastery)
	assert.Equal(t, spacedrep.DefaultParams(), cfg.SpacedRep.Params)
	assert.Equal(t, spacedrep.DefaultRules(), cfg.SpacedRep.Rules)
	assert.Equal(t, analytics.DefaultParams(), cfg.Analytics)
	assert.Empty(t, cfg.Curriculum.File)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
store:
  driver: postgres
  dsn: postgres://plugg@localhost/plugg
mastery:
  mastery_threshold: 0.85
spacedrep:
  max_interval_hours: 720
  rules:
    - subject: history
      policy: spaced-repetition
analytics:
  time_zone: Europe/Stockholm
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://plugg@localhost/plugg", cfg.Store.DSN)
	assert.InDelta(t, 0.85, cfg.Mastery.MasteryThreshold, 1e-9)
	assert.InDelta(t, 0.2, cfg.Mastery.LearnRate, 1e-9, "unset keys keep defaults")
	assert.InDelta(t, 720, cfg.SpacedRep.MaxIntervalHours, 1e-9)
	require.Len(t, cfg.SpacedRep.Rules, 1)
	assert.Equal(t, spacedrep.PolicySpacedRepetition, cfg.SpacedRep.Rules[0].Policy)
	assert.Equal(t, "Europe/Stockholm", cfg.Analytics.TimeZone)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLUGG_STORE_DRIVER", "redis")
	t.Setenv("PLUGG_STORE_REDIS_ADDR", "cache:6380")
	t.Setenv("PLUGG_MASTERY_LEARN_RATE", "0.1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "cache:6380", cfg.Store.Redis.Addr)
	assert.InDelta(t, 0.1, cfg.Mastery.LearnRate, 1e-9)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: oracle\n"},
		{"postgres without dsn", "store:\n  driver: postgres\n"},
		{"penalty below learn rate", "mastery:\n  penalty_rate: 0.1\n"},
		{"bad rule policy", "spacedrep:\n  rules:\n    - subject: x\n      policy: cram\n"},
		{"bad log level", "log:\n  level: chatty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, validate.ErrInvalidInput)
		})
	}
}

func TestLoadPolicyAliases(t *testing.T) {
	path := writeConfig(t, `
spacedrep:
  rules:
    - subject: english
      policy: SRS
    - subject: history
      policy: spaced_repetition
    - subject: mathematics
      policy: " Mastery "
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.SpacedRep.Rules, 3)
	assert.Equal(t, spacedrep.PolicySpacedRepetition, cfg.SpacedRep.Rules[0].Policy)
	assert.Equal(t, spacedrep.PolicySpacedRepetition, cfg.SpacedRep.Rules[1].Policy)
	assert.Equal(t, spacedrep.PolicyMastery, cfg.SpacedRep.Rules[2].Policy)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
