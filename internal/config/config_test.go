package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/evtracker")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTPAddress())
	assert.Equal(t, 2.0, cfg.Import.ThresholdKWh)
	assert.Equal(t, time.Hour, cfg.ConsumptionGap())
	assert.Equal(t, 4*time.Hour, cfg.DispatchGap())
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Nil(t, cfg.RateOverride())
	assert.Equal(t, 3, cfg.Import.LookbackDays)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/evtracker")
	t.Setenv("EVTRACKER_HTTP_PORT", "8080")
	t.Setenv("IMPORT_DISPATCH_GAP_MINUTES", "120")
	t.Setenv("IMPORT_TARIFF_RATE_PENCE", "8.25")
	t.Setenv("IMPORT_SAME_LOCATION_ONLY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, 2*time.Hour, cfg.DispatchGap())
	require.NotNil(t, cfg.RateOverride())
	assert.Equal(t, 8.25, *cfg.RateOverride())
	assert.True(t, cfg.Import.SameLocationOnly)
}

func TestRateOverrideZeroIsExplicit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/evtracker")
	t.Setenv("IMPORT_TARIFF_RATE_PENCE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.RateOverride())
	assert.Equal(t, 0.0, *cfg.RateOverride())
}
