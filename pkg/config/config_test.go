package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Perenual.DailyLimit)
	assert.Equal(t, "https://perenual.com/api/v2", cfg.Perenual.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Perenual.RateLimitBackoff)
	assert.Equal(t, 30*time.Second, cfg.Perenual.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Enrichment.PlantDelay)
	assert.Equal(t, 5, cfg.Enrichment.TriggerLimitPerHour)
	assert.Equal(t, time.UTC, cfg.Enrichment.Location())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PERENUAL_DAILY_LIMIT", "250")
	t.Setenv("ENRICHMENT_PLANT_DELAY_SECONDS", "0")
	t.Setenv("ENRICHMENT_TIMEZONE", "Europe/Berlin")
	t.Setenv("PERENUAL_REQUESTS_PER_SECOND", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Perenual.DailyLimit)
	assert.Equal(t, time.Duration(0), cfg.Enrichment.PlantDelay)
	assert.Equal(t, "Europe/Berlin", cfg.Enrichment.Location().String())
	assert.InDelta(t, 0.5, cfg.Perenual.RequestsPerSecond, 0.0001)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero daily limit", key: "PERENUAL_DAILY_LIMIT", value: "0"},
		{name: "hour out of range", key: "ENRICHMENT_SCHEDULE_HOUR", value: "24"},
		{name: "minute out of range", key: "ENRICHMENT_SCHEDULE_MINUTE", value: "60"},
		{name: "unknown timezone", key: "ENRICHMENT_TIMEZONE", value: "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "plants", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=plants sslmode=disable", cfg.DatabaseDSN())
}
