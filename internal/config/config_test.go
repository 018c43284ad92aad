package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ALERT_CHECK_INTERVAL", "")
	t.Setenv("ANALYTICS_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 7, cfg.Analytics.AlertWindowDays)
	assert.Equal(t, 1, cfg.Analytics.ViralWindowDays)
	assert.Equal(t, time.Hour, cfg.Analytics.AlertCheckInterval)
	assert.Equal(t, 365, cfg.Analytics.MaxLookbackDays)
	assert.Equal(t, "analytics_jobs", cfg.RabbitMQ.JobsQueue)
	assert.Equal(t, time.UTC, cfg.Analytics.TimeZone)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ALERT_WINDOW_DAYS", "14")
	t.Setenv("DB_QUERY_TIMEOUT", "3s")
	t.Setenv("ANALYTICS_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("RABBITMQ_HOST", "mq")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Analytics.AlertWindowDays)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Analytics.TimeZone.String())
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQ.URL())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadTimeZone(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ANALYTICS_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}
