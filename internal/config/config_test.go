package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{FileEnv, "HTTP_ADDRESS", "KAFKA_BROKERS", "CONSUMER_TOPICS", "WALK_EVENTS_TOPIC", "STRAVA_HTTP_TIMEOUT", "AUTO_MIGRATE", "CORS_ORIGIN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"walk_events"}, cfg.ConsumerTopics)
	require.Equal(t, 5*time.Second, cfg.StravaHTTPTimeout)
	require.Equal(t, 60*time.Second, cfg.TokenRefreshMargin)
	require.Equal(t, time.Minute, cfg.DLQBaseDelay)
	require.False(t, cfg.AutoMigrate)
	require.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("WALK_EVENTS_TOPIC", "walks_v2")
	t.Setenv("CONSUMER_TOPICS", "")
	t.Setenv("STRAVA_HTTP_TIMEOUT", "2s")
	t.Setenv("OUTBOX_BATCH_SIZE", "50")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("APP_BASE_URL", "https://walks.example.com/")
	t.Setenv("CORS_ORIGIN", "https://walks.example.com,http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"walks_v2"}, cfg.ConsumerTopics)
	require.Equal(t, 2*time.Second, cfg.StravaHTTPTimeout)
	require.Equal(t, 50, cfg.OutboxBatchSize)
	require.True(t, cfg.AutoMigrate)
	require.Equal(t, "https://walks.example.com", cfg.AppBaseURL)
	require.Len(t, cfg.CORSOrigins, 2)
}

func TestLoadReportsUnparsableValues(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("OUTBOX_BATCH_SIZE", "lots")
	t.Setenv("STRAVA_HTTP_TIMEOUT", "soon")
	t.Setenv("AUTO_MIGRATE", "maybe")

	_, err := Load()
	require.Error(t, err)
	require.ErrorContains(t, err, `OUTBOX_BATCH_SIZE="lots"`)
	require.ErrorContains(t, err, `STRAVA_HTTP_TIMEOUT="soon"`)
	require.ErrorContains(t, err, `AUTO_MIGRATE="maybe"`)
}

func TestLoadReadsConfigFileBeneathEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walklog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_address: ":7000"
strava_client_id: "4242"
outbox_batch_size: 80
oauth_state_ttl: 5m
`), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("HTTP_ADDRESS", ":7100")
	t.Setenv("STRAVA_CLIENT_ID", "")
	t.Setenv("OUTBOX_BATCH_SIZE", "")
	t.Setenv("OAUTH_STATE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7100", cfg.HTTPAddress)
	require.Equal(t, "4242", cfg.StravaClientID)
	require.Equal(t, 80, cfg.OutboxBatchSize)
	require.Equal(t, 5*time.Minute, cfg.OAuthStateTTL)
}

func TestLoadFailsOnMissingConfigFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.ErrorContains(t, err, "absent.yaml")
}

func TestValidateStrava(t *testing.T) {
	err := Config{}.ValidateStrava()
	require.Error(t, err)
	require.Contains(t, err.Error(), "STRAVA_CLIENT_ID")
	require.Contains(t, err.Error(), "STRAVA_VERIFY_TOKEN")

	require.NoError(t, Config{StravaClientID: "1", StravaClientSecret: "s", StravaVerifyToken: "v"}.ValidateStrava())
}
