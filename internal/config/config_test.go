package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jhkim-dev/speakpath/internal/config"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testConfigToml = `
[development]
host = "localhost"
port = 8080
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "speakpath_db"
redis_host = "localhost"
redis_port = "6379"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"
recordings_root_path = "/tmp/speakpath/recordings"
generated_audio_root_path = "/tmp/speakpath/generated-audio"
expressions_mp3_path = "/tmp/speakpath/expressions"
podcast_library_path = "/tmp/speakpath/podcasts"
timezone = "Asia/Seoul"
generate_rate_limit_allowed_per_min = 5
tts_rate_limit_allowed_per_min = 10

[production]
host = "0.0.0.0"
port = 9000
log_level = "info"
logs_path = "/var/log/speakpath/service.log"
sentry_enabled = true
timezone = "Asia/Seoul"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigToml), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := config.Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.True(t, cfg.LogToStdout)
	assert.Equal(t, "speakpath_db", cfg.PostgresDBName)
	assert.Equal(t, "6379", cfg.RedisPort)
	assert.Equal(t, "/tmp/speakpath/expressions", cfg.ExpressionsMP3Path)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, 5, cfg.GenerateRateLimitAllowedPerMin)

	cfg, err = config.Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "prod", cfg.Environment)
	assert.True(t, cfg.SentryEnabled)
}

func TestLoad_Errors(t *testing.T) {
	path := writeTestConfig(t)

	_, err := config.Load("staging", path)
	require.ErrorContains(t, err, "unknown env")

	_, err = config.Load("development", filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	var secrets config.Secrets
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target: &secrets,
		Lookuper: envconfig.MapLookuper(map[string]string{
			"TYPECAST_API_KEY":  "tc-key",
			"OPENAI_API_KEY":    "oai-key",
			"HONEYCOMB_ENABLED": "true",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "tc-key", secrets.TypecastAPIKey)
	assert.Equal(t, "oai-key", secrets.OpenAIAPIKey)
	assert.Empty(t, secrets.RedisPassword)
	assert.True(t, secrets.HoneycombEnabled)
}
