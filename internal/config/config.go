package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Host        string
	Port        int
	Environment string
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// media roots
	RecordingsRootPath     string `toml:"recordings_root_path"`
	GeneratedAudioRootPath string `toml:"generated_audio_root_path"`
	ExpressionsMP3Path     string `toml:"expressions_mp3_path"`
	PodcastLibraryPath     string `toml:"podcast_library_path"`
	// week computation timezone, e.g. Asia/Seoul
	Timezone string `toml:"timezone"`
	// rate limits for the expensive generation endpoints
	GenerateRateLimitAllowedPerMin int `toml:"generate_rate_limit_allowed_per_min"`
	TTSRateLimitAllowedPerMin      int `toml:"tts_rate_limit_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlFile Toml
	if _, err := toml.DecodeFile(path, &tomlFile); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := tomlFile.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	cfg.Environment = env
	return cfg, nil
}

// Secrets come from the environment, never from the TOML file.
type Secrets struct {
	TypecastAPIKey   string `env:"TYPECAST_API_KEY"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	RedisPassword    string `env:"SPEAKPATH_REDIS_PASS"`
	SentryDSN        string `env:"SENTRY_DSN"`
	HoneycombEnabled bool   `env:"HONEYCOMB_ENABLED"`
}

func LoadSecrets(ctx context.Context) (*Secrets, error) {
	var secrets Secrets
	if err := envconfig.Process(ctx, &secrets); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &secrets, nil
}
