// Package config assembles runtime settings from defaults, an optional YAML
// file and TIMEBOXER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/cache"
	"github.com/alexanderramin/timeboxer/internal/calendar"
	"github.com/alexanderramin/timeboxer/internal/llm"
	"github.com/alexanderramin/timeboxer/internal/observability"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/alexanderramin/timeboxer/internal/service"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	AllowOrigins  []string      `yaml:"allow_origins"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

type Config struct {
	Rules    scheduler.Rules             `yaml:"rules"`
	Retry    service.RetryPolicy         `yaml:"retry"`
	LLM      llm.LLMConfig               `yaml:"llm"`
	DBPath   string                      `yaml:"db_path"`
	Redis    cache.RedisConfig           `yaml:"redis"`
	Server   ServerConfig                `yaml:"server"`
	Tracing  observability.TracingConfig `yaml:"tracing"`
	Log      LogConfig                   `yaml:"log"`
	Calendar calendar.Config             `yaml:"calendar"`
}

// Dir is the per-user directory holding the config file, database and
// calendar token. TIMEBOXER_HOME overrides it.
func Dir() string {
	if v := os.Getenv("TIMEBOXER_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".timeboxer"
	}
	return filepath.Join(home, ".timeboxer")
}

func Default() Config {
	dir := Dir()
	return Config{
		Rules:  scheduler.DefaultRules(),
		Retry:  service.DefaultRetryPolicy(),
		LLM:    llm.DefaultConfig(),
		DBPath: filepath.Join(dir, "timeboxer.db"),
		Redis: cache.RedisConfig{
			TTL:     24 * time.Hour,
			Channel: "timeboxer:progress",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			ShutdownGrace: 10 * time.Second,
		},
		Tracing: observability.TracingConfig{
			Exporter:    observability.ExporterNone,
			SampleRatio: 0.1,
			ServiceName: "timeboxer",
		},
		Log: LogConfig{Mode: "dev", Level: "warn"},
		Calendar: calendar.Config{
			CredentialsFile: filepath.Join(dir, "credentials.json"),
			TokenFile:       filepath.Join(dir, "token.json"),
			CalendarID:      "primary",
		},
	}
}

// Load reads the file at path over the defaults. An empty path falls back
// to TIMEBOXER_CONFIG and then to config.yaml in Dir(); only an explicitly
// named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if v := os.Getenv("TIMEBOXER_CONFIG"); v != "" {
			path, explicit = v, true
		} else {
			path = filepath.Join(Dir(), "config.yaml")
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(&cfg)
	cfg.LLM = llm.LoadConfig(cfg.LLM)

	if err := cfg.Rules.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid rules: %w", err)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.DBPath, "TIMEBOXER_DB_PATH")

	setInt(&cfg.Retry.MaxAttempts, "TIMEBOXER_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.ParseBackoff, "TIMEBOXER_PARSE_BACKOFF")
	setDuration(&cfg.Retry.ConstraintBackoff, "TIMEBOXER_CONSTRAINT_BACKOFF")

	setInt(&cfg.Rules.MaxWorkWithoutBreak, "TIMEBOXER_MAX_WORK_WITHOUT_BREAK")
	setInt(&cfg.Rules.MaxScheduleMinutes, "TIMEBOXER_MAX_SCHEDULE_MINUTES")
	setInt(&cfg.Rules.ShortBreak, "TIMEBOXER_SHORT_BREAK")
	setInt(&cfg.Rules.LongBreak, "TIMEBOXER_LONG_BREAK")

	setString(&cfg.Redis.Addr, "TIMEBOXER_REDIS_ADDR")
	setString(&cfg.Redis.Password, "TIMEBOXER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TIMEBOXER_REDIS_DB")
	setDuration(&cfg.Redis.TTL, "TIMEBOXER_REDIS_TTL")

	setString(&cfg.Server.Addr, "TIMEBOXER_SERVER_ADDR")
	if v := os.Getenv("TIMEBOXER_ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = splitList(v)
	}

	setString(&cfg.Tracing.Exporter, "TIMEBOXER_TRACING_EXPORTER")
	setString(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.Tracing.Headers = observability.ParseHeaders(v)
	}
	if v := os.Getenv("OTEL_SAMPLER_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRatio = f
		}
	}

	setString(&cfg.Log.Mode, "TIMEBOXER_LOG_MODE")
	setString(&cfg.Log.Level, "TIMEBOXER_LOG_LEVEL")

	setString(&cfg.Calendar.CalendarID, "TIMEBOXER_CALENDAR_ID")
	setString(&cfg.Calendar.TimeZone, "TIMEBOXER_CALENDAR_TZ")
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			*dst = d
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
