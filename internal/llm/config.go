package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TaskType identifies the kind of LLM task being performed.
type TaskType string

const (
	TaskSchedule TaskType = "schedule"
)

// Provider selects the backend the client talks to.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderDeepSeek  Provider = "deepseek"
)

const DefaultOllamaEndpoint = "http://localhost:11434"

// TaskConfig holds per-task LLM parameters.
type TaskConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutMs   int     `yaml:"timeout_ms"` // overrides global if > 0
}

// LLMConfig holds all configuration for the LLM subsystem.
type LLMConfig struct {
	Provider   Provider                `yaml:"provider"`
	LogCalls   bool                    `yaml:"log_calls"`
	Endpoint   string                  `yaml:"endpoint"`
	Model      string                  `yaml:"model"`
	APIKey     string                  `yaml:"-"`
	TimeoutMs  int                     `yaml:"timeout_ms"`
	MaxRetries int                     `yaml:"max_retries"`
	Tasks      map[TaskType]TaskConfig `yaml:"tasks"`
}

// DefaultConfig returns an LLMConfig pointing at a local Ollama server.
func DefaultConfig() LLMConfig {
	return LLMConfig{
		Provider:   ProviderOllama,
		Endpoint:   DefaultOllamaEndpoint,
		Model:      "llama3.2",
		TimeoutMs:  60000,
		MaxRetries: 1,
		Tasks: map[TaskType]TaskConfig{
			TaskSchedule: {Temperature: 0.2, MaxTokens: 8192, TimeoutMs: 120000},
		},
	}
}

// DefaultModel is the model used when none is configured for the provider.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderDeepSeek:
		return "deepseek-chat"
	default:
		return "llama3.2"
	}
}

// LoadConfig reads LLM configuration from environment variables on top of
// base. Switching provider without an explicit model or endpoint resets
// them to that provider's defaults.
func LoadConfig(base LLMConfig) LLMConfig {
	cfg := base
	cfg.Tasks = make(map[TaskType]TaskConfig, len(base.Tasks))
	for k, v := range base.Tasks {
		cfg.Tasks[k] = v
	}
	if len(cfg.Tasks) == 0 {
		cfg.Tasks = DefaultConfig().Tasks
	}

	if v := os.Getenv("TIMEBOXER_LLM_PROVIDER"); v != "" {
		p := Provider(strings.ToLower(v))
		if p != cfg.Provider {
			cfg.Provider = p
			cfg.Model = DefaultModel(p)
			cfg.Endpoint = ""
			if p == ProviderOllama {
				cfg.Endpoint = DefaultOllamaEndpoint
			}
		}
	}
	if v := os.Getenv("TIMEBOXER_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("TIMEBOXER_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("TIMEBOXER_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("TIMEBOXER_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("TIMEBOXER_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	cfg.APIKey = firstEnv("TIMEBOXER_LLM_API_KEY", providerKeyEnv(cfg.Provider))

	applyTaskTimeoutEnv(&cfg, TaskSchedule, "TIMEBOXER_LLM_SCHEDULE_TIMEOUT_MS")

	return cfg
}

// Validate checks that the selected provider can be constructed.
func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderOllama:
		if c.Endpoint == "" {
			return fmt.Errorf("ollama endpoint is required")
		}
	case ProviderAnthropic, ProviderDeepSeek:
		if c.APIKey == "" {
			return fmt.Errorf("%s api key is required (set TIMEBOXER_LLM_API_KEY or %s)", c.Provider, providerKeyEnv(c.Provider))
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	return nil
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c LLMConfig) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

func providerKeyEnv(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	}
	return ""
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func applyTaskTimeoutEnv(cfg *LLMConfig, task TaskType, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}
