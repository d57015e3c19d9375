// Package config loads the process-scoped configuration surface (spec
// §6) using viper, layering an optional YAML file under PUMPKERNEL_*
// environment overrides, the way the teacher repo's internal/config
// loader does.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/liftstation/pumpkernel/internal/domain"
)

// Config is the fully resolved process configuration.
type Config struct {
	PriceScenario      domain.PriceScenario
	AgentTimeout       time.Duration
	CoordinatorTimeout time.Duration

	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string

	ForecasterLookback  int
	ForecasterCacheSize int
	ForecasterModelPath string

	DatasetPath     string
	DatasetMetaPath string

	PumpModelCacheSize int

	MetricsAddr string
}

const envPrefix = "PUMPKERNEL"

// Load resolves Config from an optional YAML file at path (skipped when
// empty or missing) layered under PUMPKERNEL_* environment variables,
// which always win.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		PriceScenario:       domain.PriceScenario(v.GetString("price_scenario")),
		AgentTimeout:        v.GetDuration("agent_timeout"),
		CoordinatorTimeout:  v.GetDuration("coordinator_timeout"),
		LLMProvider:         v.GetString("llm_provider"),
		LLMModel:            v.GetString("llm_model"),
		LLMAPIKey:           v.GetString("llm_api_key"),
		LLMBaseURL:          v.GetString("llm_base_url"),
		ForecasterLookback:  v.GetInt("forecaster_lookback"),
		ForecasterCacheSize: v.GetInt("forecaster_cache_size"),
		ForecasterModelPath: v.GetString("forecaster_model_path"),
		DatasetPath:         v.GetString("dataset_path"),
		DatasetMetaPath:     v.GetString("dataset_meta_path"),
		PumpModelCacheSize:  v.GetInt("pump_model_cache_size"),
		MetricsAddr:         v.GetString("metrics_addr"),
	}

	if cfg.PriceScenario != domain.ScenarioNormal && cfg.PriceScenario != domain.ScenarioHigh {
		return Config{}, fmt.Errorf("config: price_scenario must be %q or %q, got %q", domain.ScenarioNormal, domain.ScenarioHigh, cfg.PriceScenario)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("price_scenario", string(domain.ScenarioNormal))
	v.SetDefault("agent_timeout", 8*time.Second)
	v.SetDefault("coordinator_timeout", 20*time.Second)
	v.SetDefault("llm_provider", "mock")
	v.SetDefault("llm_model", "claude-3-5-sonnet-20241022")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("forecaster_lookback", 48)
	v.SetDefault("forecaster_cache_size", 256)
	v.SetDefault("forecaster_model_path", "")
	v.SetDefault("dataset_path", "")
	v.SetDefault("dataset_meta_path", "")
	v.SetDefault("pump_model_cache_size", 512)
	v.SetDefault("metrics_addr", ":9090")
}

// UsesMockLLM reports whether no real provider is configured, matching
// the "default to MockClient when no API key is set" rule (SPEC_FULL
// §3).
func (c Config) UsesMockLLM() bool {
	return c.LLMProvider == "mock" || c.LLMAPIKey == ""
}
