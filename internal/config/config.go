// Package config provides configuration loading and management for gauntlet.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/spf13/viper"
)

// Agent types.
const (
	AgentTypeExec   = "exec"
	AgentTypeGemini = "gemini"
	AgentTypeOpenAI = "openai"
)

// Content and scoring backends besides the model providers.
const (
	BackendNone      = "none"
	BackendHeuristic = "heuristic"
)

// DefaultDir is the gauntlet state directory relative to the working directory.
const DefaultDir = ".gauntlet"

// Config is the root configuration.
type Config struct {
	Roster    map[string][]AgentConfig `json:"roster"    mapstructure:"roster"`
	Engine    EngineConfig             `json:"engine"    mapstructure:"engine"`
	Content   ContentConfig            `json:"content"   mapstructure:"content"`
	Scoring   ScoringConfig            `json:"scoring"   mapstructure:"scoring"`
	Gemini    GeminiConfig             `json:"gemini"    mapstructure:"gemini"`
	OpenAI    OpenAIConfig             `json:"openai"    mapstructure:"openai"`
	Retention RetentionPolicy          `json:"retention" mapstructure:"retention"`
}

// AgentConfig describes one responder tier of an agent. Tiers are tried in order.
type AgentConfig struct {
	Type   string   `json:"type"              mapstructure:"type"`
	Cmd    []string `json:"cmd,omitempty"     mapstructure:"cmd"`
	Model  string   `json:"model,omitempty"   mapstructure:"model"`
	UseTTY *bool    `json:"use_tty,omitempty" mapstructure:"use_tty"`
}

// EngineConfig tunes the competition loop.
type EngineConfig struct {
	PassThreshold     float64       `json:"pass_threshold"      mapstructure:"pass_threshold"`
	Seed              int64         `json:"seed,omitempty"      mapstructure:"seed"`
	DispatchTimeout   time.Duration `json:"dispatch_timeout"    mapstructure:"dispatch_timeout"`
	EvalConcurrency   int           `json:"eval_concurrency"    mapstructure:"eval_concurrency"`
	PersistRetryDelay time.Duration `json:"persist_retry_delay" mapstructure:"persist_retry_delay"`
	InsightTimeout    time.Duration `json:"insight_timeout"     mapstructure:"insight_timeout"`
	RewardLevel       string        `json:"reward_level"        mapstructure:"reward_level"`
}

// ContentConfig selects where scenario text comes from. The catalog is consulted first,
// then the provider; the built-in templates are the last resort.
type ContentConfig struct {
	Catalog  string `json:"catalog,omitempty" mapstructure:"catalog"`
	Provider string `json:"provider"          mapstructure:"provider"`
}

// ScoringConfig selects the judge.
type ScoringConfig struct {
	Judge string `json:"judge" mapstructure:"judge"`
}

// GeminiConfig configures the Gemini API.
type GeminiConfig struct {
	Model     string `json:"model"       mapstructure:"model"`
	APIKeyEnv string `json:"api_key_env" mapstructure:"api_key_env"`
}

// OpenAIConfig configures the OpenAI Responses API.
type OpenAIConfig struct {
	Model           string        `json:"model"                       mapstructure:"model"`
	BaseURL         string        `json:"base_url,omitempty"          mapstructure:"base_url"`
	APIKeyEnv       string        `json:"api_key_env"                 mapstructure:"api_key_env"`
	Timeout         time.Duration `json:"timeout,omitempty"           mapstructure:"timeout"`
	MaxOutputTokens int64         `json:"max_output_tokens,omitempty" mapstructure:"max_output_tokens"`
}

// RetentionPolicy defines how many old competitions to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// SetDefaults registers default values on v. Durations are strings so the raw settings
// validate against the schema.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.pass_threshold", 70.0)
	v.SetDefault("engine.dispatch_timeout", "0s")
	v.SetDefault("engine.eval_concurrency", 4)
	v.SetDefault("engine.persist_retry_delay", "200ms")
	v.SetDefault("engine.insight_timeout", "30s")
	v.SetDefault("engine.reward_level", string(model.RewardStandard))
	v.SetDefault("content.provider", BackendNone)
	v.SetDefault("scoring.judge", BackendHeuristic)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("openai.model", "gpt-5-mini")
	v.SetDefault("openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("retention.keep_last", 200)
}

// Load reads, validates and decodes the config file at path.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yml" || ext == "" {
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("GAUNTLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(v)
}

// Decode validates the settings held by v and decodes them.
func Decode(v *viper.Viper) (Config, error) {
	if err := ValidateSettings(v.AllSettings()); err != nil {
		return Config{}, err
	}
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(" "),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules the schema cannot express.
func (c Config) Validate() error {
	if len(c.Roster) == 0 {
		return fmt.Errorf("roster must name at least one agent")
	}
	for id, tiers := range c.Roster {
		if len(tiers) == 0 {
			return fmt.Errorf("roster.%s: at least one tier is required", id)
		}
		for i, tier := range tiers {
			switch tier.Type {
			case AgentTypeExec:
				if len(tier.Cmd) == 0 {
					return fmt.Errorf("roster.%s[%d]: exec agent requires cmd", id, i)
				}
			case AgentTypeGemini, AgentTypeOpenAI:
			default:
				return fmt.Errorf("roster.%s[%d]: unknown agent type %q", id, i, tier.Type)
			}
		}
	}
	if c.Engine.PassThreshold < 0 || c.Engine.PassThreshold > 100 {
		return fmt.Errorf("engine.pass_threshold must be within [0,100]")
	}
	return nil
}

// RewardLevel returns the configured default reward level.
func (c Config) RewardLevel() model.RewardLevel {
	return model.RewardLevel(c.Engine.RewardLevel)
}

// Agents returns the roster ids in sorted order.
func (c Config) Agents() []string {
	ids := make([]string, 0, len(c.Roster))
	for id := range c.Roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
