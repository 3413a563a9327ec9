package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrExists is returned by WriteDefault when the target file already exists.
var ErrExists = errors.New("config already exists")

// DefaultPath is the config location relative to the working directory.
var DefaultPath = filepath.Join(DefaultDir, "config.yaml")

// DefaultSettings returns the settings written by gauntlet init.
func DefaultSettings() map[string]any {
	return map[string]any{
		"roster": map[string]any{
			"codex": []any{
				map[string]any{"type": AgentTypeExec, "cmd": []string{"codex", "exec", "--full-auto"}},
				map[string]any{"type": AgentTypeOpenAI},
			},
			"gemini": []any{
				map[string]any{"type": AgentTypeExec, "cmd": []string{"gemini", "--yolo"}},
				map[string]any{"type": AgentTypeGemini, "model": "gemini-2.5-flash"},
			},
			"opencode": []any{
				map[string]any{"type": AgentTypeExec, "cmd": []string{"opencode", "run"}},
			},
		},
		"engine": map[string]any{
			"pass_threshold":      70,
			"dispatch_timeout":    "10m",
			"eval_concurrency":    4,
			"persist_retry_delay": "200ms",
			"insight_timeout":     "30s",
			"reward_level":        "standard",
		},
		"content": map[string]any{
			"catalog":  filepath.Join(DefaultDir, "catalog.toml"),
			"provider": AgentTypeGemini,
		},
		"scoring": map[string]any{
			"judge": AgentTypeGemini,
		},
		"gemini": map[string]any{
			"model":       "gemini-2.5-flash",
			"api_key_env": "GEMINI_API_KEY",
		},
		"openai": map[string]any{
			"model":       "gpt-5-mini",
			"api_key_env": "OPENAI_API_KEY",
		},
		"retention": map[string]any{
			"keep_last": 200,
			"keep_days": 90,
		},
	}
}

// WriteDefault writes the default config to path unless a file is already there.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
