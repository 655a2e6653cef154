package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Critic   ProviderConfig `mapstructure:"critic"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Compiler CompilerConfig `mapstructure:"compiler"`
	Run      RunConfig      `mapstructure:"run"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

type ProviderConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

type EditorConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type CompilerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

type RunConfig struct {
	MaxIterations         int `mapstructure:"max_iterations"`
	MaxBatch              int `mapstructure:"max_batch"`
	AdapterRetries        int `mapstructure:"adapter_retries"`
	AdapterTimeoutSeconds int `mapstructure:"adapter_timeout_seconds"`
}

type TUIConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Defaults() Config {
	return Config{
		Critic: ProviderConfig{
			Command: "claude",
			Args:    []string{},
		},
		Editor: EditorConfig{
			Model: "gpt-4o",
		},
		Compiler: CompilerConfig{
			Command: "latexmk",
			Args:    []string{"-pdf", "-interaction=nonstopmode", "-halt-on-error"},
		},
		Run: RunConfig{
			MaxIterations:         5,
			MaxBatch:              3,
			AdapterRetries:        2,
			AdapterTimeoutSeconds: 120,
		},
		TUI: TUIConfig{Enabled: true},
	}
}

func Load(configPath string) (Config, error) {
	cfg := Defaults()

	path := configPath
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".texrev", "config.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Critic.Command == "" {
		cfg.Critic.Command = "claude"
	}
	if cfg.Compiler.Command == "" {
		cfg.Compiler.Command = "latexmk"
	}
	if cfg.Run.MaxIterations == 0 {
		cfg.Run.MaxIterations = 5
	}
	if cfg.Run.MaxBatch == 0 {
		cfg.Run.MaxBatch = 3
	}
	if cfg.Run.AdapterRetries == 0 {
		cfg.Run.AdapterRetries = 2
	}
	if cfg.Run.AdapterTimeoutSeconds == 0 {
		cfg.Run.AdapterTimeoutSeconds = 120
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets the editor key come from the environment so it never
// has to live in the config file.
func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Editor.APIKey == "" {
		cfg.Editor.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" && cfg.Editor.BaseURL == "" {
		cfg.Editor.BaseURL = base
	}
}
