package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jfowler-cloud/scaffold-ai/internal/ai"
	"github.com/jfowler-cloud/scaffold-ai/internal/embedded"
)

// ReadFile returns the named config document. An explicit path wins, then
// ./config/<name>, then the copy compiled into the binary.
func ReadFile(configPath, defaultName string) ([]byte, error) {
	if configPath == "" {
		configPath = filepath.Join("config", defaultName)
	}
	if _, err := os.Stat(configPath); err == nil {
		return os.ReadFile(configPath)
	}
	// embed paths always use forward slashes
	return embedded.Content.ReadFile("config/" + defaultName)
}

// ========== AI Config ==========

type AIConfig struct {
	AI struct {
		Enabled     bool    `yaml:"enabled"`
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		APIBase     string  `yaml:"api_base"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"ai"`
}

func LoadAIConfig(configPath string) (*AIConfig, error) {
	data, err := ReadFile(configPath, "ai.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read AI config: %w", err)
	}

	var cfg AIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse AI config: %w", err)
	}
	if key := os.Getenv("SCAFFOLD_AI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	return &cfg, nil
}

// Usable reports whether a model can be called with this config.
func (c *AIConfig) Usable() bool {
	return c != nil && c.AI.Enabled && c.AI.APIKey != ""
}

// Client converts the file config into client settings.
func (c *AIConfig) Client(timeout time.Duration) ai.Config {
	return ai.Config{
		Provider:    ai.Provider(c.AI.Provider),
		Model:       c.AI.Model,
		APIKey:      c.AI.APIKey,
		APIBase:     c.AI.APIBase,
		Temperature: c.AI.Temperature,
		Timeout:     timeout,
	}
}

// ========== Prompts ==========

func LoadPrompts(configPath string) (ai.Prompts, error) {
	data, err := ReadFile(configPath, "prompts.yaml")
	if err != nil {
		return ai.Prompts{}, fmt.Errorf("failed to read prompts: %w", err)
	}

	var p ai.Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return ai.Prompts{}, fmt.Errorf("failed to parse prompts: %w", err)
	}
	if p.Interpret == "" || p.Architect == "" {
		return ai.Prompts{}, fmt.Errorf("prompts file must define interpret and architect")
	}
	return p, nil
}
