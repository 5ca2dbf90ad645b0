// Package config loads runtime settings and the YAML documents that ship
// with the binary.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "scaffold.yaml"

const envPrefix = "SCAFFOLD_"

type Settings struct {
	LogLevel     string        `koanf:"log_level"`
	LogFile      string        `koanf:"log_file"`
	Dialect      string        `koanf:"dialect"`
	Region       string        `koanf:"region"`
	StorePath    string        `koanf:"store_path"`
	OutputDir    string        `koanf:"output_dir"`
	SkipSecurity bool          `koanf:"skip_security"`
	AITimeout    time.Duration `koanf:"ai_timeout"`
	AIConfig     string        `koanf:"ai_config"`
	PromptsFile  string        `koanf:"prompts_file"`
	Listen       string        `koanf:"listen"`

	// File is the settings file that was read, if any.
	File string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"log_level":     "info",
		"log_file":      "",
		"dialect":       "cdk",
		"region":        "us-east-1",
		"store_path":    "scaffold.db",
		"output_dir":    ".",
		"skip_security": false,
		"ai_timeout":    "60s",
		"ai_config":     "",
		"prompts_file":  "",
		"listen":        ":8000",
	}
}

// Load layers defaults, the settings file, SCAFFOLD_* variables and any
// flags the user changed, lowest precedence first. Flag names use kebab
// case and map onto the snake case keys.
func Load(cfgFile string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := cfgFile
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SCAFFOLD_STORE_PATH -> store_path
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	s.File = used
	return &s, nil
}
