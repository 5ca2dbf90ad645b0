package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfowler-cloud/scaffold-ai/internal/ai"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "cdk", s.Dialect)
	assert.Equal(t, 60*time.Second, s.AITimeout)
	assert.Equal(t, ":8000", s.Listen)
	assert.Empty(t, s.File)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(
		"dialect: terraform\nregion: eu-west-1\nai_timeout: 5s\nlisten: \":9000\"\n"), 0o644))
	t.Setenv("SCAFFOLD_REGION", "ap-southeast-2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", "cdk", "")
	flags.String("listen", ":8000", "")
	flags.Bool("skip-security", false, "")
	require.NoError(t, flags.Parse([]string{"--skip-security", "--listen", ":7000"}))

	s, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, s.File)
	assert.Equal(t, "terraform", s.Dialect, "unchanged flag keeps the file value")
	assert.Equal(t, "ap-southeast-2", s.Region, "env beats file")
	assert.Equal(t, ":7000", s.Listen, "flag beats file")
	assert.True(t, s.SkipSecurity)
	assert.Equal(t, 5*time.Second, s.AITimeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestEmbeddedDocuments(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadAIConfig("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.False(t, cfg.Usable(), "no key ships in the binary")

	t.Setenv("SCAFFOLD_AI_API_KEY", "sk-test")
	cfg, err = LoadAIConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.Usable())
	c := cfg.Client(time.Second)
	assert.Equal(t, ai.ProviderOpenAI, c.Provider)
	assert.Equal(t, time.Second, c.Timeout)

	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Contains(t, p.Interpret, "generate_code")
	assert.Contains(t, p.Architect, "\"nodes\"")
}

func TestFileOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interpret: classify\narchitect: draft\n"), 0o644))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, ai.Prompts{Interpret: "classify", Architect: "draft"}, p)

	require.NoError(t, os.WriteFile(path, []byte("interpret: only\n"), 0o644))
	_, err = LoadPrompts(path)
	assert.Error(t, err)
}
