package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jfowler-cloud/scaffold-ai/internal/ai"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/config"
	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/store"
	"github.com/jfowler-cloud/scaffold-ai/internal/workflow"
)

// readGraph loads the graph named by the first argument; "-" or no
// argument reads stdin.
func readGraph(args []string) (*graph.Graph, error) {
	if len(args) == 0 || args[0] == "-" {
		return graph.Decode(os.Stdin)
	}
	return graph.Load(args[0])
}

// writeFiles writes generated files under dir, creating parents.
func writeFiles(dir string, files []codegen.File) error {
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func colorOutput() bool {
	return !noColor && os.Getenv("NO_COLOR") == ""
}

func commandContext(ctx context.Context) context.Context {
	return core.WithLogger(ctx, logger)
}

// renderers returns the built-in dialects with terraform bound to the
// configured region. The default registry is left untouched.
func renderers() *codegen.Registry {
	if settings.Region == "" || settings.Region == codegen.DefaultRegion {
		return codegen.Default()
	}
	return codegen.Default().With(codegen.Terraform{Region: settings.Region})
}

// openStore opens the SQLite store at the configured path.
func openStore() (*store.SQLite, error) {
	db, err := store.OpenSQLite(settings.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", settings.StorePath, err)
	}
	return db, nil
}

// newEngine builds the chat workflow, attaching a model when ai.yaml
// enables one and a key is available.
func newEngine(reg *codegen.Registry) *workflow.Engine {
	opts := []workflow.Option{workflow.WithLogger(logger), workflow.WithRenderers(reg)}
	if settings.AITimeout > 0 {
		opts = append(opts, workflow.WithTimeout(settings.AITimeout))
	}

	aiCfg, err := config.LoadAIConfig(settings.AIConfig)
	if err != nil {
		log.Warnf("AI config not loaded, using keyword mode: %v", err)
		return workflow.New(opts...)
	}
	if !aiCfg.Usable() {
		log.Debug("AI disabled or no API key set, using keyword mode")
		return workflow.New(opts...)
	}

	prompts, err := config.LoadPrompts(settings.PromptsFile)
	if err != nil {
		log.Warnf("prompts not loaded, using keyword mode: %v", err)
		return workflow.New(opts...)
	}
	client, err := ai.NewClient(aiCfg.Client(settings.AITimeout), ai.WithLogger(logger))
	if err != nil {
		log.Warnf("AI client not created, using keyword mode: %v", err)
		return workflow.New(opts...)
	}
	log.Infow("AI collaborator enabled", zap.String("provider", aiCfg.AI.Provider), zap.String("model", aiCfg.AI.Model))
	opts = append(opts, workflow.WithCollaborator(ai.NewLLM(client, prompts, logger)))
	return workflow.New(opts...)
}
