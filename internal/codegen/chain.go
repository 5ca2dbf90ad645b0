package codegen

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// Failure records a renderer that panicked or errored and was replaced.
type Failure struct {
	Dialect string `json:"dialect"`
	Error   string `json:"error"`
}

// RenderChain runs each named renderer in order under panic recovery.
// A renderer that fails or is unknown is replaced by the unified CDK stack,
// which is emitted at most once. The chain never returns an error.
func RenderChain(ctx context.Context, g *graph.Graph, dialects ...string) ([]File, []Failure) {
	return defaultRegistry.RenderChain(ctx, g, dialects...)
}

// RenderChain is the package-level RenderChain resolved against reg.
func (reg *Registry) RenderChain(ctx context.Context, g *graph.Graph, dialects ...string) ([]File, []Failure) {
	logger := core.LoggerFrom(ctx)
	var (
		files     []File
		failures  []Failure
		fellBack  bool
		emittedAt = map[string]bool{}
	)

	fallback := func() {
		if fellBack || emittedAt[CDKStackPath] {
			return
		}
		fellBack = true
		out, err := core.SafeRun(ctx, DialectCDK, func(ctx context.Context) ([]File, error) {
			return CDK{}.Render(ctx, g)
		})
		if err != nil {
			logger.Error("fallback renderer failed", zap.Error(err))
			return
		}
		files = append(files, out...)
	}

	for _, name := range dialects {
		r, err := reg.Get(name)
		if err != nil {
			failures = append(failures, Failure{Dialect: name, Error: err.Error()})
			logger.Warn("unknown dialect, using cdk", zap.String("dialect", name))
			fallback()
			continue
		}
		out, err := core.SafeRun(ctx, name, func(ctx context.Context) ([]File, error) {
			return r.Render(ctx, g)
		})
		if err != nil {
			failures = append(failures, Failure{Dialect: name, Error: err.Error()})
			logger.Warn("renderer failed, using cdk", zap.String("dialect", name), zap.Error(err))
			fallback()
			continue
		}
		for _, f := range out {
			emittedAt[f.Path] = true
		}
		files = append(files, out...)
	}
	return files, failures
}

// RenderAll renders several dialects concurrently and returns the files
// keyed by dialect. The first error cancels the rest.
func RenderAll(ctx context.Context, g *graph.Graph, dialects ...string) (map[string][]File, error) {
	return defaultRegistry.RenderAll(ctx, g, dialects...)
}

// RenderAll is the package-level RenderAll resolved against reg.
func (reg *Registry) RenderAll(ctx context.Context, g *graph.Graph, dialects ...string) (map[string][]File, error) {
	var (
		mu  sync.Mutex
		out = make(map[string][]File, len(dialects))
	)
	resolved := make([]Renderer, len(dialects))
	for i, name := range dialects {
		r, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		resolved[i] = r
	}

	eg, egctx := errgroup.WithContext(ctx)
	for i, name := range dialects {
		r := resolved[i]
		eg.Go(func() error {
			files, err := core.SafeRun(egctx, name, func(ctx context.Context) ([]File, error) {
				return r.Render(ctx, g)
			})
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = files
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
