package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jfowler-cloud/scaffold-ai/internal/ai"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/splitter"
)

// DefaultTimeout bounds each collaborator call.
const DefaultTimeout = 60 * time.Second

const (
	msgTrouble = "I had trouble generating the architecture. Please try rephrasing your request."
	msgError   = "I encountered an error while designing the architecture: %v"
	msgEmpty   = "The architecture is currently empty. Describe what you want to build and I'll add the components."
)

type Engine struct {
	collab    ai.Collaborator
	timeout   time.Duration
	logger    *zap.Logger
	renderers *codegen.Registry
	steps     map[Step]func(context.Context, *State) Step
}

type Option func(*Engine)

// WithCollaborator enables model-backed classification and drafting.
func WithCollaborator(c ai.Collaborator) Option {
	return func(e *Engine) { e.collab = c }
}

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRenderers resolves dialects against reg instead of the default registry.
func WithRenderers(reg *codegen.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.renderers = reg
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, logger: zap.NewNop(), renderers: codegen.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.steps = map[Step]func(context.Context, *State) Step{
		StepInterpret:      e.interpret,
		StepArchitect:      e.architect,
		StepSecurityReview: e.securityReview,
		StepCodeGen:        e.codegen,
	}
	return e
}

// Run executes the workflow for req. The input graph is never modified; the
// resulting graph is returned in State.Graph.
func (e *Engine) Run(ctx context.Context, req Request) (*State, error) {
	if req.Message == "" {
		return nil, errors.New("empty message")
	}
	g := graph.New()
	if req.Graph != nil {
		g = req.Graph.Clone()
	}
	dialect := req.Dialect
	if dialect == "" {
		dialect = codegen.DialectCDK
	}

	st := &State{
		RunID:        uuid.NewString(),
		Message:      req.Message,
		Graph:        g,
		Dialect:      dialect,
		SkipSecurity: req.SkipSecurity,
		Files:        []codegen.File{},
	}
	logger := e.logger.With(zap.String("run", st.RunID))
	ctx = core.WithLogger(ctx, logger)

	for step := StepInterpret; step != StepDone; {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Trace = append(st.Trace, step)
		next := e.steps[step](ctx, st)
		logger.Debug("step finished", zap.String("step", string(step)), zap.String("next", string(next)))
		step = next
	}
	st.Trace = append(st.Trace, StepDone)
	return st, nil
}

func (e *Engine) interpret(ctx context.Context, st *State) Step {
	st.Intent = ai.KeywordIntent(st.Message)
	if e.collab == nil {
		return StepArchitect
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	intent, err := e.collab.ClassifyIntent(cctx, st.Graph.Summary(), st.Message)
	if err != nil {
		core.LoggerFrom(ctx).Warn("intent classification failed, using keywords",
			zap.Error(err), zap.String("intent", string(st.Intent)))
		return StepArchitect
	}
	st.Intent = intent
	return StepArchitect
}

func (e *Engine) architect(ctx context.Context, st *State) Step {
	switch st.Intent {
	case ai.IntentGenerateCode:
		st.Response = fmt.Sprintf("Generating %s code for %d components.", st.Dialect, len(st.Graph.Nodes))
		return StepSecurityReview
	case ai.IntentExplain:
		st.Response = explain(st.Graph)
		return StepDone
	}

	if e.collab == nil {
		st.Response = "No AI collaborator is configured, so the architecture was left unchanged.\n" + st.Graph.Summary()
		return StepDone
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	text, err := e.collab.DraftArchitecture(cctx, st.Graph.Summary(), st.Message)
	if err != nil {
		core.LoggerFrom(ctx).Warn("drafting failed", zap.Error(err))
		st.Response = fmt.Sprintf(msgError, err)
		return StepDone
	}

	draft, err := ai.ParseDraft(text)
	if err != nil {
		core.LoggerFrom(ctx).Warn("unusable draft", zap.Error(err))
		st.Response = msgTrouble
		return StepDone
	}

	merged, added, err := apply(st.Graph, draft)
	if err != nil {
		core.LoggerFrom(ctx).Warn("draft rejected", zap.Error(err))
		st.Response = msgTrouble
		return StepDone
	}
	if dangling := merged.DanglingEdges(); len(dangling) > 0 {
		for _, d := range dangling {
			core.LoggerFrom(ctx).Warn("edge references a missing node",
				zap.String("edge", d.ID), zap.String("source", d.Source), zap.String("target", d.Target))
		}
	}
	st.Graph = merged

	st.Response = draft.Explanation
	if st.Response == "" {
		st.Response = fmt.Sprintf("Added %d components to the architecture.", added)
	}
	return StepDone
}

// apply merges a draft into g and lays out the nodes it introduced.
func apply(g *graph.Graph, d *ai.Draft) (*graph.Graph, int, error) {
	existing := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		existing[n.ID] = struct{}{}
	}
	var fresh []graph.Node
	for _, n := range graph.MergeNodes(nil, d.Nodes) {
		if _, ok := existing[n.ID]; !ok {
			fresh = append(fresh, n)
		}
	}

	edges, err := graph.MergeEdges(g.Edges, d.Edges)
	if err != nil {
		return nil, 0, err
	}
	out := &graph.Graph{
		Nodes: graph.MergeNodes(g.Nodes, graph.AssignPositions(fresh, g.Nodes)),
		Edges: edges,
	}
	return out, len(fresh), nil
}

func explain(g *graph.Graph) string {
	if len(g.Nodes) == 0 {
		return msgEmpty
	}
	return "Here is the current architecture:\n" + g.Summary()
}

func (e *Engine) securityReview(ctx context.Context, st *State) Step {
	st.Review = security.ReviewGraph(st.Graph)
	if st.Review.Gate() {
		return StepCodeGen
	}
	if st.SkipSecurity {
		core.LoggerFrom(ctx).Warn("security review failed, continuing as requested", zap.Int("score", st.Review.Score))
		return StepCodeGen
	}
	st.Response = fmt.Sprintf(
		"Security review failed with score %d/100 (%d critical, %d warnings). Resolve the issues or run the security auto-fix before generating code.",
		st.Review.Score, len(st.Review.CriticalIssues), len(st.Review.Warnings))
	return StepDone
}

func (e *Engine) codegen(ctx context.Context, st *State) Step {
	dialect := st.Dialect
	if dialect == codegen.DialectCDK && splitter.ShouldSplit(st.Graph.Nodes) {
		dialect = codegen.DialectCDKNested
	}
	files, failures := e.renderers.RenderChain(ctx, st.Graph, dialect, codegen.DialectFrontend)
	st.Files = append(st.Files, files...)
	st.Failures = failures
	st.Response = fmt.Sprintf("Generated %d files using %s.", len(st.Files), dialect)
	return StepDone
}
