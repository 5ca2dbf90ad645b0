// Package ai talks to the language model that classifies requests and
// drafts architecture changes.
package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Intent string

const (
	IntentNewFeature   Intent = "new_feature"
	IntentModifyGraph  Intent = "modify_graph"
	IntentGenerateCode Intent = "generate_code"
	IntentExplain      Intent = "explain"
)

// ParseIntent maps free model output onto an Intent. The first recognised
// intent name wins; anything else reports false.
func ParseIntent(s string) (Intent, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, it := range []Intent{IntentGenerateCode, IntentModifyGraph, IntentNewFeature, IntentExplain} {
		if strings.Contains(s, string(it)) {
			return it, true
		}
	}
	return "", false
}

var intentKeywords = []struct {
	intent Intent
	words  []string
}{
	{IntentNewFeature, []string{"add", "create", "new", "include", "need"}},
	{IntentModifyGraph, []string{"change", "modify", "update", "edit", "remove", "delete", "connect"}},
	{IntentGenerateCode, []string{"generate", "code", "deploy", "build", "cdk", "export"}},
	{IntentExplain, []string{"explain", "what", "how", "why", "describe", "help", "?"}},
}

// KeywordIntent classifies a request without a model. Groups are checked in
// order (new_feature, modify_graph, generate_code, explain) and the first
// group with a matching word wins; the default is new_feature.
func KeywordIntent(request string) Intent {
	lower := strings.ToLower(request)
	for _, group := range intentKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.intent
			}
		}
	}
	return IntentNewFeature
}

// Collaborator is the external reasoning service used by the workflow.
type Collaborator interface {
	ClassifyIntent(ctx context.Context, summary, request string) (Intent, error)
	DraftArchitecture(ctx context.Context, summary, request string) (string, error)
}

// Completer is satisfied by Client.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Prompts struct {
	Interpret string `yaml:"interpret"`
	Architect string `yaml:"architect"`
}

// LLM is a Collaborator backed by a chat completion model.
type LLM struct {
	model   Completer
	prompts Prompts
	logger  *zap.Logger
}

func NewLLM(model Completer, prompts Prompts, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{model: model, prompts: prompts, logger: logger}
}

func (l *LLM) ClassifyIntent(ctx context.Context, summary, request string) (Intent, error) {
	out, err := l.model.Complete(ctx, l.prompts.Interpret, userPrompt(summary, request))
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}
	intent, ok := ParseIntent(out)
	if !ok {
		l.logger.Debug("unrecognised intent, using keywords", zap.String("reply", out))
		return KeywordIntent(request), nil
	}
	return intent, nil
}

func (l *LLM) DraftArchitecture(ctx context.Context, summary, request string) (string, error) {
	out, err := l.model.Complete(ctx, l.prompts.Architect, userPrompt(summary, request))
	if err != nil {
		return "", fmt.Errorf("draft architecture: %w", err)
	}
	return out, nil
}

func userPrompt(summary, request string) string {
	return fmt.Sprintf("Current architecture:\n%s\n\nUser request: %s", summary, request)
}
