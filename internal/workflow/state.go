// Package workflow drives a chat request from intent classification to
// generated code.
package workflow

import (
	"github.com/jfowler-cloud/scaffold-ai/internal/ai"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
)

type Step string

const (
	StepInterpret      Step = "interpret"
	StepArchitect      Step = "architect"
	StepSecurityReview Step = "security_review"
	StepCodeGen        Step = "codegen"
	StepDone           Step = "done"
)

// Request is one user turn.
type Request struct {
	Message      string       `json:"message"`
	Graph        *graph.Graph `json:"graph"`
	Dialect      string       `json:"dialect,omitempty"`
	SkipSecurity bool         `json:"skipSecurity,omitempty"`
}

// State accumulates as the request moves through the steps. Every step
// reads and writes the same value.
type State struct {
	RunID        string            `json:"runId"`
	Message      string            `json:"message"`
	Graph        *graph.Graph      `json:"graph"`
	Dialect      string            `json:"dialect"`
	SkipSecurity bool              `json:"skipSecurity"`
	Intent       ai.Intent         `json:"intent"`
	Response     string            `json:"response"`
	Review       *security.Review  `json:"securityReview,omitempty"`
	Files        []codegen.File    `json:"generatedFiles"`
	Failures     []codegen.Failure `json:"failures,omitempty"`
	Trace        []Step            `json:"trace"`
}
