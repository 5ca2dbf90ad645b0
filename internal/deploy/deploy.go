// Package deploy describes a CDK deployment request and lays out the
// project a deployer would run. It never calls AWS itself.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
)

const DefaultRegion = "us-east-1"

var (
	ErrInvalidStackName = errors.New("stack name must start with a letter and contain only letters, digits and hyphens")
	ErrMissingCode      = errors.New("stack code is required")
)

var stackNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)

type Request struct {
	StackName        string `json:"stackName"`
	PrimaryCode      string `json:"primaryCode"`
	EntrypointCode   string `json:"entrypointCode"`
	Region           string `json:"region"`
	Profile          string `json:"profile,omitempty"`
	ApprovalRequired bool   `json:"approvalRequired"`
}

type Result struct {
	Success bool              `json:"success"`
	Outputs map[string]string `json:"outputs,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Deployer runs a request against a real account.
type Deployer interface {
	Deploy(ctx context.Context, req Request) Result
}

// NewRequest returns a request for the default region that requires
// manual approval of security-sensitive changes.
func NewRequest(stackName, primaryCode, entrypointCode string) Request {
	return Request{
		StackName:        stackName,
		PrimaryCode:      primaryCode,
		EntrypointCode:   entrypointCode,
		Region:           DefaultRegion,
		ApprovalRequired: true,
	}
}

func (r Request) Validate() error {
	if !stackNameRe.MatchString(r.StackName) {
		return fmt.Errorf("%w: %q", ErrInvalidStackName, r.StackName)
	}
	if strings.TrimSpace(r.PrimaryCode) == "" {
		return ErrMissingCode
	}
	return nil
}

// Entrypoint renders bin/app.ts for a stack class exported from
// lib/<module>.
func Entrypoint(stackName, className, module string) string {
	return fmt.Sprintf(`#!/usr/bin/env node
import 'source-map-support/register';
import * as cdk from 'aws-cdk-lib';
import { %[2]s } from '../lib/%[3]s';

const app = new cdk.App();
new %[2]s(app, '%[1]s', {
  env: {
    account: process.env.CDK_DEFAULT_ACCOUNT,
    region: process.env.CDK_DEFAULT_REGION,
  },
});
`, stackName, className, module)
}

// ProjectFiles lays out a self-contained CDK TypeScript project for req.
func ProjectFiles(req Request) ([]codegen.File, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name := strings.ToLower(req.StackName)

	entry := req.EntrypointCode
	if entry == "" {
		entry = Entrypoint(req.StackName, codegen.CDKStackClass, name+"-stack")
	}

	approval := "broadening"
	if !req.ApprovalRequired {
		approval = "never"
	}

	docs := []struct {
		path string
		doc  any
	}{
		{"package.json", map[string]any{
			"name":    name,
			"version": "0.1.0",
			"bin":     map[string]string{"app": "bin/app.js"},
			"scripts": map[string]string{"build": "tsc", "cdk": "cdk"},
			"devDependencies": map[string]string{
				"@types/node": "^22.0.0",
				"aws-cdk":     "^2.0.0",
				"ts-node":     "^10.9.0",
				"typescript":  "^5.0.0",
			},
			"dependencies": map[string]string{
				"aws-cdk-lib":        "^2.0.0",
				"constructs":         "^10.0.0",
				"source-map-support": "^0.5.21",
			},
		}},
		{"tsconfig.json", map[string]any{
			"compilerOptions": map[string]any{
				"target":            "ES2020",
				"module":            "commonjs",
				"lib":               []string{"es2020"},
				"declaration":       true,
				"strict":            true,
				"noImplicitReturns": true,
				"inlineSourceMap":   true,
				"inlineSources":     true,
				"typeRoots":         []string{"./node_modules/@types"},
			},
			"exclude": []string{"node_modules", "cdk.out"},
		}},
		{"cdk.json", map[string]any{
			"app":             "npx ts-node --prefer-ts-exts bin/app.ts",
			"requireApproval": approval,
			"context": map[string]any{
				"aws-cdk:enableDiffNoFail": true,
			},
		}},
	}

	files := make([]codegen.File, 0, len(docs)+2)
	for _, d := range docs {
		b, err := json.MarshalIndent(d.doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", d.path, err)
		}
		files = append(files, codegen.File{Path: d.path, Content: string(b) + "\n"})
	}
	files = append(files,
		codegen.File{Path: "lib/" + name + "-stack.ts", Content: req.PrimaryCode},
		codegen.File{Path: "bin/app.ts", Content: entry},
	)
	return files, nil
}
