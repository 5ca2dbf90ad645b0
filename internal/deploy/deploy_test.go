package deploy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
)

func TestNewRequestDefaults(t *testing.T) {
	r := NewRequest("Todo", "code", "")
	assert.True(t, r.ApprovalRequired)
	assert.Equal(t, DefaultRegion, r.Region)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewRequest("todo-app-1", "x", "").Validate())
	assert.ErrorIs(t, NewRequest("1st", "x", "").Validate(), ErrInvalidStackName)
	assert.ErrorIs(t, NewRequest("my stack", "x", "").Validate(), ErrInvalidStackName)
	assert.ErrorIs(t, NewRequest("ok", "  ", "").Validate(), ErrMissingCode)
}

func TestProjectFiles(t *testing.T) {
	files, err := ProjectFiles(NewRequest("Todo", "export class ScaffoldAiStack {}", ""))
	require.NoError(t, err)

	byPath := map[string]string{}
	for _, f := range files {
		byPath[f.Path] = f.Content
	}
	assert.Len(t, byPath, 5)
	assert.Equal(t, "export class ScaffoldAiStack {}", byPath["lib/todo-stack.ts"])
	assert.Contains(t, byPath["bin/app.ts"], "import { "+codegen.CDKStackClass+" } from '../lib/todo-stack';")
	assert.Contains(t, byPath["bin/app.ts"], "'Todo'")

	var cdk map[string]any
	require.NoError(t, json.Unmarshal([]byte(byPath["cdk.json"]), &cdk))
	assert.Equal(t, "broadening", cdk["requireApproval"])

	var pkg map[string]any
	require.NoError(t, json.Unmarshal([]byte(byPath["package.json"]), &pkg))
	assert.Equal(t, "todo", pkg["name"])
}

func TestProjectFilesWithoutApproval(t *testing.T) {
	req := NewRequest("Todo", "code", "custom entry")
	req.ApprovalRequired = false
	files, err := ProjectFiles(req)
	require.NoError(t, err)

	for _, f := range files {
		switch f.Path {
		case "cdk.json":
			assert.Contains(t, f.Content, `"requireApproval": "never"`)
		case "bin/app.ts":
			assert.Equal(t, "custom entry", f.Content)
		}
	}
}

func TestProjectFilesRejectsInvalid(t *testing.T) {
	_, err := ProjectFiles(NewRequest("", "code", ""))
	assert.ErrorIs(t, err, ErrInvalidStackName)
}
