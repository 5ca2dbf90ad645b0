package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

func TestKeywordIntent(t *testing.T) {
	cases := map[string]Intent{
		"create the code now":        IntentNewFeature,
		"add a build pipeline":       IntentNewFeature,
		"create the CDK code":        IntentNewFeature,
		"I need a new deploy bucket": IntentNewFeature,
		"update the deploy target":   IntentModifyGraph,
		"generate the terraform":     IntentGenerateCode,
		"build it":                   IntentGenerateCode,
		"describe the flow":          IntentExplain,
		"what is DynamoDB":           IntentExplain,
		"explain what this does":     IntentExplain,
		"remove the database node":   IntentModifyGraph,
		"delete the lambda":          IntentModifyGraph,
		"I want a todo app":          IntentNewFeature,
		"add a queue for the orders": IntentNewFeature,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, KeywordIntent(in))
		})
	}
}

func TestParseIntent(t *testing.T) {
	it, ok := ParseIntent("  Generate_Code\n")
	require.True(t, ok)
	assert.Equal(t, IntentGenerateCode, it)

	_, ok = ParseIntent("unknown")
	assert.False(t, ok)
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"json fence", "Here:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"typescript fence", "```typescript\nconst x = 1;\n```", "const x = 1;"},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
		{"no fence", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestParseDraft(t *testing.T) {
	text := "```json\n" + `{
  "explanation": "Adds storage",
  "nodes": [
    {"id": "bucket-1", "type": "storage", "label": "Uploads"},
    {"id": "fn-1", "data": {"type": "lambda", "label": "Resizer"}}
  ],
  "edges": [{"source": "fn-1", "target": "bucket-1"}]
}` + "\n```"

	d, err := ParseDraft(text)
	require.NoError(t, err)
	assert.Equal(t, "Adds storage", d.Explanation)
	require.Len(t, d.Nodes, 2)
	assert.Equal(t, graph.TypeLambda, d.Nodes[1].Type)
	assert.Equal(t, "Resizer", d.Nodes[1].Label)
	require.Len(t, d.Edges, 1)
	assert.Equal(t, "fn-1", d.Edges[0].Source)
}

func TestParseDraftMalformed(t *testing.T) {
	_, err := ParseDraft("```json\n{not json\n```")
	assert.ErrorIs(t, err, ErrMalformedDraft)

	_, err = ParseDraft(`{"nodes":[{"type":"lambda"}]}`)
	assert.ErrorIs(t, err, ErrMalformedDraft)
}

func TestClientChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0]["role"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"explain"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Provider: ProviderOpenAI, Model: "test-model", APIKey: "secret", APIBase: srv.URL + "/v1"},
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "explain", out)
}

func TestClientGemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gem:generateContent"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Provider: ProviderGemini, Model: "gem", APIKey: "k", APIBase: srv.URL})
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", APIBase: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	c, err = NewClient(Config{APIBase: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = NewClient(Config{Provider: "bedrock"})
	assert.Error(t, err)
}

type scripted struct {
	reply string
	err   error
	seen  []string
}

func (s *scripted) Complete(_ context.Context, system, prompt string) (string, error) {
	s.seen = append(s.seen, system, prompt)
	return s.reply, s.err
}

func TestLLMCollaborator(t *testing.T) {
	prompts := Prompts{Interpret: "classify", Architect: "draft"}

	m := &scripted{reply: "modify_graph"}
	llm := NewLLM(m, prompts, nil)
	it, err := llm.ClassifyIntent(context.Background(), "The architecture is empty.", "hook it up")
	require.NoError(t, err)
	assert.Equal(t, IntentModifyGraph, it)
	assert.Equal(t, "classify", m.seen[0])
	assert.Contains(t, m.seen[1], "User request: hook it up")

	m.reply = "no idea"
	it, err = llm.ClassifyIntent(context.Background(), "", "explain this")
	require.NoError(t, err)
	assert.Equal(t, IntentExplain, it, "unrecognised replies fall back to keywords")

	m.reply = `{"nodes":[]}`
	out, err := llm.DraftArchitecture(context.Background(), "", "add a bucket")
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[]}`, out)

	m.err = errors.New("boom")
	_, err = llm.DraftArchitecture(context.Background(), "", "add a bucket")
	assert.ErrorContains(t, err, "draft architecture")
}
