package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

// ErrMalformedDraft is returned when a draft is not the expected JSON document.
var ErrMalformedDraft = errors.New("malformed architecture draft")

// Draft is the architecture proposal returned by the model.
type Draft struct {
	Explanation string       `json:"explanation"`
	Nodes       []graph.Node `json:"nodes"`
	Edges       []graph.Edge `json:"edges"`
}

var fences = []string{"```json", "```typescript", "```python", "```"}

// StripCodeFences returns the body of the first fenced block in text, or the
// trimmed text when there is none.
func StripCodeFences(text string) string {
	for _, open := range fences {
		start := strings.Index(text, open)
		if start < 0 {
			continue
		}
		body := text[start+len(open):]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(text)
}

// ParseDraft decodes a possibly fenced JSON draft.
func ParseDraft(text string) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}
	for _, n := range d.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node without id", ErrMalformedDraft)
		}
	}
	return &d, nil
}
