package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
)

const (
	sharesBucket = "shares"
	defaultTitle = "Shared Architecture"
)

type Share struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Graph     *graph.Graph `json:"graph"`
	CreatedAt time.Time    `json:"createdAt"`
}

type ShareSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	NodeCount int       `json:"nodeCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sharing publishes architectures under content-derived ids.
type Sharing struct {
	kv  KV
	now func() time.Time
}

func NewSharing(kv KV) *Sharing {
	return &Sharing{kv: kv, now: time.Now}
}

// ShareID is the first 12 hex characters of the sha256 of the graph's JSON.
// Sharing the same graph twice yields the same id.
func ShareID(g *graph.Graph) (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12], nil
}

func (s *Sharing) Create(ctx context.Context, g *graph.Graph, title string) (string, error) {
	if g == nil {
		g = graph.New()
	}
	if title == "" {
		title = defaultTitle
	}
	id, err := ShareID(g)
	if err != nil {
		return "", fmt.Errorf("share id: %w", err)
	}

	b, err := json.Marshal(Share{ID: id, Title: title, Graph: g, CreatedAt: s.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.kv.Put(ctx, sharesBucket, id, b); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Sharing) Get(ctx context.Context, id string) (*Share, error) {
	b, err := s.kv.Get(ctx, sharesBucket, id)
	if err != nil {
		return nil, err
	}
	var sh Share
	if err := json.Unmarshal(b, &sh); err != nil {
		return nil, fmt.Errorf("decode share %s: %w", id, err)
	}
	return &sh, nil
}

// List summarises every share, oldest first.
func (s *Sharing) List(ctx context.Context) ([]ShareSummary, error) {
	entries, err := s.kv.List(ctx, sharesBucket)
	if err != nil {
		return nil, err
	}
	out := make([]ShareSummary, 0, len(entries))
	for _, e := range entries {
		var sh Share
		if err := json.Unmarshal(e.Value, &sh); err != nil {
			return nil, fmt.Errorf("decode share %s: %w", e.Key, err)
		}
		n := 0
		if sh.Graph != nil {
			n = len(sh.Graph.Nodes)
		}
		out = append(out, ShareSummary{ID: sh.ID, Title: sh.Title, NodeCount: n, CreatedAt: sh.CreatedAt})
	}
	sortByTime(out, func(s ShareSummary) time.Time { return s.CreatedAt })
	return out, nil
}
