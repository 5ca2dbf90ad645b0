package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "scaffold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]KV{"memory": NewMemory(), "sqlite": db}
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "b", "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Put(ctx, "b", "z", []byte("1")))
			require.NoError(t, kv.Put(ctx, "b", "a", []byte("2")))
			require.NoError(t, kv.Put(ctx, "b", "z", []byte("3")))
			require.NoError(t, kv.Put(ctx, "other", "a", []byte("x")))

			v, err := kv.Get(ctx, "b", "z")
			require.NoError(t, err)
			assert.Equal(t, "3", string(v))

			entries, err := kv.List(ctx, "b")
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "a", entries[0].Key)
			assert.Equal(t, "z", entries[1].Key)

			empty, err := kv.List(ctx, "nothing")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaffold.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Put(context.Background(), "b", "k", []byte("v")))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get(context.Background(), "b", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func sampleGraph() *graph.Graph {
	g := graph.New()
	g.AddNode(graph.Node{ID: "api-1", Type: graph.TypeAPI, Label: "API"})
	g.AddNode(graph.Node{ID: "fn-1", Type: graph.TypeLambda, Label: "Handler"})
	g.AddEdge("api-1", "fn-1", "")
	return g
}

func TestSharing(t *testing.T) {
	ctx := context.Background()
	s := NewSharing(NewMemory())
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return clock }

	id, err := s.Create(ctx, sampleGraph(), "")
	require.NoError(t, err)
	assert.Len(t, id, 12)

	again, err := s.Create(ctx, sampleGraph(), "Same graph")
	require.NoError(t, err)
	assert.Equal(t, id, again, "id derives from content")

	sh, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Same graph", sh.Title)
	assert.Equal(t, sampleGraph(), sh.Graph)
	assert.Equal(t, clock, sh.CreatedAt)

	clock = clock.Add(time.Hour)
	other, err := s.Create(ctx, graph.New(), "")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 2, list[0].NodeCount)
	assert.Equal(t, defaultTitle, list[1].Title)
	assert.Equal(t, 0, list[1].NodeCount)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := NewHistory(kv)

			imp, err := h.Improvement(ctx, "arch1")
			require.NoError(t, err)
			assert.Equal(t, TrendInsufficientData, imp.Trend)

			issues := []security.Issue{
				{Service: "API Gateway", Severity: security.SeverityHigh},
				{Service: "S3", Severity: security.SeverityMedium},
				{Service: "SQS", Severity: security.SeverityMedium},
			}
			p, err := h.Record(ctx, "arch1", 75, issues)
			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, 1, p.HighCount)
			assert.Equal(t, 2, p.MediumCount)

			points, err := h.History(ctx, "arch1")
			require.NoError(t, err)
			require.Len(t, points, 1)
			assert.Equal(t, 75, points[0].Score)

			imp, err = h.Improvement(ctx, "arch1")
			require.NoError(t, err)
			assert.Equal(t, TrendInsufficientData, imp.Trend)
			assert.Equal(t, 1, imp.DataPoints)

			_, err = h.Record(ctx, "arch1", 90, nil)
			require.NoError(t, err)
			imp, err = h.Improvement(ctx, "arch1")
			require.NoError(t, err)
			assert.Equal(t, Improvement{Improvement: 15, FirstScore: 75, LatestScore: 90, Trend: TrendImproving, DataPoints: 2}, imp)

			_, err = h.Record(ctx, "arch1", 40, nil)
			require.NoError(t, err)
			imp, _ = h.Improvement(ctx, "arch1")
			assert.Equal(t, TrendDeclining, imp.Trend)

			_, err = h.Record(ctx, "arch1", 75, nil)
			require.NoError(t, err)
			imp, _ = h.Improvement(ctx, "arch1")
			assert.Equal(t, TrendStable, imp.Trend)

			none, err := h.History(ctx, "unknown")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}
