package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfowler-cloud/scaffold-ai/internal/security"
)

const historyBucket = "history"

// Trend values reported by Improvement.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

type Point struct {
	ID            string    `json:"id"`
	Score         int       `json:"score"`
	Timestamp     time.Time `json:"timestamp"`
	CriticalCount int       `json:"criticalCount"`
	HighCount     int       `json:"highCount"`
	MediumCount   int       `json:"mediumCount"`
}

type Improvement struct {
	Improvement int    `json:"improvement"`
	FirstScore  int    `json:"firstScore,omitempty"`
	LatestScore int    `json:"latestScore,omitempty"`
	Trend       string `json:"trend"`
	DataPoints  int    `json:"dataPoints"`
}

// History tracks security scores per architecture over time.
type History struct {
	kv  KV
	now func() time.Time
	mu  sync.Mutex
}

func NewHistory(kv KV) *History {
	return &History{kv: kv, now: time.Now}
}

func (h *History) Record(ctx context.Context, archID string, score int, issues []security.Issue) (Point, error) {
	p := Point{ID: uuid.NewString(), Score: score, Timestamp: h.now().UTC()}
	for _, is := range issues {
		switch is.Severity {
		case security.SeverityCritical:
			p.CriticalCount++
		case security.SeverityHigh:
			p.HighCount++
		case security.SeverityMedium:
			p.MediumCount++
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	points, err := h.History(ctx, archID)
	if err != nil {
		return Point{}, err
	}
	b, err := json.Marshal(append(points, p))
	if err != nil {
		return Point{}, err
	}
	if err := h.kv.Put(ctx, historyBucket, archID, b); err != nil {
		return Point{}, err
	}
	return p, nil
}

// History returns the recorded points for archID, oldest first. An unknown
// architecture has an empty history.
func (h *History) History(ctx context.Context, archID string) ([]Point, error) {
	b, err := h.kv.Get(ctx, historyBucket, archID)
	if errors.Is(err, ErrNotFound) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	var points []Point
	if err := json.Unmarshal(b, &points); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", archID, err)
	}
	return points, nil
}

func (h *History) Improvement(ctx context.Context, archID string) (Improvement, error) {
	points, err := h.History(ctx, archID)
	if err != nil {
		return Improvement{}, err
	}
	if len(points) < 2 {
		return Improvement{Trend: TrendInsufficientData, DataPoints: len(points)}, nil
	}

	first, latest := points[0].Score, points[len(points)-1].Score
	imp := Improvement{
		Improvement: latest - first,
		FirstScore:  first,
		LatestScore: latest,
		Trend:       TrendStable,
		DataPoints:  len(points),
	}
	switch {
	case imp.Improvement > 0:
		imp.Trend = TrendImproving
	case imp.Improvement < 0:
		imp.Trend = TrendDeclining
	}
	return imp, nil
}

func sortByTime[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return at(items[i]).Before(at(items[j])) })
}
