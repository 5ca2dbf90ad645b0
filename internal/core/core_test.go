package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestSafeRunPassesThrough(t *testing.T) {
	out, err := SafeRun(context.Background(), "ok", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out)

	boom := errors.New("boom")
	_, err = SafeRun(context.Background(), "fails", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSafeRunRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	out, err := SafeRun(ctx, "cdk", func(context.Context) ([]string, error) {
		panic("template exploded")
	})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "cdk panicked: template exploded")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cdk", entries[0].ContextMap()["step"])
}

func TestLoggerFromFallsBackToNop(t *testing.T) {
	assert.NotNil(t, LoggerFrom(context.Background()))
	l := zaptest.NewLogger(t)
	assert.Same(t, l, LoggerFrom(WithLogger(context.Background(), l)))
}

func TestSaveFindings(t *testing.T) {
	dir := t.TempDir()
	findings := []Finding{
		{Source: "S3", Level: "medium", Description: "S3 bucket without encryption", Reference: "bucket-1"},
		{Source: "Lambda", Level: "info", Advice: "Enable X-Ray tracing"},
	}

	paths, err := SaveFindings(findings, "both", dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var decoded []Finding
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, findings, decoded)

	csvRaw, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvRaw)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(paths[1], ".csv"))
	assert.Equal(t, dir, filepath.Dir(paths[1]))
}

func TestCountLevels(t *testing.T) {
	counts := CountLevels([]Finding{{Level: "high"}, {Level: "high"}, {Level: "info"}})
	assert.Equal(t, map[string]int{"high": 2, "info": 1}, counts)
}
