package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/config"
	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
)

func TestResolveViews(t *testing.T) {
	all, err := resolveViews("all")
	require.NoError(t, err)
	assert.Equal(t, exporter.ViewNames(), all)

	subset, err := resolveViews("monthly_series, staff_action_counts")
	require.NoError(t, err)
	assert.Equal(t, []string{"monthly_series", "staff_action_counts"}, subset)

	_, err = resolveViews("bogus")
	assert.Error(t, err)

	_, err = resolveViews(",")
	assert.Error(t, err)
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.xlsx", "notes.md", "c.TXT"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := collectInputs(nil, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.xlsx"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.TXT"),
	}, files)

	explicit, err := collectInputs([]string{"given.csv"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"given.csv"}, explicit)
}

func TestProcessFile(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	payload := "ID;CREATED_DATE;ACTION_DATE;REGISTRATION_DATE;STAFF;ACTION;REFERENCE\n" +
		"C-1;2024.01.10 09:00:00;2024.01.12 09:00:00;;Alice;resolve;\n"
	input := filepath.Join(inDir, "cases.csv")
	require.NoError(t, os.WriteFile(input, []byte(payload), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := processFile(context.Background(), input, outDir, "", exporter.ViewNames(), config.Default(), infrastructure.NewMetrics(), logger)
	require.NoError(t, err)

	for _, view := range exporter.ViewNames() {
		assert.FileExists(t, filepath.Join(outDir, "cases", view+".csv"))
	}
	assert.FileExists(t, filepath.Join(outDir, "cases", "summary.json"))
}
