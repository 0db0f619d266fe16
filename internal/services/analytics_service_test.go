package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
	"casepulse/internal/ingest"
	"casepulse/internal/session"
)

const samplePayload = "ID;CREATED_DATE;ACTION_DATE;REGISTRATION_DATE;STAFF;ACTION;REFERENCE\n" +
	"C-1;2024.01.10 09:00:00;2024.01.12 09:00:00;2024.01.08 09:00:00;Alice;resolve;R-1\n" +
	"C-2;2024.02.01 09:00:00;2024.02.03 09:00:00;;Bob;escalate;\n"

func newTestService() *AnalyticsService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAnalyticsService(session.New(), nil, infrastructure.NewMetrics(), ';', logger)
}

func TestLoad_HappyPath(t *testing.T) {
	svc := newTestService()

	snap, err := svc.Load(context.Background(), strings.NewReader(samplePayload), UploadOptions{Filename: "cases.csv"})
	require.NoError(t, err)

	assert.Equal(t, session.PhaseReady, snap.Phase)
	assert.Equal(t, "cases.csv", snap.Source)
	assert.Equal(t, ingest.Stats{RawRows: 2, Rows: 2, Dropped: 0}, snap.Stats)
	require.NotNil(t, snap.Result)
	assert.Len(t, snap.Result.MonthlySeries, 2)
}

func TestLoad_FailureLandsInErrorPhase(t *testing.T) {
	svc := newTestService()

	_, err := svc.Load(context.Background(), strings.NewReader("junk\x00junk"), UploadOptions{Filename: "cases.csv"})
	require.Error(t, err)
	assert.True(t, ingest.IsKind(err, ingest.KindWrongType))

	snap := svc.State(context.Background())
	assert.Equal(t, session.PhaseError, snap.Phase)
	assert.NotEmpty(t, snap.Error)

	_, err = svc.Summary(context.Background())
	assert.ErrorIs(t, err, ErrNoDataLoaded)
}

func TestLoad_ValidatesOptions(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name string
		opts UploadOptions
	}{
		{"bad format", UploadOptions{Format: "parquet"}},
		{"multi-char delimiter", UploadOptions{Delimiter: ";;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Load(context.Background(), strings.NewReader(samplePayload), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid upload options")
			// A validation failure never starts a load.
			assert.Equal(t, session.PhaseIdle, svc.State(context.Background()).Phase)
		})
	}
}

func TestLoad_UnknownExtensionRejected(t *testing.T) {
	svc := newTestService()

	_, err := svc.Load(context.Background(), strings.NewReader(samplePayload), UploadOptions{Filename: "cases.pdf"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestResolveFormat(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		opts UploadOptions
		want string
	}{
		{UploadOptions{Format: "xlsx", Filename: "whatever.csv"}, FormatXLSX},
		{UploadOptions{Filename: "export.xlsx"}, FormatXLSX},
		{UploadOptions{Filename: "export.XLSM"}, FormatXLSX},
		{UploadOptions{Filename: "export.csv"}, FormatCSV},
		{UploadOptions{Filename: "export.txt"}, FormatCSV},
		{UploadOptions{}, FormatCSV},
	}

	for _, tt := range tests {
		got, err := svc.resolveFormat(tt.opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt.opts)
	}
}

func TestLoad_CustomDelimiter(t *testing.T) {
	svc := newTestService()
	payload := "ID,CREATED_DATE,ACTION_DATE,REGISTRATION_DATE,STAFF,ACTION,REFERENCE\n" +
		"C-1,2024.01.10 09:00:00,2024.01.11 09:00:00,,Alice,resolve,\n"

	snap, err := svc.Load(context.Background(), strings.NewReader(payload), UploadOptions{
		Filename:  "cases.csv",
		Delimiter: ",",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.Rows)
}

func TestSummaryAndClear(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	assert.ErrorIs(t, err, ErrNoDataLoaded)

	_, err = svc.Load(ctx, strings.NewReader(samplePayload), UploadOptions{Filename: "cases.csv"})
	require.NoError(t, err)

	result, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, result.StaffActionCounts)

	snap := svc.Clear(ctx)
	assert.Equal(t, session.PhaseIdle, snap.Phase)

	_, err = svc.Summary(ctx)
	assert.ErrorIs(t, err, ErrNoDataLoaded)
}

func TestLoad_ClearAndReloadIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Load(ctx, strings.NewReader(samplePayload), UploadOptions{Filename: "cases.csv"})
	require.NoError(t, err)
	first, err := svc.Summary(ctx)
	require.NoError(t, err)

	svc.Clear(ctx)

	_, err = svc.Load(ctx, strings.NewReader(samplePayload), UploadOptions{Filename: "cases.csv"})
	require.NoError(t, err)
	second, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExportView(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	var buf bytes.Buffer
	err := svc.ExportView(ctx, &buf, exporter.ViewStaffCounts)
	assert.ErrorIs(t, err, ErrNoDataLoaded)

	_, err = svc.Load(ctx, strings.NewReader(samplePayload), UploadOptions{Filename: "cases.csv"})
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, svc.ExportView(ctx, &buf, exporter.ViewStaffCounts))
	assert.Contains(t, buf.String(), "staff,count")
	assert.Contains(t, buf.String(), "Alice,1")

	err = svc.ExportView(ctx, &buf, "bogus")
	assert.ErrorIs(t, err, exporter.ErrUnknownView)
}

func TestLoad_RejectsOverlap(t *testing.T) {
	svc := newTestService()

	// Force a loading phase directly: the reader below never gets consumed.
	require.NoError(t, svc.session.BeginLoad("first.csv"))

	_, err := svc.Load(context.Background(), strings.NewReader(samplePayload), UploadOptions{Filename: "second.csv"})
	assert.ErrorIs(t, err, session.ErrLoadInProgress)
}
