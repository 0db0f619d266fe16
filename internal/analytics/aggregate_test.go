package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/ingest"
)

func tsPtr(value string) *time.Time {
	ts, err := time.Parse(ingest.TimestampLayout, value)
	if err != nil {
		panic(err)
	}
	return &ts
}

func intPtr(v int) *int { return &v }

func record(id, created, action, registration, staff, actionType string) ingest.Record {
	r := ingest.Record{
		ID:              id,
		CreatedAt:       tsPtr(created),
		ActionAt:        tsPtr(action),
		RegistrationRaw: registration,
		Staff:           staff,
		Action:          actionType,
	}
	days := int(r.ActionAt.Sub(*r.CreatedAt).Hours()) / 24
	hours := int(r.ActionAt.Sub(*r.CreatedAt).Hours())
	r.DurationDays = intPtr(days)
	r.DurationHours = intPtr(hours)
	return r
}

func TestAggregate_EmptyInput(t *testing.T) {
	result := Aggregate(nil)

	assert.NotNil(t, result.MonthlySeries)
	assert.Empty(t, result.MonthlySeries)
	assert.NotNil(t, result.DurationHistogram)
	assert.Empty(t, result.DurationHistogram)
	assert.NotNil(t, result.StaffDurationAverages)
	assert.NotNil(t, result.StaffActionCounts)
	assert.NotNil(t, result.ActionTypeCounts)
	assert.NotNil(t, result.DurationStats.Sorted)
	assert.Zero(t, result.RegistrationToActionStats.Count)
}

func TestAggregate_MonthlySeriesChronological(t *testing.T) {
	records := []ingest.Record{
		record("C-1", "2024.03.01 09:00:00", "2024.03.02 09:00:00", "", "Alice", "resolve"),
		record("C-2", "2024.01.15 09:00:00", "2024.01.16 09:00:00", "", "Alice", "resolve"),
		record("C-3", "2024.03.20 09:00:00", "2024.03.21 09:00:00", "", "Bob", "resolve"),
		record("C-4", "2023.12.31 09:00:00", "2024.01.01 09:00:00", "", "Bob", "resolve"),
	}

	result := Aggregate(records)

	assert.Equal(t, []MonthCount{
		{Month: "2023-12", Count: 1},
		{Month: "2024-01", Count: 1},
		{Month: "2024-03", Count: 2},
	}, result.MonthlySeries)
}

func TestAggregate_DurationStats(t *testing.T) {
	records := []ingest.Record{
		record("C-1", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "", ""), // 1 day
		record("C-2", "2024.01.01 00:00:00", "2024.01.06 00:00:00", "", "", ""), // 5 days
		record("C-3", "2024.01.01 00:00:00", "2024.01.04 00:00:00", "", "", ""), // 3 days
		record("C-4", "2024.01.01 00:00:00", "2024.01.10 00:00:00", "", "", ""), // 9 days
	}

	stats := Aggregate(records).DurationStats

	assert.Equal(t, []int{1, 3, 5, 9}, stats.Sorted)
	assert.Equal(t, 1, stats.Min)
	assert.Equal(t, 9, stats.Max)
	assert.InDelta(t, 4.5, stats.Average, 1e-9)
	assert.InDelta(t, 4.0, stats.Median, 1e-9) // even count averages the middle pair
}

func TestAggregate_StaffDurationAveragesDescending(t *testing.T) {
	records := []ingest.Record{
		record("C-1", "2024.01.01 00:00:00", "2024.01.03 00:00:00", "", "Alice", "resolve"), // 2
		record("C-2", "2024.01.01 00:00:00", "2024.01.09 00:00:00", "", "Bob", "resolve"),   // 8
		record("C-3", "2024.01.01 00:00:00", "2024.01.05 00:00:00", "", "Alice", "resolve"), // 4
	}

	averages := Aggregate(records).StaffDurationAverages

	require.Len(t, averages, 2)
	assert.Equal(t, StaffAverage{Staff: "Bob", AverageDays: 8, Cases: 1}, averages[0])
	assert.Equal(t, StaffAverage{Staff: "Alice", AverageDays: 3, Cases: 2}, averages[1])
}

func TestAggregate_TiesKeepFirstSeenOrder(t *testing.T) {
	records := []ingest.Record{
		record("C-1", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "Zoe", "close"),
		record("C-2", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "Amy", "close"),
		record("C-3", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "Zoe", "escalate"),
		record("C-4", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "Amy", "escalate"),
	}

	result := Aggregate(records)

	// Equal counts: Zoe appeared first, so Zoe stays first. Same for actions.
	assert.Equal(t, []StaffCount{
		{Staff: "Zoe", Count: 2},
		{Staff: "Amy", Count: 2},
	}, result.StaffActionCounts)
	assert.Equal(t, []ActionCount{
		{Action: "close", Count: 2},
		{Action: "escalate", Count: 2},
	}, result.ActionTypeCounts)
}

func TestAggregate_BlankGroupKeysExcluded(t *testing.T) {
	records := []ingest.Record{
		record("C-1", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "", ""),
		record("C-2", "2024.01.01 00:00:00", "2024.01.02 00:00:00", "", "Alice", "resolve"),
	}

	result := Aggregate(records)

	assert.Len(t, result.StaffActionCounts, 1)
	assert.Len(t, result.StaffDurationAverages, 1)
	assert.Len(t, result.ActionTypeCounts, 1)
}

func TestAggregate_RegistrationToActionStats(t *testing.T) {
	records := []ingest.Record{
		record("C-1", "2024.01.05 00:00:00", "2024.01.10 00:00:00", "2024.01.01 00:00:00", "", ""), // 9 days
		record("C-2", "2024.01.05 00:00:00", "2024.01.08 00:00:00", "2024.01.05 00:00:00", "", ""), // 3 days
		record("C-3", "2024.01.05 00:00:00", "2024.01.08 00:00:00", "", "", ""),                    // no registration
		record("C-4", "2024.01.05 00:00:00", "2024.01.06 00:00:00", "garbage", "", ""),             // unparseable
		record("C-5", "2024.01.05 00:00:00", "2024.01.06 00:00:00", "2024.02.01 00:00:00", "", ""), // negative span
	}

	stats := Aggregate(records).RegistrationToActionStats

	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 6.0, stats.Average, 1e-9)
	assert.InDelta(t, 6.0, stats.Median, 1e-9)
}

func TestAggregate_RegistrationToActionExcludesSubDayNegativeSpan(t *testing.T) {
	// Registration 12 hours after the action: truncating the span to whole
	// days would round it to 0 and sneak it in.
	records := []ingest.Record{
		record("C-1", "2024.01.04 00:00:00", "2024.01.05 00:00:00", "2024.01.05 12:00:00", "", ""),
	}

	stats := Aggregate(records).RegistrationToActionStats

	assert.Zero(t, stats.Count)
	assert.Zero(t, stats.Average)
	assert.Zero(t, stats.Median)
}

func TestMedianSorted(t *testing.T) {
	assert.Equal(t, 2.0, medianSorted([]int{1, 2, 3}))
	assert.Equal(t, 2.5, medianSorted([]int{1, 2, 3, 4}))
	assert.Equal(t, 7.0, medianSorted([]int{7}))
	assert.Equal(t, 0.0, medianSorted(nil))
}

func TestAggregate_RecordsWithoutDurationStillCountElsewhere(t *testing.T) {
	noDuration := ingest.Record{
		ID:        "C-1",
		CreatedAt: tsPtr("2024.01.01 00:00:00"),
		ActionAt:  tsPtr("2023.12.01 00:00:00"),
		Staff:     "Alice",
		Action:    "reopen",
	}

	result := Aggregate([]ingest.Record{noDuration})

	assert.Empty(t, result.DurationStats.Sorted)
	assert.Empty(t, result.StaffDurationAverages)
	assert.Equal(t, []StaffCount{{Staff: "Alice", Count: 1}}, result.StaffActionCounts)
	assert.Equal(t, []ActionCount{{Action: "reopen", Count: 1}}, result.ActionTypeCounts)
	assert.Len(t, result.MonthlySeries, 1)
}
