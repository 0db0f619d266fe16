// Package analytics derives the dashboard views from normalized case records.
// Aggregate is a total function: it never fails, and an empty input yields the
// empty Result rather than nils.
package analytics

import (
	"sort"

	"casepulse/internal/ingest"
)

// Aggregate computes every derived view in one pass over the records. Ordering
// is deterministic: grouped views sort by metric descending, ties broken by
// first appearance in the input.
func Aggregate(records []ingest.Record) Result {
	if len(records) == 0 {
		return EmptyResult()
	}

	result := EmptyResult()
	result.MonthlySeries = monthlySeries(records)

	sorted := sortedDurations(records)
	result.DurationStats = durationStats(sorted)
	result.DurationHistogram = durationHistogram(sorted)

	result.StaffDurationAverages = staffDurationAverages(records)
	result.StaffActionCounts = staffActionCounts(records)
	result.ActionTypeCounts = actionTypeCounts(records)
	result.RegistrationToActionStats = registrationToActionStats(records)

	return result
}

// monthlySeries counts cases per creation month, keyed YYYY-MM and sorted
// chronologically. Months with no cases are absent, not zero.
func monthlySeries(records []ingest.Record) []MonthCount {
	counts := make(map[string]int)
	for _, r := range records {
		if r.CreatedAt == nil {
			continue
		}
		counts[r.CreatedAt.Format("2006-01")]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	series := make([]MonthCount, 0, len(months))
	for _, m := range months {
		series = append(series, MonthCount{Month: m, Count: counts[m]})
	}
	return series
}

// sortedDurations collects the day durations of records that have one, sorted
// ascending.
func sortedDurations(records []ingest.Record) []int {
	durations := make([]int, 0, len(records))
	for _, r := range records {
		if r.HasDuration() {
			durations = append(durations, r.DurationDaysValue())
		}
	}
	sort.Ints(durations)
	return durations
}

func durationStats(sorted []int) DurationStats {
	if len(sorted) == 0 {
		return DurationStats{Sorted: []int{}}
	}
	return DurationStats{
		Average: meanInts(sorted),
		Median:  medianSorted(sorted),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Sorted:  sorted,
	}
}

// staffDurationAverages ranks staff by mean handling duration, descending.
// Only records with a derived duration and a non-empty staff name contribute.
func staffDurationAverages(records []ingest.Record) []StaffAverage {
	type acc struct {
		total int
		count int
	}
	groups := make(map[string]*acc)
	var order []string

	for _, r := range records {
		if r.Staff == "" || !r.HasDuration() {
			continue
		}
		g, ok := groups[r.Staff]
		if !ok {
			g = &acc{}
			groups[r.Staff] = g
			order = append(order, r.Staff)
		}
		g.total += r.DurationDaysValue()
		g.count++
	}

	averages := make([]StaffAverage, 0, len(order))
	for _, staff := range order {
		g := groups[staff]
		averages = append(averages, StaffAverage{
			Staff:       staff,
			AverageDays: float64(g.total) / float64(g.count),
			Cases:       g.count,
		})
	}

	sort.SliceStable(averages, func(i, j int) bool {
		return averages[i].AverageDays > averages[j].AverageDays
	})
	return averages
}

// staffActionCounts ranks staff by handled-case count, descending.
func staffActionCounts(records []ingest.Record) []StaffCount {
	counts := make(map[string]int)
	var order []string

	for _, r := range records {
		if r.Staff == "" {
			continue
		}
		if _, ok := counts[r.Staff]; !ok {
			order = append(order, r.Staff)
		}
		counts[r.Staff]++
	}

	ranked := make([]StaffCount, 0, len(order))
	for _, staff := range order {
		ranked = append(ranked, StaffCount{Staff: staff, Count: counts[staff]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// actionTypeCounts ranks action labels by occurrence, descending.
func actionTypeCounts(records []ingest.Record) []ActionCount {
	counts := make(map[string]int)
	var order []string

	for _, r := range records {
		if r.Action == "" {
			continue
		}
		if _, ok := counts[r.Action]; !ok {
			order = append(order, r.Action)
		}
		counts[r.Action]++
	}

	ranked := make([]ActionCount, 0, len(order))
	for _, action := range order {
		ranked = append(ranked, ActionCount{Action: action, Count: counts[action]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// registrationToActionStats summarizes the day spans between registration and
// action. The registration timestamp is re-parsed from its raw form here, so a
// record dropped from no view above can still contribute when both dates
// parse. Negative spans (action before registration) are excluded.
func registrationToActionStats(records []ingest.Record) DiffStats {
	var diffs []int
	for _, r := range records {
		if r.ActionAt == nil {
			continue
		}
		reg, ok := ingest.ParseTimestamp(r.RegistrationRaw)
		if !ok {
			continue
		}
		// Truncation toward zero would let a sub-day negative span through
		// as 0, so compare the timestamps directly.
		if r.ActionAt.Before(reg) {
			continue
		}
		diffs = append(diffs, int(r.ActionAt.Sub(reg).Hours()/24))
	}

	if len(diffs) == 0 {
		return DiffStats{}
	}

	sort.Ints(diffs)
	return DiffStats{
		Average: meanInts(diffs),
		Median:  medianSorted(diffs),
		Count:   len(diffs),
	}
}

func meanInts(values []int) float64 {
	total := 0
	for _, v := range values {
		total += v
	}
	return float64(total) / float64(len(values))
}

// medianSorted returns the median of an ascending slice; even lengths average
// the middle pair.
func medianSorted(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
