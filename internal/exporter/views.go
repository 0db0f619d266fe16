package exporter

import (
	"errors"
	"strconv"

	"casepulse/internal/analytics"
)

// ErrUnknownView is returned when the requested export view does not exist.
var ErrUnknownView = errors.New("unknown export view")

// View names accepted by ViewTable.
const (
	ViewMonthlySeries        = "monthly_series"
	ViewDurationStats        = "duration_stats"
	ViewDurationHistogram    = "duration_histogram"
	ViewStaffAverages        = "staff_duration_averages"
	ViewStaffCounts          = "staff_action_counts"
	ViewActionCounts         = "action_type_counts"
	ViewRegistrationToAction = "registration_to_action_stats"
)

// ViewNames lists the exportable views in a stable order.
func ViewNames() []string {
	return []string{
		ViewMonthlySeries,
		ViewDurationStats,
		ViewDurationHistogram,
		ViewStaffAverages,
		ViewStaffCounts,
		ViewActionCounts,
		ViewRegistrationToAction,
	}
}

// ViewTable flattens one aggregation view into CSV headers and rows.
func ViewTable(result analytics.Result, view string) ([]string, [][]string, error) {
	switch view {
	case ViewMonthlySeries:
		rows := make([][]string, 0, len(result.MonthlySeries))
		for _, m := range result.MonthlySeries {
			rows = append(rows, []string{m.Month, strconv.Itoa(m.Count)})
		}
		return []string{"month", "count"}, rows, nil

	case ViewDurationStats:
		s := result.DurationStats
		rows := [][]string{{
			formatFloat(s.Average),
			formatFloat(s.Median),
			strconv.Itoa(s.Min),
			strconv.Itoa(s.Max),
			strconv.Itoa(len(s.Sorted)),
		}}
		return []string{"average_days", "median_days", "min_days", "max_days", "samples"}, rows, nil

	case ViewDurationHistogram:
		rows := make([][]string, 0, len(result.DurationHistogram))
		for _, b := range result.DurationHistogram {
			rows = append(rows, []string{b.Label, strconv.Itoa(b.Count)})
		}
		return []string{"bucket", "count"}, rows, nil

	case ViewStaffAverages:
		rows := make([][]string, 0, len(result.StaffDurationAverages))
		for _, s := range result.StaffDurationAverages {
			rows = append(rows, []string{s.Staff, formatFloat(s.AverageDays), strconv.Itoa(s.Cases)})
		}
		return []string{"staff", "average_days", "cases"}, rows, nil

	case ViewStaffCounts:
		rows := make([][]string, 0, len(result.StaffActionCounts))
		for _, s := range result.StaffActionCounts {
			rows = append(rows, []string{s.Staff, strconv.Itoa(s.Count)})
		}
		return []string{"staff", "count"}, rows, nil

	case ViewActionCounts:
		rows := make([][]string, 0, len(result.ActionTypeCounts))
		for _, a := range result.ActionTypeCounts {
			rows = append(rows, []string{a.Action, strconv.Itoa(a.Count)})
		}
		return []string{"action", "count"}, rows, nil

	case ViewRegistrationToAction:
		s := result.RegistrationToActionStats
		rows := [][]string{{
			formatFloat(s.Average),
			formatFloat(s.Median),
			strconv.Itoa(s.Count),
		}}
		return []string{"average_days", "median_days", "samples"}, rows, nil

	default:
		return nil, nil, ErrUnknownView
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
