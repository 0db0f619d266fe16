package analytics

// MonthCount is one point of the monthly created-cases series. Month is a
// YYYY-MM key, so lexical order is chronological order.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DurationStats summarizes the created-to-action durations in days. Sorted is
// the ascending sequence the stats were computed from, kept for chart
// rendering.
type DurationStats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Sorted  []int   `json:"sorted"`
}

// Bucket is one histogram bar.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StaffAverage ranks a staff member by mean handling duration.
type StaffAverage struct {
	Staff       string  `json:"staff"`
	AverageDays float64 `json:"average_days"`
	Cases       int     `json:"cases"`
}

// StaffCount ranks a staff member by handled-case count.
type StaffCount struct {
	Staff string `json:"staff"`
	Count int    `json:"count"`
}

// ActionCount ranks an action label by occurrence.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// DiffStats summarizes the registration-to-action day differences.
type DiffStats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Count   int     `json:"count"`
}

// Result is the full set of derived views for one dataset. Every view is a
// pure function of the input records; the rendering layer treats all of it as
// read-only.
type Result struct {
	MonthlySeries             []MonthCount   `json:"monthly_series"`
	DurationStats             DurationStats  `json:"duration_stats"`
	DurationHistogram         []Bucket       `json:"duration_histogram"`
	StaffDurationAverages     []StaffAverage `json:"staff_duration_averages"`
	StaffActionCounts         []StaffCount   `json:"staff_action_counts"`
	ActionTypeCounts          []ActionCount  `json:"action_type_counts"`
	RegistrationToActionStats DiffStats      `json:"registration_to_action_stats"`
}

// EmptyResult returns the documented zero form: empty slices, zero stats.
func EmptyResult() Result {
	return Result{
		MonthlySeries:         []MonthCount{},
		DurationStats:         DurationStats{Sorted: []int{}},
		DurationHistogram:     []Bucket{},
		StaffDurationAverages: []StaffAverage{},
		StaffActionCounts:     []StaffCount{},
		ActionTypeCounts:      []ActionCount{},
	}
}
