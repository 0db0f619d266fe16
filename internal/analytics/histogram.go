package analytics

import "fmt"

// bucketWidth picks the histogram bin width from the largest observed duration
// so the chart stays readable at any data scale.
func bucketWidth(maxDays int) (width int, unit string) {
	switch {
	case maxDays <= 14:
		return 1, "day"
	case maxDays <= 60:
		return 7, "week"
	case maxDays <= 365:
		return 30, "month"
	default:
		return 90, "quarter"
	}
}

// durationHistogram builds contiguous zero-filled buckets over sorted ascending
// durations. Datasets with near-zero spread collapse to a single "0-1 day(s)"
// bucket so the chart never renders a degenerate axis.
func durationHistogram(sorted []int) []Bucket {
	if len(sorted) == 0 {
		return []Bucket{}
	}

	maxDays := sorted[len(sorted)-1]
	width, unit := bucketWidth(maxDays)

	bucketCount := maxDays/width + 1
	counts := make([]int, bucketCount)
	for _, d := range sorted {
		counts[d/width]++
	}

	buckets := make([]Bucket, bucketCount)
	for i, c := range counts {
		buckets[i] = Bucket{Label: bucketLabel(i, width, unit), Count: c}
	}

	switch maxDays {
	case 0:
		buckets[0].Label = "0-1 day(s)"
	case 1:
		// Two one-day bins carry too little spread to chart separately.
		buckets = []Bucket{{Label: "0-1 day(s)", Count: buckets[0].Count + buckets[1].Count}}
	}

	return buckets
}

func bucketLabel(index, width int, unit string) string {
	if width == 1 {
		return fmt.Sprintf("%d day(s)", index)
	}
	lo := index * width
	hi := lo + width - 1
	return fmt.Sprintf("%s %d (%d-%d days)", unit, index+1, lo, hi)
}
