package ingest

import (
	"strings"
	"time"
)

// TimestampLayout is the exact layout case exports use for every date column.
// Some exports append a comma-delimited suffix (e.g. ",UTC+3"); it is stripped
// before parsing.
const TimestampLayout = "2006.01.02 15:04:05"

// Record is a normalized case row. Optional fields are nil/empty when the
// source value was missing or unparseable; accessors never panic.
type Record struct {
	ID string `json:"id"`

	CreatedAt    *time.Time `json:"created_at,omitempty"`
	ActionAt     *time.Time `json:"action_at,omitempty"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`

	// RegistrationRaw keeps the unparsed REGISTRATION_DATE value so the
	// aggregation layer can re-parse it independently of the retention filter.
	RegistrationRaw string `json:"registration_raw,omitempty"`

	// DurationDays/DurationHours are set only when CreatedAt and ActionAt are
	// both valid and ActionAt >= CreatedAt.
	DurationDays  *int `json:"duration_days,omitempty"`
	DurationHours *int `json:"duration_hours,omitempty"`

	Staff     string `json:"staff,omitempty"`
	Action    string `json:"action,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// HasDuration reports whether the created-to-action duration could be derived.
func (r Record) HasDuration() bool {
	return r.DurationDays != nil
}

// DurationDaysValue returns the duration in days, or -1 when absent.
func (r Record) DurationDaysValue() int {
	if r.DurationDays == nil {
		return -1
	}
	return *r.DurationDays
}

// ParseTimestamp parses a case-export timestamp. Anything after the first
// comma is dropped first. The boolean is false for empty or malformed input.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if idx := strings.Index(value, ","); idx >= 0 {
		value = value[:idx]
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	ts, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// parseTimestampPtr is ParseTimestamp with pointer semantics for Record fields.
func parseTimestampPtr(value string) *time.Time {
	ts, ok := ParseTimestamp(value)
	if !ok {
		return nil
	}
	return &ts
}

// deriveDuration computes the day and hour spans between createdAt and
// actionAt. Both pointers are nil unless both timestamps are present and
// actionAt is not before createdAt.
func deriveDuration(createdAt, actionAt *time.Time) (days, hours *int) {
	if createdAt == nil || actionAt == nil {
		return nil, nil
	}
	if actionAt.Before(*createdAt) {
		return nil, nil
	}

	span := actionAt.Sub(*createdAt)
	h := int(span.Hours())
	d := h / 24
	return &d, &h
}
