// Package ingest turns raw case-export payloads (CSV or XLSX) into normalized
// case records ready for aggregation.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter is the field separator case exports ship with.
const DefaultDelimiter = ';'

// Options configures one ingestion run.
type Options struct {
	// Delimiter separates fields; zero means DefaultDelimiter.
	Delimiter rune
	// NoHeader treats the first row as data, using the canonical column order
	// ID;CREATED_DATE;ACTION_DATE;REGISTRATION_DATE;STAFF;ACTION;REFERENCE.
	NoHeader bool
}

// DefaultOptions returns the options matching a stock case export.
func DefaultOptions() Options {
	return Options{Delimiter: DefaultDelimiter}
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// Stats describes what one ingestion run saw. Dropped is the number of raw
// rows excluded because ID, CREATED_DATE, or ACTION_DATE was missing or
// unparseable.
type Stats struct {
	RawRows int `json:"raw_rows"`
	Rows    int `json:"rows"`
	Dropped int `json:"dropped"`
}

// Ingest parses a delimited-text payload into normalized records. File-level
// failures return an *Error (wrong type, malformed, empty); row-level date
// problems degrade the field to nil and rows missing required fields are
// dropped silently, visible only through Stats.
func Ingest(r io.Reader, opts Options) ([]Record, Stats, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, wrongTypeError(err)
	}

	// Strip a UTF-8 BOM before validation; Excel-produced CSVs carry one.
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	if !utf8.Valid(content) || bytes.IndexByte(content, 0x00) >= 0 {
		return nil, Stats{}, wrongTypeError(errors.New("payload is not valid text"))
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = opts.delimiter()
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, Stats{}, malformedError(parseErr.Line, parseErr.Column, parseErr.Err)
		}
		return nil, Stats{}, malformedError(0, 0, err)
	}

	return normalizeRows(rows, opts)
}

// columnIndices maps the case-export columns to their positions in the header
// row. -1 means the column is absent.
type columnIndices struct {
	id           int
	createdDate  int
	actionDate   int
	registration int
	staff        int
	action       int
	reference    int
}

func canonicalIndices() columnIndices {
	// Canonical order used when the payload has no header row.
	return columnIndices{
		id:           0,
		createdDate:  1,
		actionDate:   2,
		registration: 3,
		staff:        4,
		action:       5,
		reference:    6,
	}
}

// findColumnIndices locates the known columns in a header row. Matching is
// exact first, then case-insensitive, with BOM and zero-width characters
// stripped from each cell.
func findColumnIndices(header []string) columnIndices {
	indices := columnIndices{
		id:           -1,
		createdDate:  -1,
		actionDate:   -1,
		registration: -1,
		staff:        -1,
		action:       -1,
		reference:    -1,
	}

	for i, col := range header {
		clean := strings.TrimSpace(col)
		clean = strings.TrimPrefix(clean, "\ufeff")
		clean = strings.TrimLeft(clean, "\u200B\u200C\u200D\u2060\uFEFF")
		clean = strings.TrimSpace(clean)

		switch clean {
		case "ID":
			indices.id = i
		case "CREATED_DATE":
			indices.createdDate = i
		case "ACTION_DATE":
			indices.actionDate = i
		case "REGISTRATION_DATE":
			indices.registration = i
		case "STAFF":
			indices.staff = i
		case "ACTION":
			indices.action = i
		case "REFERENCE":
			indices.reference = i
		default:
			switch strings.ToLower(clean) {
			case "id", "case_id":
				indices.id = i
			case "created_date", "created", "created_at":
				indices.createdDate = i
			case "action_date", "action_at", "closed_date":
				indices.actionDate = i
			case "registration_date", "registered", "registered_at":
				indices.registration = i
			case "staff", "handler", "agent":
				indices.staff = i
			case "action", "action_type", "resolution":
				indices.action = i
			case "reference", "ref":
				indices.reference = i
			}
		}
	}

	return indices
}

// normalizeRows applies the retention filter and field normalization shared by
// the CSV and XLSX paths.
func normalizeRows(rows [][]string, opts Options) ([]Record, Stats, error) {
	var (
		cols columnIndices
		data [][]string
	)

	if opts.NoHeader {
		cols = canonicalIndices()
		data = rows
	} else {
		if len(rows) == 0 {
			return nil, Stats{}, emptyError()
		}
		cols = findColumnIndices(rows[0])
		data = rows[1:]
	}

	if len(data) == 0 {
		return nil, Stats{}, emptyError()
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]Record, 0, len(data))
	for _, row := range data {
		id := cell(row, cols.id)
		createdAt := parseTimestampPtr(cell(row, cols.createdDate))
		actionAt := parseTimestampPtr(cell(row, cols.actionDate))

		// Retention filter: a usable row needs an identifier and both ends of
		// the created-to-action span.
		if id == "" || createdAt == nil || actionAt == nil {
			continue
		}

		registrationRaw := cell(row, cols.registration)
		days, hours := deriveDuration(createdAt, actionAt)

		records = append(records, Record{
			ID:              id,
			CreatedAt:       createdAt,
			ActionAt:        actionAt,
			RegisteredAt:    parseTimestampPtr(registrationRaw),
			RegistrationRaw: registrationRaw,
			DurationDays:    days,
			DurationHours:   hours,
			Staff:           cell(row, cols.staff),
			Action:          cell(row, cols.action),
			Reference:       cell(row, cols.reference),
		})
	}

	stats := Stats{
		RawRows: len(data),
		Rows:    len(records),
		Dropped: len(data) - len(records),
	}

	if len(records) == 0 {
		return nil, stats, emptyError()
	}

	return records, stats, nil
}
