package ingest

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// IngestWorkbook parses an Excel case export. The first sheet whose header
// row carries the known case columns wins; exports from some tools bury the
// data behind a cover sheet.
func IngestWorkbook(r io.Reader, opts Options) ([]Record, Stats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, Stats{}, wrongTypeError(err)
	}
	defer f.Close()

	rows, ok := findCaseSheet(f)
	if !ok {
		return nil, Stats{}, wrongTypeError(errors.New("no sheet with case columns found"))
	}

	// Sheet rows already arrive split into cells, so the delimiter option is
	// irrelevant here; header handling still applies.
	return normalizeRows(rows, Options{NoHeader: opts.NoHeader})
}

// findCaseSheet returns the rows of the first sheet that looks like a case
// export, falling back to the first sheet with any content.
func findCaseSheet(f *excelize.File) ([][]string, bool) {
	var fallback [][]string

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) == 0 {
			continue
		}
		if fallback == nil {
			fallback = rows
		}

		header := strings.ToLower(strings.Join(rows[0], " "))
		if strings.Contains(header, "id") &&
			strings.Contains(header, "created_date") &&
			strings.Contains(header, "action_date") {
			return rows, true
		}
	}

	if fallback != nil {
		return fallback, true
	}
	return nil, false
}
