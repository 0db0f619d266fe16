package ingest

import (
	"errors"
	"fmt"
)

// Kind classifies file-level ingestion failures. Row-level problems (bad
// dates, missing optional columns) never surface here; they degrade the
// affected field to its null form instead.
type Kind int

const (
	// KindWrongType means the payload is not recognizable as delimited text.
	KindWrongType Kind = iota + 1
	// KindMalformed means the delimiter structure could not be parsed.
	KindMalformed
	// KindEmpty means the payload parsed but produced zero usable rows.
	KindEmpty
)

// String returns the wire-stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindWrongType:
		return "wrong_type"
	case KindMalformed:
		return "malformed"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Error is the file-level ingestion error. Row and Column carry parse context
// when available (1-based, zero when unknown).
type Error struct {
	Kind   Kind
	Row    int
	Column int
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ingest: %s", e.Kind)
	if e.Row > 0 {
		msg = fmt.Sprintf("%s at row %d", msg, e.Row)
		if e.Column > 0 {
			msg = fmt.Sprintf("%s column %d", msg, e.Column)
		}
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an ingest Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Kind == kind
}

func wrongTypeError(err error) *Error {
	return &Error{Kind: KindWrongType, Err: err}
}

func malformedError(row, column int, err error) *Error {
	return &Error{Kind: KindMalformed, Row: row, Column: column, Err: err}
}

func emptyError() *Error {
	return &Error{Kind: KindEmpty}
}
