package services

import "errors"

// Analytics service errors
var (
	// ErrNoDataLoaded means a summary, export, or view was requested before
	// any dataset reached the ready phase.
	ErrNoDataLoaded = errors.New("no dataset loaded")

	// ErrUnknownFormat means the upload format could not be determined from
	// the request or the filename.
	ErrUnknownFormat = errors.New("unknown upload format")
)
