package report

import "errors"

var (
	// ErrUnknownFormat is returned for an unsupported summary format name.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrSinkClosed is returned when recording to a closed FileSink.
	ErrSinkClosed = errors.New("result file is closed")
)
