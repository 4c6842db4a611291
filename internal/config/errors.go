package config

import "errors"

// Configuration validation errors.
// Validate returns the first one it finds; callers match them with errors.Is.
var (
	// ErrNoTarget is returned when the target URL is empty.
	ErrNoTarget = errors.New("no target specified")

	// ErrNoWordlist is returned when no word list path is given.
	ErrNoWordlist = errors.New("no word list specified")

	// ErrNoOutputFile is returned when dir or vhost mode has no result file.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrInvalidThreads is returned when the worker count is not positive.
	ErrInvalidThreads = errors.New("invalid threads: must be a positive integer")

	// ErrInvalidDelay is returned when the inter-pass delay is negative or unparsable.
	ErrInvalidDelay = errors.New("invalid delay: must be a non-negative number of seconds")

	// ErrInvalidExcludeLength is returned when the exclude length is negative or unparsable.
	ErrInvalidExcludeLength = errors.New("invalid exclude length: must be a non-negative integer")

	// ErrInvalidRateLimitDelay is returned when the pause after a 429 is negative.
	ErrInvalidRateLimitDelay = errors.New("invalid rate limit delay: must be non-negative")

	// ErrInvalidMaxPasses is returned when the pass cap is negative.
	ErrInvalidMaxPasses = errors.New("invalid max passes: must be non-negative")

	// ErrInvalidBackoff is returned when the backoff multiplier is below 1.
	ErrInvalidBackoff = errors.New("invalid backoff multiplier: must be at least 1")

	// ErrInvalidTimeout is returned when the request timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidRPS is returned when the request rate cap is negative.
	ErrInvalidRPS = errors.New("invalid rps: must be non-negative")

	// ErrConflictingProxy is returned when both --proxy and --tor are set.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")

	// ErrInvalidHeader is returned when a -H value is not "Name: value".
	ErrInvalidHeader = errors.New("invalid header: expected \"Name: value\"")

	// ErrInvalidSummaryFormat is returned for an unknown --summary-format.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be markdown or json")
)
