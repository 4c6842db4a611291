package model

import (
	"fmt"
	"net/http"
)

// Class is the classification of a single probe.
type Class int

const (
	// ClassNotFound is a 404 response.
	ClassNotFound Class = iota

	// ClassSuccess is a 200 or 300 response. Only this class is recorded.
	ClassSuccess

	// ClassForbidden is a 403 response.
	ClassForbidden

	// ClassRateLimited is a 429 response. The candidate is retried in the
	// next pass and the shared rate-limit signal is raised.
	ClassRateLimited

	// ClassOther is any status code without a dedicated class.
	ClassOther

	// ClassTransportError means no HTTP response was received at all
	// (DNS failure, refused connection, TLS failure, timeout).
	ClassTransportError

	// ClassSuppressed is a vhost response whose body length matched the
	// exclude length. It is neither reported, recorded nor retried.
	ClassSuppressed
)

// Classes lists every class in display order.
var Classes = []Class{
	ClassSuccess,
	ClassForbidden,
	ClassRateLimited,
	ClassNotFound,
	ClassOther,
	ClassTransportError,
	ClassSuppressed,
}

// String returns a short lowercase name of the class.
func (c Class) String() string {
	switch c {
	case ClassNotFound:
		return "not found"
	case ClassSuccess:
		return "success"
	case ClassForbidden:
		return "forbidden"
	case ClassRateLimited:
		return "rate limited"
	case ClassOther:
		return "other"
	case ClassTransportError:
		return "transport error"
	case ClassSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing one Candidate.
type Outcome struct {
	// Candidate is the probed candidate.
	Candidate Candidate `json:"candidate"`

	// StatusCode is the HTTP status code, 0 when no response was received.
	StatusCode int `json:"status_code"`

	// ContentLength is the number of body bytes read. Measured in vhost mode only.
	ContentLength int `json:"content_length"`

	// Class is the classification of the response.
	Class Class `json:"class"`

	// RateLimited is true iff this outcome observed a 429 and the candidate
	// must be queued for the next pass.
	RateLimited bool `json:"rate_limited"`

	// Attempt is the 1-based pass number that produced this outcome.
	Attempt int `json:"attempt"`

	// Err is the transport error for ClassTransportError outcomes.
	Err error `json:"-"`

	// ErrorMessage mirrors Err for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// HasResponse reports whether an HTTP response was received.
func (o Outcome) HasResponse() bool {
	return o.Class != ClassTransportError
}

// ShouldRecord reports whether the outcome belongs in the result file.
func (o Outcome) ShouldRecord() bool {
	return o.Class == ClassSuccess
}

// Line formats the outcome the way it is shown on the console and written
// to the result file:
//
//	dir / probe: <url> - <status>
//	vhost:       <host> - <status> - Length: <length>
func (o Outcome) Line(mode Mode) string {
	if mode == ModeVhost {
		return fmt.Sprintf("%s - %d - Length: %d", o.Candidate.Value(), o.StatusCode, o.ContentLength)
	}
	return fmt.Sprintf("%s - %d", o.Candidate.Value(), o.StatusCode)
}

// StatusText returns the status code with its reason phrase, e.g. "429 Too Many Requests".
func (o Outcome) StatusText() string {
	if !o.HasResponse() {
		return "no response"
	}
	if text := http.StatusText(o.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", o.StatusCode, text)
	}
	return fmt.Sprintf("%d", o.StatusCode)
}

// MarshalText implements encoding.TextMarshaler so classes serialize by name.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	for _, candidate := range Classes {
		if candidate.String() == string(text) {
			*c = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown outcome class %q", string(text))
}
