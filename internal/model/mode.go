package model

import (
	"fmt"
	"strings"
)

// Mode selects how candidates are built and how results are persisted.
type Mode int

const (
	// ModeProbe appends each word to the target URL and only reports to the
	// console. No result file is written.
	ModeProbe Mode = iota

	// ModeDir appends each word to the target URL and records successful
	// paths in the result file.
	ModeDir

	// ModeVhost keeps the target URL constant and sends each word as the
	// Host header. Successful hosts are recorded with their body length.
	ModeVhost
)

// String returns the mode name as used on the command line.
func (m Mode) String() string {
	switch m {
	case ModeProbe:
		return "probe"
	case ModeDir:
		return "dir"
	case ModeVhost:
		return "vhost"
	default:
		return "unknown"
	}
}

// ParseMode converts a command name back into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "probe":
		return ModeProbe, nil
	case "dir":
		return ModeDir, nil
	case "vhost":
		return ModeVhost, nil
	default:
		return ModeProbe, fmt.Errorf("unknown mode %q", s)
	}
}

// PersistsResults reports whether outcomes of this mode go to a result file.
func (m Mode) PersistsResults() bool {
	return m == ModeDir || m == ModeVhost
}

// UsesHostHeader reports whether the candidate value is sent as Host header.
func (m Mode) UsesHostHeader() bool {
	return m == ModeVhost
}

// Noun returns the plural noun used in progress messages.
func (m Mode) Noun() string {
	if m == ModeVhost {
		return "VHosts"
	}
	return "URLs"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
