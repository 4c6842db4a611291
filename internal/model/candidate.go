package model

// LengthFilter suppresses responses whose body length equals Length.
// It is used in vhost mode to hide the server's default virtual host, which
// answers every unknown Host header with the same page.
type LengthFilter struct {
	// Length is the body size in bytes that identifies the default response.
	Length int `json:"length"`

	// Enabled is false when no exclude length was given.
	Enabled bool `json:"enabled"`
}

// ExcludeLength returns an enabled filter for the given length.
func ExcludeLength(n int) LengthFilter {
	return LengthFilter{Length: n, Enabled: true}
}

// Matches reports whether a body of n bytes must be suppressed.
func (f LengthFilter) Matches(n int) bool {
	return f.Enabled && n == f.Length
}

// Candidate is one unit of work: a single request to issue.
// Candidates are values; a retry pass works on copies of the originals.
type Candidate struct {
	// URL is the request URL. In path modes it already contains the word,
	// in vhost mode it is the unchanged base target.
	URL string `json:"url"`

	// Host is the Host header override. Only set in vhost mode.
	Host string `json:"host,omitempty"`

	// ExcludeLength is the vhost default-response filter.
	ExcludeLength LengthFilter `json:"exclude_length"`
}

// Value returns the string that identifies the candidate in reports:
// the virtual host name when a Host override is present, the URL otherwise.
func (c Candidate) Value() string {
	if c.Host != "" {
		return c.Host
	}
	return c.URL
}
