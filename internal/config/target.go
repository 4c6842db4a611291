package config

import (
	"maps"
	"net/url"
	"strings"
	"time"
)

// TargetConfig holds request settings for one target.
type TargetConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the default User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`

	// RateLimitDelay overrides the pause after a 429 (e.g. "30s").
	RateLimitDelay time.Duration `yaml:"rateLimitDelay,omitempty"`
}

// File represents the structure of the .pausescan configuration file.
type File struct {
	// Targets maps a target (URL or host) to its settings.
	Targets map[string]TargetConfig `yaml:"targets,omitempty"`

	// Defaults applies to every target unless overridden.
	Defaults TargetConfig `yaml:"defaults,omitempty"`
}

// GetTargetConfig returns the defaults merged with the entry for target.
// Entries are looked up by the exact target string first, then by host.
func (f *File) GetTargetConfig(target string) TargetConfig {
	result := f.Defaults
	result.Headers = maps.Clone(f.Defaults.Headers)

	tc, ok := f.lookup(target)
	if !ok {
		return result
	}

	if tc.Cookie != "" {
		result.Cookie = tc.Cookie
	}
	if tc.UserAgent != "" {
		result.UserAgent = tc.UserAgent
	}
	if tc.RateLimitDelay != 0 {
		result.RateLimitDelay = tc.RateLimitDelay
	}
	if len(tc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(tc.Headers))
		}
		maps.Copy(result.Headers, tc.Headers)
	}
	return result
}

func (f *File) lookup(target string) (TargetConfig, bool) {
	if tc, ok := f.Targets[target]; ok {
		return tc, true
	}
	if tc, ok := f.Targets[strings.TrimSuffix(target, "/")]; ok {
		return tc, true
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return TargetConfig{}, false
	}
	if tc, ok := f.Targets[u.Host]; ok {
		return tc, true
	}
	tc, ok := f.Targets[u.Hostname()]
	return tc, ok
}
