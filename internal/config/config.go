package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/pausescan/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pausescan"

	// DefaultThreads is the number of concurrent probes per pass.
	DefaultThreads = 10

	// DefaultRateLimitDelay is how long every worker pauses after a 429.
	DefaultRateLimitDelay = 10 * time.Second

	// DefaultPassDelay is the wait between retry passes when no delay
	// argument overrides it.
	DefaultPassDelay = 10 * time.Second

	// DefaultMaxPasses of 0 keeps retrying until no candidate is rate limited.
	DefaultMaxPasses = 0

	// DefaultBackoffMultiplier keeps the inter-pass delay constant.
	DefaultBackoffMultiplier = 1.0

	// DefaultTimeout of 0 leaves request deadlines to the transport.
	DefaultTimeout = 0

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultSummaryFormat is used for --summary when no format is given.
	DefaultSummaryFormat = "markdown"

	// DefaultUserAgent identifies pausescan in HTTP requests.
	DefaultUserAgent = "pausescan/1.0 (+https://github.com/nao1215/pausescan)"
)

// Config holds every option of a single run.
// It is built from the command line and passed down explicitly; nothing
// reads it from package state.
type Config struct {
	// Mode selects probe, dir or vhost behaviour.
	Mode model.Mode

	// Target is the base URL. In vhost mode it is requested for every word.
	Target string

	// Wordlist is the path of the candidate file.
	Wordlist string

	// PassDelay is the wait before each retry pass.
	PassDelay time.Duration

	// Threads bounds the number of in-flight probes.
	Threads int

	// OutputFile receives successful results in dir and vhost mode.
	OutputFile string

	// Exclude suppresses vhost responses whose body has this length.
	Exclude model.LengthFilter

	// RateLimitDelay is the global pause triggered by a 429.
	RateLimitDelay time.Duration

	// MaxPasses caps the retry loop. 0 means unbounded.
	MaxPasses int

	// BackoffMultiplier scales PassDelay after every retry pass.
	BackoffMultiplier float64

	// Timeout is the per-request deadline. 0 means none.
	Timeout time.Duration

	// RPS caps outgoing requests per second across all workers. 0 disables it.
	RPS float64

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// Insecure skips TLS certificate verification.
	Insecure bool

	// UserAgent is sent with every request.
	UserAgent string

	// Cookie is sent with every request when set.
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	// SummaryFile receives the run summary after the run.
	SummaryFile string

	// SummaryFormat is "markdown" or "json".
	SummaryFormat string

	// SaveToDB stores the run summary in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// NoColor disables colored console output.
	NoColor bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit .pausescan path, if any.
	ConfigFilePath string

	// TargetConfigs holds the settings loaded from the config file.
	TargetConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Threads:           DefaultThreads,
		PassDelay:         DefaultPassDelay,
		RateLimitDelay:    DefaultRateLimitDelay,
		MaxPasses:         DefaultMaxPasses,
		BackoffMultiplier: DefaultBackoffMultiplier,
		Timeout:           DefaultTimeout,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		SummaryFormat:     DefaultSummaryFormat,
		DBDir:             XDGDataDir(),
		Headers:           make(map[string]string),
	}
}

// XDGDataDir returns the XDG data directory for pausescan.
// On Linux: ~/.local/share/pausescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pausescan.
// On Linux: ~/.config/pausescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ArgCount returns the accepted positional argument counts for a mode.
// vhost takes an optional trailing exclude length.
func ArgCount(mode model.Mode) (minArgs, maxArgs int) {
	switch mode {
	case model.ModeDir:
		return 5, 5
	case model.ModeVhost:
		return 5, 6
	default:
		return 4, 4
	}
}

// ApplyArgs fills the positional fields for mode from args, in order:
// target, wordlist, delaySeconds, threads, then outputFile and
// excludeLength where the mode takes them. The caller checks the count.
func (c *Config) ApplyArgs(mode model.Mode, args []string) error {
	minArgs, maxArgs := ArgCount(mode)
	if len(args) < minArgs || len(args) > maxArgs {
		return fmt.Errorf("%s expects %d to %d arguments, got %d", mode, minArgs, maxArgs, len(args))
	}

	c.Mode = mode
	c.Target = strings.TrimSpace(args[0])
	c.Wordlist = args[1]

	delay, err := ParseDelaySeconds(args[2])
	if err != nil {
		return err
	}
	c.PassDelay = delay

	threads, err := ParseThreads(args[3])
	if err != nil {
		return err
	}
	c.Threads = threads

	if mode.PersistsResults() {
		c.OutputFile = args[4]
	}
	if mode == model.ModeVhost && len(args) == 6 {
		n, err := ParseExcludeLength(args[5])
		if err != nil {
			return err
		}
		c.Exclude = model.ExcludeLength(n)
	}
	return nil
}

// ParseDelaySeconds converts a seconds value such as "10" or "2.5".
func ParseDelaySeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelay, s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// ParseThreads converts a positive worker count.
func ParseThreads(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreads, s)
	}
	return n, nil
}

// ParseExcludeLength converts a non-negative body length.
func ParseExcludeLength(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExcludeLength, s)
	}
	return n, nil
}

// ParseHeaders converts "Name: value" strings into a header map.
func ParseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// ApplyTargetConfig merges the file settings for the current target.
// Values already set on the command line win over the file.
func (c *Config) ApplyTargetConfig(cmdlineRateLimitDelay bool) {
	if c.TargetConfigs == nil {
		return
	}
	tc := c.TargetConfigs.GetTargetConfig(c.Target)

	if c.Cookie == "" {
		c.Cookie = tc.Cookie
	}
	if tc.UserAgent != "" && c.UserAgent == DefaultUserAgent {
		c.UserAgent = tc.UserAgent
	}
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	for k, v := range tc.Headers {
		if _, ok := c.Headers[k]; !ok {
			c.Headers[k] = v
		}
	}
	if !cmdlineRateLimitDelay && tc.RateLimitDelay > 0 {
		c.RateLimitDelay = tc.RateLimitDelay
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if c.Wordlist == "" {
		return ErrNoWordlist
	}
	if c.Mode.PersistsResults() && c.OutputFile == "" {
		return ErrNoOutputFile
	}
	if c.Threads <= 0 {
		return ErrInvalidThreads
	}
	if c.PassDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Exclude.Enabled && c.Exclude.Length < 0 {
		return ErrInvalidExcludeLength
	}
	if c.RateLimitDelay < 0 {
		return ErrInvalidRateLimitDelay
	}
	if c.MaxPasses < 0 {
		return ErrInvalidMaxPasses
	}
	if c.BackoffMultiplier < 1 || math.IsNaN(c.BackoffMultiplier) {
		return ErrInvalidBackoff
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.RPS < 0 || math.IsNaN(c.RPS) {
		return ErrInvalidRPS
	}
	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingProxy
	}
	switch strings.ToLower(c.SummaryFormat) {
	case "markdown", "md", "json":
	default:
		return ErrInvalidSummaryFormat
	}
	return nil
}
