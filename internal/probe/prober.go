package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/pausescan/internal/model"
	"github.com/nao1215/pausescan/internal/ratelimit"
)

// DefaultRateLimitDelay is how long a worker pauses after seeing the
// rate-limit signal.
const DefaultRateLimitDelay = 10 * time.Second

// Prober executes candidates against a target.
// It is safe for concurrent use; all workers of a run share one Prober.
type Prober struct {
	client   *http.Client
	signal   *ratelimit.Signal
	throttle *ratelimit.Throttle
	delay    time.Duration
	onPause  func(time.Duration)
	logger   *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithSignal shares signal with the Prober. Every Prober of a run must use
// the same Signal.
func WithSignal(signal *ratelimit.Signal) Option {
	return func(p *Prober) {
		if signal != nil {
			p.signal = signal
		}
	}
}

// WithRateLimitDelay sets the pause taken when the signal is raised.
func WithRateLimitDelay(d time.Duration) Option {
	return func(p *Prober) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithThrottle caps the request rate. A nil throttle disables the cap.
func WithThrottle(t *ratelimit.Throttle) Option {
	return func(p *Prober) {
		p.throttle = t
	}
}

// WithPauseHook registers fn to be called right before a rate-limit pause.
func WithPauseHook(fn func(time.Duration)) Option {
	return func(p *Prober) {
		p.onPause = fn
	}
}

// WithLogger sets the logger for per-request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// New creates a Prober. Without options it uses http.DefaultClient, a fresh
// Signal and DefaultRateLimitDelay.
func New(opts ...Option) *Prober {
	p := &Prober{
		client: http.DefaultClient,
		signal: ratelimit.NewSignal(),
		delay:  DefaultRateLimitDelay,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Signal returns the rate-limit signal the Prober observes and raises.
func (p *Prober) Signal() *ratelimit.Signal {
	return p.signal
}

// Probe executes c once and returns its outcome. It never returns an error:
// transport failures are reported as ClassTransportError outcomes.
//
// When ctx is cancelled during the pause or the throttle wait, the outcome
// carries ctx.Err() and no request is sent.
func (p *Prober) Probe(ctx context.Context, c model.Candidate) model.Outcome {
	outcome := model.Outcome{Candidate: c}

	if p.signal.IsSet() && p.onPause != nil {
		p.onPause(p.delay)
	}
	if paused, err := p.signal.Wait(ctx, p.delay); err != nil {
		return failed(outcome, err)
	} else if paused {
		p.logger.Debug("resumed after rate limit pause", "delay", p.delay)
	}

	if err := p.throttle.Wait(ctx); err != nil {
		return failed(outcome, err)
	}

	status, length, err := p.fetch(ctx, c)
	if err != nil {
		p.logger.Debug("request failed", "target", c.Value(), "error", err)
		return failed(outcome, err)
	}

	outcome.StatusCode = status
	outcome.ContentLength = length
	outcome.Class = Classify(status, length, c.ExcludeLength)

	if outcome.Class == model.ClassRateLimited {
		outcome.RateLimited = true
		p.signal.Set()
	}

	p.logger.Debug("probe complete",
		"target", c.Value(),
		"status", status,
		"length", length,
		"class", outcome.Class.String(),
	)

	return outcome
}

// fetch sends the GET request and reads the whole body.
func (p *Prober) fetch(ctx context.Context, c model.Candidate) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build request: %w", err)
	}
	if c.Host != "" {
		req.Host = c.Host
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, int(n), nil
}

func failed(o model.Outcome, err error) model.Outcome {
	o.Class = model.ClassTransportError
	o.StatusCode = 0
	o.RateLimited = false
	o.Err = err
	o.ErrorMessage = err.Error()
	return o
}
