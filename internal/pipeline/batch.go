package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/pausescan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of probes in flight when no thread
// count is configured.
const DefaultConcurrency = 10

// DefaultPassDelay is the sleep between a pass and the retry pass after it.
const DefaultPassDelay = 10 * time.Second

// Executor runs one candidate and returns its outcome.
// *probe.Prober satisfies it.
type Executor interface {
	Probe(ctx context.Context, c model.Candidate) model.Outcome
}

// Scheduler drives a run: it executes a batch of candidates concurrently,
// collects the rate-limited ones and re-runs them after a delay until none
// are left.
//
// Passes are separated by a full barrier. A retry pass never starts while a
// probe of the previous pass is still in flight.
type Scheduler struct {
	executor    Executor
	concurrency int
	passDelay   time.Duration
	maxPasses   int
	backoff     float64

	mode     model.Mode
	target   string
	wordlist string

	onOutcome func(model.Outcome)
	onPass    func(pass, pending int, delay time.Duration)

	logger *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets a custom logger for run-level logging.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent probes.
// Default is 10 if not specified.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithPassDelay sets the sleep before each retry pass.
func WithPassDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.passDelay = d
		}
	}
}

// WithMaxPasses stops the run after n passes, leaving the remaining
// rate-limited candidates unresolved. 0 means no limit.
func WithMaxPasses(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxPasses = n
		}
	}
}

// WithBackoffMultiplier multiplies the pass delay by f after every retry
// pass. Values below 1 are ignored.
func WithBackoffMultiplier(f float64) SchedulerOption {
	return func(s *Scheduler) {
		if f >= 1 {
			s.backoff = f
		}
	}
}

// WithRun describes the run in the returned summary.
func WithRun(mode model.Mode, target, wordlist string) SchedulerOption {
	return func(s *Scheduler) {
		s.mode = mode
		s.target = target
		s.wordlist = wordlist
	}
}

// WithOutcomeHandler registers fn to receive every outcome.
// Calls are serialized, in arrival order, so fn needs no locking of its own.
func WithOutcomeHandler(fn func(model.Outcome)) SchedulerOption {
	return func(s *Scheduler) {
		s.onOutcome = fn
	}
}

// WithPassHook registers fn to be called before the sleep preceding a retry
// pass, with the number of that pass and the candidates it will execute.
func WithPassHook(fn func(pass, pending int, delay time.Duration)) SchedulerOption {
	return func(s *Scheduler) {
		s.onPass = fn
	}
}

// NewScheduler creates a Scheduler running candidates through executor.
func NewScheduler(executor Executor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		executor:    executor,
		concurrency: DefaultConcurrency,
		passDelay:   DefaultPassDelay,
		backoff:     1,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Run executes candidates until every one of them has a non-429 outcome.
//
// Without a pass limit Run only returns early when ctx is cancelled; the
// summary is always returned and the error is ctx.Err() in that case.
// Candidates that were never resolved are listed in RunSummary.Unresolved.
func (s *Scheduler) Run(ctx context.Context, candidates []model.Candidate) (*model.RunSummary, error) {
	summary := model.NewRunSummary(s.mode, s.target, s.wordlist)
	summary.Candidates = len(candidates)

	s.logger.Info("starting run",
		"mode", s.mode.String(),
		"candidates", len(candidates),
		"concurrency", s.concurrency,
	)

	batch := candidates
	delay := s.passDelay

	for pass := 1; len(batch) > 0; pass++ {
		summary.Passes = pass

		next, interrupted := s.runPass(ctx, pass, batch, summary)

		if ctx.Err() != nil {
			summary.Cancelled = true
			summary.Unresolved = append(interrupted, next...)
			break
		}
		if len(next) == 0 {
			break
		}
		if s.maxPasses > 0 && pass >= s.maxPasses {
			s.logger.Warn("pass limit reached",
				"passes", pass,
				"unresolved", len(next),
			)
			summary.Unresolved = next
			break
		}

		if s.onPass != nil {
			s.onPass(pass+1, len(next), delay)
		}
		s.logger.Info("rate limited candidates pending",
			"pass", pass,
			"pending", len(next),
			"delay", delay,
		)

		if err := sleep(ctx, delay); err != nil {
			summary.Cancelled = true
			summary.Unresolved = next
			break
		}

		delay = time.Duration(float64(delay) * s.backoff)
		batch = next
	}

	summary.Duration = time.Since(summary.StartedAt)

	s.logger.Info("run complete",
		"passes", summary.Passes,
		"attempts", summary.Attempts,
		"findings", len(summary.Findings),
		"elapsed", summary.Duration,
	)

	if summary.Cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// runPass executes one batch and waits for every probe to finish.
// It returns the rate-limited candidates in arrival order, and the
// candidates that were skipped or cut short by cancellation.
func (s *Scheduler) runPass(
	ctx context.Context,
	pass int,
	batch []model.Candidate,
	summary *model.RunSummary,
) ([]model.Candidate, []model.Candidate) {
	var (
		mu          sync.Mutex
		next        = make([]model.Candidate, 0)
		interrupted = make([]model.Candidate, 0)
	)

	// Probes never fail the group, so the derived context only ends with ctx.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, c := range batch {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				mu.Lock()
				interrupted = append(interrupted, c)
				mu.Unlock()
				return nil
			default:
			}

			outcome := s.executor.Probe(gctx, c)
			outcome.Attempt = pass

			mu.Lock()
			defer mu.Unlock()

			if outcome.Err != nil && gctx.Err() != nil {
				interrupted = append(interrupted, c)
				return nil
			}

			summary.Add(outcome)
			if outcome.RateLimited {
				next = append(next, c)
			}
			if s.onOutcome != nil {
				s.onOutcome(outcome)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Goroutines never return an error

	return next, interrupted
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
