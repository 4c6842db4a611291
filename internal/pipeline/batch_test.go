package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pausescan/internal/model"
	"github.com/nao1215/pausescan/internal/probe"
	"github.com/nao1215/pausescan/internal/ratelimit"
)

// fakeExecutor answers from a function and counts calls.
type fakeExecutor struct {
	calls  atomic.Int32
	answer func(c model.Candidate, call int32) model.Outcome
}

func (f *fakeExecutor) Probe(_ context.Context, c model.Candidate) model.Outcome {
	n := f.calls.Add(1)
	return f.answer(c, n)
}

func success(c model.Candidate) model.Outcome {
	return model.Outcome{Candidate: c, StatusCode: http.StatusOK, Class: model.ClassSuccess}
}

func rateLimited(c model.Candidate) model.Outcome {
	return model.Outcome{Candidate: c, StatusCode: http.StatusTooManyRequests, Class: model.ClassRateLimited, RateLimited: true}
}

func candidates(words ...string) []model.Candidate {
	out := make([]model.Candidate, 0, len(words))
	for _, w := range words {
		out = append(out, model.Candidate{URL: "http://x.test/" + w})
	}
	return out
}

// TestNewScheduler tests the Scheduler constructor.
func TestNewScheduler(t *testing.T) {
	t.Parallel()

	t.Run("creates scheduler with defaults", func(t *testing.T) {
		t.Parallel()

		s := NewScheduler(&fakeExecutor{})
		if s.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, s.concurrency)
		}
		if s.passDelay != DefaultPassDelay {
			t.Errorf("expected default pass delay %v, got %v", DefaultPassDelay, s.passDelay)
		}
		if s.maxPasses != 0 {
			t.Errorf("expected unbounded passes, got %d", s.maxPasses)
		}
		if s.backoff != 1 {
			t.Errorf("expected backoff 1, got %v", s.backoff)
		}
		if s.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("ignores invalid option values", func(t *testing.T) {
		t.Parallel()

		s := NewScheduler(&fakeExecutor{},
			WithConcurrency(0),
			WithPassDelay(-time.Second),
			WithMaxPasses(-1),
			WithBackoffMultiplier(0.5),
			WithSchedulerLogger(nil),
		)
		if s.concurrency != DefaultConcurrency || s.passDelay != DefaultPassDelay || s.maxPasses != 0 || s.backoff != 1 {
			t.Errorf("invalid options changed defaults: %+v", s)
		}
		if s.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestSchedulerRun tests the retry loop.
func TestSchedulerRun(t *testing.T) {
	t.Parallel()

	t.Run("single pass when nothing is rate limited", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome { return success(c) }}

		var handled []model.Outcome
		s := NewScheduler(exec,
			WithRun(model.ModeDir, "http://x.test", "words.txt"),
			WithOutcomeHandler(func(o model.Outcome) { handled = append(handled, o) }),
			WithPassHook(func(int, int, time.Duration) { t.Error("no retry pass expected") }),
		)

		summary, err := s.Run(context.Background(), candidates("admin", "login", "secret"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Passes != 1 || summary.Attempts != 3 {
			t.Errorf("passes=%d attempts=%d, expected 1 and 3", summary.Passes, summary.Attempts)
		}
		if len(handled) != 3 || len(summary.Findings) != 3 {
			t.Errorf("handled=%d findings=%d, expected 3", len(handled), len(summary.Findings))
		}
		if summary.Mode != model.ModeDir || summary.Target != "http://x.test" || summary.Candidates != 3 {
			t.Errorf("unexpected run description: %+v", summary)
		}
		if !summary.Complete() {
			t.Error("run should be complete")
		}
	})

	t.Run("empty input completes without probing", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome { return success(c) }}
		summary, err := NewScheduler(exec).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exec.calls.Load() != 0 || summary.Passes != 0 {
			t.Errorf("expected no probes, got %d calls and %d passes", exec.calls.Load(), summary.Passes)
		}
	})

	t.Run("retries until no candidate is rate limited", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[string]int)
		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome {
			mu.Lock()
			defer mu.Unlock()
			seen[c.URL]++
			// "slow" is rate limited three times, the rest once.
			limit := 1
			if strings.HasSuffix(c.URL, "slow") {
				limit = 3
			}
			if seen[c.URL] <= limit {
				return rateLimited(c)
			}
			return success(c)
		}}

		var pending []int
		s := NewScheduler(exec,
			WithPassDelay(time.Millisecond),
			WithPassHook(func(_ int, n int, _ time.Duration) { pending = append(pending, n) }),
		)

		summary, err := s.Run(context.Background(), candidates("a", "b", "slow"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Passes != 4 {
			t.Errorf("expected 4 passes, got %d", summary.Passes)
		}
		if expected := []int{3, 1, 1}; !equalInts(pending, expected) {
			t.Errorf("pending per retry = %v, expected %v", pending, expected)
		}
		if summary.Count(model.ClassRateLimited) != 5 || summary.Count(model.ClassSuccess) != 3 {
			t.Errorf("unexpected counts: %v", summary.Counts)
		}
		if len(summary.Findings) != 3 {
			t.Errorf("expected 3 findings, got %d", len(summary.Findings))
		}
		for _, f := range summary.Findings {
			if f.Class == model.ClassRateLimited {
				t.Error("a rate-limited outcome must never be recorded")
			}
		}
	})

	t.Run("transport errors are not retried", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome {
			return model.Outcome{Candidate: c, Class: model.ClassTransportError, Err: errors.New("connection refused")}
		}}

		summary, err := NewScheduler(exec, WithPassDelay(time.Millisecond)).Run(context.Background(), candidates("a", "b"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Passes != 1 || exec.calls.Load() != 2 {
			t.Errorf("passes=%d calls=%d, expected 1 and 2", summary.Passes, exec.calls.Load())
		}
		if summary.Count(model.ClassTransportError) != 2 {
			t.Errorf("expected 2 transport errors, got %d", summary.Count(model.ClassTransportError))
		}
	})

	t.Run("outcomes carry the pass number", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, call int32) model.Outcome {
			if call == 1 {
				return rateLimited(c)
			}
			return success(c)
		}}

		summary, err := NewScheduler(exec, WithPassDelay(0)).Run(context.Background(), candidates("a"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(summary.Findings) != 1 || summary.Findings[0].Attempt != 2 {
			t.Errorf("expected the finding from pass 2, got %+v", summary.Findings)
		}
	})

	t.Run("max passes leaves candidates unresolved", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome { return rateLimited(c) }}

		summary, err := NewScheduler(exec, WithPassDelay(0), WithMaxPasses(3)).Run(context.Background(), candidates("a", "b"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Passes != 3 || exec.calls.Load() != 6 {
			t.Errorf("passes=%d calls=%d, expected 3 and 6", summary.Passes, exec.calls.Load())
		}
		if len(summary.Unresolved) != 2 || summary.Complete() {
			t.Errorf("expected 2 unresolved candidates, got %d", len(summary.Unresolved))
		}
	})

	t.Run("backoff multiplies the pass delay", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, call int32) model.Outcome {
			if call <= 3 {
				return rateLimited(c)
			}
			return success(c)
		}}

		var delays []time.Duration
		s := NewScheduler(exec,
			WithPassDelay(time.Millisecond),
			WithBackoffMultiplier(2),
			WithPassHook(func(_ int, _ int, d time.Duration) { delays = append(delays, d) }),
		)

		if _, err := s.Run(context.Background(), candidates("a")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
		if len(delays) != len(expected) {
			t.Fatalf("delays = %v, expected %v", delays, expected)
		}
		for i := range expected {
			if delays[i] != expected[i] {
				t.Errorf("delays = %v, expected %v", delays, expected)
				break
			}
		}
	})

	t.Run("cancellation during the pass delay", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome { return rateLimited(c) }}

		ctx, cancel := context.WithCancel(context.Background())
		s := NewScheduler(exec,
			WithPassDelay(time.Hour),
			WithPassHook(func(int, int, time.Duration) { cancel() }),
		)

		summary, err := s.Run(ctx, candidates("a", "b"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if !summary.Cancelled || len(summary.Unresolved) != 2 {
			t.Errorf("cancelled=%v unresolved=%d", summary.Cancelled, len(summary.Unresolved))
		}
	})
}

// TestSchedulerConcurrency tests the worker bound and the pass barrier.
func TestSchedulerConcurrency(t *testing.T) {
	t.Parallel()

	t.Run("never exceeds the thread count", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return success(c)
		}}

		words := make([]string, 40)
		for i := range words {
			words[i] = string(rune('a' + i%26))
		}

		if _, err := NewScheduler(exec, WithConcurrency(4)).Run(context.Background(), candidates(words...)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 4 {
			t.Errorf("peak concurrency %d exceeds 4", peak.Load())
		}
		if exec.calls.Load() != 40 {
			t.Errorf("expected 40 probes, got %d", exec.calls.Load())
		}
	})

	t.Run("retry pass starts after the previous pass drained", func(t *testing.T) {
		t.Parallel()

		var inFlight atomic.Int32
		var mu sync.Mutex
		tries := make(map[string]int)
		exec := &fakeExecutor{answer: func(c model.Candidate, _ int32) model.Outcome {
			inFlight.Add(1)
			defer inFlight.Add(-1)

			mu.Lock()
			tries[c.URL]++
			first := tries[c.URL] == 1
			mu.Unlock()

			if first && strings.HasSuffix(c.URL, "fast") {
				return rateLimited(c)
			}
			time.Sleep(20 * time.Millisecond)
			return success(c)
		}}

		s := NewScheduler(exec,
			WithPassDelay(0),
			WithPassHook(func(int, int, time.Duration) {
				if n := inFlight.Load(); n != 0 {
					t.Errorf("%d probes still in flight when the retry pass was scheduled", n)
				}
			}),
		)

		if _, err := s.Run(context.Background(), candidates("fast", "slow1", "slow2")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestSchedulerWithProber runs the scheduler against a real HTTP server.
func TestSchedulerWithProber(t *testing.T) {
	t.Parallel()

	t.Run("all words found", func(t *testing.T) {
		t.Parallel()

		body := strings.Repeat("x", 100)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		t.Cleanup(srv.Close)

		var lines []string
		p := probe.New(probe.WithHTTPClient(srv.Client()))
		s := NewScheduler(p, WithOutcomeHandler(func(o model.Outcome) {
			if o.ShouldRecord() {
				lines = append(lines, o.Line(model.ModeDir))
			}
		}))

		cands := []model.Candidate{{URL: srv.URL + "/admin"}, {URL: srv.URL + "/login"}, {URL: srv.URL + "/secret"}}
		if _, err := s.Run(context.Background(), cands); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %v", lines)
		}
		for _, line := range lines {
			if !strings.HasSuffix(line, " - 200") {
				t.Errorf("unexpected line %q", line)
			}
		}
	})

	t.Run("rate limited word is retried after a pause", func(t *testing.T) {
		t.Parallel()

		var aHits, requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if r.URL.Path == "/a" && aHits.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		signal := ratelimit.NewSignal()
		var pauses atomic.Int32
		p := probe.New(
			probe.WithHTTPClient(srv.Client()),
			probe.WithSignal(signal),
			probe.WithRateLimitDelay(10*time.Millisecond),
			probe.WithPauseHook(func(time.Duration) { pauses.Add(1) }),
		)

		var recorded []string
		s := NewScheduler(p,
			WithPassDelay(10*time.Millisecond),
			WithOutcomeHandler(func(o model.Outcome) {
				if o.ShouldRecord() {
					recorded = append(recorded, o.Candidate.URL)
				}
			}),
		)

		summary, err := s.Run(context.Background(), []model.Candidate{{URL: srv.URL + "/a"}, {URL: srv.URL + "/b"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if requests.Load() != 3 || summary.Attempts != 3 {
			t.Errorf("requests=%d attempts=%d, expected 3", requests.Load(), summary.Attempts)
		}
		if len(recorded) != 2 {
			t.Errorf("expected 2 recorded candidates, got %v", recorded)
		}
		if summary.Passes != 2 {
			t.Errorf("expected 2 passes, got %d", summary.Passes)
		}
		if pauses.Load() < 1 {
			t.Error("the retry pass should have paused on the raised signal")
		}
		if signal.IsSet() {
			t.Error("signal should be cleared at the end of the run")
		}
	})
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
