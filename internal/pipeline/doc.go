// Package pipeline runs a word list to completion.
//
// A Scheduler executes a batch of candidates concurrently, bounded by the
// configured thread count, and waits for the whole pass to finish. The
// rate-limited candidates of that pass form the next batch, which runs after
// the pass delay. The run ends when a pass produces no rate-limited outcome.
//
// Retrying is unbounded unless a pass limit is configured; an optional
// backoff multiplier grows the delay between consecutive retry passes.
package pipeline
