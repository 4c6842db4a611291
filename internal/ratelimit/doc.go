// Package ratelimit coordinates how workers react to, and avoid, server-side
// rate limiting.
//
// Signal is the reactive half: a single shared flag raised by any worker that
// receives HTTP 429. The next worker to start a probe sees it, pauses, and
// clears it. Throttle is the proactive half: an optional requests-per-second
// cap shared by all workers.
package ratelimit
