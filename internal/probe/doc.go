// Package probe executes a single candidate request and classifies the
// response.
//
// Classify is a pure function from status code and body length to a class.
// Prober wraps it with the side effects of a real probe: honoring the shared
// rate-limit signal before the request, sending the request, and raising the
// signal when the server answers 429.
package probe
