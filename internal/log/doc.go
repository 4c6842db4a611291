// Package log builds the diagnostic logger of pausescan on top of slog.
//
// Diagnostics go to stderr at Warn level, or Debug with --verbose. The live
// per-candidate output is not logging; it is printed by report.Console.
//
// SecureHandler masks credentials before they reach the output:
//   - attributes whose key names a credential (cookie, authorization, token)
//   - header maps, where each sensitive header value is masked
//   - URL userinfo and credential-like query parameters
//   - values that look like bearer tokens, basic auth or JWTs
//
// Cookies and headers configured per target are the usual source of such
// values, so they are masked even in verbose mode.
package log
