// Package transport builds the HTTP client used to probe a target.
//
// Requests go out directly, through a SOCKS5 proxy (golang.org/x/net/proxy),
// or through the SOCKS port of an embedded Tor daemon started with tornago.
// Every request gets the configured cookie, User-Agent and extra headers
// injected by a wrapping RoundTripper, so redirects carry them too.
//
// Targets on .onion hosts are validated (v3 checksum) and refused without a
// proxy, since a direct connection can never reach them.
package transport
