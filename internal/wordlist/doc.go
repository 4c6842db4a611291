// Package wordlist turns a base target and a word list into probe candidates.
//
// Path modes join each word onto the target URL. Vhost mode keeps the URL
// constant and carries each word as the Host header value. Empty lines are
// skipped and the original order is preserved, so generating twice from the
// same input always yields the same candidates.
package wordlist
