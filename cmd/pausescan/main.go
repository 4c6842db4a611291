// Package main provides the entry point for the pausescan CLI.
//
// pausescan enumerates paths or virtual hosts of a web target from a word
// list. When the target answers 429 Too Many Requests, every worker pauses
// and the throttled candidates are retried in further passes until none
// are left.
//
// Usage:
//
//	pausescan probe <target> <wordlist> <delaySeconds> <threads>
//	pausescan dir   <target> <wordlist> <delaySeconds> <threads> <outputFile>
//	pausescan vhost <target> <wordlist> <delaySeconds> <threads> <outputFile> [excludeLength]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
