// Package model defines the data structures shared by the pausescan packages.
//
// This package contains the following main types:
//   - Mode: which enumeration flavour a run performs (probe, dir, vhost)
//   - Candidate: one path or virtual host to probe
//   - Outcome: the classified result of probing one Candidate
//   - RunSummary: aggregated statistics and findings of a complete run
//
// The types live in their own package so that the wordlist, probe, pipeline,
// report and database packages can share them without import cycles.
package model
