package model

import "time"

// RunSummary aggregates everything a finished run produced.
// It is printed at the end of a run, written as a summary report, and
// stored in the history database.
type RunSummary struct {
	// Mode is the enumeration mode of the run.
	Mode Mode `json:"mode"`

	// Target is the base target as given on the command line.
	Target string `json:"target"`

	// Wordlist is the word-list path.
	Wordlist string `json:"wordlist"`

	// StartedAt is when the first pass started.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the whole run, including pauses.
	Duration time.Duration `json:"duration"`

	// Candidates is the number of candidates generated from the word list.
	Candidates int `json:"candidates"`

	// Passes is the number of passes executed. 1 means nothing was retried.
	Passes int `json:"passes"`

	// Attempts is the total number of probes issued across all passes.
	Attempts int `json:"attempts"`

	// Counts holds the number of outcomes per class over all passes.
	Counts map[Class]int `json:"counts"`

	// Findings are the outcomes that were recorded (ClassSuccess), in arrival order.
	Findings []Outcome `json:"findings"`

	// Unresolved are candidates still rate limited when the pass limit was
	// reached. Always empty for an unbounded run that completed.
	Unresolved []Candidate `json:"unresolved,omitempty"`

	// Cancelled is true when the run was interrupted before completion.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewRunSummary creates an empty summary for the given run.
func NewRunSummary(mode Mode, target, wordlist string) *RunSummary {
	return &RunSummary{
		Mode:      mode,
		Target:    target,
		Wordlist:  wordlist,
		StartedAt: time.Now(),
		Counts:    make(map[Class]int),
		Findings:  make([]Outcome, 0),
	}
}

// Add accounts one outcome.
func (s *RunSummary) Add(o Outcome) {
	if s.Counts == nil {
		s.Counts = make(map[Class]int)
	}
	s.Attempts++
	s.Counts[o.Class]++
	if o.ShouldRecord() {
		s.Findings = append(s.Findings, o)
	}
}

// Count returns the number of outcomes of the given class.
func (s *RunSummary) Count(c Class) int {
	return s.Counts[c]
}

// Complete reports whether every candidate reached a final outcome.
func (s *RunSummary) Complete() bool {
	return len(s.Unresolved) == 0 && !s.Cancelled
}
