// Package report turns outcomes and run summaries into output.
//
// It contains three kinds of output:
//   - FileSink: the append-only result file, one line per recorded finding
//   - Console: the live, colored per-outcome lines printed during a run
//   - Writer implementations (SimpleWriter, JSONWriter, MarkdownWriter)
//     that render a finished RunSummary
//
// Classification happens in the probe package; nothing here decides whether
// an outcome is a finding.
package report
