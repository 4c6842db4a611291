package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pausescan/internal/model"
)

// SimpleWriter outputs the human-readable run summary printed after a run.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints classes with a zero count.
	showEmpty bool

	// verbose lists every finding and unresolved candidate.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty classes.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables listing of findings and unresolved candidates.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	if w.verbose {
		w.writeFindings(&sb, summary)
	}
	w.writeUnresolved(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Mode:       %s\n", summary.Mode)
	fmt.Fprintf(sb, "Target:     %s\n", summary.Target)
	fmt.Fprintf(sb, "Candidates: %d\n", summary.Candidates)
	fmt.Fprintf(sb, "Passes:     %d\n", summary.Passes)
	fmt.Fprintf(sb, "Attempts:   %d\n", summary.Attempts)
	fmt.Fprintf(sb, "Elapsed:    %s\n", summary.Duration.Round(durationPrecision(summary)))
	fmt.Fprintf(sb, "Status:     %s\n", statusText(summary))

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.RunSummary) {
	for _, class := range model.Classes {
		n := summary.Count(class)
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-16s %d\n", class.String()+":", n)
	}
	fmt.Fprintf(sb, "  %-16s %d\n", "findings:", len(summary.Findings))
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Findings) == 0 {
		return
	}
	sb.WriteString("\nFindings:\n")
	for _, f := range summary.Findings {
		fmt.Fprintf(sb, "  [+] %s\n", f.Line(summary.Mode))
	}
}

func (w *SimpleWriter) writeUnresolved(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Unresolved) == 0 {
		return
	}

	fmt.Fprintf(sb, "\n%d %s still rate limited\n", len(summary.Unresolved), summary.Mode.Noun())
	if !w.verbose {
		return
	}
	for _, c := range summary.Unresolved {
		fmt.Fprintf(sb, "  [?] %s\n", c.Value())
	}
}

// statusText describes how the run ended.
func statusText(summary *model.RunSummary) string {
	switch {
	case summary.Cancelled:
		return "Cancelled (partial results)"
	case len(summary.Unresolved) > 0:
		return "Stopped at pass limit (partial results)"
	default:
		return "Complete"
	}
}

// durationPrecision keeps short runs readable.
func durationPrecision(summary *model.RunSummary) time.Duration {
	if summary.Duration < time.Second {
		return time.Millisecond
	}
	return 100 * time.Millisecond
}
