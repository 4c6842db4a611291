package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pausescan/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxMarkdownUnresolved caps the unresolved list in Markdown output.
const maxMarkdownUnresolved = 50

// MarkdownWriter outputs run summaries in Markdown format.
type MarkdownWriter struct {
	baseWriter

	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeFindings(md, summary)
	w.writeUnresolved(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("pausescan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Mode", summary.Mode.String()},
			{"Target", "`" + summary.Target + "`"},
			{"Word List", "`" + summary.Wordlist + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", summary.Duration.Round(durationPrecision(summary)).String()},
			{"Candidates", strconv.Itoa(summary.Candidates)},
			{"Passes", strconv.Itoa(summary.Passes)},
			{"Attempts", strconv.Itoa(summary.Attempts)},
			{"Status", statusText(summary)},
		},
	})
	md.PlainText("")

	switch {
	case summary.Cancelled:
		md.Cautionf("The run was cancelled before every candidate was resolved.")
	case len(summary.Unresolved) > 0:
		md.Warningf("%d candidate(s) were still rate limited when the pass limit was reached.", len(summary.Unresolved))
	case len(summary.Findings) > 0:
		md.Importantf("%d finding(s) recorded.", len(summary.Findings))
	default:
		md.Tip("Run complete. No findings.")
	}
	md.PlainText("")
}

// writeCounts writes the per-class table and a pie chart of the distribution.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Classes))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)
	plotted := 0

	for _, class := range model.Classes {
		n := summary.Count(class)
		label := w.title.String(class.String())
		rows = append(rows, []string{label, strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(label, uint64(n))
			plotted++
		}
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.Attempts) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Class", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if plotted > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeFindings writes the recorded findings.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Findings")
	md.PlainText("")

	if len(summary.Findings) == 0 {
		md.PlainText("No findings recorded.")
		md.PlainText("")
		return
	}

	header := []string{"Target", "Status", "Pass"}
	if summary.Mode == model.ModeVhost {
		header = []string{"Virtual Host", "Status", "Length", "Pass"}
	}

	rows := make([][]string, 0, len(summary.Findings))
	for _, f := range summary.Findings {
		row := []string{"`" + f.Candidate.Value() + "`", f.StatusText()}
		if summary.Mode == model.ModeVhost {
			row = append(row, strconv.Itoa(f.ContentLength))
		}
		rows = append(rows, append(row, strconv.Itoa(f.Attempt)))
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeUnresolved lists candidates left rate limited.
func (w *MarkdownWriter) writeUnresolved(md *markdown.Markdown, summary *model.RunSummary) {
	if len(summary.Unresolved) == 0 {
		return
	}

	md.H2("Unresolved")
	md.PlainText("")

	items := make([]string, 0, len(summary.Unresolved))
	for i, c := range summary.Unresolved {
		if i == maxMarkdownUnresolved {
			items = append(items, "... and "+strconv.Itoa(len(summary.Unresolved)-i)+" more")
			break
		}
		items = append(items, "`"+c.Value()+"`")
	}
	md.BulletList(items...)
	md.PlainText("")
}
