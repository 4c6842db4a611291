package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/pausescan/internal/config"
	"github.com/nao1215/pausescan/internal/database"
	"github.com/nao1215/pausescan/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show runs stored with --save",
		Long: `History lists the runs stored in the history database, newest first.
With a run ID it shows the summary and the findings of that run.

Examples:
  # List all stored runs
  pausescan history

  # List runs against one target
  pausescan history --target http://10.0.0.5

  # Show run 3 as Markdown
  pausescan history 3 --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("target", "",
		"Only list runs against this target")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var runID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		runID = id
	}

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	out := cmd.OutOrStdout()

	// Reading history never creates the database.
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		if runID != 0 {
			return fmt.Errorf("%w: %d", database.ErrRunNotFound, runID)
		}
		fmt.Fprintln(out, "No runs recorded yet. Use --save to store a run.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if runID != 0 {
		return showRun(ctx, db, runID, out, jsonOutput, markdownOutput)
	}
	return listRuns(ctx, db, target, out, jsonOutput, markdownOutput)
}

// listRuns prints the stored runs.
func listRuns(ctx context.Context, db *database.RunDB, target string, out io.Writer, jsonOutput, markdownOutput bool) error {
	runs, err := db.ListRuns(ctx, target)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		if runs == nil {
			runs = []database.RunRecord{}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	case markdownOutput:
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				strconv.FormatInt(r.ID, 10),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Mode.String(),
				"`" + r.Target + "`",
				strconv.Itoa(r.Passes),
				strconv.Itoa(r.Findings),
				runStatus(r),
			})
		}
		md := markdown.NewMarkdown(out)
		md.H1("pausescan History")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Started", "Mode", "Target", "Passes", "Findings", "Status"},
			Rows:   rows,
		})
		return md.Build()
	}

	if len(runs) == 0 {
		if target != "" {
			fmt.Fprintf(out, "No runs recorded for %s\n", target)
		} else {
			fmt.Fprintln(out, "No runs recorded yet. Use --save to store a run.")
		}
		return nil
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-5s  %-8s  %-8s  %-11s  %s\n",
		"ID", "Started", "Mode", "Passes", "Findings", "Status", "Target")
	for _, r := range runs {
		fmt.Fprintf(out, "  %-6d  %-19s  %-5s  %-8d  %-8d  %-11s  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Passes,
			r.Findings,
			runStatus(r),
			r.Target,
		)
	}
	return nil
}

// runStatus mirrors the status line of the run summary.
func runStatus(r database.RunRecord) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Unresolved > 0:
		return "pass limit"
	default:
		return "complete"
	}
}

// showRun prints one stored run with its findings.
func showRun(ctx context.Context, db *database.RunDB, id int64, out io.Writer, jsonOutput, markdownOutput bool) error {
	summary, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion())).Write(summary)
		return err
	case markdownOutput:
		_, err = report.NewMarkdownWriter(out).Write(summary)
		return err
	}

	fmt.Fprintf(out, "Run #%d (%s)\n", id, summary.StartedAt.Local().Format(time.DateTime))
	if _, err := report.NewSimpleWriter(out).Write(summary); err != nil {
		return err
	}

	findings, err := db.Findings(ctx, id)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		return nil
	}
	fmt.Fprintf(out, "\nFindings (%d):\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(out, "  [+] %s - %d - Length: %d (pass %d)\n", f.Value, f.StatusCode, f.ContentLength, f.Attempt)
	}
	return nil
}
