package report

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/pausescan/internal/model"
)

// Console prints live progress of a run: one line per outcome, pause
// announcements and retry announcements.
//
// Success lines are green, forbidden and transport errors red, rate-limited
// lines yellow. Suppressed outcomes print nothing.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	mode   model.Mode
	green  *color.Color
	red    *color.Color
	yellow *color.Color
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithColor forces colors on or off. Without it, colors follow the
// terminal detection of the color package.
func WithColor(enabled bool) ConsoleOption {
	return func(c *Console) {
		for _, col := range []*color.Color{c.green, c.red, c.yellow} {
			if enabled {
				col.EnableColor()
			} else {
				col.DisableColor()
			}
		}
	}
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer, mode model.Mode, opts ...ConsoleOption) *Console {
	c := &Console{
		out:    out,
		mode:   mode,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Outcome prints the line for o.
func (c *Console) Outcome(o model.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := o.Line(c.mode)

	switch o.Class {
	case model.ClassSuppressed:
		return
	case model.ClassSuccess:
		_, _ = c.green.Fprintln(c.out, line)
	case model.ClassForbidden:
		_, _ = c.red.Fprintln(c.out, line)
	case model.ClassRateLimited:
		_, _ = c.yellow.Fprintln(c.out, line)
		_, _ = c.yellow.Fprintln(c.out, "Rate limit reached. Global pause activated.")
	case model.ClassTransportError:
		_, _ = c.red.Fprintf(c.out, "Exception while trying to access %s: %s\n", o.Candidate.Value(), o.ErrorMessage)
	default:
		_, _ = io.WriteString(c.out, line+"\n")
	}
}

// Pause announces a rate-limit pause of d.
func (c *Console) Pause(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = c.yellow.Fprintf(c.out, "Rate limit is active. Waiting %s seconds...\n", seconds(d))
}

// Retry announces a retry pass over pending candidates.
func (c *Console) Retry(pending int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = io.WriteString(c.out, "Retrying "+strconv.Itoa(pending)+" "+c.mode.Noun()+" after delay...\n")
}

// Fatal prints a message that aborts the run.
func (c *Console) Fatal(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = c.red.Fprintln(c.out, "Fatal: "+msg)
}

// seconds formats d as a number of seconds without trailing zeros.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
