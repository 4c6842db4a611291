package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/pausescan/internal/config"
	"github.com/nao1215/pausescan/internal/database"
	"github.com/nao1215/pausescan/internal/log"
	"github.com/nao1215/pausescan/internal/model"
	"github.com/nao1215/pausescan/internal/pipeline"
	"github.com/nao1215/pausescan/internal/probe"
	"github.com/nao1215/pausescan/internal/ratelimit"
	"github.com/nao1215/pausescan/internal/report"
	"github.com/nao1215/pausescan/internal/transport"
	"github.com/nao1215/pausescan/internal/wordlist"
	"github.com/spf13/cobra"
)

// NewProbeCmd creates the probe command.
func NewProbeCmd() *cobra.Command {
	return newRunCmd(model.ModeProbe,
		"probe <target> <wordlist> <delaySeconds> <threads>",
		"Request every word as a path and report status codes",
		`Probe appends every word of the word list to the target URL and prints
the status code of each response. Nothing is written to disk.

Examples:
  # Probe with 10 workers and a 5 second retry delay
  pausescan probe http://10.0.0.5 words.txt 5 10`)
}

// NewDirCmd creates the dir command.
func NewDirCmd() *cobra.Command {
	return newRunCmd(model.ModeDir,
		"dir <target> <wordlist> <delaySeconds> <threads> <outputFile>",
		"Enumerate paths and append hits to a result file",
		`Dir appends every word of the word list to the target URL. Responses with
status 200 or 300 are appended to the output file as "<url> - <status>".

Examples:
  pausescan dir http://10.0.0.5 words.txt 10 20 found.txt

  # Route through a SOCKS5 proxy and cap the request rate
  pausescan dir --proxy 127.0.0.1:9050 --rps 5 http://example.onion words.txt 10 4 found.txt`)
}

// NewVhostCmd creates the vhost command.
func NewVhostCmd() *cobra.Command {
	return newRunCmd(model.ModeVhost,
		"vhost <target> <wordlist> <delaySeconds> <threads> <outputFile> [excludeLength]",
		"Enumerate virtual hosts through the Host header",
		`Vhost requests the target URL once per word, sending the word as the Host
header. Hits are appended to the output file as
"<host> - <status> - Length: <bytes>".

Responses whose body is exactly excludeLength bytes long (usually the
default page of the server) are ignored completely.

Examples:
  pausescan vhost http://10.0.0.5 hosts.txt 10 20 vhosts.txt 1234`)
}

// newRunCmd builds one of the enumeration commands. They share flags and
// the runner and only differ in mode.
func newRunCmd(mode model.Mode, use, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerationCmd(cmd, mode, args)
		},
	}

	// Rate limit handling
	cmd.Flags().Duration("rate-limit-delay", config.DefaultRateLimitDelay,
		"Pause of every worker after a 429 response")
	cmd.Flags().Int("max-passes", config.DefaultMaxPasses,
		"Stop retrying after this many passes (0 = until nothing is rate limited)")
	cmd.Flags().Float64("backoff-multiplier", config.DefaultBackoffMultiplier,
		"Multiply the retry delay by this factor after every retry pass")
	cmd.Flags().Float64("rps", 0,
		"Cap outgoing requests per second across all workers (0 = no cap)")

	// Transport
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request (0 = none)")
	cmd.Flags().String("proxy", "",
		"Send requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and send requests through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification")
	cmd.Flags().String("cookie", "",
		"Cookie header sent with every request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent sent with every request")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header "Name: value" (repeatable)`)

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pausescan in current or home directory)")

	// Reports
	cmd.Flags().StringP("summary", "s", "",
		"Write the run summary to this file")
	cmd.Flags().String("summary-format", config.DefaultSummaryFormat,
		"Summary file format: markdown or json")
	cmd.Flags().Bool("save", false,
		"Store the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runEnumerationCmd executes probe, dir or vhost.
func runEnumerationCmd(cmd *cobra.Command, mode model.Mode, args []string) error {
	minArgs, maxArgs := config.ArgCount(mode)
	if len(args) < minArgs || len(args) > maxArgs {
		fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
		return nil
	}

	cfg, err := buildConfig(cmd, mode, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runEnumeration(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getBoolFlag reads a bool flag, falling back to the root persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig creates a Config from positional arguments and flags.
func buildConfig(cmd *cobra.Command, mode model.Mode, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.ApplyArgs(mode, args); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	flags := cmd.Flags()
	var err error

	if cfg.RateLimitDelay, err = flags.GetDuration("rate-limit-delay"); err != nil {
		return nil, err
	}
	if cfg.MaxPasses, err = flags.GetInt("max-passes"); err != nil {
		return nil, err
	}
	if cfg.BackoffMultiplier, err = flags.GetFloat64("backoff-multiplier"); err != nil {
		return nil, err
	}
	if cfg.RPS, err = flags.GetFloat64("rps"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.Insecure, err = flags.GetBool("insecure"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}

	rawHeaders, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if cfg.Headers, err = config.ParseHeaders(rawHeaders); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if cfg.SummaryFile, err = flags.GetString("summary"); err != nil {
		return nil, err
	}
	if cfg.SummaryFormat, err = flags.GetString("summary-format"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.NoColor = getBoolFlag(cmd, "no-color")

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicit --config must exist; the implicit search may find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.TargetConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}
	cfg.ApplyTargetConfig(flags.Changed("rate-limit-delay"))

	return cfg, nil
}

// runEnumeration loads the word list, sets up the transport and runs the
// scheduler. Output for the user goes to out.
func runEnumeration(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	var consoleOpts []report.ConsoleOption
	if cfg.NoColor {
		consoleOpts = append(consoleOpts, report.WithColor(false))
	}
	console := report.NewConsole(out, cfg.Mode, consoleOpts...)

	words, err := wordlist.Load(cfg.Wordlist)
	if err != nil {
		if errors.Is(err, wordlist.ErrWordlistNotFound) {
			console.Fatal(fmt.Sprintf("file '%s' not found!", cfg.Wordlist))
			return nil
		}
		return err
	}

	target, err := transport.ParseTarget(cfg.Target)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if target.Onion && cfg.ProxyAddress == "" && !cfg.UseTor {
		return fmt.Errorf("configuration error: %w", transport.ErrOnionRequiresProxy)
	}

	proxyAddr, stopTor, err := setupProxy(ctx, cfg, target, out, logger)
	if err != nil {
		return err
	}
	defer stopTor()

	client, err := transport.NewHTTPClient(transport.Options{
		ProxyAddress:    proxyAddr,
		Timeout:         cfg.Timeout,
		MaxConnsPerHost: cfg.Threads,
		Insecure:        cfg.Insecure,
		Cookie:          cfg.Cookie,
		UserAgent:       cfg.UserAgent,
		Headers:         cfg.Headers,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	var sink report.Sink
	if cfg.Mode.PersistsResults() {
		fileSink, err := report.OpenFileSink(cfg.OutputFile, cfg.Mode)
		if err != nil {
			return err
		}
		defer fileSink.Close()
		sink = fileSink
	}

	prober := probe.New(
		probe.WithHTTPClient(client),
		probe.WithSignal(ratelimit.NewSignal()),
		probe.WithRateLimitDelay(cfg.RateLimitDelay),
		probe.WithThrottle(ratelimit.NewThrottle(cfg.RPS)),
		probe.WithPauseHook(console.Pause),
		probe.WithLogger(logger),
	)

	scheduler := pipeline.NewScheduler(prober,
		pipeline.WithSchedulerLogger(logger),
		pipeline.WithConcurrency(cfg.Threads),
		pipeline.WithPassDelay(cfg.PassDelay),
		pipeline.WithMaxPasses(cfg.MaxPasses),
		pipeline.WithBackoffMultiplier(cfg.BackoffMultiplier),
		pipeline.WithRun(cfg.Mode, cfg.Target, cfg.Wordlist),
		pipeline.WithOutcomeHandler(func(o model.Outcome) {
			console.Outcome(o)
			if sink == nil {
				return
			}
			if err := sink.Record(o); err != nil {
				logger.Error("failed to record result", "value", o.Candidate.Value(), "error", err)
			}
		}),
		pipeline.WithPassHook(func(_, pending int, _ time.Duration) {
			console.Retry(pending)
		}),
	)

	candidates := wordlist.Generate(cfg.Target, words, cfg.Mode, cfg.Exclude)
	summary, runErr := scheduler.Run(ctx, candidates)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if _, err := report.NewSimpleWriter(out).Write(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := writeSummaryFile(cfg, summary); err != nil {
		return err
	}
	if cfg.SaveToDB {
		// The run context may already be cancelled; the history entry is
		// still worth keeping.
		if err := saveRun(context.WithoutCancel(ctx), cfg, summary, out, logger); err != nil {
			return err
		}
	}
	return nil
}

// setupProxy resolves the SOCKS5 address for the run and verifies it.
// The returned stop function is always safe to call.
func setupProxy(ctx context.Context, cfg *config.Config, target *transport.Target, out io.Writer, logger *slog.Logger) (string, func(), error) {
	noop := func() {}

	proxyAddr := cfg.ProxyAddress
	stop := noop

	if cfg.UseTor {
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		embeddedTor := transport.NewEmbeddedTor(
			transport.WithStartupTimeout(cfg.TorStartupTimeout),
			transport.WithTorLogger(logger),
		)
		if err := embeddedTor.Start(ctx); err != nil {
			return "", noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop = func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		addr, err := embeddedTor.ProxyAddress()
		if err != nil {
			stop()
			return "", noop, err
		}
		proxyAddr = addr
		fmt.Fprintf(out, "SOCKS proxy: %s\n\n", proxyAddr)
	}

	if proxyAddr == "" {
		return "", stop, nil
	}
	if !transport.IsValidProxyAddress(proxyAddr) {
		stop()
		return "", noop, fmt.Errorf("%w: %s", transport.ErrInvalidProxyAddress, proxyAddr)
	}

	status := transport.CheckProxy(ctx, proxyAddr, target.HostPort)
	if status != transport.ProxyStatusOK {
		stop()
		return "", noop, fmt.Errorf("proxy check failed for %s: %w", proxyAddr, status.Error())
	}
	logger.Info("proxy connection verified", "address", proxyAddr)

	return proxyAddr, stop, nil
}

// writeSummaryFile writes the run summary to --summary, if set.
func writeSummaryFile(cfg *config.Config, summary *model.RunSummary) error {
	if cfg.SummaryFile == "" {
		return nil
	}

	dir := filepath.Dir(cfg.SummaryFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.SummaryFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	var w report.Writer
	if strings.EqualFold(cfg.SummaryFormat, "json") {
		w = report.NewJSONWriter(f, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	} else {
		w = report.NewMarkdownWriter(f)
	}
	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// saveRun stores the summary in the history database.
func saveRun(ctx context.Context, cfg *config.Config, summary *model.RunSummary, out io.Writer, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("run saved to database", "id", id, "path", db.Path())
	fmt.Fprintf(out, "Saved as run #%d (see: pausescan history %d)\n", id, id)
	return nil
}
