// Package cmd implements the zombielinks command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lukemcguire/zombielinks/app"
	"github.com/lukemcguire/zombielinks/config"
	"github.com/lukemcguire/zombielinks/linkcheck"
	"github.com/lukemcguire/zombielinks/pipeline"
	"github.com/lukemcguire/zombielinks/policy"
	"github.com/lukemcguire/zombielinks/result"
	"github.com/lukemcguire/zombielinks/tui"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

// ErrBrokenLinks is returned when broken links fail the run.
var ErrBrokenLinks = errors.New("broken links found")

// Execute runs the root command against the process arguments.
func Execute() error {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := NewRootCommand(config.New(), os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrBrokenLinks) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// NewRootCommand builds the root command reading settings from v.
func NewRootCommand(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "zombielinks [flags] [root]",
		Short: "Find broken HTTP(S) links in markup and text files",
		Long: `zombielinks scans files under a root directory for absolute HTTP(S) URLs,
checks every unique URL once with a bounded pool of workers and reports the
broken ones together with the files that reference them.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			if err := config.ReadFile(v, cfgFile); err != nil {
				return failEarly(v, err, stdout, stderr)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return failEarly(v, err, stdout, stderr)
			}
			return run(cmd.Context(), cfg, root, stdout, stderr)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultConfigName+".yaml)")
	flags.StringArray("include", nil, "glob of files to scan, repeatable or comma/newline separated")
	flags.StringArray("exclude", nil, "glob of files or directories to skip")
	flags.StringArray("ignore-url", nil, "wildcard pattern of URLs to skip (* within a segment, ** across anything)")
	flags.String("allowed-status", policy.DefaultSpec, "acceptable status codes and ranges")
	flags.Int("concurrency", 16, "number of concurrent workers")
	flags.Int("timeout-ms", 10000, "per-request timeout in milliseconds")
	flags.Bool("fail-on-broken", false, "fail the run when broken links are found")
	flags.Int("max-redirects", 10, "redirect hops followed before a URL counts as broken")
	flags.Int("retries", 0, "retries for transient failures")
	flags.Duration("retry-delay", time.Second, "base delay between retries")
	flags.Int("rate-limit", 0, "initial requests per second per host, 0 disables")
	flags.Bool("respect-robots", false, "skip URLs disallowed by robots.txt")
	flags.String("user-agent", linkcheck.DefaultUserAgent, "User-Agent header")
	flags.StringArray("markup-ext", nil, "file extension parsed as HTML-like markup")
	flags.StringP("format", "f", "text", "report format: text, json, csv or yaml")
	flags.String("progress", "auto", "live progress: auto, always or never")
	flags.String("sink", "auto", "result sink: auto, console, azure or github")
	flags.Bool("debug", false, "enable debug logging")

	bindings := map[string]string{
		config.KeyInclude:           "include",
		config.KeyExclude:           "exclude",
		config.KeyIgnoreURLPatterns: "ignore-url",
		config.KeyAllowedStatus:     "allowed-status",
		config.KeyConcurrency:       "concurrency",
		config.KeyTimeoutMS:         "timeout-ms",
		config.KeyFailOnBroken:      "fail-on-broken",
		config.KeyMaxRedirects:      "max-redirects",
		config.KeyRetries:           "retries",
		config.KeyRetryDelay:        "retry-delay",
		config.KeyRateLimit:         "rate-limit",
		config.KeyRespectRobots:     "respect-robots",
		config.KeyUserAgent:         "user-agent",
		config.KeyMarkupExtensions:  "markup-ext",
		config.KeyFormat:            "format",
		config.KeyProgress:          "progress",
		config.KeySink:              "sink",
		config.KeyDebug:             "debug",
	}
	for key, name := range bindings {
		// Lookup cannot fail for flags registered above.
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zombielinks version %s\n", Version)
		},
	})

	return rootCmd
}

func run(ctx context.Context, cfg config.Config, root string, stdout, stderr io.Writer) error {
	useTUI := wantTUI(cfg, stdout)

	logger := newLogger(cfg.Debug, useTUI, stderr)
	defer func() { _ = logger.Sync() }()

	sink, err := pipeline.Detect(cfg.Sink, sinkWriter(cfg.Format, stdout, stderr), logger)
	if err != nil {
		return err
	}
	_, isConsole := sink.(*pipeline.ConsoleSink)

	opts := app.Options{
		Root:             root,
		Include:          cfg.Include,
		Exclude:          cfg.Exclude,
		IgnorePatterns:   cfg.IgnoreURLPatterns,
		MarkupExtensions: cfg.MarkupExtensions,
		AllowedStatus:    cfg.AllowedStatus,
		FailOnBroken:     cfg.FailOnBroken,
		Checker:          cfg.Checker(),
	}

	var res *result.Result
	if useTUI {
		res, err = runWithTUI(ctx, opts, logger, stdout)
	} else {
		res, err = app.Run(ctx, opts, logger, nil)
	}
	if err != nil {
		pipeline.Fail(sink, err)
		return err
	}

	if !useTUI {
		if err := writeReport(stdout, cfg.Format, res); err != nil {
			return err
		}
	}

	pipeline.Report(sink, res, pipeline.ReportOptions{
		FailOnBroken: cfg.FailOnBroken,
		Root:         root,
		PerEntry:     !isConsole,
	})

	if !res.Succeeded() {
		return ErrBrokenLinks
	}
	return nil
}

// failEarly reports a configuration error to the sink named by the raw
// settings, falling back to auto detection when that name is invalid too.
func failEarly(v *viper.Viper, err error, stdout, stderr io.Writer) error {
	logger := newLogger(v.GetBool(config.KeyDebug), false, stderr)
	defer func() { _ = logger.Sync() }()

	w := sinkWriter(v.GetString(config.KeyFormat), stdout, stderr)
	sink, detectErr := pipeline.Detect(v.GetString(config.KeySink), w, logger)
	if detectErr != nil {
		sink, _ = pipeline.Detect(pipeline.KindAuto, w, logger)
	}
	pipeline.Fail(sink, err)
	return err
}

// sinkWriter keeps stdout free for machine-readable reports. Build agents
// pick up logging commands on either stream.
func sinkWriter(format string, stdout, stderr io.Writer) io.Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "csv", "yaml":
		return stderr
	}
	return stdout
}

func runWithTUI(ctx context.Context, opts app.Options, logger *zap.Logger, stdout io.Writer) (*result.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressCh := make(chan linkcheck.CheckEvent, 100)
	runFn := func(ctx context.Context) (*result.Result, error) {
		defer close(progressCh)
		return app.Run(ctx, opts, logger, progressCh)
	}

	program := tea.NewProgram(tui.NewModel(ctx, cancel, runFn, progressCh), tea.WithOutput(stdout), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("run progress UI: %w", err)
	}

	model, ok := finalModel.(tui.Model)
	if !ok {
		return nil, fmt.Errorf("unexpected progress UI model %T", finalModel)
	}
	if model.Err() != nil {
		return nil, model.Err()
	}
	if model.Result() == nil {
		return nil, context.Canceled
	}
	return model.Result(), nil
}

// wantTUI reports whether the live progress UI should be shown.
func wantTUI(cfg config.Config, stdout io.Writer) bool {
	switch cfg.Progress {
	case "never":
		return false
	case "always":
		return cfg.Format == "text"
	}
	if cfg.Format != "text" || os.Getenv("TF_BUILD") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return false
	}
	f, ok := stdout.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// newLogger builds a console logger on w. While the progress UI owns the
// terminal only errors are logged unless debug is on.
func newLogger(debug, quiet bool, w io.Writer) *zap.Logger {
	level := zapcore.InfoLevel
	switch {
	case debug:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.ErrorLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func writeReport(w io.Writer, format string, res *result.Result) error {
	var err error
	switch format {
	case "json":
		err = result.WriteJSON(w, res.BrokenLinks)
	case "csv":
		err = result.WriteCSV(w, res.BrokenLinks)
	case "yaml":
		err = result.WriteYAML(w, res.BrokenLinks)
	default:
		result.PrintResults(w, res)
	}
	if err != nil {
		return fmt.Errorf("write %s report: %w", format, err)
	}
	return nil
}
