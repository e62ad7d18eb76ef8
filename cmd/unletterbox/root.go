package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"unletterbox/internal/config"
	"unletterbox/internal/dispatch"
	"unletterbox/internal/exitcodes"
	"unletterbox/internal/fsops"
	"unletterbox/internal/history"
	"unletterbox/internal/imaging"
	"unletterbox/internal/limiter"
	"unletterbox/internal/logging"
	"unletterbox/internal/metrics"
	"unletterbox/internal/safety"
	"unletterbox/internal/scheduler"
	"unletterbox/internal/traverse"
)

type options struct {
	input      string
	recursive  bool
	threshold  int
	configPath string

	dryRun    bool
	keepGoing bool
	include   []string
	exclude   []string

	dbPath      string
	metricsFile string
	metricsAddr string
	logDir      string
	verbose     bool
	rate        float64
	watch       string

	// started is set once RunE begins. Errors returned before that come
	// from cobra's argument and flag validation.
	started bool
}

// configError marks failures that map to exitcodes.InvalidConfig.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unletterbox",
		Short: "Remove letterbox bars from images",
		Long: "unletterbox crops the dark bars around images in place. It accepts a single file " +
			"or a directory, optionally recursive, and handles PNG, JPEG, GIF, BMP, TIFF and JPEG XL.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.started = true
			return execute(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "file or directory to process (required)")
	f.BoolVarP(&o.recursive, "recursive", "r", false, "descend into subdirectories")
	f.IntVarP(&o.threshold, "threshold", "t", config.DefaultThreshold, "darkness threshold per RGB channel (0-255)")
	f.StringVar(&o.configPath, "config", "", "YAML configuration file")
	f.BoolVar(&o.dryRun, "dry-run", false, "report what would be cropped without writing files")
	f.BoolVar(&o.keepGoing, "keep-going", false, "continue past failed files and report them all at the end")
	f.StringSliceVar(&o.include, "include", nil, "only process files matching these globs (relative to input)")
	f.StringSliceVar(&o.exclude, "exclude", nil, "skip files matching these globs (relative to input)")
	f.StringVar(&o.dbPath, "db", "", "SQLite history database (empty disables)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each run")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address while running")
	f.StringVar(&o.logDir, "log-dir", "", "also write logs to unletterbox.log in this directory")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")
	f.Float64Var(&o.rate, "rate", 0, "maximum files per second (0 = unlimited)")
	f.StringVar(&o.watch, "watch", "", "re-run every interval (e.g. 10m) until interrupted")

	_ = cmd.MarkFlagRequired("input")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &configError{err: err}
	})
	return cmd
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o := &options{}
	cmd := newRootCmd(o)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !o.started {
		// required flags and positional args are checked outside FlagErrorFunc
		err = &configError{err: err}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var cfgErr *configError
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.As(err, &cfgErr), errors.Is(err, config.ErrThresholdRange):
		return exitcodes.InvalidConfig
	case errors.Is(err, traverse.ErrInputNotFound):
		return exitcodes.InputNotFound
	case errors.Is(err, safety.ErrProtectedPath):
		return exitcodes.SafetyViolation
	default:
		return exitcodes.ProcessingFailed
	}
}

// settings is the merged result of defaults, config file and flags.
type settings struct {
	file     *config.FileConfig
	proc     config.ProcessingConfig
	interval time.Duration
}

// resolve merges flags over the config file over defaults. An explicit flag
// always wins.
func resolve(cmd *cobra.Command, o *options) (*settings, error) {
	if o.input == "" {
		return nil, &configError{err: errors.New("--input must not be empty")}
	}

	fc := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, &configError{err: err}
		}
		fc = loaded
	}

	flags := cmd.Flags()
	threshold := fc.ThresholdOrDefault()
	if flags.Changed("threshold") {
		threshold = o.threshold
	}
	recursive := fc.RecursiveOrDefault()
	if flags.Changed("recursive") {
		recursive = o.recursive
	}
	proc, err := config.NewProcessingConfig(threshold, recursive)
	if err != nil {
		return nil, &configError{err: err}
	}

	if flags.Changed("dry-run") {
		fc.DryRun = o.dryRun
	}
	if flags.Changed("keep-going") {
		fc.KeepGoing = o.keepGoing
	}
	if flags.Changed("include") {
		fc.Include = o.include
	}
	if flags.Changed("exclude") {
		fc.Exclude = o.exclude
	}
	if flags.Changed("db") {
		fc.DatabasePath = o.dbPath
	}
	if flags.Changed("metrics-file") {
		fc.Metrics.Textfile = o.metricsFile
	}
	if flags.Changed("metrics-addr") {
		fc.Metrics.Listen = o.metricsAddr
	}
	if flags.Changed("log-dir") {
		fc.Logging.Dir = o.logDir
	}
	if flags.Changed("verbose") {
		fc.Logging.Verbose = o.verbose
	}
	if flags.Changed("rate") {
		if o.rate < 0 {
			return nil, &configError{err: fmt.Errorf("--rate cannot be negative: %v", o.rate)}
		}
		fc.RateLimit.FilesPerSecond = o.rate
	}

	interval := fc.Interval()
	if flags.Changed("watch") {
		d, err := time.ParseDuration(o.watch)
		if err != nil || d <= 0 {
			return nil, &configError{err: fmt.Errorf("invalid --watch interval %q", o.watch)}
		}
		interval = d
	}

	return &settings{file: fc, proc: proc, interval: interval}, nil
}

func execute(cmd *cobra.Command, o *options) error {
	ctx := cmd.Context()

	s, err := resolve(cmd, o)
	if err != nil {
		return err
	}
	fc := s.file

	logger := logging.New(fc.Logging)
	defer logger.Close()

	logger.Info("unletterbox starting", "input", o.input, "threshold", s.proc.Threshold, "recursive", s.proc.Recursive)

	var writer fsops.Writer = fsops.OSWriter{}
	var dry *fsops.FakeWriter
	if fc.DryRun {
		dry = &fsops.FakeWriter{}
		writer = dry
		logger.Info("DRY RUN MODE: no files will be modified")
	}

	proc := imaging.NewProcessor(writer, fc.JPEGQuality, imaging.JXLTools{
		Djxl:     fc.JXL.Djxl,
		Cjxl:     fc.JXL.Cjxl,
		Distance: fc.JXL.Distance,
		Effort:   fc.JXL.Effort,
	})

	opts := traverse.Options{
		KeepGoing: fc.KeepGoing,
		Include:   fc.Include,
		Exclude:   fc.Exclude,
		Validator: safety.NewValidator(fc.ProtectedPaths),
		Throttle:  limiter.NewThrottle(fc.RateLimit.FilesPerSecond, fc.RateLimit.Burst),
		DryRun:    dry,
		Metrics:   fc.Metrics.Textfile != "" || fc.Metrics.Listen != "",
	}

	if fc.DatabasePath != "" {
		logger.Debug("Opening history database", "path", fc.DatabasePath)
		db, err := history.Open(fc.DatabasePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close history database", "error", err)
			}
		}()
		opts.Recorder = db
	}

	if fc.Metrics.Listen != "" {
		metrics.Init()
		metrics.StartServer(fc.Metrics.Listen, logger.Std())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(shutdownCtx, logger.Std())
		}()
	}

	driver := traverse.New(dispatch.New(proc, logger), logger, opts)

	cycle := func(ctx context.Context) error {
		stats, err := driver.Run(ctx, o.input, s.proc)
		logger.Info("Run complete",
			"files", stats.Files,
			"processed", stats.Processed,
			"cropped", stats.Changed,
			"would_crop", stats.WouldChange,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
			"bytes_saved", stats.BytesSaved,
			"duration", stats.Duration.Round(time.Millisecond),
		)
		if fc.Metrics.Textfile != "" {
			if werr := metrics.WriteTextfile(fc.Metrics.Textfile); werr != nil {
				logger.Warn("Failed to write metrics textfile", "path", fc.Metrics.Textfile, "error", werr)
			}
		}
		return err
	}

	if s.interval > 0 {
		logger.Info("Watch mode", "interval", s.interval)
		err := scheduler.Run(ctx, s.interval, cycle, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return cycle(ctx)
}
