// Package traverse drives a run: it validates the input, walks it when it is
// a directory and dispatches every file in turn.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"unletterbox/internal/config"
	"unletterbox/internal/dispatch"
	"unletterbox/internal/filter"
	"unletterbox/internal/fsops"
	"unletterbox/internal/history"
	"unletterbox/internal/limiter"
	"unletterbox/internal/metrics"
	"unletterbox/internal/safety"
	"unletterbox/internal/walk"
)

// Logger is the subset of the application logger the driver writes to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Recorder persists one row per file.
type Recorder interface {
	RecordOperation(r history.Record) error
}

// Options tune a Driver. The zero value is a plain fail-fast run.
type Options struct {
	// KeepGoing continues past file failures and returns them joined.
	// Directory read errors still end the run.
	KeepGoing bool

	Include []string
	Exclude []string

	Validator *safety.Validator
	Throttle  *limiter.Throttle
	Recorder  Recorder

	// DryRun is the writer the collaborator was built with in dry-run mode.
	// Files it saw a replace for are reported as would-be crops.
	DryRun *fsops.FakeWriter

	// Metrics enables Prometheus collection per file and per run.
	Metrics bool

	// Walk lists directory inputs. Nil means walk.Walk.
	Walk walk.Func
}

// RunStats summarizes one run.
type RunStats struct {
	RunID       string
	Files       int
	Processed   int
	Changed     int
	WouldChange int
	Skipped     int
	Failed      int
	BytesSaved  int64
	Duration    time.Duration
}

type Driver struct {
	dispatcher *dispatch.Dispatcher
	logger     Logger
	opts       Options
}

func New(d *dispatch.Dispatcher, logger Logger, opts Options) *Driver {
	if opts.Metrics {
		metrics.Init()
	}
	if opts.Walk == nil {
		opts.Walk = walk.Walk
	}
	return &Driver{dispatcher: d, logger: logger, opts: opts}
}

// Run processes input with cfg. A file is dispatched once; a directory is
// walked, descending only when cfg.Recursive is set. The first failure ends
// the run unless KeepGoing is set. Cancelling ctx stops the run after the
// file in progress.
func (d *Driver) Run(ctx context.Context, input string, cfg config.ProcessingConfig) (stats RunStats, err error) {
	start := time.Now()
	stats.RunID = history.NewRunID()
	defer func() {
		stats.Duration = time.Since(start)
		if d.opts.Metrics {
			metrics.RecordRun(stats.Duration, err)
		}
	}()

	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, &InputNotFoundError{Path: input, Err: err}
		}
		return stats, fmt.Errorf("stat input %s: %w", input, err)
	}
	if d.opts.Validator != nil {
		if err := d.opts.Validator.ValidateInput(input); err != nil {
			return stats, err
		}
	}

	root := input
	if !info.IsDir() {
		root = filepath.Dir(input)
	}
	flt, err := filter.New(root, d.opts.Include, d.opts.Exclude)
	if err != nil {
		return stats, err
	}

	if !info.IsDir() {
		return stats, d.visit(ctx, input, input, cfg, flt, &stats)
	}

	d.logger.Info("Processing directory", "path", input, "recursive", cfg.Recursive)

	var failures []error
	for path, werr := range d.opts.Walk(input, cfg.Recursive) {
		if werr != nil {
			return stats, joinFailures(failures, werr)
		}
		if err := ctx.Err(); err != nil {
			return stats, joinFailures(failures, err)
		}

		err := d.visit(ctx, input, path, cfg, flt, &stats)
		if err == nil {
			continue
		}
		if !d.opts.KeepGoing || ctx.Err() != nil {
			return stats, joinFailures(failures, err)
		}
		d.logger.Error("File failed, continuing", "error", err)
		failures = append(failures, err)
	}
	return stats, errors.Join(failures...)
}

func joinFailures(failures []error, err error) error {
	if len(failures) == 0 {
		return err
	}
	return errors.Join(append(failures, err)...)
}

func (d *Driver) visit(ctx context.Context, root, path string, cfg config.ProcessingConfig, flt *filter.Filter, stats *RunStats) error {
	stats.Files++

	if !flt.Allow(path) {
		d.logger.Debug("Excluded by filter", "path", path)
		stats.Skipped++
		return nil
	}
	if d.opts.Validator != nil {
		if err := d.opts.Validator.ValidateTarget(root, path); err != nil {
			d.logger.Warn("Skipping unsafe file", "path", path, "error", err)
			stats.Skipped++
			d.record(stats.RunID, cfg, dispatch.Outcome{Path: path, Status: dispatch.StatusSkipped, Reason: err.Error()}, false)
			return nil
		}
	}
	if err := d.opts.Throttle.Wait(ctx); err != nil {
		return err
	}

	if d.opts.DryRun != nil {
		d.opts.DryRun.Reset()
	}
	start := time.Now()
	out := d.dispatcher.Dispatch(ctx, path, cfg)
	elapsed := time.Since(start)
	wouldChange := d.opts.DryRun != nil && len(d.opts.DryRun.Calls) > 0

	var saved int64
	switch out.Status {
	case dispatch.StatusOK:
		stats.Processed++
		if out.Changed {
			stats.Changed++
			saved = out.SizeBefore - out.SizeAfter
			stats.BytesSaved += saved
		}
		if wouldChange {
			stats.WouldChange++
			d.logger.Info("Would remove letterbox", "path", path)
		}
	case dispatch.StatusSkipped:
		stats.Skipped++
	case dispatch.StatusFailed:
		stats.Failed++
	}

	d.record(stats.RunID, cfg, out, wouldChange)
	if d.opts.Metrics {
		metrics.RecordFile(out.Kind.String(), out.Status.String(), out.Changed, saved, elapsed)
	}

	if out.Status == dispatch.StatusFailed {
		return out.Err
	}
	return nil
}

func (d *Driver) record(runID string, cfg config.ProcessingConfig, out dispatch.Outcome, wouldChange bool) {
	if d.opts.Recorder == nil {
		return
	}

	r := history.Record{
		RunID:      runID,
		Path:       out.Path,
		Kind:       out.Kind.String(),
		Threshold:  int(cfg.Threshold),
		SizeBefore: out.SizeBefore,
		SizeAfter:  out.SizeAfter,
		Reason:     out.Reason,
	}
	if out.DigestBefore != 0 || out.DigestAfter != 0 {
		r.DigestBefore = fmt.Sprintf("%016x", out.DigestBefore)
		r.DigestAfter = fmt.Sprintf("%016x", out.DigestAfter)
	}

	switch {
	case out.Status == dispatch.StatusFailed:
		r.Action = history.ActionFailed
		if out.Err != nil {
			r.ErrorMessage = out.Err.Error()
		}
	case out.Status == dispatch.StatusSkipped:
		r.Action = history.ActionSkipped
	case out.Changed:
		r.Action = history.ActionCropped
	case wouldChange:
		r.Action = history.ActionDryRun
	default:
		r.Action = history.ActionUnchanged
	}

	if err := d.opts.Recorder.RecordOperation(r); err != nil {
		d.logger.Warn("Failed to record history", "path", out.Path, "error", err)
	}
}
