// Package dispatch routes a single file to the matching image operation.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"unletterbox/internal/classify"
	"unletterbox/internal/config"
	"unletterbox/internal/imaging"
)

// Logger is the subset of the application logger the dispatcher writes to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

type Status int

const (
	StatusOK Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome describes what happened to one file.
type Outcome struct {
	Path   string
	Kind   classify.Kind
	Status Status
	Reason string // why a file was skipped
	Err    error  // set when Status is StatusFailed

	// Changed is true when the file content differs after processing.
	Changed      bool
	SizeBefore   int64
	SizeAfter    int64
	DigestBefore uint64
	DigestAfter  uint64
}

// FileProcessingError wraps a collaborator failure with the file it happened on.
type FileProcessingError struct {
	Path string
	Kind classify.Kind
	Err  error
}

func (e *FileProcessingError) Error() string {
	return fmt.Sprintf("failed to process %s file %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FileProcessingError) Unwrap() error {
	return e.Err
}

type Dispatcher struct {
	collab imaging.Collaborator
	logger Logger
}

func New(collab imaging.Collaborator, logger Logger) *Dispatcher {
	return &Dispatcher{collab: collab, logger: logger}
}

// Dispatch classifies path and hands it to the collaborator. Non-image files
// are skipped with a warning and never opened.
func (d *Dispatcher) Dispatch(ctx context.Context, path string, cfg config.ProcessingConfig) Outcome {
	out := Outcome{Path: path, Kind: classify.Classify(path, d.collab)}

	if out.Kind == classify.NonImage {
		d.logger.Warn("Skipping non-image file", "path", path)
		out.Status = StatusSkipped
		out.Reason = "non-image"
		return out
	}

	var err error
	out.SizeBefore, out.DigestBefore, err = fingerprint(path)
	if err != nil {
		return d.fail(out, err)
	}

	switch out.Kind {
	case classify.StructuredFormat:
		d.logger.Info("Processing JXL file", "path", path)
		removal := func(p string) error {
			return d.collab.RemoveLetterbox(ctx, p, cfg.Threshold)
		}
		err = d.collab.ProcessStructuredFormat(ctx, path, removal)
	case classify.StandardImage:
		d.logger.Info("Processing image file", "path", path)
		err = d.collab.RemoveLetterbox(ctx, path, cfg.Threshold)
	}
	if err != nil {
		return d.fail(out, err)
	}

	out.SizeAfter, out.DigestAfter, err = fingerprint(path)
	if err != nil {
		return d.fail(out, err)
	}
	out.Changed = out.DigestAfter != out.DigestBefore || out.SizeAfter != out.SizeBefore
	out.Status = StatusOK

	d.logger.Debug("Processed file", "path", path, "changed", out.Changed,
		"size_before", out.SizeBefore, "size_after", out.SizeAfter)
	return out
}

func (d *Dispatcher) fail(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = &FileProcessingError{Path: out.Path, Kind: out.Kind, Err: err}
	return out
}

// fingerprint returns the size and xxhash64 digest of the file at path.
func fingerprint(path string) (int64, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return n, h.Sum64(), nil
}
