package imaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// JXLTools locates and tunes the libjxl command-line tools.
type JXLTools struct {
	Djxl     string  // decoder binary
	Cjxl     string  // encoder binary
	Distance float64 // Butteraugli distance, 0 is lossless
	Effort   int     // 1..9
}

func (t JXLTools) withDefaults() JXLTools {
	if t.Djxl == "" {
		t.Djxl = "djxl"
	}
	if t.Cjxl == "" {
		t.Cjxl = "cjxl"
	}
	if t.Effort == 0 {
		t.Effort = 7
	}
	return t
}

// ToolError is returned when djxl or cjxl exits unsuccessfully.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, msg)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ProcessStructuredFormat decodes the JPEG XL file at path to a temporary PNG,
// applies fn to it and, if fn changed the PNG, re-encodes it and replaces the
// original. The original is not touched when fn leaves the PNG as it was.
func (p *Processor) ProcessStructuredFormat(ctx context.Context, path string, fn RemovalFunc) error {
	if err := checkJXLSignature(path); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "unletterbox-jxl-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	frame := filepath.Join(tmpDir, "frame.png")
	if err := p.run(ctx, p.jxl.Djxl, path, frame); err != nil {
		return err
	}

	before, err := os.ReadFile(frame)
	if err != nil {
		return fmt.Errorf("read decoded frame: %w", err)
	}
	if err := fn(frame); err != nil {
		return err
	}
	after, err := os.ReadFile(frame)
	if err != nil {
		return fmt.Errorf("read processed frame: %w", err)
	}
	if bytes.Equal(before, after) {
		return nil
	}

	encoded := filepath.Join(tmpDir, "out.jxl")
	if err := p.run(ctx, p.jxl.Cjxl, frame, encoded,
		"-d", strconv.FormatFloat(p.jxl.Distance, 'f', -1, 64),
		"-e", strconv.Itoa(p.jxl.Effort),
	); err != nil {
		return err
	}

	return p.writer.Replace(path, func(w io.Writer) error {
		src, err := os.Open(encoded)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
}

func (p *Processor) run(ctx context.Context, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: filepath.Base(tool), Stderr: stderrBuf.String(), Err: err}
	}
	return nil
}
