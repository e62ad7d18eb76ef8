package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unletterbox/internal/config"
	"unletterbox/internal/exitcodes"
	"unletterbox/internal/history"
	"unletterbox/internal/safety"
	"unletterbox/internal/traverse"
)

func writeBoxed(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			c := color.NRGBA{R: 200, G: 180, B: 160, A: 255}
			if y < 25 || y >= 75 {
				c = color.NRGBA{A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func height(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Height
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	writeBoxed(t, img)

	badCfg := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badCfg, []byte("threshold: 999\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing input flag", nil, exitcodes.InvalidConfig},
		{"empty input value", []string{"-i", ""}, exitcodes.InvalidConfig},
		{"stray positional argument", []string{"-i", dir, "extra"}, exitcodes.InvalidConfig},
		{"threshold too high", []string{"-i", dir, "-t", "256"}, exitcodes.InvalidConfig},
		{"threshold negative", []string{"-i", dir, "-t", "-1"}, exitcodes.InvalidConfig},
		{"threshold not a number", []string{"-i", dir, "-t", "dark"}, exitcodes.InvalidConfig},
		{"unknown flag", []string{"-i", dir, "--bogus"}, exitcodes.InvalidConfig},
		{"bad config file", []string{"-i", dir, "--config", badCfg}, exitcodes.InvalidConfig},
		{"bad watch interval", []string{"-i", dir, "--watch", "soon"}, exitcodes.InvalidConfig},
		{"missing input path", []string{"-i", filepath.Join(dir, "absent")}, exitcodes.InputNotFound},
		{"protected input", []string{"-i", "/"}, exitcodes.SafetyViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}

	// none of the failures above touched the image
	assert.Equal(t, 100, height(t, img))
}

func TestRootCmd_InputRequired(t *testing.T) {
	o := &options{}
	cmd := newRootCmd(o)
	cmd.SetArgs([]string{"-r"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"input"`)
	assert.False(t, o.started, "RunE must not run without --input")
}

func TestRun_CropsDirectory(t *testing.T) {
	dir := t.TempDir()
	top := filepath.Join(dir, "top.png")
	nested := filepath.Join(dir, "sub", "nested.png")
	writeBoxed(t, top)
	writeBoxed(t, nested)
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o644))

	require.Equal(t, exitcodes.Success, run([]string{"-i", dir}))
	assert.Equal(t, 50, height(t, top))
	assert.Equal(t, 100, height(t, nested))

	require.Equal(t, exitcodes.Success, run([]string{"-i", dir, "-r"}))
	assert.Equal(t, 50, height(t, nested))

	data, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRun_DryRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "media", "a.png")
	writeBoxed(t, img)
	dbPath := filepath.Join(dir, "state", "history.db")
	prom := filepath.Join(dir, "unletterbox.prom")

	code := run([]string{"-i", filepath.Dir(img), "--dry-run", "--db", dbPath, "--metrics-file", prom})
	require.Equal(t, exitcodes.Success, code)
	assert.Equal(t, 100, height(t, img))

	db, err := history.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	recs, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, history.ActionDryRun, recs[0].Action)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "unletterbox_files_processed_total"))
}

func TestRun_ConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "sub", "a.png")
	writeBoxed(t, img)
	cfgPath := filepath.Join(dir, "unletterbox.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("recursive: true\nthreshold: 5\n"), 0o644))

	// the flag turns recursion back off
	require.Equal(t, exitcodes.Success, run([]string{"-i", dir, "--config", cfgPath, "-r=false"}))
	assert.Equal(t, 100, height(t, img))

	require.Equal(t, exitcodes.Success, run([]string{"-i", dir, "--config", cfgPath}))
	assert.Equal(t, 50, height(t, img))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitcodes.Success, exitCode(nil))
	assert.Equal(t, exitcodes.InvalidConfig, exitCode(config.ErrThresholdRange))
	assert.Equal(t, exitcodes.InputNotFound, exitCode(&traverse.InputNotFoundError{Path: "/x"}))
	assert.Equal(t, exitcodes.SafetyViolation, exitCode(safety.ErrProtectedPath))
	assert.Equal(t, exitcodes.ProcessingFailed, exitCode(errors.New("decode failed")))
}
