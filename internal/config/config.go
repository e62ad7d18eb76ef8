package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultThreshold is the per-channel darkness threshold used when none is given.
const DefaultThreshold = 10

type MetricsCfg struct {
	Textfile string `yaml:"textfile" json:"textfile"` // node_exporter textfile written at the end of a run
	Listen   string `yaml:"listen" json:"listen"`     // optional /metrics listen address, e.g. ":9090"
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`                     // empty = stdout only
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	Verbose      bool   `yaml:"verbose" json:"verbose"`
}

type RateLimitCfg struct {
	FilesPerSecond float64 `yaml:"files_per_second" json:"files_per_second"` // 0 = unlimited
	Burst          int     `yaml:"burst" json:"burst"`
}

type JXLCfg struct {
	Djxl     string  `yaml:"djxl" json:"djxl"`         // decoder binary (default: djxl on $PATH)
	Cjxl     string  `yaml:"cjxl" json:"cjxl"`         // encoder binary (default: cjxl on $PATH)
	Distance float64 `yaml:"distance" json:"distance"` // 0 = mathematically lossless
	Effort   int     `yaml:"effort" json:"effort"`     // 1..9
}

// FileConfig is the on-disk YAML configuration. Threshold and Recursive are
// pointers so an explicit zero/false in the file is distinguishable from unset.
type FileConfig struct {
	Threshold      *int         `yaml:"threshold" json:"threshold"`
	Recursive      *bool        `yaml:"recursive" json:"recursive"`
	DryRun         bool         `yaml:"dry_run" json:"dry_run"`
	KeepGoing      bool         `yaml:"keep_going" json:"keep_going"`
	Include        []string     `yaml:"include" json:"include"`
	Exclude        []string     `yaml:"exclude" json:"exclude"`
	DatabasePath   string       `yaml:"database_path" json:"database_path"` // SQLite processing history; empty disables
	Metrics        MetricsCfg   `yaml:"metrics" json:"metrics"`
	Logging        LoggingCfg   `yaml:"logging" json:"logging"`
	RateLimit      RateLimitCfg `yaml:"rate_limit" json:"rate_limit"`
	JXL            JXLCfg       `yaml:"jxl" json:"jxl"`
	JPEGQuality    int          `yaml:"jpeg_quality" json:"jpeg_quality"`
	ProtectedPaths []string     `yaml:"protected_paths" json:"protected_paths"`
	WatchInterval  string       `yaml:"watch_interval" json:"watch_interval"` // e.g. "5m"; empty = run once
}

var (
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeRate    = errors.New("rate_limit.files_per_second cannot be negative")
	errInvalidQuality  = errors.New("jpeg_quality must be between 1 and 100")
	errInvalidEffort   = errors.New("jxl.effort must be between 1 and 9")
	errInvalidDistance = errors.New("jxl.distance must be between 0 and 25")
	errInvalidInterval = errors.New("watch_interval must be a positive duration")
)

// Default returns a FileConfig with every default applied, for runs without a
// config file.
func Default() *FileConfig {
	cfg := &FileConfig{}
	_ = cfg.validateAndDefault()
	return cfg
}

func Load(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*FileConfig, error) {
	cfg := &FileConfig{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *FileConfig) validateAndDefault() error {
	if c.Threshold != nil {
		if err := checkThreshold(*c.Threshold); err != nil {
			return err
		}
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	if c.RateLimit.FilesPerSecond < 0 {
		return errNegativeRate
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}

	if c.JPEGQuality == 0 {
		c.JPEGQuality = 95
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errInvalidQuality
	}

	if c.JXL.Djxl == "" {
		c.JXL.Djxl = "djxl"
	}
	if c.JXL.Cjxl == "" {
		c.JXL.Cjxl = "cjxl"
	}
	if c.JXL.Effort == 0 {
		c.JXL.Effort = 7
	}
	if c.JXL.Effort < 1 || c.JXL.Effort > 9 {
		return errInvalidEffort
	}
	if c.JXL.Distance < 0 || c.JXL.Distance > 25 {
		return errInvalidDistance
	}

	if c.WatchInterval != "" {
		d, err := time.ParseDuration(c.WatchInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %q", errInvalidInterval, c.WatchInterval)
		}
	}

	for i, p := range c.ProtectedPaths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return err
		}
		c.ProtectedPaths[i] = cp
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// Interval returns the watch interval, or zero for a single run.
func (c *FileConfig) Interval() time.Duration {
	if c.WatchInterval == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.WatchInterval)
	return d
}

// ThresholdOrDefault returns the configured threshold or DefaultThreshold.
func (c *FileConfig) ThresholdOrDefault() int {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}

// RecursiveOrDefault returns the configured recursion flag (default false).
func (c *FileConfig) RecursiveOrDefault() bool {
	return c.Recursive != nil && *c.Recursive
}
