package config

import (
	"errors"
	"fmt"
)

// ErrThresholdRange is returned when a threshold falls outside 0..255.
var ErrThresholdRange = errors.New("threshold must be between 0 and 255")

// ProcessingConfig is the per-run processing configuration. It is built once
// by NewProcessingConfig and passed by value through the whole traversal.
type ProcessingConfig struct {
	Threshold uint8 // per-channel darkness threshold; a pixel at or below it on every channel is letterbox
	Recursive bool  // descend into subdirectories
}

// NewProcessingConfig validates threshold and returns a ProcessingConfig.
func NewProcessingConfig(threshold int, recursive bool) (ProcessingConfig, error) {
	if err := checkThreshold(threshold); err != nil {
		return ProcessingConfig{}, err
	}
	return ProcessingConfig{Threshold: uint8(threshold), Recursive: recursive}, nil
}

func checkThreshold(t int) error {
	if t < 0 || t > 255 {
		return fmt.Errorf("%w: got %d", ErrThresholdRange, t)
	}
	return nil
}
