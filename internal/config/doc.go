// Package config holds runtime configuration: the immutable per-run
// ProcessingConfig and the optional YAML FileConfig with its defaults and
// validation. CLI flags are merged over the file by the command layer.
package config
