package fsops

import "io"

// Writer abstracts in-place file replacement.
// Enables dry runs and mocking in tests to prove which files would be rewritten.
type Writer interface {
	// Replace rewrites path with whatever write produces. Implementations
	// must leave the original untouched when write fails.
	Replace(path string, write func(io.Writer) error) error
}
