// Package integration holds end-to-end tests that run the real image
// processor against files on disk.
package integration
