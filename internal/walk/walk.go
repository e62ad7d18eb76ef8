// Package walk enumerates candidate files under a root directory.
package walk

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// DirectoryReadError reports a directory whose entries could not be listed.
type DirectoryReadError struct {
	Dir string
	Err error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("failed to read directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryReadError) Unwrap() error {
	return e.Err
}

// Func is the shape of Walk, for callers that substitute their own listing.
type Func func(root string, recursive bool) iter.Seq2[string, error]

// frame is one directory on the current descent path.
type frame struct {
	dir     string
	key     string // symlink-resolved dir, for cycle detection
	entries []os.DirEntry
	next    int
}

// Walk returns a lazy, single-use sequence of regular files under root.
//
// Each directory is listed once, when it is entered. Subdirectories are
// descended depth-first at the point they are encountered, and only when
// recursive is set; otherwise they are skipped silently. Entries that are
// neither regular files nor directories, or that vanish before they are
// inspected, are ignored. A directory that cannot be listed yields a
// *DirectoryReadError and ends the sequence.
func Walk(root string, recursive bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		top, err := enter(root)
		if err != nil {
			yield(root, err)
			return
		}
		stack := []*frame{top}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			if f.next >= len(f.entries) {
				stack = stack[:len(stack)-1]
				continue
			}
			p := filepath.Join(f.dir, f.entries[f.next].Name())
			f.next++

			// Stat, not Lstat: symlinks count as what they point to.
			info, err := os.Stat(p)
			if err != nil {
				continue
			}

			switch {
			case info.Mode().IsRegular():
				if !yield(p, nil) {
					return
				}
			case info.IsDir() && recursive:
				key := resolve(p)
				if onStack(stack, key) {
					continue
				}
				sub, err := enter(p)
				if err != nil {
					yield(p, err)
					return
				}
				stack = append(stack, sub)
			}
		}
	}
}

func enter(dir string) (*frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryReadError{Dir: dir, Err: err}
	}
	return &frame{dir: dir, key: resolve(dir), entries: entries}, nil
}

func resolve(dir string) string {
	if r, err := filepath.EvalSymlinks(dir); err == nil {
		if abs, err := filepath.Abs(r); err == nil {
			return abs
		}
		return r
	}
	return filepath.Clean(dir)
}

func onStack(stack []*frame, key string) bool {
	for _, f := range stack {
		if f.key == key {
			return true
		}
	}
	return false
}
