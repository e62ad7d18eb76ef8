// Package filter narrows a run to files matching include and exclude globs.
package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches paths relative to a root against doublestar globs.
// An empty include list admits everything; exclude always wins.
type Filter struct {
	root    string
	include []string
	exclude []string
}

// New validates the patterns and returns a Filter rooted at root.
func New(root string, include, exclude []string) (*Filter, error) {
	inc, err := clean(include)
	if err != nil {
		return nil, err
	}
	exc, err := clean(exclude)
	if err != nil {
		return nil, err
	}
	return &Filter{root: root, include: inc, exclude: exc}, nil
}

func clean(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		for _, g := range strings.Split(p, ",") {
			g = strings.TrimPrefix(strings.TrimSpace(g), "./")
			if g == "" {
				continue
			}
			if !doublestar.ValidatePattern(g) {
				return nil, fmt.Errorf("invalid glob %q", g)
			}
			out = append(out, g)
		}
	}
	return out, nil
}

// Empty reports whether the filter admits every path.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// Allow reports whether path passes the filter.
func (f *Filter) Allow(path string) bool {
	if f.Empty() {
		return true
	}
	rel := path
	if r, err := filepath.Rel(f.root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	rel = filepath.ToSlash(rel)

	if len(f.include) > 0 && !matchAnyGlob(rel, f.include) {
		return false
	}
	return !matchAnyGlob(rel, f.exclude)
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}
