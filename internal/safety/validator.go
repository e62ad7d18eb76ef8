package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrProtectedPath = errors.New("protected path")
	ErrSymlinkEscape = errors.New("symlink escape detected")
)

// systemRoots may not be given as the input itself. Paths below them are
// allowed, so /usr/share/backgrounds can still be processed.
var systemRoots = []string{"/", "/etc", "/bin", "/usr", "/boot", "/lib", "/lib64", "/sbin"}

// Validator guards which paths a run may rewrite.
type Validator struct {
	// ProtectedPaths are configured trees; nothing at or under them is touched.
	ProtectedPaths []string
}

// NewValidator creates a validator protecting the given trees in addition
// to the system roots.
func NewValidator(extraProtected []string) *Validator {
	protected := make([]string, 0, len(extraProtected))
	for _, p := range extraProtected {
		protected = append(protected, filepath.Clean(p))
	}
	return &Validator{ProtectedPaths: protected}
}

// ValidateInput rejects an input that is exactly a system root, or is at or
// under a configured protected tree.
func (v *Validator) ValidateInput(input string) error {
	p, err := NormalizePath(input)
	if err != nil {
		return err
	}
	if v.protected(p) {
		return fmt.Errorf("%w: %s", ErrProtectedPath, p)
	}
	return nil
}

// ValidateTarget checks a file found under root before it is rewritten.
// A file whose resolved location leaves root, or lands on a protected path,
// is rejected. A file that no longer exists passes; opening it fails later.
func (v *Validator) ValidateTarget(root, file string) error {
	r, err := resolve(root)
	if err != nil {
		return err
	}
	p, err := NormalizePath(file)
	if err != nil {
		return err
	}

	resolved, err := resolve(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !under(resolved, r) {
		return fmt.Errorf("%w: %s -> %s", ErrSymlinkEscape, file, resolved)
	}
	if v.protected(p) || v.protected(resolved) {
		return fmt.Errorf("%w: %s", ErrProtectedPath, file)
	}
	return nil
}

func (v *Validator) protected(p string) bool {
	for _, root := range systemRoots {
		if p == root {
			return true
		}
	}
	for _, prot := range v.ProtectedPaths {
		if prot == string(os.PathSeparator) {
			// a configured "/" protects itself only
			if p == prot {
				return true
			}
			continue
		}
		if under(p, prot) {
			return true
		}
	}
	return false
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return filepath.Clean(abs), nil
}

// resolve returns the absolute path with every symlink followed.
func resolve(path string) (string, error) {
	abs, err := NormalizePath(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

// under reports whether p equals dir or sits below it.
func under(p, dir string) bool {
	if p == dir {
		return true
	}
	if dir == string(os.PathSeparator) {
		return true
	}
	return strings.HasPrefix(p, dir+string(os.PathSeparator))
}
