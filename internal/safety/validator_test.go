package safety

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestProtectedRoots(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"etc", "/etc", true},
		{"etc subdir", "/etc/ssh", false},
		{"bin", "/bin", true},
		{"usr", "/usr", true},
		{"usr share", "/usr/share/backgrounds", false},
		{"boot", "/boot", true},
		{"lib", "/lib", true},
		{"lib64", "/lib64", true},
		{"sbin", "/sbin", true},
		{"extra", "/srv/originals", true},
		{"extra child", "/srv/originals/a.png", true},
		{"srv sibling", "/srv/scans", false},
		{"tmp allowed", "/tmp", false},
		{"home user pictures", "/home/user/Pictures", false},
		{"etcetera prefix only", "/etcetera", false},
	}

	v := NewValidator([]string{"/srv/originals/"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.protected(tt.path); got != tt.expected {
				t.Errorf("protected(%s) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"absolute path", "/tmp/file.png", false},
		{"relative path", "file.png", false},
		{"path with dots", "/tmp/./file.png", false},
		{"empty path", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePath(tt.path)
			if tt.expectError {
				if err == nil {
					t.Errorf("NormalizePath(%s) expected error, got nil", tt.path)
				}
				return
			}
			if err != nil {
				t.Errorf("NormalizePath(%s) unexpected error: %v", tt.path, err)
			}
			if !filepath.IsAbs(result) {
				t.Errorf("NormalizePath(%s) = %s, expected absolute path", tt.path, result)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	v := NewValidator(nil)

	if err := v.ValidateInput("/etc"); !errors.Is(err, ErrProtectedPath) {
		t.Errorf("expected ErrProtectedPath for /etc, got %v", err)
	}
	if err := v.ValidateInput("/"); !errors.Is(err, ErrProtectedPath) {
		t.Errorf("expected ErrProtectedPath for /, got %v", err)
	}
	if err := v.ValidateInput("/usr/share/backgrounds"); err != nil {
		t.Errorf("directory below a system root rejected: %v", err)
	}
	if err := NewValidator([]string{"/srv/originals"}).ValidateInput("/srv/originals/2024"); !errors.Is(err, ErrProtectedPath) {
		t.Errorf("expected ErrProtectedPath under a configured tree, got %v", err)
	}
	if err := v.ValidateInput(""); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath for empty input, got %v", err)
	}
	if err := v.ValidateInput(t.TempDir()); err != nil {
		t.Errorf("temp dir rejected: %v", err)
	}
}

// TestValidateTargetSymlinkEscape verifies a link pointing out of the input
// root is rejected while regular files and in-root links pass.
func TestValidateTargetSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	inside := filepath.Join(root, "a.png")
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(outside, "b.png")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	escape := filepath.Join(root, "escape.png")
	if err := os.Symlink(target, escape); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	internal := filepath.Join(root, "alias.png")
	if err := os.Symlink(inside, internal); err != nil {
		t.Fatal(err)
	}

	v := NewValidator(nil)
	if err := v.ValidateTarget(root, inside); err != nil {
		t.Errorf("regular file rejected: %v", err)
	}
	if err := v.ValidateTarget(root, internal); err != nil {
		t.Errorf("in-root link rejected: %v", err)
	}
	if err := v.ValidateTarget(root, escape); !errors.Is(err, ErrSymlinkEscape) {
		t.Errorf("expected ErrSymlinkEscape, got %v", err)
	}
	if err := v.ValidateTarget(root, filepath.Join(root, "missing.png")); err != nil {
		t.Errorf("missing file should pass validation, got %v", err)
	}
}

// TestValidateTargetSingleFileRoot covers a file given directly as input.
func TestValidateTargetSingleFileRoot(t *testing.T) {
	f := filepath.Join(t.TempDir(), "one.png")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewValidator(nil).ValidateTarget(f, f); err != nil {
		t.Errorf("single file rejected: %v", err)
	}
}
