package classify

import (
	"path/filepath"
	"strings"
	"testing"
)

type extDetector struct{}

func (extDetector) IsStructuredFormat(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".jxl")
}

func (extDetector) IsSupportedImage(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".png", ".jpg", ".jxl":
		return true
	}
	return false
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"/photos/a.jxl", StructuredFormat},
		{"/photos/A.JXL", StructuredFormat},
		{"/photos/a.png", StandardImage},
		{"relative/b.jpg", StandardImage},
		{"/photos/notes.txt", NonImage},
		{"/photos/noext", NonImage},
		{"/does/not/exist.png", StandardImage},
		{"", NonImage},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Classify(tt.path, extDetector{}); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if StructuredFormat.String() != "structured" || StandardImage.String() != "image" || NonImage.String() != "non-image" {
		t.Errorf("unexpected names: %s %s %s", StructuredFormat, StandardImage, NonImage)
	}
}
