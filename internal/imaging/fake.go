package imaging

import (
	"context"
	"path/filepath"
	"strings"
)

// FakeCollaborator implements Collaborator for tests.
// Records every call and never touches the file system unless Crop is set.
type FakeCollaborator struct {
	Calls []string

	// Fail maps a path to the error returned for it.
	Fail map[string]error

	// Crop, when set, is called by RemoveLetterbox so tests can mutate files.
	Crop func(path string, threshold uint8) error

	// Thresholds records the threshold seen by each RemoveLetterbox call.
	Thresholds []uint8
}

func (f *FakeCollaborator) IsStructuredFormat(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jxl")
}

func (f *FakeCollaborator) IsSupportedImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

func (f *FakeCollaborator) RemoveLetterbox(ctx context.Context, path string, threshold uint8) error {
	f.Calls = append(f.Calls, "remove:"+path)
	f.Thresholds = append(f.Thresholds, threshold)
	if err := f.Fail[path]; err != nil {
		return err
	}
	if f.Crop != nil {
		return f.Crop(path, threshold)
	}
	return nil
}

func (f *FakeCollaborator) ProcessStructuredFormat(ctx context.Context, path string, fn RemovalFunc) error {
	f.Calls = append(f.Calls, "structured:"+path)
	if err := f.Fail[path]; err != nil {
		return err
	}
	return fn(path)
}
