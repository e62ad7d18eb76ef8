package imaging

import "context"

// RemovalFunc removes the letterbox from the image at path. It is handed to
// ProcessStructuredFormat and applied to the decoded intermediate file.
type RemovalFunc func(path string) error

// Collaborator is everything the dispatcher needs from an image backend.
type Collaborator interface {
	IsStructuredFormat(path string) bool
	IsSupportedImage(path string) bool
	RemoveLetterbox(ctx context.Context, path string, threshold uint8) error
	ProcessStructuredFormat(ctx context.Context, path string, fn RemovalFunc) error
}
