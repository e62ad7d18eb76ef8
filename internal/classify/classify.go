// Package classify decides which processing route a path takes.
package classify

// Kind is the processing category of a path.
type Kind int

const (
	NonImage         Kind = iota // anything that is not a supported image
	StandardImage                // raster image cropped in place
	StructuredFormat             // container that needs decode, transform and re-encode (JPEG XL)
)

func (k Kind) String() string {
	switch k {
	case StructuredFormat:
		return "structured"
	case StandardImage:
		return "image"
	default:
		return "non-image"
	}
}

// Detector is the format-recognition capability of the image collaborator.
type Detector interface {
	IsStructuredFormat(path string) bool
	IsSupportedImage(path string) bool
}

// Classify returns the Kind of path. It performs no I/O; a path that does not
// exist is classified by its name alone.
func Classify(path string, d Detector) Kind {
	switch {
	case d.IsStructuredFormat(path):
		return StructuredFormat
	case d.IsSupportedImage(path):
		return StandardImage
	default:
		return NonImage
	}
}
