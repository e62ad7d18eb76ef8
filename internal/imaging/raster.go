package imaging

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // content sniffing for mislabelled files

	"unletterbox/internal/fsops"
)

// Processor is the Collaborator used in production.
type Processor struct {
	writer      fsops.Writer
	jpegQuality int
	jxl         JXLTools
}

// NewProcessor returns a Processor that writes through w. jpegQuality is used
// when re-encoding JPEGs; jxl configures the external JPEG XL tools.
func NewProcessor(w fsops.Writer, jpegQuality int, jxl JXLTools) *Processor {
	if jpegQuality <= 0 {
		jpegQuality = jpeg.DefaultQuality
	}
	return &Processor{writer: w, jpegQuality: jpegQuality, jxl: jxl.withDefaults()}
}

func (p *Processor) IsStructuredFormat(path string) bool {
	return formatOf(path) == formatJXL
}

func (p *Processor) IsSupportedImage(path string) bool {
	return formatOf(path).encodable()
}

// RemoveLetterbox crops the dark bars off the image at path and rewrites it in
// its original format. An image with nothing to trim is left byte-identical.
// Animated GIFs are left untouched.
func (p *Processor) RemoveLetterbox(ctx context.Context, path string, threshold uint8) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := formatOf(path)
	if !f.encodable() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	img, skip, err := decodeFile(path, f)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	r, ok := LetterboxBounds(img, threshold)
	if !ok {
		return nil
	}
	cropped := crop(img, r)

	return p.writer.Replace(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := p.encode(bw, cropped, f); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		return bw.Flush()
	})
}

func decodeFile(path string, f format) (img image.Image, skip bool, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()
	r := bufio.NewReader(file)

	if f == formatGIF {
		g, err := gif.DecodeAll(r)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(g.Image) != 1 {
			return nil, true, nil
		}
		return g.Image[0], false, nil
	}

	img, _, err = image.Decode(r)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, false, nil
}

func (p *Processor) encode(w io.Writer, img image.Image, f format) error {
	switch f {
	case formatPNG:
		return png.Encode(w, img)
	case formatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: p.jpegQuality})
	case formatGIF:
		return gif.Encode(w, img, nil)
	case formatBMP:
		return bmp.Encode(w, img)
	case formatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return ErrUnsupportedFormat
	}
}
