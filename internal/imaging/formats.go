package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrNotJXL            = errors.New("not a JPEG XL file")
)

type format int

const (
	formatUnknown format = iota
	formatPNG
	formatJPEG
	formatGIF
	formatBMP
	formatTIFF
	formatWebP
	formatJXL
)

var extFormats = map[string]format{
	".png":  formatPNG,
	".jpg":  formatJPEG,
	".jpeg": formatJPEG,
	".gif":  formatGIF,
	".bmp":  formatBMP,
	".tif":  formatTIFF,
	".tiff": formatTIFF,
	".webp": formatWebP,
	".jxl":  formatJXL,
}

func formatOf(path string) format {
	return extFormats[strings.ToLower(filepath.Ext(path))]
}

// encodable reports whether a cropped image can be written back in this format.
func (f format) encodable() bool {
	switch f {
	case formatPNG, formatJPEG, formatGIF, formatBMP, formatTIFF:
		return true
	}
	return false
}

var (
	jxlCodestream = []byte{0xFF, 0x0A}
	jxlContainer  = []byte{0x00, 0x00, 0x00, 0x0C, 0x4A, 0x58, 0x4C, 0x20, 0x0D, 0x0A, 0x87, 0x0A}
)

// checkJXLSignature fails unless path starts with a JPEG XL codestream or
// container signature.
func checkJXLSignature(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, len(jxlContainer))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read header: %w", err)
	}
	head = head[:n]

	if bytes.HasPrefix(head, jxlCodestream) || bytes.Equal(head, jxlContainer) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotJXL, path)
}
