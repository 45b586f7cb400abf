package imageio

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder.
)

// ErrUnsupportedFormat is returned when a path's extension maps to no encoder.
var ErrUnsupportedFormat = imaging.ErrUnsupportedFormat

// Format is a raster file format supported for encoding.
type Format imaging.Format

const (
	FormatUnknown Format = -1
	FormatPNG            = Format(imaging.PNG)
	FormatJPEG           = Format(imaging.JPEG)
	FormatGIF            = Format(imaging.GIF)
	FormatBMP            = Format(imaging.BMP)
	FormatTIFF           = Format(imaging.TIFF)
)

func (f Format) String() string {
	switch f {
	case FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF:
		return strings.ToLower(imaging.Format(f).String())
	}
	return "unknown"
}

// Lossless reports whether encoding in f preserves every pixel exactly.
// GIF is excluded since it quantizes to a 256 color palette.
func (f Format) Lossless() bool {
	return f == FormatPNG || f == FormatBMP || f == FormatTIFF
}

// FormatFromPath infers the encoding format from the extension of path.
func FormatFromPath(path string) (Format, error) {
	f, err := imaging.FormatFromFilename(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%s: %w", path, err)
	}
	return Format(f), nil
}

// FormatFromName maps the format names reported by [image.Decode] to a Format.
func FormatFromName(name string) (Format, error) {
	if name == "" {
		return FormatUnknown, ErrUnsupportedFormat
	}
	f, err := imaging.FormatFromExtension(name)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%q: %w", name, err)
	}
	return Format(f), nil
}

// encode writes img to w. TIFF output is Deflate compressed.
func encode(w io.Writer, img image.Image, f Format, jpegQuality int) error {
	if f == FormatUnknown {
		return ErrUnsupportedFormat
	}
	return imaging.Encode(w, img, imaging.Format(f), imaging.JPEGQuality(jpegQuality))
}
