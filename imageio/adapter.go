// Package imageio translates between image files and the flat RGB buffers
// the kernel operates on.
//
// An [Adapter] decodes any supported raster format into a [pixedit.RGB]
// buffer, runs kernel operations through its [filters.Backend] on a fresh copy
// of that buffer and encodes the result in the format implied by the target
// file extension.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/soypat/pixedit"
	"github.com/soypat/pixedit/filters"
)

// DefaultJPEGQuality is used when saving JPEG files unless overridden.
const DefaultJPEGQuality = 75

// Image is a decoded picture ready for filtering. Its buffer always satisfies
// len(RGB.Pix) == Width*Height*3. Adapter operations never modify an Image
// they receive; they return new ones.
type Image struct {
	RGB *pixedit.RGB
	// Format is the format the image was decoded from, if any.
	Format string
}

// Width returns the image width in pixels.
func (img *Image) Width() int { return img.RGB.Width }

// Height returns the image height in pixels.
func (img *Image) Height() int { return img.RGB.Height }

// DecodeError reports a failure to open or decode an image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode image: " + e.Err.Error()
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to encode or write an image.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return "encode image: " + e.Err.Error()
	}
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Options configures an [Adapter].
type Options struct {
	// Backend runs the kernel operations. Defaults to [filters.CPU].
	Backend filters.Backend
	// JPEGQuality is the quality (1-100) for JPEG output. Values outside
	// that range select [DefaultJPEGQuality].
	JPEGQuality int
	// AutoOrient rotates and flips decoded JPEG images according to their
	// EXIF orientation tag. Enabled by default.
	AutoOrient bool
	// Logger overrides [pixedit.Logger].
	Logger *slog.Logger
}

// Adapter loads, filters and saves images. It is safe for concurrent use on
// distinct images when its Backend is.
type Adapter struct {
	backend filters.Backend
	quality int
	orient  bool
	log     *slog.Logger
}

// New returns an Adapter configured by opts.
func New(opts ...func(o *Options)) *Adapter {
	opt := Options{
		Backend:     filters.CPU{},
		JPEGQuality: DefaultJPEGQuality,
		AutoOrient:  true,
	}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	if opt.Backend == nil {
		opt.Backend = filters.CPU{}
	}
	if opt.JPEGQuality < 1 || opt.JPEGQuality > 100 {
		opt.JPEGQuality = DefaultJPEGQuality
	}
	if opt.Logger == nil {
		opt.Logger = pixedit.Logger()
	}
	return &Adapter{backend: opt.Backend, quality: opt.JPEGQuality, orient: opt.AutoOrient, log: opt.Logger}
}

// Load opens and decodes the image at path. Every failure is a *DecodeError.
func (a *Adapter) Load(path string) (*Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	img, err := a.Decode(f)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
		}
		return nil, err
	}
	a.log.Debug("image loaded", "path", path, "format", img.Format, "width", img.Width(), "height", img.Height())
	return img, nil
}

// Decode reads an image in any registered format and converts it to RGB.
// Alpha is dropped. Every failure is a *DecodeError.
func (a *Adapter) Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(a.orient))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if src.Bounds().Empty() {
		return nil, &DecodeError{Err: errors.New("empty image")}
	}
	return &Image{RGB: pixedit.FromImage(src), Format: format}, nil
}

// ApplyGrayscale returns a copy of img converted to grayscale by averaging channels.
func (a *Adapter) ApplyGrayscale(img *Image) (*Image, error) {
	return a.apply(img, "grayscale", a.backend.Grayscale)
}

// ApplyBrightness returns a copy of img with factor added to every channel, saturating.
func (a *Adapter) ApplyBrightness(img *Image, factor int) (*Image, error) {
	return a.apply(img, "brightness", func(buf *pixedit.RGB) error {
		return a.backend.Brightness(buf, factor)
	})
}

// ApplyInvert returns a copy of img with every channel replaced by 255-c.
func (a *Adapter) ApplyInvert(img *Image) (*Image, error) {
	return a.apply(img, "invert", a.backend.Invert)
}

// ApplyFilter returns a copy of img processed in place by f.
// f must consume and produce RGB888.
func (a *Adapter) ApplyFilter(img *Image, f pixedit.Filter) (*Image, error) {
	return a.apply(img, "filter", func(buf *pixedit.RGB) error {
		_, err := f.Process(nil, buf, nil)
		return err
	})
}

func (a *Adapter) apply(img *Image, op string, run func(*pixedit.RGB) error) (*Image, error) {
	if img == nil || img.RGB == nil {
		return nil, errors.New("nil image")
	}
	if err := img.RGB.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	buf := img.RGB.Clone()
	if err := run(buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.log.Debug("filter applied", "op", op, "width", buf.Width, "height", buf.Height, "bytes", len(buf.Pix))
	return &Image{RGB: buf, Format: img.Format}, nil
}

// Save encodes img in the format implied by the extension of path.
// Every failure is an *EncodeError. A new file is created with mode 0644
// subject to the umask. An existing file is replaced through a temporary file
// and rename, keeping its permissions, so a failed save leaves it intact.
func (a *Adapter) Save(img *Image, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	if img == nil || img.RGB == nil {
		return &EncodeError{Path: path, Err: errors.New("nil image")}
	}
	if err := img.RGB.Validate(); err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		err = a.replaceFile(path, info.Mode().Perm(), img.RGB, format)
	case errors.Is(err, fs.ErrNotExist):
		err = a.createFile(path, img.RGB, format)
	}
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	a.log.Debug("image saved", "path", path, "format", format)
	return nil
}

func (a *Adapter) createFile(path string, img *pixedit.RGB, format Format) error {
	fp, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	err = encode(fp, img, format, a.quality)
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
	}
	return err
}

func (a *Adapter) replaceFile(path string, perm fs.FileMode, img *pixedit.RGB, format Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	err = encode(tmp, img, format, a.quality)
	if err == nil {
		err = tmp.Chmod(perm)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
	}
	return err
}

// Encode writes img to w in format f. Every failure is an *EncodeError.
func (a *Adapter) Encode(w io.Writer, img *Image, f Format) error {
	if img == nil || img.RGB == nil {
		return &EncodeError{Err: errors.New("nil image")}
	}
	if err := img.RGB.Validate(); err != nil {
		return &EncodeError{Err: err}
	}
	if err := encode(w, img.RGB, f, a.quality); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}
