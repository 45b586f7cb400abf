package pixedit

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
)

// RGB is an in-memory pixel buffer with three bytes per pixel in R, G, B order.
// Rows are stored top to bottom with no padding so len(Pix) == Width*Height*3.
//
// RGB implements [ImageBuffered] for use with filters and [image.Image]
// so it can be passed to standard library encoders directly. All pixels are opaque.
type RGB struct {
	Width  int
	Height int
	Pix    []byte
}

var (
	_ ImageBuffered = (*RGB)(nil)
	_ image.Image   = (*RGB)(nil)
)

// NewRGB allocates a zeroed (black) RGB buffer.
func NewRGB(width, height int) *RGB {
	return &RGB{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// Validate checks the buffer length invariant. It must hold before handing
// Pix to any kernel routine. Dimensions must fit the kernel's int32 arguments.
func (m *RGB) Validate() error {
	if m.Width <= 0 || m.Height <= 0 || m.Width > math.MaxInt32 || m.Height > math.MaxInt32 {
		return fmt.Errorf("invalid dimensions %dx%d", m.Width, m.Height)
	}
	if want := int64(m.Width) * int64(m.Height) * 3; int64(len(m.Pix)) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d", ErrBufferSize, len(m.Pix), want, m.Width, m.Height)
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *RGB) Clone() *RGB {
	c := &RGB{Width: m.Width, Height: m.Height, Pix: make([]byte, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Dims implements [Image].
func (m *RGB) Dims() Dims {
	return Dims{Width: m.Width, Height: m.Height, Stride: m.Width * 3, Shape: ShapeRGB888}
}

// Buffer implements [ImageBuffered].
func (m *RGB) Buffer() []byte { return m.Pix }

// ReadAt implements [io.ReaderAt].
func (m *RGB) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	} else if off >= int64(len(m.Pix)) {
		return 0, io.EOF
	}
	n := copy(p, m.Pix[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ColorModel implements [image.Image].
func (m *RGB) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements [image.Image].
func (m *RGB) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

// At implements [image.Image].
func (m *RGB) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	i := (y*m.Width + x) * 3
	return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 0xff}
}

// RGBAt returns the channels of the pixel at x, y.
func (m *RGB) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*m.Width + x) * 3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetRGB sets the pixel at x, y.
func (m *RGB) SetRGB(x, y int, r, g, b uint8) {
	i := (y*m.Width + x) * 3
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = r, g, b
}

// ToRGBA widens m into a new opaque [image.RGBA].
func (m *RGB) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(m.Bounds())
	j := 0
	for i := 0; i < len(m.Pix); i += 3 {
		dst.Pix[j] = m.Pix[i]
		dst.Pix[j+1] = m.Pix[i+1]
		dst.Pix[j+2] = m.Pix[i+2]
		dst.Pix[j+3] = 0xff
		j += 4
	}
	return dst
}

// FromImage converts any decoded image into a new RGB buffer anchored at the origin.
// Alpha is dropped without compositing: the un-premultiplied color of each
// pixel is kept. Paletted and gray images are expanded to three channels.
func FromImage(src image.Image) *RGB {
	b := src.Bounds()
	dst := NewRGB(b.Dx(), b.Dy())
	j := 0
	switch s := src.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				copy(dst.Pix[j:j+3], row[x*4:x*4+3])
				j += 3
			}
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				p := row[x*4 : x*4+4]
				if p[3] == 0xff {
					copy(dst.Pix[j:j+3], p[:3])
				} else {
					c := color.NRGBAModel.Convert(color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}).(color.NRGBA)
					dst.Pix[j], dst.Pix[j+1], dst.Pix[j+2] = c.R, c.G, c.B
				}
				j += 3
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				v := row[x]
				dst.Pix[j], dst.Pix[j+1], dst.Pix[j+2] = v, v, v
				j += 3
			}
		}
	case *RGB:
		copy(dst.Pix, s.Pix)
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				dst.Pix[j], dst.Pix[j+1], dst.Pix[j+2] = c.R, c.G, c.B
				j += 3
			}
		}
	}
	return dst
}
