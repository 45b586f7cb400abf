package filters

import (
	"errors"
	"image"

	"github.com/soypat/pixedit"
)

var errShapeMismatch = errors.New("pixel shape mismatch")

// PointFunc processes a contiguous row of pixels.
// dst and src contain rowWidth pixels worth of bytes and may alias for in-place processing.
// The function should iterate through pixels: for i := 0; i < len(src); i += bytesPerPixel { ... }
type PointFunc func(dst, src []byte)

// PointFilter applies a per-pixel transformation using a callback function.
// It handles the iteration, buffering, and ROI logic common to all per-pixel filters.
// The callback is invoked once per row with contiguous pixel data.
type PointFilter struct {
	In    pixedit.Shape
	Out   pixedit.Shape
	Fn    PointFunc
	Ctrls []pixedit.Control // User-defined controls for this filter.
}

var _ pixedit.Filter = (*PointFilter)(nil)

// ShapeIO implements [pixedit.Filter].
func (f *PointFilter) ShapeIO() (output, input pixedit.Shape) {
	return f.Out, f.In
}

// Controls implements [pixedit.Filter].
func (f *PointFilter) Controls() []pixedit.Control {
	return f.Ctrls
}

// Control returns the filter control with the given name or nil if not found.
func (f *PointFilter) Control(name string) pixedit.Control {
	for _, c := range f.Ctrls {
		if n, _ := c.Describe(); n == name {
			return c
		}
	}
	return nil
}

// ProcessInPlace runs the filter over the whole of img, overwriting its pixels.
// The buffer length invariant is checked before any pixel is touched.
func (f *PointFilter) ProcessInPlace(img *pixedit.RGB) error {
	if err := img.Validate(); err != nil {
		return err
	}
	_, err := f.Process(nil, img, nil)
	return err
}

// Process implements [pixedit.Filter].
func (f *PointFilter) Process(dst []byte, src pixedit.Image, roi *image.Rectangle) (pixedit.Dims, error) {
	if f.Fn == nil {
		return pixedit.Dims{}, errNilPixelFunc
	}

	outShape, inShape := f.ShapeIO()
	srcDims := src.Dims()
	if srcDims.Shape != inShape {
		return pixedit.Dims{}, errShapeMismatch
	}

	inBytesPerPixel := inShape.BytesPerPixel()
	outBytesPerPixel := outShape.BytesPerPixel()

	var outWidth, outHeight int
	if roi != nil {
		outWidth, outHeight = roi.Dx(), roi.Dy()
	} else {
		outWidth, outHeight = srcDims.Width, srcDims.Height
	}
	outStride := outWidth * outBytesPerPixel

	dstDims := pixedit.Dims{
		Width:  outWidth,
		Height: outHeight,
		Stride: outStride,
		Shape:  outShape,
	}

	dst, _, err := pixedit.ValidateProcessArgs(dst, dstDims, src, roi)
	if err != nil {
		return pixedit.Dims{}, err
	}

	startX, startY := 0, 0
	endX, endY := srcDims.Width, srcDims.Height
	if roi != nil {
		startX, startY = roi.Min.X, roi.Min.Y
		endX, endY = roi.Max.X, roi.Max.Y
	}

	var srcBuf []byte
	if buffered, ok := src.(pixedit.ImageBuffered); ok {
		srcBuf = buffered.Buffer()
	}

	srcRowBytes := srcDims.SizeRow()
	var rowBuf []byte // Fallback buffer for ReadAt.
	if srcBuf == nil {
		rowBuf = make([]byte, srcRowBytes)
	}

	for y := startY; y < endY; y++ {
		var srcRow []byte
		srcRowStart := y * srcDims.Stride
		if srcBuf != nil {
			srcRow = srcBuf[srcRowStart : srcRowStart+srcRowBytes]
		} else {
			srcRow, err = pixedit.ImageRow(rowBuf, src, y)
			if err != nil {
				return pixedit.Dims{}, err
			}
		}

		dstRowStart := (y - startY) * outStride
		f.Fn(dst[dstRowStart:dstRowStart+outStride], srcRow[startX*inBytesPerPixel:endX*inBytesPerPixel])
	}

	return dstDims, nil
}

var errNilPixelFunc = errorString("nil PointFunc")

type errorString string

func (e errorString) Error() string { return string(e) }
