// Package kernel implements the in-place pixel transforms over flat RGB buffers.
//
// A buffer holds width*height pixels of three bytes each (R, G, B), row-major,
// no padding and no alpha. The routines here trust their arguments: they do
// not validate that len(pixels) == width*height*3 and do not allocate. Callers
// that cannot guarantee the invariant must check it first, see RGB.Validate in the root package.
//
// A buffer must not be passed to two calls concurrently. Calls on distinct
// buffers are independent.
package kernel

// Grayscale replaces every pixel with the truncated average of its three channels.
// (255,0,0) becomes (85,85,85).
func Grayscale(pixels []byte, width, height int32) {
	n := int(width) * int(height) * 3
	GrayscaleRow(pixels[:n], pixels[:n])
}

// Brightness adds factor to every channel of every pixel, saturating to 0..255.
func Brightness(pixels []byte, width, height, factor int32) {
	n := int(width) * int(height) * 3
	BrightnessRow(pixels[:n], pixels[:n], factor)
}

// GrayscaleRow writes the grayscale of the RGB pixels in src to dst.
// dst may alias src. len(src) must be a multiple of 3 and len(dst) >= len(src).
func GrayscaleRow(dst, src []byte) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	for i := 0; i+2 < len(src); i += 3 {
		gray := uint8((uint32(src[i]) + uint32(src[i+1]) + uint32(src[i+2])) / 3)
		dst[i], dst[i+1], dst[i+2] = gray, gray, gray
	}
}

// BrightnessRow writes src with factor added to every byte to dst, saturating.
// dst may alias src.
func BrightnessRow(dst, src []byte, factor int32) {
	if len(src) == 0 {
		return
	} else if factor == 0 {
		copy(dst, src)
		return
	}
	lut := BrightnessTable(factor)
	_ = dst[len(src)-1]
	for i, c := range src {
		dst[i] = lut[c]
	}
}

// BrightnessTable returns the saturating mapping c -> clamp(c+factor, 0, 255)
// for every byte value.
func BrightnessTable(factor int32) (lut [256]byte) {
	for c := range lut {
		lut[c] = Clamp8(int64(c) + int64(factor))
	}
	return lut
}

// Clamp8 saturates v to 0..255.
func Clamp8(v int64) uint8 {
	if v < 0 {
		return 0
	} else if v > 255 {
		return 255
	}
	return uint8(v)
}
