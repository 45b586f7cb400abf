package filters

import "github.com/soypat/pixedit"

// NewInvertedPerPixel creates a filter that inverts RGB values.
func NewInvertedPerPixel() *PointFilter {
	return &PointFilter{
		In:  pixedit.ShapeRGB888,
		Out: pixedit.ShapeRGB888,
		Fn: func(dst, src []byte) {
			for i, c := range src {
				dst[i] = 255 - c
			}
		},
	}
}
