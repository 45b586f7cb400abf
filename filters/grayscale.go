package filters

import (
	"github.com/soypat/pixedit"
	"github.com/soypat/pixedit/kernel"
)

// GrayscaleMode determines the algorithm for RGB to grayscale conversion.
type GrayscaleMode int

const (
	// GrayscaleAverage uses the truncated simple average: (R + G + B) / 3.
	// This is the kernel's grayscale and the default of the image adapter.
	GrayscaleAverage GrayscaleMode = iota
	// GrayscaleLuminance uses standard luminance weights: 0.299*R + 0.587*G + 0.114*B
	GrayscaleLuminance
	// GrayscaleLightness uses min/max average: (max(R,G,B) + min(R,G,B)) / 2
	GrayscaleLightness
)

func (m GrayscaleMode) String() string {
	switch m {
	case GrayscaleLuminance:
		return "Luminance"
	case GrayscaleAverage:
		return "Average"
	case GrayscaleLightness:
		return "Lightness"
	default:
		return "Unknown"
	}
}

// NewGrayscalePerPixel creates an in-place capable RGB888 grayscale filter.
// The mode can be changed afterwards through the "Conversion Mode" control.
func NewGrayscalePerPixel(mode GrayscaleMode) *PointFilter {
	filterMode := mode
	return &PointFilter{
		In:  pixedit.ShapeRGB888,
		Out: pixedit.ShapeRGB888,
		Fn: func(dst, src []byte) {
			switch filterMode {
			case GrayscaleAverage:
				kernel.GrayscaleRow(dst, src)
			case GrayscaleLightness:
				for i := 0; i < len(src); i += 3 {
					r, g, b := src[i], src[i+1], src[i+2]
					gray := uint8((uint32(min(r, g, b)) + uint32(max(r, g, b))) / 2)
					dst[i], dst[i+1], dst[i+2] = gray, gray, gray
				}
			default:
				for i := 0; i < len(src); i += 3 {
					r, g, b := src[i], src[i+1], src[i+2]
					gray := uint8((77*uint32(r) + 150*uint32(g) + 29*uint32(b)) >> 8)
					dst[i], dst[i+1], dst[i+2] = gray, gray, gray
				}
			}
		},
		Ctrls: []pixedit.Control{
			&pixedit.ControlEnum[GrayscaleMode]{
				Name:        "Conversion Mode",
				Description: "Algorithm for RGB to grayscale conversion",
				Value:       filterMode,
				ValidValues: []GrayscaleMode{GrayscaleAverage, GrayscaleLuminance, GrayscaleLightness},
				OnChange: func(m GrayscaleMode) error {
					filterMode = m
					return nil
				},
			},
		},
	}
}
