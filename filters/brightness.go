package filters

import (
	"github.com/soypat/pixedit"
	"github.com/soypat/pixedit/kernel"
)

// Brightness factor limits accepted by the brightness control.
const (
	MinBrightness = -255
	MaxBrightness = 255
)

// NewBrightnessPerPixel creates an RGB888 filter adding factor to every channel,
// saturating at 0 and 255. The factor is exposed as the "Brightness" control.
func NewBrightnessPerPixel(factor int) *PointFilter {
	var lut [256]byte
	setFactor := func(v int) error {
		lut = kernel.BrightnessTable(int32(v))
		return nil
	}
	setFactor(factor)
	return &PointFilter{
		In:  pixedit.ShapeRGB888,
		Out: pixedit.ShapeRGB888,
		Fn: func(dst, src []byte) {
			for i, c := range src {
				dst[i] = lut[c]
			}
		},
		Ctrls: []pixedit.Control{
			&pixedit.ControlOrdered[int]{
				Name:        "Brightness",
				Description: "Offset added to every channel, clamped to 0..255",
				Value:       factor,
				Min:         MinBrightness,
				Max:         MaxBrightness,
				Step:        1,
				OnChange:    setFactor,
			},
		},
	}
}
