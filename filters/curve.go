package filters

import (
	"github.com/soypat/pixedit"
	"github.com/soypat/pixedit/kernel"
)

// NewCurvePerPixel creates a tone curve filter applied equally to R, G and B.
// Points are normalized (0..1) input/output pairs; input values between points
// are linearly interpolated and values outside the first and last point hold
// the nearest point's output. The points are exposed as the "Curve" control.
func NewCurvePerPixel(points []pixedit.CurvePoint) (*PointFilter, error) {
	pts, err := pixedit.NormalizeCurve(points)
	if err != nil {
		return nil, err
	}
	lut := CurveTable(pts)
	return &PointFilter{
		In:  pixedit.ShapeRGB888,
		Out: pixedit.ShapeRGB888,
		Fn: func(dst, src []byte) {
			for i, c := range src {
				dst[i] = lut[c]
			}
		},
		Ctrls: []pixedit.Control{
			&pixedit.ControlCurve{
				Name:        "Curve",
				Description: "Tone curve control points, input to output",
				Points:      pts,
				OnChange: func(p []pixedit.CurvePoint) error {
					lut = CurveTable(p)
					return nil
				},
			},
		},
	}, nil
}

// CurveTable samples the piecewise linear curve through pts at every byte value.
// pts must be sorted by X, see [pixedit.NormalizeCurve].
func CurveTable(pts []pixedit.CurvePoint) (lut [256]byte) {
	if len(pts) == 0 {
		for i := range lut {
			lut[i] = byte(i)
		}
		return lut
	}
	seg := 0
	for i := range lut {
		x := float32(i) / 255
		for seg < len(pts)-2 && x > pts[seg+1].X {
			seg++
		}
		var y float32
		switch {
		case x <= pts[0].X:
			y = pts[0].Y
		case x >= pts[len(pts)-1].X:
			y = pts[len(pts)-1].Y
		default:
			a, b := pts[seg], pts[seg+1]
			t := (x - a.X) / (b.X - a.X)
			y = a.Y + t*(b.Y-a.Y)
		}
		lut[i] = kernel.Clamp8(int64(y*255 + 0.5))
	}
	return lut
}
