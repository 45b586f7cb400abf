package filters

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/soypat/pixedit"
)

const brightnessTransform = `
fn transform(c: vec4<i32>) -> vec4<i32> {
    let f = i32(round(u.param0));
    return vec4<i32>(c.rgb + vec3<i32>(f), c.a);
}
`

// BrightnessFilterGPU offsets every channel by a saturating factor using GPU compute.
type BrightnessFilterGPU struct {
	PointFilterGPU
	factorMu sync.Mutex // Guards factor and its uniform between SetFactor and ProcessFactor.
	factor   int
	ctrls    []pixedit.Control
}

// NewBrightnessGPU creates a GPU-accelerated brightness filter.
func NewBrightnessGPU(device *wgpu.Device, queue *wgpu.Queue, factor int) (*BrightnessFilterGPU, error) {
	f := &BrightnessFilterGPU{}
	if err := f.Init(device, queue, brightnessTransform); err != nil {
		return nil, err
	}
	f.setFactor(factor)
	f.ctrls = []pixedit.Control{
		&pixedit.ControlOrdered[int]{
			Name:        "Brightness",
			Description: "Offset added to every channel, clamped to 0..255",
			Value:       factor,
			Min:         MinBrightness,
			Max:         MaxBrightness,
			Step:        1,
			OnChange: func(v int) error {
				f.SetFactor(v)
				return nil
			},
		},
	}
	return f, nil
}

// SetFactor sets the brightness offset. Offsets beyond ±256 saturate every
// channel and are reduced to that range before upload.
func (f *BrightnessFilterGPU) SetFactor(factor int) {
	f.factorMu.Lock()
	defer f.factorMu.Unlock()
	f.setFactor(factor)
}

func (f *BrightnessFilterGPU) setFactor(factor int) {
	f.factor = factor
	f.SetParam(0, float32(min(256, max(-256, factor))))
}

// Factor returns the current brightness offset.
func (f *BrightnessFilterGPU) Factor() int {
	f.factorMu.Lock()
	defer f.factorMu.Unlock()
	return f.factor
}

// ProcessFactor sets the offset and processes img in place. No other
// SetFactor call can land between the two steps.
func (f *BrightnessFilterGPU) ProcessFactor(img *pixedit.RGB, factor int) error {
	f.factorMu.Lock()
	defer f.factorMu.Unlock()
	f.setFactor(factor)
	return f.Process(img)
}

// Controls returns the filter's adjustable parameters.
func (f *BrightnessFilterGPU) Controls() []pixedit.Control {
	return f.ctrls
}
