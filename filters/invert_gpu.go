package filters

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/soypat/pixedit"
)

const invertTransform = `
fn transform(c: vec4<i32>) -> vec4<i32> {
    return vec4<i32>(vec3<i32>(255) - c.rgb, c.a);
}
`

// InvertFilterGPU inverts image colors using GPU compute.
type InvertFilterGPU struct {
	PointFilterGPU
}

// NewInvertGPU creates a GPU-accelerated color inversion filter.
func NewInvertGPU(device *wgpu.Device, queue *wgpu.Queue) (*InvertFilterGPU, error) {
	f := &InvertFilterGPU{}
	if err := f.Init(device, queue, invertTransform); err != nil {
		return nil, err
	}
	return f, nil
}

// Controls returns nil as invert has no adjustable parameters.
func (f *InvertFilterGPU) Controls() []pixedit.Control {
	return nil
}
