package filters

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/soypat/pixedit"
	"github.com/soypat/pixedit/kernel"
)

// Backend runs the kernel operations over a whole RGB buffer in place.
// Implementations check the buffer length invariant before touching pixels.
type Backend interface {
	Grayscale(img *pixedit.RGB) error
	Brightness(img *pixedit.RGB, factor int) error
	Invert(img *pixedit.RGB) error
}

var (
	_ Backend = CPU{}
	_ Backend = (*GPU)(nil)
)

// saturatingFactor reduces factor to the slider range. Any offset of 255 or
// more in magnitude already saturates every channel so the result is unchanged.
func saturatingFactor(factor int) int {
	return min(MaxBrightness, max(MinBrightness, factor))
}

// CPU runs the kernel on the calling goroutine. The zero value is ready to use
// and holds no state, so one CPU may serve concurrent calls on distinct buffers.
type CPU struct{}

// Grayscale implements [Backend] with [kernel.Grayscale].
func (CPU) Grayscale(img *pixedit.RGB) error {
	if err := img.Validate(); err != nil {
		return err
	}
	kernel.Grayscale(img.Pix, int32(img.Width), int32(img.Height))
	return nil
}

// Brightness implements [Backend] with [kernel.Brightness].
func (CPU) Brightness(img *pixedit.RGB, factor int) error {
	if err := img.Validate(); err != nil {
		return err
	}
	kernel.Brightness(img.Pix, int32(img.Width), int32(img.Height), int32(saturatingFactor(factor)))
	return nil
}

// Invert implements [Backend].
func (CPU) Invert(img *pixedit.RGB) error {
	return NewInvertedPerPixel().ProcessInPlace(img)
}

// GPU runs the kernel operations as WebGPU compute passes. It owns its device.
// Calls are serialized by the underlying filters.
type GPU struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	gray     *GrayscaleFilterGPU
	bright   *BrightnessFilterGPU
	invert   *InvertFilterGPU
}

// NewGPU acquires a WebGPU adapter and device and compiles the grayscale,
// brightness and invert pipelines. It fails when no adapter is available.
func NewGPU() (*GPU, error) {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, errors.New("webgpu not available")
	}
	g := &GPU{instance: instance}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	g.adapter = adapter
	g.device, err = adapter.RequestDevice(nil)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("request device: %w", err)
	}
	queue := g.device.GetQueue()
	g.gray, err = NewGrayscaleGPU(g.device, queue, GrayscaleAverage)
	if err != nil {
		g.Close()
		return nil, err
	}
	g.bright, err = NewBrightnessGPU(g.device, queue, 0)
	if err != nil {
		g.Close()
		return nil, err
	}
	g.invert, err = NewInvertGPU(g.device, queue)
	if err != nil {
		g.Close()
		return nil, err
	}
	pixedit.Logger().Info("webgpu device ready")
	return g, nil
}

// Grayscale implements [Backend] with [GrayscaleAverage].
func (g *GPU) Grayscale(img *pixedit.RGB) error {
	return g.gray.Process(img)
}

// Brightness implements [Backend].
func (g *GPU) Brightness(img *pixedit.RGB, factor int) error {
	return g.bright.ProcessFactor(img, factor)
}

// Invert implements [Backend].
func (g *GPU) Invert(img *pixedit.RGB) error {
	return g.invert.Process(img)
}

// Close releases the pipelines and the device.
func (g *GPU) Close() {
	if g.gray != nil {
		g.gray.Cleanup()
		g.gray = nil
	}
	if g.bright != nil {
		g.bright.Cleanup()
		g.bright = nil
	}
	if g.invert != nil {
		g.invert.Cleanup()
		g.invert = nil
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}
