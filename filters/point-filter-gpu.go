package filters

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/soypat/pixedit"
)

//go:embed point-filter-gpu.wgsl
var baseShaderWGSL string

var errGPUNotInitialized = errors.New("gpu filter not initialized")

// PointFilterGPU applies a per-pixel GPU compute shader transformation to RGB888 buffers in place.
// Embed this in concrete filter implementations and provide a transform function in WGSL.
//
// Pixels are widened to RGBA8 words for upload and narrowed back into the caller's
// buffer after readback, so the shader sees whole integer channels and results
// match the CPU point filters bit for bit.
type PointFilterGPU struct {
	mu     sync.Mutex
	gpu    gpuResources
	Params [4]float32 // Uniform params: [0]=width, [1]=height, [2..3]=user params
	inited bool
}

type gpuResources struct {
	device        *wgpu.Device
	queue         *wgpu.Queue
	shaderModule  *wgpu.ShaderModule
	pipeline      *wgpu.ComputePipeline
	bindLayout    *wgpu.BindGroupLayout
	uniformBuffer *wgpu.Buffer
	inputBuffer   *wgpu.Buffer
	outputBuffer  *wgpu.Buffer
	width, height int
	words         []byte // Host side RGBA8 staging for upload and readback.
}

// Init initializes GPU resources with the given transform WGSL code.
// transformCode should define: fn transform(c: vec4<i32>) -> vec4<i32>
// with channels in 0..255. The result is clamped to 0..255 by the base shader.
func (f *PointFilterGPU) Init(device *wgpu.Device, queue *wgpu.Queue, transformCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fullShader := strings.Replace(baseShaderWGSL, "// TRANSFORM_PLACEHOLDER", transformCode, 1)

	f.gpu.device = device
	f.gpu.queue = queue

	var err error
	f.gpu.shaderModule, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fullShader},
	})
	if err != nil {
		return fmt.Errorf("shader module: %w", err)
	}

	f.gpu.pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     f.gpu.shaderModule,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("compute pipeline: %w", err)
	}

	f.gpu.bindLayout = f.gpu.pipeline.GetBindGroupLayout(0)

	f.gpu.uniformBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  16, // 4 x float32
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform buffer: %w", err)
	}

	f.inited = true
	return nil
}

// Process applies the GPU filter to the RGB888 buffer img in place.
// The buffer length invariant is checked before anything is uploaded.
func (f *PointFilterGPU) Process(img *pixedit.RGB) error {
	if err := img.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.inited {
		return errGPUNotInitialized
	}

	w, h := img.Width, img.Height
	if err := f.ensureBuffers(w, h); err != nil {
		return err
	}

	widenRGB(f.gpu.words, img.Pix)
	f.gpu.queue.WriteBuffer(f.gpu.inputBuffer, 0, f.gpu.words)

	f.Params[0], f.Params[1] = float32(w), float32(h)
	f.gpu.queue.WriteBuffer(f.gpu.uniformBuffer, 0, wgpu.ToBytes(f.Params[:]))

	if err := f.dispatch(w, h); err != nil {
		return err
	}
	if err := f.readback(); err != nil {
		return err
	}
	narrowRGBA(img.Pix, f.gpu.words)
	return nil
}

// widenRGB packs RGB888 pixels into RGBA8 words with opaque alpha.
func widenRGB(dst, src []byte) {
	j := 0
	for i := 0; i+2 < len(src); i += 3 {
		dst[j], dst[j+1], dst[j+2], dst[j+3] = src[i], src[i+1], src[i+2], 0xff
		j += 4
	}
}

// narrowRGBA drops the alpha byte of every RGBA8 word.
func narrowRGBA(dst, src []byte) {
	j := 0
	for i := 0; i+2 < len(dst); i += 3 {
		dst[i], dst[i+1], dst[i+2] = src[j], src[j+1], src[j+2]
		j += 4
	}
}

func (f *PointFilterGPU) ensureBuffers(w, h int) error {
	if w == f.gpu.width && h == f.gpu.height {
		return nil
	}

	f.releaseImageBuffers()

	size := uint64(w * h * 4)
	var err error

	f.gpu.inputBuffer, err = f.gpu.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("input buffer: %w", err)
	}

	f.gpu.outputBuffer, err = f.gpu.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("output buffer: %w", err)
	}

	f.gpu.words = make([]byte, size)
	f.gpu.width, f.gpu.height = w, h
	pixedit.Logger().Debug("gpu image buffers allocated", "width", w, "height", h, "bytes", size)
	return nil
}

func (f *PointFilterGPU) dispatch(w, h int) error {
	bindGroup, err := f.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: f.gpu.bindLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.gpu.uniformBuffer, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: f.gpu.inputBuffer, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: f.gpu.outputBuffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := f.gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(f.gpu.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(uint32((w+7)/8), uint32((h+7)/8), 1)
	pass.End()
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish: %w", err)
	}

	f.gpu.queue.Submit(cmd)
	return nil
}

func (f *PointFilterGPU) readback() error {
	size := uint64(f.gpu.width * f.gpu.height * 4)

	staging, err := f.gpu.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := f.gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("readback encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(f.gpu.outputBuffer, 0, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return fmt.Errorf("readback finish: %w", err)
	}

	f.gpu.queue.Submit(cmd)
	f.gpu.device.Poll(true, nil)

	done := make(chan error, 1)
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("map failed: %v", status)
			return
		}
		done <- nil
	})

	f.gpu.device.Poll(true, nil)
	if err := <-done; err != nil {
		return err
	}

	copy(f.gpu.words, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return nil
}

func (f *PointFilterGPU) releaseImageBuffers() {
	if f.gpu.inputBuffer != nil {
		f.gpu.inputBuffer.Release()
		f.gpu.inputBuffer = nil
	}
	if f.gpu.outputBuffer != nil {
		f.gpu.outputBuffer.Release()
		f.gpu.outputBuffer = nil
	}
	f.gpu.words = nil
	f.gpu.width, f.gpu.height = 0, 0
}

// Cleanup releases all GPU resources. The device and queue are owned by the caller.
func (f *PointFilterGPU) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.releaseImageBuffers()
	if f.gpu.uniformBuffer != nil {
		f.gpu.uniformBuffer.Release()
		f.gpu.uniformBuffer = nil
	}
	if f.gpu.bindLayout != nil {
		f.gpu.bindLayout.Release()
		f.gpu.bindLayout = nil
	}
	if f.gpu.pipeline != nil {
		f.gpu.pipeline.Release()
		f.gpu.pipeline = nil
	}
	if f.gpu.shaderModule != nil {
		f.gpu.shaderModule.Release()
		f.gpu.shaderModule = nil
	}
	f.inited = false
}

// SetParam sets a user parameter (index 0 or 1, mapped to Params[2] and Params[3]).
func (f *PointFilterGPU) SetParam(index int, value float32) {
	if index >= 0 && index < 2 {
		f.mu.Lock()
		f.Params[2+index] = value
		f.mu.Unlock()
	}
}

// Controls returns nil - concrete implementations should override.
func (f *PointFilterGPU) Controls() []pixedit.Control { return nil }
