package arcomp

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens the noop backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

var errInjected = errors.New("injected buffer failure")

// drawCall is one Draw or DrawIndexed seen by a recording pass.
type drawCall struct {
	pass    string
	vertex  string
	bind    string
	indexed bool
	count   uint32
}

// recordingDevice wraps the noop device, records every render pass and
// draw, and can fail buffer creation after a budget is used up.
type recordingDevice struct {
	hal.Device

	mu          sync.Mutex
	bufferLabel map[hal.Buffer]string
	passes      []string
	draws       []drawCall

	// failAfter, when >= 0, is the number of CreateBuffer calls that
	// succeed before every further call fails.
	failAfter int
	created   int
}

func newRecordingDevice(t *testing.T) (*recordingDevice, hal.Queue) {
	t.Helper()
	device, queue := createNoopDevice(t)
	return &recordingDevice{
		Device:      device,
		bufferLabel: make(map[hal.Buffer]string),
		failAfter:   -1,
	}, queue
}

func (d *recordingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAfter >= 0 && d.created >= d.failAfter {
		return nil, errInjected
	}
	d.created++
	buf, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.bufferLabel[buf] = desc.Label
	}
	return buf, err
}

func (d *recordingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	bg, err := d.Device.CreateBindGroup(desc)
	if err != nil {
		return nil, err
	}
	return &labeledBindGroup{BindGroup: bg, label: desc.Label}, nil
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recordingEncoder{CommandEncoder: enc, d: d}, nil
}

// failBuffers makes every CreateBuffer call from now on fail.
func (d *recordingDevice) failBuffers() {
	d.mu.Lock()
	d.failAfter = d.created
	d.mu.Unlock()
}

// failBuffersAfter lets n more CreateBuffer calls succeed.
func (d *recordingDevice) failBuffersAfter(n int) {
	d.mu.Lock()
	d.failAfter = d.created + n
	d.mu.Unlock()
}

func (d *recordingDevice) healBuffers() {
	d.mu.Lock()
	d.failAfter = -1
	d.mu.Unlock()
}

func (d *recordingDevice) reset() {
	d.mu.Lock()
	d.passes, d.draws = nil, nil
	d.mu.Unlock()
}

// drawsIn returns the draws recorded in passes whose label ends in suffix.
func (d *recordingDevice) drawsIn(suffix string) []drawCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []drawCall
	for _, dc := range d.draws {
		if strings.HasSuffix(dc.pass, suffix) {
			out = append(out, dc)
		}
	}
	return out
}

func (d *recordingDevice) passCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.passes)
}

func (d *recordingDevice) hasPass(suffix string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.passes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

type labeledBindGroup struct {
	hal.BindGroup
	label string
}

type recordingEncoder struct {
	hal.CommandEncoder
	d *recordingDevice
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.d.mu.Lock()
	e.d.passes = append(e.d.passes, desc.Label)
	e.d.mu.Unlock()
	return &recordingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), d: e.d, label: desc.Label}
}

type recordingPass struct {
	hal.RenderPassEncoder
	d      *recordingDevice
	label  string
	vertex string
	bind   string
}

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	if lg, ok := group.(*labeledBindGroup); ok {
		p.bind = lg.label
	}
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *recordingPass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	p.d.mu.Lock()
	p.vertex = p.d.bufferLabel[buffer]
	p.d.mu.Unlock()
	p.RenderPassEncoder.SetVertexBuffer(slot, buffer, offset)
}

func (p *recordingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.record(false, vertexCount)
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *recordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.record(true, indexCount)
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *recordingPass) record(indexed bool, count uint32) {
	p.d.mu.Lock()
	p.d.draws = append(p.d.draws, drawCall{
		pass: p.label, vertex: p.vertex, bind: p.bind, indexed: indexed, count: count,
	})
	p.d.mu.Unlock()
}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
)

// solidImage returns a w x h image filled with c.
func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

var testSize = Size{
	Width: 64, Height: 32,
	Extent:     Extent{Width: 2, Height: 2},
	MaskExtent: Extent{Width: 2, Height: 2},
}

// newTestCompositor builds a compositor on a recording noop device with
// MSAA off and a fixed label prefix "t".
func newTestCompositor(t *testing.T, opts ...Option) (*Compositor, *recordingDevice) {
	t.Helper()
	device, queue := newRecordingDevice(t)
	opts = append([]Option{WithSampleCount(1), WithLabel("t")}, opts...)
	c, err := New(device, queue, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, device
}

func tracking() FrameState {
	a, cam, p := Identity(), Identity(), Identity()
	return FrameState{Anchor: &a, Camera: &cam, Projection: &p, Status: Tracking}
}
