package arcomp

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gogpu/arcomp/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// State is the geometry state of a Compositor.
type State uint32

const (
	// Idle means there is nothing to draw yet: no layers or no size.
	Idle State = iota
	// Ready means buffers match the current layer set and size.
	Ready
	// Rebuilding means buffers are being rebuilt, or the last rebuild
	// failed. Draws are skipped until a rebuild succeeds.
	Rebuilding
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Ready:
		return "Ready"
	case Rebuilding:
		return "Rebuilding"
	default:
		return "Unknown"
	}
}

// Compositor draws a layer set through a stencil mask.
//
// SetLayers, SetTargetSize, SetMask, UpdateFrame and Redraw may be called
// from any goroutine; they record the request and return. Everything else
// runs on the render goroutine: Draw applies pending requests before it
// touches a GPU resource.
type Compositor struct {
	r    *gpu.Renderer
	opts options

	mu      sync.Mutex
	pending pending
	frame   FrameState

	needsRedraw atomic.Bool
	closed      atomic.Bool
	state       atomic.Uint32

	// Render goroutine only.
	buffersReady bool
	surface      bool
	size         Size
	sizeValid    bool
	mask         MaskConfig
	maskTexture  *gpu.Texture
	layers       []*Layer
	meshes       []layerMeshes
	videos       map[int]*gpu.VideoCache
	maskMesh     *gpu.Mesh
	fullMaskMesh *gpu.Mesh
	background   *gpu.Mesh
	content      gpu.ContentPipeline
	geometry     Geometry
	stats        Stats
}

// pending collects requests from other goroutines until the next Draw.
type pending struct {
	layers    []*Layer
	layersSet bool
	size      Size
	sizeSet   bool
	mask      MaskConfig
	maskSet   bool
}

func (p *pending) empty() bool {
	return !p.layersSet && !p.sizeSet && !p.maskSet
}

// layerMeshes are the anchor-space and fullscreen buffers of one layer.
type layerMeshes struct {
	quad *gpu.Mesh
	full *gpu.Mesh
}

// New creates a compositor on device and queue and builds its pipelines.
// The compositor starts Idle; it draws once it has a size and layers.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Compositor, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.gpu.Label == "" {
		o.gpu.Label = "arcomp_" + uuid.NewString()[:8]
	}

	r := gpu.NewRenderer(device, queue, o.gpu)
	if err := r.Init(); err != nil {
		Logger().Error("arcomp: renderer setup failed", "err", err)
		return nil, fmt.Errorf("arcomp: %w", err)
	}

	c := &Compositor{
		r:      r,
		opts:   o,
		videos: make(map[int]*gpu.VideoCache),
	}
	c.pending.mask, c.pending.maskSet = o.mask, true
	Logger().Info("arcomp: compositor created",
		"label", o.gpu.Label, "samples", r.SampleCount(), "mask", o.mask.Mode)
	return c, nil
}

// State returns the geometry state. Safe to call from any goroutine.
func (c *Compositor) State() State {
	return State(c.state.Load())
}

func (c *Compositor) setState(s State) {
	c.state.Store(uint32(s))
}

// SetLayers replaces the layer set. Map keys are the layer IDs. The layers
// are cloned, so the caller may keep editing its own copies. Nil entries
// and layers without content are dropped with a warning.
func (c *Compositor) SetLayers(layers map[int]*Layer) error {
	if c.closed.Load() {
		return ErrClosed
	}
	snapshot := make([]*Layer, 0, len(layers))
	for id, l := range layers {
		if l == nil {
			continue
		}
		if l.content == nil {
			Logger().Warn("arcomp: dropping layer without content", "id", id)
			continue
		}
		cl := l.Clone()
		cl.ID = id
		cl.texture = nil
		snapshot = append(snapshot, cl)
	}
	// Map order is random; fix the tie order before the Z sort.
	slices.SortFunc(snapshot, func(a, b *Layer) int { return cmp.Compare(a.ID, b.ID) })
	SortLayers(snapshot)

	c.mu.Lock()
	c.pending.layers, c.pending.layersSet = snapshot, true
	c.mu.Unlock()
	c.needsRedraw.Store(true)
	return nil
}

// SetTargetSize sets the render target size and the extents geometry is
// built against. An invalid size is rejected and changes nothing.
func (c *Compositor) SetTargetSize(s Size) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := s.Validate(); err != nil {
		Logger().Warn("arcomp: target size rejected", "err", err)
		return err
	}
	c.mu.Lock()
	c.pending.size, c.pending.sizeSet = s, true
	c.mu.Unlock()
	c.needsRedraw.Store(true)
	return nil
}

// SetMask replaces the mask configuration.
func (c *Compositor) SetMask(m MaskConfig) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	c.pending.mask, c.pending.maskSet = m, true
	c.mu.Unlock()
	c.needsRedraw.Store(true)
	return nil
}

// UpdateFrame replaces the transform state and requests a redraw. The
// matrices are copied.
func (c *Compositor) UpdateFrame(fs FrameState) {
	fs.Anchor = copyMat(fs.Anchor)
	fs.Camera = copyMat(fs.Camera)
	fs.Projection = copyMat(fs.Projection)

	c.mu.Lock()
	c.frame = fs
	c.mu.Unlock()
	c.needsRedraw.Store(true)
}

// Redraw requests a redraw without changing the transform state, e.g. on
// a video player tick.
func (c *Compositor) Redraw() {
	c.needsRedraw.Store(true)
}

// SetSurfaceTarget renders into a host-owned texture view, such as the
// current swapchain image, instead of the offscreen target. Pass nil to
// return to offscreen rendering. Render goroutine only.
func (c *Compositor) SetSurfaceTarget(view hal.TextureView, width, height uint32) {
	if c.closed.Load() {
		return
	}
	c.r.SetSurfaceTarget(view, width, height)
	c.surface = view != nil
	if !c.surface && c.sizeValid {
		c.ensureTargets()
	}
	c.needsRedraw.Store(true)
}

// Close releases every GPU resource. Close is idempotent.
// Render goroutine only.
func (c *Compositor) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.destroyMeshes()
	c.releaseLayers(c.layers, nil)
	c.layers = nil
	c.r.DestroyTexture(c.maskTexture)
	c.maskTexture = nil
	c.r.Destroy()
	c.buffersReady = false
	c.setState(Idle)
	Logger().Info("arcomp: compositor closed", "frames", c.stats.Frames, "dropped", c.stats.Dropped)
	return nil
}

// applyPending takes the requests recorded since the last Draw and
// rebuilds whatever they invalidate. A failed rebuild is retried on every
// Draw until it succeeds.
func (c *Compositor) applyPending() {
	c.mu.Lock()
	p := c.pending
	c.pending = pending{}
	c.mu.Unlock()

	if p.empty() && c.State() != Rebuilding {
		return
	}

	if p.maskSet {
		c.setMask(p.mask)
	}
	if p.sizeSet {
		c.size, c.sizeValid = p.size, true
	}
	if p.layersSet {
		c.setupLayers(p.layers)
	}
	c.rebuild(p.layersSet)
}

// setMask uploads the mask image. A failed upload leaves a plain mask.
func (c *Compositor) setMask(m MaskConfig) {
	c.r.DestroyTexture(c.maskTexture)
	c.maskTexture = nil
	c.mask = m

	switch m.Mode {
	case MaskVideo:
		Logger().Warn("arcomp: video masks are not supported, using plain mask")
	case MaskImage:
		if m.Image == nil {
			Logger().Warn("arcomp: image mask without image, using plain mask")
			return
		}
		tex, err := c.r.UploadImage("mask", m.Image)
		if err != nil {
			Logger().Error("arcomp: mask upload failed, using plain mask", "err", err)
			return
		}
		c.maskTexture = tex
	}
}

// setupLayers installs a new layer set: uploads image textures, creates
// one video cache per video layer and releases what the old set owned.
// Textures and caches of layers that carry over unchanged are kept.
func (c *Compositor) setupLayers(layers []*Layer) {
	oldByID := make(map[int]*Layer, len(c.layers))
	for _, l := range c.layers {
		oldByID[l.ID] = l
	}
	oldVideos := c.videos
	c.videos = make(map[int]*gpu.VideoCache)

	c.content = gpu.ContentNormal
	contentChosen := false
	kept := make(map[*gpu.Texture]bool)

	for _, l := range layers {
		old := oldByID[l.ID]
		switch l.Kind() {
		case KindImage:
			if old != nil && old.texture != nil && sameImage(old, l) {
				l.texture = old.texture
				kept[old.texture] = true
				continue
			}
			img, _ := l.Image()
			tex, err := c.r.UploadImage(fmt.Sprintf("layer%d", l.ID), img.Image)
			if err != nil {
				Logger().Error("arcomp: layer texture upload failed, layer disabled", "id", l.ID, "err", err)
				continue
			}
			l.texture = tex

		case KindVideo:
			if cache, ok := oldVideos[l.ID]; ok && old != nil && old.content == l.content {
				c.videos[l.ID] = cache
				delete(oldVideos, l.ID)
			} else {
				c.videos[l.ID] = c.r.NewVideoCache(fmt.Sprintf("layer%d_video", l.ID))
			}
			if vc, _ := l.Video(); !contentChosen && vc.Layout != AlphaNone {
				c.content = contentPipeline(vc.Layout)
				contentChosen = true
			}

		case KindModel:
			Logger().Debug("arcomp: model layers are not drawn", "id", l.ID)
		}
	}

	for _, cache := range oldVideos {
		cache.Release()
	}
	c.releaseLayers(c.layers, kept)
	c.layers = layers
	Logger().Debug("arcomp: layer set applied", "layers", len(layers), "content", c.content)
}

// releaseLayers destroys the image textures of layers except those in keep.
func (c *Compositor) releaseLayers(layers []*Layer, keep map[*gpu.Texture]bool) {
	for _, l := range layers {
		if l.texture != nil && !keep[l.texture] {
			c.r.DestroyTexture(l.texture)
		}
		l.texture = nil
	}
	if keep == nil {
		for id, cache := range c.videos {
			cache.Release()
			delete(c.videos, id)
		}
	}
}

// rebuild recomputes geometry and uploads it. When the layer set is
// unchanged and buffers exist they are patched in place.
func (c *Compositor) rebuild(layersChanged bool) {
	c.setState(Rebuilding)
	c.buffersReady = false

	if !c.sizeValid || len(c.layers) == 0 {
		c.destroyMeshes()
		c.setState(Idle)
		return
	}

	g := c.opts.builder.Build(c.layers, c.size, c.mask)

	patched := false
	if !layersChanged && c.meshesComplete() {
		if err := c.patchMeshes(g); err != nil {
			Logger().Warn("arcomp: in-place buffer update failed, recreating", "err", err)
		} else {
			patched = true
		}
	}
	if !patched {
		c.destroyMeshes()
		if err := c.createMeshes(g); err != nil {
			Logger().Warn("arcomp: geometry upload failed, frame dropped", "err", err)
			return
		}
	}

	if !c.surface {
		if err := c.ensureTargets(); err != nil {
			return
		}
	}

	c.geometry = g
	c.buffersReady = true
	c.setState(Ready)
	c.needsRedraw.Store(true)
	Logger().Debug("arcomp: geometry rebuilt",
		"layers", len(c.layers), "patched", patched, "fit_scale", g.Fit.Scale)
}

func (c *Compositor) ensureTargets() error {
	err := c.r.EnsureTargets(uint32(c.size.Width), uint32(c.size.Height))
	if err != nil {
		Logger().Warn("arcomp: render targets unavailable", "err", err)
	}
	return err
}

func (c *Compositor) meshesComplete() bool {
	if len(c.meshes) != len(c.layers) {
		return false
	}
	return c.maskMesh != nil && c.fullMaskMesh != nil && c.background != nil
}

// createMeshes uploads g. Meshes are appended as they are created, so a
// failure leaves fewer meshes than layers.
func (c *Compositor) createMeshes(g Geometry) error {
	indices := QuadIndices[:]
	for i, l := range c.layers {
		quad, err := c.r.CreateMesh(fmt.Sprintf("layer%d_quad", l.ID), EncodeVertices(g.Layers[i][:]), indices)
		if err != nil {
			return err
		}
		full, err := c.r.CreateMesh(fmt.Sprintf("layer%d_fullscreen", l.ID), EncodeVertices(g.Fullscreen[i][:]), indices)
		if err != nil {
			c.r.DestroyMesh(quad)
			return err
		}
		c.meshes = append(c.meshes, layerMeshes{quad: quad, full: full})
	}

	var err error
	if c.maskMesh, err = c.r.CreateMesh("mask", EncodeVertices(g.Mask[:]), nil); err != nil {
		return err
	}
	if c.fullMaskMesh, err = c.r.CreateMesh("mask_fullscreen", EncodeVertices(g.FullscreenMask[:]), nil); err != nil {
		return err
	}
	if c.background, err = c.r.CreateMesh("background", EncodeVertices(g.Background[:]), indices); err != nil {
		return err
	}
	return nil
}

// patchMeshes rewrites existing vertex buffers without reallocating.
func (c *Compositor) patchMeshes(g Geometry) error {
	for i, m := range c.meshes {
		if err := c.r.UpdateVertices(m.quad, EncodeVertices(g.Layers[i][:])); err != nil {
			return err
		}
		if err := c.r.UpdateVertices(m.full, EncodeVertices(g.Fullscreen[i][:])); err != nil {
			return err
		}
	}
	if err := c.r.UpdateVertices(c.maskMesh, EncodeVertices(g.Mask[:])); err != nil {
		return err
	}
	if err := c.r.UpdateVertices(c.fullMaskMesh, EncodeVertices(g.FullscreenMask[:])); err != nil {
		return err
	}
	return c.r.UpdateVertices(c.background, EncodeVertices(g.Background[:]))
}

func (c *Compositor) destroyMeshes() {
	for _, m := range c.meshes {
		c.r.DestroyMesh(m.quad)
		c.r.DestroyMesh(m.full)
	}
	c.meshes = nil
	c.r.DestroyMesh(c.maskMesh)
	c.r.DestroyMesh(c.fullMaskMesh)
	c.r.DestroyMesh(c.background)
	c.maskMesh, c.fullMaskMesh, c.background = nil, nil, nil
}

// Geometry returns the geometry of the current layer set. Render
// goroutine only.
func (c *Compositor) Geometry() Geometry {
	return c.geometry
}

// Layers returns the current layer set in draw order. The layers are the
// compositor's clones and must not be modified. Render goroutine only.
func (c *Compositor) Layers() []*Layer {
	return slices.Clone(c.layers)
}

func contentPipeline(a AlphaLayout) gpu.ContentPipeline {
	switch a {
	case AlphaLeftRight:
		return gpu.ContentAlphaLeftRight
	case AlphaTopBottom:
		return gpu.ContentAlphaTopBottom
	default:
		return gpu.ContentNormal
	}
}

// sameImage reports whether two image layers show the identical image value.
func sameImage(a, b *Layer) bool {
	ia, _ := a.Image()
	ib, _ := b.Image()
	va, vb := reflect.ValueOf(ia.Image), reflect.ValueOf(ib.Image)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() || !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}

func copyMat(m *Mat4) *Mat4 {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
