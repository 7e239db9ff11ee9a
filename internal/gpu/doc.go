// Package gpu renders composited frames through the wgpu HAL.
//
// It is the device-facing half of arcomp: the root package decides what
// to draw, this package owns every GPU object and records the passes.
//
// # Frame Structure
//
// Each frame is recorded into one command buffer with up to three passes
// over a shared MSAA color target and a depth/stencil attachment:
//
//  1. Mask pass: clears color and stencil, then writes MaskStencilRef
//     wherever the mask quad covers (or where the mask texture is opaque).
//  2. Background pass: optional, draws the backdrop layer with the stencil
//     ignored.
//  3. Content pass: draws every layer with the stencil test set to equal,
//     so only pixels inside the mask survive.
//
// The color target resolves into either the caller's surface view or an
// offscreen texture that can be read back into an *image.RGBA.
//
// # Resources
//
//   - Renderer: pipelines, targets, samplers and frame submission
//   - Mesh: a vertex buffer and, for quads, an index buffer
//   - Texture: an uploaded image with mips and its bind group
//   - VideoCache: a texture reused across video frames of equal size
//
// Submissions are tracked by index and their command buffers are freed
// once the queue reports them complete. A frame missing a required
// resource is dropped before anything is encoded (ErrFrameDropped).
package gpu
