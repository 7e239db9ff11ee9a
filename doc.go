// Package arcomp composites independently placed image and video layers
// onto an AR anchor, masked by a stencil.
//
// # Overview
//
// Every redraw runs up to three GPU passes:
//
//  1. Mask: clear color and stencil, then stamp the stencil wherever the
//     mask quad lands. The mask is a plain rectangle or an image whose
//     opaque texels define the visible region.
//  2. Backdrop: only while tracking is lost. The first layer with
//     UseStencil == false is drawn full screen without any stencil test.
//  3. Content: every layer with UseStencil == true is drawn in ascending
//     Offset.Z order and survives only where the mask pass marked the
//     stencil.
//
// While a surface is tracked the layers are placed in anchor space and
// transformed by the anchor, camera and projection matrices from the
// latest [FrameState]. When tracking is lost the compositor switches to a
// parallel set of buffers: the same quads laid out in screen space and fit
// to the viewport by [FitSolver].
//
// # Quick Start
//
//	comp, err := arcomp.New(device, queue)
//	if err != nil {
//	    return err
//	}
//	defer comp.Close()
//
//	comp.SetTargetSize(arcomp.Size{
//	    Width: 1280, Height: 720,
//	    Extent:     arcomp.Extent{Width: 1, Height: 1},
//	    MaskExtent: arcomp.Extent{Width: 1, Height: 1},
//	})
//	comp.SetLayers(map[int]*arcomp.Layer{
//	    1: arcomp.NewImageLayer(1, img),
//	})
//
//	// Every tick, from the render goroutine:
//	comp.UpdateFrame(arcomp.FrameState{Anchor: &anchor, Camera: &view, Projection: &proj})
//	comp.Draw(nil)
//
// # Threading
//
// SetLayers, SetTargetSize, SetMask, UpdateFrame and Redraw may be called
// from any goroutine. They only record the request. Draw, Close and
// SetSurfaceTarget must be called from the single render goroutine, which
// applies pending requests at the start of each Draw before touching any
// GPU resource.
//
// # Failure model
//
// Draw never returns an error. A frame whose required resources are
// missing is dropped whole and logged; the next triggered redraw starts
// from scratch. A layer whose texture is unavailable (an image that failed
// to upload, a video with no frame at the current time) is skipped for
// that frame only. Enable logging with [SetLogger] to see why.
package arcomp
