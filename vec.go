package arcomp

// Vec3 is a placement vector in anchor space.
//
// X and Y are the planar offset of a layer. Z is its render-order key:
// layers are drawn in ascending Z, and Z scaled by the depth bias nudges
// the quad off the anchor plane so stacked layers stay distinguishable.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is a convenience function to create a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Mul returns the vector scaled by a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Vec2 is a planar offset, used by the mask.
type Vec2 struct {
	X, Y float32
}

// Extent is a planar size in render units.
type Extent struct {
	Width, Height float32
}

// Valid reports whether both sides are positive.
func (e Extent) Valid() bool {
	return e.Width > 0 && e.Height > 0
}
