package arcomp

// Default fit parameters.
const (
	DefaultFitBound     = 1
	DefaultFitMinExtent = 1e-4
)

// Fit is a uniform scale followed by a planar offset.
type Fit struct {
	Scale  float32
	Offset [2]float32
}

// IdentityFit leaves points unchanged.
func IdentityFit() Fit {
	return Fit{Scale: 1}
}

// Apply rewrites the X and Y position of every vertex in place.
// Z, texture coordinates and layer indices are untouched.
func (f Fit) Apply(vs []Vertex) {
	for i := range vs {
		vs[i].Position[0] = vs[i].Position[0]*f.Scale + f.Offset[0]
		vs[i].Position[1] = vs[i].Position[1]*f.Scale + f.Offset[1]
	}
}

// Point applies the fit to a single point.
func (f Fit) Point(p [2]float32) [2]float32 {
	return [2]float32{p[0]*f.Scale + f.Offset[0], p[1]*f.Scale + f.Offset[1]}
}

// FitSolver fits a point set inside a box of half-size BoundWidth by
// BoundHeight centered at the origin. With the defaults that box is the
// [-1, 1] clip square.
//
// The zero value uses DefaultFitBound and DefaultFitMinExtent.
type FitSolver struct {
	BoundWidth  float32
	BoundHeight float32

	// MinExtent clamps the bounding box sides before dividing, so
	// degenerate point sets yield a large finite scale instead of Inf.
	MinExtent float32
}

func (s FitSolver) params() (bw, bh, minExt float32) {
	bw, bh, minExt = s.BoundWidth, s.BoundHeight, s.MinExtent
	if bw <= 0 {
		bw = DefaultFitBound
	}
	if bh <= 0 {
		bh = DefaultFitBound
	}
	if minExt <= 0 {
		minExt = DefaultFitMinExtent
	}
	return bw, bh, minExt
}

// Solve returns the largest uniform scale at which the bounding box of
// points fits inside the bound box, and the offset that centers it at the
// origin. The smaller of the width and height fits wins. An empty point
// set yields IdentityFit.
func (s FitSolver) Solve(points [][2]float32) Fit {
	if len(points) == 0 {
		return IdentityFit()
	}
	bw, bh, minExt := s.params()

	r := Rect{MinX: points[0][0], MaxX: points[0][0], MinY: points[0][1], MaxY: points[0][1]}
	for _, p := range points[1:] {
		r.MinX = min(r.MinX, p[0])
		r.MaxX = max(r.MaxX, p[0])
		r.MinY = min(r.MinY, p[1])
		r.MaxY = max(r.MaxY, p[1])
	}

	w := max(r.Width(), minExt)
	h := max(r.Height(), minExt)
	scale := min(2*bw/w, 2*bh/h)

	c := r.Center()
	return Fit{
		Scale:  scale,
		Offset: [2]float32{-c.X * scale, -c.Y * scale},
	}
}
