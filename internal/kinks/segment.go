package kinks

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// relative tolerance for orientation tests
	orientEps = 1e-12
	// brute force accepts t,u strictly inside (margin, 1-margin)
	paramMargin = 1e-4
	// near-parallel cutoff, scaled by both edge lengths
	parallelEps = 1e-12
	// points closer than this (degrees) are the same intersection
	dedupeEps = 1e-9
	// consecutive vertices closer than this (degrees) collapse
	vertexEps = 1e-12
)

type edge struct {
	idx  int
	a, b orb.Point
}

func (e edge) bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(e.a[0], e.b[0]), math.Min(e.a[1], e.b[1])},
		Max: orb.Point{math.Max(e.a[0], e.b[0]), math.Max(e.a[1], e.b[1])},
	}
}

func edgesOf(pts orb.Ring) []edge {
	n := len(pts)
	out := make([]edge, n)
	for i := range n {
		out[i] = edge{idx: i, a: pts[i], b: pts[(i+1)%n]}
	}
	return out
}

// adjacent edges share a vertex by construction and never count as crossing
func adjacent(i, j, n int) bool {
	return i == j || (i+1)%n == j || (j+1)%n == i
}

// sign of the turn a->b->c, zero when within tolerance of collinear
func orient(a, b, c orb.Point) int {
	cross := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	scale := math.Hypot(b[0]-a[0], b[1]-a[1]) * math.Hypot(c[0]-a[0], c[1]-a[1])
	if math.Abs(cross) <= orientEps*scale {
		return 0
	}
	if cross > 0 {
		return 1
	}
	return -1
}

// c lies within the bounding box of a-b; only meaningful when collinear
func onSegment(a, b, c orb.Point) bool {
	return c[0] >= math.Min(a[0], b[0])-dedupeEps && c[0] <= math.Max(a[0], b[0])+dedupeEps &&
		c[1] >= math.Min(a[1], b[1])-dedupeEps && c[1] <= math.Max(a[1], b[1])+dedupeEps
}

// parametric solution of a + t(b-a) = c + u(d-c); ok is false when the
// edges are parallel within a length-scaled tolerance
func solve(a, b, c, d orb.Point) (t, u float64, ok bool) {
	d1x, d1y := b[0]-a[0], b[1]-a[1]
	d2x, d2y := d[0]-c[0], d[1]-c[1]
	det := d1x*d2y - d1y*d2x
	if math.Abs(det) <= parallelEps*math.Hypot(d1x, d1y)*math.Hypot(d2x, d2y) || det == 0 {
		return 0, 0, false
	}
	ex, ey := c[0]-a[0], c[1]-a[1]
	t = (ex*d2y - ey*d2x) / det
	u = (ex*d1y - ey*d1x) / det
	return t, u, true
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

// contact returns the points where segments a-b and c-d meet: one point for
// a proper crossing, the touching endpoints for T-junctions and collinear
// overlaps, nothing otherwise.
func contact(a, b, c, d orb.Point) []orb.Point {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)

	if o1*o2 < 0 && o3*o4 < 0 {
		if t, _, ok := solve(a, b, c, d); ok {
			return []orb.Point{lerp(a, b, t)}
		}
	}

	var out []orb.Point
	if o1 == 0 && onSegment(a, b, c) {
		out = append(out, c)
	}
	if o2 == 0 && onSegment(a, b, d) {
		out = append(out, d)
	}
	if o3 == 0 && onSegment(c, d, a) {
		out = append(out, a)
	}
	if o4 == 0 && onSegment(c, d, b) {
		out = append(out, b)
	}
	return out
}

// properCross reports whether a-b and c-d cross at a single interior point.
func properCross(a, b, c, d orb.Point) bool {
	return orient(a, b, c)*orient(a, b, d) < 0 && orient(c, d, a)*orient(c, d, b) < 0
}

// RingsCross reports whether any edge of r properly crosses any edge of s.
// Touching boundaries do not count.
func RingsCross(r, s orb.Ring) bool {
	re := edgesOf(normalize(r).pts)
	se := edgesOf(normalize(s).pts)
	for _, e := range re {
		eb := e.bound()
		for _, f := range se {
			if !eb.Intersects(f.bound()) {
				continue
			}
			if properCross(e.a, e.b, f.a, f.b) {
				return true
			}
		}
	}
	return false
}

func samePoint(p, q orb.Point) bool {
	return math.Abs(p[0]-q[0]) <= dedupeEps && math.Abs(p[1]-q[1]) <= dedupeEps
}
