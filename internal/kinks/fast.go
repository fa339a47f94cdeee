package kinks

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

// padding keeps axis-aligned edges from producing zero-width rectangles
const indexPad = 1e-9

type indexedEdge struct {
	edge
	rect rtreego.Rect
}

func (e *indexedEdge) Bounds() rtreego.Rect { return e.rect }

func newIndexedEdge(e edge) (*indexedEdge, error) {
	b := e.bound()
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min[0] - indexPad, b.Min[1] - indexPad},
		rtreego.Point{b.Max[0] + indexPad, b.Max[1] + indexPad},
	)
	if err != nil {
		return nil, err
	}
	return &indexedEdge{edge: e, rect: rect}, nil
}

// Fast is the general planar pass: edges are indexed in an R-tree and every
// pair of overlapping, non-adjacent edges is intersected on the closed
// parameter interval. Crossings that land on a segment endpoint are
// discarded, so vertex-on-edge touches are left to the later tiers.
func Fast(r orb.Ring) []model.IntersectionPoint {
	return run(r, TierFast, fastPass)
}

func fastPass(edges []edge) []hit {
	n := len(edges)
	objs := make([]rtreego.Spatial, 0, n)
	for _, e := range edges {
		ie, err := newIndexedEdge(e)
		if err != nil {
			return nil
		}
		objs = append(objs, ie)
	}
	tree := rtreego.NewTree(2, 4, 16, objs...)

	var out []hit
	for _, o := range objs {
		e := o.(*indexedEdge)
		for _, c := range tree.SearchIntersect(e.rect) {
			f := c.(*indexedEdge)
			if f.idx <= e.idx || adjacent(e.idx, f.idx, n) {
				continue
			}
			t, u, ok := solve(e.a, e.b, f.a, f.b)
			if !ok || t < 0 || t > 1 || u < 0 || u > 1 {
				continue
			}
			p := lerp(e.a, e.b, t)
			if samePoint(p, e.a) || samePoint(p, e.b) || samePoint(p, f.a) || samePoint(p, f.b) {
				continue
			}
			out = append(out, hit{a: e.idx, b: f.idx, p: p})
		}
	}
	return out
}
