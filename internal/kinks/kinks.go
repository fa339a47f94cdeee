// Package kinks finds self-intersections of a ring with a three-tier chain:
// a fast indexed pass, a sweep-line pass and a brute-force pass. Each tier
// runs only when the previous ones found nothing.
package kinks

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

const (
	TierFast       = "fast"
	TierSweep      = "sweep"
	TierBruteForce = "brute_force"
)

// Detector finds self-intersections in a ring.
type Detector interface {
	Detect(r orb.Ring) ([]model.IntersectionPoint, error)
}

// Tier is one pass of the chain.
type Tier struct {
	Name string
	Run  func(r orb.Ring) []model.IntersectionPoint
}

// Chain tries its tiers in order and returns the first non-empty result.
type Chain struct {
	tiers []Tier
}

var _ Detector = (*Chain)(nil)

var defaultChain = NewChain(Tiers()...)

// Tiers returns the default tier order.
func Tiers() []Tier {
	return []Tier{
		{Name: TierFast, Run: Fast},
		{Name: TierSweep, Run: Sweep},
		{Name: TierBruteForce, Run: BruteForce},
	}
}

// NewChain builds a chain over tiers, tried in the order given.
func NewChain(tiers ...Tier) *Chain {
	return &Chain{tiers: tiers}
}

// Default returns the chain used by Detect.
func Default() *Chain { return defaultChain }

// Detect returns the points found by the first tier that finds any, or none
// when the ring is simple. Rings that fail CheckRing are rejected.
func (c *Chain) Detect(r orb.Ring) ([]model.IntersectionPoint, error) {
	pts, _, err := c.DetectWithTier(r)
	return pts, err
}

// DetectWithTier also names the tier that answered; the name is empty when
// the ring is simple.
func (c *Chain) DetectWithTier(r orb.Ring) ([]model.IntersectionPoint, string, error) {
	if err := model.CheckRing(r); err != nil {
		return nil, "", err
	}
	for _, t := range c.tiers {
		if pts := t.Run(r); len(pts) > 0 {
			return pts, t.Name, nil
		}
	}
	return nil, "", nil
}

// Detect runs the default chain.
func Detect(r orb.Ring) ([]model.IntersectionPoint, error) {
	return defaultChain.Detect(r)
}

// DetectWithTier runs the default chain and reports the answering tier.
func DetectWithTier(r orb.Ring) ([]model.IntersectionPoint, string, error) {
	return defaultChain.DetectWithTier(r)
}

type hit struct {
	a, b int
	p    orb.Point
}

type normalized struct {
	pts orb.Ring
	// start index in the caller's ring of each normalized edge
	edge []int
}

// normalize drops the closing vertex and collapses consecutive duplicates,
// remembering where each surviving edge starts in the caller's ring.
func normalize(r orb.Ring) normalized {
	open := model.Open(r)
	out := normalized{
		pts:  make(orb.Ring, 0, len(open)),
		edge: make([]int, 0, len(open)),
	}
	for i, p := range open {
		if n := len(out.pts); n > 0 && nearVertex(out.pts[n-1], p) {
			out.edge[n-1] = i
			continue
		}
		out.pts = append(out.pts, p)
		out.edge = append(out.edge, i)
	}
	for n := len(out.pts); n > 1 && nearVertex(out.pts[0], out.pts[n-1]); n = len(out.pts) {
		out.pts = out.pts[:n-1]
		out.edge = out.edge[:n-1]
	}
	return out
}

func nearVertex(p, q orb.Point) bool {
	return math.Abs(p[0]-q[0]) <= vertexEps && math.Abs(p[1]-q[1]) <= vertexEps
}

// run normalizes r, skips rings that cannot self-intersect and maps the
// hits of pass back to the caller's edge indices.
func run(r orb.Ring, tier string, pass func(edges []edge) []hit) []model.IntersectionPoint {
	if r == nil {
		return nil
	}
	norm := normalize(r)
	if len(norm.pts) < 4 {
		return nil
	}
	hits := pass(edgesOf(norm.pts))
	if len(hits) == 0 {
		return nil
	}
	for i := range hits {
		if hits[i].a > hits[i].b {
			hits[i].a, hits[i].b = hits[i].b, hits[i].a
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].a != hits[j].a {
			return hits[i].a < hits[j].a
		}
		if hits[i].b != hits[j].b {
			return hits[i].b < hits[j].b
		}
		if hits[i].p[0] != hits[j].p[0] {
			return hits[i].p[0] < hits[j].p[0]
		}
		return hits[i].p[1] < hits[j].p[1]
	})

	out := make([]model.IntersectionPoint, 0, len(hits))
	for _, h := range hits {
		dup := false
		for _, prev := range out {
			if samePoint(prev.Point, h.p) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, model.IntersectionPoint{
			Point: h.p,
			EdgeA: norm.edge[h.a],
			EdgeB: norm.edge[h.b],
			Tier:  tier,
		})
	}
	return out
}
