package kinks

import (
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

// BruteForce checks every pair of non-adjacent edges with the parametric
// line intersection. A crossing counts only when both parameters lie
// strictly inside (margin, 1-margin), so endpoint touches are never
// reported; near-parallel pairs are skipped.
func BruteForce(r orb.Ring) []model.IntersectionPoint {
	return run(r, TierBruteForce, brutePass)
}

func brutePass(edges []edge) []hit {
	n := len(edges)
	var out []hit
	for i := range n {
		for j := i + 2; j < n; j++ {
			if adjacent(i, j, n) {
				continue
			}
			e, f := edges[i], edges[j]
			t, u, ok := solve(e.a, e.b, f.a, f.b)
			if !ok {
				continue
			}
			if t <= paramMargin || t >= 1-paramMargin || u <= paramMargin || u >= 1-paramMargin {
				continue
			}
			out = append(out, hit{a: i, b: j, p: lerp(e.a, e.b, t)})
		}
	}
	return out
}
