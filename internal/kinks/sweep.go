package kinks

import (
	"math"
	"slices"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

// Sweep is a Shamos-Hoey sweep-line pass. Edge endpoints are processed in
// x order while the active edges are kept sorted by their y at the sweep
// position, and an edge is only tested against the edges next to it in that
// order when it enters or leaves. Deciding that a ring is simple costs
// O(n log n) comparisons. Once a contact is seen the ordering is no longer
// trustworthy, so the points are collected from an R-tree over the edge
// bounds with the same orientation predicates. Proper crossings,
// vertex-on-edge touches and collinear overlaps between non-adjacent edges
// are all reported.
func Sweep(r orb.Ring) []model.IntersectionPoint {
	return run(r, TierSweep, sweepPass)
}

func sweepPass(edges []edge) []hit {
	s := newSweeper(edges)
	if !s.detect() {
		return nil
	}
	return collectContacts(edges)
}

type sweepEvent struct {
	p      orb.Point
	insert bool
	edge   int
}

type sweeper struct {
	edges []edge
	// endpoints ordered by x, then y
	left, right []orb.Point
	// edge indices ordered bottom to top at the sweep position
	active []int
	x, y   float64
	// pair tests made, for tests
	tests int
}

func newSweeper(edges []edge) *sweeper {
	s := &sweeper{
		edges: edges,
		left:  make([]orb.Point, len(edges)),
		right: make([]orb.Point, len(edges)),
	}
	for i, e := range edges {
		l, r := e.a, e.b
		if r[0] < l[0] || (r[0] == l[0] && r[1] < l[1]) {
			l, r = r, l
		}
		s.left[i], s.right[i] = l, r
	}
	return s
}

func (s *sweeper) events() []sweepEvent {
	evs := make([]sweepEvent, 0, 2*len(s.edges))
	for i := range s.edges {
		evs = append(evs,
			sweepEvent{p: s.left[i], insert: true, edge: i},
			sweepEvent{p: s.right[i], insert: false, edge: i},
		)
	}
	// inserts come before removals at the same point so edges meeting
	// there are still compared
	sort.Slice(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.p[0] != b.p[0] {
			return a.p[0] < b.p[0]
		}
		if a.p[1] != b.p[1] {
			return a.p[1] < b.p[1]
		}
		if a.insert != b.insert {
			return a.insert
		}
		return a.edge < b.edge
	})
	return evs
}

// detect reports whether any two non-adjacent edges meet.
func (s *sweeper) detect() bool {
	for _, ev := range s.events() {
		s.x, s.y = ev.p[0], ev.p[1]
		if ev.insert {
			if s.meetsAround(s.insert(ev.edge)) {
				return true
			}
			continue
		}
		pos := s.find(ev.edge)
		if pos < 0 {
			// the order broke, which only a crossing behind the sweep can do
			return true
		}
		if s.meetsAround(pos) {
			return true
		}
		s.active = slices.Delete(s.active, pos, pos+1)
		if pos > 0 && pos < len(s.active) && s.meets(s.active[pos-1], s.active[pos]) {
			return true
		}
	}
	return false
}

// key is the y of edge i at the sweep position. Vertical edges follow the
// sweep point along their extent.
func (s *sweeper) key(i int) float64 {
	l, r := s.left[i], s.right[i]
	switch {
	case l[0] == r[0]:
		return math.Min(math.Max(s.y, l[1]), r[1])
	case s.x <= l[0]:
		return l[1]
	case s.x >= r[0]:
		return r[1]
	}
	return l[1] + (s.x-l[0])*(r[1]-l[1])/(r[0]-l[0])
}

func (s *sweeper) slope(i int) float64 {
	l, r := s.left[i], s.right[i]
	if l[0] == r[0] {
		return math.Inf(1)
	}
	return (r[1] - l[1]) / (r[0] - l[0])
}

// below orders edge i under edge j just right of the sweep position.
func (s *sweeper) below(i, j int) bool {
	ki, kj := s.key(i), s.key(j)
	if ki != kj {
		return ki < kj
	}
	si, sj := s.slope(i), s.slope(j)
	if si != sj {
		return si < sj
	}
	return i < j
}

func (s *sweeper) insert(i int) int {
	pos := sort.Search(len(s.active), func(k int) bool { return s.below(i, s.active[k]) })
	s.active = slices.Insert(s.active, pos, i)
	return pos
}

// find locates edge i within the run of active edges whose key is within
// tolerance of its own; -1 when it is not there.
func (s *sweeper) find(i int) int {
	ki := s.key(i)
	k := sort.Search(len(s.active), func(k int) bool { return s.key(s.active[k]) >= ki-dedupeEps })
	for ; k < len(s.active) && s.key(s.active[k]) <= ki+dedupeEps; k++ {
		if s.active[k] == i {
			return k
		}
	}
	return -1
}

// meetsAround tests the edge at pos against every active edge sharing its
// key and against the nearest edge beyond that run on each side.
func (s *sweeper) meetsAround(pos int) bool {
	i := s.active[pos]
	ki := s.key(i)
	for k := pos + 1; k < len(s.active); k++ {
		j := s.active[k]
		if s.meets(i, j) {
			return true
		}
		if s.key(j) > ki+dedupeEps {
			break
		}
	}
	for k := pos - 1; k >= 0; k-- {
		j := s.active[k]
		if s.meets(i, j) {
			return true
		}
		if s.key(j) < ki-dedupeEps {
			break
		}
	}
	return false
}

func (s *sweeper) meets(i, j int) bool {
	if adjacent(i, j, len(s.edges)) {
		return false
	}
	s.tests++
	e, f := s.edges[i], s.edges[j]
	return len(contact(e.a, e.b, f.a, f.b)) > 0
}

// collectContacts returns every contact between non-adjacent edges whose
// padded bounds overlap.
func collectContacts(edges []edge) []hit {
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
			for _, p := range contact(e.a, e.b, f.a, f.b) {
				out = append(out, hit{a: e.idx, b: f.idx, p: p})
			}
		}
	}
	return out
}
