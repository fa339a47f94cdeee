// Package memo caches self-intersection results per ring. While a boundary
// is dragged the same ring is re-validated many times per second.
package memo

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/cache/keys"
	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/core/observability"
	"github.com/mohammed-shakir/ringguard/internal/kinks"
)

const cacheName = "detect_memo"

// TierDetector is a detector that names the tier that answered.
type TierDetector interface {
	DetectWithTier(r orb.Ring) ([]model.IntersectionPoint, string, error)
}

type entry struct {
	pts  []model.IntersectionPoint
	tier string
}

// Detector is safe for concurrent use.
type Detector struct {
	inner TierDetector
	lru   *lru.Cache[uint64, entry]
}

var _ kinks.Detector = (*Detector)(nil)

func New(size int, inner TierDetector) *Detector {
	if size <= 0 {
		size = 4096
	}
	if inner == nil {
		inner = kinks.Default()
	}
	c, _ := lru.New[uint64, entry](size)
	return &Detector{inner: inner, lru: c}
}

func (d *Detector) Detect(r orb.Ring) ([]model.IntersectionPoint, error) {
	pts, _, err := d.DetectWithTier(r)
	return pts, err
}

func (d *Detector) DetectWithTier(r orb.Ring) ([]model.IntersectionPoint, string, error) {
	if err := model.CheckRing(r); err != nil {
		return nil, "", err
	}
	k := keys.Ring(r)
	if e, ok := d.lru.Get(k); ok {
		observability.ObserveCacheOp(cacheName, "get", "hit")
		return clone(e.pts), e.tier, nil
	}
	observability.ObserveCacheOp(cacheName, "get", "miss")

	pts, tier, err := d.inner.DetectWithTier(r)
	if err != nil {
		return nil, "", err
	}
	d.lru.Add(k, entry{pts: clone(pts), tier: tier})
	observability.SetDetectMemoEntries(d.Len())
	return pts, tier, nil
}

// Len is the number of rings currently memoized.
func (d *Detector) Len() int { return d.lru.Len() }

func clone(pts []model.IntersectionPoint) []model.IntersectionPoint {
	if pts == nil {
		return nil
	}
	out := make([]model.IntersectionPoint, len(pts))
	copy(out, pts)
	return out
}
