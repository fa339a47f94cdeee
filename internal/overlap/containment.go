package overlap

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/geodesic"
	"github.com/mohammed-shakir/ringguard/internal/kinks"
)

var errNoGeometry = errors.New("no ring to test")

// Contains reports whether inner lies entirely within outer, boundary
// included. Both rings must be valid simple rings with non-zero area,
// otherwise an error is returned instead of a verdict.
func Contains(outer, inner orb.Ring) (bool, error) {
	if err := checkSimple("outer", outer); err != nil {
		return false, err
	}
	if err := checkSimple("inner", inner); err != nil {
		return false, err
	}
	closed := closedCopy(outer)
	for _, p := range model.Open(inner) {
		if !planar.RingContains(closed, p) {
			return false, nil
		}
	}
	if kinks.RingsCross(outer, inner) {
		return false, nil
	}
	return true, nil
}

func checkSimple(name string, r orb.Ring) error {
	if len(r) == 0 {
		return fmt.Errorf("%s: %w", name, errNoGeometry)
	}
	if err := model.CheckRing(r); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if geodesic.VertexCount(r) < 3 || geodesic.RingArea(r) == 0 {
		return fmt.Errorf("%s ring is degenerate", name)
	}
	pts, err := kinks.Detect(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(pts) > 0 {
		return fmt.Errorf("%s ring self-intersects at %v", name, pts[0].Point)
	}
	return nil
}

func closedCopy(r orb.Ring) orb.Ring {
	open := model.Open(r)
	return append(open, open[0])
}
