// Package validate applies a rule set to a ring and reports errors and
// warnings together with the ring's metrics.
package validate

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/geodesic"
	"github.com/mohammed-shakir/ringguard/internal/kinks"
)

type Validator struct {
	det kinks.Detector
}

var defaultValidator = New(nil)

// New returns a validator using det for self-intersection checks; nil uses
// the default tier chain.
func New(det kinks.Detector) *Validator {
	if det == nil {
		det = kinks.Default()
	}
	return &Validator{det: det}
}

// Validate runs the default validator.
func Validate(r orb.Ring, rules Rules) (Verdict, error) {
	return defaultValidator.Validate(r, rules)
}

// ValidatePolygon runs the default validator on a polygon.
func ValidatePolygon(p orb.Polygon, rules Rules) (Verdict, error) {
	return defaultValidator.ValidatePolygon(p, rules)
}

// Validate evaluates every rule; a ring can report several issues at once.
// The error is non-nil only for malformed input.
func (v *Validator) Validate(r orb.Ring, rules Rules) (Verdict, error) {
	return v.ValidatePolygon(orb.Polygon{r}, rules)
}

// ValidatePolygon applies the ring rules to the shell of p, with the area
// rules judged on the shell minus its holes. Every hole must be a simple
// ring with area lying inside the shell.
func (v *Validator) ValidatePolygon(p orb.Polygon, rules Rules) (Verdict, error) {
	m, err := geodesic.MeasurePolygon(p)
	if err != nil {
		return Verdict{}, err
	}
	shell := p[0]
	out := Verdict{
		Errors:   []Issue{},
		Warnings: []Issue{},
		Metrics:  m,
	}

	checkVertexCount(&out, m.VertexCount, rules)

	pts, err := v.det.Detect(shell)
	if err != nil {
		return Verdict{}, fmt.Errorf("detect self-intersections: %w", err)
	}
	checkSelfIntersection(&out, pts, rules)

	checkArea(&out, m.AreaHectares, rules)
	checkDuplicates(&out, shell, rules.duplicateTolerance())
	if rules.DetectSpikes {
		checkSpikes(&out, shell, rules)
	}
	for i, h := range p[1:] {
		if err := v.checkHole(&out, shell, h, i+1); err != nil {
			return Verdict{}, err
		}
	}

	out.Valid = len(out.Errors) == 0
	return out, nil
}

func (v *Verdict) fail(is Issue) {
	is.Severity = SeverityError
	v.Errors = append(v.Errors, is)
}

func (v *Verdict) warn(is Issue) {
	is.Severity = SeverityWarning
	v.Warnings = append(v.Warnings, is)
}

func checkVertexCount(v *Verdict, n int, rules Rules) {
	if n < rules.MinVertices {
		v.fail(Issue{
			Code:    CodeTooFewVertices,
			Message: fmt.Sprintf("ring has %d vertices, at least %d required", n, rules.MinVertices),
			Context: &Detail{Count: n, Min: rules.MinVertices},
		})
	}
	if rules.MaxVertices <= 0 {
		return
	}
	switch {
	case n > rules.MaxVertices:
		v.fail(Issue{
			Code:    CodeTooManyVertices,
			Message: fmt.Sprintf("ring has %d vertices, at most %d allowed", n, rules.MaxVertices),
			Context: &Detail{Count: n, Max: rules.MaxVertices},
		})
	case float64(n) > nearLimitRatio*float64(rules.MaxVertices):
		v.warn(Issue{
			Code:    CodeVerticesNearLimit,
			Message: fmt.Sprintf("ring has %d vertices, close to the limit of %d", n, rules.MaxVertices),
			Context: &Detail{Count: n, Max: rules.MaxVertices},
		})
	}
}

func checkSelfIntersection(v *Verdict, pts []model.IntersectionPoint, rules Rules) {
	if len(pts) == 0 {
		return
	}
	first := pts[0]
	loc := first.Point
	is := Issue{
		Location: &loc,
		EdgeA:    intPtr(first.EdgeA),
		EdgeB:    intPtr(first.EdgeB),
		Context:  &Detail{Points: len(pts), Tier: first.Tier},
	}
	if rules.AllowSelfIntersection {
		is.Code = CodeSelfIntersectionAllowed
		is.Message = fmt.Sprintf("edges %d and %d cross at %.7f,%.7f", first.EdgeA, first.EdgeB, loc[0], loc[1])
		v.warn(is)
		return
	}
	is.Code = CodeSelfIntersection
	is.Message = fmt.Sprintf("ring intersects itself: edges %d and %d cross at %.7f,%.7f",
		first.EdgeA, first.EdgeB, loc[0], loc[1])
	v.fail(is)
}

func checkArea(v *Verdict, ha float64, rules Rules) {
	switch {
	case ha == 0:
		v.fail(Issue{Code: CodeAreaZero, Message: "ring encloses no area"})
		return
	case ha < 0:
		v.fail(Issue{
			Code:    CodeAreaNegative,
			Message: "ring area is negative; vertex order is reversed (clockwise)",
			Context: &Detail{AreaHectares: ha},
		})
		return
	}
	if rules.MaxAreaHectares != nil && ha > *rules.MaxAreaHectares {
		v.fail(Issue{
			Code:    CodeAreaExceedsMaximum,
			Message: fmt.Sprintf("area %.4f ha exceeds maximum %.4f ha", ha, *rules.MaxAreaHectares),
			Context: &Detail{AreaHectares: ha, MaxHectares: *rules.MaxAreaHectares},
		})
	}
	if ha < rules.MinAreaHectares {
		v.warn(Issue{
			Code:    CodeAreaBelowMinimum,
			Message: fmt.Sprintf("area %.4f ha is below the minimum of %.4f ha", ha, rules.MinAreaHectares),
			Context: &Detail{AreaHectares: ha, MinHectares: rules.MinAreaHectares},
		})
	}
}

func checkDuplicates(v *Verdict, r orb.Ring, tol float64) {
	pts := model.Open(r)
	n := len(pts)
	if n < 2 {
		return
	}
	var idx []int
	for i := range n {
		j := (i + 1) % n
		if j == 0 && n < 3 {
			break
		}
		if geodesic.Distance(pts[i], pts[j]) < tol {
			idx = append(idx, j)
		}
	}
	if len(idx) == 0 {
		return
	}
	v.warn(Issue{
		Code:        CodeDuplicateVertices,
		Message:     fmt.Sprintf("%d consecutive duplicate vertices", len(idx)),
		VertexIndex: intPtr(idx[0]),
		Context:     &Detail{Indices: idx, ToleranceMeters: tol},
	})
}

// checkSpikes measures the interior angle at each vertex in a local
// equirectangular plane. Near-duplicate vertices are skipped so they do not
// produce meaningless angles. Reflex vertices measure above 180 degrees, so a
// narrow inward notch is not a spike.
func checkSpikes(v *Verdict, r orb.Ring, rules Rules) {
	open := model.Open(r)
	tol := rules.duplicateTolerance()

	pts := make(orb.Ring, 0, len(open))
	orig := make([]int, 0, len(open))
	for i, p := range open {
		if len(pts) > 0 && geodesic.Distance(pts[len(pts)-1], p) < tol {
			continue
		}
		pts = append(pts, p)
		orig = append(orig, i)
	}
	for len(pts) > 1 && geodesic.Distance(pts[0], pts[len(pts)-1]) < tol {
		pts = pts[:len(pts)-1]
		orig = orig[:len(orig)-1]
	}
	n := len(pts)
	if n < 3 {
		return
	}
	ccw := geodesic.RingArea(pts) >= 0
	for i := range n {
		prev := pts[(i+n-1)%n]
		next := pts[(i+1)%n]
		angle, ok := interiorAngle(prev, pts[i], next, ccw)
		if !ok || angle >= rules.SpikeAngleThresholdDegrees {
			continue
		}
		loc := pts[i]
		v.warn(Issue{
			Code:        CodeSpikeDetected,
			Message:     fmt.Sprintf("spike at vertex %d: %.2f degrees", orig[i], angle),
			Location:    &loc,
			VertexIndex: intPtr(orig[i]),
			Angle:       floatPtr(angle),
		})
	}
}

// interiorAngle is the angle in degrees at cur on the inside of a ring wound
// counter-clockwise when ccw is set, clockwise otherwise. The result is in
// [0, 360).
func interiorAngle(prev, cur, next orb.Point, ccw bool) (float64, bool) {
	k := math.Cos(cur[1] * math.Pi / 180)
	ax, ay := (prev[0]-cur[0])*k, prev[1]-cur[1]
	bx, by := (next[0]-cur[0])*k, next[1]-cur[1]
	if math.Hypot(ax, ay) == 0 || math.Hypot(bx, by) == 0 {
		return 0, false
	}
	// sweep from the outgoing edge to the incoming one, the interior side
	// of a counter-clockwise ring
	turn := (math.Atan2(ay, ax) - math.Atan2(by, bx)) * 180 / math.Pi
	deg := math.Mod(turn+720, 360)
	if !ccw {
		deg = math.Mod(360-deg, 360)
	}
	return deg, true
}

func (v *Validator) checkHole(out *Verdict, shell, hole orb.Ring, idx int) error {
	pts, err := v.det.Detect(hole)
	if err != nil {
		return fmt.Errorf("detect self-intersections in hole %d: %w", idx, err)
	}
	switch {
	case len(pts) > 0:
		loc := pts[0].Point
		out.fail(Issue{
			Code:     CodeHoleInvalid,
			Message:  fmt.Sprintf("hole %d intersects itself at %.7f,%.7f", idx, loc[0], loc[1]),
			Location: &loc,
			EdgeA:    intPtr(pts[0].EdgeA),
			EdgeB:    intPtr(pts[0].EdgeB),
			Context:  &Detail{Hole: idx, Points: len(pts), Tier: pts[0].Tier},
		})
	case geodesic.VertexCount(hole) < 3 || geodesic.RingArea(hole) == 0:
		out.fail(Issue{
			Code:    CodeHoleInvalid,
			Message: fmt.Sprintf("hole %d encloses no area", idx),
			Context: &Detail{Hole: idx, Count: geodesic.VertexCount(hole)},
		})
	case !holeInside(shell, hole):
		out.fail(Issue{
			Code:    CodeHoleOutsideShell,
			Message: fmt.Sprintf("hole %d is not inside the outer ring", idx),
			Context: &Detail{Hole: idx},
		})
	}
	return nil
}

// holeInside reports whether every vertex of hole is inside or on shell and
// no edges of the two properly cross.
func holeInside(shell, hole orb.Ring) bool {
	closed := model.Open(shell)
	if len(closed) == 0 {
		return false
	}
	closed = append(closed[:len(closed):len(closed)], closed[0])
	for _, p := range model.Open(hole) {
		if !planar.RingContains(closed, p) {
			return false
		}
	}
	return !kinks.RingsCross(shell, hole)
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }
