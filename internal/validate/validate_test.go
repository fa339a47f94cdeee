package validate

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

// about 2.5 ha north of Stockholm, counter-clockwise
var parcel = orb.Ring{{18.000, 59.320}, {18.002, 59.320}, {18.002, 59.322}, {18.000, 59.322}, {18.000, 59.320}}

func reversed(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

func codes(is []Issue) []string {
	out := make([]string, 0, len(is))
	for _, i := range is {
		out = append(out, i.Code)
	}
	return out
}

func hasCode(is []Issue, code string) bool {
	for _, i := range is {
		if i.Code == code {
			return true
		}
	}
	return false
}

func mustValidate(t *testing.T, r orb.Ring, rules Rules) Verdict {
	t.Helper()
	v, err := Validate(r, rules)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return v
}

func TestValidate_CleanParcel(t *testing.T) {
	v := mustValidate(t, parcel, DefaultRules())
	if !v.Valid {
		t.Fatalf("expected valid, errors=%v", codes(v.Errors))
	}
	if len(v.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", codes(v.Warnings))
	}
	if v.Metrics.VertexCount != 4 {
		t.Fatalf("vertex count=%d want 4", v.Metrics.VertexCount)
	}
	if v.Metrics.AreaHectares < 2 || v.Metrics.AreaHectares > 3 {
		t.Fatalf("area=%g ha, expected about 2.5", v.Metrics.AreaHectares)
	}
	if v.Metrics.PerimeterMeters <= 0 {
		t.Fatalf("perimeter must be positive")
	}
}

func TestValidate_RuleVariations(t *testing.T) {
	maxSmall := 1.0
	bowtie := orb.Ring{{18.000, 59.320}, {18.002, 59.322}, {18.002, 59.320}, {18.000, 59.322}}
	pentagon := orb.Ring{{18.000, 59.320}, {18.002, 59.320}, {18.003, 59.321}, {18.002, 59.322}, {18.000, 59.322}}

	cases := []struct {
		name      string
		ring      orb.Ring
		rules     func(r Rules) Rules
		valid     bool
		errors    []string
		warnings  []string
		noWarning []string
	}{
		{
			name:   "too few vertices",
			ring:   orb.Ring{{18.0, 59.3}, {18.1, 59.3}},
			rules:  func(r Rules) Rules { return r },
			errors: []string{CodeTooFewVertices, CodeAreaZero},
		},
		{
			name:      "too many vertices suppresses the near-limit warning",
			ring:      pentagon,
			rules:     func(r Rules) Rules { r.MaxVertices = 4; return r },
			errors:    []string{CodeTooManyVertices},
			noWarning: []string{CodeVerticesNearLimit},
		},
		{
			name:     "near the vertex limit",
			ring:     pentagon,
			rules:    func(r Rules) Rules { r.MaxVertices = 5; return r },
			valid:    true,
			warnings: []string{CodeVerticesNearLimit},
		},
		{
			name:   "self intersection is an error",
			ring:   bowtie,
			rules:  func(r Rules) Rules { return r },
			errors: []string{CodeSelfIntersection},
		},
		{
			name:      "self intersection allowed",
			ring:      bowtie,
			rules:     func(r Rules) Rules { r.AllowSelfIntersection = true; return r },
			// the two lobes cancel, so only the zero-area error remains
			errors:    []string{CodeAreaZero},
			warnings:  []string{CodeSelfIntersectionAllowed},
			noWarning: []string{CodeSelfIntersection},
		},
		{
			name:   "reversed winding",
			ring:   reversed(parcel),
			rules:  func(r Rules) Rules { return r },
			errors: []string{CodeAreaNegative},
		},
		{
			name:   "area above maximum",
			ring:   parcel,
			rules:  func(r Rules) Rules { r.MaxAreaHectares = &maxSmall; return r },
			errors: []string{CodeAreaExceedsMaximum},
		},
		{
			name:     "area below minimum is advisory",
			ring:     parcel,
			rules:    func(r Rules) Rules { r.MinAreaHectares = 10; return r },
			valid:    true,
			warnings: []string{CodeAreaBelowMinimum},
		},
		{
			name:     "duplicate vertices",
			ring:     orb.Ring{{18.000, 59.320}, {18.002, 59.320}, {18.002, 59.320}, {18.002, 59.322}, {18.000, 59.322}},
			rules:    func(r Rules) Rules { return r },
			valid:    true,
			warnings: []string{CodeDuplicateVertices},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := mustValidate(t, tc.ring, tc.rules(DefaultRules()))
			for _, c := range tc.errors {
				if !hasCode(v.Errors, c) {
					t.Fatalf("missing error %s; errors=%v warnings=%v", c, codes(v.Errors), codes(v.Warnings))
				}
			}
			for _, c := range tc.warnings {
				if !hasCode(v.Warnings, c) {
					t.Fatalf("missing warning %s; errors=%v warnings=%v", c, codes(v.Errors), codes(v.Warnings))
				}
			}
			for _, c := range tc.noWarning {
				if v.HasCode(c) {
					t.Fatalf("unexpected %s; errors=%v warnings=%v", c, codes(v.Errors), codes(v.Warnings))
				}
			}
			if len(tc.errors) == 0 && tc.valid != v.Valid {
				t.Fatalf("valid=%v want %v; errors=%v", v.Valid, tc.valid, codes(v.Errors))
			}
			if len(tc.errors) > 0 && v.Valid {
				t.Fatalf("verdict with errors must be invalid")
			}
			if v.Metrics.VertexCount == 0 {
				t.Fatalf("metrics must be populated even when invalid")
			}
		})
	}
}

func TestValidate_SelfIntersectionCarriesLocation(t *testing.T) {
	bowtie := orb.Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}
	v := mustValidate(t, bowtie, DefaultRules())
	var got *Issue
	for i := range v.Errors {
		if v.Errors[i].Code == CodeSelfIntersection {
			got = &v.Errors[i]
		}
	}
	if got == nil {
		t.Fatalf("missing SELF_INTERSECTION; errors=%v", codes(v.Errors))
	}
	if got.Location == nil || *got.Location != (orb.Point{0.5, 0.5}) {
		t.Fatalf("location=%v want [0.5 0.5]", got.Location)
	}
	if got.EdgeA == nil || got.EdgeB == nil || *got.EdgeA != 0 || *got.EdgeB != 2 {
		t.Fatalf("edge indices not attached: %+v", got)
	}
	if got.Severity != SeverityError {
		t.Fatalf("severity=%s", got.Severity)
	}
}

func TestValidate_SpikeDetected(t *testing.T) {
	spiky := orb.Ring{
		{0, 0}, {0.001, 0}, {0.001, 0.001}, {0.0005, 0.001},
		{0.0006, 0.003}, {0.0004, 0.001}, {0, 0.001}, {0, 0},
	}
	v := mustValidate(t, spiky, DefaultRules())
	var spikes []Issue
	for _, w := range v.Warnings {
		if w.Code == CodeSpikeDetected {
			spikes = append(spikes, w)
		}
	}
	if len(spikes) != 1 {
		t.Fatalf("spikes=%d want 1; warnings=%v errors=%v", len(spikes), codes(v.Warnings), codes(v.Errors))
	}
	if *spikes[0].VertexIndex != 4 {
		t.Fatalf("spike at vertex %d want 4", *spikes[0].VertexIndex)
	}
	if *spikes[0].Angle <= 0 || *spikes[0].Angle >= 10 {
		t.Fatalf("spike angle=%g", *spikes[0].Angle)
	}

	rules := DefaultRules()
	rules.DetectSpikes = false
	if mustValidate(t, spiky, rules).HasCode(CodeSpikeDetected) {
		t.Fatalf("spike reported with detection disabled")
	}
}

func TestValidate_Idempotent(t *testing.T) {
	r := orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 1}, {2, 1}, {0, 0}}
	a := mustValidate(t, r, DefaultRules())
	b := mustValidate(t, r, DefaultRules())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("verdicts differ:\n%+v\n%+v", a, b)
	}
}

func TestValidate_MalformedInput(t *testing.T) {
	if _, err := Validate(nil, DefaultRules()); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("nil ring: err=%v", err)
	}
	if _, err := Validate(orb.Ring{{0, 0}, {1, math.NaN()}, {1, 1}}, DefaultRules()); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("NaN ring: err=%v", err)
	}
}

type fixedDetector struct{ pts []model.IntersectionPoint }

func (f fixedDetector) Detect(orb.Ring) ([]model.IntersectionPoint, error) { return f.pts, nil }

func TestValidator_UsesInjectedDetector(t *testing.T) {
	v := New(fixedDetector{pts: []model.IntersectionPoint{{Point: orb.Point{18.001, 59.321}, EdgeA: 0, EdgeB: 2}}})
	got, err := v.Validate(parcel, DefaultRules())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Valid || !hasCode(got.Errors, CodeSelfIntersection) {
		t.Fatalf("injected detector ignored: %v", codes(got.Errors))
	}
}

func TestValidate_InwardNotchIsNotASpike(t *testing.T) {
	// thin crack cut down from the top edge; its apex is a reflex vertex
	notched := orb.Ring{
		{0, 0}, {0.001, 0}, {0.001, 0.001}, {0.00051, 0.001},
		{0.0005, 0.0002}, {0.00049, 0.001}, {0, 0.001}, {0, 0},
	}
	for name, r := range map[string]orb.Ring{"ccw": notched, "cw": reversed(notched)} {
		v := mustValidate(t, r, DefaultRules())
		if v.HasCode(CodeSpikeDetected) {
			t.Fatalf("%s: notch apex reported as spike: %+v", name, v.Warnings)
		}
	}
}

func TestValidate_SpikeFoundInEitherWinding(t *testing.T) {
	spiky := orb.Ring{
		{0, 0}, {0.001, 0}, {0.001, 0.001}, {0.0005, 0.001},
		{0.0006, 0.003}, {0.0004, 0.001}, {0, 0.001}, {0, 0},
	}
	v := mustValidate(t, reversed(spiky), DefaultRules())
	var idx []int
	for _, w := range v.Warnings {
		if w.Code == CodeSpikeDetected {
			idx = append(idx, *w.VertexIndex)
		}
	}
	if !reflect.DeepEqual(idx, []int{3}) {
		t.Fatalf("spike vertices=%v want [3]", idx)
	}
}

func TestInteriorAngle(t *testing.T) {
	cases := []struct {
		name            string
		prev, cur, next orb.Point
		ccw             bool
		want            float64
	}{
		{"convex corner", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{1, 1}, true, 90},
		{"reflex corner", orb.Point{1, 1}, orb.Point{1, 0}, orb.Point{0, 0}, true, 270},
		{"clockwise convex", orb.Point{1, 1}, orb.Point{1, 0}, orb.Point{0, 0}, false, 90},
		{"straight", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, true, 180},
	}
	for _, tc := range cases {
		got, ok := interiorAngle(tc.prev, tc.cur, tc.next, tc.ccw)
		if !ok || math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: got=%g ok=%v want %g", tc.name, got, ok, tc.want)
		}
	}
	if _, ok := interiorAngle(orb.Point{1, 0}, orb.Point{1, 0}, orb.Point{2, 0}, true); ok {
		t.Fatalf("zero-length edge must not yield an angle")
	}
}

func TestValidatePolygon_Holes(t *testing.T) {
	shell := orb.Ring{{10, 45}, {10.01, 45}, {10.01, 45.01}, {10, 45.01}, {10, 45}}
	inner := orb.Ring{{10.002, 45.002}, {10.002, 45.008}, {10.008, 45.008}, {10.008, 45.002}, {10.002, 45.002}}

	plain := mustValidate(t, shell, DefaultRules())
	v, err := ValidatePolygon(orb.Polygon{shell, inner}, DefaultRules())
	if err != nil {
		t.Fatalf("ValidatePolygon: %v", err)
	}
	if !v.Valid {
		t.Fatalf("polygon with hole invalid: %v", codes(v.Errors))
	}
	if v.Metrics.Holes != 1 || v.Metrics.AreaHectares >= plain.Metrics.AreaHectares-25 {
		t.Fatalf("hole not subtracted: %g ha vs shell %g ha", v.Metrics.AreaHectares, plain.Metrics.AreaHectares)
	}

	outside := orb.Ring{{10.02, 45.002}, {10.02, 45.004}, {10.03, 45.004}, {10.03, 45.002}}
	crossing := orb.Ring{{10.005, 45.005}, {10.005, 45.02}, {10.02, 45.02}, {10.02, 45.005}}
	bowtieHole := orb.Ring{{10.002, 45.002}, {10.004, 45.004}, {10.004, 45.002}, {10.002, 45.004}}
	cases := []struct {
		name string
		hole orb.Ring
		code string
	}{
		{"outside", outside, CodeHoleOutsideShell},
		{"crossing shell", crossing, CodeHoleOutsideShell},
		{"self-intersecting", bowtieHole, CodeHoleInvalid},
		{"degenerate", orb.Ring{{10.002, 45.002}, {10.004, 45.002}, {10.006, 45.002}}, CodeHoleInvalid},
	}
	for _, tc := range cases {
		v, err := ValidatePolygon(orb.Polygon{shell, tc.hole}, DefaultRules())
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if v.Valid || !hasCode(v.Errors, tc.code) {
			t.Fatalf("%s: errors=%v want %s", tc.name, codes(v.Errors), tc.code)
		}
		for _, is := range v.Errors {
			if is.Code == tc.code && (is.Context == nil || is.Context.Hole != 1) {
				t.Fatalf("%s: hole index missing: %+v", tc.name, is)
			}
		}
	}
}
