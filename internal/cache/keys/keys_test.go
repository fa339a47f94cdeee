package keys

import (
	"math"
	"regexp"
	"testing"

	"github.com/paulmach/orb"
)

var ring = orb.Ring{{18.0, 59.3}, {18.1, 59.3}, {18.1, 59.4}, {18.0, 59.4}, {18.0, 59.3}}

func TestDeterminism_SameInputsSameKey(t *testing.T) {
	k1 := Key("validate", ring, `{"min_area_ha":0.01}`)
	k2 := Key("validate", ring, `{"min_area_ha":0.01}`)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
}

func TestRing_OpenAndClosedShareFingerprint(t *testing.T) {
	if Ring(ring) != Ring(ring[:len(ring)-1]) {
		t.Fatalf("closing vertex changed the fingerprint")
	}
	neg := orb.Ring{{0, 0}, {1, 0}, {1, 1}}
	negZero := orb.Ring{{math.Copysign(0, -1), 0}, {1, 0}, {1, 1}}
	if Ring(neg) != Ring(negZero) {
		t.Fatalf("-0 and +0 must hash alike")
	}
}

func TestDifference_GeometryAndParamsMatter(t *testing.T) {
	shifted := append(orb.Ring{}, ring...)
	shifted[1] = orb.Point{18.1000001, 59.3}
	reordered := orb.Ring{ring[1], ring[2], ring[3], ring[0], ring[1]}

	base := Key("validate", ring, "a")
	for name, k := range map[string]string{
		"moved vertex":  Key("validate", shifted, "a"),
		"rotated start": Key("validate", reordered, "a"),
		"other params":  Key("validate", ring, "b"),
		"other kind":    Key("detect", ring, "a"),
	} {
		if k == base {
			t.Fatalf("%s produced the same key %s", name, k)
		}
	}
}

func TestKey_Shape(t *testing.T) {
	k := Key(" over lap/filter ", ring, "  x   y ")
	if !regexp.MustCompile(`^ringguard:[A-Za-z0-9_\-]+:r=[0-9a-f]{16}:p=[0-9a-f]{16}$`).MatchString(k) {
		t.Fatalf("unexpected key shape: %s", k)
	}
	if Key("validate", ring, "x y") != Key("validate", ring, " x \t y") {
		t.Fatalf("whitespace in params must not change the key")
	}
	if got := Key("", ring, ""); !regexp.MustCompile(`^ringguard:default:`).MatchString(got) {
		t.Fatalf("empty kind: %s", got)
	}
}
