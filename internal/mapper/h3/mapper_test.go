package h3mapper

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

func TestCoverRing_SortedUniqueAndDeterministic(t *testing.T) {
	m := New()
	ring := orb.Ring{{18.00, 59.32}, {18.12, 59.32}, {18.12, 59.38}, {18.00, 59.38}, {18.00, 59.32}}

	cells, err := m.CoverRing(ring, 8)
	if err != nil {
		t.Fatalf("CoverRing: %v", err)
	}
	if len(cells) < 4 {
		t.Fatalf("expected several cells, got %d", len(cells))
	}
	if !sort.StringsAreSorted(cells) || hasDups(cells) {
		t.Fatalf("cells must be sorted + unique")
	}
	again, err := m.CoverRing(ring[:4], 8)
	if err != nil {
		t.Fatalf("CoverRing open: %v", err)
	}
	if !reflect.DeepEqual(cells, again) {
		t.Fatalf("open and closed ring must produce the same cover")
	}
}

func TestCoverRing_SmallParcelStillCovered(t *testing.T) {
	m := New()
	// about 20 m across, far smaller than a res 7 cell
	ring := orb.Ring{{18.0000, 59.3200}, {18.0003, 59.3200}, {18.0003, 59.3202}, {18.0000, 59.3202}}
	cells, err := m.CoverRing(ring, 7)
	if err != nil {
		t.Fatalf("CoverRing: %v", err)
	}
	if len(cells) == 0 {
		t.Fatalf("small parcel produced no cells")
	}
	centre, err := m.CellForPoint(orb.Point{18.00015, 59.3201}, 7)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	found := false
	for _, c := range cells {
		found = found || c == centre
	}
	if !found {
		t.Fatalf("cover %v does not include the centre cell %s", cells, centre)
	}
}

func TestCellForPoint_MatchesLibrary(t *testing.T) {
	m := New()
	got, err := m.CellForPoint(orb.Point{18.0686, 59.3293}, 9)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	want, err := h3.LatLngToCell(h3.LatLng{Lat: 59.3293, Lng: 18.0686}, 9)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	if got != want.String() {
		t.Fatalf("cell=%s want %s", got, want.String())
	}
}

func TestBounds_InvalidResolutionAndDegenerateRing(t *testing.T) {
	m := New()
	ring := orb.Ring{{11, 55}, {12, 55}, {12, 56}, {11, 56}}

	if _, err := m.CoverRing(ring, -1); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for res=-1, got %v", err)
	}
	if _, err := m.CellForPoint(orb.Point{11, 55}, 16); err == nil {
		t.Fatalf("expected error for res=16")
	}
	if _, err := m.CoverRing(orb.Ring{{11, 55}, {12, 55}, {11, 55}}, 8); err == nil {
		t.Fatalf("expected error for degenerate ring")
	}
	if _, err := m.CoverRing(nil, 8); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil ring, got %v", err)
	}
}

func hasDups(s []string) bool {
	seen := map[string]struct{}{}
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
