package geojson

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

func TestRing_AcceptedEncodings(t *testing.T) {
	want := orb.Ring{{18.0, 59.3}, {18.1, 59.3}, {18.1, 59.4}, {18.0, 59.3}}

	cases := []struct {
		name string
		in   string
	}{
		{"bare array", `[[18.0,59.3],[18.1,59.3],[18.1,59.4],[18.0,59.3]]`},
		{"bare array with altitude", `[[18.0,59.3,12],[18.1,59.3,12],[18.1,59.4,3],[18.0,59.3,0]]`},
		{"polygon", `{"type":"Polygon","coordinates":[[[18.0,59.3],[18.1,59.3],[18.1,59.4],[18.0,59.3]]]}`},
		{"multipolygon", `{"type":"MultiPolygon","coordinates":[[[[18.0,59.3],[18.1,59.3],[18.1,59.4],[18.0,59.3]]]]}`},
		{"feature", `{"type":"Feature","properties":{"id":"R1"},"geometry":{"type":"Polygon","coordinates":[[[18.0,59.3],[18.1,59.3],[18.1,59.4],[18.0,59.3]]]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Ring([]byte(tc.in))
			if err != nil {
				t.Fatalf("Ring: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("ring=%v want %v", got, want)
			}
		})
	}
}

func TestPolygon_KeepsHoles(t *testing.T) {
	in := `{"type":"Polygon","coordinates":[
		[[0,0],[10,0],[10,10],[0,10],[0,0]],
		[[2,2],[2,4],[4,4],[4,2],[2,2]]
	]}`
	p, err := Polygon([]byte(in))
	if err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	if len(p) != 2 || len(p[1]) != 5 {
		t.Fatalf("holes lost: %v", p)
	}
}

func TestRing_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":              ``,
		"null":               `null`,
		"empty array":        `[]`,
		"short position":     `[[18.0],[18.1,59.3],[18.1,59.4]]`,
		"long position":      `{"type":"Polygon","coordinates":[[[18,59,1,2],[18.1,59.3],[18.1,59.4],[18,59]]]}`,
		"point":              `{"type":"Point","coordinates":[18,59]}`,
		"two-part multi":     `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,5]]]]}`,
		"empty polygon":      `{"type":"Polygon","coordinates":[]}`,
		"broken json":        `{"type":"Polygon",`,
		"polygon with hole":  `{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]],[[2,2],[2,4],[4,4],[4,2],[2,2]]]}`,
		"feature no polygon": `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Ring([]byte(in)); !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("err=%v want ErrInvalidInput", err)
			}
		})
	}
}

func TestIntersections_FeatureCollection(t *testing.T) {
	fc := Intersections([]model.IntersectionPoint{{Point: orb.Point{0.5, 0.5}, EdgeA: 0, EdgeB: 2, Tier: "fast"}})
	b, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Type != "FeatureCollection" || len(out.Features) != 1 {
		t.Fatalf("unexpected collection %s", b)
	}
	f := out.Features[0]
	if f.Geometry.Type != "Point" || f.Geometry.Coordinates[0] != 0.5 || f.Properties["edge_b"] != float64(2) {
		t.Fatalf("unexpected feature %s", b)
	}
}
