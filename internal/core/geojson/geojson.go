// Package geojson decodes request geometry into orb rings and encodes
// intersection points for map display.
package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

var errEmpty = errors.New("empty geometry")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), model.ErrInvalidInput)
}

// Ring accepts a bare coordinate array [[lng,lat],...], a GeoJSON Polygon,
// a single-part MultiPolygon or a Feature wrapping one of them. For polygons
// the exterior ring is returned and polygons with holes are rejected. Closed
// and open rings are both accepted.
func Ring(data []byte) (orb.Ring, error) {
	p, err := Polygon(data)
	if err != nil {
		return nil, err
	}
	if len(p) > 1 {
		return nil, invalid("polygon has %d holes, a single ring is expected", len(p)-1)
	}
	return p[0], nil
}

// Polygon is Ring keeping the holes.
func Polygon(data []byte) (orb.Polygon, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, invalid("%v", errEmpty)
	}
	if data[0] == '[' {
		r, err := positions(data)
		if err != nil {
			return nil, err
		}
		return orb.Polygon{r}, nil
	}

	var hdr struct {
		Type        string          `json:"type"`
		Geometry    json.RawMessage `json:"geometry"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, invalid("parse geojson: %v", err)
	}
	switch strings.TrimSpace(hdr.Type) {
	case "Feature":
		return Polygon(hdr.Geometry)
	case "Polygon", "MultiPolygon":
	default:
		return nil, invalid("unsupported geometry type %q", hdr.Type)
	}

	if err := checkPositions(hdr.Type, hdr.Coordinates); err != nil {
		return nil, err
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, invalid("parse %s: %v", hdr.Type, err)
	}
	switch v := g.Geometry().(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, invalid("polygon: %v", errEmpty)
		}
		return v, nil
	case orb.MultiPolygon:
		if len(v) != 1 || len(v[0]) == 0 {
			return nil, invalid("multipolygon must have exactly one part, got %d", len(v))
		}
		return v[0], nil
	default:
		return nil, invalid("unexpected geometry %T", v)
	}
}

func positions(raw json.RawMessage) (orb.Ring, error) {
	var coords [][]float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, invalid("parse ring: %v", err)
	}
	if len(coords) == 0 {
		return nil, invalid("ring: %v", errEmpty)
	}
	r := make(orb.Ring, 0, len(coords))
	for i, xy := range coords {
		if len(xy) < 2 || len(xy) > 3 {
			return nil, invalid("position %d must be [lng,lat], got %d values", i, len(xy))
		}
		r = append(r, orb.Point{xy[0], xy[1]})
	}
	return r, nil
}

// orb ignores surplus or missing ordinates, so positions are checked first.
func checkPositions(typ string, raw json.RawMessage) error {
	var rings [][][]float64
	switch typ {
	case "Polygon":
		if err := json.Unmarshal(raw, &rings); err != nil {
			return invalid("parse polygon coords: %v", err)
		}
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(raw, &polys); err != nil {
			return invalid("parse multipolygon coords: %v", err)
		}
		for _, p := range polys {
			rings = append(rings, p...)
		}
	}
	if len(rings) == 0 {
		return invalid("%s: %v", strings.ToLower(typ), errEmpty)
	}
	for ri, ring := range rings {
		if len(ring) == 0 {
			return invalid("ring %d: %v", ri, errEmpty)
		}
		for i, xy := range ring {
			if len(xy) < 2 || len(xy) > 3 {
				return invalid("ring %d position %d must be [lng,lat]", ri, i)
			}
		}
	}
	return nil
}

// Intersections renders detector output as a FeatureCollection of points
// with the edge pair and tier as properties.
func Intersections(pts []model.IntersectionPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range pts {
		f := geojson.NewFeature(p.Point)
		f.Properties["edge_a"] = p.EdgeA
		f.Properties["edge_b"] = p.EdgeB
		if p.Tier != "" {
			f.Properties["tier"] = p.Tier
		}
		fc.Append(f)
	}
	return fc
}
