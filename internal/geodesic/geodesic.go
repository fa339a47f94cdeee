// Package geodesic computes ring metrics on a spherical earth.
//
// Area follows the spherical-excess approximation used for small parcels:
// each edge contributes (lon2-lon1)*(2+sin(lat1)+sin(lat2)) in radians and the
// sum is scaled by R²/2. Counter-clockwise rings (RFC 7946 exterior
// orientation) have positive area, clockwise rings negative.
package geodesic

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

const (
	// EarthRadius is the mean earth radius in meters.
	EarthRadius = 6371000.0

	SquareMetersPerHectare = 10000.0

	collinearEps = 1e-12
)

// Metrics is the full set of measurements for one ring.
type Metrics struct {
	AreaSquareMeters float64   `json:"area_m2"`
	AreaHectares     float64   `json:"area_ha"`
	PerimeterMeters  float64   `json:"perimeter_m"`
	VertexCount      int       `json:"vertex_count"`
	Centroid         orb.Point `json:"centroid"`
	BBox             orb.Bound `json:"bbox"`
	Holes            int       `json:"holes,omitempty"`
}

// Measure checks r and returns all of its metrics.
func Measure(r orb.Ring) (Metrics, error) {
	if err := model.CheckRing(r); err != nil {
		return Metrics{}, err
	}
	m2 := RingArea(r)
	return Metrics{
		AreaSquareMeters: m2,
		AreaHectares:     m2 / SquareMetersPerHectare,
		PerimeterMeters:  Perimeter(r),
		VertexCount:      VertexCount(r),
		Centroid:         Centroid(r),
		BBox:             BoundingBox(r),
	}, nil
}

// MeasurePolygon is Measure for a polygon. The area has every hole
// subtracted and the perimeter includes the hole boundaries; the vertex
// count, centroid and bounding box describe the shell.
func MeasurePolygon(p orb.Polygon) (Metrics, error) {
	if len(p) == 0 {
		return Metrics{}, fmt.Errorf("polygon has no rings: %w", model.ErrInvalidInput)
	}
	m, err := Measure(p[0])
	if err != nil {
		return Metrics{}, err
	}
	if len(p) == 1 {
		return m, nil
	}
	for i, h := range p[1:] {
		if err := model.CheckRing(h); err != nil {
			return Metrics{}, fmt.Errorf("hole %d: %w", i+1, err)
		}
		m.PerimeterMeters += Perimeter(h)
	}
	m.AreaSquareMeters = PolygonArea(p)
	m.AreaHectares = m.AreaSquareMeters / SquareMetersPerHectare
	m.Holes = len(p) - 1
	return m, nil
}

// RingArea returns the signed area of r in square meters.
func RingArea(r orb.Ring) float64 {
	pts := model.Distinct(r, 0)
	n := len(pts)
	if n < 3 || collinear(pts) {
		return 0
	}
	var sum float64
	for i := range n {
		p1 := pts[i]
		p2 := pts[(i+1)%n]
		lat1 := rad(p1[1])
		lat2 := rad(p2[1])
		sum += rad(p2[0]-p1[0]) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}
	return -sum * EarthRadius * EarthRadius / 2
}

// AreaHectares returns the signed area of r in hectares.
func AreaHectares(r orb.Ring) float64 {
	return RingArea(r) / SquareMetersPerHectare
}

// PolygonArea returns the shell area minus the magnitude of every hole, in
// square meters. The result keeps the sign of the shell.
func PolygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	shell := RingArea(p[0])
	var holes float64
	for _, h := range p[1:] {
		holes += math.Abs(RingArea(h))
	}
	if shell < 0 {
		return shell + holes
	}
	return shell - holes
}

// Perimeter returns the great-circle length of r's boundary in meters,
// including the closing edge.
func Perimeter(r orb.Ring) float64 {
	pts := model.Open(r)
	n := len(pts)
	if n < 2 {
		return 0
	}
	var total float64
	for i := range n {
		total += Distance(pts[i], pts[(i+1)%n])
	}
	return total
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b orb.Point) float64 {
	lat1 := rad(a[1])
	lat2 := rad(b[1])
	dLat := lat2 - lat1
	dLng := rad(b[0] - a[0])
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid is the arithmetic mean of the distinct vertices of r.
func Centroid(r orb.Ring) orb.Point {
	pts := model.Distinct(r, 0)
	if len(pts) == 0 {
		return orb.Point{}
	}
	var x, y float64
	for _, p := range pts {
		x += p[0]
		y += p[1]
	}
	n := float64(len(pts))
	return orb.Point{x / n, y / n}
}

// BBoxCenter is a cheap centroid estimate for transient display only.
func BBoxCenter(r orb.Ring) orb.Point {
	if len(r) == 0 {
		return orb.Point{}
	}
	return BoundingBox(r).Center()
}

// BoundingBox returns the extent of r. An empty ring yields the zero bound.
func BoundingBox(r orb.Ring) orb.Bound {
	if len(r) == 0 {
		return orb.Bound{}
	}
	return r.Bound()
}

// VertexCount counts the distinct vertices of the open ring.
func VertexCount(r orb.Ring) int {
	return len(model.Distinct(r, 0))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func collinear(pts orb.Ring) bool {
	a, b := pts[0], pts[1]
	ab := math.Hypot(b[0]-a[0], b[1]-a[1])
	for _, c := range pts[2:] {
		cross := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
		scale := ab * math.Hypot(c[0]-a[0], c[1]-a[1])
		if math.Abs(cross) > collinearEps*scale {
			return false
		}
	}
	return true
}
