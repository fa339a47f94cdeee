// Package model defines core domain types shared across the engine.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidInput marks a contract violation at a public entry point
// (nil ring, non-finite or out-of-range coordinates).
var ErrInvalidInput = errors.New("invalid input")

// IntersectionPoint is a crossing between two non-adjacent edges of a ring.
// Edge i joins vertex i and vertex (i+1) mod n of the open ring.
type IntersectionPoint struct {
	Point orb.Point `json:"point"`
	EdgeA int       `json:"edge_a"`
	EdgeB int       `json:"edge_b"`
	Tier  string    `json:"tier,omitempty"`
}

// OverlapCandidate is a stored record reported by a ring-intersection query.
type OverlapCandidate struct {
	RecordID                 string   `json:"record_id"`
	Ring                     orb.Ring `json:"ring"`
	OverlapAreaHectares      float64  `json:"overlap_area_ha"`
	OverlapPercentageOfInput float64  `json:"overlap_pct_of_input"`
}

// EditSessionContext describes the stored ring a user is modifying.
type EditSessionContext struct {
	IsEditMode          bool     `json:"is_edit_mode"`
	CurrentRecordID     string   `json:"current_record_id"`
	InitialRing         orb.Ring `json:"initial_ring,omitempty"`
	InitialAreaHectares float64  `json:"initial_area_ha"`
}

// CheckRing rejects rings that cannot be interpreted as WGS84 coordinates.
func CheckRing(r orb.Ring) error {
	if r == nil {
		return fmt.Errorf("nil ring: %w", ErrInvalidInput)
	}
	for i, p := range r {
		lng, lat := p[0], p[1]
		if math.IsNaN(lng) || math.IsNaN(lat) || math.IsInf(lng, 0) || math.IsInf(lat, 0) {
			return fmt.Errorf("vertex %d is not finite: %w", i, ErrInvalidInput)
		}
		if lng < -180 || lng > 180 {
			return fmt.Errorf("vertex %d longitude %g out of [-180,180]: %w", i, lng, ErrInvalidInput)
		}
		if lat < -90 || lat > 90 {
			return fmt.Errorf("vertex %d latitude %g out of [-90,90]: %w", i, lat, ErrInvalidInput)
		}
	}
	return nil
}

// Open returns a copy of r without the closing duplicate vertex, if any.
func Open(r orb.Ring) orb.Ring {
	n := len(r)
	if n >= 2 && r[0] == r[n-1] {
		n--
	}
	out := make(orb.Ring, n)
	copy(out, r[:n])
	return out
}

// Distinct returns the open ring with consecutive vertices closer than eps
// degrees collapsed, including the wrap from last to first.
func Distinct(r orb.Ring, eps float64) orb.Ring {
	open := Open(r)
	out := make(orb.Ring, 0, len(open))
	for _, p := range open {
		if len(out) > 0 && near(out[len(out)-1], p, eps) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && near(out[0], out[len(out)-1], eps) {
		out = out[:len(out)-1]
	}
	return out
}

func near(a, b orb.Point, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps
}
