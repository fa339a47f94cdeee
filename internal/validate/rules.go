package validate

import (
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/geodesic"
)

// Issue codes.
const (
	CodeTooFewVertices          = "TOO_FEW_VERTICES"
	CodeTooManyVertices         = "TOO_MANY_VERTICES"
	CodeVerticesNearLimit       = "VERTICES_NEAR_LIMIT"
	CodeSelfIntersection        = "SELF_INTERSECTION"
	CodeSelfIntersectionAllowed = "SELF_INTERSECTION_ALLOWED"
	CodeAreaZero                = "AREA_ZERO"
	CodeAreaNegative            = "AREA_NEGATIVE"
	CodeAreaExceedsMaximum      = "AREA_EXCEEDS_MAXIMUM"
	CodeAreaBelowMinimum        = "AREA_BELOW_MINIMUM"
	CodeDuplicateVertices       = "DUPLICATE_VERTICES"
	CodeSpikeDetected           = "SPIKE_DETECTED"
	CodeHoleInvalid             = "HOLE_INVALID"
	CodeHoleOutsideShell        = "HOLE_OUTSIDE_SHELL"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	defaultDuplicateToleranceMeters = 0.01
	nearLimitRatio                  = 0.9
)

// Rules configures one validation call. A nil MaxAreaHectares means no cap.
type Rules struct {
	MinAreaHectares            float64  `json:"min_area_ha"`
	MaxAreaHectares            *float64 `json:"max_area_ha,omitempty"`
	MinVertices                int      `json:"min_vertices"`
	MaxVertices                int      `json:"max_vertices"`
	AllowSelfIntersection      bool     `json:"allow_self_intersection"`
	DetectSpikes               bool     `json:"detect_spikes"`
	SpikeAngleThresholdDegrees float64  `json:"spike_angle_threshold_deg"`
	// Consecutive vertices closer than this are duplicates; 0 uses 1 cm.
	DuplicateToleranceMeters float64 `json:"duplicate_tolerance_m,omitempty"`
}

func DefaultRules() Rules {
	return Rules{
		MinAreaHectares:            0.01,
		MinVertices:                3,
		MaxVertices:                1000,
		DetectSpikes:               true,
		SpikeAngleThresholdDegrees: 10,
	}
}

func (r Rules) duplicateTolerance() float64 {
	if r.DuplicateToleranceMeters > 0 {
		return r.DuplicateToleranceMeters
	}
	return defaultDuplicateToleranceMeters
}

type Issue struct {
	Code        string     `json:"code"`
	Severity    Severity   `json:"severity"`
	Message     string     `json:"message"`
	Location    *orb.Point `json:"location,omitempty"`
	EdgeA       *int       `json:"edge_a,omitempty"`
	EdgeB       *int       `json:"edge_b,omitempty"`
	VertexIndex *int       `json:"vertex_index,omitempty"`
	Angle       *float64   `json:"angle_deg,omitempty"`
	Context     *Detail    `json:"context,omitempty"`
}

// Detail holds the numbers behind an issue. Fields that do not apply to the
// issue's code are left at zero and omitted from JSON.
type Detail struct {
	Count           int     `json:"count,omitempty"`
	Min             int     `json:"min,omitempty"`
	Max             int     `json:"max,omitempty"`
	Points          int     `json:"points,omitempty"`
	Tier            string  `json:"tier,omitempty"`
	AreaHectares    float64 `json:"area_ha,omitempty"`
	MinHectares     float64 `json:"min_ha,omitempty"`
	MaxHectares     float64 `json:"max_ha,omitempty"`
	Indices         []int   `json:"indices,omitempty"`
	ToleranceMeters float64 `json:"tolerance_m,omitempty"`
	Hole            int     `json:"hole,omitempty"`
}

// Verdict is the result of one validation. Errors make it invalid; warnings
// are advisory. Metrics are always filled in.
type Verdict struct {
	Valid    bool             `json:"valid"`
	Errors   []Issue          `json:"errors"`
	Warnings []Issue          `json:"warnings"`
	Metrics  geodesic.Metrics `json:"metrics"`
}

// HasCode reports whether any error or warning carries code.
func (v Verdict) HasCode(code string) bool {
	for _, is := range v.Errors {
		if is.Code == code {
			return true
		}
	}
	for _, is := range v.Warnings {
		if is.Code == code {
			return true
		}
	}
	return false
}
