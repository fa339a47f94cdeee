package overlap

const (
	StrategyShrunk           = "shrunk"
	StrategySameSize         = "same_size"
	StrategyExpandedSpatial  = "expanded_spatial"
	StrategyExpandedFallback = "expanded_fallback"
	StrategyShifted          = "shifted"
)

// Thresholds holds the tolerances of the five strategies. Percentages are on
// a 0..100 scale, tolerances are fractions of the reference area.
type Thresholds struct {
	ShrunkMinOverlapPct       float64 `json:"shrunk_min_overlap_pct"`
	SameSizeMinOverlapPct     float64 `json:"same_size_min_overlap_pct"`
	SameSizeAreaTolerance     float64 `json:"same_size_area_tolerance"`
	ExpandedAreaTolerance     float64 `json:"expanded_area_tolerance"`
	ExpandedFallbackTolerance float64 `json:"expanded_fallback_tolerance"`
	ShiftedAreaTolerance      float64 `json:"shifted_area_tolerance"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ShrunkMinOverlapPct:       95,
		SameSizeMinOverlapPct:     99,
		SameSizeAreaTolerance:     0.02,
		ExpandedAreaTolerance:     0.10,
		ExpandedFallbackTolerance: 0.05,
		ShiftedAreaTolerance:      0.15,
	}
}
