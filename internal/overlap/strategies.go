package overlap

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/geodesic"
)

type input struct {
	current float64
	initial float64
	ring    orb.Ring
	edit    *model.EditSessionContext
	cand    model.OverlapCandidate

	containDone bool
	contained   bool
	containErr  error
}

func newInput(current float64, ring orb.Ring, edit *model.EditSessionContext, c model.OverlapCandidate) input {
	initial := edit.InitialAreaHectares
	if initial <= 0 && len(edit.InitialRing) > 0 && model.CheckRing(edit.InitialRing) == nil {
		initial = math.Abs(geodesic.AreaHectares(edit.InitialRing))
	}
	return input{current: current, initial: initial, ring: ring, edit: edit, cand: c}
}

// containment tests the stored footprint against the edited ring once. The
// candidate's own ring is preferred; the session's initial ring is used when
// the collaborator did not send one.
func (in *input) containment() (bool, error) {
	if in.containDone {
		return in.contained, in.containErr
	}
	in.containDone = true
	inner := in.cand.Ring
	if len(inner) == 0 {
		inner = in.edit.InitialRing
	}
	in.contained, in.containErr = Contains(in.ring, inner)
	return in.contained, in.containErr
}

func (in *input) containErrText() string {
	if in.containDone && in.containErr != nil {
		return in.containErr.Error()
	}
	return ""
}

// deviation of the overlap area from the stored area, as a fraction of it
func (in *input) initialDeviation() (float64, bool) {
	if in.initial <= 0 {
		return 0, false
	}
	return math.Abs(in.cand.OverlapAreaHectares-in.initial) / in.initial, true
}

type strategy func(th Thresholds, in *input) (Decision, bool)

// evaluated in order, first match wins
var strategies = []strategy{
	shrunk,
	sameSize,
	expandedSpatial,
	expandedFallback,
	shifted,
}

func shrunk(th Thresholds, in *input) (Decision, bool) {
	p := in.cand.OverlapPercentageOfInput
	if p < th.ShrunkMinOverlapPct || in.initial <= in.current {
		return Decision{}, false
	}
	return Decision{
		Strategy: StrategyShrunk,
		Reason: fmt.Sprintf("overlap %.2f%% >= %.2f%% and stored area %.4f ha > current %.4f ha: ring shrunk inside its previous footprint",
			p, th.ShrunkMinOverlapPct, in.initial, in.current),
	}, true
}

func sameSize(th Thresholds, in *input) (Decision, bool) {
	p := in.cand.OverlapPercentageOfInput
	if p < th.SameSizeMinOverlapPct || in.current <= 0 {
		return Decision{}, false
	}
	dev := math.Abs(in.cand.OverlapAreaHectares-in.current) / in.current
	if dev > th.SameSizeAreaTolerance {
		return Decision{}, false
	}
	return Decision{
		Strategy:  StrategySameSize,
		Tolerance: th.SameSizeAreaTolerance,
		Reason: fmt.Sprintf("overlap %.2f%% >= %.2f%% and overlap area within %s of current area (tolerance %s): cosmetic edit",
			p, th.SameSizeMinOverlapPct, pct(dev), pct(th.SameSizeAreaTolerance)),
	}, true
}

func expandedSpatial(th Thresholds, in *input) (Decision, bool) {
	if in.current <= in.initial {
		return Decision{}, false
	}
	dev, ok := in.initialDeviation()
	if !ok || dev > th.ExpandedAreaTolerance {
		return Decision{}, false
	}
	contained, err := in.containment()
	if err != nil || !contained {
		return Decision{}, false
	}
	return Decision{
		Strategy:  StrategyExpandedSpatial,
		Tolerance: th.ExpandedAreaTolerance,
		Reason: fmt.Sprintf("current area %.4f ha > stored %.4f ha, stored ring contained in current ring, overlap within %s of stored area (tolerance %s): ring expanded outward",
			in.current, in.initial, pct(dev), pct(th.ExpandedAreaTolerance)),
	}, true
}

func expandedFallback(th Thresholds, in *input) (Decision, bool) {
	if in.current <= in.initial {
		return Decision{}, false
	}
	dev, ok := in.initialDeviation()
	if !ok || dev > th.ExpandedFallbackTolerance {
		return Decision{}, false
	}
	// only when the spatial test could not be evaluated
	if _, err := in.containment(); err == nil {
		return Decision{}, false
	}
	return Decision{
		Strategy:  StrategyExpandedFallback,
		Tolerance: th.ExpandedFallbackTolerance,
		Reason: fmt.Sprintf("current area %.4f ha > stored %.4f ha, containment unavailable, overlap within %s of stored area (tolerance %s)",
			in.current, in.initial, pct(dev), pct(th.ExpandedFallbackTolerance)),
	}, true
}

func shifted(th Thresholds, in *input) (Decision, bool) {
	dev, ok := in.initialDeviation()
	if !ok || dev > th.ShiftedAreaTolerance {
		return Decision{}, false
	}
	return Decision{
		Strategy:  StrategyShifted,
		Tolerance: th.ShiftedAreaTolerance,
		Reason: fmt.Sprintf("overlap area within %s of stored area %.4f ha (tolerance %s): ring shifted or reshaped",
			pct(dev), in.initial, pct(th.ShiftedAreaTolerance)),
	}, true
}
