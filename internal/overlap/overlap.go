// Package overlap separates genuine conflicts from self-matches when a
// stored ring is re-edited. An overlap query against the store will report
// the record's own previous version; the strategies here recognise it from
// the area relationship between the old and new footprint.
package overlap

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/geodesic"
)

// Decision is the audit record for one candidate.
type Decision struct {
	RecordID                 string  `json:"record_id"`
	Filtered                 bool    `json:"filtered"`
	Strategy                 string  `json:"strategy,omitempty"`
	Reason                   string  `json:"reason"`
	CurrentAreaHectares      float64 `json:"current_area_ha"`
	InitialAreaHectares      float64 `json:"initial_area_ha"`
	OverlapAreaHectares      float64 `json:"overlap_area_ha"`
	OverlapPercentageOfInput float64 `json:"overlap_pct_of_input"`
	Tolerance                float64 `json:"tolerance,omitempty"`
	ContainmentError         string  `json:"containment_error,omitempty"`
}

// Conflict is a candidate judged to be a different record.
type Conflict struct {
	model.OverlapCandidate
	OverlapPercentOfInput     float64 `json:"overlap_pct_of_input_computed"`
	OverlapPercentOfCandidate float64 `json:"overlap_pct_of_candidate"`
}

type Verdict struct {
	Conflicts []Conflict `json:"conflicts"`
	Decisions []Decision `json:"decisions"`
}

// Suppressed returns the decisions that dropped a candidate.
func (v Verdict) Suppressed() []Decision {
	var out []Decision
	for _, d := range v.Decisions {
		if d.Filtered {
			out = append(out, d)
		}
	}
	return out
}

// AuditSink receives every decision taken for a record under edit.
type AuditSink interface {
	Record(ctx context.Context, d Decision)
}

// Options configures New. A nil Thresholds uses DefaultThresholds, a nil
// Logger uses slog.Default and a nil Sink records nothing.
type Options struct {
	Thresholds *Thresholds
	Logger     *slog.Logger
	Sink       AuditSink
}

type Disambiguator struct {
	th   Thresholds
	log  *slog.Logger
	sink AuditSink
}

// New returns a Disambiguator with the zero fields of opts defaulted.
func New(opts Options) *Disambiguator {
	th := DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Disambiguator{th: th, log: opts.Logger, sink: opts.Sink}
}

func (d *Disambiguator) Thresholds() Thresholds { return d.th }

// Filter drops candidates that are the record under edit and returns the
// rest as conflicts. Candidates for other records are always kept.
func (d *Disambiguator) Filter(
	ctx context.Context,
	ring orb.Ring,
	edit *model.EditSessionContext,
	raw []model.OverlapCandidate,
) (Verdict, error) {
	if err := model.CheckRing(ring); err != nil {
		return Verdict{}, err
	}
	current := math.Abs(geodesic.AreaHectares(ring))
	out := Verdict{Conflicts: []Conflict{}, Decisions: make([]Decision, 0, len(raw))}

	for _, c := range raw {
		dec := d.Decide(current, ring, edit, c)
		out.Decisions = append(out.Decisions, dec)
		d.audit(ctx, edit, dec)
		if dec.Filtered {
			continue
		}
		out.Conflicts = append(out.Conflicts, annotate(c, current))
	}
	return out, nil
}

// Decide evaluates one candidate against the strategy table given the area
// of the edited ring in hectares.
func (d *Disambiguator) Decide(
	currentArea float64,
	ring orb.Ring,
	edit *model.EditSessionContext,
	c model.OverlapCandidate,
) Decision {
	base := Decision{
		RecordID:                 c.RecordID,
		CurrentAreaHectares:      currentArea,
		OverlapAreaHectares:      c.OverlapAreaHectares,
		OverlapPercentageOfInput: c.OverlapPercentageOfInput,
	}
	switch {
	case edit == nil || !edit.IsEditMode:
		base.Reason = "not editing a stored record"
		return base
	case c.RecordID != edit.CurrentRecordID:
		base.Reason = "different record"
		return base
	}

	in := newInput(currentArea, ring, edit, c)
	base.InitialAreaHectares = in.initial
	for _, s := range strategies {
		if dec, ok := s(d.th, &in); ok {
			dec.RecordID = base.RecordID
			dec.Filtered = true
			dec.CurrentAreaHectares = base.CurrentAreaHectares
			dec.InitialAreaHectares = base.InitialAreaHectares
			dec.OverlapAreaHectares = base.OverlapAreaHectares
			dec.OverlapPercentageOfInput = base.OverlapPercentageOfInput
			dec.ContainmentError = in.containErrText()
			return dec
		}
	}
	base.Reason = "same record id but no self-overlap strategy matched"
	base.ContainmentError = in.containErrText()
	return base
}

func (d *Disambiguator) audit(ctx context.Context, edit *model.EditSessionContext, dec Decision) {
	eligible := edit != nil && edit.IsEditMode && dec.RecordID == edit.CurrentRecordID
	if !eligible {
		d.log.DebugContext(ctx, "overlap kept",
			"record_id", dec.RecordID,
			"reason", dec.Reason,
			"overlap_area_ha", dec.OverlapAreaHectares,
			"overlap_pct", dec.OverlapPercentageOfInput,
		)
		return
	}
	msg := "overlap kept for record under edit"
	if dec.Filtered {
		msg = "overlap suppressed as self-match"
	}
	d.log.InfoContext(ctx, msg,
		"record_id", dec.RecordID,
		"strategy", dec.Strategy,
		"reason", dec.Reason,
		"current_area_ha", dec.CurrentAreaHectares,
		"initial_area_ha", dec.InitialAreaHectares,
		"overlap_area_ha", dec.OverlapAreaHectares,
		"overlap_pct", dec.OverlapPercentageOfInput,
		"tolerance", dec.Tolerance,
		"containment_error", dec.ContainmentError,
	)
	if d.sink != nil {
		d.sink.Record(ctx, dec)
	}
}

func annotate(c model.OverlapCandidate, current float64) Conflict {
	out := Conflict{OverlapCandidate: c, OverlapPercentOfInput: c.OverlapPercentageOfInput}
	if out.OverlapPercentOfInput == 0 && current > 0 {
		out.OverlapPercentOfInput = c.OverlapAreaHectares / current * 100
	}
	if len(c.Ring) > 0 && model.CheckRing(c.Ring) == nil {
		if a := math.Abs(geodesic.AreaHectares(c.Ring)); a > 0 {
			out.OverlapPercentOfCandidate = c.OverlapAreaHectares / a * 100
		}
	}
	return out
}

func pct(f float64) string { return fmt.Sprintf("%.2f%%", f*100) }
