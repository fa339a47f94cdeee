// Package engine composes the validation core with the detection memo, the
// shared verdict cache, the H3 mapper and the overlap audit trail.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/cache"
	"github.com/mohammed-shakir/ringguard/internal/cache/keys"
	"github.com/mohammed-shakir/ringguard/internal/cache/memo"
	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/core/observability"
	"github.com/mohammed-shakir/ringguard/internal/geodesic"
	"github.com/mohammed-shakir/ringguard/internal/logger"
	"github.com/mohammed-shakir/ringguard/internal/mapper"
	h3mapper "github.com/mohammed-shakir/ringguard/internal/mapper/h3"
	"github.com/mohammed-shakir/ringguard/internal/overlap"
	"github.com/mohammed-shakir/ringguard/internal/validate"
)

// ErrStaleRequest is returned when a newer overlap check was already seen
// for the same session.
var ErrStaleRequest = errors.New("stale request")

type Options struct {
	Rules         validate.Rules
	Thresholds    overlap.Thresholds
	H3Res         int
	MemoSize      int
	SequencerSize int
	Verdicts      *cache.Verdicts
	Audit         overlap.AuditSink
	Mapper        mapper.Interface
	Logger        *slog.Logger
}

type Service struct {
	rules     validate.Rules
	res       int
	memo      *memo.Detector
	validator *validate.Validator
	overlaps  *overlap.Disambiguator
	seq       *Sequencer
	verdicts  *cache.Verdicts
	mapper    mapper.Interface
	log       *slog.Logger
}

func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Mapper == nil {
		opts.Mapper = h3mapper.New()
	}
	th := opts.Thresholds
	if th == (overlap.Thresholds{}) {
		th = overlap.DefaultThresholds()
	}
	if opts.Rules.MaxVertices == 0 && opts.Rules.MinVertices == 0 {
		opts.Rules = validate.DefaultRules()
	}
	det := memo.New(opts.MemoSize, nil)
	return &Service{
		rules:     opts.Rules,
		res:       opts.H3Res,
		memo:      det,
		validator: validate.New(det),
		overlaps:  overlap.New(overlap.Options{Thresholds: &th, Logger: log, Sink: opts.Audit}),
		seq:       NewSequencer(opts.SequencerSize),
		verdicts:  opts.Verdicts,
		mapper:    opts.Mapper,
		log:       log,
	}
}

func (s *Service) Rules() validate.Rules { return s.rules }

func (s *Service) Thresholds() overlap.Thresholds { return s.overlaps.Thresholds() }

// Validate checks ring against rules, or the service defaults when rules is
// nil. Verdicts are shared through the cache when one is configured.
func (s *Service) Validate(ctx context.Context, ring orb.Ring, rules *validate.Rules) (validate.Verdict, error) {
	return s.ValidatePolygon(ctx, orb.Polygon{ring}, rules)
}

// ValidatePolygon is Validate for a shell with holes. The area rules see the
// shell minus its holes.
func (s *Service) ValidatePolygon(ctx context.Context, p orb.Polygon, rules *validate.Rules) (validate.Verdict, error) {
	if len(p) == 0 {
		return validate.Verdict{}, fmt.Errorf("polygon has no rings: %w", model.ErrInvalidInput)
	}
	for i, r := range p {
		if err := model.CheckRing(r); err != nil {
			return validate.Verdict{}, fmt.Errorf("ring %d: %w", i, err)
		}
	}
	r := s.rules
	if rules != nil {
		r = *rules
	}
	params, err := json.Marshal(r)
	if err != nil {
		return validate.Verdict{}, fmt.Errorf("encode rules: %w", err)
	}
	key := keys.Key("validate", p[0], string(params)+holeParams(p))

	var v validate.Verdict
	if s.verdicts.Load(ctx, key, &v) {
		return v, nil
	}

	start := time.Now()
	_, tier, err := s.memo.DetectWithTier(p[0])
	if err != nil {
		return validate.Verdict{}, err
	}
	v, err = s.validator.ValidatePolygon(p, r)
	if err != nil {
		return validate.Verdict{}, err
	}
	observability.ObserveValidation(v.Valid, time.Since(start).Seconds())
	observability.IncDetectorTier(tier)
	for _, is := range v.Errors {
		observability.IncIssue(is.Code, string(is.Severity))
	}
	for _, is := range v.Warnings {
		observability.IncIssue(is.Code, string(is.Severity))
	}
	s.log.DebugContext(ctx, "ring validated",
		"valid", v.Valid,
		"errors", len(v.Errors),
		"warnings", len(v.Warnings),
		"vertices", v.Metrics.VertexCount,
		"holes", v.Metrics.Holes,
		"area_ha", v.Metrics.AreaHectares,
		"tier", tier,
	)

	s.verdicts.Save(ctx, key, v)
	return v, nil
}

// holes take part in the cache key; a plain ring adds nothing
func holeParams(p orb.Polygon) string {
	if len(p) < 2 {
		return ""
	}
	var b strings.Builder
	b.WriteString("|holes=")
	for i, h := range p[1:] {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%016x", keys.Ring(h))
	}
	return b.String()
}

type Detection struct {
	Points []model.IntersectionPoint `json:"points"`
	Tier   string                    `json:"tier,omitempty"`
}

func (s *Service) Detect(_ context.Context, ring orb.Ring) (Detection, error) {
	pts, tier, err := s.memo.DetectWithTier(ring)
	if err != nil {
		return Detection{}, err
	}
	observability.IncDetectorTier(tier)
	if pts == nil {
		pts = []model.IntersectionPoint{}
	}
	return Detection{Points: pts, Tier: tier}, nil
}

type RingMetrics struct {
	geodesic.Metrics
	CentroidCell string   `json:"centroid_cell"`
	H3Res        int      `json:"h3_res"`
	Cover        []string `json:"cover,omitempty"`
}

// Metrics measures ring and locates its centroid on the H3 grid. With cover
// set, the cells overlapping the ring are listed for candidate lookups.
func (s *Service) Metrics(ctx context.Context, ring orb.Ring, cover bool) (RingMetrics, error) {
	return s.MetricsPolygon(ctx, orb.Polygon{ring}, cover)
}

// MetricsPolygon is Metrics for a shell with holes. Area and perimeter
// account for the holes; the centroid cell and the cover follow the shell.
func (s *Service) MetricsPolygon(_ context.Context, p orb.Polygon, cover bool) (RingMetrics, error) {
	m, err := geodesic.MeasurePolygon(p)
	if err != nil {
		return RingMetrics{}, err
	}
	out := RingMetrics{Metrics: m, H3Res: s.res}
	if m.VertexCount == 0 {
		return out, nil
	}
	if out.CentroidCell, err = s.mapper.CellForPoint(m.Centroid, s.res); err != nil {
		return RingMetrics{}, err
	}
	if cover && m.VertexCount >= 3 {
		if out.Cover, err = s.mapper.CoverRing(p[0], s.res); err != nil {
			return RingMetrics{}, err
		}
	}
	return out, nil
}

type OverlapRequest struct {
	Ring       orb.Ring
	Edit       *model.EditSessionContext
	Candidates []model.OverlapCandidate
	SessionID  string
	Seq        uint64
}

// FilterOverlaps drops self-matches of the record under edit. Requests that
// carry a session and sequence are ordered per session: an older request is
// rejected up front, and a result overtaken by a newer request while it was
// computed is discarded. Both cases return ErrStaleRequest.
func (s *Service) FilterOverlaps(ctx context.Context, req OverlapRequest) (overlap.Verdict, error) {
	sequenced := req.SessionID != "" && req.Seq > 0
	if sequenced && !s.seq.Admit(req.SessionID, req.Seq) {
		observability.IncStaleRequest()
		return overlap.Verdict{}, fmt.Errorf("session %s seq %d: %w", req.SessionID, req.Seq, ErrStaleRequest)
	}

	ctx = logger.WithSessionID(ctx, req.SessionID)
	if req.Edit != nil {
		ctx = logger.WithRecordID(ctx, req.Edit.CurrentRecordID)
	}
	v, err := s.overlaps.Filter(ctx, req.Ring, req.Edit, req.Candidates)
	if err != nil {
		return overlap.Verdict{}, err
	}
	for _, d := range v.Decisions {
		observability.IncOverlapDecision(d.Strategy, d.Filtered)
	}

	if sequenced && s.seq.Superseded(req.SessionID, req.Seq) {
		observability.IncStaleRequest()
		return overlap.Verdict{}, fmt.Errorf("session %s seq %d superseded: %w", req.SessionID, req.Seq, ErrStaleRequest)
	}
	return v, nil
}
