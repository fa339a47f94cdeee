package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/geojson"
	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/core/observability"
	"github.com/mohammed-shakir/ringguard/internal/engine"
	"github.com/mohammed-shakir/ringguard/internal/overlap"
	"github.com/mohammed-shakir/ringguard/internal/validate"
)

const maxBodyBytes = 4 << 20

// Engine is what the HTTP surface needs from engine.Service.
type Engine interface {
	Rules() validate.Rules
	ValidatePolygon(ctx context.Context, p orb.Polygon, rules *validate.Rules) (validate.Verdict, error)
	Detect(ctx context.Context, ring orb.Ring) (engine.Detection, error)
	MetricsPolygon(ctx context.Context, p orb.Polygon, cover bool) (engine.RingMetrics, error)
	FilterOverlaps(ctx context.Context, req engine.OverlapRequest) (overlap.Verdict, error)
}

// Mount registers the /v1 endpoints on r.
func Mount(r chi.Router, logger *slog.Logger, eng Engine) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", instrument("/v1/validate", HandleValidate(logger, eng)))
		r.Post("/detect", instrument("/v1/detect", HandleDetect(logger, eng)))
		r.Post("/metrics", instrument("/v1/metrics", HandleMetrics(logger, eng)))
		r.Post("/overlaps/filter", instrument("/v1/overlaps/filter", HandleFilterOverlaps(logger, eng)))
	})
}

// geometry is accepted either as "ring" or as "geometry"
type geometryBody struct {
	Ring     json.RawMessage `json:"ring"`
	Geometry json.RawMessage `json:"geometry"`
}

func (b geometryBody) raw() ([]byte, error) {
	raw := b.Geometry
	if len(raw) == 0 {
		raw = b.Ring
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing ring or geometry: %w", model.ErrInvalidInput)
	}
	return raw, nil
}

// decode returns the single ring of the body; holes are rejected.
func (b geometryBody) decode() (orb.Ring, error) {
	raw, err := b.raw()
	if err != nil {
		return nil, err
	}
	return geojson.Ring(raw)
}

// decodePolygon keeps holes for the handlers that measure them.
func (b geometryBody) decodePolygon() (orb.Polygon, error) {
	raw, err := b.raw()
	if err != nil {
		return nil, err
	}
	return geojson.Polygon(raw)
}

type validateBody struct {
	geometryBody
	Rules json.RawMessage `json:"rules"`
}

func HandleValidate(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b validateBody
		if !decodeBody(w, r, &b) {
			return
		}
		poly, err := b.decodePolygon()
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		var rules *validate.Rules
		if len(b.Rules) > 0 {
			// fields left out keep the service defaults
			rr := eng.Rules()
			if err := json.Unmarshal(b.Rules, &rr); err != nil {
				writeError(w, logger, r, fmt.Errorf("rules: %v: %w", err, model.ErrInvalidInput))
				return
			}
			rules = &rr
		}
		v, err := eng.ValidatePolygon(r.Context(), poly, rules)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func HandleDetect(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b geometryBody
		if !decodeBody(w, r, &b) {
			return
		}
		ring, err := b.decode()
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		d, err := eng.Detect(r.Context(), ring)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		if r.URL.Query().Get("format") == "geojson" {
			w.Header().Set("Content-Type", "application/geo+json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(geojson.Intersections(d.Points))
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

type metricsBody struct {
	geometryBody
	Cover bool `json:"cover"`
}

func HandleMetrics(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b metricsBody
		if !decodeBody(w, r, &b) {
			return
		}
		poly, err := b.decodePolygon()
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		m, err := eng.MetricsPolygon(r.Context(), poly, b.Cover)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

type overlapBody struct {
	geometryBody
	Edit       *model.EditSessionContext `json:"edit"`
	Candidates []model.OverlapCandidate  `json:"candidates"`
	SessionID  string                    `json:"session_id"`
	Seq        uint64                    `json:"seq"`
}

func HandleFilterOverlaps(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b overlapBody
		if !decodeBody(w, r, &b) {
			return
		}
		ring, err := b.decode()
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		v, err := eng.FilterOverlaps(r.Context(), engine.OverlapRequest{
			Ring:       ring,
			Edit:       b.Edit,
			Candidates: b.Candidates,
			SessionID:  b.SessionID,
			Seq:        b.Seq,
		})
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Error: fmt.Sprintf("decode request: %v", err)})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrStaleRequest):
		status = http.StatusConflict
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
