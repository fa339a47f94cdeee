package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
	"github.com/mohammed-shakir/ringguard/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellForPoint(p orb.Point, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat(), Lng: p.Lon()}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %v: %w", p, err)
	}
	return c.String(), nil
}

// CoverRing returns the cells whose centers fall inside the ring plus the
// cells of every vertex, so a parcel smaller than one cell is still covered.
// Cells are unique and sorted.
func (m *Mapper) CoverRing(r orb.Ring, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if err := model.CheckRing(r); err != nil {
		return nil, err
	}
	loop := toLoop(r)
	if len(loop) < 3 {
		return nil, errors.New("ring has < 3 vertices")
	}

	filled, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: loop}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	seen := make(map[string]struct{}, len(filled)+len(loop))
	out := make([]string, 0, len(filled)+len(loop))
	add := func(c h3.Cell) {
		s := c.String()
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, c := range filled {
		add(c)
	}
	for _, ll := range loop {
		c, err := h3.LatLngToCell(ll, res)
		if err != nil {
			return nil, fmt.Errorf("h3 vertex cell: %w", err)
		}
		add(c)
	}
	sort.Strings(out)
	return out, nil
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15): %w", res, model.ErrInvalidInput)
	}
	return nil
}

// open ring in degrees; h3 closes the loop itself
func toLoop(r orb.Ring) h3.GeoLoop {
	open := model.Distinct(r, 0)
	loop := make(h3.GeoLoop, 0, len(open))
	for _, p := range open {
		loop = append(loop, h3.LatLng{Lat: p.Lat(), Lng: p.Lon()})
	}
	return loop
}
