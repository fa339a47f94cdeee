// Package mapper converts ring geometry into H3 cells. Hosts use the cover of
// an edited ring to fetch overlap candidates from their store.
package mapper

import "github.com/paulmach/orb"

type Interface interface {
	CellForPoint(p orb.Point, res int) (string, error)
	CoverRing(r orb.Ring, res int) ([]string, error)
}
