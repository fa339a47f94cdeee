// Package keys derives cache keys from ring geometry and evaluation
// parameters.
package keys

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ringguard/internal/core/model"
)

const prefix = "ringguard"

// Ring hashes the coordinates of the open ring. A closed and an open copy of
// the same ring share a fingerprint; any other difference, including vertex
// order or a repeated vertex, changes it since results carry vertex and edge
// indices.
func Ring(r orb.Ring) uint64 {
	open := model.Open(r)
	d := xxhash.New()
	var buf [16]byte
	for _, p := range open {
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(canonical(p[0])))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(canonical(p[1])))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// -0 and +0 are the same coordinate
func canonical(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

// Key builds "ringguard:<kind>:r=<ring hash>:p=<params hash>". params is any
// deterministic encoding of the evaluation inputs (rules, thresholds).
func Key(kind string, r orb.Ring, params string) string {
	k := sanitizeKind(strings.TrimSpace(kind))
	p := collapseASCIIWhitespace(params)
	return fmt.Sprintf("%s:%s:r=%016x:p=%016x", prefix, k, Ring(r), xxhash.Sum64String(p))
}

func sanitizeKind(s string) string {
	if s == "" {
		return "default"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
