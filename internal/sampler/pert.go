// Package sampler draws task durations from a scaled Beta-PERT
// distribution, per spec §4.2.
package sampler

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Lambda is the standard Beta-PERT shape factor.
const Lambda = 4.0

// PERT draws durations from a Beta-PERT(O, M, P) distribution with the
// standard shape factor. It is not safe for concurrent use: each trial
// executor owns a private PERT built from its own RNG.
type PERT struct {
	src rand.Source
}

// New returns a PERT sampler drawing from src. Callers typically give
// each parallel worker its own src derived from a sub-seed so sampling
// streams never contend or depend on scheduling order.
func New(src rand.Source) *PERT {
	return &PERT{src: src}
}

// Sample draws one duration in [O, P] for the given three-point estimate.
// Build's validation already guarantees 0 <= O <= M <= P and finiteness;
// Sample does not re-validate those invariants, only the degenerate
// O == P and the closed-interval clamp spec §4.2 requires.
func (p *PERT) Sample(optimistic, mostLikely, pessimistic float64) float64 {
	o, m, P := optimistic, mostLikely, pessimistic

	if P == o {
		return o
	}

	alpha := 1 + Lambda*(m-o)/(P-o)
	beta := 1 + Lambda*(P-m)/(P-o)

	x := distuv.Beta{Alpha: alpha, Beta: beta, Src: p.src}.Rand()

	d := o + x*(P-o)
	return clamp(d, o, P)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
