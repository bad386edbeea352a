/*
 *  null.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/26/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NullStream is the seeded random stream behind all permutations of a run.
// Every test gets its own sub-stream, forked in a fixed order from the master
// stream, so results do not depend on how tests are scheduled.
type NullStream struct {
	rng *rand.Rand
}

// NewNullStream wraps an arbitrary source
func NewNullStream(src rand.Source) *NullStream {
	return &NullStream{rng: rand.New(src)}
}

// NewSeededStream returns the stream for a user seed
func NewSeededStream(seed int64) *NullStream {
	return NewNullStream(rand.NewSource(uint64(seed)))
}

// Fork derives an independent sub-stream from the next master value
func (r *NullStream) Fork() rand.Source {
	return rand.NewSource(r.rng.Uint64())
}

// nullTest is one region tested against a binomial redistribution of n reads,
// each landing in the region with probability p
type nullTest struct {
	category string
	region   GenomicInterval
	name     string
	observed int
	n        int
	p        float64
	src      rand.Source
}

// run draws nperm null counts and computes the one-sided permutation p-value
// (1 + #{null >= observed}) / (nperm + 1)
func (t *nullTest) run(nperm int) PValueResult {
	draws := make([]float64, nperm)
	exceed := 0
	var dist distuv.Binomial
	switch {
	case t.n <= 0 || t.p <= 0:
		// all draws are zero
	case t.p >= 1:
		for i := range draws {
			draws[i] = float64(t.n)
		}
	default:
		dist = distuv.Binomial{N: float64(t.n), P: t.p, Src: t.src}
		for i := range draws {
			draws[i] = dist.Rand()
		}
	}
	obs := float64(t.observed)
	for _, x := range draws {
		if x >= obs {
			exceed++
		}
	}

	mean, sd := draws[0], 0.0
	if nperm > 1 {
		mean, sd = stat.MeanStdDev(draws, nil)
	}
	return PValueResult{
		Category: t.category,
		Region:   t.region,
		Name:     t.name,
		Observed: t.observed,
		Expected: float64(t.n) * t.p,
		NullMean: mean,
		NullSD:   sd,
		PValue:   float64(1+exceed) / float64(nperm+1),
	}
}
