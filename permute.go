/*
 *  permute.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/26/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const (
	// IntraCategory labels tests of mates on the bait chromosome
	IntraCategory = "intra"
	// InterCategory labels tests of mates on each other chromosome
	InterCategory = "inter"
	// InterTotalCategory labels the global inter-chromosomal test
	InterTotalCategory = "inter-total"
)

// PValueResult is the outcome of one permutation test
type PValueResult struct {
	Category string
	Region   GenomicInterval
	Name     string
	Observed int
	Expected float64
	NullMean float64
	NullSD   float64
	PValue   float64
}

// String outputs one row of the p-value table
func (r PValueResult) String() string {
	return fmt.Sprintf("%s\t%s\t%d\t%d\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.6g",
		r.Category, r.Region.Chrom, r.Region.Start, r.Region.End, r.Name,
		r.Observed, r.Expected, r.NullMean, r.NullSD, r.PValue)
}

// Permuter tests bait interactions against a null model where the same number
// of reads is redistributed at random
type Permuter struct {
	NPerm    int
	Procs    int
	MinLinks int
	stream   *NullStream
}

// NewPermuter makes a Permuter drawing from src
func NewPermuter(nperm, procs int, src rand.Source) *Permuter {
	if procs < 1 {
		procs = 1
	}
	return &Permuter{
		NPerm:    nperm,
		Procs:    procs,
		MinLinks: DefaultMinLinks,
		stream:   NewNullStream(src),
	}
}

// IntraChromLinks tests each region of the bait chromosome. The null spreads
// the intra-chromosomal mates uniformly over the chromosome minus the peak
// window, so a region receives Binomial(N, l/L) reads. Tiles with fewer than
// MinLinks observed mates are not reported; BED targets always are.
func (r *Permuter) IntraChromLinks(ctx context.Context, links *BaitLinks, regions *RegionSet) ([]PValueResult, error) {
	if r.NPerm < 1 {
		return nil, errors.Errorf("nperm must be positive, got %d", r.NPerm)
	}
	peak := links.Peak
	length, ok := chromLength(links.Chroms, peak.Chrom)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownChromosome, "`%s`", peak.Chrom)
	}
	effLength := length - overlapLen(0, length, peak.Start, peak.End)
	if effLength <= 0 || regions.Len() == 0 {
		return nil, errors.Wrapf(ErrEmptyChromosome, "`%s` has nothing to test outside of %s",
			peak.Chrom, peak.Interval())
	}
	n := len(links.Intra)
	if n == 0 {
		return nil, errors.Wrapf(ErrZeroReads, "no intra-chromosomal mates for %s", peak.Interval())
	}

	counts := regions.Count(links.Intra)
	var tests []*nullTest
	for i, region := range regions.Regions {
		if regions.binSize > 0 && counts[i] < r.MinLinks {
			continue
		}
		l := region.Len() - overlapLen(region.Start, region.End, peak.Start, peak.End)
		if l <= 0 {
			continue
		}
		tests = append(tests, &nullTest{
			category: IntraCategory,
			region:   region.GenomicInterval,
			name:     region.Name,
			observed: counts[i],
			n:        n,
			p:        float64(l) / float64(effLength),
		})
	}
	log.Noticef("Permutation on %d regions of %s (%d mates, nperm = %d)",
		len(tests), peak.Chrom, n, r.NPerm)
	return r.runAll(ctx, tests)
}

// InterChromLinks tests each other chromosome, with the inter-chromosomal mates
// redistributed in proportion to the number of reads anchored on each
// chromosome. A last inter-total row tests the overall fraction of bait reads
// whose mates leave the bait chromosome.
func (r *Permuter) InterChromLinks(ctx context.Context, links *BaitLinks) ([]PValueResult, error) {
	if r.NPerm < 1 {
		return nil, errors.Errorf("nperm must be positive, got %d", r.NPerm)
	}
	peak := links.Peak
	baitTotal, allTotal, otherTotal := 0, 0, 0
	for _, c := range links.Chroms {
		t := links.ChromTotals[c.Name]
		allTotal += t
		if c.Name == peak.Chrom {
			baitTotal = t
		} else {
			otherTotal += t
		}
	}
	if otherTotal == 0 {
		return nil, errors.Wrapf(ErrZeroReads, "no reads on chromosomes other than `%s`", peak.Chrom)
	}
	m := links.NInter()
	if m == 0 {
		return nil, errors.Wrapf(ErrZeroReads, "no inter-chromosomal mates for %s", peak.Interval())
	}

	var tests []*nullTest
	for _, c := range links.Chroms {
		if c.Name == peak.Chrom {
			continue
		}
		tests = append(tests, &nullTest{
			category: InterCategory,
			region:   GenomicInterval{Chrom: c.Name, Start: 0, End: c.Length},
			name:     c.Name,
			observed: len(links.Inter[c.Name]),
			n:        m,
			p:        float64(links.ChromTotals[c.Name]) / float64(otherTotal),
		})
	}
	tests = append(tests, &nullTest{
		category: InterTotalCategory,
		region:   peak.Interval(),
		name:     "total",
		observed: m,
		n:        links.NBait(),
		p:        float64(allTotal-baitTotal) / float64(allTotal),
	})
	log.Noticef("Permutation on %d chromosomes (%d mates, nperm = %d)",
		len(tests)-1, m, r.NPerm)
	return r.runAll(ctx, tests)
}

// runAll assigns sub-streams in order, then runs the tests on Procs workers
func (r *Permuter) runAll(ctx context.Context, tests []*nullTest) ([]PValueResult, error) {
	for _, t := range tests {
		t.src = r.stream.Fork()
	}
	results := make([]PValueResult, len(tests))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Procs)
	for i, t := range tests {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = t.run(r.NPerm)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "permutation interrupted")
	}
	return results, nil
}
