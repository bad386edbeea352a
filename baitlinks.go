/*
 * Filename: /Users/bao/code/c3s/baitlinks.go
 * Path: /Users/bao/code/c3s
 * Created Date: Sunday, January 26th 2020, 9:26:26 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"github.com/pkg/errors"
)

// BaitLinks are the reads anchored in the peak window, split by where their
// mates land
type BaitLinks struct {
	Peak   PeakWindow
	Chroms []ChromSize
	// Mates on the bait chromosome, outside of the peak window
	Intra []int
	// Mates on other chromosomes, keyed by chromosome
	Inter map[string][]int
	// Mates inside the peak window, not tested
	NSelf int
	// Anchored interactions per chromosome over the whole store
	ChromTotals map[string]int
}

// NBait returns the number of bait reads with a mate outside the peak window
func (r *BaitLinks) NBait() int {
	return len(r.Intra) + r.NInter()
}

// NInter returns the number of inter-chromosomal mates
func (r *BaitLinks) NInter() int {
	total := 0
	for _, mates := range r.Inter {
		total += len(mates)
	}
	return total
}

// ExtractBaitLinks collects the bait reads from the store
//
//         bait read                                  mate
//     ------>|  peak window  |------------------------<------
//     =======================================================
//     intra if the mate is on the same chromosome (outside the window),
//     inter otherwise
func ExtractBaitLinks(src LinkSource, peak PeakWindow) (*BaitLinks, error) {
	chroms := src.ChromSizes()
	if _, ok := chromLength(chroms, peak.Chrom); !ok {
		return nil, errors.Wrapf(ErrUnknownChromosome, "peak chromosome `%s`", peak.Chrom)
	}
	links, err := src.Fetch(peak.Chrom, peak.Start, peak.End)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot fetch bait reads in %s", peak.Interval())
	}
	totals, err := src.ChromCounts()
	if err != nil {
		return nil, err
	}

	r := &BaitLinks{
		Peak:        peak,
		Chroms:      chroms,
		Inter:       make(map[string][]int),
		ChromTotals: totals,
	}
	for _, link := range links {
		switch {
		case !link.IsIntra():
			r.Inter[link.MateChrom] = append(r.Inter[link.MateChrom], link.MatePos)
		case peak.Interval().Contains(link.MateChrom, link.MatePos):
			r.NSelf++
		default:
			r.Intra = append(r.Intra, link.MatePos)
		}
	}
	log.Noticef("Bait reads in %s: %d intra, %d inter, %d within the peak",
		peak.Interval(), len(r.Intra), r.NInter(), r.NSelf)
	return r, nil
}
