/**
 * Filename: /Users/bao/code/c3s/depth.go
 * Path: /Users/bao/code/c3s
 * Created Date: Friday, January 24th 2020, 1:56:45 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"github.com/pkg/errors"
)

// DepthProfile is the read depth around the bait, one value per base
type DepthProfile struct {
	Chrom     string
	Start     int // genomic position of Depth[0]
	Bait      int
	Depth     []float64
	Smoothed  []float64
	Threshold float64
}

// End returns the genomic position right after the last base
func (r *DepthProfile) End() int {
	return r.Start + len(r.Depth)
}

// NewDepthProfile piles up the anchor reads over [bait-extendSize, bait+extendSize],
// clipped to the chromosome, then smooths with a moving average of width smoothWindow
func NewDepthProfile(src LinkSource, bait BaitLocus, extendSize, readLen, smoothWindow int) (*DepthProfile, error) {
	length, ok := chromLength(src.ChromSizes(), bait.Chrom)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownChromosome, "bait chromosome `%s`", bait.Chrom)
	}
	if bait.Pos < 0 || bait.Pos >= length {
		return nil, errors.Wrapf(ErrMalformedCoordinate, "bait %s outside of %s (length %d)",
			bait, bait.Chrom, length)
	}
	start := clamp(bait.Pos-extendSize, 0, length)
	end := clamp(bait.Pos+extendSize, 0, length)
	if start >= end {
		return nil, errors.Wrapf(ErrEmptyChromosome, "no window around bait %s", bait)
	}

	// Reads starting up to readLen upstream still cover the window
	links, err := src.Fetch(bait.Chrom, clamp(start-readLen+1, 0, length), end)
	if err != nil {
		return nil, err
	}

	n := end - start
	diff := make([]int, n+1)
	for _, link := range links {
		lo := clamp(link.Pos-start, 0, n)
		hi := clamp(link.Pos+readLen-start, 0, n)
		if lo >= hi {
			continue
		}
		diff[lo]++
		diff[hi]--
	}
	depth := make([]float64, n)
	cur := 0
	for i := 0; i < n; i++ {
		cur += diff[i]
		depth[i] = float64(cur)
	}

	smoothed := Smooth(depth, smoothWindow)
	_, threshold := OutlierCutoff(smoothed)
	log.Noticef("Depth profile %s:%d-%d from %d reads (threshold = %.2f)",
		bait.Chrom, start, end, len(links), threshold)
	return &DepthProfile{
		Chrom:     bait.Chrom,
		Start:     start,
		Bait:      bait.Pos,
		Depth:     depth,
		Smoothed:  smoothed,
		Threshold: threshold,
	}, nil
}

// Smooth computes a centred moving average of width w, the edges average over
// the part of the window that is available
func Smooth(a []float64, w int) []float64 {
	n := len(a)
	if w < 1 {
		w = 1
	}
	cumsum := make([]float64, n+1)
	for i, x := range a {
		cumsum[i+1] = cumsum[i] + x
	}
	smoothed := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := clamp(i-w/2, 0, n)
		hi := clamp(i-w/2+w, 0, n)
		smoothed[i] = (cumsum[hi] - cumsum[lo]) / float64(hi-lo)
	}
	return smoothed
}
