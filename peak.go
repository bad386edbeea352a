/*
 *  peak.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/24/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import (
	"fmt"

	"github.com/pkg/errors"
)

// PeakWindow is the region around the bait where the capture signal sits.
// Reads anchored in the window are the bait reads.
type PeakWindow struct {
	Chrom    string
	Start    int
	End      int
	Inferred bool
}

// Interval returns the window as a GenomicInterval
func (r PeakWindow) Interval() GenomicInterval {
	return GenomicInterval{Chrom: r.Chrom, Start: r.Start, End: r.End}
}

// String outputs the window and how it was obtained
func (r PeakWindow) String() string {
	how := "user defined"
	if r.Inferred {
		how = "inferred"
	}
	return fmt.Sprintf("%s:%d-%d (%d bp, %s)", r.Chrom, r.Start, r.End, r.End-r.Start, how)
}

// InferPeak derives the peak boundaries from the smoothed depth. The summit is
// the highest smoothed value nearest to the bait; the window grows on both
// flanks while the smoothed depth stays above the outlier threshold. When the
// summit does not rise above the threshold, the whole profile is returned.
func InferPeak(profile *DepthProfile) PeakWindow {
	full := PeakWindow{Chrom: profile.Chrom, Start: profile.Start, End: profile.End(), Inferred: true}
	s := profile.Smoothed
	if len(s) == 0 {
		return full
	}

	baitIdx := clamp(profile.Bait-profile.Start, 0, len(s)-1)
	summit := 0
	for i, x := range s {
		if x > s[summit] || (x == s[summit] && abs(i-baitIdx) < abs(summit-baitIdx)) {
			summit = i
		}
	}
	if s[summit] <= profile.Threshold {
		log.Noticef("No clear peak (summit %.2f <= threshold %.2f), use the full window",
			s[summit], profile.Threshold)
		return full
	}

	left, right := summit, summit
	for left > 0 && s[left-1] > profile.Threshold {
		left--
	}
	for right < len(s)-1 && s[right+1] > profile.Threshold {
		right++
	}
	return PeakWindow{
		Chrom:    profile.Chrom,
		Start:    profile.Start + left,
		End:      profile.Start + right + 1,
		Inferred: true,
	}
}

// Peaker finds the peak window around the bait
type Peaker struct {
	Source       LinkSource
	Bait         BaitLocus
	ExtendSize   int
	ReadLen      int
	SmoothWindow int
	PeakStart    int // -1 when unset
	PeakEnd      int // -1 when unset
	// Output
	Profile *DepthProfile
	Peak    PeakWindow
}

// Run computes the depth profile and the peak window. User defined bounds are
// used verbatim.
func (r *Peaker) Run() error {
	profile, err := NewDepthProfile(r.Source, r.Bait, r.ExtendSize, r.ReadLen, r.SmoothWindow)
	if err != nil {
		return err
	}
	r.Profile = profile

	if r.PeakStart >= 0 || r.PeakEnd >= 0 {
		if r.PeakStart < 0 || r.PeakEnd < 0 || r.PeakStart >= r.PeakEnd {
			return errors.Wrapf(ErrPeakBounds, "got peakstart=%d, peakend=%d", r.PeakStart, r.PeakEnd)
		}
		r.Peak = PeakWindow{Chrom: r.Bait.Chrom, Start: r.PeakStart, End: r.PeakEnd}
		log.Noticef("Use user defined peak size: %s", r.Peak)
		return nil
	}
	r.Peak = InferPeak(profile)
	log.Noticef("Peak window %s", r.Peak)
	return nil
}

// abs gets the absolute value of an int
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
