/*
 *  locus.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/22/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// GenomicInterval is a half-open, 0-based range on a reference sequence
type GenomicInterval struct {
	Chrom string
	Start int
	End   int
}

// String outputs the chr:start-end representation
func (r GenomicInterval) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

// Len returns the number of bases covered
func (r GenomicInterval) Len() int {
	return r.End - r.Start
}

// Contains checks if a point position is within range
func (r GenomicInterval) Contains(chrom string, pos int) bool {
	return chrom == r.Chrom && r.Start <= pos && pos < r.End
}

// BaitLocus is the anchor point of the capture experiment
type BaitLocus struct {
	Chrom string
	Pos   int
}

// String outputs the chr:pos representation
func (r BaitLocus) String() string {
	return fmt.Sprintf("%s:%d", r.Chrom, r.Pos)
}

// Interval returns the single-base interval at the bait position
func (r BaitLocus) Interval() GenomicInterval {
	return GenomicInterval{Chrom: r.Chrom, Start: r.Pos, End: r.Pos + 1}
}

// ParseBait parses `chr:pos` or `chr:start-end`, a range collapses to its
// midpoint
func ParseBait(s string) (BaitLocus, error) {
	var bait BaitLocus
	words := strings.Split(strings.TrimSpace(s), ":")
	if len(words) != 2 || words[0] == "" {
		return bait, errors.Wrapf(ErrMalformedCoordinate, "bait `%s`", s)
	}
	bait.Chrom = words[0]
	coords := strings.Replace(words[1], ",", "", -1)
	if strings.Contains(coords, "-") {
		r, err := ParseInterval(s)
		if err != nil {
			return bait, err
		}
		// Halves round to even
		bait.Pos = int(math.RoundToEven(float64(r.Start+r.End) / 2))
		return bait, nil
	}
	pos, err := strconv.Atoi(coords)
	if err != nil || pos < 0 {
		return bait, errors.Wrapf(ErrMalformedCoordinate, "bait `%s`", s)
	}
	bait.Pos = pos
	return bait, nil
}

// ParseInterval parses `chr:start-end` into a GenomicInterval
func ParseInterval(s string) (GenomicInterval, error) {
	var r GenomicInterval
	words := strings.Split(strings.TrimSpace(s), ":")
	if len(words) != 2 || words[0] == "" {
		return r, errors.Wrapf(ErrMalformedCoordinate, "interval `%s`", s)
	}
	bounds := strings.Split(strings.Replace(words[1], ",", "", -1), "-")
	if len(bounds) != 2 {
		return r, errors.Wrapf(ErrMalformedCoordinate, "interval `%s`", s)
	}
	start, err := strconv.Atoi(bounds[0])
	if err != nil {
		return r, errors.Wrapf(ErrMalformedCoordinate, "interval `%s`", s)
	}
	end, err := strconv.Atoi(bounds[1])
	if err != nil {
		return r, errors.Wrapf(ErrMalformedCoordinate, "interval `%s`", s)
	}
	if start < 0 || start >= end {
		return r, errors.Wrapf(ErrMalformedCoordinate, "interval `%s` (start must be < end)", s)
	}
	return GenomicInterval{Chrom: words[0], Start: start, End: end}, nil
}
