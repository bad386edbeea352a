/*
 * Filename: /Users/bao/code/c3s/targets.go
 * Path: /Users/bao/code/c3s
 * Created Date: Saturday, January 25th 2020, 4:34:11 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/store/interval"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
	"github.com/vertgenlab/gonomics/bed"
)

// Region is a candidate target interval on the bait chromosome
type Region struct {
	GenomicInterval
	Name string
}

// regionInterval adapts a Region to the interval tree
type regionInterval struct {
	start, end int
	uid        uintptr
}

// Overlap rule for two half-open intervals
func (i regionInterval) Overlap(b interval.IntRange) bool {
	return i.start < b.End && b.Start < i.end
}

// ID returns the index of the Region
func (i regionInterval) ID() uintptr {
	return i.uid
}

// Range returns the range of the Region
func (i regionInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.start, End: i.end}
}

// RegionSet is the collection of targets tested for intra-chromosomal links.
// Targets are either fixed-size tiles or intervals from a BED file.
type RegionSet struct {
	Chrom   string
	Regions []Region
	binSize int // > 0 for tiles
	tree    *interval.IntTree
}

// TileRegions cuts the chromosome into bins of binSize, the last bin is shorter
func TileRegions(chrom string, length, binSize int) (*RegionSet, error) {
	if length <= 0 {
		return nil, errors.Wrapf(ErrEmptyChromosome, "`%s` has length %d", chrom, length)
	}
	if binSize <= 0 {
		return nil, errors.Errorf("binsize must be positive, got %d", binSize)
	}
	nBins := (length + binSize - 1) / binSize
	r := &RegionSet{Chrom: chrom, binSize: binSize, Regions: make([]Region, nBins)}
	for i := 0; i < nBins; i++ {
		start := i * binSize
		end := start + binSize
		if end > length {
			end = length
		}
		r.Regions[i] = Region{
			GenomicInterval: GenomicInterval{Chrom: chrom, Start: start, End: end},
			Name:            fmt.Sprintf("bin%d", i),
		}
	}
	return r, nil
}

// ReadTargets parses the bedfile to extract the targets on chrom. Header lines
// (track, browser, #) are skipped.
func ReadTargets(bedfile, chrom string, length int) (*RegionSet, error) {
	log.Noticef("Parse bedfile `%s`", bedfile)
	records, err := readBed(bedfile)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return bed.Compare(records[i], records[j]) < 0
	})

	var regions []Region
	for _, b := range records {
		if b.Chrom != chrom {
			continue
		}
		start, end := clamp(b.ChromStart, 0, length), clamp(b.ChromEnd, 0, length)
		if start >= end {
			log.Warningf("Skip empty target %s:%d-%d", b.Chrom, b.ChromStart, b.ChromEnd)
			continue
		}
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("%s:%d-%d", b.Chrom, start, end)
		}
		regions = append(regions, Region{
			GenomicInterval: GenomicInterval{Chrom: chrom, Start: start, End: end},
			Name:            name,
		})
	}
	log.Noticef("A total of %d targets on %s imported", len(regions), chrom)
	return NewRegionSet(chrom, regions)
}

// readBed reads the first four columns of every record in bedfile
func readBed(bedfile string) ([]bed.Bed, error) {
	fh, err := xopen.Ropen(bedfile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open bedfile `%s`", bedfile)
	}
	defer fh.Close()

	var records []bed.Bed
	scanner := bufio.NewScanner(fh)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 3 {
			return nil, errors.Wrapf(ErrMalformedCoordinate, "`%s` line %d: expected at least 3 columns", bedfile, lineno)
		}
		start, err1 := strconv.Atoi(words[1])
		end, err2 := strconv.Atoi(words[2])
		if err1 != nil || err2 != nil {
			return nil, errors.Wrapf(ErrMalformedCoordinate, "`%s` line %d: %s %s", bedfile, lineno, words[1], words[2])
		}
		b := bed.Bed{Chrom: words[0], ChromStart: start, ChromEnd: end, Strand: bed.None, FieldsInitialized: len(words)}
		if len(words) >= 4 {
			b.Name = words[3]
		}
		records = append(records, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "cannot read bedfile `%s`", bedfile)
	}
	return records, nil
}

// NewRegionSet indexes arbitrary (possibly overlapping) regions on chrom
func NewRegionSet(chrom string, regions []Region) (*RegionSet, error) {
	if len(regions) == 0 {
		return nil, errors.Wrapf(ErrEmptyChromosome, "no target regions on `%s`", chrom)
	}
	tree := &interval.IntTree{}
	for i, region := range regions {
		if region.Chrom != chrom {
			return nil, errors.Wrapf(ErrUnknownChromosome, "target `%s` not on `%s`", region.Name, chrom)
		}
		iv := regionInterval{start: region.Start, end: region.End, uid: uintptr(i)}
		if err := tree.Insert(iv, false); err != nil {
			return nil, errors.Wrapf(err, "cannot index target `%s`", region.Name)
		}
	}
	return &RegionSet{Chrom: chrom, Regions: regions, tree: tree}, nil
}

// Len returns the number of regions
func (r *RegionSet) Len() int {
	return len(r.Regions)
}

// Locate returns the indices of the regions containing pos
func (r *RegionSet) Locate(pos int) []int {
	if r.binSize > 0 {
		i := pos / r.binSize
		if pos < 0 || i >= len(r.Regions) || pos >= r.Regions[i].End {
			return nil
		}
		return []int{i}
	}
	hits := r.tree.Get(regionInterval{start: pos, end: pos + 1})
	idx := make([]int, len(hits))
	for i, hit := range hits {
		idx[i] = int(hit.ID())
	}
	sort.Ints(idx)
	return idx
}

// Count tallies the positions falling in each region
func (r *RegionSet) Count(positions []int) []int {
	counts := make([]int, len(r.Regions))
	for _, pos := range positions {
		for _, i := range r.Locate(pos) {
			counts[i]++
		}
	}
	return counts
}
