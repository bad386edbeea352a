/*
 * Filename: /Users/bao/code/c3s/matefix.go
 * Path: /Users/bao/code/c3s
 * Created Date: Saturday, January 25th 2020, 4:18:51 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// placement is where one end of a read pair aligned
type placement struct {
	chrom   string
	pos     int
	length  int
	reverse bool
}

// MateStats summarizes the reconciliation of the two ends
type MateStats struct {
	Pairs    int // both ends placed
	Rescued  int // pairs using at least one remapped end
	Orphans  int // only one end placed
	Links    int // stored interactions, two per pair
	Linkfile string
}

// MateFixer merges the direct and remapped alignments of both ends into an
// interaction store
type MateFixer struct {
	Bamfiles [4]string // R1, R2, R1 remapped, R2 remapped
	Prefix   string
	Procs    int
	// Output
	Stats MateStats
}

// Run starts the mate fixing
func (r *MateFixer) Run() error {
	linkfile, stats, err := fixMatePairs(r.Bamfiles, r.Prefix, r.Procs)
	if err != nil {
		return err
	}
	stats.Linkfile = linkfile
	r.Stats = stats
	return nil
}

// FixMatePairs pairs up read 1 and read 2 from the four BAM files and writes
// `<prefix>.links.bam` with its index
func FixMatePairs(bams [4]string, prefix string, procs int) (string, error) {
	linkfile, _, err := fixMatePairs(bams, prefix, procs)
	return linkfile, err
}

func fixMatePairs(bams [4]string, prefix string, procs int) (string, MateStats, error) {
	var stats MateStats
	if procs < 1 {
		procs = 1
	}
	var chroms []ChromSize
	placements := make([]map[string]placement, len(bams))
	var g errgroup.Group
	for i, bamfile := range bams {
		i, bamfile := i, bamfile
		g.Go(func() error {
			refs, p, err := readPlacements(bamfile, procs)
			if err != nil {
				return err
			}
			placements[i] = p
			if i == 0 {
				chroms = refs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", stats, err
	}

	pick := func(direct, remap map[string]placement, name string) (placement, bool, bool) {
		if p, ok := direct[name]; ok {
			return p, true, false
		}
		p, ok := remap[name]
		return p, ok, ok
	}

	names := make(map[string]bool)
	for _, p := range placements {
		for name := range p {
			names[name] = true
		}
	}
	sortedNames := make([]string, 0, len(names))
	for name := range names {
		sortedNames = append(sortedNames, name)
	}
	slices.Sort(sortedNames)

	var links []Interaction
	for _, name := range sortedNames {
		a, aok, arescued := pick(placements[0], placements[2], name)
		b, bok, brescued := pick(placements[1], placements[3], name)
		if !aok || !bok {
			stats.Orphans++
			continue
		}
		stats.Pairs++
		if arescued || brescued {
			stats.Rescued++
		}
		link := Interaction{
			Name:        name,
			Chrom:       a.chrom,
			Pos:         a.pos,
			Len:         a.length,
			Reverse:     a.reverse,
			MateChrom:   b.chrom,
			MatePos:     b.pos,
			MateReverse: b.reverse,
		}
		flipped := link.Flip()
		flipped.Len = b.length
		links = append(links, link, flipped)
	}
	stats.Links = len(links)
	log.Noticef("Paired %d reads (%d rescued by splitting), %d orphans dropped",
		stats.Pairs, stats.Rescued, stats.Orphans)

	linkfile := prefix + ".links.bam"
	if err := WriteLinks(linkfile, chroms, links, procs); err != nil {
		return "", stats, err
	}
	return linkfile, stats, nil
}

// readPlacements loads the primary alignment of every read in bamfile
func readPlacements(bamfile string, procs int) ([]ChromSize, map[string]placement, error) {
	fh, err := os.Open(bamfile)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot open bamfile `%s`", bamfile)
	}
	defer fh.Close()

	log.Noticef("Parse bamfile `%s`", bamfile)
	br, err := bam.NewReader(fh, procs)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read bamfile `%s`", bamfile)
	}
	defer br.Close()

	var chroms []ChromSize
	for _, ref := range br.Header().Refs() {
		chroms = append(chroms, ChromSize{Name: ref.Name(), Length: ref.Len()})
	}
	placements := make(map[string]placement)
	for {
		rec, err := br.Read()
		if err != nil {
			if err != io.EOF {
				return nil, nil, errors.Wrapf(err, "cannot read bamfile `%s`", bamfile)
			}
			break
		}
		// Filtering: Unmapped | Secondary | QCFail | Duplicate | Supplementary
		if rec.Ref == nil || rec.Flags&3844 != 0 {
			continue
		}
		name := trimMateSuffix(rec.Name)
		if _, ok := placements[name]; ok {
			continue
		}
		length := rec.Len()
		if length <= 0 {
			length = 1
		}
		placements[name] = placement{
			chrom:   rec.Ref.Name(),
			pos:     rec.Pos,
			length:  length,
			reverse: rec.Flags&sam.Reverse != 0,
		}
	}
	return chroms, placements, nil
}

// trimMateSuffix drops a trailing /1 or /2 from a read name
func trimMateSuffix(name string) string {
	if strings.HasSuffix(name, "/1") || strings.HasSuffix(name, "/2") {
		return name[:len(name)-2]
	}
	return name
}
