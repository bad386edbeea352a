/*
 * Filename: /Users/bao/code/c3s/links.go
 * Path: /Users/bao/code/c3s
 * Created Date: Thursday, January 23rd 2020, 9:26:26 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"sort"

	"github.com/pkg/errors"
)

// Interaction is one read pair: the anchor read and the position of its mate
type Interaction struct {
	Name        string
	Chrom       string
	Pos         int
	Len         int // aligned length of the anchor read
	Reverse     bool
	MateChrom   string
	MatePos     int
	MateReverse bool
}

// IsIntra tells if both ends are on the same chromosome
func (r Interaction) IsIntra() bool {
	return r.Chrom == r.MateChrom
}

// Flip returns the same pair anchored on the mate
func (r Interaction) Flip() Interaction {
	return Interaction{
		Name:        r.Name,
		Chrom:       r.MateChrom,
		Pos:         r.MatePos,
		Len:         r.Len,
		Reverse:     r.MateReverse,
		MateChrom:   r.Chrom,
		MatePos:     r.Pos,
		MateReverse: r.Reverse,
	}
}

// ChromSize stores the name and length of each chromosome
type ChromSize struct {
	Name   string
	Length int
}

// LinkSource is a position-indexed collection of interactions
type LinkSource interface {
	// ChromSizes lists the chromosomes in header order
	ChromSizes() []ChromSize
	// Fetch returns the interactions anchored within [start, end) of chrom
	Fetch(chrom string, start, end int) ([]Interaction, error)
	// ChromCounts returns the number of anchored interactions per chromosome
	ChromCounts() (map[string]int, error)
}

// chromLength looks up the length of chrom
func chromLength(chroms []ChromSize, chrom string) (int, bool) {
	for _, c := range chroms {
		if c.Name == chrom {
			return c.Length, true
		}
	}
	return 0, false
}

// checkRange validates a range query and returns its end clipped to the chromosome
func checkRange(chroms []ChromSize, chrom string, start, end int) (int, error) {
	length, ok := chromLength(chroms, chrom)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownChromosome, "`%s`", chrom)
	}
	if start < 0 || start >= end {
		return 0, errors.Wrapf(ErrMalformedCoordinate, "%s:%d-%d", chrom, start, end)
	}
	if end > length {
		end = length
	}
	return end, nil
}

// sortInteractions orders interactions by chromosome rank then position
func sortInteractions(links []Interaction, chroms []ChromSize) {
	rank := make(map[string]int, len(chroms))
	for i, c := range chroms {
		rank[c.Name] = i
	}
	sort.SliceStable(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if ra, rb := rank[a.Chrom], rank[b.Chrom]; ra != rb {
			return ra < rb
		}
		if a.Pos != b.Pos {
			return a.Pos < b.Pos
		}
		if ra, rb := rank[a.MateChrom], rank[b.MateChrom]; ra != rb {
			return ra < rb
		}
		return a.MatePos < b.MatePos
	})
}

// MemoryStore keeps all interactions in memory, sorted per chromosome
type MemoryStore struct {
	chroms  []ChromSize
	byChrom map[string][]Interaction
}

// NewMemoryStore builds an in-memory LinkSource, links on unknown
// chromosomes are rejected
func NewMemoryStore(chroms []ChromSize, links []Interaction) (*MemoryStore, error) {
	r := &MemoryStore{
		chroms:  append([]ChromSize(nil), chroms...),
		byChrom: make(map[string][]Interaction),
	}
	for _, link := range links {
		if _, ok := chromLength(chroms, link.Chrom); !ok {
			return nil, errors.Wrapf(ErrUnknownChromosome, "`%s` (read `%s`)", link.Chrom, link.Name)
		}
		if _, ok := chromLength(chroms, link.MateChrom); !ok {
			return nil, errors.Wrapf(ErrUnknownChromosome, "`%s` (mate of `%s`)", link.MateChrom, link.Name)
		}
		r.byChrom[link.Chrom] = append(r.byChrom[link.Chrom], link)
	}
	for _, links := range r.byChrom {
		sortInteractions(links, chroms)
	}
	return r, nil
}

// ChromSizes implements LinkSource
func (r *MemoryStore) ChromSizes() []ChromSize {
	return r.chroms
}

// Fetch implements LinkSource
func (r *MemoryStore) Fetch(chrom string, start, end int) ([]Interaction, error) {
	end, err := checkRange(r.chroms, chrom, start, end)
	if err != nil {
		return nil, err
	}
	links := r.byChrom[chrom]
	i := sort.Search(len(links), func(i int) bool { return links[i].Pos >= start })
	j := sort.Search(len(links), func(i int) bool { return links[i].Pos >= end })
	if i >= j {
		return nil, nil
	}
	return append([]Interaction(nil), links[i:j]...), nil
}

// ChromCounts implements LinkSource
func (r *MemoryStore) ChromCounts() (map[string]int, error) {
	counts := make(map[string]int, len(r.chroms))
	for _, c := range r.chroms {
		counts[c.Name] = len(r.byChrom[c.Name])
	}
	return counts, nil
}
