/*
 *  helpers_test.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/26/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/c3s"
)

// Synthetic capture: the bait sits at chr11:2,000,000 with a forced peak
// window, one background mate per kb on chr11 and a 10x planted region at
// chr11:5,305,000-5,306,000.
const (
	testChromLen  = 6000000
	testBaitPos   = 2000000
	testPeakStart = 1999900
	testPeakEnd   = 2000100
	testBinSize   = 1000
	plantedStart  = 5305000
	plantedEnd    = 5306000
	plantedExtra  = 10
)

var testChroms = []c3s.ChromSize{
	{Name: "chr1", Length: 2000000},
	{Name: "chr11", Length: testChromLen},
	{Name: "chr2", Length: 1000000},
}

// addPair stores a read pair anchored on both ends
func addPair(links []c3s.Interaction, name, chrom string, pos int, mchrom string, mpos int) []c3s.Interaction {
	link := c3s.Interaction{
		Name:      name,
		Chrom:     chrom,
		Pos:       pos,
		Len:       36,
		MateChrom: mchrom,
		MatePos:   mpos,
	}
	return append(links, link, link.Flip())
}

// syntheticLinks builds the read pairs of the synthetic capture
func syntheticLinks(planted bool) []c3s.Interaction {
	return captureLinks(testPeakStart, testPeakEnd, planted)
}

// captureLinks anchors every bait read within [peakStart, peakEnd)
func captureLinks(peakStart, peakEnd int, planted bool) []c3s.Interaction {
	var links []c3s.Interaction
	i := 0
	anchor := func() int {
		return peakStart + i%(peakEnd-peakStart)
	}
	for bin := 0; bin < testChromLen/testBinSize; bin++ {
		links = addPair(links, fmt.Sprintf("bg%d", i), "chr11", anchor(), "chr11", bin*testBinSize+500)
		i++
	}
	if planted {
		for k := 0; k < plantedExtra; k++ {
			links = addPair(links, fmt.Sprintf("pl%d", i), "chr11", anchor(),
				"chr11", plantedStart+100+k*50)
			i++
		}
	}
	// Inter-chromosomal bait mates, then reads elsewhere to populate the totals
	for k := 0; k < 30; k++ {
		links = addPair(links, fmt.Sprintf("in%d", i), "chr11", anchor(), "chr1", 1000+k*5000)
		i++
	}
	for k := 0; k < 10; k++ {
		links = addPair(links, fmt.Sprintf("in%d", i), "chr11", anchor(), "chr2", 1000+k*5000)
		i++
	}
	for k := 0; k < 200; k++ {
		links = addPair(links, fmt.Sprintf("o%d", k), "chr1", 500+k*1000, "chr2", 700+k*1000)
	}
	return links
}

// syntheticStore wraps syntheticLinks in a MemoryStore
func syntheticStore(t *testing.T, planted bool) *c3s.MemoryStore {
	store, err := c3s.NewMemoryStore(testChroms, syntheticLinks(planted))
	require.NoError(t, err)
	return store
}

// syntheticConfig forces the peak window of the synthetic capture
func syntheticConfig(nperm, procs int) c3s.Config {
	cfg := c3s.DefaultConfig()
	cfg.Bait = fmt.Sprintf("chr11:%d", testBaitPos)
	cfg.ExtendSize = 5000
	cfg.PeakStart = testPeakStart
	cfg.PeakEnd = testPeakEnd
	cfg.NPerm = nperm
	cfg.Procs = procs
	cfg.BinSize = testBinSize
	return cfg
}

// aligned is one single-end alignment
type aligned struct {
	name  string
	chrom string
	pos   int
	mapq  byte
	flags sam.Flags
}

// writeAlignments writes single-end alignments the way the aligner reports them
func writeAlignments(t *testing.T, bamfile string, chroms []c3s.ChromSize, reads []aligned) {
	refs := make(map[string]*sam.Reference)
	var list []*sam.Reference
	for _, c := range chroms {
		ref, err := sam.NewReference(c.Name, "", "", c.Length, nil, nil)
		require.NoError(t, err)
		refs[c.Name] = ref
		list = append(list, ref)
	}
	h, err := sam.NewHeader(nil, list)
	require.NoError(t, err)

	f, err := os.Create(bamfile)
	require.NoError(t, err)
	defer f.Close()
	bw, err := bam.NewWriter(f, h, 1)
	require.NoError(t, err)
	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 36)}
	for _, r := range reads {
		mapq := r.mapq
		if mapq == 0 {
			mapq = 42
		}
		rec := &sam.Record{
			Name:    r.name,
			Ref:     refs[r.chrom],
			Pos:     r.pos,
			MapQ:    mapq,
			Cigar:   cigar,
			Flags:   r.flags,
			MatePos: -1,
		}
		require.NoError(t, bw.Write(rec))
	}
	require.NoError(t, bw.Close())
}
