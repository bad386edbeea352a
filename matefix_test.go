/*
 *  matefix_test.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/25/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s_test

import (
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/c3s"
)

var mateChroms = []c3s.ChromSize{{Name: "chr1", Length: 100000}, {Name: "chr11", Length: 100000}}

func TestFixMatePairs(t *testing.T) {
	dir := t.TempDir()
	bams := [4]string{
		filepath.Join(dir, "R1.bam"),
		filepath.Join(dir, "R2.bam"),
		filepath.Join(dir, "R1_remap.bam"),
		filepath.Join(dir, "R2_remap.bam"),
	}
	writeAlignments(t, bams[0], mateChroms, []aligned{
		{name: "a/1", chrom: "chr11", pos: 1000},
		{name: "b/1", chrom: "chr11", pos: 2000},
		{name: "d/1", chrom: "chr11", pos: 4000},
		{name: "e", chrom: "chr11", pos: 5000, flags: sam.Secondary},
	})
	writeAlignments(t, bams[1], mateChroms, []aligned{
		{name: "a/2", chrom: "chr1", pos: 500},
		{name: "c/2", chrom: "chr11", pos: 60000},
		{name: "e", chrom: "chr1", pos: 700},
	})
	writeAlignments(t, bams[2], mateChroms, []aligned{
		// Direct alignment of a wins over the remapped one
		{name: "a", chrom: "chr11", pos: 9999},
		{name: "c", chrom: "chr11", pos: 3000},
	})
	writeAlignments(t, bams[3], mateChroms, []aligned{
		{name: "b", chrom: "chr11", pos: 80000, flags: sam.Reverse},
	})

	fixer := c3s.MateFixer{Bamfiles: bams, Prefix: filepath.Join(dir, "test"), Procs: 2}
	require.NoError(t, fixer.Run())
	stats := fixer.Stats
	assert.Equal(t, filepath.Join(dir, "test.links.bam"), stats.Linkfile)
	assert.Equal(t, 3, stats.Pairs)
	assert.Equal(t, 2, stats.Rescued)
	// d has no read 2, e has no primary read 1
	assert.Equal(t, 2, stats.Orphans)
	assert.Equal(t, 6, stats.Links)

	store, err := c3s.OpenStore(stats.Linkfile, 1)
	require.NoError(t, err)
	assert.Equal(t, mateChroms, store.ChromSizes())
	links, err := store.Fetch("chr11", 0, 100000)
	require.NoError(t, err)
	require.Len(t, links, 5)

	got := map[string][2]int{}
	for _, link := range links {
		if link.Chrom == "chr11" && link.Pos < 5000 {
			got[link.Name] = [2]int{link.Pos, link.MatePos}
		}
	}
	assert.Equal(t, map[string][2]int{"a": {1000, 500}, "b": {2000, 80000}, "c": {3000, 60000}}, got)

	counts, err := store.ChromCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"chr1": 1, "chr11": 5}, counts)
}

func TestFixMatePairsMissingInput(t *testing.T) {
	dir := t.TempDir()
	bams := [4]string{filepath.Join(dir, "missing.bam")}
	_, err := c3s.FixMatePairs(bams, filepath.Join(dir, "x"), 1)
	assert.Error(t, err)
}
