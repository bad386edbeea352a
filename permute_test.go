/*
 *  permute_test.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/26/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s_test

import (
	"context"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/c3s"
	"golang.org/x/exp/rand"
)

// runModel runs both permutations on the synthetic capture
func runModel(t *testing.T, store c3s.LinkSource, nperm, procs int, seed uint64) *c3s.Model {
	cfg := syntheticConfig(nperm, procs)
	cfg.Seed = int64(seed)
	return runModelWith(t, store, cfg)
}

// runModelWith runs both permutations with the stream seeded from cfg
func runModelWith(t *testing.T, store c3s.LinkSource, cfg c3s.Config) *c3s.Model {
	m, err := c3s.NewModel(store, cfg, rand.NewSource(uint64(cfg.Seed)))
	require.NoError(t, err)
	_, err = m.InferPeak()
	require.NoError(t, err)
	_, err = m.IntraChromLinks(context.Background())
	require.NoError(t, err)
	_, err = m.InterChromLinks(context.Background())
	require.NoError(t, err)
	return m
}

func findRegion(results []c3s.PValueResult, chrom string, start int) (c3s.PValueResult, bool) {
	for _, r := range results {
		if r.Region.Chrom == chrom && r.Region.Start == start {
			return r, true
		}
	}
	return c3s.PValueResult{}, false
}

func TestBaitLinks(t *testing.T) {
	m := runModel(t, syntheticStore(t, true), 10, 2, 1024)
	assert.Equal(t, testChromLen/testBinSize+plantedExtra, len(m.Links.Intra))
	assert.Equal(t, 30, len(m.Links.Inter["chr1"]))
	assert.Equal(t, 10, len(m.Links.Inter["chr2"]))
	assert.Equal(t, 0, m.Links.NSelf)
	assert.Equal(t, len(m.Links.Intra)+40, m.Links.NBait())
}

func TestPlantedSignal(t *testing.T) {
	m := runModel(t, syntheticStore(t, true), 1000, 4, 1024)

	planted, ok := findRegion(m.Intra, "chr11", plantedStart)
	require.True(t, ok)
	assert.Equal(t, 1+plantedExtra, planted.Observed)
	assert.Less(t, planted.PValue, 0.01)
	assert.InDelta(t, 1.0/1001, planted.PValue, 1e-12)

	for _, start := range []int{0, 1000000, 3000000, 5304000, 5306000} {
		r, ok := findRegion(m.Intra, "chr11", start)
		require.True(t, ok, "bin at %d", start)
		assert.Equal(t, 1, r.Observed)
		assert.Greater(t, r.PValue, 0.3, "bin at %d", start)
	}
}

func TestPlantedSignalDefaultBait(t *testing.T) {
	// The default bait sits inside the planted region, its mates stay outside
	// the peak
	store, err := c3s.NewMemoryStore(testChroms, captureLinks(5305834, 5306034, true))
	require.NoError(t, err)
	for _, forced := range []bool{true, false} {
		cfg := syntheticConfig(1000, 4)
		cfg.Bait = c3s.DefaultBait
		cfg.PeakStart, cfg.PeakEnd = -1, -1
		if forced {
			cfg.PeakStart, cfg.PeakEnd = 5305834, 5306034
		}
		m := runModelWith(t, store, cfg)
		assert.True(t, m.Peak.Start <= 5305934 && 5305934 < m.Peak.End, "%s", m.Peak)
		assert.Greater(t, m.Peak.Start, plantedStart+600, "%s", m.Peak)

		planted, ok := findRegion(m.Intra, "chr11", plantedStart)
		require.True(t, ok)
		assert.Equal(t, 1+plantedExtra, planted.Observed, "forced=%v", forced)
		assert.InDelta(t, 1.0/1001, planted.PValue, 1e-12, "forced=%v", forced)

		for _, start := range []int{0, 1000000, 2000000, 3000000} {
			r, ok := findRegion(m.Intra, "chr11", start)
			require.True(t, ok, "bin at %d", start)
			assert.Equal(t, 1, r.Observed)
			assert.Greater(t, r.PValue, 0.3, "bin at %d", start)
		}
	}
}

func TestPValueBounds(t *testing.T) {
	nperm := 200
	m := runModel(t, syntheticStore(t, true), nperm, 3, 7)
	results := m.Results()
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.PValue, 1/float64(nperm+1), r.String())
		assert.LessOrEqual(t, r.PValue, 1.0, r.String())
		assert.GreaterOrEqual(t, r.NullSD, 0.0, r.String())
	}

	categories := map[string]int{}
	for _, r := range results {
		categories[r.Category]++
	}
	assert.Equal(t, testChromLen/testBinSize, categories[c3s.IntraCategory])
	assert.Equal(t, 2, categories[c3s.InterCategory])
	assert.Equal(t, 1, categories[c3s.InterTotalCategory])
	assert.Equal(t, c3s.InterTotalCategory, results[len(results)-1].Category)
}

func TestDeterministicAcrossProcs(t *testing.T) {
	store := syntheticStore(t, true)
	a := runModel(t, store, 100, 1, 1024).Results()
	b := runModel(t, store, 100, 8, 1024).Results()
	c := runModel(t, store, 100, 3, 1024).Results()
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)

	d := runModel(t, store, 100, 1, 2048).Results()
	assert.NotEqual(t, a, d)
}

func TestRankingStableWithMorePermutations(t *testing.T) {
	store := syntheticStore(t, true)
	top := func(nperm int) c3s.GenomicInterval {
		results := runModel(t, store, nperm, 4, 1024).Intra
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].PValue < results[j].PValue
		})
		return results[0].Region
	}
	first := top(100)
	assert.Equal(t, plantedStart, first.Start)
	assert.Equal(t, first, top(1000))
}

func TestInterChromLinks(t *testing.T) {
	m := runModel(t, syntheticStore(t, true), 500, 2, 1024)
	require.Len(t, m.Inter, 3)
	chr1, chr2, total := m.Inter[0], m.Inter[1], m.Inter[2]
	assert.Equal(t, "chr1", chr1.Name)
	assert.Equal(t, "chr2", chr2.Name)
	assert.Equal(t, 30, chr1.Observed)
	assert.Equal(t, 10, chr2.Observed)
	// chr1 holds 230 of the 440 reads anchored outside of chr11
	assert.InDelta(t, 40*230.0/440, chr1.Expected, 1e-9)
	assert.Equal(t, 40, total.Observed)
	assert.Equal(t, c3s.GenomicInterval{Chrom: "chr11", Start: testPeakStart, End: testPeakEnd}, total.Region)
}

func TestIntraZeroReads(t *testing.T) {
	var links []c3s.Interaction
	links = addPair(links, "a", "chr11", testPeakStart+10, "chr1", 100)
	store, err := c3s.NewMemoryStore(testChroms, links)
	require.NoError(t, err)
	m, err := c3s.NewModel(store, syntheticConfig(10, 1), rand.NewSource(1))
	require.NoError(t, err)
	_, err = m.InferPeak()
	require.NoError(t, err)
	_, err = m.IntraChromLinks(context.Background())
	assert.True(t, errors.Is(err, c3s.ErrZeroReads), "%v", err)
	_, err = m.InterChromLinks(context.Background())
	assert.NoError(t, err)
}

func TestInterZeroReads(t *testing.T) {
	var links []c3s.Interaction
	links = addPair(links, "a", "chr11", testPeakStart+10, "chr11", 100)
	store, err := c3s.NewMemoryStore(testChroms, links)
	require.NoError(t, err)
	m, err := c3s.NewModel(store, syntheticConfig(10, 1), rand.NewSource(1))
	require.NoError(t, err)
	_, err = m.InferPeak()
	require.NoError(t, err)
	_, err = m.InterChromLinks(context.Background())
	assert.True(t, errors.Is(err, c3s.ErrZeroReads), "%v", err)
}

func TestEmptyChromosome(t *testing.T) {
	chroms := []c3s.ChromSize{{Name: "chrM", Length: 100}, {Name: "chr1", Length: 1000}}
	var links []c3s.Interaction
	links = addPair(links, "a", "chrM", 10, "chrM", 50)
	store, err := c3s.NewMemoryStore(chroms, links)
	require.NoError(t, err)
	cfg := c3s.DefaultConfig()
	cfg.Bait = "chrM:50"
	cfg.PeakStart, cfg.PeakEnd = 0, 100
	m, err := c3s.NewModel(store, cfg, rand.NewSource(1))
	require.NoError(t, err)
	_, err = m.InferPeak()
	require.NoError(t, err)
	_, err = m.IntraChromLinks(context.Background())
	assert.True(t, errors.Is(err, c3s.ErrEmptyChromosome), "%v", err)
}

func TestPermutationCancelled(t *testing.T) {
	m, err := c3s.NewModel(syntheticStore(t, false), syntheticConfig(10, 2), rand.NewSource(1))
	require.NoError(t, err)
	_, err = m.InferPeak()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.IntraChromLinks(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)
}
