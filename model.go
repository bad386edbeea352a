/*
 * Filename: /Users/bao/code/c3s/model.go
 * Path: /Users/bao/code/c3s
 * Created Date: Monday, January 27th 2020, 10:47:29 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/kshedden/gonpy"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// PvalueHeader is the header of the p-value table
const PvalueHeader = "#Category\tChrom\tStart\tEnd\tName\tObserved\tExpected\tNullMean\tNullSD\tPValue\n"

// Model runs the statistical steps for one bait on one interaction store
type Model struct {
	Source       LinkSource
	Bait         BaitLocus
	ExtendSize   int
	ReadLen      int
	SmoothWindow int
	PeakStart    int
	PeakEnd      int
	BinSize      int
	Targets      string
	permuter     *Permuter
	// Outputs
	Profile *DepthProfile
	Peak    PeakWindow
	Links   *BaitLinks
	Intra   []PValueResult
	Inter   []PValueResult
}

// NewModel prepares a Model from a validated configuration; src feeds the
// permutations
func NewModel(source LinkSource, cfg Config, src rand.Source) (*Model, error) {
	if err := cfg.ValidateModel(); err != nil {
		return nil, err
	}
	bait, err := ParseBait(cfg.Bait)
	if err != nil {
		return nil, err
	}
	permuter := NewPermuter(cfg.NPerm, cfg.Procs, src)
	permuter.MinLinks = cfg.MinLinks
	return &Model{
		Source:       source,
		Bait:         bait,
		ExtendSize:   cfg.ExtendSize,
		ReadLen:      cfg.ReadLen,
		SmoothWindow: cfg.SmoothWindow,
		PeakStart:    cfg.PeakStart,
		PeakEnd:      cfg.PeakEnd,
		BinSize:      cfg.BinSize,
		Targets:      cfg.Targets,
		permuter:     permuter,
	}, nil
}

// InferPeak computes the depth profile around the bait and the peak window,
// then collects the bait reads
func (r *Model) InferPeak() (PeakWindow, error) {
	p := Peaker{
		Source:       r.Source,
		Bait:         r.Bait,
		ExtendSize:   r.ExtendSize,
		ReadLen:      r.ReadLen,
		SmoothWindow: r.SmoothWindow,
		PeakStart:    r.PeakStart,
		PeakEnd:      r.PeakEnd,
	}
	if err := p.Run(); err != nil {
		return PeakWindow{}, err
	}
	r.Profile, r.Peak = p.Profile, p.Peak
	links, err := ExtractBaitLinks(r.Source, r.Peak)
	if err != nil {
		return PeakWindow{}, err
	}
	r.Links = links
	return r.Peak, nil
}

// regions returns the intra-chromosomal targets, BED targets win over tiles
func (r *Model) regions() (*RegionSet, error) {
	length, ok := chromLength(r.Source.ChromSizes(), r.Peak.Chrom)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownChromosome, "`%s`", r.Peak.Chrom)
	}
	if r.Targets != "" {
		return ReadTargets(r.Targets, r.Peak.Chrom, length)
	}
	return TileRegions(r.Peak.Chrom, length, r.BinSize)
}

// IntraChromLinks runs the permutation on intra-chromosomal interactions
func (r *Model) IntraChromLinks(ctx context.Context) ([]PValueResult, error) {
	if r.Links == nil {
		return nil, errors.New("peak must be inferred before permutation")
	}
	regions, err := r.regions()
	if err != nil {
		return nil, err
	}
	r.Intra, err = r.permuter.IntraChromLinks(ctx, r.Links, regions)
	return r.Intra, err
}

// InterChromLinks runs the permutation on inter-chromosomal interactions
func (r *Model) InterChromLinks(ctx context.Context) ([]PValueResult, error) {
	if r.Links == nil {
		return nil, errors.New("peak must be inferred before permutation")
	}
	var err error
	r.Inter, err = r.permuter.InterChromLinks(ctx, r.Links)
	return r.Inter, err
}

// Results merges intra- and inter-chromosomal results into one table
func (r *Model) Results() []PValueResult {
	results := make([]PValueResult, 0, len(r.Intra)+len(r.Inter))
	results = append(results, r.Intra...)
	return append(results, r.Inter...)
}

// InferBaitPval writes the merged p-value table to `<prefix>_pvalues.txt` and
// the observed/null matrix to `<prefix>_null.npy`
func (r *Model) InferBaitPval(prefix string) (string, error) {
	results := r.Results()
	if len(results) == 0 {
		return "", errors.Wrap(ErrZeroReads, "no p-values to write")
	}
	outfile := prefix + "_pvalues.txt"
	if err := WritePvalues(outfile, results); err != nil {
		return "", err
	}
	if err := writeNullMatrix(prefix+"_null.npy", results); err != nil {
		return "", err
	}
	return outfile, nil
}

// WritePvalues writes the p-value table, one row per test
func WritePvalues(outfile string, results []PValueResult) error {
	f, err := os.Create(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create `%s`", outfile)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprint(w, PvalueHeader)
	significant := 0
	for _, result := range results {
		fmt.Fprintln(w, result)
		if result.PValue < 0.05 {
			significant++
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "cannot write `%s`", outfile)
	}
	log.Noticef("P-values of %d tests (%s with p < 0.05) written to `%s`",
		len(results), Percentage(significant, len(results)), outfile)
	return nil
}

// writeNullMatrix serializes observed, expected, null mean, null sd and p-value
// per test as a float64 matrix
func writeNullMatrix(npyfile string, results []PValueResult) error {
	const ncols = 5
	data := make([]float64, 0, ncols*len(results))
	for _, result := range results {
		data = append(data, float64(result.Observed), result.Expected,
			result.NullMean, result.NullSD, result.PValue)
	}
	w, err := gonpy.NewFileWriter(npyfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create `%s`", npyfile)
	}
	w.Shape = []int{len(results), ncols}
	if err := w.WriteFloat64(data); err != nil {
		return errors.Wrapf(err, "cannot write `%s`", npyfile)
	}
	log.Noticef("Null matrix (%d x %d) written to `%s`", len(results), ncols, npyfile)
	return nil
}
