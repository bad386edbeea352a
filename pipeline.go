/*
 * Filename: /Users/bao/code/c3s/pipeline.go
 * Path: /Users/bao/code/c3s
 * Created Date: Wednesday, January 29th 2020, 8:41:10 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"context"
	"path/filepath"

	"golang.org/x/exp/rand"
)

// MappingResult holds both ends of one round of mapping
type MappingResult struct {
	R1 AlignResult
	R2 AlignResult
}

// SplitResult holds the split fragments of the reads left unmapped
type SplitResult struct {
	R1      string
	R2      string
	R1Stats SplitStats
	R2Stats SplitStats
}

// FixMateResult is the interaction store built from both rounds of mapping
type FixMateResult struct {
	Bamfiles [4]string
	Linkfile string
	Stats    MateStats
}

// ModelResult is the outcome of the statistical steps
type ModelResult struct {
	Peak       PeakWindow
	Results    []PValueResult
	Pvalues    string
	Reportfile string
}

// Pipeline runs all the steps of C3S, from fastq files to p-values
type Pipeline struct {
	Config  Config
	Aligner Aligner
}

// NewPipeline makes a Pipeline that maps with bowtie2
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		Config:  cfg,
		Aligner: &Bowtie2{Binary: cfg.Bowtie2},
	}
}

// Run starts the pipeline, stages run in a fixed order and each one gets the
// result of the previous
func (r *Pipeline) Run(ctx context.Context) (*ModelResult, error) {
	cfg := &r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mappingDir, err := Touchdir(cfg.MappingDir())
	if err != nil {
		return nil, err
	}

	banner("FIRST ROUND OF MAPPING")
	first, err := r.mapReads(ctx, mappingDir, cfg.Fastq1, cfg.Fastq2, "")
	if err != nil {
		return nil, err
	}
	Touchtime("")

	banner("Split reads by " + cfg.Motif + " sites")
	split, err := r.splitReads(mappingDir, first)
	if err != nil {
		return nil, err
	}
	Touchtime("")

	banner("SECOND ROUND OF MAPPING")
	second, err := r.mapReads(ctx, mappingDir, []string{split.R1}, []string{split.R2}, "_remap")
	if err != nil {
		return nil, err
	}
	Touchtime("")

	banner("Merge bam files and fix mate pairs")
	fixed, err := r.fixMates(mappingDir, first, second)
	if err != nil {
		return nil, err
	}
	Touchtime("")

	m := &ModelRunner{
		Config:        *cfg,
		Linkfile:      fixed.Linkfile,
		ChromSizesBam: fixed.Bamfiles[0],
	}
	if err := m.Run(ctx); err != nil {
		return nil, err
	}
	Touchtime("C3S finished successfully. Thank you for using C3S!")
	return m.Result, nil
}

// mapReads aligns read 1 and read 2 separately
func (r *Pipeline) mapReads(ctx context.Context, wdir string, fq1, fq2 []string, suffix string) (MappingResult, error) {
	var res MappingResult
	cfg := &r.Config
	req := AlignRequest{
		Genome:  cfg.Genome,
		Wdir:    wdir,
		Procs:   cfg.Procs,
		MinQual: cfg.MinQual,
	}
	var err error
	Touchtime("MAPPING READ 1 ...")
	req.Fastqs, req.Prefix = fq1, cfg.Prefix+"_R1"+suffix
	if res.R1, err = r.Aligner.Align(ctx, req); err != nil {
		return res, err
	}
	Touchtime("MAPPING READ 2 ...")
	req.Fastqs, req.Prefix = fq2, cfg.Prefix+"_R2"+suffix
	if res.R2, err = r.Aligner.Align(ctx, req); err != nil {
		return res, err
	}
	return res, nil
}

// splitReads cuts the unmapped reads of both ends at the motif
func (r *Pipeline) splitReads(wdir string, mapped MappingResult) (SplitResult, error) {
	cfg := &r.Config
	res := SplitResult{
		R1: filepath.Join(wdir, cfg.Prefix+"_R1_split.fastq.gz"),
		R2: filepath.Join(wdir, cfg.Prefix+"_R2_split.fastq.gz"),
	}
	var err error
	if res.R1Stats, err = SplitReads(mapped.R1.Unaligned, res.R1, cfg.Motif, MinSplitLen); err != nil {
		return res, err
	}
	if res.R2Stats, err = SplitReads(mapped.R2.Unaligned, res.R2, cfg.Motif, MinSplitLen); err != nil {
		return res, err
	}
	return res, nil
}

// fixMates pairs up both ends across the two rounds of mapping
func (r *Pipeline) fixMates(wdir string, first, second MappingResult) (FixMateResult, error) {
	res := FixMateResult{
		Bamfiles: [4]string{first.R1.Bamfile, first.R2.Bamfile, second.R1.Bamfile, second.R2.Bamfile},
	}
	fixer := MateFixer{
		Bamfiles: res.Bamfiles,
		Prefix:   filepath.Join(wdir, r.Config.Prefix),
		Procs:    r.Config.Procs,
	}
	if err := fixer.Run(); err != nil {
		return res, err
	}
	res.Linkfile, res.Stats = fixer.Stats.Linkfile, fixer.Stats
	return res, nil
}

// ModelRunner infers the peak and computes the p-values from an existing
// interaction store
type ModelRunner struct {
	Config        Config
	Linkfile      string
	ChromSizesBam string // optional, overrides the chromosome lengths
	// Output
	Model  *Model
	Result *ModelResult
}

// Run starts the statistical steps
func (r *ModelRunner) Run(ctx context.Context) error {
	cfg := &r.Config
	if err := cfg.ValidateModel(); err != nil {
		return err
	}
	store, err := OpenStore(r.Linkfile, cfg.Procs)
	if err != nil {
		return err
	}
	if r.ChromSizesBam != "" {
		if err := store.SetChromSizes(r.ChromSizesBam); err != nil {
			return err
		}
	}
	m, err := NewModel(store, *cfg, rand.NewSource(uint64(cfg.Seed)))
	if err != nil {
		return err
	}
	r.Model = m
	res := &ModelResult{}

	plotDir, err := Touchdir(cfg.PlotDir())
	if err != nil {
		return err
	}
	banner("Draw bait figures")
	if res.Peak, err = m.InferPeak(); err != nil {
		return err
	}
	plotter := Plotter{
		Profile: m.Profile,
		Peak:    res.Peak,
		Prefix:  filepath.Join(plotDir, cfg.Prefix),
	}
	if err := plotter.Run(); err != nil {
		return err
	}
	Touchtime("")

	modelDir, err := Touchdir(cfg.ModelDir())
	if err != nil {
		return err
	}
	banner("Permutation on intra-chromosomal interactions")
	if _, err := m.IntraChromLinks(ctx); err != nil {
		return err
	}
	banner("Permutation on inter-chromosomal interactions")
	if _, err := m.InterChromLinks(ctx); err != nil {
		return err
	}
	Touchtime("")

	banner("Calculate p values")
	prefix := filepath.Join(modelDir, cfg.Prefix)
	if res.Pvalues, err = m.InferBaitPval(prefix); err != nil {
		return err
	}
	res.Results = m.Results()
	res.Reportfile = prefix + "_report.html"
	files := []string{plotter.OutPlotfile, plotter.OutDepthfile, res.Pvalues, prefix + "_null.npy"}
	if err := NewReport(cfg.Prefix, m, cfg.NPerm, cfg.Seed, files).Write(res.Reportfile); err != nil {
		return err
	}
	Touchtime("")
	r.Result = res
	return nil
}
