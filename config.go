/*
 *  config.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/22/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Config holds every knob of a C3S run
type Config struct {
	// Required
	Genome string   // bowtie2 index prefix
	Fastq1 []string // read 1 fastq files
	Fastq2 []string // read 2 fastq files
	Prefix string   // prefix of result files

	// Bait and peak
	Bait         string
	ExtendSize   int
	ReadLen      int
	SmoothWindow int
	PeakStart    int // -1 when unset
	PeakEnd      int // -1 when unset

	// Permutation
	Seed     int64
	NPerm    int
	BinSize  int
	MinLinks int
	Targets  string // optional BED of candidate target regions

	// Mapping
	Motif   string
	MinQual int
	Bowtie2 string

	Wdir  string
	Procs int
}

// DefaultConfig returns a Config populated with the documented defaults
func DefaultConfig() Config {
	return Config{
		Bait:         DefaultBait,
		ExtendSize:   DefaultExtendSize,
		ReadLen:      DefaultReadLen,
		SmoothWindow: DefaultSmoothWindow,
		PeakStart:    -1,
		PeakEnd:      -1,
		Seed:         DefaultSeed,
		NPerm:        DefaultNPerm,
		BinSize:      DefaultBinSize,
		MinLinks:     DefaultMinLinks,
		Motif:        DefaultMotif,
		MinQual:      DefaultMinQual,
		Bowtie2:      "bowtie2",
		Wdir:         ".",
		Procs:        DefaultProcs,
	}
}

// HasPeak tells whether the user forced the peak bounds
func (r *Config) HasPeak() bool {
	return r.PeakStart >= 0 && r.PeakEnd >= 0
}

// ValidateModel checks the options needed by the statistical steps
func (r *Config) ValidateModel() error {
	if _, err := ParseBait(r.Bait); err != nil {
		return &configError{err: err}
	}
	if (r.PeakStart >= 0) != (r.PeakEnd >= 0) {
		return newConfigError(ErrPeakBounds, "got peakstart=%d, peakend=%d", r.PeakStart, r.PeakEnd)
	}
	if r.HasPeak() && r.PeakStart >= r.PeakEnd {
		return newConfigError(ErrPeakBounds, "got peakstart=%d >= peakend=%d", r.PeakStart, r.PeakEnd)
	}
	positive := []struct {
		name  string
		value int
	}{
		{"extendsize", r.ExtendSize},
		{"readlen", r.ReadLen},
		{"smooth-window", r.SmoothWindow},
		{"nperm", r.NPerm},
		{"binsize", r.BinSize},
		{"proc", r.Procs},
	}
	for _, p := range positive {
		if p.value < 1 {
			return &configError{err: errors.Errorf("--%s must be positive, got %d", p.name, p.value)}
		}
	}
	if r.MinLinks < 0 {
		return &configError{err: errors.Errorf("--min-links must not be negative, got %d", r.MinLinks)}
	}
	return nil
}

// Validate checks the full pipeline configuration
func (r *Config) Validate() error {
	if r.Genome == "" {
		return &configError{err: errors.New("--genome is required")}
	}
	if len(r.Fastq1) == 0 || len(r.Fastq2) == 0 {
		return &configError{err: errors.New("both -1 and -2 fastq files are required")}
	}
	if r.Prefix == "" {
		return &configError{err: errors.New("--prefix is required")}
	}
	if strings.ContainsRune(r.Prefix, filepath.Separator) {
		return &configError{err: errors.Errorf("--prefix `%s` must not contain a path separator", r.Prefix)}
	}
	if _, err := CompilePattern(r.Motif); err != nil {
		return &configError{err: errors.Wrap(err, "--motif")}
	}
	if r.MinQual < 0 || r.MinQual > 255 {
		return &configError{err: errors.Errorf("--min-qual must be within [0, 255], got %d", r.MinQual)}
	}
	return r.ValidateModel()
}

// MappingDir is where the BAM and intermediate fastq files go
func (r *Config) MappingDir() string {
	return filepath.Join(r.Wdir, MappingDir)
}

// PlotDir is where the bait statistics go
func (r *Config) PlotDir() string {
	return filepath.Join(r.Wdir, PlottingDir)
}

// ModelDir is where the p-value table goes
func (r *Config) ModelDir() string {
	return filepath.Join(r.Wdir, ModelDir)
}
