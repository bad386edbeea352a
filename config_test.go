/*
 *  config_test.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/22/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s_test

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tanghaibao/c3s"
)

func validConfig() c3s.Config {
	cfg := c3s.DefaultConfig()
	cfg.Genome = "hg38"
	cfg.Fastq1 = []string{"R1.fastq.gz"}
	cfg.Fastq2 = []string{"R2.fastq.gz"}
	cfg.Prefix = "HBB"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := c3s.DefaultConfig()
	assert.Equal(t, "chr11:5305934", cfg.Bait)
	assert.Equal(t, 100000, cfg.ExtendSize)
	assert.Equal(t, 36, cfg.ReadLen)
	assert.Equal(t, int64(1024), cfg.Seed)
	assert.Equal(t, 100, cfg.SmoothWindow)
	assert.Equal(t, 10000, cfg.NPerm)
	assert.Equal(t, 10, cfg.Procs)
	assert.False(t, cfg.HasPeak())
	assert.NoError(t, cfg.ValidateModel())
}

func TestValidateConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(".", "010ReadMapping"), cfg.MappingDir())
	assert.Equal(t, filepath.Join(".", "020Plotting"), cfg.PlotDir())
	assert.Equal(t, filepath.Join(".", "030Model"), cfg.ModelDir())
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*c3s.Config)
		sentinel error
	}{
		{"missing genome", func(c *c3s.Config) { c.Genome = "" }, nil},
		{"missing fastq", func(c *c3s.Config) { c.Fastq2 = nil }, nil},
		{"prefix with separator", func(c *c3s.Config) { c.Prefix = "a/b" }, nil},
		{"only peakstart", func(c *c3s.Config) { c.PeakStart = 5305834 }, c3s.ErrPeakBounds},
		{"only peakend", func(c *c3s.Config) { c.PeakEnd = 5306034 }, c3s.ErrPeakBounds},
		{"inverted peak", func(c *c3s.Config) { c.PeakStart, c.PeakEnd = 5306034, 5305834 }, c3s.ErrPeakBounds},
		{"malformed bait", func(c *c3s.Config) { c.Bait = "chr11" }, c3s.ErrMalformedCoordinate},
		{"zero nperm", func(c *c3s.Config) { c.NPerm = 0 }, nil},
		{"zero window", func(c *c3s.Config) { c.SmoothWindow = 0 }, nil},
		{"negative min links", func(c *c3s.Config) { c.MinLinks = -1 }, nil},
		{"bad min qual", func(c *c3s.Config) { c.MinQual = 300 }, nil},
		{"empty motif", func(c *c3s.Config) { c.Motif = "" }, nil},
		{"malformed motif", func(c *c3s.Config) { c.Motif = "GA(TC" }, nil},
	}
	for _, tc := range tests {
		cfg := validConfig()
		tc.modify(&cfg)
		err := cfg.Validate()
		if !assert.Error(t, err, tc.name) {
			continue
		}
		assert.True(t, errors.Is(err, c3s.ErrConfig), tc.name)
		if tc.sentinel != nil {
			assert.True(t, errors.Is(err, tc.sentinel), "%s: %v", tc.name, err)
		}
	}
}

func TestForcedPeakConfig(t *testing.T) {
	cfg := validConfig()
	cfg.PeakStart, cfg.PeakEnd = 5305834, 5306034
	assert.True(t, cfg.HasPeak())
	assert.NoError(t, cfg.Validate())
}
