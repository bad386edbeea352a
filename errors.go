/*
 *  errors.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/22/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import "github.com/pkg/errors"

// Configuration errors, returned by Config.Validate before any stage runs
var (
	// ErrConfig is the parent of all configuration errors
	ErrConfig = errors.New("invalid configuration")
	// ErrPeakBounds means only one of --peakstart/--peakend was given, or start >= end
	ErrPeakBounds = errors.New("both '--peakstart' and '--peakend' should be provided, with peakstart < peakend")
	// ErrMalformedCoordinate is a locus or range that cannot be parsed or is empty
	ErrMalformedCoordinate = errors.New("malformed coordinate")
)

// Upstream errors, always fatal
var (
	// ErrAligner is a failure of the external aligner
	ErrAligner = errors.New("aligner failed")
	// ErrMissingIndex means the interaction store has no usable .bai
	ErrMissingIndex = errors.New("missing index")
	// ErrUnknownChromosome is a chromosome name absent from the alignment header
	ErrUnknownChromosome = errors.New("unknown chromosome")
)

// Statistical errors
var (
	// ErrZeroReads means a permutation has nothing to redistribute
	ErrZeroReads = errors.New("zero reads available for permutation")
	// ErrEmptyChromosome means a chromosome has no testable length or regions
	ErrEmptyChromosome = errors.New("empty chromosome")
)

// configError tags err as a configuration error while keeping err comparable
type configError struct {
	err error
}

func (e *configError) Error() string { return ErrConfig.Error() + ": " + e.err.Error() }

// Unwrap exposes the underlying error
func (e *configError) Unwrap() error { return e.err }

// Is lets errors.Is(err, ErrConfig) hold for every configuration error
func (e *configError) Is(target error) bool { return target == ErrConfig }

// newConfigError wraps a detail message around a sentinel as a configuration error
func newConfigError(sentinel error, format string, args ...interface{}) error {
	return &configError{err: errors.Wrapf(sentinel, format, args...)}
}
