/**
 * Filename: /Users/bao/code/c3s/base.go
 * Path: /Users/bao/code/c3s
 * Created Date: Tuesday, January 21st 2020, 8:07:22 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

const (
	// Version is the current version of C3S
	Version = "2.0.0"
	// DefaultBait is the HBB locus used in the original capture design
	DefaultBait = "chr11:5305934"
	// DefaultExtendSize is the radius around the bait to look for the peak
	DefaultExtendSize = 100000
	// DefaultReadLen is the sequenced read length
	DefaultReadLen = 36
	// DefaultSeed seeds the permutation stream
	DefaultSeed = 1024
	// DefaultSmoothWindow is the moving average width for peak inference
	DefaultSmoothWindow = 100
	// DefaultNPerm is the number of permutations per test
	DefaultNPerm = 10000
	// DefaultProcs is the number of processes handed to the aligner and workers
	DefaultProcs = 10
	// DefaultBinSize tiles the bait chromosome into intra-chromosomal targets
	DefaultBinSize = 1000
	// DefaultMinLinks is the minimum number of observed mates for a tile to be tested
	DefaultMinLinks = 1
	// DefaultMinQual is the MAPQ cutoff applied to aligned reads
	DefaultMinQual = 30
	// DefaultMotif is the restriction site used to split chimeric reads (DpnII)
	DefaultMotif = "GATC"
	// MinSplitLen is the shortest fragment kept after splitting
	MinSplitLen = 18
	// OUTLIERTHRESHOLD is how many deviation from MAD
	OUTLIERTHRESHOLD = 3.5
	// MappingDir holds BAM and intermediate fastq files
	MappingDir = "010ReadMapping"
	// PlottingDir holds the bait statistics plot
	PlottingDir = "020Plotting"
	// ModelDir holds the final p-value table
	ModelDir = "030Model"
)

var log = logging.MustGetLogger("c3s")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// RemoveExt returns the substring minus the extension
func RemoveExt(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// IsNewerFile checks if file a is newer than file b
func IsNewerFile(a, b string) bool {
	af, aerr := os.Stat(a)
	bf, berr := os.Stat(b)
	if os.IsNotExist(aerr) || os.IsNotExist(berr) {
		return false
	}
	am := af.ModTime()
	bm := bf.ModTime()
	return am.Sub(bm) > 0
}

// Touchdir creates the directory (and parents) if missing and returns its path
func Touchdir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "cannot create directory `%s`", dir)
	}
	return filepath.Clean(dir), nil
}

// Touchtime logs a timestamped progress line, an empty message closes a step
func Touchtime(message string) {
	if message == "" {
		message = "Done."
	}
	log.Notice(message)
}

// banner prints the separate steps
func banner(message string) {
	message = "* " + message + " *"
	log.Noticef(strings.Repeat("*", len(message)))
	log.Noticef(message)
	log.Noticef(strings.Repeat("*", len(message)))
}

// median gets the median value of an array
func median(s []float64) float64 {
	// Make a sorted copy
	numbers := make([]float64, len(s))
	copy(numbers, s)
	sort.Float64s(numbers)

	middle := len(numbers) / 2
	result := numbers[middle]
	if len(numbers)%2 == 0 {
		result = (result + numbers[middle-1]) / 2
	}
	return result
}

// OutlierCutoff implements Iglewicz and Hoaglin's robust, returns the cutoff values -
// lower bound and upper bound.
func OutlierCutoff(a []float64) (float64, float64) {
	M := median(a)
	D := make([]float64, len(a))
	for i := 0; i < len(a); i++ {
		D[i] = math.Abs(a[i] - M)
	}
	MAD := median(D)
	C := OUTLIERTHRESHOLD / .67449 * MAD
	return M - C, M + C
}

// Percentage prints a human readable message of the percentage
func Percentage(a, b int) string {
	if b == 0 {
		return fmt.Sprintf("%d of %d", a, b)
	}
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// clamp limits x to [lo, hi]
func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// overlapLen returns the number of bases shared by [a0, a1) and [b0, b1)
func overlapLen(a0, a1, b0, b1 int) int {
	lo, hi := a0, a1
	if b0 > lo {
		lo = b0
	}
	if b1 < hi {
		hi = b1
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
