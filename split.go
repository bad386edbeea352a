/**
 * Filename: /Users/bao/code/c3s/split.go
 * Path: /Users/bao/code/c3s
 * Created Date: Friday, January 24th 2020, 9:12:05 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// Pattern is a string pattern that is either simple or a regex
type Pattern struct {
	pattern   []byte
	rePattern *regexp.Regexp
	isRegex   bool
}

// MakePattern builds a regex-aware pattern that could be passed around and counted
// Multiple patterns will be split at comma (,) and N is converted to [ACGT]
func MakePattern(s string) Pattern {
	pattern, err := CompilePattern(s)
	if err != nil {
		panic(err)
	}
	return pattern
}

// CompilePattern is MakePattern returning an error on a malformed motif
func CompilePattern(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, errors.New("empty motif")
	}
	rePatternStr := s
	isRegex := false
	if strings.Contains(s, ",") {
		rePatternStr = ""
		for i, pattern := range strings.Split(s, ",") {
			if i != 0 {
				rePatternStr += "|"
			}
			rePatternStr += fmt.Sprintf("(%s)", pattern)
		}
		isRegex = true
	}
	if strings.Contains(s, "N") {
		rePatternStr = strings.ReplaceAll(rePatternStr, "N", "[ACGT]")
		isRegex = true
	}
	rePattern, err := regexp.Compile(rePatternStr)
	if err != nil {
		return Pattern{}, errors.Wrapf(err, "invalid motif `%s`", s)
	}
	if isRegex {
		log.Noticef("Compile '%s' => '%s'", s, rePatternStr)
	}
	return Pattern{
		pattern:   []byte(s),
		rePattern: rePattern,
		isRegex:   isRegex,
	}, nil
}

// CountPattern count how many times a pattern occurs in seq
func CountPattern(seq []byte, pattern Pattern) int {
	if pattern.isRegex {
		if all := pattern.rePattern.FindAllIndex(seq, -1); all != nil {
			return len(all)
		}
		return 0
	}
	return bytes.Count(seq, pattern.pattern)
}

// FindPattern returns the [start, end) of every non-overlapping occurrence
func FindPattern(seq []byte, pattern Pattern) [][2]int {
	var hits [][2]int
	if pattern.isRegex {
		for _, loc := range pattern.rePattern.FindAllIndex(seq, -1) {
			hits = append(hits, [2]int{loc[0], loc[1]})
		}
		return hits
	}
	if len(pattern.pattern) == 0 {
		return nil
	}
	offset := 0
	for {
		i := bytes.Index(seq[offset:], pattern.pattern)
		if i < 0 {
			break
		}
		start := offset + i
		hits = append(hits, [2]int{start, start + len(pattern.pattern)})
		offset = start + len(pattern.pattern)
	}
	return hits
}

// LongestFragment cuts seq at every motif occurrence, the motif stays on both
// sides of each cut, and returns the longest fragment (first one on ties)
//
//      GATC            GATC
//   ---XXXX------------XXXX-----
//   |-----|                        fragment 0
//      |-------------------|       fragment 1
//                      |-------|   fragment 2
func LongestFragment(seq []byte, pattern Pattern) (int, int) {
	hits := FindPattern(seq, pattern)
	if len(hits) == 0 {
		return 0, len(seq)
	}
	bestStart, bestEnd := 0, hits[0][1]
	for i := 1; i <= len(hits); i++ {
		start := hits[i-1][0]
		end := len(seq)
		if i < len(hits) {
			end = hits[i][1]
		}
		if end-start > bestEnd-bestStart {
			bestStart, bestEnd = start, end
		}
	}
	return bestStart, bestEnd
}

// SplitStats summarizes a split run
type SplitStats struct {
	Total   int
	Cut     int
	Kept    int
	Dropped int
}

// String outputs the summary line
func (r SplitStats) String() string {
	return fmt.Sprintf("%d reads, %s with the motif, %s kept",
		r.Total, Percentage(r.Cut, r.Total), Percentage(r.Kept, r.Total))
}

// Splitter cuts unmapped reads at the ligation motif so the fragment can be
// remapped
type Splitter struct {
	Infile string
	Motif  string
	MinLen int
	// Output file
	OutFastqfile string
	Stats        SplitStats
}

// Run starts the splitting
func (r *Splitter) Run() error {
	if r.OutFastqfile == "" {
		r.OutFastqfile = RemoveExt(RemoveExt(r.Infile)) + ".split.fastq"
	}
	minLen := r.MinLen
	if minLen <= 0 {
		minLen = MinSplitLen
	}
	stats, err := SplitReads(r.Infile, r.OutFastqfile, r.Motif, minLen)
	if err != nil {
		return err
	}
	r.Stats = stats
	return nil
}

// SplitReads writes the longest motif-delimited fragment of each read in infile
// to outfile, fragments shorter than minLen are dropped
func SplitReads(infile, outfile, motif string, minLen int) (SplitStats, error) {
	var stats SplitStats
	if _, err := os.Stat(infile); err != nil {
		return stats, errors.Wrapf(err, "cannot find `%s`", infile)
	}
	reader, err := fastx.NewDefaultReader(infile)
	if err != nil {
		return stats, errors.Wrapf(err, "cannot read `%s`", infile)
	}
	seq.ValidateSeq = false

	pattern, err := CompilePattern(motif)
	if err != nil {
		return stats, err
	}
	w, err := xopen.Wopen(outfile)
	if err != nil {
		return stats, errors.Wrapf(err, "cannot create `%s`", outfile)
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			return stats, errors.Wrapf(err, "cannot parse `%s`", infile)
		}
		stats.Total++
		s := rec.Seq.Seq
		if CountPattern(s, pattern) > 0 {
			stats.Cut++
		}
		start, end := LongestFragment(s, pattern)
		if end-start < minLen {
			stats.Dropped++
			continue
		}
		qual := rec.Seq.Qual
		if len(qual) != len(s) {
			qual = bytes.Repeat([]byte{'I'}, len(s))
		}
		fmt.Fprintf(w, "@%s\n%s\n+\n%s\n", rec.Name, s[start:end], qual[start:end])
		stats.Kept++
	}
	if err := w.Close(); err != nil {
		return stats, errors.Wrapf(err, "cannot write `%s`", outfile)
	}
	log.Noticef("Split %s: %s", infile, stats)
	log.Noticef("Fragments written to `%s`", outfile)
	return stats, nil
}
