/*
 *  align.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/24/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// stderrTail is how much of the aligner's stderr is kept for error messages
const stderrTail = 2048

// AlignRequest describes one single-end mapping job
type AlignRequest struct {
	Genome  string   // bowtie2 index prefix
	Fastqs  []string // reads, possibly gzipped
	Prefix  string   // output name, relative to Wdir
	Wdir    string
	Procs   int
	MinQual int
}

// AlignResult points at the files produced by an alignment
type AlignResult struct {
	Bamfile   string // filtered alignments
	Unaligned string // reads that did not align, gzipped fastq
	Logfile   string // aligner stderr
	Total     int
	Kept      int
}

// Aligner maps reads onto the genome
type Aligner interface {
	Align(ctx context.Context, req AlignRequest) (AlignResult, error)
}

// Bowtie2 runs the bowtie2 binary in single-end mode
type Bowtie2 struct {
	Binary string
}

// args builds the bowtie2 command line
func (r *Bowtie2) args(req AlignRequest, unaligned string) []string {
	procs := req.Procs
	if procs < 1 {
		procs = 1
	}
	return []string{
		"-p", strconv.Itoa(procs),
		"-x", req.Genome,
		"-U", strings.Join(req.Fastqs, ","),
		"--un-gz", unaligned,
	}
}

// Align runs bowtie2 and filters its SAM output into a BAM
func (r *Bowtie2) Align(ctx context.Context, req AlignRequest) (AlignResult, error) {
	binary := r.Binary
	if binary == "" {
		binary = "bowtie2"
	}
	prefix := filepath.Join(req.Wdir, req.Prefix)
	res := AlignResult{
		Bamfile:   prefix + ".bam",
		Unaligned: prefix + "_un.fastq.gz",
		Logfile:   prefix + ".bowtie2.log",
	}
	if len(req.Fastqs) == 0 {
		return res, errors.Wrap(ErrAligner, "no fastq files")
	}

	logf, err := os.Create(res.Logfile)
	if err != nil {
		return res, errors.Wrapf(err, "cannot create `%s`", res.Logfile)
	}
	defer logf.Close()
	var stderr bytes.Buffer

	args := r.args(req, res.Unaligned)
	log.Noticef("Run %s %s", binary, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = io.MultiWriter(logf, &stderr)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, errors.Wrap(err, "cannot attach to aligner output")
	}
	if err := cmd.Start(); err != nil {
		return res, errors.Wrapf(ErrAligner, "cannot start `%s` (%s)", binary, err)
	}

	total, kept, ferr := filterAlignments(stdout, res.Bamfile, req.MinQual, req.Procs)
	if ferr != nil {
		// Drain so that the aligner is not blocked on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		return res, errors.Wrapf(ErrAligner, "%s: %s\n%s", binary, err, tail(stderr.Bytes(), stderrTail))
	}
	if ferr != nil {
		return res, ferr
	}
	res.Total, res.Kept = total, kept
	log.Noticef("%s: %s alignments kept (MAPQ >= %d)", req.Prefix, Percentage(kept, total), req.MinQual)
	log.Noticef("Alignments written to `%s`", res.Bamfile)
	return res, nil
}

// filterAlignments copies mapped, primary records with MAPQ >= minQual from a
// SAM stream into bamfile
func filterAlignments(in io.Reader, bamfile string, minQual, procs int) (int, int, error) {
	if procs < 1 {
		procs = 1
	}
	sr, err := sam.NewReader(in)
	if err != nil {
		return 0, 0, errors.Wrap(err, "cannot parse aligner output")
	}
	f, err := os.Create(bamfile)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "cannot create `%s`", bamfile)
	}
	defer f.Close()
	bw, err := bam.NewWriter(f, sr.Header(), procs)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "cannot write `%s`", bamfile)
	}

	total, kept := 0, 0
	for {
		rec, err := sr.Read()
		if err != nil {
			if err != io.EOF {
				bw.Close()
				return total, kept, errors.Wrap(err, "cannot parse aligner output")
			}
			break
		}
		total++
		if rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary) != 0 {
			continue
		}
		if int(rec.MapQ) < minQual {
			continue
		}
		if err := bw.Write(rec); err != nil {
			bw.Close()
			return total, kept, errors.Wrapf(err, "cannot write `%s`", bamfile)
		}
		kept++
	}
	if err := bw.Close(); err != nil {
		return total, kept, errors.Wrapf(err, "cannot finish `%s`", bamfile)
	}
	return total, kept, nil
}

// tail returns the last n bytes of b
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
