/*
 *  align_test.go
 *  c3s
 *
 *  Created by Haibao Tang on 01/24/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package c3s_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanghaibao/c3s"
)

const fakeSam = `@HD	VN:1.0	SO:unsorted
@SQ	SN:chr11	LN:100000
r1	0	chr11	101	42	4M	*	0	0	ACGT	IIII
r2	16	chr11	201	10	4M	*	0	0	ACGT	IIII
r3	4	*	0	0	*	*	0	0	ACGT	IIII
r4	256	chr11	301	42	4M	*	0	0	ACGT	IIII
r5	0	chr11	401	30	4M	*	0	0	ACGT	IIII
`

// fakeBowtie2 writes a shell script standing in for the aligner
func fakeBowtie2(t *testing.T, body string) string {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported")
	}
	dir := t.TempDir()
	samfile := filepath.Join(dir, "out.sam")
	require.NoError(t, os.WriteFile(samfile, []byte(fakeSam), 0644))
	script := filepath.Join(dir, "bowtie2")
	content := "#!/bin/sh\nSAM=" + samfile + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script
}

func TestBowtie2Align(t *testing.T) {
	binary := fakeBowtie2(t, `echo "5 reads; of these:" >&2
cat $SAM`)
	wdir := t.TempDir()
	aligner := &c3s.Bowtie2{Binary: binary}
	res, err := aligner.Align(context.Background(), c3s.AlignRequest{
		Genome:  "hg38",
		Fastqs:  []string{"R1.fastq.gz"},
		Prefix:  "HBB_R1",
		Wdir:    wdir,
		Procs:   2,
		MinQual: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wdir, "HBB_R1.bam"), res.Bamfile)
	assert.Equal(t, filepath.Join(wdir, "HBB_R1_un.fastq.gz"), res.Unaligned)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Kept)

	stderr, err := os.ReadFile(res.Logfile)
	require.NoError(t, err)
	assert.Contains(t, string(stderr), "5 reads")

	f, err := os.Open(res.Bamfile)
	require.NoError(t, err)
	defer f.Close()
	br, err := bam.NewReader(f, 1)
	require.NoError(t, err)
	defer br.Close()
	var names []string
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"r1", "r5"}, names)
}

func TestBowtie2Failure(t *testing.T) {
	binary := fakeBowtie2(t, `echo "Could not locate a Bowtie index" >&2
exit 1`)
	aligner := &c3s.Bowtie2{Binary: binary}
	_, err := aligner.Align(context.Background(), c3s.AlignRequest{
		Genome: "missing",
		Fastqs: []string{"R1.fastq.gz"},
		Prefix: "HBB_R1",
		Wdir:   t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, c3s.ErrAligner))
	assert.Contains(t, err.Error(), "Could not locate a Bowtie index")
}

func TestBowtie2MissingBinary(t *testing.T) {
	aligner := &c3s.Bowtie2{Binary: filepath.Join(t.TempDir(), "nope")}
	_, err := aligner.Align(context.Background(), c3s.AlignRequest{
		Genome: "hg38",
		Fastqs: []string{"R1.fastq.gz"},
		Prefix: "HBB_R1",
		Wdir:   t.TempDir(),
	})
	assert.True(t, errors.Is(err, c3s.ErrAligner))
}
