/*
 * Filename: /Users/bao/code/c3s/report.go
 * Path: /Users/bao/code/c3s
 * Created Date: Tuesday, January 28th 2020, 9:03:12 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"html/template"
	"os"
	"sort"
	"time"

	"github.com/gobuffalo/packr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// ReportAlpha marks a test as significant in the report
	ReportAlpha = 0.05
	// ReportTop is the number of tests listed in the report
	ReportTop = 50
)

// Report is the run summary rendered to html
type Report struct {
	RunID        string
	Version      string
	Created      string
	Prefix       string
	Bait         string
	Peak         string
	NIntra       int
	NInter       int
	NSelf        int
	NPerm        int
	Seed         int64
	NTests       int
	NSignificant int
	Alpha        float64
	Files        []string
	Top          []PValueResult
}

// NewReport summarizes a finished model, tests are listed by increasing p-value
func NewReport(prefix string, m *Model, nperm int, seed int64, files []string) *Report {
	results := m.Results()
	r := &Report{
		RunID:   uuid.New().String(),
		Version: Version,
		Created: time.Now().Format(time.RFC1123),
		Prefix:  prefix,
		Bait:    m.Bait.String(),
		Peak:    m.Peak.String(),
		NPerm:   nperm,
		Seed:    seed,
		NTests:  len(results),
		Alpha:   ReportAlpha,
		Files:   files,
	}
	if m.Links != nil {
		r.NIntra, r.NInter, r.NSelf = len(m.Links.Intra), m.Links.NInter(), m.Links.NSelf
	}
	for _, result := range results {
		if result.PValue < ReportAlpha {
			r.NSignificant++
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PValue < results[j].PValue
	})
	if len(results) > ReportTop {
		results = results[:ReportTop]
	}
	r.Top = results
	return r
}

// Write renders the report with the embedded template
func (r *Report) Write(outfile string) error {
	box := packr.NewBox("./templates")
	s, err := box.FindString("report.html")
	if err != nil {
		return errors.Wrap(err, "cannot find report template")
	}
	tmpl, err := template.New("report").Parse(s)
	if err != nil {
		return errors.Wrap(err, "cannot parse report template")
	}

	f, err := os.Create(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create `%s`", outfile)
	}
	if err := tmpl.Execute(f, r); err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot render `%s`", outfile)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "cannot close `%s`", outfile)
	}
	log.Noticef("Report (run %s) written to `%s`", r.RunID, outfile)
	return nil
}
