/*
 * Filename: /Users/bao/code/c3s/store.go
 * Path: /Users/bao/code/c3s
 * Created Date: Thursday, January 23rd 2020, 10:02:13 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package c3s

import (
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// BamStore is a coordinate-sorted, indexed BAM of interactions. Each record is
// an anchor read whose MateRef/MatePos point at the other end of the pair.
type BamStore struct {
	Bamfile string
	Procs   int
	chroms  []ChromSize
	refs    map[string]*sam.Reference
	index   *bam.Index
	counts  map[string]int
}

// OpenStore opens the bamfile and its `.bai` index
func OpenStore(bamfile string, procs int) (*BamStore, error) {
	if procs < 1 {
		procs = 1
	}
	fh, err := os.Open(bamfile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open bamfile `%s`", bamfile)
	}
	defer fh.Close()

	log.Noticef("Parse bamfile `%s`", bamfile)
	br, err := bam.NewReader(fh, procs)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read bamfile `%s`", bamfile)
	}
	defer br.Close()

	r := &BamStore{
		Bamfile: bamfile,
		Procs:   procs,
		refs:    make(map[string]*sam.Reference),
	}
	for _, ref := range br.Header().Refs() {
		r.chroms = append(r.chroms, ChromSize{Name: ref.Name(), Length: ref.Len()})
		r.refs[ref.Name()] = ref
	}

	idxfile := bamfile + ".bai"
	fi, err := os.Open(idxfile)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingIndex, "cannot open `%s` (%s)", idxfile, err)
	}
	defer fi.Close()
	if IsNewerFile(bamfile, idxfile) {
		log.Warningf("Index `%s` is older than `%s`", idxfile, bamfile)
	}
	r.index, err = bam.ReadIndex(fi)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingIndex, "cannot read `%s` (%s)", idxfile, err)
	}
	log.Noticef("Store contains %d chromosomes", len(r.chroms))
	return r, nil
}

// ChromSizes implements LinkSource
func (r *BamStore) ChromSizes() []ChromSize {
	return r.chroms
}

// SetChromSizes replaces the chromosome lengths with those in the header of
// another alignment file, typically the first-round read 1 BAM
func (r *BamStore) SetChromSizes(bamfile string) error {
	fh, err := os.Open(bamfile)
	if err != nil {
		return errors.Wrapf(err, "cannot open bamfile `%s`", bamfile)
	}
	defer fh.Close()
	br, err := bam.NewReader(fh, 1)
	if err != nil {
		return errors.Wrapf(err, "cannot read bamfile `%s`", bamfile)
	}
	defer br.Close()

	sizes := make(map[string]int)
	for _, ref := range br.Header().Refs() {
		sizes[ref.Name()] = ref.Len()
	}
	updated := 0
	for i, c := range r.chroms {
		if length, ok := sizes[c.Name]; ok {
			r.chroms[i].Length = length
			updated++
		}
	}
	log.Noticef("Chromosome sizes from `%s`: %s updated", bamfile, Percentage(updated, len(r.chroms)))
	return nil
}

// Fetch implements LinkSource
func (r *BamStore) Fetch(chrom string, start, end int) ([]Interaction, error) {
	end, err := checkRange(r.chroms, chrom, start, end)
	if err != nil {
		return nil, err
	}
	ref, ok := r.refs[chrom]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownChromosome, "`%s`", chrom)
	}
	if end > ref.Len() {
		end = ref.Len()
	}
	if start >= end {
		return nil, nil
	}
	chunks, err := r.index.Chunks(ref, start, end)
	if err == index.ErrInvalid || err == index.ErrNoReference || (err == nil && len(chunks) == 0) {
		// No reads on this reference
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot query %s:%d-%d", chrom, start, end)
	}

	fh, err := os.Open(r.Bamfile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open bamfile `%s`", r.Bamfile)
	}
	defer fh.Close()
	br, err := bam.NewReader(fh, r.Procs)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read bamfile `%s`", r.Bamfile)
	}
	defer br.Close()
	it, err := bam.NewIterator(br, chunks)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot seek %s:%d-%d", chrom, start, end)
	}
	defer it.Close()

	var links []Interaction
	for it.Next() {
		rec := it.Record()
		if rec.Ref == nil || rec.Ref.Name() != chrom || rec.Pos < start || rec.Pos >= end {
			continue
		}
		if link, ok := recordToInteraction(rec); ok {
			links = append(links, link)
		}
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrapf(err, "cannot iterate %s:%d-%d", chrom, start, end)
	}
	return links, nil
}

// ChromCounts implements LinkSource, the full scan happens once
func (r *BamStore) ChromCounts() (map[string]int, error) {
	if r.counts != nil {
		return r.counts, nil
	}
	fh, err := os.Open(r.Bamfile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open bamfile `%s`", r.Bamfile)
	}
	defer fh.Close()
	br, err := bam.NewReader(fh, r.Procs)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read bamfile `%s`", r.Bamfile)
	}
	defer br.Close()

	counts := make(map[string]int, len(r.chroms))
	for _, c := range r.chroms {
		counts[c.Name] = 0
	}
	total := 0
	for {
		rec, err := br.Read()
		if err != nil {
			if err != io.EOF {
				return nil, errors.Wrapf(err, "cannot read bamfile `%s`", r.Bamfile)
			}
			break
		}
		if _, ok := recordToInteraction(rec); !ok {
			continue
		}
		counts[rec.Ref.Name()]++
		total++
	}
	log.Noticef("Counted %d interactions on %d chromosomes", total, len(r.chroms))
	r.counts = counts
	return counts, nil
}

// recordToInteraction converts a BAM record, records without a placed mate
// are skipped
func recordToInteraction(rec *sam.Record) (Interaction, bool) {
	if rec.Ref == nil || rec.MateRef == nil || rec.Pos < 0 || rec.MatePos < 0 {
		return Interaction{}, false
	}
	if rec.Flags&(sam.Unmapped|sam.MateUnmapped) != 0 {
		return Interaction{}, false
	}
	length := rec.Len()
	if length <= 0 {
		length = 1
	}
	return Interaction{
		Name:        rec.Name,
		Chrom:       rec.Ref.Name(),
		Pos:         rec.Pos,
		Len:         length,
		Reverse:     rec.Flags&sam.Reverse != 0,
		MateChrom:   rec.MateRef.Name(),
		MatePos:     rec.MatePos,
		MateReverse: rec.Flags&sam.MateReverse != 0,
	}, true
}

// interactionToRecord builds the BAM record of an interaction
func interactionToRecord(link Interaction, refs map[string]*sam.Reference, i int) (*sam.Record, error) {
	ref, mref := refs[link.Chrom], refs[link.MateChrom]
	if ref == nil || mref == nil {
		return nil, errors.Wrapf(ErrUnknownChromosome, "%s or %s", link.Chrom, link.MateChrom)
	}
	name := link.Name
	if name == "" {
		name = fmt.Sprintf("link%d", i)
	}
	length := link.Len
	if length <= 0 {
		length = 1
	}
	tlen := 0
	if link.IsIntra() {
		tlen = link.MatePos - link.Pos
	}
	if len(name) > 254 || link.Pos < 0 || link.MatePos < 0 {
		return nil, errors.Errorf("cannot encode `%s` at %s:%d", name, link.Chrom, link.Pos)
	}
	// Sequence and qualities are not stored, only the placement
	rec := &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     link.Pos,
		MapQ:    255,
		Cigar:   []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, length)},
		Flags:   sam.Paired,
		MateRef: mref,
		MatePos: link.MatePos,
		TempLen: tlen,
	}
	if link.Reverse {
		rec.Flags |= sam.Reverse
	}
	if link.MateReverse {
		rec.Flags |= sam.MateReverse
	}
	return rec, nil
}

// WriteLinks writes interactions as a coordinate-sorted BAM and builds the
// `.bai` index next to it
func WriteLinks(bamfile string, chroms []ChromSize, links []Interaction, procs int) error {
	if procs < 1 {
		procs = 1
	}
	refs := make([]*sam.Reference, 0, len(chroms))
	nameToRef := make(map[string]*sam.Reference, len(chroms))
	for _, c := range chroms {
		ref, err := sam.NewReference(c.Name, "", "", c.Length, nil, nil)
		if err != nil {
			return errors.Wrapf(err, "invalid reference `%s`", c.Name)
		}
		refs = append(refs, ref)
		nameToRef[c.Name] = ref
	}
	h, err := sam.NewHeader(nil, refs)
	if err != nil {
		return errors.Wrap(err, "cannot build header")
	}
	h.SortOrder = sam.Coordinate

	sorted := append([]Interaction(nil), links...)
	sortInteractions(sorted, chroms)

	f, err := os.Create(bamfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create `%s`", bamfile)
	}
	bw, err := bam.NewWriter(f, h, procs)
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot write `%s`", bamfile)
	}
	for i, link := range sorted {
		rec, err := interactionToRecord(link, nameToRef, i)
		if err != nil {
			bw.Close()
			f.Close()
			return err
		}
		if err := bw.Write(rec); err != nil {
			bw.Close()
			f.Close()
			return errors.Wrapf(err, "cannot write `%s`", bamfile)
		}
	}
	if err := bw.Close(); err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot finish `%s`", bamfile)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "cannot close `%s`", bamfile)
	}
	log.Noticef("%d interactions written to `%s`", len(sorted), bamfile)
	return IndexLinks(bamfile)
}

// IndexLinks builds `<bamfile>.bai` for a coordinate-sorted BAM
func IndexLinks(bamfile string) (err error) {
	fh, err := os.Open(bamfile)
	if err != nil {
		return errors.Wrapf(err, "cannot open bamfile `%s`", bamfile)
	}
	defer fh.Close()
	br, err := bam.NewReader(fh, 1)
	if err != nil {
		return errors.Wrapf(err, "cannot read bamfile `%s`", bamfile)
	}
	defer br.Close()

	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("cannot index `%s`: %v", bamfile, p)
		}
	}()
	var idx bam.Index
	cover := tileCover{refID: -1}
	for {
		rec, err := br.Read()
		if err != nil {
			if err != io.EOF {
				return errors.Wrapf(err, "cannot read bamfile `%s`", bamfile)
			}
			break
		}
		if err := idx.Add(cover.view(rec), br.LastChunk()); err != nil {
			return errors.Wrapf(err, "cannot index `%s`", bamfile)
		}
	}

	idxfile := bamfile + ".bai"
	fi, err := os.Create(idxfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create `%s`", idxfile)
	}
	if err := bam.WriteIndex(fi, &idx); err != nil {
		fi.Close()
		return errors.Wrapf(err, "cannot write `%s`", idxfile)
	}
	if err := fi.Close(); err != nil {
		return errors.Wrapf(err, "cannot close `%s`", idxfile)
	}
	log.Noticef("Index written to `%s`", idxfile)
	return nil
}

// indexTileWidth is the width of a tile of the BAI linear index
const indexTileWidth = 1 << 14

// tileCover keeps the number of linear index tiles already holding an offset
// on the current reference
type tileCover struct {
	refID int
	tiles int
}

// view returns a copy of rec whose extent covers only what the index needs: up
// to the end of its first tile when that tile is new, nothing otherwise. Fetch
// selects records by their start so the true alignment end is not needed.
func (r *tileCover) view(rec *sam.Record) *sam.Record {
	if rec.Ref == nil || rec.Pos < 0 {
		return rec
	}
	if id := rec.Ref.ID(); id != r.refID {
		r.refID, r.tiles = id, 0
	}
	length := 0
	if tile := rec.Pos / indexTileWidth; tile >= r.tiles {
		length = (tile+1)*indexTileWidth - rec.Pos
		r.tiles = tile + 1
	}
	point := *rec
	point.Cigar = []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, length)}
	return &point
}
