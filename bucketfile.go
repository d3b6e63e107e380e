// Copyright © 2018 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cdbg

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// BucketMagic opens every first-level bucket file, the same
// lazy-header-on-first-write idiom as a plain binary reader/writer
// pair, generalized from one fixed record shape to a header plus a
// stream of variable-length super-k-mer records.
var BucketMagic = [8]byte{'c', 'd', 'b', 'g', 'b', 'k', 't', '1'}

// BucketHeader describes the k-mer parameters a first-level bucket
// file was produced under; every sub-bucket worker reading it back
// must agree with these before grouping anything.
type BucketHeader struct {
	K         int
	M         int
	Canonical bool
	Colored   bool
}

// Flags set on a SuperKmerRecord, mirroring §4.2's begin_flag/end_flag.
const (
	FlagBegin byte = 1 << 0
	FlagEnd   byte = 1 << 1
)

// SuperKmerRecord is one bucketer output record: a maximal run of
// consecutive k-mers sharing a minimizer, tagged with the sample it
// came from (§4.2 "Design choice: emit super-k-mers").
type SuperKmerRecord struct {
	SampleID  uint32
	Flags     byte
	Minimizer uint64
	Codes     []byte // 2-bit codes, one per byte, not yet packed
}

// BucketWriter appends SuperKmerRecords to one first-level bucket file.
// The header is written lazily on the first call to WriteRecord, same
// as a plain binary writer that defers its header until real payload
// arrives.
type BucketWriter struct {
	w       io.Writer
	hdr     BucketHeader
	wrote   bool
	scratch []byte
}

func NewBucketWriter(w io.Writer, hdr BucketHeader) *BucketWriter {
	return &BucketWriter{w: w, hdr: hdr}
}

func (bw *BucketWriter) writeHeader() error {
	if _, err := bw.w.Write(BucketMagic[:]); err != nil {
		return errors.Wrap(err, "writing bucket magic")
	}
	var meta [4]byte
	meta[0] = byte(bw.hdr.K)
	meta[1] = byte(bw.hdr.M)
	if bw.hdr.Canonical {
		meta[2] = 1
	}
	if bw.hdr.Colored {
		meta[3] = 1
	}
	_, err := bw.w.Write(meta[:])
	return errors.Wrap(err, "writing bucket header")
}

// WriteRecord appends one super-k-mer record: flags byte, sample_id
// varint, minimizer-hash varint, sequence-length varint, then the
// packed 2-bit bases -- the layout §6 calls the "Observation buffer
// format", generalized with a leading minimizer field the bucketer
// needs to reconstruct routing on a re-read.
func (bw *BucketWriter) WriteRecord(rec SuperKmerRecord) error {
	if !bw.wrote {
		if err := bw.writeHeader(); err != nil {
			return err
		}
		bw.wrote = true
	}
	bw.scratch = bw.scratch[:0]
	bw.scratch = append(bw.scratch, rec.Flags)
	bw.scratch = PutVarint(bw.scratch, uint64(rec.SampleID))
	bw.scratch = PutVarint(bw.scratch, rec.Minimizer)
	bw.scratch = PutVarint(bw.scratch, uint64(len(rec.Codes)))
	bw.scratch = append(bw.scratch, PackCodes(rec.Codes)...)
	_, err := bw.w.Write(bw.scratch)
	return errors.Wrap(err, "writing super-k-mer record")
}

// BucketReader streams SuperKmerRecords back out of a first-level
// bucket file written by BucketWriter.
type BucketReader struct {
	br     *bufio.Reader
	Header BucketHeader
}

func NewBucketReader(r io.Reader) (*BucketReader, error) {
	br := bufio.NewReader(r)
	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, errors.Wrap(err, "reading bucket magic")
	}
	if magic != BucketMagic {
		return nil, ErrInvalidFileFormat
	}
	var meta [4]byte
	if _, err := io.ReadFull(br, meta[:]); err != nil {
		return nil, errors.Wrap(err, "reading bucket header")
	}
	return &BucketReader{
		br: br,
		Header: BucketHeader{
			K:         int(meta[0]),
			M:         int(meta[1]),
			Canonical: meta[2] == 1,
			Colored:   meta[3] == 1,
		},
	}, nil
}

// ReadRecord reads the next SuperKmerRecord, or io.EOF once the file is
// exhausted cleanly.
func (br *BucketReader) ReadRecord() (SuperKmerRecord, error) {
	flags, err := br.br.ReadByte()
	if err != nil {
		return SuperKmerRecord{}, err // io.EOF passes through unwrapped
	}
	sampleID, err := ReadVarint(br.br)
	if err != nil {
		return SuperKmerRecord{}, errors.Wrap(err, "reading sample id")
	}
	minimizer, err := ReadVarint(br.br)
	if err != nil {
		return SuperKmerRecord{}, errors.Wrap(err, "reading minimizer")
	}
	n, err := ReadVarint(br.br)
	if err != nil {
		return SuperKmerRecord{}, errors.Wrap(err, "reading sequence length")
	}
	packed := make([]byte, (n+3)/4)
	if _, err := io.ReadFull(br.br, packed); err != nil {
		return SuperKmerRecord{}, errors.Wrap(err, "reading packed bases")
	}
	return SuperKmerRecord{
		SampleID:  uint32(sampleID),
		Flags:     flags,
		Minimizer: minimizer,
		Codes:     UnpackCodes(packed, int(n)),
	}, nil
}
