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
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Link is one BCALM2-format neighbor annotation attached to a unitig's
// header line (§4.6, GLOSSARY "BCALM2 link format").
type Link struct {
	Strand      byte // '+' or '-', this unitig's end
	OtherID     uint64
	OtherStrand byte
}

// ColorRun is one (subset, run_length) pair of a unitig's color track
// (§3 "Unitig color run").
type ColorRun struct {
	SubsetID  uint32
	RunLength uint64
}

// UnitigRecord is one final, fully-resolved unitig ready for output.
type UnitigRecord struct {
	ID     uint64
	Codes  []byte // 2-bit codes, unpacked
	Links  []Link
	Colors []ColorRun
}

// UnitigWriter renders UnitigRecords as the FASTA-like format described
// in §6: `>id[ L:...]*[ C:...]*` header, then the base sequence.
type UnitigWriter struct {
	w *bufio.Writer
}

func NewUnitigWriter(w io.Writer) *UnitigWriter {
	return &UnitigWriter{w: bufio.NewWriterSize(w, 1<<16)}
}

func (uw *UnitigWriter) WriteUnitig(u UnitigRecord) error {
	if _, err := fmt.Fprintf(uw.w, ">%d", u.ID); err != nil {
		return err
	}
	for _, l := range u.Links {
		if _, err := fmt.Fprintf(uw.w, " L:%c:%d:%c", l.Strand, l.OtherID, l.OtherStrand); err != nil {
			return err
		}
	}
	for _, c := range u.Colors {
		if _, err := fmt.Fprintf(uw.w, " C:%x:%d", c.SubsetID, c.RunLength); err != nil {
			return err
		}
	}
	if err := uw.w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := uw.w.Write(DecodeSeq(u.Codes)); err != nil {
		return err
	}
	return uw.w.WriteByte('\n')
}

func (uw *UnitigWriter) Flush() error { return uw.w.Flush() }

// UnitigReader reads back records written by UnitigWriter, used by the
// assemble stage to re-inject cross-bucket Link annotations into
// merge-stage output without re-deriving anything about the k-mers
// themselves (§4.6).
type UnitigReader struct {
	br *bufio.Reader
}

func NewUnitigReader(r io.Reader) *UnitigReader {
	return &UnitigReader{br: bufio.NewReaderSize(r, 1<<16)}
}

// ReadUnitig parses one header+sequence pair, or io.EOF once exhausted.
func (ur *UnitigReader) ReadUnitig() (UnitigRecord, error) {
	header, err := ur.br.ReadString('\n')
	if err != nil {
		if header == "" {
			return UnitigRecord{}, io.EOF
		}
		return UnitigRecord{}, err
	}
	seqLine, err := ur.br.ReadString('\n')
	if err != nil && seqLine == "" {
		return UnitigRecord{}, ErrTruncatedRecord
	}

	fields := strings.Fields(header)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], ">") {
		return UnitigRecord{}, ErrInvalidFileFormat
	}
	id, err := strconv.ParseUint(fields[0][1:], 10, 64)
	if err != nil {
		return UnitigRecord{}, ErrInvalidFileFormat
	}

	rec := UnitigRecord{ID: id}
	for _, f := range fields[1:] {
		switch {
		case strings.HasPrefix(f, "L:"):
			parts := strings.Split(f[2:], ":")
			if len(parts) != 3 {
				continue
			}
			otherID, _ := strconv.ParseUint(parts[1], 10, 64)
			rec.Links = append(rec.Links, Link{
				Strand:      parts[0][0],
				OtherID:     otherID,
				OtherStrand: parts[2][0],
			})
		case strings.HasPrefix(f, "C:"):
			parts := strings.Split(f[2:], ":")
			if len(parts) != 2 {
				continue
			}
			subsetID, _ := strconv.ParseUint(parts[0], 16, 32)
			runLen, _ := strconv.ParseUint(parts[1], 10, 64)
			rec.Colors = append(rec.Colors, ColorRun{SubsetID: uint32(subsetID), RunLength: runLen})
		}
	}

	seq := strings.TrimRight(seqLine, "\n")
	codes, err := EncodeSeq([]byte(seq))
	if err != nil {
		return UnitigRecord{}, err
	}
	rec.Codes = codes
	return rec, nil
}
