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

// Package merge implements the minimizer-bucketed k-mer merge engine
// and the color merge manager that rides along inside it (§4.2, §4.3,
// §4.4): the hard core of the build -- bucketing, radix-sorting,
// grouping, bidirectional graph walk, and color subset accumulation.
package merge

// SequenceSource is the opaque (sample_id, sequence) pull boundary
// named out of scope in §1: the sequence reader is treated as an
// opaque source of (sample_id, sequence) pairs. cmd.fastxSource is
// its one production implementation, built on fastx.NewDefaultReader.
type SequenceSource interface {
	// Next returns the next sequence's sample id and 2-bit-coded
	// bases, or ok=false once the source is exhausted.
	Next() (sampleID uint32, codes []byte, ok bool, err error)
}

// SliceSource is a trivial in-memory SequenceSource, used by tests and
// by anything that has already loaded its sequences.
type SliceSource struct {
	Records []SourceRecord
	idx     int
}

type SourceRecord struct {
	SampleID uint32
	Codes    []byte
}

func (s *SliceSource) Next() (uint32, []byte, bool, error) {
	if s.idx >= len(s.Records) {
		return 0, nil, false, nil
	}
	r := s.Records[s.idx]
	s.idx++
	return r.SampleID, r.Codes, true, nil
}
