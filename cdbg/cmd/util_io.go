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

package cmd

import (
	"io"
	"path/filepath"

	perrors "github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/cdbg-tools/cdbg"
)

// fastxSource adapts a list of input files, one per sample, to
// merge.SequenceSource: every record of every file is handed out as
// 2-bit codes tagged with that file's sample id, in file order (§1
// scope note, §6 "build_graph" input contract).
type fastxSource struct {
	files       []string
	names       []string
	sampleIdx   int
	reader      *fastx.Reader
	currentFile string
}

// newFastxSource opens files lazily, one at a time, so a build with
// hundreds of input genomes doesn't need hundreds of open file
// descriptors at once.
func newFastxSource(files []string) *fastxSource {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = sampleNameOf(f)
	}
	return &fastxSource{files: files, names: names, sampleIdx: -1}
}

func sampleNameOf(file string) string {
	base := filepath.Base(file)
	for _, ext := range []string{".gz", ".fasta", ".fa", ".fastq", ".fq", ".fna"} {
		if len(base) > len(ext) && base[len(base)-len(ext):] == ext {
			base = base[:len(base)-len(ext)]
		}
	}
	return base
}

// SampleNames returns every sample's display name, in sample-id order,
// for the color subset table header (§6 "color subset table header").
func (s *fastxSource) SampleNames() []string { return s.names }

func (s *fastxSource) Next() (uint32, []byte, bool, error) {
	for {
		if s.reader == nil {
			s.sampleIdx++
			if s.sampleIdx >= len(s.files) {
				return 0, nil, false, nil
			}
			var err error
			s.currentFile = s.files[s.sampleIdx]
			s.reader, err = fastx.NewDefaultReader(s.currentFile)
			if err != nil {
				return 0, nil, false, perrors.Wrapf(cdbg.ErrInputFormat, "opening %s: %s", s.currentFile, err)
			}
		}
		record, err := s.reader.Read()
		if err != nil {
			if err == io.EOF {
				s.reader = nil
				continue
			}
			return 0, nil, false, perrors.Wrapf(cdbg.ErrInputFormat, "reading %s: %s", s.currentFile, err)
		}
		seq.ValidateSeq = false
		codes, err := cdbg.EncodeSeq(record.Seq.Seq)
		if err != nil {
			return 0, nil, false, perrors.Wrapf(cdbg.ErrInputFormat, "record %s: %s", record.ID, err)
		}
		return uint32(s.sampleIdx), codes, true, nil
	}
}
