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

package colorset

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// Snapshot is a fully-loaded, read-only view of a finished color subset
// table, used by query_graph to translate a subset id back into sample
// names (§4 "Supplemented features", the query pipeline).
type Snapshot struct {
	Names   []string
	Subsets map[uint32][]uint32
}

// Load reads a whole color subset table file into memory. Finished
// tables are small relative to the k-mer data they annotate (one entry
// per distinct subset, not per k-mer), so a full load is simpler than
// memory-mapping and needs no extra dependency beyond what the rest of
// this module already pulls in.
func Load(r io.Reader) (*Snapshot, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Names: hdr.Names, Subsets: make(map[uint32][]uint32)}
	br := bufio.NewReader(r)
	for {
		id, subset, err := ReadSubsetEntry(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading color subset table entry")
		}
		snap.Subsets[id] = subset
	}
	return snap, nil
}

// SampleNames translates a subset id into its sample names, in subset order.
func (s *Snapshot) SampleNames(id uint32) []string {
	subset := s.Subsets[id]
	names := make([]string, len(subset))
	for i, sampleID := range subset {
		if int(sampleID) < len(s.Names) {
			names[i] = s.Names[sampleID]
		}
	}
	return names
}
