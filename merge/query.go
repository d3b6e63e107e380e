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

// Package merge also carries query_graph's supporting pieces: an
// in-memory k-mer -> color subset index built from a finished build's
// unitig file, and the tally loop that walks a query sequence's k-mers
// against it (§4 "Supplemented features", the query pipeline).
package merge

import (
	"io"

	"github.com/cdbg-tools/cdbg"
)

// Index maps every distinct k-mer of a built graph to the subset id
// coloring the unitig position it came from. It holds one entry per
// graph k-mer, not per occurrence -- a query only needs "is this k-mer
// present, and under which colors", never a positional walk.
type Index struct {
	K         int
	Canonical bool
	byKmer    map[uint64]uint32
}

// BuildIndex reads every UnitigRecord a finished build produced and
// re-derives each one's k-mers, stamping each with the subset id its
// color run covers at that position. Re-deriving from the rendered
// unitig sequence, rather than persisting a separate k-mer table
// during build_graph, keeps the build side free of an extra large
// output file; a build's unitig count is far smaller than its k-mer
// count, so this amortizes well.
func BuildIndex(r io.Reader, k int, canonical bool) (*Index, error) {
	idx := &Index{K: k, Canonical: canonical, byKmer: make(map[uint64]uint32)}
	ur := cdbg.NewUnitigReader(r)
	for {
		rec, err := ur.ReadUnitig()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := idx.absorb(rec); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *Index) absorb(rec cdbg.UnitigRecord) error {
	if len(rec.Codes) < idx.K {
		return nil
	}
	it, err := cdbg.NewHashIterator(rec.Codes, idx.K)
	if err != nil {
		return err
	}
	runIdx, runLeft := 0, uint64(0)
	if len(rec.Colors) > 0 {
		runLeft = rec.Colors[0].RunLength
	}
	for {
		h, ok := it.Next()
		if !ok {
			break
		}
		for runIdx < len(rec.Colors) && runLeft == 0 {
			runIdx++
			if runIdx < len(rec.Colors) {
				runLeft = rec.Colors[runIdx].RunLength
			}
		}
		var subsetID uint32
		if runIdx < len(rec.Colors) {
			subsetID = rec.Colors[runIdx].SubsetID
		}
		v := idx.key(h)
		idx.byKmer[v] = subsetID
		if runLeft > 0 {
			runLeft--
		}
	}
	return nil
}

func (idx *Index) key(h cdbg.ExtHash) uint64 {
	if idx.Canonical {
		return h.Canonical()
	}
	return h.Fwd
}

// Len reports the number of distinct k-mers indexed.
func (idx *Index) Len() int { return len(idx.byKmer) }

// QueryResult is one query sequence's match tally against a color
// subset, the row unit the query command prints (§6 "query_graph
// output").
type QueryResult struct {
	SubsetID     uint32
	MatchedKmers int
}

// QuerySequence counts, for codes' k-mers, how many resolve to each
// distinct subset id present in idx. Results are unordered; callers
// sort for stable output.
func (idx *Index) QuerySequence(codes []byte) ([]QueryResult, int, error) {
	if len(codes) < idx.K {
		return nil, 0, nil
	}
	it, err := cdbg.NewHashIterator(codes, idx.K)
	if err != nil {
		return nil, 0, err
	}
	tally := make(map[uint32]int)
	total := 0
	for {
		h, ok := it.Next()
		if !ok {
			break
		}
		total++
		if subsetID, found := idx.byKmer[idx.key(h)]; found {
			tally[subsetID]++
		}
	}
	results := make([]QueryResult, 0, len(tally))
	for id, n := range tally {
		results = append(results, QueryResult{SubsetID: id, MatchedKmers: n})
	}
	return results, total, nil
}
