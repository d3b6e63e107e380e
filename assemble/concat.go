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

package assemble

import (
	"io"
	"sort"

	"github.com/cdbg-tools/cdbg"
)

// LoadRecords reads every unitig record out of one bucket's merge-stage
// output, keyed by the bucket-scoped NodeID it was written under, so
// Concatenate can randomly address halves that live in other buckets.
func LoadRecords(bucketID uint32, in io.Reader) (map[NodeID]cdbg.UnitigRecord, error) {
	ur := cdbg.NewUnitigReader(in)
	out := make(map[NodeID]cdbg.UnitigRecord)
	for {
		rec, err := ur.ReadUnitig()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out[NodeID{BucketID: bucketID, UnitigLocal: uint32(rec.ID)}] = rec
	}
	return out, nil
}

func complement(d cdbg.Direction) cdbg.Direction {
	if d == cdbg.DirForward {
		return cdbg.DirBackward
	}
	return cdbg.DirForward
}

// Concatenate is §4.6's default (link-free) resolution of every
// cross-bucket join in jt: halves that BuildJoinTable matched end-to-end
// are spliced into one maximal unitig, trimming the duplicated boundary
// k-mer and merging color runs across the splice; any node left
// singleton -- no join, or one side of a >2-way cross-bucket branch
// BuildJoinTable deliberately leaves unlinked -- is emitted unchanged.
// Output order is by each component's lowest-sorting member NodeID, for
// determinism.
func Concatenate(records map[NodeID]cdbg.UnitigRecord, jt *JoinTable, k int, out *cdbg.UnitigWriter) (int, error) {
	uf := newUnionFind()
	for node, links := range jt.links {
		for _, l := range links {
			uf.union(node, l.Other)
		}
	}

	groups := make(map[NodeID][]NodeID)
	for node := range records {
		root := uf.find(node)
		groups[root] = append(groups[root], node)
	}

	roots := make([]NodeID, 0, len(groups))
	for r, members := range groups {
		sort.Slice(members, func(i, j int) bool {
			if members[i].BucketID != members[j].BucketID {
				return members[i].BucketID < members[j].BucketID
			}
			return members[i].UnitigLocal < members[j].UnitigLocal
		})
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool {
		a, b := groups[roots[i]][0], groups[roots[j]][0]
		if a.BucketID != b.BucketID {
			return a.BucketID < b.BucketID
		}
		return a.UnitigLocal < b.UnitigLocal
	})

	n := 0
	for _, root := range roots {
		members := groups[root]
		rec, err := buildChain(members, records, jt, k)
		if err != nil {
			return n, err
		}
		rec.ID = GlobalID(members[0])
		if err := out.WriteUnitig(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// buildChain walks one connected component of the join graph from a
// chain endpoint (a node with at most one cross-bucket link) through
// every matched boundary, splicing halves in order. A pure cycle (every
// member has two links) has no endpoint; buildChain then starts
// arbitrarily and stops once it would revisit an already-placed node.
func buildChain(members []NodeID, records map[NodeID]cdbg.UnitigRecord, jt *JoinTable, k int) (cdbg.UnitigRecord, error) {
	if len(members) == 1 {
		rec := records[members[0]]
		out := rec
		out.Codes = append([]byte(nil), rec.Codes...)
		out.Colors = append([]cdbg.ColorRun(nil), rec.Colors...)
		return out, nil
	}

	start := members[0]
	var startLink *LinkTo
	for _, m := range members {
		links := jt.links[m]
		if len(links) <= 1 {
			start = m
			if len(links) == 1 {
				l := links[0]
				startLink = &l
			}
			break
		}
	}
	if startLink == nil && len(jt.links[start]) > 0 {
		// pure cycle: no endpoint, so start at members[0]'s first link
		l := jt.links[start][0]
		startLink = &l
	}

	flip := startLink != nil && startLink.ThisDir == cdbg.DirBackward
	chain := orientedRecord(records[start], flip)
	visited := map[NodeID]bool{start: true}

	next := startLink
	curNode := start
	for next != nil {
		if visited[next.Other] {
			break // component closes into a cycle; stop before re-emitting
		}
		nextRec, ok := records[next.Other]
		if !ok {
			return cdbg.UnitigRecord{}, cdbg.ErrFatal
		}
		nextFlip := next.OtherDir == cdbg.DirForward
		seg := orientedRecord(nextRec, nextFlip)
		chain = spliceRight(chain, seg, k)
		visited[next.Other] = true
		curNode = next.Other

		// The remaining free end of curNode, in its own original
		// coordinates, is the complement of the end that just mated
		// with the previous segment (next.OtherDir).
		freeDir := complement(next.OtherDir)
		next = nil
		for _, l := range jt.links[curNode] {
			if l.ThisDir == freeDir {
				cp := l
				next = &cp
				break
			}
		}
	}

	return chain, nil
}

// orientedRecord returns a copy of rec, reverse-complemented (bases and
// color-run order both reversed) when flip is set -- used to align a
// joined half so its continuation end lands on the chain's right edge.
func orientedRecord(rec cdbg.UnitigRecord, flip bool) cdbg.UnitigRecord {
	if !flip {
		return cdbg.UnitigRecord{
			Codes:  append([]byte(nil), rec.Codes...),
			Colors: append([]cdbg.ColorRun(nil), rec.Colors...),
		}
	}
	colors := make([]cdbg.ColorRun, len(rec.Colors))
	for i, c := range rec.Colors {
		colors[len(rec.Colors)-1-i] = c
	}
	return cdbg.UnitigRecord{
		Codes:  cdbg.ReverseComplementCodes(rec.Codes),
		Colors: colors,
	}
}

// spliceRight appends seg to the right of chain, dropping seg's first k
// bases (the boundary k-mer the two halves share, already present as
// chain's own trailing k-mer) and the one k-mer position of seg's color
// coverage that the same boundary k-mer accounts for (§4.3 step 5,
// §8 property 4 -- the combined run-length sum must still equal
// combinedLength-k+1).
func spliceRight(chain, seg cdbg.UnitigRecord, k int) cdbg.UnitigRecord {
	chain.Codes = append(chain.Codes, seg.Codes[k:]...)

	segColors := trimLeadingPosition(seg.Colors)
	if len(chain.Colors) > 0 && len(segColors) > 0 &&
		chain.Colors[len(chain.Colors)-1].SubsetID == segColors[0].SubsetID {
		chain.Colors[len(chain.Colors)-1].RunLength += segColors[0].RunLength
		segColors = segColors[1:]
	}
	chain.Colors = append(chain.Colors, segColors...)
	return chain
}

// trimLeadingPosition drops the run-length coverage of exactly one
// k-mer position from the front of colors.
func trimLeadingPosition(colors []cdbg.ColorRun) []cdbg.ColorRun {
	if len(colors) == 0 {
		return nil
	}
	out := append([]cdbg.ColorRun(nil), colors...)
	out[0].RunLength--
	if out[0].RunLength == 0 {
		out = out[1:]
	}
	return out
}
