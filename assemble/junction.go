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

	"github.com/cdbg-tools/cdbg"
)

// hashKey mirrors merge.HashKey locally -- assemble never needs the
// merge engine's map or color logic, only the fixed-width records it
// left behind, so it is not worth importing package merge just for
// this one 16-byte type.
type hashKey struct{ Hi, Lo uint64 }

// endpoint is one HashEntry, resolved to the node and direction it
// names.
type endpoint struct {
	node NodeID
	dir  cdbg.Direction
}

// JoinTable is the result of matching every bucket's continuation
// stubs against each other: for a unitig half that ended at a
// first-level-bucket boundary, it names the other half (and which of
// its two ends) that the boundary k-mer continues into (§4.3 step 5,
// §4.6).
type JoinTable struct {
	links map[NodeID][]LinkTo
}

// LinkTo is one resolved cross-bucket neighbor of a unitig end.
type LinkTo struct {
	ThisDir  cdbg.Direction
	Other    NodeID
	OtherDir cdbg.Direction
}

// LinksFor returns the resolved neighbors of node, if any.
func (jt *JoinTable) LinksFor(node NodeID) []LinkTo {
	return jt.links[node]
}

// BuildJoinTable reads every bucket's hash-entry stream and pairs up
// stubs that share the same boundary k-mer hash. A hash seen from
// exactly two stubs is a clean two-way join; any other
// multiplicity is a branch that spans a first-level-bucket boundary
// and is left unlinked (the bounded-degree assumption a simple-path
// walk relies on holds within a bucket, not across them, so this is a
// real edge case rather than a bug to paper over -- see DESIGN.md).
func BuildJoinTable(readers []io.Reader) (*JoinTable, error) {
	groups := make(map[hashKey][]endpoint)
	for _, r := range readers {
		for {
			e, err := cdbg.ReadHashEntry(r)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			key := hashKey{Hi: e.HashHi, Lo: e.HashLo}
			groups[key] = append(groups[key], endpoint{
				node: NodeID{BucketID: e.BucketID, UnitigLocal: e.UnitigLocal},
				dir:  e.Direction,
			})
		}
	}

	jt := &JoinTable{links: make(map[NodeID][]LinkTo)}
	for _, eps := range groups {
		if len(eps) != 2 {
			continue
		}
		a, b := eps[0], eps[1]
		jt.links[a.node] = append(jt.links[a.node], LinkTo{ThisDir: a.dir, Other: b.node, OtherDir: b.dir})
		jt.links[b.node] = append(jt.links[b.node], LinkTo{ThisDir: b.dir, Other: a.node, OtherDir: a.dir})
	}
	return jt, nil
}
