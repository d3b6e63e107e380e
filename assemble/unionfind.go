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

// Package assemble joins the unitig halves and continuation stubs
// every first-level bucket leaves behind into the final, cross-bucket
// maximal unitigs (§4.6).
package assemble

// NodeID identifies one unitig half by the bucket it was written in
// and its position within that bucket's output.
type NodeID struct {
	BucketID    uint32
	UnitigLocal uint32
}

// unionFind is a rank-compressed disjoint-set over NodeIDs, joining
// unitig halves that a HashEntry pair proves are the same underlying
// unitig (§4.6 "stitching").
type unionFind struct {
	parent map[NodeID]NodeID
	rank   map[NodeID]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[NodeID]NodeID), rank: make(map[NodeID]int)}
}

func (u *unionFind) find(x NodeID) NodeID {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := u.find(p)
	u.parent[x] = root // path compression
	return root
}

// union merges the sets containing a and b, returning true if they
// were previously distinct.
func (u *unionFind) union(a, b NodeID) bool {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return false
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return true
}
