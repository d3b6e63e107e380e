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

// GlobalID packs a per-bucket unitig local id into one value stable
// across the whole build, used as the final FASTA header id and as the
// OtherID of a Link annotation.
func GlobalID(n NodeID) uint64 {
	return uint64(n.BucketID)<<32 | uint64(n.UnitigLocal)
}

func strandOf(dir cdbg.Direction) byte {
	if dir == cdbg.DirBackward {
		return '-'
	}
	return '+'
}

// Emitter streams every bucket's merge-stage unitig file back out,
// stamping in the cross-bucket Link annotations a JoinTable resolved,
// producing the assembled graph's final output (§4.6).
type Emitter struct {
	joins *JoinTable
}

func NewEmitter(joins *JoinTable) *Emitter {
	return &Emitter{joins: joins}
}

// EmitBucket re-renders one bucket's unitig stream, in order, with
// Links appended for any end that a cross-bucket join resolved.
func (em *Emitter) EmitBucket(bucketID uint32, in io.Reader, out *cdbg.UnitigWriter) (int, error) {
	ur := cdbg.NewUnitigReader(in)
	n := 0
	for {
		rec, err := ur.ReadUnitig()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		node := NodeID{BucketID: bucketID, UnitigLocal: uint32(rec.ID)}
		rec.ID = GlobalID(node)
		for _, link := range em.joins.LinksFor(node) {
			rec.Links = append(rec.Links, cdbg.Link{
				Strand:      strandOf(link.ThisDir),
				OtherID:     GlobalID(link.Other),
				OtherStrand: strandOf(link.OtherDir),
			})
		}
		if err := out.WriteUnitig(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
