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

package merge

import (
	"encoding/binary"

	"github.com/twotwotwo/sorts"
)

// ReadRef is Stage 1's per-read descriptor: an offset/length into the
// sub-bucket's packed-base byte buffer, the read's minimizer hash, and
// its begin/end flags (§4.3 Stage 1).
type ReadRef struct {
	Offset    uint32
	Length    uint32
	Minimizer HashKey
	Flags     byte
}

// readRefSlice adapts []ReadRef to github.com/twotwotwo/sorts'
// byte-key sorting interface, so Stage 2 step 1's "radix sort by the
// unextendable minimizer hash, most-significant byte first" reuses the
// same parallel sort the corpus already leans on for sorting k-mer
// codes (unikmer's common/split commands call sortutil.Uint64s; here
// the key isn't a bare uint64 so sorts.ByBytes is used directly).
// Tie-break among equal minimizer hashes is explicitly left undefined
// (§9), so Minimizer.Hi is folded in only to spread otherwise-colliding
// sort keys, not for correctness.
type readRefSlice []ReadRef

func (s readRefSlice) Len() int      { return len(s) }
func (s readRefSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s readRefSlice) Less(i, j int) bool {
	if s[i].Minimizer.Lo != s[j].Minimizer.Lo {
		return s[i].Minimizer.Lo < s[j].Minimizer.Lo
	}
	return s[i].Minimizer.Hi < s[j].Minimizer.Hi
}

func (s readRefSlice) Key(i int) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], s[i].Minimizer.Lo)
	binary.BigEndian.PutUint64(buf[8:16], s[i].Minimizer.Hi)
	return buf[:]
}

// RadixSortReads sorts refs in place by minimizer hash, most
// significant byte first (§4.3 Stage 2 step 1).
func RadixSortReads(refs []ReadRef) {
	sorts.ByBytes(readRefSlice(refs))
}
