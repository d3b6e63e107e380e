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

// NtHash per-base seeds (Mohamadi, Chu, Birol 2016), the same constants
// github.com/will-rowe/nthash seeds its table with. ForwardHash and
// CanonicalHash roll these by hand instead of going through nthash.NTHi
// because the merge engine needs roll_forward/roll_reverse on an
// arbitrary, already-computed hash value -- an operation the upstream
// iterator does not expose.
var nthashSeed = [4]uint64{
	0x3c8bfbb395c60474, // A
	0x3193c18562a02b4c, // C
	0x20323ed082572324, // G
	0x295549f54be24456, // T
}

func seedFwd(code byte) uint64 { return nthashSeed[code&3] }
func seedRC(code byte) uint64  { return nthashSeed[3-(code&3)] }

func rotl64(x uint64, r uint) uint64 {
	r &= 63
	return (x << r) | (x >> (64 - r))
}

func rotr64(x uint64, r uint) uint64 {
	r &= 63
	return (x >> r) | (x << (64 - r))
}

// ExtHash is the extendable 64-bit hash pair carried between rolls: the
// forward value and its reverse-complement companion. Only their
// minimum (Canonical) is ever used as a k-mer identity; both halves
// must be kept around so the identity can keep rolling without
// rescanning the k-mer.
type ExtHash struct {
	Fwd uint64
	Rc  uint64
}

// Canonical returns the unextendable identity used as map key and for
// bucket routing.
func (h ExtHash) Canonical() uint64 {
	if h.Rc < h.Fwd {
		return h.Rc
	}
	return h.Fwd
}

const maxNtHashK = 64

// HashIterator produces one ExtHash per k-mer window of a 2-bit-coded
// sequence, in O(1) amortized per step (contract: n-k+1 values for an
// n-base sequence).
type HashIterator struct {
	codes []byte
	k     int
	idx   int
	fh    uint64
	rc    uint64
}

// NewHashIterator builds an iterator rooted at codes[0:k], ready to
// yield the hash of every k-window in order.
func NewHashIterator(codes []byte, k int) (*HashIterator, error) {
	if k < 1 || k > maxNtHashK {
		return nil, ErrKOverflow
	}
	if len(codes) < k {
		return nil, ErrShortSeq
	}
	it := &HashIterator{codes: codes, k: k}
	for i := 0; i < k-1; i++ {
		it.fh ^= rotl64(seedFwd(codes[i]), uint(k-i-2))
		it.rc ^= rotl64(seedRC(codes[i]), uint(i))
	}
	return it, nil
}

// rollHash advances the internal (k-1)-window accumulator and returns
// the full k-window hash ending at codes[i+k-1].
func (it *HashIterator) rollHash(i int) ExtHash {
	k1 := uint(it.k - 1)
	baseI := it.codes[i]
	baseK := it.codes[i+it.k-1]

	res := rotl64(it.fh, 1) ^ seedFwd(baseK)
	it.fh = res ^ rotl64(seedFwd(baseI), k1)

	resRC := it.rc ^ rotl64(seedRC(baseK), k1)
	it.rc = rotr64(resRC^seedRC(baseI), 1)

	return ExtHash{Fwd: res, Rc: resRC}
}

// Next returns the next k-window hash, or ok=false once every window of
// the underlying sequence has been produced.
func (it *HashIterator) Next() (ExtHash, bool) {
	if it.idx > len(it.codes)-it.k {
		return ExtHash{}, false
	}
	h := it.rollHash(it.idx)
	it.idx++
	return h, true
}

// RollForward computes the hash of the k-window one position to the
// right of h, given the base leaving the window (outBase) and the one
// entering it (inBase), without rescanning. Mirrors §4.1's
// roll_forward(h, k, out_base, in_base) contract and §8 property 6.
func RollForward(h ExtHash, k int, outBase, inBase byte) ExtHash {
	k64 := uint(k)
	res := rotl64(h.Fwd, 1) ^ seedFwd(inBase)
	resRC := h.Rc ^ rotl64(seedRC(inBase), k64)
	return ExtHash{
		Fwd: res ^ rotl64(seedFwd(outBase), k64),
		Rc:  rotr64(resRC^seedRC(outBase), 1),
	}
}

// RollReverse is RollForward's mirror image: the hash of the k-window
// one position to the left.
func RollReverse(h ExtHash, k int, outBase, inBase byte) ExtHash {
	k64 := uint(k)
	res := h.Fwd ^ rotl64(seedFwd(inBase), k64)
	resRC := rotl64(h.Rc, 1) ^ seedRC(inBase)
	return ExtHash{
		Fwd: rotr64(res^seedFwd(outBase), 1),
		Rc:  resRC ^ rotl64(seedRC(outBase), k64),
	}
}

// Bucket routing: a minimizer hash splits into a first-bucket index
// (low firstBits bits), a second-bucket index (next secondBits bits)
// and a sort key (everything above), per §3 "Bucket routing" and the
// pure-bit-projection contract in §4.1.
func FirstBucket(hash uint64, firstBits uint) uint32 {
	return uint32(hash & (1<<firstBits - 1))
}

func SecondBucket(hash uint64, firstBits, secondBits uint) uint32 {
	return uint32((hash >> firstBits) & (1<<secondBits - 1))
}

func SortKey(hash uint64, firstBits, secondBits uint) uint64 {
	return hash >> (firstBits + secondBits)
}

// ShiftedByte extracts one byte of hash at the given bit shift, the
// projection the Stage-2 radix sort keys on (§4.3 step 1).
func ShiftedByte(hash uint64, shift uint) byte {
	return byte(hash >> shift)
}

// ---- 128-bit plain SeqHash flavor ----
//
// Used instead of NtHash when the configuration calls for a
// non-rolling-hash-table-based identity ("128-bit for plain SeqHash").
// Unlike NtHash this is not a hash at all: fh is simply the 2k-bit
// packed k-mer code and rc its reverse complement, canonicalized by
// numeric minimum -- a straight bit-packing scheme rather than a
// mixing function.

const maxSeqHashK = 62

// Code128 is a 128-bit unsigned value split across two uint64 words,
// hand-rolled because nothing in the available stack offers 128-bit
// DNA k-mer packing; unikmer's 64-bit KmerCode generalizes the same
// way (shift-in/shift-out two bits at a time, carrying across the
// word boundary).
type Code128 struct {
	Hi uint64
	Lo uint64
}

func mask128(bits uint) Code128 {
	switch {
	case bits >= 128:
		return Code128{^uint64(0), ^uint64(0)}
	case bits > 64:
		return Code128{1<<(bits-64) - 1, ^uint64(0)}
	case bits == 64:
		return Code128{0, ^uint64(0)}
	default:
		return Code128{0, 1<<bits - 1}
	}
}

func (c Code128) shiftLeft2() Code128 {
	return Code128{Hi: (c.Hi << 2) | (c.Lo >> 62), Lo: c.Lo << 2}
}

func (c Code128) shiftRight2() Code128 {
	return Code128{Hi: c.Hi >> 2, Lo: (c.Lo >> 2) | (c.Hi << 62)}
}

// orAt ORs a small (<=2 bit) value in at bit offset, spanning the word
// boundary when needed. Every caller here only ever inserts a 2-bit
// base code at an even offset, so the value never itself straddles Hi
// and Lo.
func (c Code128) orAt(v uint64, offset uint) Code128 {
	if offset >= 64 {
		return Code128{Hi: c.Hi | (v << (offset - 64)), Lo: c.Lo}
	}
	return Code128{Hi: c.Hi, Lo: c.Lo | (v << offset)}
}

func (c Code128) and(m Code128) Code128 { return Code128{c.Hi & m.Hi, c.Lo & m.Lo} }

// Less reports whether c < o under ordinary 128-bit unsigned ordering.
func (c Code128) Less(o Code128) bool {
	if c.Hi != o.Hi {
		return c.Hi < o.Hi
	}
	return c.Lo < o.Lo
}

// ExtCode128 is the SeqHash analogue of ExtHash.
type ExtCode128 struct {
	Fwd Code128
	Rc  Code128
}

func (h ExtCode128) Canonical() Code128 {
	if h.Rc.Less(h.Fwd) {
		return h.Rc
	}
	return h.Fwd
}

func xrc(base byte) uint64 { return uint64(base) ^ 3 }

// SeqHashIterator rolls the 128-bit packed-k-mer identity, entering one
// base (at the right end) per step.
type SeqHashIterator struct {
	codes []byte
	k     int
	idx   int
	fh    Code128
	rc    Code128
	mask  Code128
}

func NewSeqHashIterator(codes []byte, k int) (*SeqHashIterator, error) {
	if k < 1 || k > maxSeqHashK {
		return nil, ErrKOverflow
	}
	if len(codes) < k {
		return nil, ErrShortSeq
	}
	// The preload loop packs codes[0:k-1], a (k-1)-mer; idx starts at
	// k-1 so the first advance() shifts in codes[k-1] -- the base that
	// completes the first real k-window -- rather than re-consuming
	// codes[0].
	it := &SeqHashIterator{codes: codes, k: k, idx: k - 1, mask: mask128(uint(2 * k))}
	var fh, rc Code128
	for i := 0; i < k-1; i++ {
		fh = fh.shiftLeft2().orAt(uint64(codes[i]), 0)
		rc = rc.orAt(xrc(codes[i]), uint(2*i))
	}
	it.fh = fh.and(it.mask)
	it.rc = rc.shiftLeft2()
	return it, nil
}

func (it *SeqHashIterator) advance() ExtCode128 {
	b := it.codes[it.idx]
	it.fh = it.fh.shiftLeft2().orAt(uint64(b), 0).and(it.mask)
	it.rc = it.rc.shiftRight2().orAt(xrc(b), uint(2*(it.k-1)))
	return ExtCode128{Fwd: it.fh, Rc: it.rc}
}

// Next returns the hash of the window ending at the base about to be
// consumed, or ok=false once the sequence is exhausted.
func (it *SeqHashIterator) Next() (ExtCode128, bool) {
	if it.idx > len(it.codes)-1 {
		return ExtCode128{}, false
	}
	h := it.advance()
	it.idx++
	return h, true
}

// RollForwardSeq/RollReverseSeq are SeqHash's roll_forward/roll_reverse.
// outBase is accepted for interface symmetry with the NtHash variant
// but is otherwise unused: shifting the packed code naturally drops
// the leaving base without needing it named.
func RollForwardSeq(h ExtCode128, k int, outBase, inBase byte) ExtCode128 {
	mask := mask128(uint(2 * k))
	return ExtCode128{
		Fwd: h.Fwd.shiftLeft2().orAt(uint64(inBase), 0).and(mask),
		Rc:  h.Rc.shiftRight2().orAt(xrc(inBase), uint(2*(k-1))),
	}
}

func RollReverseSeq(h ExtCode128, k int, outBase, inBase byte) ExtCode128 {
	mask := mask128(uint(2 * k))
	return ExtCode128{
		Fwd: h.Fwd.shiftRight2().orAt(uint64(inBase), uint(2*(k-1))),
		Rc:  h.Rc.shiftLeft2().orAt(xrc(inBase), 0).and(mask),
	}
}
