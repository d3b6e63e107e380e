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

import (
	"math/rand"
	"testing"
)

func randomCodes(n int, r *rand.Rand) []byte {
	codes := make([]byte, n)
	for i := range codes {
		codes[i] = byte(r.Intn(4))
	}
	return codes
}

// TestHashIteratorMatchesFreshCompute checks that the rolling iterator's
// output at every position matches recomputing a fresh iterator rooted
// at that position, i.e. the roll is order-independent of history.
func TestHashIteratorMatchesFreshCompute(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	codes := randomCodes(200, r)
	k := 21

	it, err := NewHashIterator(codes, k)
	if err != nil {
		t.Fatalf("NewHashIterator: %v", err)
	}
	for i := 0; i+k <= len(codes); i++ {
		got, ok := it.Next()
		if !ok {
			t.Fatalf("Next() ran out early at i=%d", i)
		}
		fresh, err := NewHashIterator(codes[i:i+k], k)
		if err != nil {
			t.Fatalf("NewHashIterator(window): %v", err)
		}
		want, _ := fresh.Next()
		if got != want {
			t.Errorf("i=%d: rolling hash %+v != fresh hash %+v", i, got, want)
		}
	}
	if _, ok := it.Next(); ok {
		t.Error("iterator should be exhausted after n-k+1 windows")
	}
}

func TestHashIteratorCountsWindows(t *testing.T) {
	codes := randomCodes(50, rand.New(rand.NewSource(2)))
	k := 31
	it, err := NewHashIterator(codes, k)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	want := len(codes) - k + 1
	if n != want {
		t.Errorf("produced %d windows, want %d", n, want)
	}
}

// TestRollForwardReverseRoundTrip checks §8 property 6: rolling forward
// then back returns the original hash.
func TestRollForwardReverseRoundTrip(t *testing.T) {
	codes := randomCodes(64, rand.New(rand.NewSource(3)))
	k := 17

	it, err := NewHashIterator(codes, k)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := it.Next()

	outBase := codes[0]
	inBase := codes[k]
	forward := RollForward(h, k, outBase, inBase)
	back := RollReverse(forward, k, inBase, outBase)
	if back != h {
		t.Errorf("RollReverse(RollForward(h)) = %+v, want %+v", back, h)
	}
}

func TestRollForwardMatchesIterator(t *testing.T) {
	codes := randomCodes(100, rand.New(rand.NewSource(4)))
	k := 25

	it, err := NewHashIterator(codes, k)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := it.Next()
	for i := 1; i+k <= len(codes); i++ {
		want, _ := it.Next()
		h = RollForward(h, k, codes[i-1], codes[i+k-1])
		if h != want {
			t.Errorf("i=%d: RollForward chain diverged from iterator: %+v != %+v", i, h, want)
		}
	}
}

func TestCanonicalIsMinOfStrands(t *testing.T) {
	h := ExtHash{Fwd: 5, Rc: 9}
	if h.Canonical() != 5 {
		t.Errorf("Canonical() = %d, want 5", h.Canonical())
	}
	h = ExtHash{Fwd: 9, Rc: 5}
	if h.Canonical() != 5 {
		t.Errorf("Canonical() = %d, want 5", h.Canonical())
	}
}

func TestBucketRoutingIsPureBitProjection(t *testing.T) {
	hash := uint64(0xABCDEF0123456789)
	firstBits, secondBits := uint(8), uint(6)

	first := FirstBucket(hash, firstBits)
	second := SecondBucket(hash, firstBits, secondBits)
	rest := SortKey(hash, firstBits, secondBits)

	reassembled := uint64(first) | uint64(second)<<firstBits | rest<<(firstBits+secondBits)
	if reassembled != hash {
		t.Errorf("first/second/rest don't reassemble to the original hash: got %#x, want %#x", reassembled, hash)
	}
	if first >= 1<<firstBits {
		t.Errorf("FirstBucket out of range: %d", first)
	}
	if second >= 1<<secondBits {
		t.Errorf("SecondBucket out of range: %d", second)
	}
}

func TestSeqHashIteratorWindowCount(t *testing.T) {
	codes := randomCodes(40, rand.New(rand.NewSource(5)))
	k := 15
	it, err := NewSeqHashIterator(codes, k)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	want := len(codes) - k + 1
	if n != want {
		t.Errorf("SeqHashIterator produced %d windows, want %d", n, want)
	}
}

// TestSeqHashIteratorFirstWindow guards against the idx-off-by-one
// regression this iterator once had: the first yielded hash must be the
// packed code of codes[0:k], not a window that re-reads codes[0].
func TestSeqHashIteratorFirstWindow(t *testing.T) {
	codes, err := EncodeSeq([]byte("ACGTACGTA"))
	if err != nil {
		t.Fatal(err)
	}
	k := 8
	it, err := NewSeqHashIterator(codes, k)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := it.Next()
	if !ok {
		t.Fatal("expected at least one window")
	}

	var want Code128
	for _, c := range codes[:k] {
		want = want.shiftLeft2().orAt(uint64(c), 0)
	}
	if h.Fwd != want {
		t.Errorf("first SeqHash window = %+v, want packed codes[0:k] = %+v", h.Fwd, want)
	}
}

func TestCode128Ordering(t *testing.T) {
	small := Code128{Hi: 0, Lo: 1}
	big := Code128{Hi: 0, Lo: 2}
	if !small.Less(big) {
		t.Error("Code128{Lo:1}.Less(Code128{Lo:2}) should be true")
	}
	hiBig := Code128{Hi: 1, Lo: 0}
	if !big.Less(hiBig) {
		t.Error("a smaller Hi word should sort before any larger Hi word regardless of Lo")
	}
}
