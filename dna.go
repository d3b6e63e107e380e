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

// Base codes, 2 bits each.
const (
	BaseA = 0
	BaseC = 1
	BaseG = 2
	BaseT = 3
)

var bitsToBase = [4]byte{'A', 'C', 'G', 'T'}

// EncodeBase maps one IUPAC byte to its 2-bit representative code.
//
//	  A    00
//	  C    01
//	  G    10
//	  T    11
//
// Degenerate bases keep only their first listed representative, same
// convention as a plain k-mer codec:
//
//	M  AC  A   V  ACG  A   H  ACT  A   R  AG  A   D  AGT  A
//	W  AT  A   S  CG   C   B  CGT  C   Y  CT  C   K  GT  G
//	N  ACGT A
func EncodeBase(b byte) (byte, error) {
	switch b {
	case 'G', 'g', 'K', 'k':
		return BaseG, nil
	case 'T', 't', 'U', 'u':
		return BaseT, nil
	case 'C', 'c', 'S', 's', 'B', 'b', 'Y', 'y':
		return BaseC, nil
	case 'A', 'a', 'N', 'n', 'M', 'm', 'V', 'v', 'H', 'h', 'R', 'r', 'D', 'd', 'W', 'w':
		return BaseA, nil
	}
	return 0, ErrIllegalBase
}

// DecodeBase is the inverse of EncodeBase for the four canonical codes.
func DecodeBase(code byte) byte { return bitsToBase[code&3] }

// ComplementBase returns the 2-bit code of the Watson-Crick complement.
// A<->T and C<->G are codes 0<->3 and 1<->2, so XOR with 3 does it in one step.
func ComplementBase(code byte) byte { return code ^ 3 }

// EncodeSeq converts an IUPAC byte slice to its 2-bit code slice, one
// code per output byte (not packed) -- the representation the rolling
// hashes and the merge engine's map keys operate on directly.
func EncodeSeq(bases []byte) ([]byte, error) {
	codes := make([]byte, len(bases))
	for i, b := range bases {
		c, err := EncodeBase(b)
		if err != nil {
			return nil, err
		}
		codes[i] = c
	}
	return codes, nil
}

// DecodeSeq is the inverse of EncodeSeq.
func DecodeSeq(codes []byte) []byte {
	out := make([]byte, len(codes))
	for i, c := range codes {
		out[i] = DecodeBase(c)
	}
	return out
}

// ReverseComplementCodes reverse-complements a 2-bit code slice in place
// semantics (returns a new slice; does not mutate codes).
func ReverseComplementCodes(codes []byte) []byte {
	n := len(codes)
	out := make([]byte, n)
	for i, c := range codes {
		out[n-1-i] = ComplementBase(c)
	}
	return out
}

// PackCodes packs 2-bit codes 4-to-a-byte, most-significant pair first,
// ceil(len(codes)/4) bytes long. This is the wire format for super-k-mer
// bases in a first-level bucket record (§6 "Observation buffer format").
func PackCodes(codes []byte) []byte {
	out := make([]byte, (len(codes)+3)/4)
	for i, c := range codes {
		out[i/4] |= (c & 3) << uint((3-(i%4))*2)
	}
	return out
}

// UnpackCodes decodes n 2-bit codes from a buffer produced by PackCodes.
func UnpackCodes(packed []byte, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = (packed[i/4] >> uint((3-(i%4))*2)) & 3
	}
	return out
}
