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
	"bufio"
	"bytes"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	for _, x := range []uint64{0, 1, 2, 126, 127, 128, 255, 256, 16383, 16384, 1 << 32, ^uint64(0)} {
		buf := PutVarint(nil, x)
		if len(buf) != VarintLen(x) {
			t.Errorf("x=%d: PutVarint produced %d bytes, VarintLen said %d", x, len(buf), VarintLen(x))
		}
		got, err := ReadVarint(bufio.NewReader(bytes.NewReader(buf)))
		if err != nil {
			t.Fatalf("x=%d: ReadVarint: %v", x, err)
		}
		if got != x {
			t.Errorf("PutVarint/ReadVarint(%d) = %d", x, got)
		}
	}
}

func TestVarintStreamOfValues(t *testing.T) {
	values := []uint64{0, 300, 70000, 1, 4294967296}
	var buf []byte
	for _, v := range values {
		buf = PutVarint(buf, v)
	}
	r := bufio.NewReader(bytes.NewReader(buf))
	for _, want := range values {
		got, err := ReadVarint(r)
		if err != nil {
			t.Fatalf("ReadVarint: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
}
