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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdbg-tools/cdbg"
)

func mustEncode(t *testing.T, s string) []byte {
	t.Helper()
	codes, err := cdbg.EncodeSeq([]byte(s))
	require.NoError(t, err)
	return codes
}

func TestConcatenateLeavesSingletonRecordUntouched(t *testing.T) {
	k := 4
	a := NodeID{BucketID: 0, UnitigLocal: 0}
	records := map[NodeID]cdbg.UnitigRecord{
		a: {ID: 0, Codes: mustEncode(t, "ACGTACGT"), Colors: []cdbg.ColorRun{{SubsetID: 1, RunLength: 5}}},
	}
	jt := &JoinTable{links: make(map[NodeID][]LinkTo)}

	var out bytes.Buffer
	uw := cdbg.NewUnitigWriter(&out)
	n, err := Concatenate(records, jt, k, uw)
	require.NoError(t, err)
	require.NoError(t, uw.Flush())
	assert.Equal(t, 1, n)

	ur := cdbg.NewUnitigReader(bytes.NewReader(out.Bytes()))
	rec, err := ur.ReadUnitig()
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGT", string(cdbg.DecodeSeq(rec.Codes)))
	assert.Empty(t, rec.Links, "the default concatenating path never stamps L: annotations")
}

// TestConcatenateSplicesDirectJoin covers the plain case: two halves of
// one read split at a bucket boundary, re-joined on their matching
// forward/backward ends with no orientation flip needed.
func TestConcatenateSplicesDirectJoin(t *testing.T) {
	k := 4
	// Original sequence ACGTACGTTT split after "ACGTACGT" (k=4 overlap
	// "ACGT" duplicated across the join, as a real continuation stub
	// pair would leave it).
	left := NodeID{BucketID: 0, UnitigLocal: 0}
	right := NodeID{BucketID: 1, UnitigLocal: 0}
	records := map[NodeID]cdbg.UnitigRecord{
		left:  {ID: 0, Codes: mustEncode(t, "ACGTACGT"), Colors: []cdbg.ColorRun{{SubsetID: 1, RunLength: 5}}},
		right: {ID: 0, Codes: mustEncode(t, "ACGTTT"), Colors: []cdbg.ColorRun{{SubsetID: 1, RunLength: 3}}},
	}
	jt := &JoinTable{links: map[NodeID][]LinkTo{
		left:  {{ThisDir: cdbg.DirForward, Other: right, OtherDir: cdbg.DirBackward}},
		right: {{ThisDir: cdbg.DirBackward, Other: left, OtherDir: cdbg.DirForward}},
	}}

	var out bytes.Buffer
	uw := cdbg.NewUnitigWriter(&out)
	n, err := Concatenate(records, jt, k, uw)
	require.NoError(t, err)
	require.NoError(t, uw.Flush())
	assert.Equal(t, 1, n, "a two-way cross-bucket join must re-emit exactly one maximal unitig")

	ur := cdbg.NewUnitigReader(bytes.NewReader(out.Bytes()))
	rec, err := ur.ReadUnitig()
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTTT", string(cdbg.DecodeSeq(rec.Codes)))
	assert.Empty(t, rec.Links)

	total := 0
	for _, c := range rec.Colors {
		total += int(c.RunLength)
	}
	assert.Equal(t, len(rec.Codes)-k+1, total, "run-length sum must equal unitigLength-k+1 after splicing")
}

// TestConcatenateFlipsReverseComplementHalf covers a join where the
// second half's free end matched on the same direction as the first
// half's (both DirForward), meaning it must be reverse-complemented
// before splicing so its continuation end lands on the chain's edge.
func TestConcatenateFlipsReverseComplementHalf(t *testing.T) {
	k := 4
	left := NodeID{BucketID: 0, UnitigLocal: 0}
	right := NodeID{BucketID: 1, UnitigLocal: 0}

	// right, as stored, reads AAACGT; its reverse complement is
	// ACGTTT, whose leading k-mer ACGT matches left's trailing k-mer.
	records := map[NodeID]cdbg.UnitigRecord{
		left:  {ID: 0, Codes: mustEncode(t, "ACGTACGT"), Colors: []cdbg.ColorRun{{SubsetID: 1, RunLength: 5}}},
		right: {ID: 0, Codes: mustEncode(t, "AAACGT"), Colors: []cdbg.ColorRun{{SubsetID: 1, RunLength: 3}}},
	}
	jt := &JoinTable{links: map[NodeID][]LinkTo{
		left:  {{ThisDir: cdbg.DirForward, Other: right, OtherDir: cdbg.DirForward}},
		right: {{ThisDir: cdbg.DirForward, Other: left, OtherDir: cdbg.DirForward}},
	}}

	var out bytes.Buffer
	uw := cdbg.NewUnitigWriter(&out)
	_, err := Concatenate(records, jt, k, uw)
	require.NoError(t, err)
	require.NoError(t, uw.Flush())

	ur := cdbg.NewUnitigReader(bytes.NewReader(out.Bytes()))
	rec, err := ur.ReadUnitig()
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTTT", string(cdbg.DecodeSeq(rec.Codes)))
}

func TestConcatenateOrdersOutputByLowestMemberNodeID(t *testing.T) {
	k := 4
	a := NodeID{BucketID: 1, UnitigLocal: 0}
	b := NodeID{BucketID: 0, UnitigLocal: 0}
	records := map[NodeID]cdbg.UnitigRecord{
		a: {ID: 0, Codes: mustEncode(t, "ACGTACGT")},
		b: {ID: 0, Codes: mustEncode(t, "TTTTACGT")},
	}
	jt := &JoinTable{links: make(map[NodeID][]LinkTo)}

	var out bytes.Buffer
	uw := cdbg.NewUnitigWriter(&out)
	n, err := Concatenate(records, jt, k, uw)
	require.NoError(t, err)
	require.NoError(t, uw.Flush())
	require.Equal(t, 2, n)

	ur := cdbg.NewUnitigReader(bytes.NewReader(out.Bytes()))
	first, err := ur.ReadUnitig()
	require.NoError(t, err)
	assert.Equal(t, GlobalID(b), first.ID, "bucket 0's member must sort before bucket 1's")
}
