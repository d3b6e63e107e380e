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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdbg-tools/cdbg"
)

func TestBuildIndexAssignsSubsetIDPerColorRun(t *testing.T) {
	k := 5
	codes, err := cdbg.EncodeSeq([]byte("ACGGTCATTGCA")) // 8 k-mers, all distinct on either strand
	require.NoError(t, err)

	var buf bytes.Buffer
	uw := cdbg.NewUnitigWriter(&buf)
	require.NoError(t, uw.WriteUnitig(cdbg.UnitigRecord{
		ID:    1,
		Codes: codes,
		Colors: []cdbg.ColorRun{
			{SubsetID: 10, RunLength: 3},
			{SubsetID: 20, RunLength: 5},
		},
	}))
	require.NoError(t, uw.Flush())

	idx, err := BuildIndex(bytes.NewReader(buf.Bytes()), k, true)
	require.NoError(t, err)
	assert.Equal(t, 8, idx.Len(), "one index entry per distinct k-mer of the unitig")

	first, _, err := idx.QuerySequence(codes[:k])
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, uint32(10), first[0].SubsetID, "k-mer 0 lies in the first color run")

	last, _, err := idx.QuerySequence(codes[len(codes)-k:])
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, uint32(20), last[0].SubsetID, "k-mer 7 lies in the second color run")
}

func TestQuerySequenceTalliesMatchesBySubset(t *testing.T) {
	k := 5
	codes, err := cdbg.EncodeSeq([]byte("ACGTACGTACGT"))
	require.NoError(t, err)

	var buf bytes.Buffer
	uw := cdbg.NewUnitigWriter(&buf)
	require.NoError(t, uw.WriteUnitig(cdbg.UnitigRecord{
		ID:     1,
		Codes:  codes,
		Colors: []cdbg.ColorRun{{SubsetID: 7, RunLength: 8}},
	}))
	require.NoError(t, uw.Flush())

	idx, err := BuildIndex(bytes.NewReader(buf.Bytes()), k, true)
	require.NoError(t, err)

	results, total, err := idx.QuerySequence(codes)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(7), results[0].SubsetID)
	assert.Equal(t, 8, results[0].MatchedKmers, "every k-mer of a sequence identical to the indexed unitig must match")
}

func TestQuerySequenceIgnoresUnknownKmers(t *testing.T) {
	k := 5
	graphCodes, err := cdbg.EncodeSeq([]byte("ACGTACGTACGT"))
	require.NoError(t, err)

	var buf bytes.Buffer
	uw := cdbg.NewUnitigWriter(&buf)
	require.NoError(t, uw.WriteUnitig(cdbg.UnitigRecord{
		ID:     1,
		Codes:  graphCodes,
		Colors: []cdbg.ColorRun{{SubsetID: 1, RunLength: 8}},
	}))
	require.NoError(t, uw.Flush())

	idx, err := BuildIndex(bytes.NewReader(buf.Bytes()), k, true)
	require.NoError(t, err)

	queryCodes, err := cdbg.EncodeSeq([]byte("TTTTTTTTTTTT"))
	require.NoError(t, err)
	results, total, err := idx.QuerySequence(queryCodes)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Empty(t, results, "a query sharing no k-mer with the graph must report zero matching subsets")
}

func TestQuerySequenceSkipsSequencesShorterThanK(t *testing.T) {
	idx := &Index{K: 21, Canonical: true, byKmer: make(map[uint64]uint32)}
	results, total, err := idx.QuerySequence([]byte{0, 1, 2})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, results)
}
