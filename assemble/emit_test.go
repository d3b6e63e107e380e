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
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdbg-tools/cdbg"
)

func TestGlobalIDPacksBucketAndLocal(t *testing.T) {
	got := GlobalID(NodeID{BucketID: 3, UnitigLocal: 42})
	assert.Equal(t, uint64(3)<<32|42, got)
}

func TestEmitBucketStampsGlobalIDAndResolvedLinks(t *testing.T) {
	codes, err := cdbg.EncodeSeq([]byte("ACGTACGTACGT"))
	require.NoError(t, err)

	var in bytes.Buffer
	uw := cdbg.NewUnitigWriter(&in)
	require.NoError(t, uw.WriteUnitig(cdbg.UnitigRecord{ID: 5, Codes: codes}))
	require.NoError(t, uw.Flush())

	entries := writeEntries(t,
		cdbg.HashEntryFromCanonical(0x77, 1, 5, cdbg.DirForward),
		cdbg.HashEntryFromCanonical(0x77, 2, 9, cdbg.DirBackward),
	)
	jt, err := BuildJoinTable([]io.Reader{entries})
	require.NoError(t, err)

	em := NewEmitter(jt)
	var out bytes.Buffer
	ow := cdbg.NewUnitigWriter(&out)
	n, err := em.EmitBucket(1, &in, ow)
	require.NoError(t, err)
	require.NoError(t, ow.Flush())
	assert.Equal(t, 1, n)

	ur := cdbg.NewUnitigReader(bytes.NewReader(out.Bytes()))
	rec, err := ur.ReadUnitig()
	require.NoError(t, err)

	assert.Equal(t, GlobalID(NodeID{BucketID: 1, UnitigLocal: 5}), rec.ID)
	require.Len(t, rec.Links, 1)
	assert.Equal(t, byte('+'), rec.Links[0].Strand)
	assert.Equal(t, GlobalID(NodeID{BucketID: 2, UnitigLocal: 9}), rec.Links[0].OtherID)
	assert.Equal(t, byte('-'), rec.Links[0].OtherStrand)
}

func TestEmitBucketLeavesUnjoinedRecordWithoutLinks(t *testing.T) {
	codes, err := cdbg.EncodeSeq([]byte("ACGTACGTACGT"))
	require.NoError(t, err)

	var in bytes.Buffer
	uw := cdbg.NewUnitigWriter(&in)
	require.NoError(t, uw.WriteUnitig(cdbg.UnitigRecord{ID: 0, Codes: codes}))
	require.NoError(t, uw.Flush())

	jt, err := BuildJoinTable(nil)
	require.NoError(t, err)

	em := NewEmitter(jt)
	var out bytes.Buffer
	ow := cdbg.NewUnitigWriter(&out)
	_, err = em.EmitBucket(4, &in, ow)
	require.NoError(t, err)
	require.NoError(t, ow.Flush())

	ur := cdbg.NewUnitigReader(bytes.NewReader(out.Bytes()))
	rec, err := ur.ReadUnitig()
	require.NoError(t, err)
	assert.Empty(t, rec.Links)
}
