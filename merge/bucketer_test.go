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
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdbg-tools/cdbg"
)

func newTestBuckets(n int, k, m int) ([]*bytes.Buffer, []*cdbg.BucketWriter) {
	bufs := make([]*bytes.Buffer, n)
	writers := make([]*cdbg.BucketWriter, n)
	for i := range bufs {
		bufs[i] = &bytes.Buffer{}
		writers[i] = cdbg.NewBucketWriter(bufs[i], cdbg.BucketHeader{K: k, M: m, Canonical: true, Colored: true})
	}
	return bufs, writers
}

func readAllRecords(t *testing.T, buf *bytes.Buffer) []cdbg.SuperKmerRecord {
	t.Helper()
	if buf.Len() == 0 {
		return nil
	}
	br, err := cdbg.NewBucketReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var recs []cdbg.SuperKmerRecord
	for {
		rec, err := br.ReadRecord()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func TestBucketerProcessSequenceCoversEveryBase(t *testing.T) {
	k, m, firstBits := 15, 7, 4
	bufs, writers := newTestBuckets(1<<firstBits, k, m)
	bk := NewBucketer(writers, k, m, firstBits, true)
	d := bk.NewDispatcher()

	codes, err := cdbg.EncodeSeq([]byte("ACGTACGTACGTACGTACGTACGTACGTACGTACGT"))
	require.NoError(t, err)

	require.NoError(t, bk.ProcessSequence(d, 3, codes))
	require.NoError(t, d.Flush())

	var total []cdbg.SuperKmerRecord
	for _, buf := range bufs {
		total = append(total, readAllRecords(t, buf)...)
	}
	require.NotEmpty(t, total)

	numKmers := len(codes) - k + 1
	coveredKmers := 0
	sawBegin, sawEnd := false, false
	for _, rec := range total {
		assert.Equal(t, uint32(3), rec.SampleID)
		coveredKmers += len(rec.Codes) - k + 1
		if rec.Flags&cdbg.FlagBegin != 0 {
			sawBegin = true
		}
		if rec.Flags&cdbg.FlagEnd != 0 {
			sawEnd = true
		}
	}
	assert.Equal(t, numKmers, coveredKmers, "every k-mer of the input must be covered exactly once across all super-k-mers")
	assert.True(t, sawBegin, "the super-k-mer starting at sequence position 0 must carry FlagBegin")
	assert.True(t, sawEnd, "the super-k-mer ending at the sequence's last k-mer must carry FlagEnd")
}

func TestBucketerSkipsShortSequences(t *testing.T) {
	k, m, firstBits := 21, 11, 2
	_, writers := newTestBuckets(1<<firstBits, k, m)
	bk := NewBucketer(writers, k, m, firstBits, true)
	d := bk.NewDispatcher()

	codes, err := cdbg.EncodeSeq([]byte("ACGT"))
	require.NoError(t, err)
	require.NoError(t, bk.ProcessSequence(d, 0, codes))
	require.NoError(t, d.Flush())
}

// expectedMinimizerRuns recomputes, independently of Bucketer, the
// minimizer each k-mer index should get under the correct windowing
// rule -- the minimum m-mer hash over [j, j+windowSize-1], the m-mers
// that actually lie inside k-mer j -- then groups consecutive equal
// minimizers into runs the same way ProcessSequence does.
func expectedMinimizerRuns(t *testing.T, codes []byte, k, m int) []cdbg.SuperKmerRecord {
	t.Helper()
	windowSize := k - m + 1
	numKmers := len(codes) - k + 1

	it, err := cdbg.NewHashIterator(codes, m)
	require.NoError(t, err)
	var mHashes []uint64
	for {
		h, ok := it.Next()
		if !ok {
			break
		}
		mHashes = append(mHashes, h.Fwd)
	}

	var runs []cdbg.SuperKmerRecord
	runStart := 0
	var runMin uint64
	for j := 0; j < numKmers; j++ {
		min := mHashes[j]
		for p := j + 1; p <= j+windowSize-1; p++ {
			if mHashes[p] < min {
				min = mHashes[p]
			}
		}
		if j == 0 {
			runStart, runMin = 0, min
			continue
		}
		if min != runMin {
			runs = append(runs, cdbg.SuperKmerRecord{Minimizer: runMin, Codes: codes[runStart : j-1+k]})
			runStart, runMin = j, min
		}
	}
	runs = append(runs, cdbg.SuperKmerRecord{Minimizer: runMin, Codes: codes[runStart : numKmers-1+k]})
	return runs
}

// TestBucketerMinimizerWindowCoversOnlyBasesInsideKmer is a regression
// test: each k-mer's minimizer must be the minimum m-mer hash among
// the m-mers strictly inside that k-mer's own K bases, never one that
// extends past its left edge into whatever preceded it in the read.
func TestBucketerMinimizerWindowCoversOnlyBasesInsideKmer(t *testing.T) {
	k, m, firstBits := 6, 3, 0
	bufs, writers := newTestBuckets(1<<firstBits, k, m)
	bk := NewBucketer(writers, k, m, firstBits, false)
	d := bk.NewDispatcher()

	codes, err := cdbg.EncodeSeq([]byte("ACGTTGCATGCATGCATG"))
	require.NoError(t, err)

	require.NoError(t, bk.ProcessSequence(d, 0, codes))
	require.NoError(t, d.Flush())

	got := readAllRecords(t, bufs[0])
	want := expectedMinimizerRuns(t, codes, k, m)

	require.Len(t, got, len(want), "run boundaries must match the correct in-kmer windowing")
	for i := range want {
		assert.Equal(t, want[i].Minimizer, got[i].Minimizer, "run %d minimizer", i)
		assert.Equal(t, len(want[i].Codes), len(got[i].Codes), "run %d length", i)
	}
}

func TestBucketerRunFansOutAcrossWorkers(t *testing.T) {
	k, m, firstBits := 11, 5, 3
	bufs, writers := newTestBuckets(1<<firstBits, k, m)
	bk := NewBucketer(writers, k, m, firstBits, true)

	src := &SliceSource{}
	for i := 0; i < 20; i++ {
		codes, err := cdbg.EncodeSeq(bytes.Repeat([]byte("ACGTG"), 6))
		require.NoError(t, err)
		src.Records = append(src.Records, SourceRecord{SampleID: uint32(i % 3), Codes: codes})
	}

	require.NoError(t, bk.Run(src, 4))

	var total int
	for _, buf := range bufs {
		total += len(readAllRecords(t, buf))
	}
	assert.Positive(t, total, "bucketing 20 sequences across 4 workers should produce at least one record")
}
