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
	"sync"

	"github.com/cdbg-tools/cdbg"
)

// flushRecordThreshold bounds a dispatcher's per-bucket pending slice
// before it is flushed under that bucket's writer lock, standing in
// for the "≤64KiB thread-local buffer" sizing of §4.2/§5 without
// depending on an exact record-byte accounting.
const flushRecordThreshold = 512

// minimizerWindow is a monotonic deque of candidate minimizer hashes
// over a sliding window of m-mers, giving each k-mer position its
// window minimum in amortized O(1) (§4.2 "Minimizer selection").
type minimizerWindow struct {
	idx  []int
	hash []uint64
	head int
}

func (w *minimizerWindow) push(i int, h uint64) {
	for len(w.idx) > w.head && w.hash[len(w.hash)-1] >= h {
		w.idx = w.idx[:len(w.idx)-1]
		w.hash = w.hash[:len(w.hash)-1]
	}
	w.idx = append(w.idx, i)
	w.hash = append(w.hash, h)
}

func (w *minimizerWindow) evictBefore(minIdx int) {
	for w.head < len(w.idx) && w.idx[w.head] < minIdx {
		w.head++
	}
}

func (w *minimizerWindow) min() uint64 {
	return w.hash[w.head]
}

func (w *minimizerWindow) reset() {
	w.idx = w.idx[:0]
	w.hash = w.hash[:0]
	w.head = 0
}

// BucketDispatcher routes super-k-mer records into the shared,
// mutex-protected first-level bucket writers, batching writes per
// bucket so a worker goroutine doesn't take a lock for every single
// super-k-mer it produces (§4.2, §5 "one bucket writer per first-level
// bucket, shared across worker goroutines").
type BucketDispatcher struct {
	writers []*cdbg.BucketWriter
	mus     []*sync.Mutex
	pending [][]cdbg.SuperKmerRecord
}

func newBucketDispatcher(writers []*cdbg.BucketWriter, mus []*sync.Mutex) *BucketDispatcher {
	return &BucketDispatcher{
		writers: writers,
		mus:     mus,
		pending: make([][]cdbg.SuperKmerRecord, len(writers)),
	}
}

func (d *BucketDispatcher) dispatch(bucket int, rec cdbg.SuperKmerRecord) error {
	d.pending[bucket] = append(d.pending[bucket], rec)
	if len(d.pending[bucket]) >= flushRecordThreshold {
		return d.flushBucket(bucket)
	}
	return nil
}

func (d *BucketDispatcher) flushBucket(bucket int) error {
	if len(d.pending[bucket]) == 0 {
		return nil
	}
	d.mus[bucket].Lock()
	defer d.mus[bucket].Unlock()
	for _, rec := range d.pending[bucket] {
		if err := d.writers[bucket].WriteRecord(rec); err != nil {
			return err
		}
	}
	d.pending[bucket] = d.pending[bucket][:0]
	return nil
}

// Flush drains every bucket's pending slice. Call once a worker
// goroutine is done processing its share of sequences.
func (d *BucketDispatcher) Flush() error {
	for i := range d.pending {
		if err := d.flushBucket(i); err != nil {
			return err
		}
	}
	return nil
}

// Bucketer implements §4.2: it slides a window of m-mer hashes across
// each sequence, assigns every k-mer its window-minimum minimizer, and
// groups consecutive k-mers sharing a minimizer into a super-k-mer
// that it routes to one of FirstBucketsCount first-level disk buckets.
type Bucketer struct {
	K, M             int
	Canonical        bool
	FirstBucketBits  int
	writers          []*cdbg.BucketWriter
	mus              []*sync.Mutex
}

// NewBucketer wires one BucketDispatcher-shared writer set per
// first-level bucket. writers must have length 1<<firstBucketBits.
func NewBucketer(writers []*cdbg.BucketWriter, k, m, firstBucketBits int, canonical bool) *Bucketer {
	mus := make([]*sync.Mutex, len(writers))
	for i := range mus {
		mus[i] = &sync.Mutex{}
	}
	return &Bucketer{
		K: k, M: m, Canonical: canonical, FirstBucketBits: firstBucketBits,
		writers: writers, mus: mus,
	}
}

// NewDispatcher returns a fresh per-worker dispatcher sharing this
// bucketer's writer set.
func (bk *Bucketer) NewDispatcher() *BucketDispatcher {
	return newBucketDispatcher(bk.writers, bk.mus)
}

// ProcessSequence emits sampleID's super-k-mers into d. Sequences
// shorter than K are skipped -- too short to contain a single k-mer,
// not an error condition (§4.2 edge case).
func (bk *Bucketer) ProcessSequence(d *BucketDispatcher, sampleID uint32, codes []byte) error {
	n := len(codes)
	if n < bk.K {
		return nil
	}

	mIter, err := cdbg.NewHashIterator(codes, bk.M)
	if err != nil {
		return err
	}

	numKmers := n - bk.K + 1
	windowSize := bk.K - bk.M + 1

	win := &minimizerWindow{}
	runStart := 0
	var runMinimizer uint64
	haveRun := false

	emit := func(start, end int, lastRun bool) error {
		// end is exclusive k-mer index; bases covered are
		// codes[start : end-1+K].
		recCodes := codes[start : end-1+bk.K]
		var flags byte
		if start == 0 {
			flags |= cdbg.FlagBegin
		}
		if lastRun {
			flags |= cdbg.FlagEnd
		}
		rec := cdbg.SuperKmerRecord{
			SampleID:  sampleID,
			Flags:     flags,
			Minimizer: runMinimizer,
			Codes:     recCodes,
		}
		bucket := cdbg.FirstBucket(runMinimizer, uint(bk.FirstBucketBits))
		return d.dispatch(int(bucket), rec)
	}

	// A k-mer at index j spans m-mer positions [j, j+windowSize-1]
	// (§4.2, §3 "Minimizer"): its minimizer can't be known until the
	// m-mer at the far end of its own window has been hashed, so
	// k-mer emission lags m-mer consumption by windowSize-1 positions.
	for p := 0; ; p++ {
		mh, ok := mIter.Next()
		if !ok {
			break
		}
		var h uint64
		if bk.Canonical {
			h = mh.Canonical()
		} else {
			h = mh.Fwd
		}
		win.push(p, h)
		win.evictBefore(p - windowSize + 1)
		if p < windowSize-1 {
			continue
		}
		j := p - windowSize + 1

		cur := win.min()
		if !haveRun {
			runStart = j
			runMinimizer = cur
			haveRun = true
			continue
		}
		if cur != runMinimizer {
			if err := emit(runStart, j, false); err != nil {
				return err
			}
			runStart = j
			runMinimizer = cur
		}
	}
	if haveRun {
		if err := emit(runStart, numKmers, true); err != nil {
			return err
		}
	}
	return nil
}

// Run drains src sequentially (SequenceSource is not assumed to be
// safe for concurrent calls) and fans each sequence out to a pool of
// threads worker goroutines, each with its own dispatcher so only the
// eventual bucket-file writes need a lock (§5 "Concurrency Model").
func (bk *Bucketer) Run(src SequenceSource, threads int) error {
	if threads < 1 {
		threads = 1
	}
	type job struct {
		sampleID uint32
		codes    []byte
	}
	jobs := make(chan job, threads*4)
	errs := make(chan error, threads)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := bk.NewDispatcher()
			for j := range jobs {
				if err := bk.ProcessSequence(d, j.sampleID, j.codes); err != nil {
					errs <- err
					continue
				}
			}
			if err := d.Flush(); err != nil {
				errs <- err
			}
		}()
	}

	var readErr error
	for {
		sampleID, codes, ok, err := src.Next()
		if err != nil {
			readErr = err
			break
		}
		if !ok {
			break
		}
		jobs <- job{sampleID: sampleID, codes: codes}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if readErr != nil {
		return readErr
	}
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
