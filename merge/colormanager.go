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
	"github.com/twotwotwo/sorts/sortutil"

	"github.com/cdbg-tools/cdbg"
	"github.com/cdbg-tools/cdbg/colorset"
)

// ColorManager is the color merge manager of §4.4, one per first-level
// bucket's Engine, serving each of that bucket's sub-buckets in turn;
// fixed per the §9 open question to size each k-mer's slot from its
// post-filter observation count (computed in the Touch pass, §4.3
// step 3) rather than the pre-filter count.
type ColorManager struct {
	table           *colorset.Table
	minMultiplicity uint32

	// arena is the shared temp_colors_buffer: each k-mer that reaches
	// min_multiplicity is given a contiguous slice of length count+1
	// (slot 0 = absolute write cursor, slots 1..count = unsorted
	// sample ids collected across that k-mer's observations).
	arena []uint32

	lastSubset []uint32
	lastID     uint32
	hasLast    bool
}

func NewColorManager(table *colorset.Table, minMultiplicity uint32) *ColorManager {
	return &ColorManager{table: table, minMultiplicity: minMultiplicity}
}

// ObserveKmer is process_colors' per-k-mer step: called once per
// (sampleID, kmer) occurrence, after every Touch for the owning
// sub-bucket has already run (so e.count is final before any slot is sized --
// resolving §9's slot over/under-allocation question).
func (cm *ColorManager) ObserveKmer(m *Map, key HashKey, sampleID uint32) error {
	e, ok := m.Get(key)
	if !ok {
		return cdbg.ErrSeedNotFound
	}
	if !e.reachedMultiplicity(cm.minMultiplicity) {
		return nil // filtered k-mer: invisible to coloring, §3 invariant
	}
	if e.state == colorStateFinal {
		return nil // already interned by an earlier super-k-mer's pass
	}
	if e.state == colorStateNone {
		start := len(cm.arena)
		cm.arena = append(cm.arena, make([]uint32, e.count+1)...)
		cm.arena[start] = uint32(start) + 1
		e.state = colorStateSlot
		e.walkData = uint32(start)
	}

	start := e.walkData
	writeIdx := cm.arena[start]
	if writeIdx-start-1 >= e.count {
		return cdbg.ErrColorSlotOverflow
	}
	cm.arena[writeIdx] = sampleID
	writeIdx++
	cm.arena[start] = writeIdx

	if writeIdx-start-1 == e.count {
		ids := cm.arena[start+1 : start+1+e.count]
		subset := sortDedupSampleIDs(ids)
		id, err := cm.intern(subset)
		if err != nil {
			return err
		}
		e.state = colorStateFinal
		e.walkData = id
	}
	return nil
}

// sortDedupSampleIDs sorts ids (widened to uint64 so the pack's
// parallel sort utility can be reused verbatim) and collapses repeats,
// returning a fresh sorted-unique subset.
func sortDedupSampleIDs(ids []uint32) []uint32 {
	widened := make([]uint64, len(ids))
	for i, v := range ids {
		widened[i] = uint64(v)
	}
	sortutil.Uint64s(widened)

	out := make([]uint32, 0, len(widened))
	var last uint64
	for i, v := range widened {
		if i == 0 || v != last {
			out = append(out, uint32(v))
			last = v
		}
	}
	return out
}

// intern interns subset in the global table, skipping the lookup
// entirely when it matches the previous call's subset -- the
// last-subset cache optimization named in §4.4.
func (cm *ColorManager) intern(subset []uint32) (uint32, error) {
	if cm.hasLast && sameSubset(cm.lastSubset, subset) {
		return cm.lastID, nil
	}
	id, err := cm.table.GetID(subset)
	if err != nil {
		return 0, err
	}
	cm.lastSubset = append(cm.lastSubset[:0], subset...)
	cm.lastID = id
	cm.hasLast = true
	return id, nil
}

func sameSubset(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// subsetIDOf returns e's interned subset id. e must already be in
// colorStateFinal (true once every k-mer of its owning sub-bucket has
// been through ObserveKmer).
func subsetIDOf(e *mapEntry) uint32 {
	return e.walkData
}

// ColorRunBuilder accumulates the run-length color track attached to a
// unitig as it is walked (§4.4 "Unitig color run emission").
type ColorRunBuilder struct {
	runs []cdbg.ColorRun
}

// ExtendForward appends subsetID to the right end of the run deque,
// merging into the last run when it shares the same subset.
func (b *ColorRunBuilder) ExtendForward(subsetID uint32) {
	if n := len(b.runs); n > 0 && b.runs[n-1].SubsetID == subsetID {
		b.runs[n-1].RunLength++
		return
	}
	b.runs = append(b.runs, cdbg.ColorRun{SubsetID: subsetID, RunLength: 1})
}

// ExtendBackward prepends subsetID to the left end of the run deque.
func (b *ColorRunBuilder) ExtendBackward(subsetID uint32) {
	if n := len(b.runs); n > 0 && b.runs[0].SubsetID == subsetID {
		b.runs[0].RunLength++
		return
	}
	b.runs = append([]cdbg.ColorRun{{SubsetID: subsetID, RunLength: 1}}, b.runs...)
}

// PopBase removes one k-mer from the right end of the track, undoing the
// most recent ExtendForward, and drops the last run once its length
// reaches zero. It never touches the left end, so it does not undo
// ExtendBackward.
func (b *ColorRunBuilder) PopBase() {
	n := len(b.runs)
	if n == 0 {
		return
	}
	b.runs[n-1].RunLength--
	if b.runs[n-1].RunLength == 0 {
		b.runs = b.runs[:n-1]
	}
}

// Runs returns the finished run-length track, ready for serialization
// per §6 ("varint(count), then count x (varint(subset_id),
// varint(run_length))") or for a unitig header's " C:" segments.
func (b *ColorRunBuilder) Runs() []cdbg.ColorRun { return b.runs }
