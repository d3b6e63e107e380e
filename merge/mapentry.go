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

// HashKey is the map key for a k-mer's unextendable identity. Hi is
// zero for a 64-bit NtHash identity; both halves are used for a 128-bit
// SeqHash identity. One key shape lets the engine stay oblivious to
// which rolling hash produced it.
type HashKey struct {
	Hi uint64
	Lo uint64
}

// colorState is the discriminator of the three-state lifecycle §3/§9
// describes as a single overloaded counter. Rather than a union trick
// (bits of one field reinterpreted by phase), this is kept as an
// explicit tagged field -- the "separated representation" the design
// notes prefer (§9, resolved in DESIGN.md): callers can never observe
// a partial transition because the state tag
// and its payload are written together, under the single-threaded,
// single-owner-per-sub-bucket discipline §5 requires.
type colorState byte

const (
	colorStateNone  colorState = iota // accumulating; count is a raw occurrence tally
	colorStateSlot                    // walkData is a start index into a colorManager's temp_colors buffer
	colorStateFinal                   // walkData is an interned colorset.Table subset id
)

// mapEntry is the transient, per-sub-bucket record built during Stage 2
// (§3 "Map entry", §4.3 step 3). It exists only for the lifetime of one
// sub-bucket's processing and is never shared across bucket boundaries.
type mapEntry struct {
	count uint32 // occurrence count; keeps counting past min_multiplicity (ColorManager sizes slots from the final count)

	visited bool // walk consumed this k-mer; never traversed a second time

	state    colorState
	walkData uint32 // meaning depends on state: slot start, or final subset id

	position uint32 // offset of the k-mer's first base in the sub-bucket's unpacked (one code per byte) base buffer

	beginIgnored bool // this k-mer's read began at a first-level-bucket boundary
	endIgnored   bool // this k-mer's read ended at a first-level-bucket boundary
}

// reachedMultiplicity reports whether this entry has accumulated enough
// observations to be eligible for walking and coloring (§3 invariant:
// "A k-mer whose count is below min_multiplicity is invisible to
// walking and coloring").
func (e *mapEntry) reachedMultiplicity(minMultiplicity uint32) bool {
	return e.count >= minMultiplicity
}

// Map is the transient hash map built per sub-bucket in Stage 2 step 3
// (one map covers every minimizer group of the sub-bucket), keyed by the
// full k-mer hash. Implementations should prefer this
// plain-value, reference-free shape over anything with internal
// pointers or reference counting, per §9's "Cyclic/shared entities"
// note: there is no graph here, only hash lookups.
type Map struct {
	entries map[HashKey]*mapEntry
}

func NewMap(sizeHint int) *Map {
	return &Map{entries: make(map[HashKey]*mapEntry, sizeHint)}
}

// Touch records one more observation of key, creating its entry on
// first sight. It returns the entry and whether this touch was the one
// that reached min_multiplicity (the moment §4.3 step 3 calls out for
// seed-candidate collection).
func (m *Map) Touch(key HashKey, position uint32, beginIgnored, endIgnored bool, minMultiplicity uint32) (e *mapEntry, justReachedThreshold bool) {
	e, ok := m.entries[key]
	if !ok {
		e = &mapEntry{position: position, beginIgnored: beginIgnored, endIgnored: endIgnored}
		m.entries[key] = e
	}
	e.count++
	// A boundary k-mer might be touched once as a boundary read and
	// again as an interior read of a different super-k-mer in the same
	// group; once true, a flag must never flip back to false.
	e.beginIgnored = e.beginIgnored || beginIgnored
	e.endIgnored = e.endIgnored || endIgnored
	return e, e.count == minMultiplicity
}

// Get looks up key and reports whether it is present. It asserts
// nothing; ObserveKmer turns a miss into ErrSeedNotFound (§4.3's
// "Failure handling").
func (m *Map) Get(key HashKey) (*mapEntry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

func (m *Map) Len() int { return len(m.entries) }
