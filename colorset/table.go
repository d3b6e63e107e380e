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

package colorset

import (
	"io"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/dustin/go-humanize"
	logging "github.com/shenwei356/go-logging"

	"github.com/cdbg-tools/cdbg"
)

var log = logging.MustGetLogger("colorset")

// Table is the process-wide color subset table (§4.5): a
// content-addressed store mapping a sorted-unique sample-id subset to a
// dense 32-bit id. It is passed around as an explicit handle, per §9's
// design note ("model as an explicitly-passed handle rather than a
// singleton"), not a package-level global.
type Table struct {
	mu      sync.Mutex
	w       io.Writer
	byKey   map[uint64][]entry
	nextID  uint32
	lookups uint64
	interns uint64
}

type entry struct {
	key    []byte // the subset's byte-serialized form, for collision checks
	subset []uint32
	id     uint32
}

// New creates an empty table that appends interned subsets to w as they
// are assigned, after having written hdr.
func New(w io.Writer, hdr Header) (*Table, error) {
	if err := WriteHeader(w, hdr); err != nil {
		return nil, err
	}
	return &Table{w: w, byKey: make(map[uint64][]entry)}, nil
}

// subsetKey serializes subset (already sorted, already deduplicated)
// into the bytes GetID hashes for its in-memory dedup key: the ids as
// varint deltas, the first one as itself. The on-disk record that
// WriteSubsetEntry writes carries the same deltas, but also the subset
// id, a run length after each delta and a closing sentinel pair.
func subsetKey(subset []uint32) []byte {
	var buf []byte
	var prev uint64
	for i, s := range subset {
		v := uint64(s)
		d := v
		if i > 0 {
			d = v - prev
		}
		prev = v
		buf = cdbg.PutVarint(buf, d)
	}
	return buf
}

// GetID returns subset's dense id, allocating a fresh one and appending
// it to the backing file on first sight. Idempotent: concurrent calls
// with equal (sorted, deduplicated) subsets observe the same id (§8
// property 8, §4.5's linearization-by-subset-content requirement).
// subset must already be sorted ascending with no duplicates.
func (t *Table) GetID(subset []uint32) (uint32, error) {
	key := subsetKey(subset)
	h := xxhash.Sum64(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookups++
	for _, e := range t.byKey[h] {
		if sameBytes(e.key, key) {
			return e.id, nil
		}
	}

	id := t.nextID
	t.nextID++
	t.interns++
	if err := WriteSubsetEntry(t.w, id, subset); err != nil {
		return 0, err
	}
	subsetCopy := append([]uint32(nil), subset...)
	t.byKey[h] = append(t.byKey[h], entry{key: key, subset: subsetCopy, id: id})
	return id, nil
}

func sameBytes(a, b []byte) bool {
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

// Len reports how many distinct subsets have been interned so far.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.nextID)
}

// PrintStats logs a one-line summary of the table's hit rate, same
// spirit as a --verbose stats command reporting human-readable counts.
func (t *Table) PrintStats() {
	t.mu.Lock()
	lookups, interns, n := t.lookups, t.interns, t.nextID
	t.mu.Unlock()
	log.Infof("color subset table: %s distinct subsets interned out of %s lookups (%s entries)",
		humanize.Comma(int64(interns)), humanize.Comma(int64(lookups)), humanize.Comma(int64(n)))
}
