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
	"io"

	"github.com/cdbg-tools/cdbg"
)

// EngineConfig carries the build parameters every sub-bucket is
// processed under (§4.3, §6 "build_graph parameters").
type EngineConfig struct {
	K, M                              int
	Canonical                         bool
	FirstBucketBits, SecondBucketBits uint
	MinMultiplicity                   uint32
}

// Engine is the per-worker owner of one first-level bucket's Stage
// 1/Stage 2 processing: sub-bucketing, grouping, the bidirectional
// walk, and color-run emission (§4.3). One Engine's ColorManager must
// not be shared across goroutines processing different buckets
// concurrently -- it owns the global color subset table's interning
// path, which is already internally synchronized, but an Engine's own
// per-call last-subset cache is not (§5 "one Engine per worker").
type Engine struct {
	cfg    EngineConfig
	colors *ColorManager
}

func NewEngine(cfg EngineConfig, colors *ColorManager) *Engine {
	return &Engine{cfg: cfg, colors: colors}
}

// BucketResult summarizes one first-level bucket's walk: how many
// unitig halves and continuation stubs it wrote.
type BucketResult struct {
	Unitigs       int
	Continuations int
}

// ProcessBucket reads every super-k-mer routed to bucketID, walks its
// graph to completion, and writes finished unitigs and cross-bucket
// continuation stubs to unitigOut/heOut.
func (e *Engine) ProcessBucket(bucketID uint32, r io.Reader, unitigOut *cdbg.UnitigWriter, heOut io.Writer) (BucketResult, error) {
	br, err := cdbg.NewBucketReader(r)
	if err != nil {
		return BucketResult{}, err
	}

	subBuckets := make([][]cdbg.SuperKmerRecord, 1<<e.cfg.SecondBucketBits)
	for {
		rec, err := br.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return BucketResult{}, err
		}
		sb := cdbg.SecondBucket(rec.Minimizer, e.cfg.FirstBucketBits, e.cfg.SecondBucketBits)
		subBuckets[sb] = append(subBuckets[sb], rec)
	}

	var result BucketResult
	var unitigLocal uint32
	for _, records := range subBuckets {
		if len(records) == 0 {
			continue
		}
		n, err := e.processSubBucket(bucketID, records, &unitigLocal, unitigOut, heOut)
		if err != nil {
			return result, err
		}
		result.Unitigs += n.Unitigs
		result.Continuations += n.Continuations
	}
	return result, nil
}

// walkEntry pairs a mapEntry with the literal bases of its k-mer,
// captured at Touch time so a walk can seed its ExtHash state and
// initial unitig bytes without re-reading the sub-bucket's records.
type walkEntry struct {
	key   HashKey
	entry *mapEntry
	codes []byte // this k-mer's literal K bases
}

func (e *Engine) processSubBucket(bucketID uint32, records []cdbg.SuperKmerRecord, unitigLocal *uint32, unitigOut *cdbg.UnitigWriter, heOut io.Writer) (BucketResult, error) {
	// Flatten into ReadRef/byte-buffer form, then radix sort -- purely
	// for cache-friendly, deterministic processing order (tie-break
	// among equal minimizers is explicitly undefined, §9), not a
	// correctness requirement of the grouping itself.
	var bases []byte
	refs := make([]ReadRef, 0, len(records))
	for _, rec := range records {
		off := uint32(len(bases))
		bases = append(bases, rec.Codes...)
		refs = append(refs, ReadRef{Offset: off, Length: uint32(len(rec.Codes)), Minimizer: HashKey{Lo: rec.Minimizer}, Flags: rec.Flags})
	}
	RadixSortReads(refs)

	m := NewMap(len(bases))
	var order []walkEntry

	for _, ref := range refs {
		readCodes := bases[ref.Offset : ref.Offset+ref.Length]
		if len(readCodes) < e.cfg.K {
			continue
		}
		it, err := cdbg.NewHashIterator(readCodes, e.cfg.K)
		if err != nil {
			return BucketResult{}, err
		}
		numKmers := len(readCodes) - e.cfg.K + 1
		for i := 0; i < numKmers; i++ {
			h, ok := it.Next()
			if !ok {
				break
			}
			var v uint64
			if e.cfg.Canonical {
				v = h.Canonical()
			} else {
				v = h.Fwd
			}
			key := HashKey{Lo: v}
			beginIgnored := i == 0 && ref.Flags&cdbg.FlagBegin == 0
			endIgnored := i == numKmers-1 && ref.Flags&cdbg.FlagEnd == 0
			entry, _ := m.Touch(key, ref.Offset+uint32(i), beginIgnored, endIgnored, e.cfg.MinMultiplicity)
			order = append(order, walkEntry{key: key, entry: entry, codes: readCodes[i : i+e.cfg.K]})
		}
	}

	// process_colors needs every occurrence of a k-mer already
	// counted (its mapEntry.count final) before it sizes that k-mer's
	// slot, so coloring happens in its own pass after every Touch above
	// has run.
	for _, rec := range records {
		readCodes := rec.Codes
		if len(readCodes) < e.cfg.K {
			continue
		}
		it, err := cdbg.NewHashIterator(readCodes, e.cfg.K)
		if err != nil {
			return BucketResult{}, err
		}
		for {
			h, ok := it.Next()
			if !ok {
				break
			}
			var v uint64
			if e.cfg.Canonical {
				v = h.Canonical()
			} else {
				v = h.Fwd
			}
			if err := e.colors.ObserveKmer(m, HashKey{Lo: v}, rec.SampleID); err != nil {
				return BucketResult{}, err
			}
		}
	}

	var result BucketResult
	for _, we := range order {
		if we.entry.visited || !we.entry.reachedMultiplicity(e.cfg.MinMultiplicity) {
			continue
		}
		cont, err := e.walk(bucketID, m, we, unitigLocal, unitigOut, heOut)
		if err != nil {
			return result, err
		}
		result.Unitigs++
		result.Continuations += cont
	}
	return result, nil
}

// walk builds the maximal unitig containing seed, extending in both
// directions while the extension is unambiguous, per §4.3 step 4. Two
// fixed-length rolling windows (windowFwd/windowBack) track the
// literal bases of the k-mer currently being tested for extension,
// independent of codes, which only ever grows.
func (e *Engine) walk(bucketID uint32, m *Map, seed walkEntry, unitigLocal *uint32, unitigOut *cdbg.UnitigWriter, heOut io.Writer) (int, error) {
	seed.entry.visited = true

	codes := append([]byte(nil), seed.codes...)
	colors := &ColorRunBuilder{}
	colors.ExtendForward(subsetIDOf(seed.entry))

	it, err := cdbg.NewHashIterator(seed.codes, e.cfg.K)
	if err != nil {
		return 0, err
	}
	h, _ := it.Next()

	continuations := 0

	// A continuation stub is only ever written for a boundary k-mer --
	// one whose begin_ignored/end_ignored flag says its neighbor in
	// this direction might live in another first-level bucket (§4.3
	// step 4, §4.6). A plain in-bucket branch or dead end stops the
	// walk with no stub: there is nothing on the far side of a bucket
	// boundary to stitch, so writing one there would only risk pairing
	// two unrelated branch points that happen to share a hash-entry
	// bucket with each other.
	windowFwd := append([]byte(nil), seed.codes...)
	cur := h
	curEntry := seed.entry
	for {
		outBase := windowFwd[0]
		cand, ok := e.tryExtend(m, cur, outBase, true)
		if !ok {
			if curEntry.endIgnored {
				if err := e.writeContinuation(heOut, bucketID, *unitigLocal, cdbg.DirForward, cur); err != nil {
					return 0, err
				}
				continuations++
			}
			break
		}
		if cand.entry == seed.entry || cand.entry.visited {
			break // closed into a cycle, or met an already-walked node
		}
		cand.entry.visited = true
		codes = append(codes, cand.base)
		colors.ExtendForward(subsetIDOf(cand.entry))
		windowFwd = append(windowFwd[1:], cand.base)
		cur, curEntry = cand.hash, cand.entry
		if curEntry.endIgnored {
			// Extension could continue, but this k-mer is itself a
			// read boundary: the unitig may keep going through another
			// first-level bucket, so stop here and leave a stub.
			if err := e.writeContinuation(heOut, bucketID, *unitigLocal, cdbg.DirForward, cur); err != nil {
				return 0, err
			}
			continuations++
			break
		}
	}

	windowBack := append([]byte(nil), seed.codes...)
	cur, curEntry = h, seed.entry
	for {
		outBase := windowBack[len(windowBack)-1]
		cand, ok := e.tryExtend(m, cur, outBase, false)
		if !ok {
			if curEntry.beginIgnored {
				if err := e.writeContinuation(heOut, bucketID, *unitigLocal, cdbg.DirBackward, cur); err != nil {
					return 0, err
				}
				continuations++
			}
			break
		}
		if cand.entry == seed.entry || cand.entry.visited {
			break
		}
		cand.entry.visited = true
		codes = append([]byte{cand.base}, codes...)
		colors.ExtendBackward(subsetIDOf(cand.entry))
		windowBack = append([]byte{cand.base}, windowBack[:len(windowBack)-1]...)
		cur, curEntry = cand.hash, cand.entry
		if curEntry.beginIgnored {
			if err := e.writeContinuation(heOut, bucketID, *unitigLocal, cdbg.DirBackward, cur); err != nil {
				return 0, err
			}
			continuations++
			break
		}
	}

	rec := cdbg.UnitigRecord{
		ID:     uint64(*unitigLocal),
		Codes:  codes,
		Colors: colors.Runs(),
	}
	if err := unitigOut.WriteUnitig(rec); err != nil {
		return 0, err
	}
	*unitigLocal++
	return continuations, nil
}

type extCandidate struct {
	base  byte
	hash  cdbg.ExtHash
	key   HashKey
	entry *mapEntry
}

// tryExtend looks at the (up to) four candidate bases in direction
// forward (true) or backward (false) from h, and accepts the
// extension only when exactly one candidate is present in m at
// min_multiplicity AND that candidate's own reverse neighborhood also
// resolves to exactly one entry -- the in-degree/out-degree-1 rule
// that keeps a unitig a simple, unbranched path (§4.3 step 4). A
// rejection (ok=false) covers both a genuine dead end and a real
// branch point alike; the caller tells them apart from a bucket
// boundary using the frontier entry's own begin/end_ignored flag, not
// anything returned here.
func (e *Engine) tryExtend(m *Map, h cdbg.ExtHash, outBase byte, forward bool) (extCandidate, bool) {
	var candidates []extCandidate
	for base := byte(0); base < 4; base++ {
		var nh cdbg.ExtHash
		if forward {
			nh = cdbg.RollForward(h, e.cfg.K, outBase, base)
		} else {
			nh = cdbg.RollReverse(h, e.cfg.K, outBase, base)
		}
		var v uint64
		if e.cfg.Canonical {
			v = nh.Canonical()
		} else {
			v = nh.Fwd
		}
		key := HashKey{Lo: v}
		entry, ok := m.Get(key)
		if !ok || !entry.reachedMultiplicity(e.cfg.MinMultiplicity) {
			continue
		}
		candidates = append(candidates, extCandidate{base: base, hash: nh, key: key, entry: entry})
	}
	if len(candidates) != 1 {
		return extCandidate{}, false
	}
	cand := candidates[0]
	if e.reverseInDegree(m, cand.hash, cand.base, forward) != 1 {
		// A unique forward (or backward) step whose chosen neighbor is
		// itself reachable from more than one predecessor is a real
		// branch point, not an extension: reject it the same as the
		// zero-candidate case.
		return extCandidate{}, false
	}
	return cand, true
}

// reverseInDegree counts how many of the (up to) four bases that could
// have preceded nh -- in the direction opposite to forward -- are
// themselves present in m at min_multiplicity. base is the literal
// base that was just consumed to reach nh (RollForward/RollReverse's
// own outBase/b* parameter, §4.1). Exactly one hit confirms nh has a
// single predecessor in this direction, the in-degree-1 half of
// §4.3 step 4's branch rejection.
func (e *Engine) reverseInDegree(m *Map, nh cdbg.ExtHash, base byte, forward bool) int {
	count := 0
	for x := byte(0); x < 4; x++ {
		var rh cdbg.ExtHash
		if forward {
			rh = cdbg.RollReverse(nh, e.cfg.K, base, x)
		} else {
			rh = cdbg.RollForward(nh, e.cfg.K, base, x)
		}
		var v uint64
		if e.cfg.Canonical {
			v = rh.Canonical()
		} else {
			v = rh.Fwd
		}
		if entry, ok := m.Get(HashKey{Lo: v}); ok && entry.reachedMultiplicity(e.cfg.MinMultiplicity) {
			count++
		}
	}
	return count
}

// writeContinuation emits a HashEntry stub so the assemble stage can
// join this unitig half to whatever lies on the other side of the
// first-level-bucket boundary it ended on (§4.3 step 5, §4.6).
func (e *Engine) writeContinuation(heOut io.Writer, bucketID, unitigLocal uint32, dir cdbg.Direction, h cdbg.ExtHash) error {
	var v uint64
	if e.cfg.Canonical {
		v = h.Canonical()
	} else {
		v = h.Fwd
	}
	entry := cdbg.HashEntryFromCanonical(v, bucketID, unitigLocal, dir)
	return cdbg.WriteHashEntry(heOut, entry)
}
