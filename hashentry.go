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
	"encoding/binary"
	"io"
)

// Direction says which end of a unitig half a HashEntry continues from.
type Direction byte

const (
	DirForward Direction = 0
	DirBackward Direction = 1
)

// HashEntry is a cross-bucket continuation stub that lets the assembler
// glue two unitig halves end to end (§4.3 step 5, §4.6). The engine
// writes it into the hash-entry file of the first-level bucket that
// produced the half; it is not re-routed by the terminal k-mer's
// first_bucket, and BuildJoinTable matches stubs across all of those
// files. The hash is always stored as 16 bytes regardless of which
// rolling hash produced it (HashHi is zero for the 64-bit NtHash case)
// so every hash-entry bucket shares one fixed row size.
type HashEntry struct {
	HashHi      uint64
	HashLo      uint64
	BucketID    uint32
	UnitigLocal uint32
	Direction   Direction
}

const hashEntrySize = 8 + 8 + 4 + 4 + 1

// HashEntryFromCanonical packs a 64-bit NtHash identity into a HashEntry.
func HashEntryFromCanonical(hash uint64, bucketID, unitigLocal uint32, dir Direction) HashEntry {
	return HashEntry{HashLo: hash, BucketID: bucketID, UnitigLocal: unitigLocal, Direction: dir}
}

// HashEntryFromCode128 packs a 128-bit SeqHash identity into a HashEntry.
func HashEntryFromCode128(hash Code128, bucketID, unitigLocal uint32, dir Direction) HashEntry {
	return HashEntry{HashHi: hash.Hi, HashLo: hash.Lo, BucketID: bucketID, UnitigLocal: unitigLocal, Direction: dir}
}

// WriteHashEntry appends one fixed-width record, same fixed-row-size
// approach as a binary index reader/writer doing io.ReadFull per row.
func WriteHashEntry(w io.Writer, e HashEntry) error {
	var buf [hashEntrySize]byte
	binary.BigEndian.PutUint64(buf[0:8], e.HashHi)
	binary.BigEndian.PutUint64(buf[8:16], e.HashLo)
	binary.BigEndian.PutUint32(buf[16:20], e.BucketID)
	binary.BigEndian.PutUint32(buf[20:24], e.UnitigLocal)
	buf[24] = byte(e.Direction)
	_, err := w.Write(buf[:])
	return err
}

// ReadHashEntry reads one fixed-width record, returning io.EOF
// unwrapped when the file is exhausted on a record boundary.
func ReadHashEntry(r io.Reader) (HashEntry, error) {
	var buf [hashEntrySize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return HashEntry{}, err
	}
	return HashEntry{
		HashHi:      binary.BigEndian.Uint64(buf[0:8]),
		HashLo:      binary.BigEndian.Uint64(buf[8:16]),
		BucketID:    binary.BigEndian.Uint32(buf[16:20]),
		UnitigLocal: binary.BigEndian.Uint32(buf[20:24]),
		Direction:   Direction(buf[24]),
	}, nil
}
