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

// Package colorset implements the global color subset table: a
// concurrent content-addressed store mapping sorted-unique color
// subsets to dense 32-bit ids, backed by an appendable on-disk
// run-length serializer (§4.5, §6 "Color subset table file").
package colorset

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/cdbg-tools/cdbg"
)

// Magic identifies a color subset table file.
var Magic = [8]byte{'c', 'd', 'b', 'g', 'c', 'l', 'r', '1'}

// Header records the sample names the table was built against, in the
// order their ids were assigned (§4.5 "Created with an initial list of
// color names").
type Header struct {
	Names []string
}

// WriteHeader writes the magic, then |names|, then each length-prefixed
// UTF-8 name -- the lazy-header-on-first-write idiom generalized to a
// header written once, up front, since the name list is known before
// any subset is interned.
func WriteHeader(w io.Writer, hdr Header) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return errors.Wrap(err, "writing color table magic")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(hdr.Names)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "writing color name count")
	}
	for _, name := range hdr.Names {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(name)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return errors.Wrap(err, "writing color name length")
		}
		if _, err := io.WriteString(w, name); err != nil {
			return errors.Wrap(err, "writing color name")
		}
	}
	return nil
}

// ReadHeader is WriteHeader's inverse.
func ReadHeader(r io.Reader) (Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, errors.Wrap(err, "reading color table magic")
	}
	if magic != Magic {
		return Header{}, errors.New("colorset: bad magic number")
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Header{}, errors.Wrap(err, "reading color name count")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	names := make([]string, n)
	for i := range names {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Header{}, errors.Wrap(err, "reading color name length")
		}
		buf := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(r, buf); err != nil {
			return Header{}, errors.Wrap(err, "reading color name")
		}
		names[i] = string(buf)
	}
	return Header{Names: names}, nil
}

// WriteSubsetEntry appends one subset's id and its run-length encoding
// to w: varint(id), then one (base delta varint, run_length varint) pair
// per sample id -- the first delta is the id itself, each later one the
// difference from the previous id, and run_length is always 1 -- closed
// by a (0, 0) sentinel pair whose zero run length ends the entry -- the
// "RunLengthColorsSerializer" shape named in §4.5 and §6. Each entry is
// encoded on its own: it shares no prefix with earlier entries.
func WriteSubsetEntry(w io.Writer, id uint32, subset []uint32) error {
	buf := cdbg.PutVarint(nil, uint64(id))
	var prev uint64
	for i, s := range subset {
		base := uint64(s)
		delta := base
		if i > 0 {
			delta = base - prev
		}
		prev = base
		buf = cdbg.PutVarint(buf, delta)
		buf = cdbg.PutVarint(buf, 1) // run length of 1 per distinct id; adjacent equal ids never occur (subset is deduplicated)
	}
	buf = cdbg.PutVarint(buf, 0) // sentinel pair: zero delta ...
	buf = cdbg.PutVarint(buf, 0) // ... and zero run length, which closes the entry
	_, err := w.Write(buf)
	return err
}

// ReadSubsetEntry reads one entry written by WriteSubsetEntry.
func ReadSubsetEntry(r *bufio.Reader) (id uint32, subset []uint32, err error) {
	v, err := cdbg.ReadVarint(r)
	if err != nil {
		return 0, nil, err // io.EOF passes through on a clean entry boundary
	}
	id = uint32(v)
	var prev uint64
	for {
		delta, err := cdbg.ReadVarint(r)
		if err != nil {
			return 0, nil, errors.Wrap(err, "reading subset base delta")
		}
		runLength, err := cdbg.ReadVarint(r)
		if err != nil {
			return 0, nil, errors.Wrap(err, "reading subset run length")
		}
		if runLength == 0 {
			break
		}
		base := prev + delta
		prev = base
		subset = append(subset, uint32(base))
	}
	return id, subset, nil
}
