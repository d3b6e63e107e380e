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
	"bytes"
	"io"
	"testing"
)

func TestUnitigWriterReaderRoundTrip(t *testing.T) {
	codes, err := EncodeSeq([]byte("ACGTACGTACGT"))
	if err != nil {
		t.Fatal(err)
	}
	records := []UnitigRecord{
		{
			ID:    1,
			Codes: codes,
			Links: []Link{
				{Strand: '+', OtherID: 2, OtherStrand: '-'},
			},
			Colors: []ColorRun{
				{SubsetID: 0xff, RunLength: 5},
				{SubsetID: 0, RunLength: 7},
			},
		},
		{ID: 2, Codes: codes[:4]},
	}

	var buf bytes.Buffer
	uw := NewUnitigWriter(&buf)
	for _, rec := range records {
		if err := uw.WriteUnitig(rec); err != nil {
			t.Fatalf("WriteUnitig: %v", err)
		}
	}
	if err := uw.Flush(); err != nil {
		t.Fatal(err)
	}

	ur := NewUnitigReader(bytes.NewReader(buf.Bytes()))
	for i, want := range records {
		got, err := ur.ReadUnitig()
		if err != nil {
			t.Fatalf("ReadUnitig[%d]: %v", i, err)
		}
		if got.ID != want.ID {
			t.Errorf("record[%d].ID = %d, want %d", i, got.ID, want.ID)
		}
		if !bytes.Equal(got.Codes, want.Codes) {
			t.Errorf("record[%d].Codes = %v, want %v", i, got.Codes, want.Codes)
		}
		if len(got.Links) != len(want.Links) {
			t.Fatalf("record[%d] has %d links, want %d", i, len(got.Links), len(want.Links))
		}
		for j, l := range want.Links {
			if got.Links[j] != l {
				t.Errorf("record[%d].Links[%d] = %+v, want %+v", i, j, got.Links[j], l)
			}
		}
		if len(got.Colors) != len(want.Colors) {
			t.Fatalf("record[%d] has %d color runs, want %d", i, len(got.Colors), len(want.Colors))
		}
		for j, c := range want.Colors {
			if got.Colors[j] != c {
				t.Errorf("record[%d].Colors[%d] = %+v, want %+v", i, j, got.Colors[j], c)
			}
		}
	}
	if _, err := ur.ReadUnitig(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
