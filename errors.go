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

import "errors"

// Sentinel errors used throughout the cdbg, colorset, merge and assemble
// packages. Call sites wrap these with github.com/pkg/errors to attach
// positional context before they reach a worker's top level.
var (
	ErrIllegalBase         = errors.New("cdbg: illegal base")
	ErrKOverflow           = errors.New("cdbg: k exceeds this hash's representable width")
	ErrInvalidK            = errors.New("cdbg: invalid k-mer size")
	ErrInvalidM            = errors.New("cdbg: minimizer size must satisfy 1 <= m < k")
	ErrShortSeq            = errors.New("cdbg: sequence shorter than k")
	ErrInvalidFileFormat   = errors.New("cdbg: bad magic number in binary file")
	ErrTruncatedRecord     = errors.New("cdbg: truncated record")
	ErrKMismatch           = errors.New("cdbg: k mismatch between reader and header")
	ErrIntermediateCorrupt = errors.New("cdbg: corrupt intermediate file")
	ErrSeedNotFound        = errors.New("cdbg: seed k-mer absent from its own sub-bucket map")
	ErrColorSlotOverflow   = errors.New("cdbg: color observation slot filled past its allotment")
)

// Classifying sentinels: not raised directly, but wrapped around a
// concrete error with pkg/errors.Wrap at the point a mistake is
// recognized, so cmd.checkError can pick an exit code with errors.Is
// without losing the original message (§7).
//
//	return errors.Wrap(cdbg.ErrInvalidParameter, "minimizer length must be smaller than k")
var (
	ErrInvalidParameter  = errors.New("cdbg: invalid parameter")
	ErrInputFormat       = errors.New("cdbg: invalid input format")
	ErrResourceExhausted = errors.New("cdbg: resource exhausted")
	ErrFatal             = errors.New("cdbg: fatal error")
)
