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

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	gzip "github.com/klauspost/pgzip"
	perrors "github.com/pkg/errors"
	"github.com/shenwei356/go-logging"
	"github.com/spf13/cobra"

	"github.com/cdbg-tools/cdbg"
)

var log = logging.MustGetLogger("cdbg")

// Options carries the global, persistent flags every subcommand reads.
type Options struct {
	NumCPUs  int
	Verbose  bool
	Compress bool
}

func getOptions(cmd *cobra.Command) *Options {
	return &Options{
		NumCPUs:  getFlagPositiveInt(cmd, "threads"),
		Verbose:  getFlagBool(cmd, "verbose"),
		Compress: !getFlagBool(cmd, "no-compress"),
	}
}

// checkError prints err and exits, using exit code 2 for a parameter
// mistake (caught before any work starts) and 1 for everything that
// goes wrong once a build or query is already running (§7).
func checkError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	if errors.Is(err, cdbg.ErrInvalidParameter) {
		os.Exit(2)
	}
	os.Exit(1)
}

// wrapResourceExhausted classifies a failure to create a file or
// directory as resource exhaustion (out of file descriptors or disk),
// the usual cause (§7). Returns nil if err is nil.
func wrapResourceExhausted(err error, msg string) error {
	if err == nil {
		return nil
	}
	return perrors.Wrapf(cdbg.ErrResourceExhausted, "%s: %s", msg, err)
}

func getFlagString(cmd *cobra.Command, flag string) string {
	v, err := cmd.Flags().GetString(flag)
	checkError(err)
	return v
}

func getFlagBool(cmd *cobra.Command, flag string) bool {
	v, err := cmd.Flags().GetBool(flag)
	checkError(err)
	return v
}

func getFlagInt(cmd *cobra.Command, flag string) int {
	v, err := cmd.Flags().GetInt(flag)
	checkError(err)
	return v
}

func getFlagPositiveInt(cmd *cobra.Command, flag string) int {
	v := getFlagInt(cmd, flag)
	if v <= 0 {
		checkError(perrors.Wrapf(cdbg.ErrInvalidParameter, "value of -%s should be positive", flag))
	}
	return v
}

func getFlagNonNegativeInt(cmd *cobra.Command, flag string) int {
	v := getFlagInt(cmd, flag)
	if v < 0 {
		checkError(perrors.Wrapf(cdbg.ErrInvalidParameter, "value of -%s should not be negative", flag))
	}
	return v
}

func getFileList(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

// outStream is unikmer's lazy gzip-or-not file writer: when gzipped,
// w is the gzip.Writer that must be closed to flush its footer,
// distinct from the *bufio.Writer callers write through.
func outStream(file string, gzipped bool) (*bufio.Writer, io.WriteCloser, *os.File, error) {
	var err error
	var f *os.File
	if file == "-" || file == "" {
		f = os.Stdout
	} else {
		f, err = os.Create(file)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("fail to write %s: %w", file, err)
		}
	}
	if gzipped {
		gw := gzip.NewWriter(f)
		return bufio.NewWriterSize(gw, os.Getpagesize()), gw, f, nil
	}
	return bufio.NewWriterSize(f, os.Getpagesize()), nil, f, nil
}

func inStream(file string) (*bufio.Reader, *os.File, error) {
	var err error
	var f *os.File
	if file == "-" || file == "" {
		if !detectStdin() {
			return nil, nil, errors.New("stdin not detected")
		}
		f = os.Stdin
	} else {
		f, err = os.Open(file)
		if err != nil {
			return nil, nil, fmt.Errorf("fail to read %s: %w", file, err)
		}
	}
	br := bufio.NewReaderSize(f, os.Getpagesize())
	gzipped, err := checkBytes(br, []byte{0x1f, 0x8b})
	if err != nil {
		return br, f, nil
	}
	if gzipped {
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, f, fmt.Errorf("fail to create gzip reader for %s: %w", file, err)
		}
		br = bufio.NewReaderSize(gr, os.Getpagesize())
	}
	return br, f, nil
}

func checkBytes(b *bufio.Reader, buf []byte) (bool, error) {
	m, err := b.Peek(len(buf))
	if err != nil {
		return false, nil
	}
	for i := range buf {
		if m[i] != buf[i] {
			return false, nil
		}
	}
	return true, nil
}

func detectStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
