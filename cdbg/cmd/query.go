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
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	perrors "github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"

	"github.com/cdbg-tools/cdbg"
	"github.com/cdbg-tools/cdbg/colorset"
	"github.com/cdbg-tools/cdbg/merge"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query a built graph for which colors contain a sequence",
	Long: `query a built graph for which colors contain a sequence

Reports, for every query sequence, the fraction of its k-mers present
under each color subset the built graph knows about.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		graphFile := getFlagString(cmd, "graph")
		if graphFile == "" {
			checkError(perrors.Wrap(cdbg.ErrInvalidParameter, "query requires --graph"))
		}
		k := getFlagPositiveInt(cmd, "kmer-len")
		noCanonical := getFlagBool(cmd, "no-canonical")
		minFrac := getFlagFloat(cmd, "min-fraction")

		files := getFileList(args)
		if len(files) == 0 || files[0] == "-" {
			checkError(perrors.Wrap(cdbg.ErrInvalidParameter, "query requires at least one sequence file"))
		}

		runQuery(opt, graphFile, files, k, !noCanonical, minFrac)
	},
}

func init() {
	RootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("graph", "", "built graph's unitig output file (required)")
	queryCmd.Flags().IntP("kmer-len", "k", 31, "k-mer length the graph was built with")
	queryCmd.Flags().Bool("no-canonical", false, "the graph was built without canonical k-mers")
	queryCmd.Flags().Float64("min-fraction", 0, "only report colors matching at least this fraction of a query's k-mers")
}

func getFlagFloat(cmd *cobra.Command, flag string) float64 {
	v, err := cmd.Flags().GetFloat64(flag)
	checkError(err)
	return v
}

func runQuery(opt *Options, graphFile string, files []string, k int, canonical bool, minFrac float64) {
	gr, gf, err := inStream(graphFile)
	checkError(err)
	idx, err := merge.BuildIndex(gr, k, canonical)
	checkError(err)
	gf.Close()
	log.Infof("loaded %d distinct k-mers from %s", idx.Len(), graphFile)

	var snap *colorset.Snapshot
	if cf, err := os.Open(graphFile + ".colors"); err == nil {
		snap, err = colorset.Load(cf)
		cf.Close()
		checkError(err)
	}

	stdout := bufio.NewWriterSize(os.Stdout, os.Getpagesize())
	defer stdout.Flush()
	fmt.Fprintln(stdout, "query\tsubset\tsamples\tmatched\ttotal\tfraction")

	for _, file := range files {
		reader, err := fastx.NewDefaultReader(file)
		checkError(err)
		seq.ValidateSeq = false
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			checkError(err)
			codes, err := cdbg.EncodeSeq(record.Seq.Seq)
			checkError(err)
			results, total, err := idx.QuerySequence(codes)
			checkError(err)
			if total == 0 {
				continue
			}
			sort.Slice(results, func(i, j int) bool { return results[i].SubsetID < results[j].SubsetID })
			for _, r := range results {
				frac := float64(r.MatchedKmers) / float64(total)
				if frac < minFrac {
					continue
				}
				names := "-"
				if snap != nil {
					names = strings.Join(snap.SampleNames(r.SubsetID), ",")
				}
				fmt.Fprintf(stdout, "%s\t%x\t%s\t%d\t%d\t%.4f\n",
					record.ID, r.SubsetID, names, r.MatchedKmers, total, frac)
			}
		}
	}
}
