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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	perrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cdbg-tools/cdbg"
	"github.com/cdbg-tools/cdbg/assemble"
	"github.com/cdbg-tools/cdbg/colorset"
	"github.com/cdbg-tools/cdbg/merge"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build a colored de Bruijn graph from FASTA/Q files",
	Long: `build a colored de Bruijn graph from FASTA/Q files

Every input file is treated as one color/sample. Output is a unitig
FASTA-like file with color-run annotations, plus a companion '.colors'
file mapping color subset ids back to sample names. With --links, the
unitig halves are not spliced and carry BCALM2-style link annotations
for their cross-bucket joins instead.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		runtime.GOMAXPROCS(opt.NumCPUs)

		files := getFileList(args)
		if len(files) == 0 || files[0] == "-" {
			checkError(perrors.Wrap(cdbg.ErrInvalidParameter, "build requires at least one input file"))
		}

		k := getFlagPositiveInt(cmd, "kmer-len")
		m := getFlagPositiveInt(cmd, "minimizer-len")
		if m >= k {
			checkError(perrors.Wrap(cdbg.ErrInvalidParameter, "minimizer length (-n) must be smaller than k-mer length (-k)"))
		}
		minMult := getFlagPositiveInt(cmd, "min-multiplicity")
		firstBits := getFlagPositiveInt(cmd, "first-bucket-bits")
		secondBits := getFlagPositiveInt(cmd, "second-bucket-bits")
		noCanonical := getFlagBool(cmd, "no-canonical")
		generateLinks := getFlagBool(cmd, "links")
		outFile := getFlagString(cmd, "out-file")
		if outFile == "" {
			outFile = "cdbg.out"
		}
		dryRun := getFlagBool(cmd, "dry-run")

		if dryRun {
			reportDryRun(files, k, m, firstBits, secondBits)
			return
		}

		runBuild(opt, files, k, m, minMult, firstBits, secondBits, !noCanonical, generateLinks, outFile)
	},
}

func init() {
	RootCmd.AddCommand(buildCmd)

	buildCmd.Flags().IntP("kmer-len", "k", 31, "k-mer length")
	buildCmd.Flags().IntP("minimizer-len", "n", 21, "minimizer length")
	buildCmd.Flags().IntP("min-multiplicity", "M", 2, "minimum occurrence count for a k-mer to be walked/colored")
	buildCmd.Flags().Int("first-bucket-bits", 8, "bits of the minimizer hash routing to first-level disk buckets")
	buildCmd.Flags().Int("second-bucket-bits", 8, "bits of the minimizer hash routing to in-memory sub-buckets")
	buildCmd.Flags().Bool("no-canonical", false, "track forward/reverse strands separately instead of canonical k-mers")
	buildCmd.Flags().Bool("links", false, "emit unitig halves with BCALM2-style link annotations for their cross-bucket joins instead of splicing them")
	buildCmd.Flags().StringP("out-file", "o", "cdbg.out", "output unitig file")
	buildCmd.Flags().Bool("dry-run", false, "log the planned bucket layout and exit without writing any files")
}

// reportDryRun logs the bucket plan a real build would use, without
// creating a work directory or touching the input files beyond
// counting them.
func reportDryRun(files []string, k, m, firstBits, secondBits int) {
	numFirst := 1 << uint(firstBits)
	numSecond := 1 << uint(secondBits)
	log.Infof("dry run: %d input file(s), k=%d, m=%d", len(files), k, m)
	log.Infof("dry run: %d first-level bucket(s), %d second-level sub-bucket(s) per bucket", numFirst, numSecond)
}

func runBuild(opt *Options, files []string, k, m, minMult, firstBits, secondBits int, canonical, generateLinks bool, outFile string) {
	src := newFastxSource(files)

	workDir, err := os.MkdirTemp("", "cdbg-build-")
	checkError(wrapResourceExhausted(err, "creating work directory"))
	defer os.RemoveAll(workDir)

	numBuckets := 1 << uint(firstBits)
	bucketFiles := make([]*os.File, numBuckets)
	writers := make([]*cdbg.BucketWriter, numBuckets)
	for i := range writers {
		f, err := os.Create(filepath.Join(workDir, fmt.Sprintf("bucket-%d.bin", i)))
		checkError(wrapResourceExhausted(err, "creating first-level bucket file"))
		bucketFiles[i] = f
		writers[i] = cdbg.NewBucketWriter(f, cdbg.BucketHeader{K: k, M: m, Canonical: canonical, Colored: true})
	}

	bucketPhase := cdbg.StartPhase("bucketing sequences")
	bk := merge.NewBucketer(writers, k, m, firstBits, canonical)
	checkError(bk.Run(src, opt.NumCPUs))
	for _, f := range bucketFiles {
		checkError(f.Close())
	}
	bucketPhase.Done()

	colorFile, err := os.Create(outFile + ".colors")
	checkError(err)
	defer colorFile.Close()
	table, err := colorset.New(colorFile, colorset.Header{Names: src.SampleNames()})
	checkError(err)

	mergePhase := cdbg.StartPhase("merging buckets")
	unitigFiles := make([]string, numBuckets)
	heFiles := make([]string, numBuckets)

	var wg sync.WaitGroup
	tokens := make(chan struct{}, opt.NumCPUs)
	var mu sync.Mutex
	var firstErr error

	for b := 0; b < numBuckets; b++ {
		bucketPath := filepath.Join(workDir, fmt.Sprintf("bucket-%d.bin", b))
		fi, err := os.Stat(bucketPath)
		if err != nil || fi.Size() == 0 {
			continue
		}

		wg.Add(1)
		tokens <- struct{}{}
		go func(b int, bucketPath string) {
			defer wg.Done()
			defer func() { <-tokens }()

			if err := processOneBucket(b, bucketPath, workDir, k, m, firstBits, secondBits, minMult, canonical, table, unitigFiles, heFiles, &mu); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(b, bucketPath)
	}
	wg.Wait()
	if firstErr != nil {
		checkError(perrors.Wrap(cdbg.ErrFatal, firstErr.Error()))
	}
	mergePhase.Done()

	stitchPhase := cdbg.StartPhase("stitching unitigs across buckets")
	var heReaders []io.Reader
	var heHandles []*os.File
	for _, hf := range heFiles {
		if hf == "" {
			continue
		}
		f, err := os.Open(hf)
		checkError(err)
		heHandles = append(heHandles, f)
		heReaders = append(heReaders, f)
	}
	joins, err := assemble.BuildJoinTable(heReaders)
	checkError(err)
	for _, f := range heHandles {
		f.Close()
	}

	outBuf, closer, outFh, err := outStream(outFile, opt.Compress)
	checkError(err)
	defer outFh.Close()
	if closer != nil {
		defer closer.Close()
	}
	uwriter := cdbg.NewUnitigWriter(outBuf)

	var totalFinal int
	if generateLinks {
		// §4.6 link mode: every unitig half is emitted as its own
		// record, annotated with BCALM2-style L: neighbors instead of
		// being spliced into its cross-bucket partner.
		emitter := assemble.NewEmitter(joins)
		for b, uf := range unitigFiles {
			if uf == "" {
				continue
			}
			f, err := os.Open(uf)
			checkError(err)
			n, err := emitter.EmitBucket(uint32(b), f, uwriter)
			f.Close()
			checkError(err)
			totalFinal += n
		}
	} else {
		// Default §4.6 behavior: splice every cross-bucket join into
		// one maximal unitig. This needs every bucket's halves
		// addressable at once, not streamed one bucket at a time.
		records := make(map[assemble.NodeID]cdbg.UnitigRecord)
		for b, uf := range unitigFiles {
			if uf == "" {
				continue
			}
			f, err := os.Open(uf)
			checkError(err)
			bucketRecords, err := assemble.LoadRecords(uint32(b), f)
			f.Close()
			checkError(err)
			for id, rec := range bucketRecords {
				records[id] = rec
			}
		}
		n, err := assemble.Concatenate(records, joins, k, uwriter)
		checkError(err)
		totalFinal = n
	}
	checkError(uwriter.Flush())
	if closer != nil {
		checkError(closer.Close())
	}
	stitchPhase.Done()

	log.Infof("wrote %d unitigs", totalFinal)
	table.PrintStats()
}

func processOneBucket(b int, bucketPath, workDir string, k, m, firstBits, secondBits, minMult int, canonical bool, table *colorset.Table, unitigFiles, heFiles []string, mu *sync.Mutex) error {
	bf, err := os.Open(bucketPath)
	if err != nil {
		return err
	}
	defer bf.Close()

	colors := merge.NewColorManager(table, uint32(minMult))
	eng := merge.NewEngine(merge.EngineConfig{
		K: k, M: m, Canonical: canonical,
		FirstBucketBits: uint(firstBits), SecondBucketBits: uint(secondBits),
		MinMultiplicity: uint32(minMult),
	}, colors)

	uFile := filepath.Join(workDir, fmt.Sprintf("unitigs-%d.txt", b))
	heFile := filepath.Join(workDir, fmt.Sprintf("hashentries-%d.bin", b))

	uf, err := os.Create(uFile)
	if err != nil {
		return err
	}
	defer uf.Close()
	hf, err := os.Create(heFile)
	if err != nil {
		return err
	}
	defer hf.Close()

	uw := cdbg.NewUnitigWriter(uf)
	_, err = eng.ProcessBucket(uint32(b), bf, uw, hf)
	if err != nil {
		return err
	}
	if err := uw.Flush(); err != nil {
		return err
	}

	mu.Lock()
	unitigFiles[b] = uFile
	heFiles[b] = heFile
	mu.Unlock()
	return nil
}
