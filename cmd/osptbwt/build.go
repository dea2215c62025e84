// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	osptbwt "github.com/xiaoYu0103/osptbwt"
)

var buildConfig struct {
	input     string
	output    string
	exact     bool
	compress  bool
	stats     bool
	check     bool
	progress  int
	endMarker uint8
	dollar    string
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build the RLBWT of a (multi-)FASTA or raw byte stream",
	Long: `
Flattens the input (FASTA records become sequence bytes followed by one end
marker each; non-FASTA input is fed raw with a trailing end marker), feeds
the stream through the optimal (SAP-aware) builder, and optionally writes
the run-length BWT. --exact uses plain LF insertion instead.
`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(
		&buildConfig.input, "input", "i", "", "input file name (required)")
	_ = buildCmd.MarkFlagRequired("input")
	buildCmd.Flags().StringVarP(
		&buildConfig.output, "output", "o", "", "output file name for the BWT")
	buildCmd.Flags().BoolVar(
		&buildConfig.exact, "exact", false, "exact LF insertion instead of SAP-aware placement")
	buildCmd.Flags().BoolVar(
		&buildConfig.compress, "compress", false, "gzip the BWT output")
	buildCmd.Flags().BoolVar(
		&buildConfig.stats, "stats", false, "report latency and run statistics")
	buildCmd.Flags().BoolVar(
		&buildConfig.check, "check", false,
		"invert the BWT and compare against the input (exact single-sequence builds)")
	buildCmd.Flags().IntVar(
		&buildConfig.progress, "progress", 0, "log every N sequences (0 disables)")
	buildCmd.Flags().Uint8Var(
		&buildConfig.endMarker, "endmarker", 1, "sequence end marker byte")
	buildCmd.Flags().StringVar(
		&buildConfig.dollar, "dollar", "$", "substitution for the final marker on output")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	text, numSeqs, err := loadInput(buildConfig.input, buildConfig.endMarker)
	if err != nil {
		return err
	}

	var dollar byte
	if buildConfig.dollar != "" {
		dollar = buildConfig.dollar[0]
	}
	b := osptbwt.New(&osptbwt.Options{
		EndMarker: buildConfig.endMarker,
		Dollar:    dollar,
	})
	extend := b.SAPExtend
	if buildConfig.exact {
		extend = b.Extend
	}

	var hist *hdrhistogram.Histogram
	if buildConfig.stats {
		hist = hdrhistogram.New(1, time.Second.Nanoseconds(), 3)
	}

	start := time.Now()
	seqs := 0
	for _, c := range text {
		if hist != nil {
			t := time.Now()
			extend(c)
			_ = hist.RecordValue(time.Since(t).Nanoseconds())
		} else {
			extend(c)
		}
		if c == buildConfig.endMarker {
			seqs++
			if buildConfig.progress > 0 && seqs%buildConfig.progress == 0 {
				log.Printf("extended %d/%d sequences (%s elapsed)",
					seqs, numSeqs, time.Since(start).Round(time.Millisecond))
			}
		}
	}
	log.Printf("extended %d sequences, %d symbols in %s: %d runs",
		numSeqs, len(text), time.Since(start).Round(time.Millisecond), b.NumRuns())

	if buildConfig.check {
		// Inversion walks one LF cycle, so the comparison is only defined
		// for an exact build of a single sequence.
		if !buildConfig.exact || numSeqs != 1 {
			return errors.New("--check requires --exact and a single-sequence input")
		}
		ok, err := b.CheckDecode(bytes.NewReader(text))
		if err != nil {
			return err
		}
		if !ok {
			return errors.Newf("inversion does not reproduce %s", buildConfig.input)
		}
		log.Printf("inversion check passed")
	}

	if buildConfig.output != "" {
		// The final marker closes the last sequence before serialisation.
		extend(0)
		if err := writeBWT(b); err != nil {
			return err
		}
	}

	if buildConfig.stats {
		reportStats(b, hist)
	}
	return nil
}

// loadInput reads path and flattens it: FASTA records become their
// sequence bytes followed by one end marker each; anything else is fed
// raw with a single trailing marker.
func loadInput(path string, em byte) (text []byte, numSeqs int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading %s", path)
	}
	if len(raw) == 0 || raw[0] != '>' {
		text = append(raw, em)
		return text, 1, nil
	}
	text = make([]byte, 0, len(raw))
	inSeq := false
	for _, line := range bytes.Split(raw, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if inSeq {
				text = append(text, em)
				numSeqs++
			}
			inSeq = true
			continue
		}
		text = append(text, line...)
	}
	if inSeq {
		text = append(text, em)
		numSeqs++
	}
	return text, numSeqs, nil
}

// writeBWT serialises the BWT, optionally gzipped, and logs a digest.
func writeBWT(b *osptbwt.Builder) error {
	f, err := os.Create(buildConfig.output)
	if err != nil {
		return errors.Wrapf(err, "creating %s", buildConfig.output)
	}
	digest := xxhash.New()
	var w io.Writer = io.MultiWriter(f, digest)
	var gz *gzip.Writer
	if buildConfig.compress {
		gz = gzip.NewWriter(f)
		w = io.MultiWriter(gz, digest)
	}
	if err := b.WriteBWT(w); err != nil {
		_ = f.Close()
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "closing gzip stream for %s", buildConfig.output)
		}
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", buildConfig.output)
	}
	log.Printf("wrote %s (%d rows, xxhash %016x)",
		buildConfig.output, b.LenWithEndMarker()-1, digest.Sum64())
	return nil
}

func reportStats(b *osptbwt.Builder, hist *hdrhistogram.Histogram) {
	fmt.Println(b.Metrics())

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"char", "occurrences"})
	b.ForEachChar(func(ch byte, weight uint64) {
		label := fmt.Sprintf("0x%02x", ch)
		if ch >= 0x20 && ch < 0x7f {
			label = string(rune(ch))
		}
		table.Append([]string{label, fmt.Sprint(weight)})
	})
	table.Render()

	fmt.Printf("extend latency: p50 %s  p99 %s  max %s\n",
		time.Duration(hist.ValueAtQuantile(50)),
		time.Duration(hist.ValueAtQuantile(99)),
		time.Duration(hist.Max()))
}
