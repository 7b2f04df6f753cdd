// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"math/rand"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sdm/density"
	"github.com/grailbio/sdm/encoding/bgzf"
	"github.com/grailbio/sdm/encoding/fasta"
	"github.com/grailbio/sdm/encoding/vcf"
	"github.com/grailbio/sdm/report"
	"github.com/grailbio/sdm/sdm"
	"github.com/klauspost/compress/gzip"
)

// assembly is the input of all runs.
type assembly struct {
	fa        fasta.Fasta
	ids       []string // FASTA order
	lengths   map[string]int
	genomeLen int
	// vars is nil when the input is a count table.
	vars     sdm.VariantSet
	vcfStats *vcf.Stats
	frags    []sdm.Fragment
	// in is the FASTA file backing an indexed fa, nil otherwise.
	in file.File
}

func (a *assembly) meanLen() float64 {
	if len(a.ids) == 0 {
		return 0
	}
	return float64(a.genomeLen) / float64(len(a.ids))
}

// openFasta loads the assembly FASTA. An uncompressed FASTA with a .fai index
// next to it is read on demand, and stays open until closeFasta.
func (a *assembly) openFasta(ctx context.Context, path string) (err error) {
	if !strings.HasSuffix(path, ".gz") {
		if _, err = file.Stat(ctx, path+".fai"); err == nil {
			return a.openIndexed(ctx, path)
		}
		log.Debug.Printf("%s: no index (%v), reading it whole", path, err)
	}
	if a.fa, err = readFasta(ctx, path); err != nil {
		return err
	}
	a.lengths, a.genomeLen, err = fasta.Lengths(a.fa)
	return err
}

func (a *assembly) openIndexed(ctx context.Context, path string) (err error) {
	faiPath := path + ".fai"
	fai, err := readAll(ctx, faiPath)
	if err != nil {
		return err
	}
	lengths, err := fasta.IndexLengths(bytes.NewReader(fai))
	if err != nil {
		return errors.E(err, "parse", faiPath)
	}
	if a.in, err = file.Open(ctx, path); err != nil {
		return errors.E(err, "open", path)
	}
	if a.fa, err = fasta.NewIndexed(a.in.Reader(ctx), bytes.NewReader(fai)); err != nil {
		return errors.E(err, "parse", faiPath)
	}
	a.lengths = make(map[string]int, len(lengths))
	for name, n := range lengths {
		a.lengths[name] = int(n)
		a.genomeLen += int(n)
	}
	log.Printf("%s: reading fragments on demand using %s", path, faiPath)
	return nil
}

func (a *assembly) closeFasta(ctx context.Context) error {
	if a.in == nil {
		return nil
	}
	err := a.in.Close(ctx)
	a.in = nil
	return err
}

func readAll(ctx context.Context, path string) (data []byte, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if data, err = ioutil.ReadAll(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, "read", path)
	}
	return data, nil
}

func readFasta(ctx context.Context, path string) (fa fasta.Fasta, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.E(err, "gunzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	if fa, err = fasta.New(r); err != nil {
		return nil, errors.E(err, "parse", path)
	}
	return fa, nil
}

// loadAssembly reads the inputs. On success the caller must call closeFasta.
func loadAssembly(ctx context.Context, cfg config) (_ *assembly, err error) {
	a := &assembly{}
	if err = a.openFasta(ctx, cfg.FastaPath); err != nil {
		a.closeFasta(ctx) // nolint: errcheck
		return nil, err
	}
	defer func() {
		if err != nil {
			a.closeFasta(ctx) // nolint: errcheck
		}
	}()
	a.ids = a.fa.SeqNames()
	log.Printf("%s: %d fragments, %d bp", cfg.FastaPath, len(a.ids), a.genomeLen)

	if cfg.CountsPath != "" {
		counts, err := report.ReadCounts(ctx, cfg.CountsPath, sdm.DefaultOpts.Adjust)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]sdm.Fragment, len(counts))
		for _, f := range counts {
			if _, ok := a.lengths[f.ID]; !ok {
				log.Error.Printf("%s: fragment %s is not in %s, ignored", cfg.CountsPath, f.ID, cfg.FastaPath)
				continue
			}
			byID[f.ID] = f
		}
		// Fragments without a row have no variants.
		for _, id := range a.ids {
			f, ok := byID[id]
			if !ok {
				f = sdm.NewFragment(id, a.lengths[id], 0, 0, sdm.DefaultOpts.Adjust)
			}
			f.Length = a.lengths[id]
			a.frags = append(a.frags, f)
		}
		return a, nil
	}

	vars, stats, err := vcf.Read(ctx, cfg.VCFPath)
	if err != nil {
		return nil, err
	}
	if cfg.BackgroundVCFPath != "" {
		bg, _, err := vcf.Read(ctx, cfg.BackgroundVCFPath)
		if err != nil {
			return nil, err
		}
		var removed int
		vars, removed = vcf.Subtract(vars, bg)
		log.Printf("removed %d variants also present in %s", removed, cfg.BackgroundVCFPath)
	}
	for id := range vars {
		if _, ok := a.lengths[id]; !ok {
			log.Error.Printf("%s: fragment %s is not in %s, its variants are ignored", cfg.VCFPath, id, cfg.FastaPath)
		}
	}
	a.vars, a.vcfStats = vars, &stats
	a.frags = sdm.Aggregate(vars, a.lengths, a.ids, sdm.AggregateOpts{Adjust: sdm.DefaultOpts.Adjust})
	return a, nil
}

// run loads the inputs once and arranges them under every adjustment.
func run(ctx context.Context, cfg config) (err error) {
	a, err := loadAssembly(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.closeFasta(ctx); closeErr != nil && err == nil {
			err = errors.E(closeErr, "close", cfg.FastaPath)
		}
	}()
	opts := cfg.runOpts()
	results, err := sdm.Sweep(a.frags, opts)
	if err != nil {
		return err
	}
	for i, r := range results {
		if err := writeRun(ctx, cfg, a, r); err != nil {
			return errors.E(err, "adjust", opts[i].Adjust)
		}
	}
	return nil
}

type arrangementLog struct {
	Keys       []float64 `yaml:"keys"`
	Low        []string  `yaml:"low"`
	High       []string  `yaml:"high"`
	Window     int       `yaml:"window"`
	Candidates []string  `yaml:"candidates"`
}

func newArrangementLog(a sdm.Arrangement) arrangementLog {
	return arrangementLog{Keys: a.Keys, Low: a.Low, High: a.High, Window: a.Window, Candidates: a.Candidates}
}

type runLog struct {
	Stage       string          `yaml:"stage"`
	AvgFragLen  float64         `yaml:"avg_frag_len"`
	Filter      sdm.FilterStats `yaml:"filter"`
	VCF         *vcf.Stats      `yaml:"vcf,omitempty"`
	Arrangement arrangementLog  `yaml:"arrangement"`
	Density     *arrangementLog `yaml:"hom_density_arrangement,omitempty"`
}

// outcome returns the fragments of the run in the given order, with
// positions shifted to the concatenated assembly.
func outcome(a *assembly, frags []sdm.Fragment, order []string, adjust float64) []sdm.Fragment {
	if a.vars != nil {
		return sdm.Aggregate(a.vars, a.lengths, order, sdm.AggregateOpts{Adjust: adjust, Cumulate: true})
	}
	byID := make(map[string]sdm.Fragment, len(frags))
	for _, f := range frags {
		byID[f.ID] = f
	}
	out := make([]sdm.Fragment, 0, len(order))
	offset := 0
	for _, id := range order {
		f := byID[id]
		f.Offset = offset
		offset += f.Length
		out = append(out, f)
	}
	return out
}

func fragmentMap(frags []sdm.Fragment) map[string]sdm.Fragment {
	m := make(map[string]sdm.Fragment, len(frags))
	for _, f := range frags {
		m[f.ID] = f
	}
	return m
}

func ratios(frags []sdm.Fragment) []float64 {
	out := make([]float64, len(frags))
	for i, f := range frags {
		out[i] = f.Ratio
	}
	return out
}

func positions(frags []sdm.Fragment) (hom, het []int) {
	for _, f := range frags {
		hom = append(hom, f.HomPositions...)
		het = append(het, f.HetPositions...)
	}
	return hom, het
}

func writeRun(ctx context.Context, cfg config, a *assembly, r sdm.Result) error {
	suffix := runSuffix(r.Opts)
	outDir, logDir := cfg.OutPrefix+suffix, cfg.LogPrefix+suffix
	for _, dir := range []string{outDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.E(err, "mkdir", dir)
		}
	}
	log.Printf("adjust %v: writing %s and %s", r.Opts.Adjust, outDir, logDir)
	perm := r.Arrangement.Permutation
	frags := sdm.WithRatios(a.frags, r.Opts.Adjust)
	original := outcome(a, frags, a.ids, r.Opts.Adjust)
	arranged := outcome(a, frags, perm, r.Opts.Adjust)

	l := runLog{
		Stage:       r.Stage.String(),
		AvgFragLen:  r.AvgFragLen,
		Filter:      r.Filter,
		VCF:         a.vcfStats,
		Arrangement: newArrangementLog(r.Arrangement),
	}
	if r.DensityArrangement != nil {
		d := newArrangementLog(*r.DensityArrangement)
		l.Density = &d
	}
	origHom, origHet := positions(original)
	permHom, permHet := positions(arranged)
	orig, out := density.AdjustedPositions(r.Candidates, fragmentMap(original), fragmentMap(arranged))

	lists := []struct {
		path   string
		values []string
	}{
		{file.Join(logDir, "1_hm_positions"), report.Ints(origHom)},
		{file.Join(logDir, "1_ht_positions"), report.Ints(origHet)},
		{file.Join(logDir, "3_ratios"), report.Floats(ratios(original))},
		{file.Join(logDir, "4_perm"), perm},
		{file.Join(outDir, "perm"), perm},
		{file.Join(outDir, "candidates"), r.Candidates},
		{file.Join(outDir, "hyp_positions"), report.Ints(r.CandidatePositions)},
		{file.Join(outDir, "high_ratio"), r.HighRatio},
		{file.Join(outDir, "perm_hm"), report.Ints(permHom)},
		{file.Join(outDir, "perm_ht"), report.Ints(permHet)},
		{file.Join(outDir, "original_pos"), report.Floats(orig)},
		{file.Join(outDir, "outcome_pos"), report.Floats(out)},
	}
	for _, list := range lists {
		if err := report.WriteList(ctx, list.path, list.values); err != nil {
			return err
		}
	}
	if err := report.WriteYAML(ctx, file.Join(logDir, "run.yml"), l); err != nil {
		return err
	}
	if err := report.WriteYAML(ctx, file.Join(logDir, "2_buckets.yml"), report.BucketMap(r.Buckets)); err != nil {
		return err
	}
	if err := report.WriteFragmentTable(ctx, file.Join(outDir, "frags_original.tsv"), original); err != nil {
		return err
	}
	if err := report.WriteFragmentTable(ctx, file.Join(outDir, "frags_arranged.tsv"), arranged); err != nil {
		return err
	}
	fastaPath := file.Join(outDir, "perm.fasta")
	if cfg.BGZip {
		fastaPath += ".gz"
	}
	if err := writeOrderedFasta(ctx, fastaPath, a.fa, perm, cfg.LineWidth, cfg.BGZip); err != nil {
		return err
	}
	return writeDensity(ctx, cfg, a, r, outDir, arranged, original, permHom)
}

// writeDensity locates the peak of the hypothetical SNP density of the
// arranged fragments and writes the summary.
func writeDensity(ctx context.Context, cfg config, a *assembly, r sdm.Result, outDir string, arranged, original []sdm.Fragment, permHom []int) error {
	meanLen := a.meanLen()
	hyp := density.PutativeDensity(meanLen, ratios(arranged))
	orig := density.PutativeDensity(meanLen, ratios(original))
	snps := density.HypotheticalSNPs(ratios(arranged), float64(a.genomeLen), rand.New(rand.NewSource(cfg.Seed)))
	for _, list := range []struct {
		name   string
		values []float64
	}{
		{"hyp_ratios", hyp},
		{"ratios", orig},
		{"hyp_snps", snps},
	} {
		if err := report.WriteList(ctx, file.Join(outDir, list.name), report.Floats(list.values)); err != nil {
			return err
		}
	}

	s := report.Summary{
		RegionLen:  int(meanLen * float64(len(r.Arrangement.Permutation))),
		Candidates: map[string][]int{},
	}
	if a.vars != nil {
		s.Candidates = sdm.CandidateFragments(r.Candidates, a.vars.HomIndex())
	}
	peak, err := density.Peak(hyp, cfg.Density)
	switch {
	case err == nil:
		s.Peak, s.HasPeak = peak, true
		s.ClosestSNP, s.HasSNP = density.ClosestSNP(peak, permHom)
	case errors.Is(errors.Invalid, err):
		log.Printf("no density peak: %v", err)
	default:
		return err
	}
	if s.HasSNP {
		log.Printf("adjust %v: homozygous SNP closest to the density peak is at %d", r.Opts.Adjust, s.ClosestSNP)
	}
	return report.WriteSummary(ctx, file.Join(outDir, "mutation.txt"), s)
}

// writeOrderedFasta writes the fragments of fa in order to path, with its
// .fai index next to it. Compressed output also gets a .gzi index.
func writeOrderedFasta(ctx context.Context, path string, fa fasta.Fasta, order []string, width int, compress bool) (err error) {
	var buf bytes.Buffer
	if err = fasta.WriteOrdered(&buf, fa, order, width); err != nil {
		return err
	}
	var fai bytes.Buffer
	if buf.Len() > 0 {
		if err = fasta.GenerateIndex(&fai, bytes.NewReader(buf.Bytes())); err != nil {
			return errors.E(err, "index", path)
		}
	}
	if err = writeBytes(ctx, path+".fai", fai.Bytes()); err != nil {
		return err
	}
	if !compress {
		return writeBytes(ctx, path, buf.Bytes())
	}
	blocks, err := writeBGZF(ctx, path, buf.Bytes())
	if err != nil {
		return err
	}
	var gzi bytes.Buffer
	if err = bgzf.WriteGZI(&gzi, blocks); err != nil {
		return err
	}
	return writeBytes(ctx, path+".gzi", gzi.Bytes())
}

func writeBytes(ctx context.Context, path string, data []byte) (err error) {
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	_, err = out.Writer(ctx).Write(data)
	return err
}

// writeBGZF block gzips data into path and returns the block offsets.
func writeBGZF(ctx context.Context, path string, data []byte) (blocks []bgzf.Block, err error) {
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return nil, errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	bw, err := bgzf.NewWriter(out.Writer(ctx), gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err = bw.Write(data); err != nil {
		return nil, err
	}
	if err = bw.Close(); err != nil {
		return nil, err
	}
	return bw.Blocks(), nil
}
