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
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/sdm/density"
	"github.com/grailbio/sdm/encoding/fasta"
	"github.com/grailbio/sdm/sdm"
)

var (
	paramsPath        = flag.String("params", "", "YAML parameter file (keys fasta, vcf, ratio_adj, filter, cross, outdir, logdir); explicit flags override it")
	fastaPath         = flag.String("fasta", "", "Input FASTA with the shuffled fragments; may be gzipped")
	vcfPath           = flag.String("vcf", "", "Input VCF; records are HOM/HET flagged in INFO or genotyped in the first sample. This xor -counts required")
	backgroundVCFPath = flag.String("background-vcf", "", "Optional VCF of the parental line; its positions are removed from -vcf")
	countsPath        = flag.String("counts", "", "Input TSV with columns id, hom, het, length. This xor -vcf required")
	adjust            = flag.String("adjust", strconv.FormatFloat(sdm.DefaultOpts.Adjust, 'g', -1, 64), "Ratio adjustment added to both counts; a comma separated list runs one arrangement per value")
	filter            = flag.Int("filter", sdm.DefaultOpts.Threshold, "Drop fragments whose ratio is at most this percentage of the maximum; 0 disables")
	cross             = flag.String("cross", string(sdm.DefaultOpts.Cross), "Cross type, 'back' or 'out'")
	onlyWithVariants  = flag.Bool("only-with-variants", sdm.DefaultOpts.OnlyWithVariants, "Drop fragments without any variant")
	filterLowHME      = flag.Bool("filter-low-hme", sdm.DefaultOpts.FilterLowHME, "Use the adjustment-derived homozygosity cutoff for the high_ratio list")
	homDensity        = flag.Bool("hom-density", sdm.DefaultOpts.HomDensity, "Also arrange by homozygous SNPs per base and merge the candidates")
	outPrefix         = flag.String("out", "sdm_out", "Output directory prefix")
	logPrefix         = flag.String("log-dir", "sdm_log", "Log directory prefix")
	kdePoints         = flag.Int("kde-points", density.DefaultOpts.Points, "Number of grid points of the kernel density estimate")
	bgzip             = flag.Bool("bgzip", false, "Write the arranged FASTA block gzipped")
	lineWidth         = flag.Int("line-width", fasta.DefaultLineWidth, "Bases per line of the arranged FASTA")
	seed              = flag.Int64("seed", 1, "Seed for the hypothetical SNP positions")
)

func bioSDMUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -fasta frags.fa {-vcf snps.vcf | -counts counts.tsv}\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioSDMUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 0 {
		log.Fatalf("Unexpected positional arguments %v; please check flag syntax", flag.Args())
	}
	ctx := vcontext.Background()

	adjusts, err := parseAdjusts(*adjust)
	if err != nil {
		log.Fatalf("%v", err)
	}
	crossType, err := sdm.ParseCrossType(*cross)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg := config{
		FastaPath:         *fastaPath,
		VCFPath:           *vcfPath,
		BackgroundVCFPath: *backgroundVCFPath,
		CountsPath:        *countsPath,
		OutPrefix:         *outPrefix,
		LogPrefix:         *logPrefix,
		Adjusts:           adjusts,
		Opts: sdm.Opts{
			Threshold:        *filter,
			Cross:            crossType,
			OnlyWithVariants: *onlyWithVariants,
			FilterLowHME:     *filterLowHME,
			HomDensity:       *homDensity,
		},
		Density:   density.Opts{Points: *kdePoints, Cut: density.DefaultOpts.Cut},
		BGZip:     *bgzip,
		LineWidth: *lineWidth,
		Seed:      *seed,
	}
	if *paramsPath != "" {
		p, err := loadParams(ctx, *paramsPath)
		if err != nil {
			log.Fatalf("%v", err)
		}
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if err := cfg.applyParams(p, set); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if err := cfg.validate(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := run(ctx, cfg); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
