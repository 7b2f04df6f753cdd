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

// Package vcf loads the variants called on the fragments of a draft assembly
// and splits them by zygosity.
package vcf

import (
	"context"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sdm/sdm"
	"github.com/vertgenlab/gonomics/vcf"
)

// Zygosity of a variant call.
type Zygosity int8

const (
	// Unknown covers reference calls, missing genotypes and records that carry
	// neither a HOM nor a HET flag.
	Unknown Zygosity = iota
	Het
	Hom
)

// Stats counts the records seen by Read.
type Stats struct {
	Records int `yaml:"records"`
	Hom     int `yaml:"hom"`
	Het     int `yaml:"het"`
	Skipped int `yaml:"skipped"`
}

// infoFlag returns the zygosity named by the INFO field, as written by
// simulated datasets ("HOM=1" or "HET=1"; a bare "HOM" also counts).
func infoFlag(info string) Zygosity {
	for _, kv := range strings.Split(info, ";") {
		key, val := kv, "1"
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key, val = kv[:i], kv[i+1:]
		}
		if val != "1" {
			continue
		}
		switch key {
		case "HOM":
			return Hom
		case "HET":
			return Het
		}
	}
	return Unknown
}

// genotype classifies the alleles of one sample. Missing alleles are
// negative.
func genotype(alleles []int16) Zygosity {
	if len(alleles) == 0 {
		return Unknown
	}
	same := true
	for _, a := range alleles {
		if a < 0 {
			return Unknown
		}
		if a != alleles[0] {
			same = false
		}
	}
	switch {
	case !same:
		return Het
	case alleles[0] > 0:
		return Hom
	}
	return Unknown
}

// Classify returns the zygosity of v. INFO HOM/HET flags take precedence;
// otherwise the first sample's genotype decides.
func Classify(v vcf.Vcf) Zygosity {
	if z := infoFlag(v.Info); z != Unknown {
		return z
	}
	if len(v.Samples) == 0 {
		return Unknown
	}
	return genotype(v.Samples[0].Alleles)
}

// Collect groups the records of ch by fragment (CHROM) and zygosity.
// Positions within a fragment are sorted.
func Collect(ch <-chan vcf.Vcf) (sdm.VariantSet, Stats) {
	vars := sdm.VariantSet{}
	var stats Stats
	for v := range ch {
		stats.Records++
		p := vars[v.Chr]
		switch Classify(v) {
		case Hom:
			p.Hom = append(p.Hom, v.Pos)
			stats.Hom++
		case Het:
			p.Het = append(p.Het, v.Pos)
			stats.Het++
		default:
			stats.Skipped++
			continue
		}
		vars[v.Chr] = p
	}
	for _, p := range vars {
		sort.Ints(p.Hom)
		sort.Ints(p.Het)
	}
	return vars, stats
}

// Read loads the VCF file at path.
func Read(ctx context.Context, path string) (sdm.VariantSet, Stats, error) {
	if _, err := file.Stat(ctx, path); err != nil {
		return nil, Stats{}, errors.E(err, "vcf: stat", path)
	}
	ch, _ := vcf.GoReadToChan(path)
	vars, stats := Collect(ch)
	log.Printf("vcf: %s: %d records, %d homozygous, %d heterozygous, %d skipped on %d fragments",
		path, stats.Records, stats.Hom, stats.Het, stats.Skipped, len(vars))
	return vars, stats, nil
}

// Subtract removes from vars every position that also appears in
// background on the same fragment, whatever its zygosity there. It is used
// to drop variants already present in the parental line.
func Subtract(vars, background sdm.VariantSet) (sdm.VariantSet, int) {
	out := make(sdm.VariantSet, len(vars))
	removed := 0
	for id, p := range vars {
		bg, ok := background[id]
		if !ok {
			out[id] = p
			continue
		}
		drop := make(map[int]bool, len(bg.Hom)+len(bg.Het))
		for _, pos := range bg.Hom {
			drop[pos] = true
		}
		for _, pos := range bg.Het {
			drop[pos] = true
		}
		var q sdm.VariantPositions
		for _, pos := range p.Hom {
			if drop[pos] {
				removed++
				continue
			}
			q.Hom = append(q.Hom, pos)
		}
		for _, pos := range p.Het {
			if drop[pos] {
				removed++
				continue
			}
			q.Het = append(q.Het, pos)
		}
		if len(q.Hom)+len(q.Het) > 0 {
			out[id] = q
		}
	}
	return out, removed
}
