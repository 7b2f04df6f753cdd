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
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sdm/density"
	"github.com/grailbio/sdm/report"
	"github.com/grailbio/sdm/sdm"
)

// params mirrors input_pars.yml.
type params struct {
	Fasta    string  `yaml:"fasta"`
	VCF      string  `yaml:"vcf"`
	RatioAdj float64 `yaml:"ratio_adj"`
	Filter   int     `yaml:"filter"`
	Cross    string  `yaml:"cross"`
	OutDir   string  `yaml:"outdir"`
	LogDir   string  `yaml:"logdir"`
}

func loadParams(ctx context.Context, path string) (params, error) {
	var p params
	if err := report.ReadYAML(ctx, path, &p); err != nil {
		return params{}, err
	}
	return p, nil
}

// config is everything a run needs.
type config struct {
	FastaPath         string
	VCFPath           string
	BackgroundVCFPath string
	CountsPath        string
	OutPrefix         string
	LogPrefix         string
	// Adjusts lists the ratio adjustments to sweep; each gets its own
	// output directories. Opts.Adjust is ignored.
	Adjusts   []float64
	Opts      sdm.Opts
	Density   density.Opts
	BGZip     bool
	LineWidth int
	Seed      int64
}

// applyParams fills the fields of cfg that were not set on the command line
// from p. set holds the names of the flags given explicitly.
func (cfg *config) applyParams(p params, set map[string]bool) error {
	if p.Fasta != "" && !set["fasta"] {
		cfg.FastaPath = p.Fasta
	}
	if p.VCF != "" && !set["vcf"] {
		cfg.VCFPath = p.VCF
	}
	if p.RatioAdj != 0 && !set["adjust"] {
		cfg.Adjusts = []float64{p.RatioAdj}
	}
	if !set["filter"] {
		cfg.Opts.Threshold = p.Filter
	}
	if p.Cross != "" && !set["cross"] {
		cross, err := sdm.ParseCrossType(p.Cross)
		if err != nil {
			return err
		}
		cfg.Opts.Cross = cross
	}
	if p.OutDir != "" && !set["out"] {
		cfg.OutPrefix = p.OutDir
	}
	if p.LogDir != "" && !set["log-dir"] {
		cfg.LogPrefix = p.LogDir
	}
	return nil
}

func (cfg *config) validate() error {
	if cfg.FastaPath == "" {
		return errors.E(errors.Invalid, "-fasta is required")
	}
	if (cfg.VCFPath == "") == (cfg.CountsPath == "") {
		return errors.E(errors.Invalid, "exactly one of -vcf and -counts is required")
	}
	if cfg.BackgroundVCFPath != "" && cfg.VCFPath == "" {
		return errors.E(errors.Invalid, "-background-vcf requires -vcf")
	}
	if len(cfg.Adjusts) == 0 {
		return errors.E(errors.Invalid, "no ratio adjustment given")
	}
	for _, adj := range cfg.Adjusts {
		opts := cfg.Opts
		opts.Adjust = adj
		if err := opts.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// runOpts returns one sdm.Opts per adjustment.
func (cfg *config) runOpts() []sdm.Opts {
	opts := make([]sdm.Opts, len(cfg.Adjusts))
	for i, adj := range cfg.Adjusts {
		opts[i] = cfg.Opts
		opts[i].Adjust = adj
	}
	return opts
}

// runSuffix names the directories of one run like "_<filter>_<adjust>".
func runSuffix(opts sdm.Opts) string {
	return fmt.Sprintf("_%d_%s", opts.Threshold, strconv.FormatFloat(opts.Adjust, 'g', -1, 64))
}

// parseAdjusts parses a comma separated list of ratio adjustments.
func parseAdjusts(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("ratio adjustment %q", field))
		}
		out = append(out, v)
	}
	return out, nil
}
