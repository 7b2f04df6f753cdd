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
package sdm

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Stage is the last pipeline step a Run completed. Stages only move forward.
type Stage int

const (
	Unfiltered Stage = iota
	Filtered
	Bisected
	Arranged
	CandidateSelected
)

func (s Stage) String() string {
	switch s {
	case Unfiltered:
		return "unfiltered"
	case Filtered:
		return "filtered"
	case Bisected:
		return "bisected"
	case Arranged:
		return "arranged"
	case CandidateSelected:
		return "candidate-selected"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Result is the output of Run.
type Result struct {
	Opts  Opts
	Stage Stage
	// AvgFragLen is the mean length of all input fragments, filtered or not.
	AvgFragLen float64
	Filter     FilterStats
	// Buckets holds the fragments that survived filtering, keyed by ratio.
	Buckets *Buckets
	// Arrangement is the ratio-keyed arrangement.
	Arrangement Arrangement
	// DensityArrangement is set when Opts.HomDensity is; it arranges the same
	// fragments by homozygous variants per base.
	DensityArrangement *Arrangement
	// Candidates merges the candidates of both arrangements, without
	// duplicates.
	Candidates []string
	// CandidatePositions is SelectPositions(Candidates, ...) over the
	// fragments' HomPositions.
	CandidatePositions []int
	// HighRatio lists the permutation's fragments at or above the
	// homozygosity cutoff.
	HighRatio []string
}

// Run filters, arranges and selects candidates for frags. The only errors are
// invalid options; an input that filters down to nothing gives an empty
// Result.
func Run(frags []Fragment, opts Opts) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	r := Result{Opts: opts, Stage: Unfiltered, AvgFragLen: averageLength(frags)}

	r.Buckets, r.Filter = Select(frags, opts)
	r.Stage = Filtered
	if r.Buckets.Len() == 0 {
		log.Printf("sdm: no fragment left after filtering %d inputs", len(frags))
		r.Arrangement = Arrangement{Permutation: []string{}, Candidates: []string{}}
		r.Candidates = []string{}
		r.CandidatePositions = []int{}
		r.Stage = CandidateSelected
		return r, nil
	}

	var err error
	if r.Arrangement, err = Arrange(r.Buckets, opts.Cross, r.AvgFragLen); err != nil {
		return r, err
	}
	r.Stage = Bisected
	candidates := append([]string(nil), r.Arrangement.Candidates...)
	if opts.HomDensity {
		density, err := Arrange(densityBuckets(frags, r.Buckets), opts.Cross, r.AvgFragLen)
		if err != nil {
			return r, err
		}
		r.DensityArrangement = &density
		candidates = append(candidates, density.Candidates...)
	}
	r.Stage = Arranged

	r.Candidates = dedup(candidates)
	index := make(map[string][]int, len(frags))
	for _, f := range frags {
		if len(f.HomPositions) > 0 {
			index[f.ID] = f.HomPositions
		}
	}
	r.CandidatePositions = SelectPositions(r.Candidates, index)
	r.HighRatio = HighRatioFragments(r.Buckets, r.Arrangement.Permutation, opts)
	r.Stage = CandidateSelected
	log.Printf("sdm: %d fragments arranged, window %d, %d candidates, %d candidate positions",
		len(r.Arrangement.Permutation), r.Arrangement.Window, len(r.Candidates), len(r.CandidatePositions))
	return r, nil
}

// densityBuckets regroups the fragments kept in ratio by HomDensity.
func densityBuckets(frags []Fragment, ratio *Buckets) *Buckets {
	kept := make(map[string]struct{}, ratio.NumFragments())
	for _, key := range ratio.Keys() {
		for _, m := range ratio.Members(key) {
			kept[m.ID] = struct{}{}
		}
	}
	b := NewBuckets()
	for _, f := range frags {
		if _, ok := kept[f.ID]; ok {
			b.Add(HomDensity(f), f.ID, f.HomCount)
		}
	}
	return b
}

func averageLength(frags []Fragment) float64 {
	if len(frags) == 0 {
		return 0
	}
	total := 0
	for _, f := range frags {
		total += f.Length
	}
	return float64(total) / float64(len(frags))
}

// WithRatios returns a copy of frags whose ratios are recomputed from their
// counts with adjust.
func WithRatios(frags []Fragment, adjust float64) []Fragment {
	out := make([]Fragment, len(frags))
	for i, f := range frags {
		f.Ratio = ComputeRatio(f.HomCount, f.HetCount, adjust)
		out[i] = f
	}
	return out
}

// Sweep runs the same fragments under several option sets concurrently. The
// i'th result corresponds to opts[i]. Each run sees ratios recomputed with
// its own Adjust; runs share no mutable state.
func Sweep(frags []Fragment, opts []Opts) ([]Result, error) {
	results := make([]Result, len(opts))
	err := traverse.Each(len(opts), func(i int) error {
		r, err := Run(WithRatios(frags, opts[i].Adjust), opts[i])
		if err != nil {
			return errors.E(err, fmt.Sprintf("sweep run %d (adjust %v, threshold %d, cross %s)",
				i, opts[i].Adjust, opts[i].Threshold, opts[i].Cross))
		}
		results[i] = r
		return nil
	})
	return results, err
}
