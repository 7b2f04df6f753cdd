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

// Package density turns per-fragment ratios into hypothetical SNP positions
// and locates the peak of their distribution, which is where the causal
// mutation most likely sits.
package density

import (
	"math"
	"math/rand"

	"github.com/grailbio/sdm/sdm"
	"gonum.org/v1/gonum/stat"
)

// samplesPerUnit is the number of hypothetical positions emitted per unit of
// ratio.
const samplesPerUnit = 10

// PutativeDensity places int(ratio*10) samples at meanLen*(i+1) for the i'th
// ratio. ratios is in arrangement order.
func PutativeDensity(meanLen float64, ratios []float64) []float64 {
	return DensitiesPos(ratios, GeneralPositions(meanLen, len(ratios)))
}

// GeneralPositions returns n evenly spaced positions avgLen, 2*avgLen, ...
func GeneralPositions(avgLen float64, n int) []float64 {
	positions := make([]float64, n)
	pos := 0.0
	for i := range positions {
		pos += avgLen
		positions[i] = pos
	}
	return positions
}

// DensitiesPos repeats positions[i] int(raw[i]*10) times.
//
// REQUIRES: len(positions) >= len(raw)
func DensitiesPos(raw, positions []float64) []float64 {
	var out []float64
	for i, d := range raw {
		for j := 0; j < int(d*samplesPerUnit); j++ {
			out = append(out, positions[i])
		}
	}
	return out
}

// HypotheticalSNPs splits [0, genomeLen) into one bin per ratio and draws
// int(ratio*10) uniform positions inside each bin. The positions only model a
// distribution; they need not be integral or unique.
func HypotheticalSNPs(ratios []float64, genomeLen float64, r *rand.Rand) []float64 {
	if len(ratios) == 0 {
		return nil
	}
	width := genomeLen / float64(len(ratios))
	var out []float64
	for i, ratio := range ratios {
		start := width * float64(i)
		for j := 0; j < int(ratio*samplesPerUnit); j++ {
			out = append(out, start+r.Float64()*width)
		}
	}
	return out
}

// ClosestSNP returns the position closest to peak. On a tie the earlier
// position wins. It returns false if positions is empty.
func ClosestSNP(peak float64, positions []int) (int, bool) {
	if len(positions) == 0 {
		return 0, false
	}
	best := positions[0]
	bestDist := math.Abs(peak - float64(best))
	for _, p := range positions[1:] {
		if d := math.Abs(peak - float64(p)); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, true
}

// AdjustedPositions collects the homozygous positions of the candidate
// fragments in the original and in the arranged assembly. The arranged
// positions are shifted by the (truncated) difference of the two means so
// that both sets can be plotted over the same region.
func AdjustedPositions(candidates []string, original, outcome map[string]sdm.Fragment) (orig, out []float64) {
	for _, id := range candidates {
		if f, ok := original[id]; ok {
			for _, p := range f.HomPositions {
				orig = append(orig, float64(p))
			}
		}
		if f, ok := outcome[id]; ok {
			for _, p := range f.HomPositions {
				out = append(out, float64(p))
			}
		}
	}
	if len(orig) == 0 || len(out) == 0 {
		return orig, out
	}
	shift := float64(int(stat.Mean(orig, nil) - stat.Mean(out, nil)))
	for i := range out {
		out[i] += shift
	}
	return orig, out
}
