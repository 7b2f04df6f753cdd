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

// Fragment holds the variant statistics of one contig of a shuffled
// assembly. Fragments are treated as values: nothing in this package modifies
// a Fragment it was handed.
type Fragment struct {
	// ID is the sequence name, e.g. "frag12".
	ID string
	// Length is the fragment length in bases.
	Length int
	// HomCount and HetCount are the number of homozygous and heterozygous
	// variants observed on the fragment.
	HomCount, HetCount int
	// HomPositions and HetPositions are the variant positions. They are local
	// to the fragment unless the fragment was built by Aggregate with
	// Cumulate set, in which case Offset has been added to each of them.
	HomPositions, HetPositions []int
	// Offset is the cumulative length of the fragments preceding this one in
	// the order passed to Aggregate.
	Offset int
	// Ratio is ComputeRatio(HomCount, HetCount, adjust).
	Ratio float64
}

// ComputeRatio returns the smoothed homozygous to heterozygous ratio.
//
// A fragment without any variant gets 0 rather than adjust/adjust, so that "no
// data" sorts below every fragment with evidence and stays distinguishable
// from a balanced fragment.
func ComputeRatio(hom, het int, adjust float64) float64 {
	if hom == 0 && het == 0 {
		return 0
	}
	return (float64(hom) + adjust) / (float64(het) + adjust)
}

// NewFragment creates a Fragment from raw counts and computes its ratio.
func NewFragment(id string, length, hom, het int, adjust float64) Fragment {
	return Fragment{
		ID:       id,
		Length:   length,
		HomCount: hom,
		HetCount: het,
		Ratio:    ComputeRatio(hom, het, adjust),
	}
}

// hasVariants reports whether the fragment carries evidence beyond the
// smoothing constant.
func (f *Fragment) hasVariants(adjust float64) bool {
	return (float64(f.HomCount)+adjust)+(float64(f.HetCount)+adjust) > 2*adjust
}

// HomDensity returns the number of homozygous variants per base. Fragments
// with no recorded length have density 0.
func HomDensity(f Fragment) float64 {
	if f.Length <= 0 {
		return 0
	}
	return float64(f.HomCount) / float64(f.Length)
}

// VariantPositions lists the variant positions found on one fragment.
type VariantPositions struct {
	Hom []int
	Het []int
}

// VariantSet maps a fragment ID to the variants found on it.
type VariantSet map[string]VariantPositions

// HomIndex returns fragment ID -> homozygous positions, the lookup used by
// SelectPositions.
func (vs VariantSet) HomIndex() map[string][]int {
	index := make(map[string][]int, len(vs))
	for id, v := range vs {
		if len(v.Hom) > 0 {
			index[id] = v.Hom
		}
	}
	return index
}

// AggregateOpts controls Aggregate.
type AggregateOpts struct {
	// Adjust is the ratio smoothing constant.
	Adjust float64
	// Cumulate shifts each fragment's positions by the total length of the
	// fragments before it.
	Cumulate bool
}

// Aggregate builds one Fragment per ID in order. A fragment absent from vars
// has zero counts; a fragment absent from lengths has length 0.
func Aggregate(vars VariantSet, lengths map[string]int, order []string, opts AggregateOpts) []Fragment {
	frags := make([]Fragment, 0, len(order))
	offset := 0
	for _, id := range order {
		v := vars[id]
		f := NewFragment(id, lengths[id], len(v.Hom), len(v.Het), opts.Adjust)
		f.Offset = offset
		f.HomPositions = shift(v.Hom, offset)
		f.HetPositions = shift(v.Het, offset)
		if opts.Cumulate {
			offset += f.Length
		}
		frags = append(frags, f)
	}
	return frags
}

func shift(pos []int, by int) []int {
	out := make([]int, len(pos))
	for i, p := range pos {
		out[i] = p + by
	}
	return out
}
