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

import "sort"

// SelectPositions returns the sorted union of the homozygous positions of
// the candidate fragments. Fragments missing from index contribute nothing.
func SelectPositions(candidates []string, index map[string][]int) []int {
	seen := map[int]struct{}{}
	positions := []int{}
	for _, id := range candidates {
		for _, p := range index[id] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			positions = append(positions, p)
		}
	}
	sort.Ints(positions)
	return positions
}

// CandidateFragments returns the entries of index for the candidates that
// have at least one homozygous position.
func CandidateFragments(candidates []string, index map[string][]int) map[string][]int {
	out := map[string][]int{}
	for _, id := range candidates {
		if pos, ok := index[id]; ok {
			out[id] = pos
		}
	}
	return out
}

// HighRatioFragments returns, in permutation order, the fragments whose
// bucket key is at least the homozygosity cutoff. The cutoff is 1.1, or with
// opts.FilterLowHME, 1/adjust+1 for a back cross and 2/adjust+1 for an out
// cross.
func HighRatioFragments(b *Buckets, perm []string, opts Opts) []string {
	cutoff := 1.1
	if opts.FilterLowHME {
		if opts.Cross == BackCross {
			cutoff = 1/opts.Adjust + 1
		} else {
			cutoff = 2/opts.Adjust + 1
		}
	}
	keep := map[string]struct{}{}
	for _, key := range b.Keys() {
		if key < cutoff {
			continue
		}
		for _, m := range b.Members(key) {
			keep[m.ID] = struct{}{}
		}
	}
	var out []string
	for _, id := range perm {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
