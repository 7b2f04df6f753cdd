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
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestSelectPositions(t *testing.T) {
	index := map[string][]int{
		"a": {1},
		"b": {2},
		"c": {3, 4},
		"d": {5, 6},
		"e": {7},
		"f": {10},
		"g": {8},
	}
	expect.EQ(t, SelectPositions([]string{"a", "b", "c", "d", "e", "f"}, index),
		[]int{1, 2, 3, 4, 5, 6, 7, 10})
	// Order of candidates does not matter, unknown IDs are ignored.
	expect.EQ(t, SelectPositions([]string{"f", "x", "c"}, index), []int{3, 4, 10})
	expect.EQ(t, SelectPositions(nil, index), []int{})
}

func TestSelectPositionsDuplicates(t *testing.T) {
	index := map[string][]int{
		"a": {4, 1},
		"b": {1, 9},
	}
	expect.EQ(t, SelectPositions([]string{"a", "b", "a"}, index), []int{1, 4, 9})
}

func TestCandidateFragments(t *testing.T) {
	index := map[string][]int{"a": {1}, "c": {3}}
	expect.EQ(t, CandidateFragments([]string{"a", "b", "c"}, index),
		map[string][]int{"a": {1}, "c": {3}})
}

func TestHighRatioFragments(t *testing.T) {
	b := newTestBuckets(map[float64][]string{
		0.5: {"a"},
		1.1: {"b"},
		3.0: {"c"},
		2.5: {"d"},
	})
	perm := []string{"a", "d", "c", "b"}

	opts := DefaultOpts
	expect.EQ(t, HighRatioFragments(b, perm, opts), []string{"d", "c", "b"})

	// adjust 0.5: back cross cutoff 3, out cross cutoff 5.
	opts.FilterLowHME = true
	expect.EQ(t, HighRatioFragments(b, perm, opts), []string{"c"})
	opts.Cross = OutCross
	expect.EQ(t, len(HighRatioFragments(b, perm, opts)), 0)
}
