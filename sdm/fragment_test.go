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

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestComputeRatio(t *testing.T) {
	tests := []struct {
		hom, het int
		adjust   float64
		want     float64
	}{
		{0, 5, 1, 1.0 / 6},
		{14, 4, 1, 3.0},
		{20, 2, 1, 7.0},
		{2, 5, 1, 0.5},
		{3, 0, 0.5, 7.0},
		{1, 1, 0.5, 1.0},
	}
	for _, test := range tests {
		expect.EQ(t, ComputeRatio(test.hom, test.het, test.adjust), test.want,
			"hom %d het %d adjust %v", test.hom, test.het, test.adjust)
	}
}

// A fragment with no variant on either side is pinned to 0, not
// adjust/adjust.
func TestComputeRatioNoData(t *testing.T) {
	for _, adjust := range []float64{0.1, 0.5, 1} {
		expect.EQ(t, ComputeRatio(0, 0, adjust), 0.0)
	}
	f := NewFragment("empty", 1000, 0, 0, 0.5)
	expect.EQ(t, f.Ratio, 0.0)
	expect.False(t, f.hasVariants(0.5))
}

func TestHomDensity(t *testing.T) {
	expect.EQ(t, HomDensity(Fragment{HomCount: 5, Length: 1000}), 0.005)
	expect.EQ(t, HomDensity(Fragment{HomCount: 5}), 0.0)
}

func TestAggregate(t *testing.T) {
	vars := VariantSet{
		"a": {Hom: []int{5, 10}, Het: []int{7}},
		"c": {Het: []int{1, 2}},
	}
	lengths := map[string]int{"a": 100, "b": 50, "c": 30}

	frags := Aggregate(vars, lengths, []string{"a", "b", "c"}, AggregateOpts{Adjust: 0.5, Cumulate: true})
	expect.EQ(t, len(frags), 3)
	expect.EQ(t, frags[0], Fragment{
		ID: "a", Length: 100, HomCount: 2, HetCount: 1,
		HomPositions: []int{5, 10}, HetPositions: []int{7},
		Offset: 0, Ratio: 2.5 / 1.5,
	})
	expect.EQ(t, frags[1].Offset, 100)
	expect.EQ(t, frags[1].Ratio, 0.0)
	expect.EQ(t, len(frags[1].HomPositions), 0)
	expect.EQ(t, frags[2].Offset, 150)
	expect.EQ(t, frags[2].HetPositions, []int{151, 152})
	expect.EQ(t, frags[2].Ratio, 0.5/2.5)

	frags = Aggregate(vars, lengths, []string{"c", "a"}, AggregateOpts{Adjust: 0.5})
	expect.EQ(t, frags[0].HetPositions, []int{1, 2})
	expect.EQ(t, frags[1].Offset, 0)
	expect.EQ(t, frags[1].HomPositions, []int{5, 10})
	// The caller's slices are not shared.
	frags[1].HomPositions[0] = -1
	expect.EQ(t, vars["a"].Hom[0], 5)
}

func TestVariantSetHomIndex(t *testing.T) {
	vars := VariantSet{
		"a": {Hom: []int{5}},
		"b": {Het: []int{3}},
	}
	expect.EQ(t, vars.HomIndex(), map[string][]int{"a": {5}})
}

func TestOptsValidate(t *testing.T) {
	expect.NoError(t, DefaultOpts.Validate())

	opts := DefaultOpts
	opts.Adjust = 0
	expect.True(t, errors.Is(errors.Invalid, opts.Validate()))

	opts = DefaultOpts
	opts.Cross = "side"
	err := opts.Validate()
	expect.True(t, errors.Is(errors.Invalid, err))
	assert.HasSubstr(t, err.Error(), `unknown cross type "side"`)

	opts = DefaultOpts
	opts.Threshold = 100
	expect.True(t, errors.Is(errors.Invalid, opts.Validate()))

	cross, err := ParseCrossType("out")
	expect.NoError(t, err)
	expect.EQ(t, cross, OutCross)
}
