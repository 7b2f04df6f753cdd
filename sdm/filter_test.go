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
	"testing"

	"github.com/grailbio/testutil/expect"
)

func ratioFrag(id string, ratio float64) Fragment {
	return Fragment{ID: id, Length: 1000, HomCount: 1, Ratio: ratio}
}

func TestSelectRatios(t *testing.T) {
	opts := DefaultOpts
	opts.Adjust = 1
	frags := []Fragment{
		NewFragment("frag1", 100, 0, 5, opts.Adjust),
		NewFragment("frag2", 100, 14, 4, opts.Adjust),
		NewFragment("frag3", 100, 20, 2, opts.Adjust),
		NewFragment("frag4", 100, 2, 5, opts.Adjust),
	}
	b, stats := Select(frags, opts)
	expect.EQ(t, stats, FilterStats{Total: 4, Kept: 4})
	expect.EQ(t, b.Keys(), []float64{1.0 / 6, 0.5, 3, 7})
	expect.EQ(t, b.Map(), map[float64][]string{
		1.0 / 6: {"frag1"},
		0.5:     {"frag4"},
		3:       {"frag2"},
		7:       {"frag3"},
	})
}

func TestSelectNoVariants(t *testing.T) {
	frags := []Fragment{
		NewFragment("a", 100, 3, 1, 0.5),
		NewFragment("b", 100, 0, 0, 0.5),
		NewFragment("c", 100, 0, 2, 0.5),
		NewFragment("d", 100, 0, 0, 0.5),
	}
	b, stats := Select(frags, DefaultOpts)
	expect.EQ(t, stats.NoVariants, 2)
	expect.EQ(t, stats.Kept, 2)
	expect.EQ(t, stats.Discarded(), 2)
	expect.EQ(t, b.NumFragments(), 2)

	opts := DefaultOpts
	opts.OnlyWithVariants = false
	b, stats = Select(frags, opts)
	expect.EQ(t, stats, FilterStats{Total: 4, Kept: 4})
	// Both empty fragments land on the 0 sentinel.
	expect.EQ(t, b.IDs(0), []string{"b", "d"})
}

func TestSelectEmpty(t *testing.T) {
	b, stats := Select(nil, DefaultOpts)
	expect.EQ(t, b.Len(), 0)
	expect.EQ(t, stats, FilterStats{})

	opts := DefaultOpts
	opts.Threshold = 20
	b, stats = Select([]Fragment{NewFragment("x", 10, 0, 0, 0.5)}, opts)
	expect.EQ(t, b.Len(), 0)
	expect.EQ(t, stats.NoVariants, 1)
	expect.EQ(t, stats.Total, stats.Discarded()+stats.Kept)
}

func TestSelectThreshold(t *testing.T) {
	frags := []Fragment{
		ratioFrag("frag1", 0.3846),
		ratioFrag("frag12", 3),
		ratioFrag("frag39", 3),
		ratioFrag("frag46", 0.4286),
		ratioFrag("frag49", 0.3333),
		ratioFrag("frag64", 1),
		ratioFrag("frag68", 0.3333),
	}
	opts := DefaultOpts
	opts.Threshold = 20
	b, stats := Select(frags, opts)
	expect.EQ(t, b.Map(), map[float64][]string{
		3: {"frag12", "frag39"},
		1: {"frag64"},
	})
	expect.EQ(t, stats, FilterStats{Total: 7, BelowThreshold: 4, FinalThreshold: 20, Kept: 3})
}

func TestSelectThresholdRaised(t *testing.T) {
	var frags []Fragment
	for i := 1; i <= 100; i++ {
		frags = append(frags, ratioFrag(fmt.Sprintf("f%d", i), float64(i)))
	}
	opts := DefaultOpts
	opts.Threshold = 1
	_, stats := Select(frags, opts)
	// 1% and 3% keep more than 30 fragments per discarded one.
	expect.EQ(t, stats.FinalThreshold, 5)
	expect.EQ(t, stats.BelowThreshold, 5)
	expect.EQ(t, stats.Kept, 95)
}

func TestSelectThresholdTerminates(t *testing.T) {
	// Every ratio equal: nothing is ever cut, so only the upper bound stops
	// the loop.
	var frags []Fragment
	for i := 0; i < 50; i++ {
		frags = append(frags, ratioFrag(fmt.Sprintf("f%d", i), 2))
	}
	opts := DefaultOpts
	opts.Threshold = 10
	_, stats := Select(frags, opts)
	expect.EQ(t, stats.Kept, 50)
	expect.LE(t, stats.FinalThreshold, 99)
	expect.GE(t, stats.FinalThreshold+2, 100)
}
