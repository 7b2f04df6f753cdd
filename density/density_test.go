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
package density

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sdm/sdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutativeDensity(t *testing.T) {
	got := PutativeDensity(100, []float64{0.5, 0.25, 0, 0.1})
	assert.Equal(t, []float64{100, 100, 100, 100, 100, 200, 200, 400}, got)
	assert.Equal(t, []float64{2.5, 5, 7.5}, GeneralPositions(2.5, 3))
	assert.Empty(t, PutativeDensity(100, nil))
}

func TestHypotheticalSNPs(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	ratios := []float64{0.3, 1.0, 0.2}
	got := HypotheticalSNPs(ratios, 3000, r)
	require.Len(t, got, 3+10+2)
	for i, p := range got {
		var lo float64
		switch {
		case i < 3:
			lo = 0
		case i < 13:
			lo = 1000
		default:
			lo = 2000
		}
		assert.True(t, p >= lo && p < lo+1000, "sample %d = %v", i, p)
	}
	assert.Nil(t, HypotheticalSNPs(nil, 3000, r))
}

func TestClosestSNP(t *testing.T) {
	tests := []struct {
		peak      float64
		positions []int
		want      int
		ok        bool
	}{
		{510, []int{100, 400, 530, 900}, 530, true},
		{500, []int{450, 550}, 450, true},
		{-5, []int{3, 1}, 1, true},
		{10, nil, 0, false},
	}
	for _, test := range tests {
		got, ok := ClosestSNP(test.peak, test.positions)
		assert.Equal(t, test.ok, ok)
		assert.Equal(t, test.want, got, "peak %v", test.peak)
	}
}

func TestAdjustedPositions(t *testing.T) {
	original := map[string]sdm.Fragment{
		"a": {ID: "a", HomPositions: []int{100, 200}},
		"b": {ID: "b", HomPositions: []int{300}},
	}
	outcome := map[string]sdm.Fragment{
		"a": {ID: "a", HomPositions: []int{10, 20}},
	}
	orig, out := AdjustedPositions([]string{"a", "c"}, original, outcome)
	assert.Equal(t, []float64{100, 200}, orig)
	assert.Equal(t, []float64{145, 155}, out)

	orig, out = AdjustedPositions([]string{"b"}, original, outcome)
	assert.Equal(t, []float64{300}, orig)
	assert.Empty(t, out)
}

func TestBandwidth(t *testing.T) {
	assert.InEpsilon(t, 0.9*math.Pow(2, -0.2), Bandwidth([]float64{0, 0}), 1e-12)
	assert.InEpsilon(t, 0.9*4*math.Pow(2, -0.2), Bandwidth([]float64{4, 4}), 1e-12)
	assert.True(t, Bandwidth([]float64{1, 2, 3, 4, 5, 6}) > 0)

	// IQR interpolated between order statistics, as R's bw.nrd0: the
	// quartiles of 1..6,100 are 2.5 and 5.5.
	assert.InDelta(t, 1.365335, Bandwidth([]float64{100, 1, 2, 3, 4, 5, 6}), 1e-6)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.InDelta(t, 3.25, quantile(0.25, sorted), 1e-12)
	assert.InDelta(t, 7.75, quantile(0.75, sorted), 1e-12)
	assert.Equal(t, 1.0, quantile(0, sorted))
	assert.Equal(t, 10.0, quantile(1, sorted))
	assert.Equal(t, 4.0, quantile(0.5, []float64{4}))
}

func TestPeak(t *testing.T) {
	var samples []float64
	for i := 0; i < 10; i++ {
		samples = append(samples, 500)
	}
	for i := 0; i < 3; i++ {
		samples = append(samples, 400, 600)
	}
	e, err := KDE(samples, DefaultOpts)
	require.NoError(t, err)
	require.Len(t, e.X, DefaultOpts.Points)
	step := e.X[1] - e.X[0]
	assert.InDelta(t, samples[0]-DefaultOpts.Cut*e.Bandwidth-100, e.X[0], 1e-9)

	peak, err := Peak(samples, DefaultOpts)
	require.NoError(t, err)
	assert.InDelta(t, 500, peak, step)

	snp, ok := ClosestSNP(peak, []int{120, 480, 505, 700})
	assert.True(t, ok)
	assert.Equal(t, 505, snp)
}

func TestPeakErrors(t *testing.T) {
	_, err := Peak([]float64{1}, DefaultOpts)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = Peak([]float64{1, 2}, Opts{Points: 1})
	assert.True(t, errors.Is(errors.Invalid, err))
}
