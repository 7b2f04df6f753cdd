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
	"fmt"
	"math"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Opts controls the kernel density estimate.
type Opts struct {
	// Points is the number of equally spaced grid points the density is
	// evaluated at.
	Points int
	// Cut is how many bandwidths the grid extends beyond the extreme samples.
	Cut float64
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Points: 512,
	Cut:    3,
}

// Estimate is a Gaussian kernel density evaluated on a regular grid.
type Estimate struct {
	X, Y      []float64
	Bandwidth float64
}

// Bandwidth returns Silverman's rule of thumb bandwidth,
// 0.9 * min(sd, IQR/1.34) * n^(-1/5), with the usual fallbacks when the
// spread is zero.
//
// REQUIRES: len(samples) >= 2
func Bandwidth(samples []float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	sd := stat.StdDev(sorted, nil)
	iqr := quantile(0.75, sorted) - quantile(0.25, sorted)
	lo := math.Min(sd, iqr/1.34)
	if !(lo > 0) {
		switch {
		case sd > 0:
			lo = sd
		case sorted[0] != 0:
			lo = math.Abs(sorted[0])
		default:
			lo = 1
		}
	}
	return 0.9 * lo * math.Pow(float64(len(sorted)), -0.2)
}

// quantile returns the p-quantile of sorted, interpolating linearly between
// order statistics at (n-1)p (Hyndman and Fan type 7, the default of R's
// quantile and bw.nrd0). stat.Quantile has no such kind.
func quantile(p float64, sorted []float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// KDE estimates the density of samples on opts.Points grid points spanning
// [min-cut*bw, max+cut*bw].
func KDE(samples []float64, opts Opts) (Estimate, error) {
	if len(samples) < 2 {
		return Estimate{}, errors.E(errors.Invalid, fmt.Sprintf("density: need at least 2 samples, got %d", len(samples)))
	}
	if opts.Points < 2 {
		return Estimate{}, errors.E(errors.Invalid, fmt.Sprintf("density: need at least 2 grid points, got %d", opts.Points))
	}
	bw := Bandwidth(samples)
	lo := floats.Min(samples) - opts.Cut*bw
	hi := floats.Max(samples) + opts.Cut*bw
	e := Estimate{
		X:         floats.Span(make([]float64, opts.Points), lo, hi),
		Y:         make([]float64, opts.Points),
		Bandwidth: bw,
	}
	kernel := distuv.Normal{Mu: 0, Sigma: bw}
	n := float64(len(samples))
	for i, x := range e.X {
		sum := 0.0
		for _, s := range samples {
			sum += kernel.Prob(x - s)
		}
		e.Y[i] = sum / n
	}
	log.Debug.Printf("density: %d samples, bandwidth %v, grid [%v, %v]", len(samples), bw, lo, hi)
	return e, nil
}

// Peak returns the grid position of the highest density. If several grid
// points share the maximum, the first one is returned.
func Peak(samples []float64, opts Opts) (float64, error) {
	e, err := KDE(samples, opts)
	if err != nil {
		return 0, err
	}
	return e.X[floats.MaxIdx(e.Y)], nil
}
