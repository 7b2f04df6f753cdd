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
)

// CrossType is the breeding design that produced the mapping population.
type CrossType string

const (
	// BackCross is a cross to one of the parental lines. Recombination only
	// happens on one parental chromosome.
	BackCross CrossType = "back"
	// OutCross is a cross to an unrelated line. Linkage decays faster, so
	// the candidate window is wider.
	OutCross CrossType = "out"
)

// ParseCrossType converts "back" or "out" into a CrossType.
func ParseCrossType(s string) (CrossType, error) {
	switch CrossType(s) {
	case BackCross, OutCross:
		return CrossType(s), nil
	}
	return "", errors.E(errors.Invalid, fmt.Sprintf("sdm: unknown cross type %q, want \"back\" or \"out\"", s))
}

// Opts configures one arrangement run. It is passed by value; DefaultOpts
// holds the defaults.
type Opts struct {
	// Adjust is added to both the homozygous and heterozygous counts before
	// the ratio is taken. Must be positive.
	Adjust float64
	// Threshold is the percentage of the maximum ratio below which fragments
	// are dropped before arrangement. 0 disables the step.
	Threshold int
	// Cross selects the candidate window size.
	Cross CrossType
	// OnlyWithVariants drops fragments that have no variant at all.
	OnlyWithVariants bool
	// FilterLowHME raises the cutoff used by HighRatioFragments from 1.1 to a
	// cross-dependent value derived from Adjust.
	FilterLowHME bool
	// HomDensity runs a second arrangement keyed by homozygous variants per
	// base pair and merges its candidates with the ratio candidates.
	HomDensity bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Adjust:           0.5,
	Threshold:        0,
	Cross:            BackCross,
	OnlyWithVariants: true,
	FilterLowHME:     false,
	HomDensity:       false,
}

// Validate checks that the options can drive a run. All failures are of kind
// errors.Invalid.
func (o Opts) Validate() error {
	if !(o.Adjust > 0) {
		return errors.E(errors.Invalid, fmt.Sprintf("sdm: ratio adjust must be positive, got %v", o.Adjust))
	}
	if o.Threshold < 0 || o.Threshold >= 100 {
		return errors.E(errors.Invalid, fmt.Sprintf("sdm: threshold must be in [0, 100), got %d", o.Threshold))
	}
	if _, err := ParseCrossType(string(o.Cross)); err != nil {
		return err
	}
	return nil
}
