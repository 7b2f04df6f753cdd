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
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Summary describes where the causal mutation most likely is.
type Summary struct {
	// RegionLen is the length of the stretch of fragments that forms the
	// peak of the distribution, estimated as mean fragment length times the
	// number of arranged fragments.
	RegionLen int `yaml:"region_len"`
	// Candidates maps each candidate fragment to its homozygous positions.
	Candidates map[string][]int `yaml:"candidates"`
	// Peak is the position of the density maximum. Valid only if HasPeak.
	Peak    float64 `yaml:"peak"`
	HasPeak bool    `yaml:"has_peak"`
	// ClosestSNP is the homozygous SNP nearest to Peak. Valid only if HasSNP.
	ClosestSNP int  `yaml:"closest_snp"`
	HasSNP     bool `yaml:"has_snp"`
}

// Format writes the human-readable form of s.
func (s Summary) Format(w io.Writer) error {
	ids := make([]string, 0, len(s.Candidates))
	for id := range s.Candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	frags := make([]string, len(ids))
	for i, id := range ids {
		frags[i] = fmt.Sprintf("%s%v", id, s.Candidates[id])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Length of the group of fragments forming the peak of the distribution: %d bp\n", s.RegionLen)
	fmt.Fprintf(&b, "Fragments likely to carry the mutation: %s\n", strings.Join(frags, " "))
	if s.HasPeak {
		fmt.Fprintf(&b, "Peak of the hypothetical SNP density: %.0f\n", s.Peak)
	} else {
		b.WriteString("Peak of the hypothetical SNP density: none (too few samples)\n")
	}
	if s.HasSNP {
		fmt.Fprintf(&b, "Homozygous SNP closest to the peak: %d\n", s.ClosestSNP)
	} else {
		b.WriteString("Homozygous SNP closest to the peak: none\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary writes s to path in the format of Summary.Format.
func WriteSummary(ctx context.Context, path string, s Summary) error {
	return create(ctx, path, s.Format)
}
