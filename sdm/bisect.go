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
	"sort"

	"github.com/grailbio/base/log"
)

// Side names the accumulator that receives the next unpaired member.
type Side uint8

const (
	// LowSide is the sequence that starts the permutation.
	LowSide Side = iota
	// HighSide is the sequence that ends the permutation, reversed.
	HighSide
)

func (s Side) flip() Side { return s ^ 1 }

// bisector distributes the buckets, lowest key first, over two sequences.
// low + reverse(high) is the permutation: the lowest keys end up at both
// extremes and the highest keys next to the seam in the middle.
//
// A bisector belongs to a single Arrange call.
type bisector struct {
	buckets   *Buckets
	remaining []float64 // ascending; remaining[0] is the next key to split.
	low, high []string
	side      Side
	// trace records the keys in the order they were split.
	trace []float64
}

func newBisector(b *Buckets) *bisector {
	return &bisector{
		buckets:   b,
		remaining: b.Keys(),
		low:       make([]string, 0, b.NumFragments()/2+1),
		high:      make([]string, 0, b.NumFragments()/2+1),
		side:      LowSide,
	}
}

func (s *bisector) done() bool { return len(s.remaining) == 0 }

// split consumes the smallest remaining key.
//
// Members of the bucket are ordered by (homozygous count, ID) and grouped by
// homozygous count. For each group, in increasing count order: an odd member
// out goes to the side named by s.side, which then flips; the first half of
// the rest is appended to low and the second half to high.
//
// REQUIRES: !s.done()
func (s *bisector) split() float64 {
	key := s.remaining[0]
	s.remaining = s.remaining[1:]
	s.trace = append(s.trace, key)

	members := append([]Member(nil), s.buckets.Members(key)...)
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Hom != members[j].Hom {
			return members[i].Hom < members[j].Hom
		}
		return members[i].ID < members[j].ID
	})
	for start := 0; start < len(members); {
		end := start + 1
		for end < len(members) && members[end].Hom == members[start].Hom {
			end++
		}
		s.place(members[start:end])
		start = end
	}
	log.Debug.Printf("split: key %v, %d members, low %d, high %d", key, len(members), len(s.low), len(s.high))
	return key
}

func (s *bisector) place(group []Member) {
	if len(group)%2 == 1 {
		if s.side == LowSide {
			s.low = append(s.low, group[0].ID)
		} else {
			s.high = append(s.high, group[0].ID)
		}
		s.side = s.side.flip()
		group = group[1:]
	}
	half := len(group) / 2
	for _, m := range group[:half] {
		s.low = append(s.low, m.ID)
	}
	for _, m := range group[half:] {
		s.high = append(s.high, m.ID)
	}
}

// run splits until no key remains, one key per iteration.
func (s *bisector) run() {
	for !s.done() {
		s.split()
	}
}

// permutation returns low followed by high reversed.
func (s *bisector) permutation() []string {
	perm := make([]string, 0, len(s.low)+len(s.high))
	perm = append(perm, s.low...)
	for i := len(s.high) - 1; i >= 0; i-- {
		perm = append(perm, s.high[i])
	}
	return perm
}
