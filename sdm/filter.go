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

// Member is one fragment inside a bucket.
type Member struct {
	ID string
	// Hom is the raw homozygous count, used to order members that share a
	// key.
	Hom int
}

// Buckets groups fragments by a score (normally the ratio). Each key maps to
// the members that share exactly that score, in insertion order.
//
// The zero value is not usable; call NewBuckets.
type Buckets struct {
	keys    []float64 // in first-insertion order
	members map[float64][]Member
}

// NewBuckets creates an empty Buckets.
func NewBuckets() *Buckets {
	return &Buckets{members: map[float64][]Member{}}
}

// Add appends a fragment to the bucket for key.
func (b *Buckets) Add(key float64, id string, hom int) {
	if _, ok := b.members[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.members[key] = append(b.members[key], Member{ID: id, Hom: hom})
}

// Len returns the number of distinct keys.
func (b *Buckets) Len() int { return len(b.keys) }

// NumFragments returns the number of members over all keys.
func (b *Buckets) NumFragments() int {
	n := 0
	for _, m := range b.members {
		n += len(m)
	}
	return n
}

// Keys returns the distinct keys in ascending order.
func (b *Buckets) Keys() []float64 {
	keys := append([]float64(nil), b.keys...)
	sort.Float64s(keys)
	return keys
}

// Members returns the members stored under key, in insertion order. The
// caller must not modify the result.
func (b *Buckets) Members(key float64) []Member {
	return b.members[key]
}

// IDs returns the fragment IDs stored under key, in insertion order.
func (b *Buckets) IDs(key float64) []string {
	m := b.members[key]
	ids := make([]string, len(m))
	for i := range m {
		ids[i] = m[i].ID
	}
	return ids
}

// Map returns key -> fragment IDs. It is meant for logging.
func (b *Buckets) Map() map[float64][]string {
	out := make(map[float64][]string, len(b.keys))
	for _, k := range b.keys {
		out[k] = b.IDs(k)
	}
	return out
}

// FilterStats counts what Select did with its input.
//
// INVARIANT: Total == NoVariants + BelowThreshold + Kept.
type FilterStats struct {
	Total int
	// NoVariants is the number of fragments dropped because they carry no
	// variant (only with Opts.OnlyWithVariants).
	NoVariants int
	// BelowThreshold is the number of fragments dropped by the ratio
	// threshold (only with Opts.Threshold > 0).
	BelowThreshold int
	// FinalThreshold is the threshold percentage in effect when the threshold
	// step stopped; 0 if the step did not run.
	FinalThreshold int
	Kept           int
}

// Discarded returns the total number of dropped fragments.
func (s FilterStats) Discarded() int { return s.NoVariants + s.BelowThreshold }

// Select drops fragments that carry no usable signal and groups the rest by
// ratio. If every fragment is dropped, the result is empty, not an error.
func Select(frags []Fragment, opts Opts) (*Buckets, FilterStats) {
	stats := FilterStats{Total: len(frags)}
	kept := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		if opts.OnlyWithVariants && !f.hasVariants(opts.Adjust) {
			stats.NoVariants++
			continue
		}
		kept = append(kept, f)
	}
	if opts.OnlyWithVariants {
		log.Printf("Discarded %d out of %d fragments, which lack any variant", stats.NoVariants, stats.Total)
	} else {
		log.Printf("No filtering was applied to fragments that lack any variant")
	}
	if opts.Threshold > 0 {
		n := len(kept)
		kept, stats.FinalThreshold = thresholdFilter(kept, opts.Threshold)
		stats.BelowThreshold = n - len(kept)
	}
	stats.Kept = len(kept)

	b := NewBuckets()
	for _, f := range kept {
		b.Add(f.Ratio, f.ID, f.HomCount)
	}
	return b, stats
}

// thresholdFilter drops fragments whose ratio is at most threshold% of the
// maximum ratio. As long as more than 30 fragments survive per discarded
// one, the threshold is raised by 2% and the cut is retried. It never goes
// to 100%, which would drop everything.
func thresholdFilter(frags []Fragment, threshold int) ([]Fragment, int) {
	if len(frags) == 0 {
		return frags, threshold
	}
	maxRatio := frags[0].Ratio
	for _, f := range frags[1:] {
		if f.Ratio > maxRatio {
			maxRatio = f.Ratio
		}
	}
	var kept []Fragment
	for ; ; threshold += 2 {
		cut := maxRatio * float64(threshold) / 100
		kept = kept[:0]
		for _, f := range frags {
			if f.Ratio > cut {
				kept = append(kept, f)
			}
		}
		discarded := len(frags) - len(kept)
		log.Printf("threshold %d%%: %d fragments out of %d discarded", threshold, discarded, len(frags))
		if len(kept) <= 30*discarded || threshold+2 >= 100 {
			break
		}
	}
	return kept, threshold
}
