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

// Average fragment length at which an assembly is considered coarse.
const coarseAssemblyLen = 10000

// Arrangement is the outcome of Arrange.
type Arrangement struct {
	// Permutation is the hypothesized fragment order. It contains every
	// fragment of the input buckets exactly once.
	Permutation []string
	// Low and High are the two halves before High is reversed. Their last
	// elements sit next to the middle of Permutation.
	Low, High []string
	// Window is the most fragments taken from each side.
	Window int
	// Candidates holds the last Window fragments of Low followed by the last
	// Window fragments of High. A side shorter than Window is taken whole.
	Candidates []string
	// Keys lists the bucket keys in the order they were split.
	Keys []float64
}

// CandidateWindow returns how many fragments to take from each side of the
// seam. smaller is the length of the shorter side; it only bounds the window
// of coarse assemblies. Fine assemblies take min(window, len(side)) from each
// side.
func CandidateWindow(cross CrossType, avgFragLen float64, smaller int) (int, error) {
	if _, err := ParseCrossType(string(cross)); err != nil {
		return 0, err
	}
	if avgFragLen >= coarseAssemblyLen {
		return minInt(smaller, 6), nil
	}
	if cross == OutCross {
		return 20, nil
	}
	return 10, nil
}

// Arrange orders the fragments of b into a bell-shaped permutation and picks
// the candidate fragments around its middle. Empty buckets yield an empty
// Arrangement.
func Arrange(b *Buckets, cross CrossType, avgFragLen float64) (Arrangement, error) {
	if _, err := ParseCrossType(string(cross)); err != nil {
		return Arrangement{}, err
	}
	s := newBisector(b)
	s.run()

	a := Arrangement{
		Permutation: s.permutation(),
		Low:         s.low,
		High:        s.high,
		Keys:        s.trace,
	}
	var err error
	if a.Window, err = CandidateWindow(cross, avgFragLen, minInt(len(s.low), len(s.high))); err != nil {
		return Arrangement{}, err
	}
	a.Candidates = dedup(append(tail(s.low, a.Window), tail(s.high, a.Window)...))
	return a, nil
}

func tail(s []string, n int) []string {
	if n > len(s) {
		n = len(s)
	}
	return append([]string(nil), s[len(s)-n:]...)
}

// dedup removes repeated IDs, keeping the first occurrence.
func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
