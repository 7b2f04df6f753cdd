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

// Package sdm implements the SNP distribution method: it reorders the contigs
// of a shuffled assembly so that the homozygous/heterozygous variant ratio
// along the new order approximates the bell curve expected around a causal
// mutation in a bulk-segregant mapping population.
//
// Fragments linked to the mutation carry many more homozygous than
// heterozygous variants; unlinked fragments tend to a 1:1 ratio. The true
// order of the fragments is unknown, but the shape of the ratio along the
// chromosome is: it peaks at the mutation and decays on both sides.
//
// The pipeline is
//
//	Fragment ratios -> Select -> Buckets -> Arrange -> Arrangement -> SelectPositions
//
// Each fragment gets ratio (hom+adjust)/(het+adjust), or 0 if it has no
// variant at all (ComputeRatio). Select drops fragments without variants and,
// optionally, fragments whose ratio falls under a percentage of the maximum
// ratio. The rest are grouped into Buckets keyed by ratio.
//
// Arrange repeatedly takes the lowest remaining key and deals its fragments
// onto two sequences, low and high. When a group has an odd member out, it
// goes to alternating sides. The permutation is low followed by high
// reversed, so the lowest ratios end up at both ends and the highest next to
// the middle.
//
// The candidates are the last k fragments of low and of high, or the whole
// side when it is shorter, where k depends on the cross type and on how
// fragmented the assembly is (CandidateWindow). SelectPositions maps candidates to homozygous variant
// positions.
//
// Everything is deterministic: ties within a bucket are ordered by homozygous
// count, then by fragment ID. Run wraps the whole pipeline; Sweep runs several
// option sets in parallel.
package sdm
