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
package fasta

import (
	"bufio"
	"io"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// DefaultLineWidth is the number of bases per line used by WriteOrdered when
// width is 0.
const DefaultLineWidth = 60

// Lengths returns the length of every sequence in f, keyed by name, and
// their sum.
func Lengths(f Fasta) (map[string]int, int, error) {
	lengths := make(map[string]int, len(f.SeqNames()))
	total := 0
	for _, name := range f.SeqNames() {
		n, err := f.Len(name)
		if err != nil {
			return nil, 0, err
		}
		lengths[name] = int(n)
		total += int(n)
	}
	return lengths, total, nil
}

// WriteOrdered writes the sequences of f to w in the given order, wrapping
// them at width bases per line. Names in order that f does not hold are
// skipped.
func WriteOrdered(w io.Writer, f Fasta, order []string, width int) error {
	if width <= 0 {
		width = DefaultLineWidth
	}
	bw := bufio.NewWriter(w)
	for _, name := range order {
		n, err := f.Len(name)
		if err != nil {
			log.Error.Printf("fasta: skipping %s: %v", name, err)
			continue
		}
		if _, err := bw.WriteString(">" + name + "\n"); err != nil {
			return errors.Wrap(err, "writing FASTA")
		}
		for start := uint64(0); start < n; start += uint64(width) {
			end := start + uint64(width)
			if end > n {
				end = n
			}
			bases, err := f.Get(name, start, end)
			if err != nil {
				return errors.Wrapf(err, "reading %s", name)
			}
			if _, err := bw.WriteString(bases + "\n"); err != nil {
				return errors.Wrap(err, "writing FASTA")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "writing FASTA")
}
