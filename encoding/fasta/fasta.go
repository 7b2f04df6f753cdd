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

// Package fasta reads, indexes and writes the FASTA files that hold the
// fragments (contigs) of a draft assembly. See
// http://www.htslib.org/doc/faidx.html. A FASTA file is a list of named
// sequences, each of which may span several lines:
//
// >frag1
// ACGTAC
// GAGGAC
// GCG
// >frag2 Length:4
// ACGT
//
// The name of a sequence is the text after '>' up to the first space; the
// rest of the header line is dropped, so '>frag2 Length:4' becomes 'frag2'.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Longest line accepted by New.
const maxLineLen = 1024 * 1024 * 300

// Fasta is a set of named sequences.
type Fasta interface {
	// Get returns the bases of seqName in the 0-based half-open interval
	// [start, end). Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of seqName.
	Len(seqName string) (uint64, error)

	// SeqNames returns all sequence names in file order.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all the sequences from r into memory. Duplicate sequence names
// and bases before the first header are errors.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLen)
	var (
		seqName string
		inSeq   bool
		seq     strings.Builder
	)
	add := func() error {
		if _, ok := f.seqs[seqName]; ok {
			return errors.Errorf("duplicate sequence name %q", seqName)
		}
		f.seqs[seqName] = seq.String()
		f.seqNames = append(f.seqNames, seqName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] != '>' {
			if !inSeq {
				return nil, errors.Errorf("malformed FASTA file: bases before the first header")
			}
			seq.WriteString(line)
			continue
		}
		if inSeq {
			if err := add(); err != nil {
				return nil, err
			}
		}
		seqName = seqNameOf(line)
		inSeq = true
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	if inSeq {
		if err := add(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// seqNameOf extracts the sequence name from a header line.
func seqNameOf(header string) string {
	return strings.SplitN(header[1:], " ", 2)[0]
}

func (f *fasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	if end > uint64(len(s)) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

func (f *fasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

func (f *fasta) SeqNames() []string {
	return f.seqNames
}
