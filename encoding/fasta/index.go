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
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// indexer accumulates the .fai entry of the sequence being scanned.
type indexer struct {
	out  *tsv.Writer
	cur  IndexEntry
	seen map[string]bool
	err  errors.Once
}

func (x *indexer) startSeq(name string, offset int64) {
	if x.seen[name] {
		x.err.Set(errors.E(errors.Invalid, "duplicate sequence name", name))
	}
	x.seen[name] = true
	x.cur = IndexEntry{Name: name, Offset: offset}
}

func (x *indexer) addLine(fullLen, bases int) {
	if x.cur.LineWidth == 0 {
		x.cur.LineWidth = int64(fullLen)
		x.cur.LineBases = int64(bases)
	}
	x.cur.Length += int64(bases)
}

func (x *indexer) flush() {
	x.out.WriteString(x.cur.Name)
	x.out.WriteInt64(x.cur.Length)
	x.out.WriteInt64(x.cur.Offset)
	x.out.WriteInt64(x.cur.LineBases)
	x.out.WriteInt64(x.cur.LineWidth)
	x.err.Set(x.out.EndLine())
}

// GenerateIndex writes the .fai index of the FASTA data in `in` to `out`.
// The result can be passed to NewIndexed.
//
// The index format is defined by "samtools faidx"
// (http://www.htslib.org/doc/faidx.html).
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		x       = indexer{out: tsv.NewWriter(out), seen: map[string]bool{}}
		r       = bufio.NewReader(in)
		started bool
		cumByte int64
	)
	for x.err.Err() == nil {
		fullLine, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			x.err.Set(err)
			break
		}
		cumByte += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if started {
				x.flush()
			}
			x.startSeq(seqNameOf(string(line)), cumByte)
			started = true
		case !started:
			x.err.Set(errors.E(errors.Invalid, "malformed FASTA file: bases before the first header"))
		default:
			x.addLine(len(fullLine), len(line))
		}
		if err == io.EOF {
			break
		}
	}
	if cumByte == 0 {
		x.err.Set(errors.E(errors.Invalid, "empty FASTA file"))
	}
	if started && x.err.Err() == nil {
		x.flush()
	}
	x.err.Set(x.out.Flush())
	return x.err.Err()
}
