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
	"io"
	"sort"
	"sync"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// IndexEntry is one line of a .fai index.
type IndexEntry struct {
	Name string `tsv:"name"`
	// Length is the number of bases.
	Length int64 `tsv:"length"`
	// Offset is the byte offset of the first base.
	Offset int64 `tsv:"offset"`
	// LineBases is the number of bases per line.
	LineBases int64 `tsv:"linebases"`
	// LineWidth is the number of bytes per line, newline included.
	LineWidth int64 `tsv:"linewidth"`
}

// ReadIndex parses a .fai index.
func ReadIndex(index io.Reader) ([]IndexEntry, error) {
	r := tsv.NewReader(index)
	var entries []IndexEntry
	for {
		var ent IndexEntry
		if err := r.Read(&ent); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "invalid FASTA index")
		}
		if ent.Length < 0 || ent.Offset < 0 || ent.LineBases <= 0 || ent.LineWidth < ent.LineBases {
			return nil, errors.Errorf("invalid FASTA index line for %s: %+v", ent.Name, ent)
		}
		entries = append(entries, ent)
	}
	return entries, nil
}

type indexedFasta struct {
	seqs      map[string]IndexEntry
	seqNames  []string
	reader    io.ReadSeeker
	mu        sync.Mutex
	bufOff    int64
	buf       []byte // file contents starting at bufOff
	resultBuf []byte
}

// NewIndexed creates a Fasta that reads sequences from fasta on demand,
// using index to locate them.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := ReadIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{seqs: make(map[string]IndexEntry, len(entries)), reader: fasta}
	for _, ent := range entries {
		if _, ok := f.seqs[ent.Name]; ok {
			return nil, errors.Errorf("duplicate sequence name %q in FASTA index", ent.Name)
		}
		f.seqs[ent.Name] = ent
		f.seqNames = append(f.seqNames, ent.Name)
	}
	sort.SliceStable(f.seqNames, func(i, j int) bool {
		return f.seqs[f.seqNames[i]].Offset < f.seqs[f.seqNames[j]].Offset
	})
	return f, nil
}

// IndexLengths returns sequence name -> length from a .fai index without
// touching the FASTA file.
func IndexLengths(index io.Reader) (map[string]uint64, error) {
	entries, err := ReadIndex(index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64, len(entries))
	for _, ent := range entries {
		lengths[ent.Name] = uint64(ent.Length)
	}
	return lengths, nil
}

func (f *indexedFasta) Len(seqName string) (uint64, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return uint64(ent.Length), nil
}

func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}

// read returns the bytes [off, off+n) of the FASTA file.
func (f *indexedFasta) read(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off >= f.bufOff && limit <= f.bufOff+int64(len(f.buf)) {
		return f.buf[off-f.bufOff : limit-f.bufOff], nil
	}
	if _, err := f.reader.Seek(off, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seek to offset %d", off)
	}
	size := 8192
	if size < n {
		size = n
	}
	f.buf = resize(f.buf, size)
	got, err := io.ReadAtLeast(f.reader, f.buf, n)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %d bytes at offset %d (bad index? file doesn't end in newline?)", n, off)
	}
	f.bufOff = off
	f.buf = f.buf[:got]
	return f.buf[:n], nil
}

func resize(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	ent, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if end > uint64(ent.Length) {
		return "", errors.Errorf("end is past end of sequence %s: %d", seqName, ent.Length)
	}
	lineBases, lineWidth := uint64(ent.LineBases), uint64(ent.LineWidth)
	newline := lineWidth - lineBases

	// Byte offset of start, skipping the newlines of the preceding lines.
	offset := uint64(ent.Offset) + start + newline*(start/lineBases)
	firstLine := lineBases - start%lineBases
	var newlines uint64
	if end-start > firstLine {
		newlines = 1 + (end-start-firstLine)/lineBases
	}
	buf, err := f.read(int64(offset), int(end-start+newlines*newline))
	if err != nil {
		return "", err
	}

	f.resultBuf = resize(f.resultBuf, int(end-start))
	col := (offset - uint64(ent.Offset)) % lineWidth
	n := 0
	for _, b := range buf {
		if col < lineBases {
			f.resultBuf[n] = b
			n++
		}
		if col++; col == lineWidth {
			col = 0
		}
	}
	return string(f.resultBuf), nil
}
