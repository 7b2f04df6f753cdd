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

// Package bgzf writes the block gzipped format used for compressed,
// indexable FASTA output. A .bgzf stream is a series of complete gzip
// members, each holding at most 64KB of payload and carrying its own
// compressed size in a "BC" Extra subfield. It ends with a 28 byte empty
// member, the terminator. Any gzip reader can decompress it; samtools can
// also seek in it.
//
// See the SAM/BAM spec: https://samtools.github.io/hts-specs/SAMv1.pdf
//
// htslib needs a .gzi index, written by WriteGZI from Writer.Blocks, to
// seek in a block gzipped FASTA that has a .fai.
//
//	var out bytes.Buffer
//	w, err := bgzf.NewWriter(&out, gzip.DefaultCompression)
//	_, err = w.Write(fasta)
//	err = w.Close()
package bgzf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultUncompressedBlockSize is the payload size per block used by
	// samtools and biogo.
	DefaultUncompressedBlockSize = 0x0ff00

	// MaxUncompressedBlockSize is the largest legal payload size per block.
	MaxUncompressedBlockSize = 0x10000

	// compressedBlockSize bounds the size of a compressed block.
	compressedBlockSize = 0x10000

	// Offsets into the gzip header.
	xflOffset   = 8
	extraOffset = 12
)

var (
	// bgzfExtra is the Extra subfield: id 'B' 'C', length 2, then BSIZE.
	bgzfExtra = [...]byte{66, 67, 2, 0, 0, 0}

	terminator = []byte{
		0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00, 0x42, 0x43,
		0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

// Writer compresses its payload into .bgzf blocks. It is not thread-safe.
type Writer struct {
	level            int
	uncompressedSize int
	xfl              int
	w                io.Writer
	gz               *gzip.Writer
	original         bytes.Buffer
	compressed       bytes.Buffer
	coffset          uint64 // file offset of the current block
	uoffset          uint64 // payload offset of the current block
	blocks           []Block
}

// Block locates the start of a block in the compressed file and in the
// uncompressed payload.
type Block struct {
	Compressed, Uncompressed uint64
}

// NewWriter returns a .bgzf writer with the given gzip compression level and
// the default block size.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	return NewWriterParams(w, level, DefaultUncompressedBlockSize, -1)
}

// NewWriterParams returns a .bgzf writer. uncompressedBlockSize is the
// payload size per block. If xfl is not -1, it overwrites the XFL byte of
// every block header.
func NewWriterParams(w io.Writer, level, uncompressedBlockSize, xfl int) (*Writer, error) {
	if uncompressedBlockSize <= 0 || uncompressedBlockSize > MaxUncompressedBlockSize {
		return nil, fmt.Errorf("bgzf: uncompressedBlockSize %d out of range (0, %d]",
			uncompressedBlockSize, MaxUncompressedBlockSize)
	}
	if xfl != -1 && (xfl < 0 || xfl > 255) {
		return nil, fmt.Errorf("bgzf: xfl must be -1 or in [0:255], not %d", xfl)
	}
	gz, err := gzip.NewWriterLevel(nil, level)
	if err != nil {
		return nil, err
	}
	return &Writer{
		level:            level,
		uncompressedSize: uncompressedBlockSize,
		xfl:              xfl,
		w:                w,
		gz:               gz,
	}, nil
}

// Write appends buf to the payload. Full blocks are compressed and written
// out immediately.
func (w *Writer) Write(buf []byte) (int, error) {
	for i := 0; i < len(buf); {
		end := i + w.uncompressedSize - w.original.Len()
		if end > len(buf) {
			end = len(buf)
		}
		n, _ := w.original.Write(buf[i:end])
		i += n
		if err := w.flushBlocks(false); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// CloseWithoutTerminator writes out the pending partial block. The output
// is not a complete .bgzf file until Close is called.
func (w *Writer) CloseWithoutTerminator() error {
	return w.flushBlocks(true)
}

// Close writes out the pending block and the terminator.
func (w *Writer) Close() error {
	if err := w.CloseWithoutTerminator(); err != nil {
		return err
	}
	_, err := w.w.Write(terminator)
	return err
}

func (w *Writer) flushBlocks(remainder bool) error {
	for w.original.Len() >= w.uncompressedSize || (remainder && w.original.Len() > 0) {
		w.gz.Reset(&w.compressed)
		w.gz.Header.Extra = append([]byte(nil), bgzfExtra[:]...)
		w.gz.Header.OS = 0xff
		payload := w.original.Next(w.uncompressedSize)
		if _, err := w.gz.Write(payload); err != nil {
			return err
		}
		if err := w.gz.Close(); err != nil {
			return err
		}

		b := w.compressed.Bytes()
		if w.xfl >= 0 {
			b[xflOffset] = byte(w.xfl)
		}
		bsize := len(b) - 1
		if bsize >= compressedBlockSize {
			return fmt.Errorf("bgzf: compressed block is too big: %d >= %d", bsize, compressedBlockSize)
		}
		if len(b) < extraOffset+len(bgzfExtra) || !bytes.Equal(b[extraOffset:extraOffset+4], bgzfExtra[:4]) {
			return fmt.Errorf("bgzf: gzip header lacks the BC subfield")
		}
		b[extraOffset+4] = byte(bsize)
		b[extraOffset+5] = byte(bsize >> 8)

		if w.coffset > 0 {
			w.blocks = append(w.blocks, Block{Compressed: w.coffset, Uncompressed: w.uoffset})
		}
		sz := w.compressed.Len()
		if _, err := w.compressed.WriteTo(w.w); err != nil {
			return err
		}
		w.coffset += uint64(sz)
		w.uoffset += uint64(len(payload))
	}
	return nil
}

// Blocks returns the start of every block written so far except the first,
// which is always at offset 0 in both coordinates.
func (w *Writer) Blocks() []Block {
	return w.blocks
}

// WriteGZI writes blocks in the .gzi format of htslib: the number of blocks
// followed by their compressed and uncompressed offsets, all as little
// endian uint64.
func WriteGZI(out io.Writer, blocks []Block) error {
	buf := make([]byte, 8*(1+2*len(blocks)))
	binary.LittleEndian.PutUint64(buf, uint64(len(blocks)))
	for i, b := range blocks {
		binary.LittleEndian.PutUint64(buf[8+16*i:], b.Compressed)
		binary.LittleEndian.PutUint64(buf[16+16*i:], b.Uncompressed)
	}
	_, err := out.Write(buf)
	return err
}
