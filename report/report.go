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

// Package report writes the files produced by a bio-sdm run and reads the
// per-fragment count tables it accepts as input.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/sdm/sdm"
	"gopkg.in/yaml.v3"
)

// create opens path for writing and passes its writer to fn.
func create(ctx context.Context, path string, fn func(io.Writer) error) (err error) {
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if err = fn(out.Writer(ctx)); err != nil {
		err = errors.E(err, "write", path)
	}
	return
}

// WriteList writes one value per line.
func WriteList(ctx context.Context, path string, values []string) error {
	return create(ctx, path, func(w io.Writer) error {
		tw := tsv.NewWriter(w)
		for _, v := range values {
			tw.WriteString(v)
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}

// Ints formats integers for WriteList.
func Ints(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}

// Floats formats floats for WriteList.
func Floats(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = formatFloat(v)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "."
	}
	return strings.Join(Ints(values), ",")
}

// FragmentTableHeader is the header row of WriteFragmentTable.
var FragmentTableHeader = []string{"Frag", "hm", "ht", "ratio", "len", "hm_pos", "ht_pos"}

// WriteFragmentTable writes one row per fragment, in the given order.
// Position lists are comma separated, "." when empty.
func WriteFragmentTable(ctx context.Context, path string, frags []sdm.Fragment) error {
	return create(ctx, path, func(w io.Writer) error {
		tw := tsv.NewWriter(w)
		for _, col := range FragmentTableHeader {
			tw.WriteString(col)
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
		for _, f := range frags {
			tw.WriteString(f.ID)
			tw.WriteInt64(int64(f.HomCount))
			tw.WriteInt64(int64(f.HetCount))
			tw.WriteString(formatFloat(f.Ratio))
			tw.WriteInt64(int64(f.Length))
			tw.WriteString(joinInts(f.HomPositions))
			tw.WriteString(joinInts(f.HetPositions))
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}

// countRow is one line of a fragment count table.
type countRow struct {
	ID     string `tsv:"id"`
	Hom    int64  `tsv:"hom"`
	Het    int64  `tsv:"het"`
	Length int64  `tsv:"length"`
}

// ReadCounts reads a table with columns id, hom, het and length (with a
// header row, any column order) and returns fragments whose ratios use
// adjust. The fragments carry counts but no positions.
func ReadCounts(ctx context.Context, path string, adjust float64) (frags []sdm.Fragment, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	r.Comment = '#'
	seen := map[string]bool{}
	for {
		var row countRow
		if err = r.Read(&row); err != nil {
			if err == io.EOF {
				err = nil
				break
			}
			return nil, errors.E(err, "read", path)
		}
		if row.Hom < 0 || row.Het < 0 || row.Length < 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: negative count for fragment %s", path, row.ID))
		}
		if seen[row.ID] {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: duplicate fragment %s", path, row.ID))
		}
		seen[row.ID] = true
		frags = append(frags, sdm.NewFragment(row.ID, int(row.Length), int(row.Hom), int(row.Het), adjust))
	}
	return frags, nil
}

// WriteYAML writes v as YAML.
func WriteYAML(ctx context.Context, path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.E(err, "marshal", path)
	}
	return create(ctx, path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadYAML decodes the YAML file at path into v.
func ReadYAML(ctx context.Context, path string, v interface{}) (err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if err = yaml.NewDecoder(in.Reader(ctx)).Decode(v); err != nil && err != io.EOF {
		return errors.E(err, "decode", path)
	}
	return nil
}

// BucketMap converts b into ratio -> fragment IDs with string keys, which
// YAML can represent exactly.
func BucketMap(b *sdm.Buckets) map[string][]string {
	out := make(map[string][]string, b.Len())
	for _, k := range b.Keys() {
		out[formatFloat(k)] = b.IDs(k)
	}
	return out
}
