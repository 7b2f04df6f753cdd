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
package report

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/sdm/sdm"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func readFile(t *testing.T, path string) string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return string(data)
}

func TestWriteList(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := filepath.Join(tmpDir, "perm")
	assert.NoError(t, WriteList(ctx, path, []string{"frag3", "frag1"}))
	expect.EQ(t, readFile(t, path), "frag3\nfrag1\n")

	assert.NoError(t, WriteList(ctx, path, Ints([]int{12, 7})))
	expect.EQ(t, readFile(t, path), "12\n7\n")
	assert.NoError(t, WriteList(ctx, path, Floats([]float64{0.5, 3})))
	expect.EQ(t, readFile(t, path), "0.5\n3\n")

	assert.NoError(t, WriteList(ctx, path, nil))
	expect.EQ(t, readFile(t, path), "")
}

func TestWriteFragmentTable(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := filepath.Join(tmpDir, "frags.tsv")
	frags := []sdm.Fragment{
		{ID: "frag2", Length: 300, HomCount: 2, HetCount: 1, HomPositions: []int{10, 20}, HetPositions: []int{15}, Ratio: 2.5 / 1.5},
		{ID: "frag1", Length: 100},
	}
	assert.NoError(t, WriteFragmentTable(ctx, path, frags))
	expect.EQ(t, readFile(t, path),
		"Frag\thm\tht\tratio\tlen\thm_pos\tht_pos\n"+
			"frag2\t2\t1\t1.6666666666666667\t300\t10,20\t15\n"+
			"frag1\t0\t0\t0\t100\t.\t.\n")
}

func TestReadCounts(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := filepath.Join(tmpDir, "counts.tsv")
	assert.NoError(t, ioutil.WriteFile(path, []byte(
		"id\tlength\thom\thet\n"+
			"frag1\t1000\t14\t4\n"+
			"frag2\t500\t0\t0\n"), 0644))
	frags, err := ReadCounts(ctx, path, 1)
	assert.NoError(t, err)
	expect.EQ(t, len(frags), 2)
	expect.EQ(t, frags[0].ID, "frag1")
	expect.EQ(t, frags[0].Length, 1000)
	expect.EQ(t, frags[0].HomCount, 14)
	expect.EQ(t, frags[0].Ratio, 3.0)
	expect.EQ(t, frags[1].Ratio, 0.0)

	assert.NoError(t, ioutil.WriteFile(path, []byte(
		"id\thom\thet\tlength\n"+
			"frag1\t1\t1\t10\n"+
			"frag1\t2\t1\t10\n"), 0644))
	_, err = ReadCounts(ctx, path, 1)
	expect.True(t, errors.Is(errors.Invalid, err))

	_, err = ReadCounts(ctx, filepath.Join(tmpDir, "missing.tsv"), 1)
	expect.NotNil(t, err)
}

type testLog struct {
	Kept    int                 `yaml:"kept"`
	Buckets map[string][]string `yaml:"buckets"`
}

func TestYAML(t *testing.T) {
	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	b := sdm.NewBuckets()
	b.Add(0.5, "frag1", 0)
	b.Add(3, "frag2", 5)
	b.Add(3, "frag3", 5)
	want := testLog{Kept: 3, Buckets: BucketMap(b)}
	expect.EQ(t, want.Buckets, map[string][]string{"0.5": {"frag1"}, "3": {"frag2", "frag3"}})

	path := filepath.Join(tmpDir, "log.yml")
	assert.NoError(t, WriteYAML(ctx, path, want))
	var got testLog
	assert.NoError(t, ReadYAML(ctx, path, &got))
	expect.EQ(t, got, want)
}

func TestSummary(t *testing.T) {
	s := Summary{
		RegionLen:  12000,
		Candidates: map[string][]int{"frag9": {500}, "frag3": {120, 130}},
		Peak:       480.4,
		HasPeak:    true,
		ClosestSNP: 500,
		HasSNP:     true,
	}
	var buf bytes.Buffer
	assert.NoError(t, s.Format(&buf))
	expect.EQ(t, buf.String(),
		"Length of the group of fragments forming the peak of the distribution: 12000 bp\n"+
			"Fragments likely to carry the mutation: frag3[120 130] frag9[500]\n"+
			"Peak of the hypothetical SNP density: 480\n"+
			"Homozygous SNP closest to the peak: 500\n")

	ctx := vcontext.Background()
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpDir, "mutation.txt")
	assert.NoError(t, WriteSummary(ctx, path, Summary{RegionLen: 10}))
	expect.EQ(t, readFile(t, path),
		"Length of the group of fragments forming the peak of the distribution: 10 bp\n"+
			"Fragments likely to carry the mutation: \n"+
			"Peak of the hypothetical SNP density: none (too few samples)\n"+
			"Homozygous SNP closest to the peak: none\n")
}
