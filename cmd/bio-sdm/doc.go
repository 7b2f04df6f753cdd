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

/*
bio-sdm orders the fragments of a shuffled draft assembly by their
homozygous/heterozygous SNP ratio and reports the fragments, and SNPs, most
likely to carry the causal mutation of a bulk-segregant mapping population.

	bio-sdm -fasta frags.fa -vcf snps.vcf -cross back -adjust 0.5 -out out/sdm

Inputs are the assembly FASTA (optionally gzipped) and either a VCF whose
records are flagged HOM/HET or genotyped, or a table of per-fragment counts
(-counts, columns id, hom, het, length). A parameter file in the format of
input_pars.yml (keys fasta, vcf, ratio_adj, filter, cross, outdir, logdir) may
replace the flags; flags given on the command line win.

Each -adjust value gets its own pair of directories,
<out>_<filter>_<adjust> and <log-dir>_<filter>_<adjust>. The output
directory holds:

	perm.fasta(.gz)  fragments in the arranged order, with a .fai index
	perm             the arranged fragment order
	candidates       fragments around the peak of the distribution
	hyp_positions    homozygous SNP positions on the candidate fragments
	high_ratio       arranged fragments above the homozygosity cutoff
	frags_*.tsv      per-fragment counts and positions, input and arranged order
	hyp_ratios       hypothetical SNP density of the arranged order
	mutation.txt     summary, including the SNP closest to the density peak

The log directory holds the intermediate structures as YAML.
*/
package main
