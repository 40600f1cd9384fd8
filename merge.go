package psie

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MergePolicy decides how weights for the same k-mer and gene coming from
// different tables combine.
type MergePolicy string

// Merge policies.
const (
	// MergeSum adds weights. Shards partition the genome, so the sum equals
	// what a single unsharded scan would have produced.
	MergeSum MergePolicy = "sum"
	// MergeStrict fails with *MergeConflictError when two tables hold a
	// weight for the same k-mer and gene.
	MergeStrict MergePolicy = "strict"
)

// ParseMergePolicy converts a configuration value to a MergePolicy.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch p := MergePolicy(s); p {
	case "", MergeSum:
		return MergeSum, nil
	case MergeStrict:
		return p, nil
	}
	return "", errors.Errorf("psie: unknown merge policy %q", s)
}

// MergeKmerTables combines tables into a new table. The inputs are not
// modified. Under MergeSum the result does not depend on argument order or
// grouping, up to floating point rounding.
func MergeKmerTables(policy MergePolicy, tables ...*WeightTable) (*WeightTable, error) {
	out := NewWeightTable()
	for _, t := range tables {
		if err := mergeInto(out, t, policy); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mergeInto folds src into dst. Under MergeStrict all conflicts are checked
// before dst is touched.
func mergeInto(dst, src *WeightTable, policy MergePolicy) error {
	if src == nil {
		return nil
	}
	if policy == MergeStrict {
		for _, key := range src.Keys() {
			for _, gw := range src.Genes(key) {
				if dst.Has(key, gw.Gene) {
					return &MergeConflictError{Key: key, Gene: gw.Gene}
				}
			}
		}
	}
	for _, key := range src.Keys() {
		for i := src.index[key]; i >= 0; i = src.entries[i].next {
			e := src.entries[i]
			dst.Add(key, src.genes[e.gene], e.weight)
		}
	}
	return nil
}

// MergeCountTables sums count tables into a new table.
func MergeCountTables(tables ...*CountTable) *CountTable {
	out := NewCountTable()
	for _, t := range tables {
		if t != nil {
			out.Merge(t)
		}
	}
	return out
}

// Class is a group of k-mers sharing one gene weight profile.
type Class struct {
	Keys    []Kmer
	Count   uint64
	Weights []GeneWeight
}

// EquivalenceClasses groups the k-mers of w whose gene weight profiles are
// identical and sums their read counts from c (which may be nil). Classes are
// ordered by their smallest k-mer.
func EquivalenceClasses(w *WeightTable, c *CountTable) []Class {
	var classes []Class
	byProfile := make(map[string]int)
	var sb strings.Builder
	for _, key := range w.Keys() {
		genes := w.Genes(key)
		sb.Reset()
		for _, gw := range genes {
			sb.WriteString(gw.Gene)
			sb.WriteByte(0)
			sb.WriteString(strconv.FormatUint(math.Float64bits(gw.Weight), 16))
			sb.WriteByte(0)
		}
		profile := sb.String()
		idx, ok := byProfile[profile]
		if !ok {
			idx = len(classes)
			byProfile[profile] = idx
			classes = append(classes, Class{Weights: genes})
		}
		classes[idx].Keys = append(classes[idx].Keys, key)
		if c != nil {
			classes[idx].Count += c.Get(key)
		}
	}
	return classes
}
