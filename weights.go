package psie

import (
	"sort"

	"github.com/twotwotwo/sorts/sortutil"
)

// GeneWeight is the contribution of one gene to a k-mer.
type GeneWeight struct {
	Gene   string
	Weight float64
}

// weightEntry is one (gene, weight) cell in the arena. Entries for the same
// k-mer form a singly linked list through next; -1 terminates it.
type weightEntry struct {
	gene   uint32
	weight float64
	next   int
}

// WeightTable maps a k-mer to the genes it may originate from and their
// accumulated weights. Gene IDs are interned and cells live in one flat
// arena; the index holds the head cell of each k-mer.
//
// A WeightTable is not safe for concurrent mutation.
type WeightTable struct {
	index   map[Kmer]int
	entries []weightEntry
	genes   []string
	geneIdx map[string]uint32
}

// NewWeightTable returns an empty table.
func NewWeightTable() *WeightTable {
	return &WeightTable{
		index:   make(map[Kmer]int),
		geneIdx: make(map[string]uint32),
	}
}

func (t *WeightTable) intern(gene string) uint32 {
	if id, ok := t.geneIdx[gene]; ok {
		return id
	}
	id := uint32(len(t.genes))
	t.genes = append(t.genes, gene)
	t.geneIdx[gene] = id
	return id
}

// Add accumulates w onto the weight of gene under key.
func (t *WeightTable) Add(key Kmer, gene string, w float64) {
	id := t.intern(gene)
	head, ok := t.index[key]
	if !ok {
		head = -1
	}
	for i := head; i >= 0; i = t.entries[i].next {
		if t.entries[i].gene == id {
			t.entries[i].weight += w
			return
		}
	}
	t.entries = append(t.entries, weightEntry{gene: id, weight: w, next: head})
	t.index[key] = len(t.entries) - 1
}

// Has reports whether gene has a weight under key.
func (t *WeightTable) Has(key Kmer, gene string) bool {
	_, ok := t.lookup(key, gene)
	return ok
}

// Weight returns the weight of gene under key, or 0.
func (t *WeightTable) Weight(key Kmer, gene string) float64 {
	w, _ := t.lookup(key, gene)
	return w
}

func (t *WeightTable) lookup(key Kmer, gene string) (float64, bool) {
	id, ok := t.geneIdx[gene]
	if !ok {
		return 0, false
	}
	head, ok := t.index[key]
	if !ok {
		return 0, false
	}
	for i := head; i >= 0; i = t.entries[i].next {
		if t.entries[i].gene == id {
			return t.entries[i].weight, true
		}
	}
	return 0, false
}

// Genes returns the gene weights recorded under key, sorted by gene ID.
func (t *WeightTable) Genes(key Kmer) []GeneWeight {
	head, ok := t.index[key]
	if !ok {
		return nil
	}
	var out []GeneWeight
	for i := head; i >= 0; i = t.entries[i].next {
		e := t.entries[i]
		out = append(out, GeneWeight{Gene: t.genes[e.gene], Weight: e.weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gene < out[j].Gene })
	return out
}

// Len returns the number of distinct k-mers.
func (t *WeightTable) Len() int {
	return len(t.index)
}

// Cells returns the number of (k-mer, gene) pairs.
func (t *WeightTable) Cells() int {
	return len(t.entries)
}

// GeneIDs returns every gene that has at least one weight, sorted.
func (t *WeightTable) GeneIDs() []string {
	out := append([]string(nil), t.genes...)
	sort.Strings(out)
	return out
}

// Keys returns all k-mers in ascending order.
func (t *WeightTable) Keys() []Kmer {
	raw := make([]uint64, 0, len(t.index))
	for k := range t.index {
		raw = append(raw, uint64(k))
	}
	sortutil.Uint64s(raw)
	keys := make([]Kmer, len(raw))
	for i, k := range raw {
		keys[i] = Kmer(k)
	}
	return keys
}

// Each calls fn for every k-mer in ascending order with its gene weights
// sorted by gene ID.
func (t *WeightTable) Each(fn func(key Kmer, genes []GeneWeight)) {
	for _, k := range t.Keys() {
		fn(k, t.Genes(k))
	}
}

// Equal reports whether both tables hold exactly the same weights.
func (t *WeightTable) Equal(o *WeightTable) bool {
	if t.Len() != o.Len() || t.Cells() != o.Cells() {
		return false
	}
	for key := range t.index {
		a, b := t.Genes(key), o.Genes(key)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
