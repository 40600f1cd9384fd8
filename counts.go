package psie

import (
	"github.com/twotwotwo/sorts/sortutil"
)

// CountTable holds exact k-mer occurrence counts observed in reads.
type CountTable struct {
	counts map[Kmer]uint64
}

// NewCountTable returns an empty table.
func NewCountTable() *CountTable {
	return &CountTable{counts: make(map[Kmer]uint64)}
}

// Add increments the count of key by n.
func (c *CountTable) Add(key Kmer, n uint64) {
	c.counts[key] += n
}

// Get returns the count of key.
func (c *CountTable) Get(key Kmer) uint64 {
	return c.counts[key]
}

// Has reports whether key was observed.
func (c *CountTable) Has(key Kmer) bool {
	_, ok := c.counts[key]
	return ok
}

// Len returns the number of distinct k-mers.
func (c *CountTable) Len() int {
	return len(c.counts)
}

// Total returns the sum of all counts.
func (c *CountTable) Total() uint64 {
	var n uint64
	for _, v := range c.counts {
		n += v
	}
	return n
}

// Keys returns all k-mers in ascending order.
func (c *CountTable) Keys() []Kmer {
	raw := make([]uint64, 0, len(c.counts))
	for k := range c.counts {
		raw = append(raw, uint64(k))
	}
	sortutil.Uint64s(raw)
	keys := make([]Kmer, len(raw))
	for i, k := range raw {
		keys[i] = Kmer(k)
	}
	return keys
}

// Each calls fn for every k-mer in ascending order.
func (c *CountTable) Each(fn func(key Kmer, n uint64)) {
	for _, k := range c.Keys() {
		fn(k, c.counts[k])
	}
}

// Merge adds every count of o into c.
func (c *CountTable) Merge(o *CountTable) {
	for k, v := range o.counts {
		c.counts[k] += v
	}
}

// ReadStats summarizes one pass over a read stream.
type ReadStats struct {
	Reads        int64
	Windows      int64 // valid k-mer windows counted
	InvalidBases int64
	Short        int64 // reads shorter than k
	Truncated    int64 // reads longer than the read length
}

// countRead adds every valid window of seq to counts and returns the number
// of windows and invalid bases.
func countRead(b *BaseKmer, counts *CountTable, seq []byte) (windows, invalid int) {
	invalid = EachKmer(b, seq, func(_ int, key Kmer) {
		counts.Add(key, 1)
		windows++
	})
	return windows, invalid
}
