package psie

import (
	"strings"

	"github.com/pkg/errors"
)

// Kmer is a packed k-mer DNA representation. The most recent base occupies
// the two lowest bits.
type Kmer uint64

// BaseCode is the 2-bit code of a single nucleotide.
type BaseCode uint8

// Nucleotide codes.
const (
	BaseA BaseCode = iota
	BaseC
	BaseG
	BaseT
)

// MaxKmerSize is the maximum K (bases) that can be represented in a Kmer type.
const MaxKmerSize = 32

// kmerBits is the width of the Kmer type.
const kmerBits = 64

// ParseBase converts one nucleotide to its 2-bit code. Lowercase letters are
// accepted so that soft-masked references encode like their uppercase form;
// anything else is an *InvalidBaseError.
func ParseBase(nuc byte) (BaseCode, error) {
	switch nuc {
	case 'A', 'a':
		return BaseA, nil
	case 'C', 'c':
		return BaseC, nil
	case 'G', 'g':
		return BaseG, nil
	case 'T', 't':
		return BaseT, nil
	}
	return 0, &InvalidBaseError{Base: nuc}
}

// BaseKmer tracks some basic values to make Kmer manipulation faster while
// still allowing code to use multiple values of K
type BaseKmer struct {
	k    int
	mask Kmer
}

// NewKmerBase returns a manipulator type that can be used to work with a
// specific kmer size of k. It returns a *KeyWidthOverflowError if k is zero
// or 2k exceeds the width of Kmer.
func NewKmerBase(k uint) (*BaseKmer, error) {
	if k == 0 || 2*k > kmerBits {
		return nil, &KeyWidthOverflowError{K: k, Bits: kmerBits}
	}
	// for k=32 the shift yields 0 and the mask wraps to all ones
	shift := 2 * k
	b := &BaseKmer{
		k:    int(k),
		mask: (Kmer(1) << shift) - 1,
	}
	return b, nil
}

// Length returns the base length of the kmers.
func (b *BaseKmer) Length() int {
	return b.k
}

// Mask returns the bit mask selecting the 2k low bits of a Kmer.
func (b *BaseKmer) Mask() Kmer {
	return b.mask
}

// Count returns the total possible kmers than can be represented.
// For k=32 the count does not fit and 0 is returned.
func (b *BaseKmer) Count() uint64 {
	return 1 + uint64(b.mask)
}

// Roll shifts the window left by one base (dropping the left-most) and
// appends c to the right.
func (b *BaseKmer) Roll(w Kmer, c BaseCode) Kmer {
	return ((w << 2) | Kmer(c)) & b.mask
}

// Encode packs exactly k bases into a Kmer.
func (b *BaseKmer) Encode(seq []byte) (Kmer, error) {
	if len(seq) != b.k {
		return 0, errors.Errorf("psie: cannot encode %d bases with k=%d", len(seq), b.k)
	}
	var w Kmer
	for _, nuc := range seq {
		c, err := ParseBase(nuc)
		if err != nil {
			return 0, err
		}
		w = b.Roll(w, c)
	}
	return w, nil
}

// Decode returns the uppercase bases packed in k.
func (b *BaseKmer) Decode(k Kmer) string {
	var sb strings.Builder
	sb.Grow(b.k)
	for i := b.k - 1; i >= 0; i-- {
		sb.WriteByte("ACGT"[(k>>uint(i*2))&3])
	}
	return sb.String()
}

// String returns a lowercase string representation of the Kmer.
func (b *BaseKmer) String(k Kmer) string {
	return strings.ToLower(b.Decode(k))
}

// Window returns a new, empty rolling window for this k.
func (b *BaseKmer) Window() *Window {
	return &Window{base: b}
}

// Window is a rolling packed k-mer. Pushing an invalid base discards the
// current contents, so a key is only produced once k consecutive valid bases
// have been seen.
type Window struct {
	base  *BaseKmer
	key   Kmer
	valid int
}

// Push appends nuc to the window. It returns the current key and true when
// the window holds k valid bases. The error is non-nil for an invalid base,
// in which case the window has been reset.
func (w *Window) Push(nuc byte) (Kmer, bool, error) {
	c, err := ParseBase(nuc)
	if err != nil {
		w.Reset()
		return 0, false, err
	}
	w.key = w.base.Roll(w.key, c)
	if w.valid < w.base.k {
		w.valid++
	}
	return w.key, w.valid == w.base.k, nil
}

// Reset empties the window.
func (w *Window) Reset() {
	w.key = 0
	w.valid = 0
}

// EachKmer calls fn for every window of seq made only of valid bases, with
// the window's start offset in seq. It returns the number of invalid bases
// encountered.
func EachKmer(b *BaseKmer, seq []byte, fn func(pos int, key Kmer)) (invalid int) {
	w := b.Window()
	for i, nuc := range seq {
		key, ok, err := w.Push(nuc)
		if err != nil {
			invalid++
			continue
		}
		if ok {
			fn(i-b.k+1, key)
		}
	}
	return invalid
}
