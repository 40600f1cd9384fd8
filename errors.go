package psie

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrReadLength is returned when the configured read length cannot hold a
// single k-mer.
var ErrReadLength = errors.New("psie: read length shorter than k")

// InvalidBaseError reports a character outside the A/C/G/T alphabet.
// Sequence scanners recover from it by restarting the current k-mer window.
type InvalidBaseError struct {
	Base byte
}

func (e *InvalidBaseError) Error() string {
	return fmt.Sprintf("psie: invalid base %q", e.Base)
}

// MalformedBoundaryError reports exon spans that overlap, are unsorted, or
// fall outside the gene or genome. Exon is -1 when the problem concerns the
// gene as a whole.
type MalformedBoundaryError struct {
	Gene   string
	Exon   int
	Reason string
}

func (e *MalformedBoundaryError) Error() string {
	if e.Exon < 0 {
		return fmt.Sprintf("psie: gene %s: malformed boundary: %s", e.Gene, e.Reason)
	}
	return fmt.Sprintf("psie: gene %s exon %d: malformed boundary: %s", e.Gene, e.Exon, e.Reason)
}

// KeyWidthOverflowError reports a k that cannot be packed into a Kmer.
type KeyWidthOverflowError struct {
	K    uint
	Bits int
}

func (e *KeyWidthOverflowError) Error() string {
	return fmt.Sprintf("psie: kmer size k=%d needs %d bits (max %d, k in 1..%d)",
		e.K, 2*e.K, e.Bits, MaxKmerSize)
}

// MergeConflictError is returned by MergeStrict when two tables carry a
// weight for the same k-mer and gene.
type MergeConflictError struct {
	Key  Kmer
	Gene string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("psie: merge conflict for kmer %d gene %s", uint64(e.Key), e.Gene)
}
