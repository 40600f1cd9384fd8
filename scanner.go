package psie

import (
	"github.com/pkg/errors"
)

// JunctionMode selects which splice-junction k-mers a scan records.
type JunctionMode string

// Junction modes.
const (
	JunctionsNone     JunctionMode = "none"
	JunctionsAdjacent JunctionMode = "adjacent" // consecutive exons only
	JunctionsAll      JunctionMode = "all"      // every exon pair i<j, including skips
)

// ScanOptions tunes a gene scan.
type ScanOptions struct {
	Junctions JunctionMode

	// Observed, when set, restricts the scan to k-mers present in it.
	Observed *CountTable
}

// Contribution returns the fraction of the k bases of the window starting at
// windowStart that fall inside the exon [exonStart, exonEnd]. A window that
// is not entirely inside the gene span [geneStart, geneEnd] contributes 0.
// All coordinates are inclusive.
func Contribution(k, geneStart, geneEnd, exonStart, exonEnd, windowStart int) float64 {
	if k <= 0 {
		return 0
	}
	windowEnd := windowStart + k - 1
	if windowStart < geneStart || windowEnd > geneEnd {
		return 0
	}
	lo, hi := windowStart, windowEnd
	if exonStart > lo {
		lo = exonStart
	}
	if exonEnd < hi {
		hi = exonEnd
	}
	if hi < lo {
		return 0
	}
	return float64(hi-lo+1) / float64(k)
}

// ScanStats summarizes the genome scan of one or more genes.
type ScanStats struct {
	Windows      int64 // valid genomic windows
	InvalidBases int64 // skipped bases inside gene spans
}

// ScanGene builds the weight table of a single gene over genome. A gene that
// fails validation yields a *MalformedBoundaryError and no table.
func ScanGene(b *BaseKmer, genome []byte, g Gene, opts ScanOptions) (*WeightTable, ScanStats, error) {
	var st ScanStats
	if err := g.Validate(len(genome)); err != nil {
		return nil, st, err
	}
	tree, err := g.exonTree()
	if err != nil {
		return nil, st, err
	}

	k := b.Length()
	start, end := g.Span()
	t := NewWeightTable()

	invalid := EachKmer(b, genome[start:end+1], func(pos int, key Kmer) {
		st.Windows++
		if opts.Observed != nil && !opts.Observed.Has(key) {
			return
		}
		p := start + pos
		hits, ok := tree.AllIntersections(treeRange(p, p+k-1))
		if !ok {
			return // intronic
		}
		var w float64
		for _, e := range hits {
			ex := g.Exons[e]
			w += Contribution(k, start, end, ex.Start, ex.End, p)
		}
		if w > 1 {
			w = 1
		}
		if w > 0 {
			t.Add(key, g.ID, w)
		}
	})

	st.InvalidBases = int64(invalid)

	scanJunctions(b, genome, g, opts, t)
	return t, st, nil
}

// scanJunctions records the k-mers that only exist in the spliced transcript:
// each spans the tail of one exon and the head of a later one.
func scanJunctions(b *BaseKmer, genome []byte, g Gene, opts ScanOptions, t *WeightTable) {
	k := b.Length()
	if k < 2 || opts.Junctions == "" || opts.Junctions == JunctionsNone {
		return
	}
	junction := make([]byte, 0, 2*(k-1))
	for i := 0; i < len(g.Exons)-1; i++ {
		last := len(g.Exons) - 1
		if opts.Junctions == JunctionsAdjacent {
			last = i + 1
		}
		for j := i + 1; j <= last; j++ {
			left, right := g.Exons[i], g.Exons[j]
			ls := left.End - (k - 2)
			if ls < left.Start {
				ls = left.Start
			}
			re := right.Start + k - 2
			if re > right.End {
				re = right.End
			}
			junction = append(junction[:0], genome[ls:left.End+1]...)
			junction = append(junction, genome[right.Start:re+1]...)
			EachKmer(b, junction, func(_ int, key Kmer) {
				if opts.Observed != nil && !opts.Observed.Has(key) {
					return
				}
				t.Add(key, g.ID, 1)
			})
		}
	}
}

// ParseJunctionMode converts a configuration value to a JunctionMode.
func ParseJunctionMode(s string) (JunctionMode, error) {
	switch m := JunctionMode(s); m {
	case "", JunctionsNone:
		return JunctionsNone, nil
	case JunctionsAdjacent, JunctionsAll:
		return m, nil
	}
	return "", errors.Errorf("psie: unknown junction mode %q", s)
}
