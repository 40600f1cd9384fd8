package psie

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rdleal/intervalst/interval"
)

// Exon is a closed, 0-based genomic interval [Start, End].
type Exon struct {
	Start int
	End   int
}

// Len returns the number of bases in the exon.
func (e Exon) Len() int {
	return e.End - e.Start + 1
}

// Gene is an ordered list of non-overlapping exons. When HasSpan is set,
// Start and End give the declared gene span; otherwise the span runs from
// the first exon start to the last exon end.
type Gene struct {
	ID      string
	HasSpan bool
	Start   int
	End     int
	Exons   []Exon
}

// Span returns the gene span, derived from the exons when none was declared.
func (g *Gene) Span() (start, end int) {
	if !g.HasSpan && len(g.Exons) > 0 {
		return g.Exons[0].Start, g.Exons[len(g.Exons)-1].End
	}
	return g.Start, g.End
}

var cmpInt = func(x, y int) int { return x - y }

// exonTree indexes the exons of a gene by position; values are exon numbers.
// Tree intervals are [2*start, 2*end+1], so single-base exons never become
// point intervals; query with treeRange.
func (g *Gene) exonTree() (*interval.SearchTree[int, int], error) {
	t := interval.NewSearchTree[int, int](cmpInt)
	for i, e := range g.Exons {
		lo, hi := treeRange(e.Start, e.End)
		if _, hit := t.AnyIntersection(lo, hi); hit {
			return nil, &MalformedBoundaryError{Gene: g.ID, Exon: i, Reason: "overlaps another exon"}
		}
		if err := t.Insert(lo, hi, i); err != nil {
			return nil, &MalformedBoundaryError{Gene: g.ID, Exon: i, Reason: err.Error()}
		}
	}
	return t, nil
}

// treeRange maps the closed base interval [start, end] to exonTree
// coordinates. Two mapped ranges intersect exactly when the base intervals
// share a base, whether the tree compares ends inclusively or not.
func treeRange(start, end int) (int, int) {
	return 2 * start, 2*end + 1
}

// Validate checks that the exons are well-formed, strictly increasing,
// non-overlapping and contained in the gene span, and that the span lies in
// a genome of genomeLen bases. A negative genomeLen skips the last check.
func (g *Gene) Validate(genomeLen int) error {
	if len(g.Exons) == 0 {
		return &MalformedBoundaryError{Gene: g.ID, Exon: -1, Reason: "no exons"}
	}
	start, end := g.Span()
	if start < 0 || end < start {
		return &MalformedBoundaryError{Gene: g.ID, Exon: -1,
			Reason: fmt.Sprintf("invalid gene span [%d, %d]", start, end)}
	}
	if genomeLen >= 0 && end >= genomeLen {
		return &MalformedBoundaryError{Gene: g.ID, Exon: -1,
			Reason: fmt.Sprintf("gene span [%d, %d] exceeds genome length %d", start, end, genomeLen)}
	}
	for i, e := range g.Exons {
		if e.End < e.Start {
			return &MalformedBoundaryError{Gene: g.ID, Exon: i,
				Reason: fmt.Sprintf("end %d before start %d", e.End, e.Start)}
		}
		if e.Start < start || e.End > end {
			return &MalformedBoundaryError{Gene: g.ID, Exon: i,
				Reason: fmt.Sprintf("[%d, %d] outside gene span [%d, %d]", e.Start, e.End, start, end)}
		}
		if i > 0 && e.Start <= g.Exons[i-1].Start {
			return &MalformedBoundaryError{Gene: g.ID, Exon: i, Reason: "exons not sorted by start"}
		}
	}
	_, err := g.exonTree()
	return err
}

// Annotation is the read-only gene model over one reference sequence.
type Annotation struct {
	genome []byte
	genes  []Gene
	ne     []int
}

// ReadGenome validates genes against genome and returns the gene model.
// Any malformed gene or duplicated gene ID fails the whole model.
func ReadGenome(genome []byte, genes []Gene) (*Annotation, error) {
	a := &Annotation{
		genome: genome,
		genes:  make([]Gene, len(genes)),
		ne:     make([]int, len(genes)),
	}
	seen := make(map[string]struct{}, len(genes))
	for i, g := range genes {
		if _, dup := seen[g.ID]; dup {
			return nil, &MalformedBoundaryError{Gene: g.ID, Exon: -1, Reason: "duplicate gene id"}
		}
		seen[g.ID] = struct{}{}
		if err := g.Validate(len(genome)); err != nil {
			return nil, err
		}
		g.Exons = append([]Exon(nil), g.Exons...)
		a.genes[i] = g
		a.ne[i] = len(g.Exons)
	}
	return a, nil
}

// Genome returns the reference sequence.
func (a *Annotation) Genome() []byte { return a.genome }

// NG returns the number of genes.
func (a *Annotation) NG() int { return len(a.genes) }

// NE returns the exon count of every gene, parallel to Genes.
func (a *Annotation) NE() []int { return a.ne }

// Gene returns the i'th gene.
func (a *Annotation) Gene(i int) Gene { return a.genes[i] }

// Genes returns all genes in input order.
func (a *Annotation) Genes() []Gene { return a.genes }

// Windows returns the number of k-mer start positions over all gene spans.
func (a *Annotation) Windows(k int) int64 {
	var nw int64
	for i := range a.genes {
		start, end := a.genes[i].Span()
		if n := end - start + 1 - k + 1; n > 0 {
			nw += int64(n)
		}
	}
	return nw
}

// ParseExonBoundaries reads tab-separated gene boundaries:
//
//	gene  exonCount  start1,start2,...  end1,end2,...  [geneStart  geneEnd]
//
// Coordinates are 0-based and inclusive. Blank lines and lines starting with
// '#' are skipped.
func ParseExonBoundaries(r io.Reader) ([]Gene, error) {
	var genes []Gene
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || text[0] == '#' {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != 4 && len(cols) != 6 {
			return nil, errors.Errorf("psie: boundary line %d: expected 4 or 6 columns, got %d", line, len(cols))
		}
		g := Gene{ID: cols[0]}
		n, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, errors.Wrapf(err, "psie: boundary line %d: exon count", line)
		}
		starts, err := parseInts(cols[2])
		if err != nil {
			return nil, errors.Wrapf(err, "psie: boundary line %d: exon starts", line)
		}
		ends, err := parseInts(cols[3])
		if err != nil {
			return nil, errors.Wrapf(err, "psie: boundary line %d: exon ends", line)
		}
		if len(starts) != n || len(ends) != n {
			return nil, &MalformedBoundaryError{Gene: g.ID, Exon: -1,
				Reason: fmt.Sprintf("exon count %d but %d starts and %d ends", n, len(starts), len(ends))}
		}
		for e := 0; e < n; e++ {
			g.Exons = append(g.Exons, Exon{Start: starts[e], End: ends[e]})
		}
		if len(cols) == 6 {
			g.HasSpan = true
			if g.Start, err = strconv.Atoi(cols[4]); err != nil {
				return nil, errors.Wrapf(err, "psie: boundary line %d: gene start", line)
			}
			if g.End, err = strconv.Atoi(cols[5]); err != nil {
				return nil, errors.Wrapf(err, "psie: boundary line %d: gene end", line)
			}
		}
		genes = append(genes, g)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "psie: reading boundaries")
	}
	return genes, nil
}

func parseInts(field string) ([]int, error) {
	field = strings.TrimSuffix(field, ",")
	if field == "" {
		return nil, nil
	}
	parts := strings.Split(field, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
