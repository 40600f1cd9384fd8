package psie

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func malformed(t *testing.T, err error) *MalformedBoundaryError {
	t.Helper()
	var mbe *MalformedBoundaryError
	if !errors.As(err, &mbe) {
		t.Fatalf("got %v, want MalformedBoundaryError", err)
	}
	return mbe
}

func TestGeneValidate(t *testing.T) {
	ok := Gene{ID: "G1", Exons: []Exon{{0, 5}, {10, 15}}}
	if err := ok.Validate(20); err != nil {
		t.Fatalf("valid gene: %v", err)
	}
	if s, e := ok.Span(); s != 0 || e != 15 {
		t.Errorf("Span = [%d, %d], want [0, 15]", s, e)
	}

	valid := []Gene{
		{ID: "single-base exon", Exons: []Exon{{0, 0}, {3, 8}}},
		{ID: "single-base exons", Exons: []Exon{{2, 2}, {3, 3}, {19, 19}}},
		{ID: "declared [0,0]", HasSpan: true, Exons: []Exon{{0, 0}}},
	}
	for _, g := range valid {
		if err := g.Validate(20); err != nil {
			t.Errorf("%s: %v", g.ID, err)
		}
	}
	point := Gene{ID: "g", HasSpan: true, Start: 0, End: 0, Exons: []Exon{{0, 0}}}
	if s, e := point.Span(); s != 0 || e != 0 {
		t.Errorf("declared span [0, 0] read as [%d, %d]", s, e)
	}
	undeclared := Gene{ID: "g", Exons: []Exon{{4, 6}, {9, 9}}}
	if s, e := undeclared.Span(); s != 4 || e != 9 {
		t.Errorf("derived span [%d, %d], want [4, 9]", s, e)
	}

	cases := []struct {
		name string
		gene Gene
		exon int
	}{
		{"no exons", Gene{ID: "g"}, -1},
		{"overlap", Gene{ID: "g", Exons: []Exon{{0, 5}, {3, 8}}}, 1},
		{"touching", Gene{ID: "g", Exons: []Exon{{0, 5}, {5, 8}}}, 1},
		{"same single base", Gene{ID: "g", Exons: []Exon{{4, 4}, {4, 4}}}, 1},
		{"declared [0,0] with later exon", Gene{ID: "g", HasSpan: true, Exons: []Exon{{0, 0}, {2, 3}}}, 1},
		{"unsorted", Gene{ID: "g", HasSpan: true, Start: 0, End: 15, Exons: []Exon{{10, 12}, {0, 5}}}, 1},
		{"reversed exon", Gene{ID: "g", Exons: []Exon{{6, 2}}}, -1},
		{"outside declared span", Gene{ID: "g", HasSpan: true, Start: 2, End: 18, Exons: []Exon{{0, 5}}}, 0},
		{"past genome end", Gene{ID: "g", Exons: []Exon{{10, 25}}}, -1},
		{"negative start", Gene{ID: "g", Exons: []Exon{{-3, 4}}}, -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mbe := malformed(t, c.gene.Validate(20))
			if mbe.Gene != "g" {
				t.Errorf("error names gene %q", mbe.Gene)
			}
			if c.exon >= 0 && mbe.Exon != c.exon {
				t.Errorf("error names exon %d, want %d", mbe.Exon, c.exon)
			}
		})
	}
}

func TestReadGenome(t *testing.T) {
	genome := []byte("ACGTACGTACGTACGTACGT")
	genes := []Gene{
		{ID: "G1", Exons: []Exon{{0, 4}, {8, 11}}},
		{ID: "G2", Exons: []Exon{{14, 19}}},
	}
	ann, err := ReadGenome(genome, genes)
	if err != nil {
		t.Fatal(err)
	}
	if ann.NG() != 2 {
		t.Errorf("NG = %d", ann.NG())
	}
	if ne := ann.NE(); ne[0] != 2 || ne[1] != 1 {
		t.Errorf("NE = %v", ne)
	}
	// G1 spans 12 bases, G2 6: 10 + 4 windows of 3
	if nw := ann.Windows(3); nw != 14 {
		t.Errorf("Windows(3) = %d, want 14", nw)
	}

	// the model keeps its own copy of the boundaries
	genes[0].Exons[0].End = 100
	if ann.Gene(0).Exons[0].End != 4 {
		t.Error("annotation shares exon slice with caller")
	}

	_, err = ReadGenome(genome, []Gene{genes[1], genes[1]})
	malformed(t, err)

	_, err = ReadGenome(genome, []Gene{{ID: "bad", Exons: []Exon{{0, 5}, {2, 9}}}})
	if mbe := malformed(t, err); mbe.Gene != "bad" {
		t.Errorf("error names gene %q", mbe.Gene)
	}
}

func TestParseExonBoundaries(t *testing.T) {
	in := "# gene\tn\tstarts\tends\n" +
		"G1\t2\t0,10,\t5,15,\n" +
		"\n" +
		"G2\t1\t20\t30\t18\t35\n"
	genes, err := ParseExonBoundaries(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(genes) != 2 {
		t.Fatalf("got %d genes", len(genes))
	}
	g := genes[0]
	if g.ID != "G1" || len(g.Exons) != 2 || g.Exons[1] != (Exon{10, 15}) {
		t.Errorf("G1 = %+v", g)
	}
	if g.HasSpan {
		t.Error("G1 has no declared span")
	}
	g = genes[1]
	if !g.HasSpan || g.Start != 18 || g.End != 35 || g.Exons[0] != (Exon{20, 30}) {
		t.Errorf("G2 = %+v", g)
	}

	genes, err = ParseExonBoundaries(strings.NewReader("G3\t1\t0\t0\t0\t0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if g = genes[0]; !g.HasSpan || g.Start != 0 || g.End != 0 || g.Validate(1) != nil {
		t.Errorf("G3 = %+v", g)
	}

	_, err = ParseExonBoundaries(strings.NewReader("G1\t3\t0,10\t5,15\n"))
	malformed(t, err)

	if _, err = ParseExonBoundaries(strings.NewReader("G1\t1\t0\n")); err == nil {
		t.Error("short line: expected error")
	}
	if _, err = ParseExonBoundaries(strings.NewReader("G1\t1\tx\t5\n")); err == nil {
		t.Error("bad start: expected error")
	}
}
