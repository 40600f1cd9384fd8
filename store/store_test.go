package store

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	psie "github.com/sherry521007/PSI-Estimation"
)

func testTables(t *testing.T) (*psie.BaseKmer, *psie.WeightTable, *psie.CountTable) {
	t.Helper()
	b, err := psie.NewKmerBase(3)
	if err != nil {
		t.Fatal(err)
	}
	w := psie.NewWeightTable()
	w.Add(6, "G1", 2)
	w.Add(6, "G2", 1.0/3)
	w.Add(27, "G2", 2.0/3)
	w.Add(63, "G3", 1)
	c := psie.NewCountTable()
	c.Add(6, 12)
	c.Add(40, 1)
	return b, w, c
}

func TestWeightsTSVRoundTrip(t *testing.T) {
	b, w, _ := testTables(t)
	var buf bytes.Buffer
	if err := WriteWeights(&buf, b, w); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || lines[0] != "6\tACG\tG1\t2" {
		t.Fatalf("output:\n%s", buf.String())
	}
	got, err := ReadWeights(&buf, b)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(w) {
		t.Error("weights changed in a TSV round trip")
	}
	if got.Weight(6, "G2") != 1.0/3 {
		t.Errorf("weight(6, G2) = %v", got.Weight(6, "G2"))
	}
}

func TestCountsTSVRoundTrip(t *testing.T) {
	b, _, c := testTables(t)
	var buf bytes.Buffer
	if err := WriteCounts(&buf, b, c); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCounts(&buf, b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 2 || got.Get(6) != 12 || got.Get(40) != 1 {
		t.Errorf("counts: %d k-mers, 6=%d 40=%d", got.Len(), got.Get(6), got.Get(40))
	}
}

func TestReadTSVErrors(t *testing.T) {
	b, _, _ := testTables(t)
	for _, in := range []string{
		"6\tACG\tG1\n",
		"x\tACG\tG1\t1\n",
		"6\tACG\tG1\tone\n",
	} {
		if _, err := ReadWeights(strings.NewReader(in), b); err == nil {
			t.Errorf("ReadWeights(%q): expected error", in)
		}
	}
	if _, err := ReadCounts(strings.NewReader("6\tACG\t-1\n"), b); err == nil {
		t.Error("negative count: expected error")
	}
	w, err := ReadWeights(strings.NewReader("# key\tkmer\tgene\tweight\n\n6\tACG\tG1\t0.5\n6\tACG\tG1\t0.25\n"), b)
	if err != nil || w.Weight(6, "G1") != 0.75 {
		t.Errorf("repeated lines: %v, %v", w.Weight(6, "G1"), err)
	}
}

func TestReadTSVRejectsOtherKmerSize(t *testing.T) {
	b, w, c := testTables(t)
	wide, err := psie.NewKmerBase(5)
	if err != nil {
		t.Fatal(err)
	}
	// k=5 keys above the k=3 range
	big := psie.NewWeightTable()
	big.Add(1000, "G1", 1)
	var buf bytes.Buffer
	if err = WriteWeights(&buf, wide, big); err != nil {
		t.Fatal(err)
	}
	if _, err = ReadWeights(&buf, b); err == nil {
		t.Error("key beyond the k=3 mask: expected error")
	}

	// k=3 keys fit a k=5 mask but their kmer column is too short
	buf.Reset()
	if err = WriteWeights(&buf, b, w); err != nil {
		t.Fatal(err)
	}
	if _, err = ReadWeights(&buf, wide); err == nil {
		t.Error("k=3 weights read as k=5: expected error")
	}
	buf.Reset()
	if err = WriteCounts(&buf, b, c); err != nil {
		t.Fatal(err)
	}
	if _, err = ReadCounts(&buf, wide); err == nil {
		t.Error("k=3 counts read as k=5: expected error")
	}
	if _, err = ReadCounts(strings.NewReader("64\tACG\t1\n"), b); err == nil {
		t.Error("count key 64 with k=3: expected error")
	}
}

func TestDBRoundTrip(t *testing.T) {
	_, w, c := testTables(t)
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err = db.PutWeights(w); err != nil {
		t.Fatal(err)
	}
	if err = db.PutCounts(c); err != nil {
		t.Fatal(err)
	}
	gotW, err := db.LoadWeights()
	if err != nil {
		t.Fatal(err)
	}
	if !gotW.Equal(w) {
		t.Error("weights changed in a database round trip")
	}
	gotC, err := db.LoadCounts()
	if err != nil {
		t.Fatal(err)
	}
	if gotC.Len() != c.Len() || gotC.Get(6) != 12 || gotC.Total() != c.Total() {
		t.Errorf("counts: %d k-mers, total %d", gotC.Len(), gotC.Total())
	}

	// rewriting replaces rather than adds
	if err = db.PutWeights(w); err != nil {
		t.Fatal(err)
	}
	if gotW, err = db.LoadWeights(); err != nil || gotW.Weight(6, "G1") != 2 {
		t.Errorf("after rewrite weight(6, G1) = %v, %v", gotW.Weight(6, "G1"), err)
	}
}

func TestDecodeGenes(t *testing.T) {
	genes := []psie.GeneWeight{{Gene: "G1", Weight: 0.5}, {Gene: "gene-2", Weight: 1.0 / 3}}
	buf := encodeGenes(genes)
	got, err := decodeGenes(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != genes[0] || got[1] != genes[1] {
		t.Errorf("decoded %+v", got)
	}

	for _, bad := range [][]byte{
		nil,
		buf[:len(buf)-1],
		{0xff, 0xff, 0xff, 0xff, 0x0f},
		{1, 0xff, 0xff, 0xff, 0xff, 0x0f},
	} {
		if _, err := decodeGenes(bad); err == nil {
			t.Errorf("decodeGenes(%v): expected error", bad)
		}
	}
}

func TestInfoRoundTrip(t *testing.T) {
	cfg := psie.DefaultConfig()
	cfg.Junctions = "all"
	st := psie.Stats{K: 25, ReadLength: 100, NW: 1234, GenomeInvalid: 2, NG: 7, WeightKmers: 900, WeightCells: 950, CountKmers: 40, CountedWindow: 76}
	rs := psie.ReadStats{Reads: 1, InvalidBases: 3}
	info := NewInfo(cfg, st, rs)

	file := filepath.Join(t.TempDir(), FileInfo)
	if err := WriteInfo(file, info); err != nil {
		t.Fatal(err)
	}
	got, err := ReadInfo(file)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *info {
		t.Errorf("info = %+v, want %+v", got, info)
	}
	if got.Junctions != "all" || got.NW != 1234 || got.GenomeBad != 2 || got.Invalid != 3 {
		t.Errorf("info = %+v", got)
	}
}
