// Package store persists k-mer tables as tab-separated text, in a badger
// key-value database, and summarizes runs in a TOML info file.
package store

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	psie "github.com/sherry521007/PSI-Estimation"
)

// WriteWeights writes one line per (k-mer, gene) in key then gene order:
//
//	key  kmer  gene  weight
//
// Weights use the shortest representation that parses back to the same
// float64.
func WriteWeights(w io.Writer, b *psie.BaseKmer, t *psie.WeightTable) error {
	bw := bufio.NewWriter(w)
	var err error
	t.Each(func(key psie.Kmer, genes []psie.GeneWeight) {
		if err != nil {
			return
		}
		kmer := b.Decode(key)
		for _, gw := range genes {
			_, err = bw.WriteString(strconv.FormatUint(uint64(key), 10) + "\t" + kmer + "\t" +
				gw.Gene + "\t" + strconv.FormatFloat(gw.Weight, 'g', -1, 64) + "\n")
			if err != nil {
				return
			}
		}
	})
	if err != nil {
		return errors.Wrap(err, "store: writing weights")
	}
	return errors.Wrap(bw.Flush(), "store: writing weights")
}

// ReadWeights parses the output of WriteWeights for k-mers of b's size.
// Repeated (k-mer, gene) lines are summed.
func ReadWeights(r io.Reader, b *psie.BaseKmer) (*psie.WeightTable, error) {
	t := psie.NewWeightTable()
	err := eachLine(r, 4, func(line int, cols []string) error {
		key, err := parseKey(b, cols)
		if err != nil {
			return errors.Wrapf(err, "store: weights line %d", line)
		}
		w, err := strconv.ParseFloat(cols[3], 64)
		if err != nil {
			return errors.Wrapf(err, "store: weights line %d: weight", line)
		}
		t.Add(key, cols[2], w)
		return nil
	})
	return t, err
}

// WriteCounts writes one line per k-mer in key order:
//
//	key  kmer  count
func WriteCounts(w io.Writer, b *psie.BaseKmer, c *psie.CountTable) error {
	bw := bufio.NewWriter(w)
	var err error
	c.Each(func(key psie.Kmer, n uint64) {
		if err != nil {
			return
		}
		_, err = bw.WriteString(strconv.FormatUint(uint64(key), 10) + "\t" + b.Decode(key) + "\t" +
			strconv.FormatUint(n, 10) + "\n")
	})
	if err != nil {
		return errors.Wrap(err, "store: writing counts")
	}
	return errors.Wrap(bw.Flush(), "store: writing counts")
}

// ReadCounts parses the output of WriteCounts for k-mers of b's size.
func ReadCounts(r io.Reader, b *psie.BaseKmer) (*psie.CountTable, error) {
	c := psie.NewCountTable()
	err := eachLine(r, 3, func(line int, cols []string) error {
		key, err := parseKey(b, cols)
		if err != nil {
			return errors.Wrapf(err, "store: counts line %d", line)
		}
		n, err := strconv.ParseUint(cols[2], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "store: counts line %d: count", line)
		}
		c.Add(key, n)
		return nil
	})
	return c, err
}

// parseKey reads the key column and checks it, and the kmer column, against
// the k-mer size of b.
func parseKey(b *psie.BaseKmer, cols []string) (psie.Kmer, error) {
	v, err := strconv.ParseUint(cols[0], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "key")
	}
	key := psie.Kmer(v)
	if key > b.Mask() {
		return 0, errors.Errorf("key %d exceeds the range of k=%d", v, b.Length())
	}
	if len(cols[1]) != b.Length() {
		return 0, errors.Errorf("kmer %s is not %d bases long", cols[1], b.Length())
	}
	return key, nil
}

func eachLine(r io.Reader, ncols int, fn func(line int, cols []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" || text[0] == '#' {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != ncols {
			return errors.Errorf("store: line %d: expected %d columns, got %d", line, ncols, len(cols))
		}
		if err := fn(line, cols); err != nil {
			return err
		}
	}
	return errors.Wrap(sc.Err(), "store: reading table")
}
