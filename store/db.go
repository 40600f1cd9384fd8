package store

import (
	"encoding/binary"
	"math"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	psie "github.com/sherry521007/PSI-Estimation"
)

// Key prefixes.
const (
	prefixWeights byte = 'w'
	prefixCounts  byte = 'c'
)

// DB stores weight and count tables in a badger database. Keys are a one
// byte table prefix followed by the big-endian k-mer.
type DB struct {
	db *badger.DB
}

// Open opens or creates a database in dir.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "store: opening %s", dir)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func dbKey(prefix byte, k psie.Kmer) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(k))
	return key
}

// encodeGenes serializes gene weights as a uvarint count followed by, per
// gene, a uvarint name length, the name, and the 8-byte IEEE 754 weight.
func encodeGenes(genes []psie.GeneWeight) []byte {
	buf := make([]byte, 0, 16*len(genes)+binary.MaxVarintLen64)
	buf = binary.AppendUvarint(buf, uint64(len(genes)))
	for _, gw := range genes {
		buf = binary.AppendUvarint(buf, uint64(len(gw.Gene)))
		buf = append(buf, gw.Gene...)
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(gw.Weight))
	}
	return buf
}

func decodeGenes(buf []byte) ([]psie.GeneWeight, error) {
	n, m := binary.Uvarint(buf)
	if m <= 0 || n > uint64(len(buf)) {
		return nil, errors.New("store: corrupt gene count")
	}
	buf = buf[m:]
	genes := make([]psie.GeneWeight, 0, n)
	for i := uint64(0); i < n; i++ {
		l, m := binary.Uvarint(buf)
		if m <= 0 || l > uint64(len(buf)) || uint64(len(buf)-m) < l+8 {
			return nil, errors.Errorf("store: corrupt gene entry %d", i)
		}
		buf = buf[m:]
		gene := string(buf[:l])
		buf = buf[l:]
		w := math.Float64frombits(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		genes = append(genes, psie.GeneWeight{Gene: gene, Weight: w})
	}
	return genes, nil
}

// put writes the entries produced by each, splitting transactions that grow
// too large.
func (d *DB) put(each func(set func(key, val []byte) error) error) error {
	txn := d.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	err := each(func(key, val []byte) error {
		err := txn.Set(key, val)
		if err == badger.ErrTxnTooBig {
			if err = txn.Commit(); err != nil {
				return err
			}
			txn = d.db.NewTransaction(true)
			err = txn.Set(key, val)
		}
		return err
	})
	if err != nil {
		return err
	}
	return txn.Commit()
}

// PutWeights stores every k-mer of t, replacing previous values.
func (d *DB) PutWeights(t *psie.WeightTable) error {
	err := d.put(func(set func(key, val []byte) error) error {
		for _, k := range t.Keys() {
			if err := set(dbKey(prefixWeights, k), encodeGenes(t.Genes(k))); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "store: writing weights")
}

// PutCounts stores every count of c, replacing previous values.
func (d *DB) PutCounts(c *psie.CountTable) error {
	err := d.put(func(set func(key, val []byte) error) error {
		for _, k := range c.Keys() {
			val := binary.AppendUvarint(nil, c.Get(k))
			if err := set(dbKey(prefixCounts, k), val); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "store: writing counts")
}

func (d *DB) scan(prefix byte, fn func(k psie.Kmer, val []byte) error) error {
	return d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte{prefix}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != 9 {
				return errors.Errorf("store: unexpected key length %d", len(key))
			}
			k := psie.Kmer(binary.BigEndian.Uint64(key[1:]))
			if err := item.Value(func(val []byte) error { return fn(k, val) }); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadWeights reads the stored weight table.
func (d *DB) LoadWeights() (*psie.WeightTable, error) {
	t := psie.NewWeightTable()
	err := d.scan(prefixWeights, func(k psie.Kmer, val []byte) error {
		genes, err := decodeGenes(val)
		if err != nil {
			return err
		}
		for _, gw := range genes {
			t.Add(k, gw.Gene, gw.Weight)
		}
		return nil
	})
	return t, errors.Wrap(err, "store: loading weights")
}

// LoadCounts reads the stored count table.
func (d *DB) LoadCounts() (*psie.CountTable, error) {
	c := psie.NewCountTable()
	err := d.scan(prefixCounts, func(k psie.Kmer, val []byte) error {
		n, m := binary.Uvarint(val)
		if m <= 0 {
			return errors.Errorf("store: corrupt count for kmer %d", uint64(k))
		}
		c.Add(k, n)
		return nil
	})
	return c, errors.Wrap(err, "store: loading counts")
}
