package psie

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Engine owns the k-mer count and weight tables of one run. Independent
// engines (e.g. one per chromosome) can be merged afterwards.
type Engine struct {
	cfg       Config
	base      *BaseKmer
	junctions JunctionMode
	policy    MergePolicy

	counts  *CountTable
	weights *WeightTable
	nw      int64
	invalid int64 // invalid genome bases inside gene spans
	ng      int
}

// Stats describes the current state of an Engine.
type Stats struct {
	K             int
	ReadLength    int
	NW            int64 // valid genomic windows scanned
	GenomeInvalid int64 // invalid bases skipped by the genome scan
	NG            int   // genes scanned
	WeightKmers   int
	WeightCells   int
	CountKmers    int
	CountedWindow uint64
}

// New returns an engine for cfg.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := NewKmerBase(cfg.K)
	if err != nil {
		return nil, err
	}
	junctions, _ := ParseJunctionMode(cfg.Junctions)
	policy, _ := ParseMergePolicy(cfg.MergePolicy)
	return &Engine{
		cfg:       cfg,
		base:      base,
		junctions: junctions,
		policy:    policy,
		counts:    NewCountTable(),
		weights:   NewWeightTable(),
	}, nil
}

// K returns the k-mer length.
func (e *Engine) K() int { return e.base.Length() }

// ReadLength returns the configured maximum read length.
func (e *Engine) ReadLength() int { return e.cfg.ReadLength }

// NW returns the number of valid genomic windows scanned so far.
func (e *Engine) NW() int64 { return e.nw }

// GenomeInvalidBases returns the number of invalid reference bases skipped
// inside gene spans so far.
func (e *Engine) GenomeInvalidBases() int64 { return e.invalid }

// Base returns the k-mer codec of the engine.
func (e *Engine) Base() *BaseKmer { return e.base }

// Counts returns the read k-mer counts.
func (e *Engine) Counts() *CountTable { return e.counts }

// Weights returns the k-mer weight table.
func (e *Engine) Weights() *WeightTable { return e.weights }

// Stats returns a summary of the engine's tables.
func (e *Engine) Stats() Stats {
	return Stats{
		K:             e.K(),
		ReadLength:    e.cfg.ReadLength,
		NW:            e.nw,
		GenomeInvalid: e.invalid,
		NG:            e.ng,
		WeightKmers:   e.weights.Len(),
		WeightCells:   e.weights.Cells(),
		CountKmers:    e.counts.Len(),
		CountedWindow: e.counts.Total(),
	}
}

// CountRead counts the valid k-mers of one read, truncated to the read
// length, and returns the number of windows counted.
func (e *Engine) CountRead(seq []byte) int {
	if len(seq) > e.cfg.ReadLength {
		seq = seq[:e.cfg.ReadLength]
	}
	n, _ := countRead(e.base, e.counts, seq)
	return n
}

// ReadReads counts the k-mers of every record of r.
func (e *Engine) ReadReads(r Reader) (ReadStats, error) {
	var st ReadStats
	for r.Next() {
		seq := r.SequenceBytes()
		st.Reads++
		if len(seq) > e.cfg.ReadLength {
			seq = seq[:e.cfg.ReadLength]
			st.Truncated++
		}
		if len(seq) < e.base.Length() {
			st.Short++
		}
		windows, invalid := countRead(e.base, e.counts, seq)
		st.Windows += int64(windows)
		st.InvalidBases += int64(invalid)
	}
	if err := r.Err(); err != nil {
		return st, errors.Wrapf(err, "psie: reading read %d", st.Reads+1)
	}
	return st, nil
}

// ScanOptions returns the scan options derived from the configuration.
func (e *Engine) ScanOptions() ScanOptions {
	opts := ScanOptions{Junctions: e.junctions}
	if e.cfg.ObservedOnly {
		opts.Observed = e.counts
	}
	return opts
}

type shard struct {
	table *WeightTable
	stats ScanStats
	err   error
}

// BuildKmerTable scans every gene of ann into its own shard table and folds
// the shards, in gene order, into the engine's weight table. Genes are
// scanned by up to Config.Workers goroutines. If any gene fails or ctx is
// cancelled the engine's table is left unchanged.
func (e *Engine) BuildKmerTable(ctx context.Context, ann *Annotation) error {
	return e.buildKmerTable(ctx, ann, nil)
}

// BuildKmerTableProgress is BuildKmerTable calling done after each gene.
func (e *Engine) BuildKmerTableProgress(ctx context.Context, ann *Annotation, done func()) error {
	return e.buildKmerTable(ctx, ann, done)
}

func (e *Engine) buildKmerTable(ctx context.Context, ann *Annotation, done func()) error {
	opts := e.ScanOptions()
	shards := make([]shard, ann.NG())

	workers := e.cfg.workers()
	if workers > ann.NG() {
		workers = ann.NG()
	}
	idxChan := make(chan int)
	wg := &sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				if err := ctx.Err(); err != nil {
					shards[i].err = err
					continue
				}
				shards[i].table, shards[i].stats, shards[i].err = ScanGene(e.base, ann.Genome(), ann.Gene(i), opts)
				if done != nil {
					done()
				}
			}
		}()
	}
	for i := 0; i < ann.NG(); i++ {
		idxChan <- i
	}
	close(idxChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	var total ScanStats
	tables := make([]*WeightTable, 0, len(shards)+1)
	tables = append(tables, e.weights)
	for i, s := range shards {
		if s.err != nil {
			return errors.Wrapf(s.err, "psie: scanning gene %s", ann.Gene(i).ID)
		}
		tables = append(tables, s.table)
		total.Windows += s.stats.Windows
		total.InvalidBases += s.stats.InvalidBases
	}
	merged, err := MergeKmerTables(e.policy, tables...)
	if err != nil {
		return err
	}
	e.weights = merged
	e.nw += total.Windows
	e.invalid += total.InvalidBases
	e.ng += ann.NG()
	return nil
}

// MergeKmerTable folds tables into the engine's weight table using the
// configured merge policy. On error the engine's table is unchanged.
func (e *Engine) MergeKmerTable(tables ...*WeightTable) error {
	merged, err := MergeKmerTables(e.policy, append([]*WeightTable{e.weights}, tables...)...)
	if err != nil {
		return err
	}
	e.weights = merged
	return nil
}

// MergeEngine folds the tables and window counts of o into e.
func (e *Engine) MergeEngine(o *Engine) error {
	if o.K() != e.K() {
		return errors.Errorf("psie: cannot merge engines with k=%d and k=%d", e.K(), o.K())
	}
	if err := e.MergeKmerTable(o.weights); err != nil {
		return err
	}
	e.counts.Merge(o.counts)
	e.nw += o.nw
	e.invalid += o.invalid
	e.ng += o.ng
	return nil
}
