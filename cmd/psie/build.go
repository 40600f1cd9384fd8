package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	psie "github.com/sherry521007/PSI-Estimation"
	"github.com/sherry521007/PSI-Estimation/store"
)

const (
	fileWeights = "weights.tsv"
	fileCounts  = "counts.tsv"
)

type buildOptions struct {
	config     string
	genome     string
	boundaries string
	outDir     string
	dbDir      string
	k          uint
	readLength int
	workers    int
	progress   bool
}

func buildCommand() *cobra.Command {
	var opt buildOptions
	cmd := &cobra.Command{
		Use:   "build [flags] reads.fq...",
		Short: "Count read k-mers and build the k-mer gene weight table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := psie.DefaultConfig()
			if opt.config != "" {
				var err error
				if cfg, err = psie.LoadConfig(opt.config); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("kmer-size") {
				cfg.K = opt.k
			}
			if cmd.Flags().Changed("read-length") {
				cfg.ReadLength = opt.readLength
			}
			if cmd.Flags().Changed("threads") {
				cfg.Workers = opt.workers
			}
			return runBuild(cfg, opt, args)
		},
	}
	cmd.Flags().StringVarP(&opt.config, "config", "c", "", "TOML run configuration")
	cmd.Flags().StringVarP(&opt.genome, "genome", "g", "", "reference genome (FASTA)")
	cmd.Flags().StringVarP(&opt.boundaries, "exons", "a", "", "exon boundary table (TSV)")
	cmd.Flags().StringVarP(&opt.outDir, "out-dir", "o", "psie-out", "output directory")
	cmd.Flags().StringVar(&opt.dbDir, "db", "", "also store the tables in a badger database in this directory")
	cmd.Flags().UintVarP(&opt.k, "kmer-size", "k", 25, "k-mer size (overrides config)")
	cmd.Flags().IntVarP(&opt.readLength, "read-length", "l", 100, "read length (overrides config)")
	cmd.Flags().IntVarP(&opt.workers, "threads", "j", runtime.NumCPU(), "number of threads (overrides config)")
	cmd.Flags().BoolVar(&opt.progress, "progress", true, "show progress bars")
	cmd.MarkFlagRequired("genome")
	cmd.MarkFlagRequired("exons")
	return cmd
}

func runBuild(cfg psie.Config, opt buildOptions, readFiles []string) error {
	engine, err := psie.New(cfg)
	if err != nil {
		return err
	}
	ann, err := loadAnnotation(opt.genome, opt.boundaries)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d genes, %d bases of reference", ann.NG(), len(ann.Genome()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var rs psie.ReadStats
	if cfg.ObservedOnly {
		// the scan filters on read k-mers, so counting must finish first
		if rs, err = countFiles(cfg, engine, readFiles, opt.progress); err != nil {
			return err
		}
		if err = scanGenome(ctx, engine, ann, opt.progress); err != nil {
			return err
		}
	} else {
		var countErr error
		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs, countErr = countFiles(cfg, engine, readFiles, false)
		}()
		err = scanGenome(ctx, engine, ann, opt.progress)
		wg.Wait()
		if err != nil {
			return err
		}
		if countErr != nil {
			return countErr
		}
	}
	if rs.InvalidBases > 0 {
		log.Printf("Warning: %d invalid bases in reads were skipped", rs.InvalidBases)
	}
	if rs.Truncated > 0 {
		log.Printf("Warning: %d reads longer than %d were truncated", rs.Truncated, cfg.ReadLength)
	}

	return writeOutputs(cfg, engine, rs, opt)
}

func loadAnnotation(genomeFile, boundaryFile string) (*psie.Annotation, error) {
	genome, err := psie.LoadGenome(genomeFile)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(boundaryFile)
	if err != nil {
		return nil, errors.Wrap(err, "opening exon boundaries")
	}
	defer fh.Close()
	genes, err := psie.ParseExonBoundaries(fh)
	if err != nil {
		return nil, err
	}
	return psie.ReadGenome(genome, genes)
}

func scanGenome(ctx context.Context, engine *psie.Engine, ann *psie.Annotation, progress bool) error {
	var bar *pb.ProgressBar
	done := func() {}
	if progress {
		bar = pb.Full.Start64(int64(ann.NG()))
		done = func() { bar.Increment() }
	}
	err := engine.BuildKmerTableProgress(ctx, ann, done)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}
	// counts may still be filling concurrently, so avoid engine.Stats here
	log.Printf("Scanned %d genomic windows, %d k-mers with gene weights", engine.NW(), engine.Weights().Len())
	if n := engine.GenomeInvalidBases(); n > 0 {
		log.Printf("Warning: %d invalid bases in gene spans of the reference were skipped", n)
	}
	return nil
}

// countFiles counts each read file in its own engine, up to one file per
// CPU at a time, and folds the counts into engine.
func countFiles(cfg psie.Config, engine *psie.Engine, files []string, progress bool) (psie.ReadStats, error) {
	var total psie.ReadStats
	if len(files) == 0 {
		return total, nil
	}
	ncpu := runtime.NumCPU()
	if len(files) < ncpu {
		ncpu = len(files)
	}

	type result struct {
		engine *psie.Engine
		stats  psie.ReadStats
		err    error
	}
	results := make([]result, len(files))

	var bar *pb.ProgressBar
	if progress {
		bar = pb.Full.Start64(int64(len(files)))
	}
	fnChan := make(chan int)
	wg := &sync.WaitGroup{}
	for i := 0; i < ncpu; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fnChan {
				results[idx].engine, results[idx].stats, results[idx].err = countFile(cfg, files[idx])
				if bar != nil {
					bar.Increment()
				}
			}
		}()
	}
	for i := range files {
		fnChan <- i
	}
	close(fnChan)
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}

	for i, r := range results {
		if r.err != nil {
			return total, errors.Wrapf(r.err, "counting %s", files[i])
		}
		engine.Counts().Merge(r.engine.Counts())
		total.Reads += r.stats.Reads
		total.Windows += r.stats.Windows
		total.InvalidBases += r.stats.InvalidBases
		total.Short += r.stats.Short
		total.Truncated += r.stats.Truncated
	}
	log.Printf("Counted %d k-mer windows from %d reads in %d files", total.Windows, total.Reads, len(files))
	return total, nil
}

func countFile(cfg psie.Config, file string) (*psie.Engine, psie.ReadStats, error) {
	e, err := psie.New(cfg)
	if err != nil {
		return nil, psie.ReadStats{}, err
	}
	rdr, err := psie.Open(file)
	if err != nil {
		return nil, psie.ReadStats{}, err
	}
	defer rdr.Close()
	st, err := e.ReadReads(rdr)
	return e, st, err
}

func writeOutputs(cfg psie.Config, engine *psie.Engine, rs psie.ReadStats, opt buildOptions) error {
	if err := os.MkdirAll(opt.outDir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	if err := writeFile(filepath.Join(opt.outDir, fileWeights), func(fh *os.File) error {
		return store.WriteWeights(fh, engine.Base(), engine.Weights())
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opt.outDir, fileCounts), func(fh *os.File) error {
		return store.WriteCounts(fh, engine.Base(), engine.Counts())
	}); err != nil {
		return err
	}
	info := store.NewInfo(cfg, engine.Stats(), rs)
	if err := store.WriteInfo(filepath.Join(opt.outDir, store.FileInfo), info); err != nil {
		return err
	}
	log.Printf("Tables written to %s", opt.outDir)

	if opt.dbDir == "" {
		return nil
	}
	db, err := store.Open(opt.dbDir)
	if err != nil {
		return err
	}
	if err = db.PutWeights(engine.Weights()); err == nil {
		err = db.PutCounts(engine.Counts())
	}
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		log.Printf("Tables stored in %s", opt.dbDir)
	}
	return err
}

func writeFile(name string, fn func(fh *os.File) error) error {
	fh, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	if err = fn(fh); err != nil {
		fh.Close()
		return err
	}
	return errors.Wrapf(fh.Close(), "closing %s", name)
}
