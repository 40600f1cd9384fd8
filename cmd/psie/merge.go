package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	psie "github.com/sherry521007/PSI-Estimation"
	"github.com/sherry521007/PSI-Estimation/store"
)

func mergeCommand() *cobra.Command {
	var (
		k      uint
		output string
		policy string
	)
	cmd := &cobra.Command{
		Use:   "merge [flags] weights.tsv...",
		Short: "Merge k-mer weight tables built from separate shards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := psie.NewKmerBase(k)
			if err != nil {
				return err
			}
			p, err := psie.ParseMergePolicy(policy)
			if err != nil {
				return err
			}
			tables := make([]*psie.WeightTable, 0, len(args))
			for _, file := range args {
				t, err := readWeightsFile(file, base)
				if err != nil {
					return err
				}
				tables = append(tables, t)
			}
			merged, err := psie.MergeKmerTables(p, tables...)
			if err != nil {
				return err
			}
			log.Printf("Merged %d tables into %d k-mers", len(tables), merged.Len())
			return writeTo(output, func(w *bufio.Writer) error {
				return store.WriteWeights(w, base, merged)
			})
		},
	}
	cmd.Flags().UintVarP(&k, "kmer-size", "k", 25, "k-mer size of the tables")
	cmd.Flags().StringVarP(&output, "out-file", "o", "-", `output file ("-" for stdout)`)
	cmd.Flags().StringVarP(&policy, "policy", "p", string(psie.MergeSum), "merge policy: sum or strict")
	return cmd
}

func classesCommand() *cobra.Command {
	var (
		k       uint
		weights string
		counts  string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Group k-mers with identical gene weight profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := psie.NewKmerBase(k)
			if err != nil {
				return err
			}
			w, err := readWeightsFile(weights, base)
			if err != nil {
				return err
			}
			var c *psie.CountTable
			if counts != "" {
				fh, err := os.Open(counts)
				if err != nil {
					return errors.Wrap(err, "opening counts")
				}
				c, err = store.ReadCounts(fh, base)
				fh.Close()
				if err != nil {
					return err
				}
			}
			classes := psie.EquivalenceClasses(w, c)
			log.Printf("%d k-mers in %d classes", w.Len(), len(classes))
			return writeTo(output, func(bw *bufio.Writer) error {
				for i, cl := range classes {
					profile := make([]string, len(cl.Weights))
					for j, gw := range cl.Weights {
						profile[j] = gw.Gene + ":" + strconv.FormatFloat(gw.Weight, 'g', -1, 64)
					}
					if _, err := fmt.Fprintf(bw, "%d\t%s\t%d\t%d\t%s\n", i, base.Decode(cl.Keys[0]),
						len(cl.Keys), cl.Count, strings.Join(profile, ",")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().UintVarP(&k, "kmer-size", "k", 25, "k-mer size of the tables")
	cmd.Flags().StringVarP(&weights, "weights", "w", "", "weight table (TSV)")
	cmd.Flags().StringVarP(&counts, "counts", "n", "", "count table (TSV)")
	cmd.Flags().StringVarP(&output, "out-file", "o", "-", `output file ("-" for stdout)`)
	cmd.MarkFlagRequired("weights")
	return cmd
}

func readWeightsFile(file string, base *psie.BaseKmer) (*psie.WeightTable, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "opening weights")
	}
	defer fh.Close()
	t, err := store.ReadWeights(fh, base)
	return t, errors.Wrapf(err, "reading %s", file)
}

func writeTo(file string, fn func(w *bufio.Writer) error) error {
	out := os.Stdout
	if file != "-" {
		fh, err := os.Create(file)
		if err != nil {
			return errors.Wrapf(err, "creating %s", file)
		}
		defer fh.Close()
		out = fh
	}
	bw := bufio.NewWriter(out)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}
