// Command psie builds the k-mer tables used for gene expression estimation:
// exact k-mer counts from reads, and per-k-mer gene contribution weights
// from a reference genome and its exon boundaries.
//
//	USAGE: psie <command> [options]
//
// Examples:
//
//	# count reads and index the genome into out/
//	psie build -c run.toml -g genome.fa -a exons.tsv -o out reads1.fq.gz reads2.fq.gz
//
//	# merge weight tables built per chromosome
//	psie merge -k 25 -o all.tsv chr1/weights.tsv chr2/weights.tsv
//
//	# group k-mers with identical gene profiles
//	psie classes -k 25 -w out/weights.tsv -n out/counts.tsv
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.Ltime)
	log.SetPrefix("[psie] ")

	rootCmd := &cobra.Command{
		Use:           "psie",
		Short:         "k-mer count and gene weight tables for expression estimation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(buildCommand(), mergeCommand(), classesCommand(), versionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("psie", version)
		},
	}
}
