/**
 * Filename: /Users/bao/code/c3s/cmd/c3s.go
 * Path: /Users/bao/code/c3s/cmd
 * Created Date: Wednesday, January 22nd 2020, 11:21:45 am
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tanghaibao/c3s"
)

var (
	pipelineCfg = c3s.DefaultConfig()
	modelCfg    = c3s.DefaultConfig()
	chromSizes  string
	splitMotif  string
	splitMinLen int
	fixPrefix   string
	fixProcs    int
)

var rootCmd = &cobra.Command{
	Use:   "c3s",
	Short: "Capture-3C-Seq analysis",
	Long: `C3S: Capture-3C-Seq analysis

Maps paired reads, rescues chimeric reads at the restriction site, builds an
indexed interaction store and tests which regions interact with the bait
using a seeded permutation null model.`,
	Version:      c3s.Version,
	SilenceUsage: true,
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run all steps, from fastq files to p-values",
	Long: `Run all steps, from fastq files to p-values

Output directories under --wdir:
	010ReadMapping   alignments, split reads and the interaction store
	020Plotting      depth around the bait and the peak window
	030Model         p-value table and report

Example usage:
	c3s pipeline -x hg38 -1 R1.fastq.gz -2 R2.fastq.gz --prefix HBB --bait chr11:5305934
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := c3s.NewPipeline(pipelineCfg)
		_, err := p.Run(cmd.Context())
		return err
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <in.fastq.gz> <out.fastq.gz>",
	Short: "Cut reads at the restriction site and keep the longest fragment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := c3s.SplitReads(args[0], args[1], splitMotif, splitMinLen)
		return err
	},
}

var fixmateCmd = &cobra.Command{
	Use:   "fixmate <R1.bam> <R2.bam> <R1_remap.bam> <R2_remap.bam>",
	Short: "Pair up both ends into an indexed interaction store",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		fixer := c3s.MateFixer{
			Bamfiles: [4]string{args[0], args[1], args[2], args[3]},
			Prefix:   fixPrefix,
			Procs:    fixProcs,
		}
		return fixer.Run()
	},
}

var modelCmd = &cobra.Command{
	Use:   "model <links.bam>",
	Short: "Infer the peak and compute p-values from an interaction store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := c3s.ModelRunner{
			Config:        modelCfg,
			Linkfile:      args[0],
			ChromSizesBam: chromSizes,
		}
		return m.Run(cmd.Context())
	},
}

// addModelFlags registers the options shared by pipeline and model
func addModelFlags(flags *pflag.FlagSet, cfg *c3s.Config) {
	flags.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "Prefix of result files")
	flags.StringVar(&cfg.Bait, "bait", cfg.Bait, "Bait position, chr:pos or chr:start-end")
	flags.IntVar(&cfg.ExtendSize, "extendsize", cfg.ExtendSize, "Radius around the bait to look for the peak")
	flags.IntVar(&cfg.ReadLen, "readlen", cfg.ReadLen, "Read length")
	flags.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed of the permutations")
	flags.IntVar(&cfg.SmoothWindow, "smooth-window", cfg.SmoothWindow, "Moving average window for peak inference")
	flags.IntVar(&cfg.PeakStart, "peakstart", cfg.PeakStart, "Start of a user defined peak, requires --peakend")
	flags.IntVar(&cfg.PeakEnd, "peakend", cfg.PeakEnd, "End of a user defined peak, requires --peakstart")
	flags.IntVar(&cfg.NPerm, "nperm", cfg.NPerm, "Number of permutations")
	flags.IntVar(&cfg.BinSize, "binsize", cfg.BinSize, "Tile size on the bait chromosome")
	flags.IntVar(&cfg.MinLinks, "min-links", cfg.MinLinks, "Minimum number of observed mates for a tile to be tested")
	flags.StringVar(&cfg.Targets, "targets", cfg.Targets, "BED file of target regions, replaces the tiles")
	flags.StringVarP(&cfg.Wdir, "wdir", "w", cfg.Wdir, "Working directory")
	flags.IntVarP(&cfg.Procs, "proc", "p", cfg.Procs, "Number of processes")
	flags.SortFlags = false
}

func init() {
	rootCmd.AddCommand(pipelineCmd, splitCmd, fixmateCmd, modelCmd)

	flags := pipelineCmd.Flags()
	flags.StringVarP(&pipelineCfg.Genome, "genome", "x", "", "Bowtie2 index of the genome")
	flags.StringSliceVarP(&pipelineCfg.Fastq1, "fq1", "1", nil, "Read 1 fastq files")
	flags.StringSliceVarP(&pipelineCfg.Fastq2, "fq2", "2", nil, "Read 2 fastq files")
	flags.StringVar(&pipelineCfg.Motif, "motif", pipelineCfg.Motif, "Restriction site used to split reads")
	flags.IntVar(&pipelineCfg.MinQual, "min-qual", pipelineCfg.MinQual, "Minimum mapping quality")
	flags.StringVar(&pipelineCfg.Bowtie2, "bowtie2", pipelineCfg.Bowtie2, "Path to the bowtie2 binary")
	addModelFlags(flags, &pipelineCfg)
	_ = pipelineCmd.MarkFlagRequired("genome")
	_ = pipelineCmd.MarkFlagRequired("fq1")
	_ = pipelineCmd.MarkFlagRequired("fq2")
	_ = pipelineCmd.MarkFlagRequired("prefix")

	splitCmd.Flags().StringVar(&splitMotif, "motif", c3s.DefaultMotif, "Restriction site used to split reads")
	splitCmd.Flags().IntVar(&splitMinLen, "min-len", c3s.MinSplitLen, "Shortest fragment kept")

	fixmateCmd.Flags().StringVar(&fixPrefix, "prefix", "c3s", "Prefix of the interaction store")
	fixmateCmd.Flags().IntVarP(&fixProcs, "proc", "p", c3s.DefaultProcs, "Number of processes")

	modelCfg.Prefix = "c3s"
	addModelFlags(modelCmd.Flags(), &modelCfg)
	modelCmd.Flags().StringVar(&chromSizes, "chromsizes-bam", "", "BAM whose header gives the chromosome lengths")
}
