package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edusignal/kbingest/internal/config"
	"github.com/edusignal/kbingest/internal/ingest"
)

var rootCmd = &cobra.Command{
	Use:   "kbingest",
	Short: "Ingest knowledge-base documents into the chunk store",
	Long: `kbingest scans a knowledge directory for markdown, text and PDF
files, extracts their text, and persists deduplicated, resumable
document/chunk records for downstream retrieval.`,
	SilenceUsage: true,
	RunE:         runIngest,
}

var ingestFlags struct {
	verbose      bool
	quiet        bool
	plan         bool
	path         string
	maxDocuments int
	chunkSize    int
	overlap      int
	force        bool
	noResume     bool
	skipPDFs     bool
	maxPDFSize   int
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&ingestFlags.verbose, "verbose", "v", false, "narrate per-file work")
	f.BoolVarP(&ingestFlags.quiet, "quiet", "q", false, "suppress all output except errors and the summary")
	f.BoolVar(&ingestFlags.plan, "plan", false, "print the steps a run would take without writing anything")
	f.StringVar(&ingestFlags.path, "path", "", "source directory override (default: <KB_BASE_DIR>/documents)")
	f.IntVar(&ingestFlags.maxDocuments, "max-documents", 0, "stop scanning after this many files (0 = unlimited)")
	f.IntVar(&ingestFlags.chunkSize, "chunk-size", ingest.DefaultChunkSize, "maximum characters per chunk")
	f.IntVar(&ingestFlags.overlap, "overlap", ingest.DefaultOverlap, "characters shared between consecutive chunks")
	f.BoolVar(&ingestFlags.force, "force", false, "delete and reprocess completed or failed documents")
	f.BoolVar(&ingestFlags.noResume, "no-resume", false, "skip in-progress documents instead of resuming them")
	f.BoolVar(&ingestFlags.skipPDFs, "skip-pdfs", false, "exclude PDF files from the scan")
	f.IntVar(&ingestFlags.maxPDFSize, "max-pdf-size", 100, "skip PDFs larger than this many megabytes")
}

// Execute runs the CLI. The returned error is non-nil when the run
// failed or produced per-file errors, so main can exit non-zero.
func Execute() error {
	return rootCmd.Execute()
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(ingestFlags.path); err != nil {
		return err
	}

	st, err := openStore(cfg, ingestFlags.path)
	if err != nil {
		return err
	}
	defer st.Close()

	log := newLogger(ingestFlags.verbose, ingestFlags.quiet)
	runner := ingest.NewRunner(st, log)

	opts := optionsFromFlags(cmd, cfg)
	root := cfg.SourceRoot(ingestFlags.path)

	res, err := runner.Run(context.Background(), root, opts)
	if err != nil {
		return err
	}

	printSummary(res)
	if res.HasErrors() {
		return fmt.Errorf("%d file(s) failed", len(res.Errors))
	}
	return nil
}

// optionsFromFlags maps CLI flags onto run options, letting environment
// configuration fill in anything the user did not set explicitly.
func optionsFromFlags(cmd *cobra.Command, cfg config.Config) ingest.Options {
	opts := ingest.DefaultOptions()
	opts.Verbose = ingestFlags.verbose
	opts.Quiet = ingestFlags.quiet
	opts.Plan = ingestFlags.plan
	opts.Path = ingestFlags.path
	opts.MaxDocuments = ingestFlags.maxDocuments
	opts.Force = ingestFlags.force
	opts.Resume = !ingestFlags.noResume
	opts.SkipPDFs = ingestFlags.skipPDFs
	opts.MinTextLength = cfg.MinTextLength

	opts.ChunkSize = cfg.DefaultChunkSize
	if cmd.Flags().Changed("chunk-size") {
		opts.ChunkSize = ingestFlags.chunkSize
	}
	opts.Overlap = cfg.DefaultOverlap
	if cmd.Flags().Changed("overlap") {
		opts.Overlap = ingestFlags.overlap
	}
	opts.MaxPDFSizeMB = cfg.MaxPDFSizeMB
	if cmd.Flags().Changed("max-pdf-size") {
		opts.MaxPDFSizeMB = ingestFlags.maxPDFSize
	}
	return opts
}

// printSummary always reports the run totals and up to the first five
// errors, regardless of verbosity.
func printSummary(res *ingest.Result) {
	bold := color.New(color.Bold)
	bold.Println("ingestion summary")
	fmt.Printf("  scanned:   %d\n", res.FilesScanned)
	fmt.Printf("  processed: %d\n", res.FilesProcessed)
	fmt.Printf("  resumed:   %d\n", res.FilesResumed)
	fmt.Printf("  skipped:   %d\n", res.FilesSkipped)
	fmt.Printf("  created:   %d documents\n", res.DocumentsCreated)
	fmt.Printf("  updated:   %d documents\n", res.DocumentsUpdated)
	fmt.Printf("  chunks:    %d\n", res.ChunksCreated)

	if len(res.Errors) == 0 {
		return
	}
	red := color.New(color.FgRed)
	red.Printf("  errors:    %d\n", len(res.Errors))
	shown := res.Errors
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, e := range shown {
		red.Printf("    - %s\n", e)
	}
	if extra := len(res.Errors) - len(shown); extra > 0 {
		red.Printf("    ...and %d more\n", extra)
	}
}
