package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/repository"
	service "github.com/HeikoBre/screening-dashboard-sandbox/internal/app"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/config"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
)

// options are the flags shared by every subcommand.
type options struct {
	input         string
	ledger        string
	ledgerBackend string
	threshold     float64
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "gnbs-export",
		Short: "Summarize gNBS expert survey exports",
		Long: `gnbs-export reads a survey export, aggregates the answers per gene and
track, and writes the review summary CSV. Reviews are taken from a TSV or
SQLite ledger written by the review service.

Marker and label settings follow the service configuration (GNBS_CONFIG file
and GNBS_* environment variables).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.input, "input", "i", "", "survey export (CSV)")
	pf.StringVarP(&opts.ledger, "ledger", "l", "", "review ledger file")
	pf.StringVar(&opts.ledgerBackend, "ledger-backend", "", "ledger backend: tsv or sqlite (default from file extension)")
	pf.Float64Var(&opts.threshold, "threshold", -1, "consensus threshold in percent (default from config)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	_ = root.MarkPersistentFlagRequired("input")

	root.AddCommand(newSummarizeCmd(opts), newGenesCmd(opts), newReviewCmd(opts))
	return root
}

// backend picks the ledger backend from the flag or the file extension.
func (o *options) backend() string {
	if o.ledger == "" {
		return repository.BackendMemory
	}
	if o.ledgerBackend != "" {
		return o.ledgerBackend
	}
	switch strings.ToLower(filepath.Ext(o.ledger)) {
	case ".db", ".sqlite", ".sqlite3":
		return repository.BackendSQLite
	}
	return repository.BackendTSV
}

// openService loads the configuration, starts a service on the ledger and
// loads the input file.
func (o *options) openService(ctx context.Context) (*service.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	threshold := cfg.Threshold
	if o.threshold >= 0 {
		threshold = o.threshold
	}

	svc := service.New(
		service.WithLogger(logger.Named("gnbs-export")),
		service.WithMarkers(cfg.Markers()),
		service.WithLabels(cfg.Labels()),
		service.WithThreshold(threshold),
		service.WithCommentDelimiter(cfg.CommentDelimiter),
		service.WithUnreviewedLabel(cfg.UnreviewedLabel),
		service.WithLedgerBackend(o.backend(), o.ledger),
		service.WithResetOnLoad(false),
		service.WithExportTotal(cfg.ExportIncludeTotal),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(o.input)
	if err != nil {
		svc.Stop()
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if _, err := svc.LoadDataset(ctx, f, filepath.Base(o.input)); err != nil {
		svc.Stop()
		return nil, err
	}
	return svc, nil
}

func newSummarizeCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Write the review summary CSV",
		Long: `Writes one row per gene with both tracks' percentages, comments, the
derived recommendation and the recorded review decision.

Without --output the file is named gNBS_Expertenreview_Zusammenfassung_YYYYMMDD.csv
in the current directory; "-" writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummarize(cmd.Context(), opts, output, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

func runSummarize(ctx context.Context, opts *options, output string, stdout io.Writer) error {
	svc, err := opts.openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	var buf bytes.Buffer
	filename, err := svc.ExportCSV(ctx, &buf)
	if err != nil {
		return err
	}

	switch output {
	case "-":
		_, err = stdout.Write(buf.Bytes())
		return err
	case "":
		output = filename
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	fmt.Fprintln(stdout, output)
	return nil
}

func newGenesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "genes",
		Short: "List recognized genes and load diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenes(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}

func runGenes(ctx context.Context, opts *options, out io.Writer) error {
	svc, err := opts.openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	ds, err := svc.Current(ctx)
	if err != nil {
		return err
	}
	genes, err := svc.Genes(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GENE\tDISEASE\tNATIONAL %\tSTUDY %\tRECOMMENDATION\tREVIEWED")
	for _, g := range genes {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%s\t%t\n",
			g.Gene, g.Disease, g.NationalYesPct, g.StudyYesPct, g.Recommendation, g.Reviewed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	d := ds.Diagnostics
	fmt.Fprintf(out, "\n%d genes, %d responses, %d survey columns, %d ignored columns, %d dropped values\n",
		ds.Genes, ds.TotalResponses, d.SurveyColumns, d.IgnoredColumns, d.DroppedValues)
	for _, h := range d.AmbiguousHeaders {
		fmt.Fprintf(out, "ambiguous track marker: %s\n", h)
	}
	if d.SchemaEmpty {
		fmt.Fprintln(out, "no survey columns recognized")
	}
	return nil
}

func newReviewCmd(opts *options) *cobra.Command {
	var (
		decision string
		notes    string
		remove   bool
	)
	cmd := &cobra.Command{
		Use:   "review GENE",
		Short: "Record or clear a review decision in the ledger",
		Long: `Stores a decision (national_screening, scientific_study, not_recommended,
deferred) and notes for GENE in the ledger given by --ledger. --clear removes
the entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ledger == "" {
				return fmt.Errorf("--ledger is required")
			}
			return runReview(cmd.Context(), opts, args[0], decision, notes, remove, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&decision, "decision", "d", "", "review decision")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "review notes")
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the review")
	return cmd
}

func runReview(ctx context.Context, opts *options, gene, decision, notes string, remove bool, out io.Writer) error {
	svc, err := opts.openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	if remove {
		if err := svc.ClearReview(ctx, gene); err != nil {
			return err
		}
	} else if _, err := svc.SetReview(ctx, gene, decision, notes); err != nil {
		return err
	}

	list, err := svc.Reviews(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, list.Progress.Label())
	return nil
}
