package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	csvimport "github.com/sellerdash/backend/internal/infrastructure/import"
)

var (
	importCurrency  string
	importDelimiter string
	importMaxErrors int
	importDryRun    bool
)

// importCmd loads a daily sales CSV export
var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import daily shop sales from a CSV report",
	Long: `Load a daily sales report exported from the ERP back office.

Rows are matched to shops by seller id; rows of unknown sellers are skipped and
listed. Rows with parse errors are reported and nothing else of them is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		opts := []csvimport.ReportOption{csvimport.WithMaxErrors(importMaxErrors)}
		if importCurrency != "" {
			opts = append(opts, csvimport.WithDefaultCurrency(importCurrency))
		}
		if importDelimiter != "" {
			if len([]rune(importDelimiter)) != 1 {
				return fmt.Errorf("--delimiter must be a single character")
			}
			opts = append(opts, csvimport.WithReportDelimiter([]rune(importDelimiter)[0]))
		}

		report, err := csvimport.ParseSalesReport(f, opts...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Parsed %d rows, %d valid, %d with errors\n", report.TotalRows, len(report.Rows), report.TotalErrors)
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  %s\n", e.Error())
		}
		if report.Truncated {
			fmt.Fprintf(out, "  ... %d more errors\n", report.TotalErrors-len(report.Errors))
		}
		if importDryRun || len(report.Rows) == 0 {
			return nil
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		env, err := openSyncEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.service.ImportSales(ctx, report.Rows)
		if err != nil {
			return err
		}
		if len(result.UnknownSellers) > 0 {
			fmt.Fprintf(out, "Skipped %d rows of unknown sellers: %s\n", result.SkippedRows, strings.Join(result.UnknownSellers, ", "))
		}
		if result.Run != nil {
			printRun(out, result.Run)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCurrency, "currency", "", "Currency of rows without a currency column")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "Field delimiter (default ,)")
	importCmd.Flags().IntVar(&importMaxErrors, "max-errors", 50, "Row errors to print")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and validate without storing")
}
