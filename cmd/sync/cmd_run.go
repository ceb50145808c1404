package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sellerdash/backend/internal/application/dashboard"
	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/domain/sales"
)

var (
	rangeStart string
	rangeEnd   string
	forceSync  bool
	rateMonth  string
)

// runCmd synchronizes a date range
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Synchronize exchange rates and sales for a date range",
	Long: `Fetch exchange rates for months that have none, refresh the shop list, then pull
daily sales of every month that is missing or still open.

Without --start the range begins sync.lookback_months months back; without --end
it ends today. --force re-syncs every month of the range.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := resolveRange(rangeStart, rangeEnd, time.Now().UTC(), cfg.Sync.LookbackMonths)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		env, err := openSyncEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.service.GetData(ctx, salesync.GetDataRequest{
			Start:   start,
			End:     end,
			Force:   forceSync,
			Trigger: sales.SyncTriggerCLI,
		})
		if run != nil {
			printRun(cmd.OutOrStdout(), run)
		}
		return err
	},
}

// missingCmd lists months without exchange rates
var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List months of a range without exchange rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := resolveRange(rangeStart, rangeEnd, time.Now().UTC(), cfg.Sync.LookbackMonths)
		if err != nil {
			return err
		}
		months, err := sales.MonthsBetween(start, end)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		env, err := openSyncEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		missing, err := env.service.MissingMonths(ctx, months)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(missing) == 0 {
			fmt.Fprintln(out, "Every month has exchange rates.")
			return nil
		}
		for _, m := range missing {
			fmt.Fprintln(out, m)
		}
		return nil
	},
}

// ratesCmd refreshes the exchange rates of one month
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Fetch and store the exchange rates of a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		month := sales.MonthOf(time.Now().UTC())
		if rateMonth != "" {
			m, err := sales.ParseMonth(rateMonth)
			if err != nil {
				return err
			}
			month = m
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		env, err := openSyncEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.service.SyncExchangeRates(ctx, []sales.Month{month}); err != nil {
			return err
		}
		rates, err := env.repos.Rates.FindByMonth(ctx, month)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), ratesTable(month, rates))
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, missingCmd} {
		c.Flags().StringVar(&rangeStart, "start", "", "First day, YYYY-MM-DD")
		c.Flags().StringVar(&rangeEnd, "end", "", "Last day, YYYY-MM-DD (default today)")
	}
	runCmd.Flags().BoolVar(&forceSync, "force", false, "Re-sync months that are already stored")
	ratesCmd.Flags().StringVar(&rateMonth, "month", "", "Month, YYYY-MM (default current month)")
}

// rateSample is the foreign amount shown converted next to each rate
var rateSample = decimal.NewFromInt(100)

func ratesTable(month sales.Month, rates []sales.ExchangeRate) string {
	if len(rates) == 0 {
		return fmt.Sprintf("No exchange rates stored for %s.\n", month)
	}
	t := newTable("Exchange rates "+month.String(), "CURRENCY", "RATE", "EXAMPLE")
	for _, r := range rates {
		t.addRow(
			r.Currency,
			r.Rate.String(),
			dashboard.FormatAmount(rateSample, r.Currency)+" = "+dashboard.FormatAmount(rateSample.Mul(r.Rate), sales.BaseCurrency),
		)
	}
	return t.render()
}

func printRun(out io.Writer, run *sales.SyncRun) {
	_, _ = io.WriteString(out, runTable(run))
}

func runTable(run *sales.SyncRun) string {
	t := newTable("Sync run "+run.ID.String(), "FIELD", "VALUE")
	t.addRow("Status", string(run.Status))
	t.addRow("Range", run.RangeStart.Format(dateLayout)+" .. "+run.RangeEnd.Format(dateLayout))
	t.addRow("Rate months", strconv.Itoa(run.RateMonthsSynced))
	t.addRow("Sales months", strings.Join(sales.MonthStrings(run.SalesMonths), ", "))
	t.addRow("Sales rows", strconv.Itoa(run.SalesRowsUpserted))
	if len(run.FailedShops) > 0 {
		t.addRow("Failed shops", strings.Join(run.FailedShops, ", "))
	}
	if len(run.FailedMonths) > 0 {
		t.addRow("Failed months", strings.Join(sales.MonthStrings(run.FailedMonths), ", "))
	}
	if run.Error != "" {
		t.addRow("Error", run.Error)
	}
	t.addRow("Duration", run.Duration().Round(time.Millisecond).String())
	return t.render()
}
