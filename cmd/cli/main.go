package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/infrastructure/config"
	"github.com/iho/bizledger/internal/infrastructure/logger"
	"github.com/iho/bizledger/internal/infrastructure/postgres"
)

const dateLayout = "2006-01-02"

type options struct {
	baseURL string
	userID  string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "bizledger",
		Short:         "BizLedger CLI tool",
		Long:          `A command line interface for previewing installment plans and querying the BizLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the BizLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", os.Getenv("BIZLEDGER_USER"), "User whose ledger is queried")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(summaryCmd(opts))
	rootCmd.AddCommand(growthCmd(opts))
	rootCmd.AddCommand(entriesCmd(opts))
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Installment plan operations",
	}
	cmd.AddCommand(planPreviewCmd())
	return cmd
}

func planPreviewCmd() *cobra.Command {
	var (
		total, down string
		count       int
		start       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the schedule of an installment plan without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			totalAmount, err := decimal.NewFromString(total)
			if err != nil {
				return fmt.Errorf("invalid --total %q: %w", total, err)
			}
			downPayment := decimal.Zero
			if down != "" {
				if downPayment, err = decimal.NewFromString(down); err != nil {
					return fmt.Errorf("invalid --down %q: %w", down, err)
				}
			}
			startDate := time.Now().UTC()
			if start != "" {
				if startDate, err = time.Parse(dateLayout, start); err != nil {
					return fmt.Errorf("invalid --start %q: %w", start, err)
				}
			}
			if err := domain.ValidatePlan(totalAmount, downPayment, count); err != nil {
				return err
			}

			entries := domain.BuildPlan(domain.PlanInput{
				TotalAmount:       totalAmount,
				DownPayment:       downPayment,
				InstallmentCount:  count,
				StartDate:         startDate,
				BaseDescription:   description,
				DownPaymentStatus: domain.StatusPending,
			})
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].Date.Before(entries[j].Date)
			})

			return printSchedule(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVar(&total, "total", "", "Total amount of the transaction")
	cmd.Flags().StringVar(&down, "down", "0", "Down payment")
	cmd.Flags().IntVar(&count, "count", 1, "Number of installments")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&description, "description", "Plano", "Base description")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}

func printSchedule(out io.Writer, entries []*domain.Entry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tSTATUS")
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date.Format(dateLayout), truncate(e.Description, 48), e.Amount.StringFixed(2), e.Status)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t\n", sum.StringFixed(2))
	return tw.Flush()
}

func summaryCmd(opts *options) *cobra.Command {
	var month, year string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense and pending totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "month", month)
			setIf(q, "year", year)
			return getAndPrint(cmd.OutOrStdout(), opts, "/api/v1/summary", q)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", `Month filter: "all", "current" or 0-11`)
	cmd.Flags().StringVar(&year, "year", "", `Year filter: "all", "current" or a year`)
	return cmd
}

func growthCmd(opts *options) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Compare a month's net revenue with the previous month and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "at", at)
			return getAndPrint(cmd.OutOrStdout(), opts, "/api/v1/growth", q)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Any date (YYYY-MM-DD) in the month to evaluate, defaults to today")
	return cmd
}

func entriesCmd(opts *options) *cobra.Command {
	var query, status, month, year string
	var limit int

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List entries matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "q", query)
			setIf(q, "status", status)
			setIf(q, "month", month)
			setIf(q, "year", year)
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}
			return getAndPrint(cmd.OutOrStdout(), opts, "/api/v1/entries", q)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Text search over description and client")
	cmd.Flags().StringVar(&status, "status", "", "pending or settled")
	cmd.Flags().StringVar(&month, "month", "", `Month filter: "all", "current" or 0-11`)
	cmd.Flags().StringVar(&year, "year", "", `Year filter: "all", "current" or a year`)
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	return cmd
}

// migrateCmd applies or rolls back the schema using the server's
// configuration (DATABASE_URL, MIGRATIONS_PATH, .env).
func migrateCmd() *cobra.Command {
	var databaseURL, path string

	resolve := func() (string, string, error) {
		cfg, err := config.Load()
		if err != nil {
			return "", "", err
		}
		if databaseURL == "" {
			databaseURL = cfg.DatabaseURL
		}
		if path == "" {
			path = cfg.MigrationsPath
		}
		return databaseURL, path, nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Overrides DATABASE_URL")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Overrides MIGRATIONS_PATH")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, dir, err := resolve()
			if err != nil {
				return err
			}
			return postgres.RunMigrations(dbURL, dir, cliLogger(cmd))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, dir, err := resolve()
			if err != nil {
				return err
			}
			return postgres.RunMigrationsDown(dbURL, dir, cliLogger(cmd))
		},
	})

	return cmd
}

func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
}

func getAndPrint(out io.Writer, opts *options, path string, q url.Values) error {
	if opts.userID == "" {
		return fmt.Errorf("--user is required")
	}

	target := strings.TrimRight(opts.baseURL, "/") + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-User-ID", opts.userID)

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s failed (status %d): %s", path, resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}

	return printJSON(out, body)
}

func printJSON(out io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
