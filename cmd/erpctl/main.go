// Command erpctl operates on the stored business state without the HTTP
// server: inspect it, bulk-import inventory, print payroll and briefings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nexuserp/backend/internal/config"
	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/insight"
	"nexuserp/backend/internal/service"
	"nexuserp/backend/internal/store"
	"nexuserp/backend/internal/store/slots"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is built once per invocation from the environment configuration.
type app struct {
	cfg     config.Config
	svc     *service.Service
	logger  *zap.Logger
	closers []func() error
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		_ = closeFn()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// errEphemeralStorage stops writes that would vanish when the process exits.
var errEphemeralStorage = errors.New("memory storage is discarded on exit; set STORAGE_BACKEND to sqlite, postgres or redis")

// openApp defaults to the on-disk SQLite slot, since a memory slot would not
// outlive a single command.
func openApp(ctx context.Context, verbose bool) (*app, error) {
	cfg, err := config.LoadWithBackend(config.BackendSQLite)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	slot, closers, err := slots.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}

	summarizer := insight.Summarizer(insight.NoopSummarizer{})
	if cfg.GenAIAPIKey != "" {
		genai, err := insight.NewGenAISummarizer(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			logger.Warn("genai unavailable", zap.Error(err))
		} else {
			summarizer = genai
		}
	}
	engine := insight.NewEngine(summarizer, nil, cfg.InsightCacheTTL(), cfg.InsightTimeout(), insight.WithLogger(logger))

	repo := store.NewStateStore(slot, cfg.StorageKey, logger)
	return &app{
		cfg:     cfg,
		svc:     service.New(repo, engine, service.WithLogger(logger)),
		logger:  logger,
		closers: closers,
	}, nil
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "erpctl",
		Short:         "Operate on the Nexus ERP business state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log storage and summarizer activity")

	// withApp opens storage for one command and always releases it.
	var withApp runner = func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, args, a)
		}
	}

	cmd.AddCommand(
		stateCmd(withApp),
		importCmd(withApp),
		payrollCmd(withApp),
		briefingCmd(withApp),
	)
	return cmd
}

type runner func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error

func stateCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the stored business state as JSON",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			state, err := a.svc.State(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		}),
	}
}

func importCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk import inventory rows (name,sku,quantity,cost,price)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if a.cfg.StorageBackend == config.BackendMemory {
				return errEphemeralStorage
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			state, count, err := a.svc.ImportInventoryCSV(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items (%d SKUs in inventory)\n", count, len(state.Inventory))
			return nil
		}),
	}
}

func payrollCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "payroll",
		Short: "Print estimated gross pay per employee",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			summary, err := a.svc.Payroll(cmd.Context())
			if err != nil {
				return err
			}
			return writePayroll(cmd.OutOrStdout(), summary.Lines, summary.Total)
		}),
	}
}

func briefingCmd(withApp runner) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:       "briefing [daily_briefing|executive_insight]",
		Short:     "Generate a business briefing from current metrics",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(insight.KindDailyBriefing), string(insight.KindExecutiveInsight)},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			kind := insight.KindDailyBriefing
			if len(args) == 1 {
				parsed, ok := insight.ParseKind(args[0])
				if !ok {
					return fmt.Errorf("unknown briefing kind %q", args[0])
				}
				kind = parsed
			}

			result, err := a.svc.Briefing(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if result.Outcome != insight.OutcomeSuccess {
				fmt.Fprintf(cmd.ErrOrStderr(), "briefing outcome: %s\n", result.Outcome)
			}

			if raw {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
				return err
			}
			return renderMarkdown(cmd.OutOrStdout(), result.Text)
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the text without markdown rendering")
	return cmd
}

func renderMarkdown(w io.Writer, text string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("notty"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		_, err = fmt.Fprintln(w, text)
		return err
	}
	out, err := renderer.Render(text)
	if err != nil {
		_, err = fmt.Fprintln(w, text)
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func writePayroll(w io.Writer, lines []domain.PayrollLine, total float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE\tRATE\tHOURS\tGROSS")
	for _, line := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.1f\t%.2f\n",
			line.EmployeeID, line.Name, line.Role, line.HourlyRate, line.HoursWorked, line.GrossPay)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%.2f\n", total)
	return tw.Flush()
}
