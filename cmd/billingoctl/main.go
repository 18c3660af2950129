package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/billingo/billingo-backend/internal/clients/rates"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/core/services"
	"github.com/billingo/billingo-backend/internal/platform/cache"
	"github.com/billingo/billingo-backend/internal/platform/config"
	"github.com/billingo/billingo-backend/internal/repositories/database/pgsql"
	"github.com/billingo/billingo-backend/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	flagLimit     int
	flagUserID    string
	flagChunkSize int

	dbPool    *pgxpool.Pool
	container *portssvc.ServiceContainer
)

var rootCmd = &cobra.Command{
	Use:   "billingoctl",
	Short: "Operational CLI for the Billingo backend",
	Long: `billingoctl runs the batch automations against the configured database:
overdue marking, reminder recording, recurring invoice generation and
totals reconciliation. All sweeps are idempotent and safe to run while
the API server is serving traffic.`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		database.ClosePgxPool(dbPool)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run automation sweeps",
}

var sweepOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Mark past-due Sent invoices as Overdue",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := container.Automation.RunOverdueSweep(cmd.Context(), flagLimit, userIDFilter())
		if err != nil {
			return fmt.Errorf("overdue sweep failed: %w", err)
		}
		return printResult(result)
	},
}

var sweepRemindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Record due-soon, overdue and follow-up reminder intents",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := container.Automation.RunReminderSweep(cmd.Context(), flagLimit, userIDFilter())
		if err != nil {
			return fmt.Errorf("reminder sweep failed: %w", err)
		}
		return printResult(result)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate invoices from due recurring templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := container.Recurring.GenerateDueInvoices(cmd.Context(), flagLimit, userIDFilter())
		if err != nil {
			return fmt.Errorf("recurring generation failed: %w", err)
		}
		return printResult(result)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute stored invoice totals and correct drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := container.Invoice.ReconcileTotals(cmd.Context(), flagChunkSize)
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}
		return printResult(result)
	},
}

func initApp(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	dbPool, err = database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := cache.ConnectRedis(ctx, cfg.RedisAddr, logger)
	rateCache := cache.NewRedisRateCache(redisClient, logger)
	rateProvider := rates.NewClient(cfg.RateProviderURL)

	repos := pgsql.NewRepositoryProvider(dbPool)
	container = services.NewServiceContainer(cfg, &repos, rateProvider, rateCache, nil)
	return nil
}

// userIDFilter converts the --user flag to the optional owner filter the
// sweeps accept.
func userIDFilter() *string {
	if flagUserID == "" {
		return nil
	}
	return &flagUserID
}

func printResult(result domain.SweepResult) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagLimit, "limit", 200, "maximum items to process in one run")
	rootCmd.PersistentFlags().StringVar(&flagUserID, "user", "", "restrict the sweep to a single owner")
	reconcileCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 500, "invoices to load per reconciliation chunk")

	sweepCmd.AddCommand(sweepOverdueCmd)
	sweepCmd.AddCommand(sweepRemindersCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
